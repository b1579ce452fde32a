package storage

import (
	"database/sql"
	"fmt"
	"log"
)

// Migration represents a database schema migration
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.Tx) error
}

// allMigrations defines all migrations in order
var allMigrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		Up:      migration001InitialSchema,
	},
	{
		Version: 2,
		Name:    "add_match_groups",
		Up:      migration002AddMatchGroups,
	},
	{
		Version: 3,
		Name:    "add_recon_rules",
		Up:      migration003AddReconRules,
	},
	{
		Version: 4,
		Name:    "add_match_indexes",
		Up:      migration004AddMatchIndexes,
	},
}

// runMigrations executes all pending migrations
func (s *Storage) runMigrations() error {
	if err := s.ensureMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := s.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	for _, migration := range allMigrations {
		if applied[migration.Version] {
			continue // Already applied
		}

		log.Printf("Running migration %d: %s", migration.Version, migration.Name)

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		if err := migration.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Name, err)
		}

		_, err = tx.Exec(`
			INSERT INTO schema_migrations (version, name) VALUES (?, ?)
		`, migration.Version, migration.Name)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

func (s *Storage) ensureMigrationsTable() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

func (s *Storage) getAppliedMigrations() (map[int]bool, error) {
	rows, err := s.db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func migration001InitialSchema(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE bank_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			account_id INTEGER NOT NULL,
			txn_date DATETIME NOT NULL,
			amount INTEGER NOT NULL,
			narration TEXT NOT NULL DEFAULT '',
			balance INTEGER,
			purpose TEXT NOT NULL DEFAULT '',
			match_state TEXT NOT NULL DEFAULT 'unmatched',
			match_ref_kind TEXT NOT NULL DEFAULT 'none',
			matched_ledger_id INTEGER,
			match_group_id TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE ledger_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			txn_date DATETIME NOT NULL,
			amount INTEGER NOT NULL,
			party TEXT NOT NULL DEFAULT '',
			ledger_type TEXT NOT NULL,
			invoice_no TEXT NOT NULL DEFAULT '',
			balance_due INTEGER,
			match_state TEXT NOT NULL DEFAULT 'unmatched',
			match_ref_kind TEXT NOT NULL DEFAULT 'none',
			matched_bank_id INTEGER,
			match_group_id TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`)
	return err
}

func migration002AddMatchGroups(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE match_groups (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE match_group_members (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			group_id TEXT NOT NULL REFERENCES match_groups(id),
			bank_record_id INTEGER,
			ledger_record_id INTEGER,
			CHECK (
				(bank_record_id IS NULL) != (ledger_record_id IS NULL)
			)
		);

		CREATE INDEX idx_group_members_group ON match_group_members(group_id);
	`)
	return err
}

func migration003AddReconRules(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE recon_rules (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			pattern_kind TEXT NOT NULL,
			pattern_value TEXT NOT NULL,
			vendor TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			tax_treatment TEXT NOT NULL DEFAULT '',
			priority INTEGER NOT NULL DEFAULT 50,
			match_count INTEGER NOT NULL DEFAULT 0,
			active INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(user_id, pattern_kind, pattern_value)
		);
	`)
	return err
}

func migration004AddMatchIndexes(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE INDEX idx_bank_user_date ON bank_records(user_id, txn_date);
		CREATE INDEX idx_bank_match_state ON bank_records(user_id, match_state);
		CREATE INDEX idx_ledger_user_date ON ledger_records(user_id, txn_date);
		CREATE INDEX idx_ledger_match_state ON ledger_records(user_id, match_state);
	`)
	return err
}
