package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// SetSingleMatch points both records at each other as a 1:1 match.
// Both updates run in one transaction.
func (s *Storage) SetSingleMatch(bankID, ledgerID int64) error {
	return s.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`
			UPDATE bank_records
			SET match_state = ?, match_ref_kind = ?, matched_ledger_id = ?, match_group_id = NULL
			WHERE id = ?
		`, StateMatched, RefSingle, ledgerID, bankID); err != nil {
			return fmt.Errorf("failed to match bank side: %w", err)
		}
		if _, err := tx.Exec(`
			UPDATE ledger_records
			SET match_state = ?, match_ref_kind = ?, matched_bank_id = ?, match_group_id = NULL
			WHERE id = ?
		`, StateMatched, RefSingle, bankID, ledgerID); err != nil {
			return fmt.Errorf("failed to match ledger side: %w", err)
		}
		return nil
	})
}

// ClearSingleMatch resets both sides of a 1:1 match in one transaction.
func (s *Storage) ClearSingleMatch(bankID, ledgerID int64) error {
	return s.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`
			UPDATE bank_records
			SET match_state = ?, match_ref_kind = ?, matched_ledger_id = NULL, match_group_id = NULL
			WHERE id = ?
		`, StateUnmatched, RefNone, bankID); err != nil {
			return err
		}
		_, err := tx.Exec(`
			UPDATE ledger_records
			SET match_state = ?, match_ref_kind = ?, matched_bank_id = NULL, match_group_id = NULL
			WHERE id = ?
		`, StateUnmatched, RefNone, ledgerID)
		return err
	})
}

// CreateMatchGroup inserts the group, one member row per id, and marks every
// named record matched with a group reference, all in one transaction.
func (s *Storage) CreateMatchGroup(g *MatchGroup, bankIDs, ledgerIDs []int64) error {
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	return s.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`
			INSERT INTO match_groups (id, user_id, created_at) VALUES (?, ?, ?)
		`, g.ID, g.UserID, g.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert match group: %w", err)
		}

		for _, id := range bankIDs {
			if _, err := tx.Exec(`
				INSERT INTO match_group_members (group_id, bank_record_id) VALUES (?, ?)
			`, g.ID, id); err != nil {
				return err
			}
			if _, err := tx.Exec(`
				UPDATE bank_records
				SET match_state = ?, match_ref_kind = ?, matched_ledger_id = NULL, match_group_id = ?
				WHERE id = ?
			`, StateMatched, RefGroup, g.ID, id); err != nil {
				return err
			}
		}
		for _, id := range ledgerIDs {
			if _, err := tx.Exec(`
				INSERT INTO match_group_members (group_id, ledger_record_id) VALUES (?, ?)
			`, g.ID, id); err != nil {
				return err
			}
			if _, err := tx.Exec(`
				UPDATE ledger_records
				SET match_state = ?, match_ref_kind = ?, matched_bank_id = NULL, match_group_id = ?
				WHERE id = ?
			`, StateMatched, RefGroup, g.ID, id); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteMatchGroup unmatches every member and removes the group and its
// member rows in one transaction. Reports false when the group is absent.
func (s *Storage) DeleteMatchGroup(groupID string) (bool, error) {
	g, err := s.GetMatchGroup(groupID)
	if err != nil {
		return false, err
	}
	if g == nil {
		return false, nil
	}

	err = s.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`
			UPDATE bank_records
			SET match_state = ?, match_ref_kind = ?, matched_ledger_id = NULL, match_group_id = NULL
			WHERE match_group_id = ?
		`, StateUnmatched, RefNone, groupID); err != nil {
			return err
		}
		if _, err := tx.Exec(`
			UPDATE ledger_records
			SET match_state = ?, match_ref_kind = ?, matched_bank_id = NULL, match_group_id = NULL
			WHERE match_group_id = ?
		`, StateUnmatched, RefNone, groupID); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM match_group_members WHERE group_id = ?`, groupID); err != nil {
			return err
		}
		_, err := tx.Exec(`DELETE FROM match_groups WHERE id = ?`, groupID)
		return err
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetMatchGroup returns the group, or nil when it does not exist.
func (s *Storage) GetMatchGroup(groupID string) (*MatchGroup, error) {
	row := s.db.QueryRow(`SELECT id, user_id, created_at FROM match_groups WHERE id = ?`, groupID)
	var g MatchGroup
	err := row.Scan(&g.ID, &g.UserID, &g.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// GetGroupMembers returns the group's join-table rows.
func (s *Storage) GetGroupMembers(groupID string) ([]GroupMember, error) {
	rows, err := s.db.Query(`
		SELECT id, group_id, bank_record_id, ledger_record_id
		FROM match_group_members WHERE group_id = ? ORDER BY id ASC
	`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []GroupMember
	for rows.Next() {
		var m GroupMember
		if err := rows.Scan(&m.ID, &m.GroupID, &m.BankRecordID, &m.LedgerRecordID); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}
