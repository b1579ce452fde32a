package storage

import (
	"database/sql"
	"fmt"
	"time"
)

const ruleColumns = `id, user_id, pattern_kind, pattern_value, vendor,
	category, tax_treatment, priority, match_count, active, created_at, updated_at`

// ListRules returns a user's rules ordered by match_count then priority,
// both descending, so the most-used and highest-trust rules win the
// signature lookup map.
func (s *Storage) ListRules(userID int64, activeOnly bool) ([]*ReconRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM recon_rules WHERE user_id = ?`
	args := []interface{}{userID}
	if activeOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY match_count DESC, priority DESC, id ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var rules []*ReconRule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// GetRuleBySignature returns the rule, or nil when none exists.
func (s *Storage) GetRuleBySignature(userID int64, kind, value string) (*ReconRule, error) {
	row := s.db.QueryRow(`
		SELECT `+ruleColumns+` FROM recon_rules
		WHERE user_id = ? AND pattern_kind = ? AND pattern_value = ?
	`, userID, kind, value)
	r, err := scanRule(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

// InsertRule persists a new rule and sets its ID.
func (s *Storage) InsertRule(r *ReconRule) error {
	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now

	res, err := s.db.Exec(`
		INSERT INTO recon_rules
		(user_id, pattern_kind, pattern_value, vendor, category, tax_treatment,
		 priority, match_count, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.UserID, r.PatternKind, r.PatternValue, r.Vendor, r.Category, r.TaxTreatment,
		r.Priority, r.MatchCount, r.Active, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert rule: %w", err)
	}

	r.ID, err = res.LastInsertId()
	return err
}

// UpdateRule rewrites a rule's enrichment and bookkeeping fields.
func (s *Storage) UpdateRule(r *ReconRule) error {
	r.UpdatedAt = time.Now().UTC()
	_, err := s.db.Exec(`
		UPDATE recon_rules
		SET vendor = ?, category = ?, tax_treatment = ?, priority = ?,
		    match_count = ?, active = ?, updated_at = ?
		WHERE id = ?
	`, r.Vendor, r.Category, r.TaxTreatment, r.Priority,
		r.MatchCount, r.Active, r.UpdatedAt, r.ID)
	return err
}

// IncrementRuleMatchCount bumps the usage counter.
func (s *Storage) IncrementRuleMatchCount(id int64, delta int) error {
	_, err := s.db.Exec(`
		UPDATE recon_rules
		SET match_count = match_count + ?, updated_at = ?
		WHERE id = ?
	`, delta, time.Now().UTC(), id)
	return err
}

// SetRuleActive toggles a rule. Idempotent.
func (s *Storage) SetRuleActive(id int64, active bool) error {
	_, err := s.db.Exec(`
		UPDATE recon_rules SET active = ?, updated_at = ? WHERE id = ?
	`, active, time.Now().UTC(), id)
	return err
}

// DeleteRule removes a rule. Idempotent.
func (s *Storage) DeleteRule(id int64) error {
	_, err := s.db.Exec(`DELETE FROM recon_rules WHERE id = ?`, id)
	return err
}

func scanRule(row rowScanner) (*ReconRule, error) {
	var r ReconRule
	err := row.Scan(
		&r.ID, &r.UserID, &r.PatternKind, &r.PatternValue, &r.Vendor,
		&r.Category, &r.TaxTreatment, &r.Priority, &r.MatchCount, &r.Active,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
