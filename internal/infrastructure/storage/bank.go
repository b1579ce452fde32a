package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const bankColumns = `id, user_id, account_id, txn_date, amount, narration,
	balance, purpose, match_state, match_ref_kind, matched_ledger_id,
	match_group_id, created_at`

// InsertBankRecord persists an imported statement line and sets its ID.
func (s *Storage) InsertBankRecord(r *BankRecord) error {
	if r.MatchState == "" {
		r.MatchState = StateUnmatched
	}
	if r.MatchRefKind == "" {
		r.MatchRefKind = RefNone
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.Exec(`
		INSERT INTO bank_records
		(user_id, account_id, txn_date, amount, narration, balance, purpose,
		 match_state, match_ref_kind, matched_ledger_id, match_group_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.UserID, r.AccountID, r.Date, r.Amount, r.Narration, r.Balance, r.Purpose,
		r.MatchState, r.MatchRefKind, r.MatchedLedgerID, r.MatchGroupID, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert bank record: %w", err)
	}

	r.ID, err = res.LastInsertId()
	return err
}

// GetBankRecord returns the record, or nil when it does not exist.
func (s *Storage) GetBankRecord(id int64) (*BankRecord, error) {
	row := s.db.QueryRow(`SELECT `+bankColumns+` FROM bank_records WHERE id = ?`, id)
	r, err := scanBankRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

// ListBankRecords returns records matching the filters, date ascending.
func (s *Storage) ListBankRecords(f BankFilters) ([]*BankRecord, error) {
	query := `SELECT ` + bankColumns + ` FROM bank_records WHERE 1=1`
	var args []interface{}

	if f.UserID != 0 {
		query += ` AND user_id = ?`
		args = append(args, f.UserID)
	}
	if !f.From.IsZero() {
		query += ` AND txn_date >= ?`
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		query += ` AND txn_date <= ?`
		args = append(args, f.To)
	}
	if f.AccountID != 0 {
		query += ` AND account_id = ?`
		args = append(args, f.AccountID)
	}
	if f.State != "" {
		query += ` AND match_state = ?`
		args = append(args, f.State)
	}
	if len(f.ExcludePurposes) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(f.ExcludePurposes)), ",")
		query += ` AND purpose NOT IN (` + placeholders + `)`
		for _, p := range f.ExcludePurposes {
			args = append(args, p)
		}
	}
	query += ` ORDER BY txn_date ASC, id ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bank records: %w", err)
	}
	defer rows.Close()

	var records []*BankRecord
	for rows.Next() {
		r, err := scanBankRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// SetBankMatchRef rewrites one side's match pointer. Used by the repair
// pass; regular matching goes through the transactional mutators.
func (s *Storage) SetBankMatchRef(id int64, kind MatchRefKind, ledgerID *int64, groupID *string) error {
	state := StateMatched
	if kind == RefNone {
		state = StateUnmatched
	}
	_, err := s.db.Exec(`
		UPDATE bank_records
		SET match_state = ?, match_ref_kind = ?, matched_ledger_id = ?, match_group_id = ?
		WHERE id = ?
	`, state, kind, ledgerID, groupID, id)
	return err
}

// ClearBankMatch resets the record to unmatched/none.
func (s *Storage) ClearBankMatch(id int64) error {
	return s.SetBankMatchRef(id, RefNone, nil, nil)
}

// SetBankPurpose tags the record's purpose.
func (s *Storage) SetBankPurpose(id int64, p Purpose) error {
	_, err := s.db.Exec(`UPDATE bank_records SET purpose = ? WHERE id = ?`, p, id)
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBankRecord(row rowScanner) (*BankRecord, error) {
	var r BankRecord
	err := row.Scan(
		&r.ID, &r.UserID, &r.AccountID, &r.Date, &r.Amount, &r.Narration,
		&r.Balance, &r.Purpose, &r.MatchState, &r.MatchRefKind,
		&r.MatchedLedgerID, &r.MatchGroupID, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
