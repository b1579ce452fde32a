package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const ledgerColumns = `id, user_id, txn_date, amount, party, ledger_type,
	invoice_no, balance_due, match_state, match_ref_kind, matched_bank_id,
	match_group_id, created_at`

// InsertLedgerRecord persists an imported accounting line and sets its ID.
func (s *Storage) InsertLedgerRecord(r *LedgerRecord) error {
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
		INSERT INTO ledger_records
		(user_id, txn_date, amount, party, ledger_type, invoice_no, balance_due,
		 match_state, match_ref_kind, matched_bank_id, match_group_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.UserID, r.Date, r.Amount, r.Party, r.Type, r.InvoiceNo, r.BalanceDue,
		r.MatchState, r.MatchRefKind, r.MatchedBankID, r.MatchGroupID, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert ledger record: %w", err)
	}

	r.ID, err = res.LastInsertId()
	return err
}

// GetLedgerRecord returns the record, or nil when it does not exist.
func (s *Storage) GetLedgerRecord(id int64) (*LedgerRecord, error) {
	row := s.db.QueryRow(`SELECT `+ledgerColumns+` FROM ledger_records WHERE id = ?`, id)
	r, err := scanLedgerRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

// ListLedgerRecords returns records matching the filters, date ascending.
func (s *Storage) ListLedgerRecords(f LedgerFilters) ([]*LedgerRecord, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_records WHERE 1=1`
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
	if len(f.Types) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(f.Types)), ",")
		query += ` AND ledger_type IN (` + placeholders + `)`
		for _, t := range f.Types {
			args = append(args, t)
		}
	}
	if f.State != "" {
		query += ` AND match_state = ?`
		args = append(args, f.State)
	}
	query += ` ORDER BY txn_date ASC, id ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger records: %w", err)
	}
	defer rows.Close()

	var records []*LedgerRecord
	for rows.Next() {
		r, err := scanLedgerRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// SetLedgerMatchRef rewrites one side's match pointer (repair use).
func (s *Storage) SetLedgerMatchRef(id int64, kind MatchRefKind, bankID *int64, groupID *string) error {
	state := StateMatched
	if kind == RefNone {
		state = StateUnmatched
	}
	_, err := s.db.Exec(`
		UPDATE ledger_records
		SET match_state = ?, match_ref_kind = ?, matched_bank_id = ?, match_group_id = ?
		WHERE id = ?
	`, state, kind, bankID, groupID, id)
	return err
}

// ClearLedgerMatch resets the record to unmatched/none.
func (s *Storage) ClearLedgerMatch(id int64) error {
	return s.SetLedgerMatchRef(id, RefNone, nil, nil)
}

// DeleteLedgerRecords removes rows by id and reports how many went.
func (s *Storage) DeleteLedgerRecords(ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	res, err := s.db.Exec(`DELETE FROM ledger_records WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete ledger records: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func scanLedgerRecord(row rowScanner) (*LedgerRecord, error) {
	var r LedgerRecord
	err := row.Scan(
		&r.ID, &r.UserID, &r.Date, &r.Amount, &r.Party, &r.Type,
		&r.InvoiceNo, &r.BalanceDue, &r.MatchState, &r.MatchRefKind,
		&r.MatchedBankID, &r.MatchGroupID, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
