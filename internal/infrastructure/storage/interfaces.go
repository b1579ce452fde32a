package storage

import "time"

// Repository defines the complete storage interface.
// This interface allows swapping implementations (SQLite, PostgreSQL, etc.)
// and makes testing with mocks straightforward.
type Repository interface {
	BankRepository
	LedgerRepository
	MatchRepository
	RuleRepository
	Close() error
}

// BankFilters narrows bank record listings. Zero values mean "no filter".
type BankFilters struct {
	UserID          int64
	From, To        time.Time
	AccountID       int64
	State           MatchState
	ExcludePurposes []Purpose
}

// LedgerFilters narrows ledger record listings. Zero values mean "no filter".
type LedgerFilters struct {
	UserID   int64
	From, To time.Time
	Types    []LedgerType
	State    MatchState
}

// BankRepository handles bank-statement record access.
type BankRepository interface {
	// InsertBankRecord persists an imported statement line and sets its ID.
	InsertBankRecord(r *BankRecord) error

	// GetBankRecord returns the record, or nil when it does not exist.
	GetBankRecord(id int64) (*BankRecord, error)

	// ListBankRecords returns records matching the filters, date ascending.
	ListBankRecords(f BankFilters) ([]*BankRecord, error)

	// SetBankMatchRef rewrites one side's match pointer (repair use).
	SetBankMatchRef(id int64, kind MatchRefKind, ledgerID *int64, groupID *string) error

	// ClearBankMatch resets the record to unmatched/none.
	ClearBankMatch(id int64) error

	// SetBankPurpose tags the record's purpose.
	SetBankPurpose(id int64, p Purpose) error
}

// LedgerRepository handles accounting-system record access.
type LedgerRepository interface {
	InsertLedgerRecord(r *LedgerRecord) error

	// GetLedgerRecord returns the record, or nil when it does not exist.
	GetLedgerRecord(id int64) (*LedgerRecord, error)

	// ListLedgerRecords returns records matching the filters, date ascending.
	ListLedgerRecords(f LedgerFilters) ([]*LedgerRecord, error)

	SetLedgerMatchRef(id int64, kind MatchRefKind, bankID *int64, groupID *string) error

	ClearLedgerMatch(id int64) error

	// DeleteLedgerRecords removes rows by id and reports how many went.
	// Used by the repair pass for duplicate suppression only.
	DeleteLedgerRecords(ids []int64) (int, error)
}

// MatchRepository holds the transactional match mutators. Each call is one
// storage-level transaction covering both record tables and the join table,
// so a crash can not leave a half-written logical operation.
type MatchRepository interface {
	// SetSingleMatch points both records at each other as a 1:1 match.
	SetSingleMatch(bankID, ledgerID int64) error

	// ClearSingleMatch resets both sides of a 1:1 match.
	ClearSingleMatch(bankID, ledgerID int64) error

	// CreateMatchGroup inserts the group, one member row per id, and marks
	// every named record matched with a group reference.
	CreateMatchGroup(g *MatchGroup, bankIDs, ledgerIDs []int64) error

	// DeleteMatchGroup unmatches every member and removes the group and its
	// member rows. Reports false when the group does not exist.
	DeleteMatchGroup(groupID string) (bool, error)

	// GetMatchGroup returns the group, or nil when it does not exist.
	GetMatchGroup(groupID string) (*MatchGroup, error)

	GetGroupMembers(groupID string) ([]GroupMember, error)
}

// RuleRepository handles learned reconciliation rules.
type RuleRepository interface {
	// ListRules returns a user's rules ordered by match_count then priority,
	// both descending.
	ListRules(userID int64, activeOnly bool) ([]*ReconRule, error)

	// GetRuleBySignature returns the rule, or nil when none exists.
	GetRuleBySignature(userID int64, kind, value string) (*ReconRule, error)

	InsertRule(r *ReconRule) error

	UpdateRule(r *ReconRule) error

	IncrementRuleMatchCount(id int64, delta int) error

	SetRuleActive(id int64, active bool) error

	DeleteRule(id int64) error
}
