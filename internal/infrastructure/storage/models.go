package storage

import "time"

// MatchState tracks whether a record has been reconciled.
type MatchState string

const (
	StateUnmatched MatchState = "unmatched"
	StateMatched   MatchState = "matched"
)

// MatchRefKind says what a matched record's reference points at.
type MatchRefKind string

const (
	RefNone   MatchRefKind = "none"
	RefSingle MatchRefKind = "single"
	RefGroup  MatchRefKind = "group"
)

// Purpose tags a bank record; personal and ignored records are excluded
// from candidate generation.
type Purpose string

const (
	PurposeUntagged Purpose = ""
	PurposePersonal Purpose = "personal"
	PurposeBusiness Purpose = "business"
	PurposeIgnored  Purpose = "ignored"
)

// LedgerType is the ledger-native transaction type.
type LedgerType string

const (
	LedgerSale       LedgerType = "sale"
	LedgerPurchase   LedgerType = "purchase"
	LedgerPaymentIn  LedgerType = "payment_in"
	LedgerPaymentOut LedgerType = "payment_out"
	LedgerSaleOrder  LedgerType = "sale_order"
)

// Valid reports whether t is one of the known ledger types.
func (t LedgerType) Valid() bool {
	switch t {
	case LedgerSale, LedgerPurchase, LedgerPaymentIn, LedgerPaymentOut, LedgerSaleOrder:
		return true
	}
	return false
}

// BankRecord is one bank-statement transaction line.
//
// Amounts are int64 minor currency units (paise), signed by direction:
// credits positive, debits negative. Integer money keeps the scorer's
// exact-equality amount gate exact.
type BankRecord struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	AccountID int64     `json:"account_id"`
	Date      time.Time `json:"date"`
	Amount    int64     `json:"amount"`
	Narration string    `json:"narration"`
	Balance   *int64    `json:"balance,omitempty"`
	Purpose   Purpose   `json:"purpose,omitempty"`

	MatchState      MatchState   `json:"match_state"`
	MatchRefKind    MatchRefKind `json:"match_ref_kind"`
	MatchedLedgerID *int64       `json:"matched_ledger_id,omitempty"`
	MatchGroupID    *string      `json:"match_group_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// LedgerRecord is one transaction line from the external accounting system.
type LedgerRecord struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	Date      time.Time  `json:"date"`
	Amount    int64      `json:"amount"`
	Party     string     `json:"party"`
	Type      LedgerType `json:"type"`
	InvoiceNo string     `json:"invoice_no,omitempty"`

	// BalanceDue is the outstanding amount on a sale_order. A value
	// strictly between 0 and Amount means the order is partially paid and
	// projects a synthetic advance entry.
	BalanceDue *int64 `json:"balance_due,omitempty"`

	MatchState    MatchState   `json:"match_state"`
	MatchRefKind  MatchRefKind `json:"match_ref_kind"`
	MatchedBankID *int64       `json:"matched_bank_id,omitempty"`
	MatchGroupID  *string      `json:"match_group_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// AdvanceEntry is the synthetic advance-received projection of a partially
// paid sale order. It is a read-only view: it is never persisted, and every
// mutation must resolve ParentID to the real ledger row first.
type AdvanceEntry struct {
	ParentID   int64      `json:"parent_id"`
	UserID     int64      `json:"user_id"`
	Date       time.Time  `json:"date"`
	Amount     int64      `json:"amount"` // order amount minus balance due
	Party      string     `json:"party"`
	MatchState MatchState `json:"match_state"` // mirrors the parent for display
}

// MatchGroup is a many-to-many reconciliation unit.
type MatchGroup struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// GroupMember is one row of the group join table. Exactly one of
// BankRecordID / LedgerRecordID is set.
type GroupMember struct {
	ID             int64   `json:"id"`
	GroupID        string  `json:"group_id"`
	BankRecordID   *int64  `json:"bank_record_id,omitempty"`
	LedgerRecordID *int64  `json:"ledger_record_id,omitempty"`
}

// Rule pattern kinds.
const (
	PatternNarrationKey = "narration_key"
)

// Rule priorities: user corrections outrank auto-learned rules.
const (
	PriorityUserRule = 100
	PriorityAutoRule = 50
)

// ReconRule is a learned pattern→enrichment rule keyed by a normalized
// narration signature.
type ReconRule struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	PatternKind  string    `json:"pattern_kind"`
	PatternValue string    `json:"pattern_value"`
	Vendor       string    `json:"vendor,omitempty"`
	Category     string    `json:"category,omitempty"`
	TaxTreatment string    `json:"tax_treatment,omitempty"`
	Priority     int       `json:"priority"`
	MatchCount   int       `json:"match_count"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AdvanceView projects the synthetic advance entry of a partially paid
// sale order, or nil when the record does not qualify.
func (l *LedgerRecord) AdvanceView() *AdvanceEntry {
	if l.Type != LedgerSaleOrder || l.BalanceDue == nil {
		return nil
	}
	due := *l.BalanceDue
	if due <= 0 || due >= l.Amount {
		return nil
	}
	return &AdvanceEntry{
		ParentID:   l.ID,
		UserID:     l.UserID,
		Date:       l.Date,
		Amount:     l.Amount - due,
		Party:      l.Party,
		MatchState: l.MatchState,
	}
}
