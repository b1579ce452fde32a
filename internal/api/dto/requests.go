package dto

// CandidatesRequest asks for match candidates over a date range. Dates use
// the 2006-01-02 form. LedgerTypes restricts the ledger side to the named
// types; empty accepts all. When Apply is set the resolved assignment is
// written instead of returned.
type CandidatesRequest struct {
	From        string   `json:"from" binding:"required"`
	To          string   `json:"to" binding:"required"`
	AccountID   int64    `json:"account_id"`
	LedgerTypes []string `json:"ledger_types"`
	Apply       bool     `json:"apply"`
}

// MatchRequest records one 1:1 match.
type MatchRequest struct {
	BankID   int64 `json:"bank_id" binding:"required"`
	LedgerID int64 `json:"ledger_id" binding:"required"`
}

// MatchManyRequest creates a many-to-many match group.
type MatchManyRequest struct {
	BankIDs   []int64 `json:"bank_ids" binding:"required"`
	LedgerIDs []int64 `json:"ledger_ids" binding:"required"`
}

// UnmatchRequest clears a bank record's match.
type UnmatchRequest struct {
	BankID int64 `json:"bank_id" binding:"required"`
}

// UnmatchLedgerRequest clears a ledger record's match. LedgerID is a string
// because synthetic advance ids ("adv:<parent>") are accepted here.
type UnmatchLedgerRequest struct {
	LedgerID string `json:"ledger_id" binding:"required"`
}

// LearnRuleRequest records a classification correction to learn from.
type LearnRuleRequest struct {
	Narration    string `json:"narration" binding:"required"`
	Vendor       string `json:"vendor"`
	Category     string `json:"category"`
	TaxTreatment string `json:"tax_treatment"`
}
