package matcher

import (
	"time"

	"github.com/fintrack/recon-backend/internal/domain/scorer"
)

// Config holds matcher configuration
type Config struct {
	Scorer scorer.Config
	// MinConfidence is the candidate cutoff; only exact and strong fuzzy
	// pairs survive the default.
	MinConfidence int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Scorer:        scorer.DefaultConfig(),
		MinConfidence: 60,
	}
}

// Candidate is one scored bank×ledger pair. It carries both original
// amounts and dates for audit display; generation never mutates state.
type Candidate struct {
	BankID       int64            `json:"bank_id"`
	LedgerID     int64            `json:"ledger_id"`
	Confidence   int              `json:"confidence"`
	Type         scorer.MatchType `json:"type"`
	BankAmount   int64            `json:"bank_amount"`
	LedgerAmount int64            `json:"ledger_amount"`
	BankDate     time.Time        `json:"bank_date"`
	LedgerDate   time.Time        `json:"ledger_date"`
	DateGapDays  float64          `json:"date_gap_days"`
}
