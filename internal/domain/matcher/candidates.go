// Package matcher produces ranked match candidates between unmatched bank
// and ledger records and resolves them into a non-conflicting one-to-one
// assignment.
//
// Everything here is pure: callers fetch the two populations, the matcher
// scores and assigns, and explicit apply operations elsewhere write state.
package matcher

import (
	"math"
	"sort"

	"github.com/fintrack/recon-backend/internal/domain/scorer"
	"github.com/fintrack/recon-backend/internal/infrastructure/storage"
)

// Generate scores every bank×ledger pair and keeps those at or above the
// confidence cutoff. Already-matched records and bank records tagged
// personal or ignored are skipped.
func Generate(banks []*storage.BankRecord, ledgers []*storage.LedgerRecord, cfg Config) []Candidate {
	var candidates []Candidate

	for _, b := range banks {
		if b.MatchState == storage.StateMatched {
			continue
		}
		if b.Purpose == storage.PurposePersonal || b.Purpose == storage.PurposeIgnored {
			continue
		}
		for _, l := range ledgers {
			if l.MatchState == storage.StateMatched {
				continue
			}
			result, ok := scorer.Score(b, l, cfg.Scorer)
			if !ok || result.Confidence < cfg.MinConfidence {
				continue
			}
			candidates = append(candidates, Candidate{
				BankID:       b.ID,
				LedgerID:     l.ID,
				Confidence:   result.Confidence,
				Type:         result.Type,
				BankAmount:   b.Amount,
				LedgerAmount: l.Amount,
				BankDate:     b.Date,
				LedgerDate:   l.Date,
				DateGapDays:  math.Abs(b.Date.Sub(l.Date).Hours() / 24),
			})
		}
	}

	Rank(candidates)
	return candidates
}

// Rank sorts candidates for deterministic greedy resolution: confidence
// descending, then smaller date gap, then bank id, then ledger id.
func Rank(candidates []Candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.DateGapDays != b.DateGapDays {
			return a.DateGapDays < b.DateGapDays
		}
		if a.BankID != b.BankID {
			return a.BankID < b.BankID
		}
		return a.LedgerID < b.LedgerID
	})
}
