// Package scorer computes match confidence between one bank record and one
// ledger record from amount equality, date proximity and narration/party
// name overlap.
//
// The scorer is pure: it never touches storage and never raises domain
// errors. Pairs it cannot score (unequal amounts, missing dates) simply
// fail candidacy.
package scorer

import (
	"math"

	"github.com/agnivade/levenshtein"

	"github.com/fintrack/recon-backend/internal/infrastructure/storage"
)

// MatchType tags how a candidate pair was scored.
type MatchType string

const (
	MatchExact MatchType = "exact"
	MatchFuzzy MatchType = "fuzzy"
)

// Confidence tiers.
const (
	ConfidenceExact    = 100
	ConfidenceKeyMatch = 95 // narration key equality
	confidenceFuzzyMin = 60
	confidenceFuzzySpan = 35
)

// Config holds scorer tuning
type Config struct {
	// ExactDateToleranceDays widens the exact tier beyond same-day.
	ExactDateToleranceDays int
	// FuzzyWindowDays bounds the date gap for fuzzy candidates.
	FuzzyWindowDays int
	// MinNameSimilarity is the floor below which a pair is not a candidate.
	MinNameSimilarity float64
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		ExactDateToleranceDays: 0,
		FuzzyWindowDays:        14,
		MinNameSimilarity:      0.5,
	}
}

// Result is a scored pair.
type Result struct {
	Confidence int // 0..100
	Type       MatchType
}

// Score computes the confidence for one bank×ledger pair. ok is false when
// the pair is not a candidate at all.
//
// The amount gate is absolute: unequal amounts never score, however similar
// the narrations look. Amounts are compared by magnitude since the two
// populations sign them by their own direction conventions.
func Score(b *storage.BankRecord, l *storage.LedgerRecord, cfg Config) (Result, bool) {
	if abs64(b.Amount) != abs64(l.Amount) {
		return Result{}, false
	}
	if b.Date.IsZero() || l.Date.IsZero() {
		return Result{}, false
	}

	dateDiff := math.Abs(b.Date.Sub(l.Date).Hours() / 24)

	if dateDiff <= float64(cfg.ExactDateToleranceDays) {
		return Result{Confidence: ConfidenceExact, Type: MatchExact}, true
	}

	if dateDiff > float64(cfg.FuzzyWindowDays) {
		return Result{}, false
	}

	party := NormalizeName(l.Party)
	if party == "" {
		return Result{}, false
	}

	// Canonical key equality: both sides reduce to the same counterparty.
	if key, ok := ExtractKey(b.Narration); ok && key.Name == party {
		return Result{Confidence: ConfidenceKeyMatch, Type: MatchFuzzy}, true
	}

	sim := NameSimilarity(b.Narration, l.Party)
	if sim < cfg.MinNameSimilarity {
		return Result{}, false
	}

	conf := confidenceFuzzyMin + int(math.Round(confidenceFuzzySpan*sim))
	return Result{Confidence: conf, Type: MatchFuzzy}, true
}

// NameSimilarity measures how strongly a bank narration identifies a ledger
// party, in [0,1]. It takes the best of token-set (Jaccard) overlap, with
// whole-token containment counted as 1.0, and normalized edit distance.
func NameSimilarity(narration, party string) float64 {
	// Prefer the extracted counterparty name when a rail pattern applies;
	// the full narration otherwise.
	name := narration
	if key, ok := ExtractKey(narration); ok {
		name = key.Name
	}

	a := Tokens(name)
	b := Tokens(party)
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	if containsAll(a, b) || containsAll(b, a) {
		return 1.0
	}

	jaccard := tokenJaccard(a, b)

	na, nb := NormalizeName(name), NormalizeName(party)
	dist := levenshtein.ComputeDistance(na, nb)
	maxLen := len(na)
	if len(nb) > maxLen {
		maxLen = len(nb)
	}
	lev := 1 - float64(dist)/float64(maxLen)

	if lev > jaccard {
		return lev
	}
	return jaccard
}

// containsAll reports whether every token of sub occurs in super.
func containsAll(sub, super []string) bool {
	set := make(map[string]bool, len(super))
	for _, t := range super {
		set[t] = true
	}
	for _, t := range sub {
		if !set[t] {
			return false
		}
	}
	return true
}

func tokenJaccard(a, b []string) float64 {
	set := make(map[string]bool, len(a))
	for _, t := range a {
		set[t] = true
	}
	inter := 0
	union := len(set)
	seen := make(map[string]bool, len(b))
	for _, t := range b {
		if seen[t] {
			continue
		}
		seen[t] = true
		if set[t] {
			inter++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
