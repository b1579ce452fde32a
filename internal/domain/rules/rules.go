// Package rules holds the pure logic behind learned reconciliation rules:
// signature lookup construction, non-destructive enrichment merging, and
// the built-in heuristic fallback classifier.
package rules

import (
	"github.com/fintrack/recon-backend/internal/domain/scorer"
	"github.com/fintrack/recon-backend/internal/infrastructure/storage"
)

// Enrichment is the payload a rule applies to a record.
type Enrichment struct {
	Vendor       string `json:"vendor,omitempty"`
	Category     string `json:"category,omitempty"`
	TaxTreatment string `json:"tax_treatment,omitempty"`
}

// Empty reports whether the enrichment carries nothing.
func (e Enrichment) Empty() bool {
	return e.Vendor == "" && e.Category == "" && e.TaxTreatment == ""
}

// Record is the classification view of a transaction a collaborator wants
// enriched. Fields already set are never overwritten.
type Record struct {
	Narration    string
	Vendor       string
	Category     string
	TaxTreatment string
}

// SignatureOf derives the narration signature a rule is keyed by, using the
// same rail extraction as the scorer's exact-key check.
func SignatureOf(narration string) (string, bool) {
	key, ok := scorer.ExtractKey(narration)
	if !ok {
		return "", false
	}
	return key.String(), true
}

// BuildLookup produces the signature→rule map from rules already ordered by
// match_count then priority (descending). First entry per signature wins.
func BuildLookup(rs []*storage.ReconRule) map[string]*storage.ReconRule {
	lookup := make(map[string]*storage.ReconRule, len(rs))
	for _, r := range rs {
		if !r.Active || r.PatternKind != storage.PatternNarrationKey {
			continue
		}
		if _, exists := lookup[r.PatternValue]; !exists {
			lookup[r.PatternValue] = r
		}
	}
	return lookup
}

// MergeRule folds a correction into an existing rule: non-empty new values
// win, empty ones leave the rule alone. Reports whether anything changed.
func MergeRule(rule *storage.ReconRule, e Enrichment) bool {
	changed := false
	if e.Vendor != "" && e.Vendor != rule.Vendor {
		rule.Vendor = e.Vendor
		changed = true
	}
	if e.Category != "" && e.Category != rule.Category {
		rule.Category = e.Category
		changed = true
	}
	if e.TaxTreatment != "" && e.TaxTreatment != rule.TaxTreatment {
		rule.TaxTreatment = e.TaxTreatment
		changed = true
	}
	return changed
}

// ApplyTo enriches a record non-destructively: only fields currently empty
// on the record are filled. Reports whether anything was written.
func ApplyTo(rec *Record, e Enrichment) bool {
	applied := false
	if rec.Vendor == "" && e.Vendor != "" {
		rec.Vendor = e.Vendor
		applied = true
	}
	if rec.Category == "" && e.Category != "" {
		rec.Category = e.Category
		applied = true
	}
	if rec.TaxTreatment == "" && e.TaxTreatment != "" {
		rec.TaxTreatment = e.TaxTreatment
		applied = true
	}
	return applied
}

// EnrichmentOf reads a rule's payload.
func EnrichmentOf(r *storage.ReconRule) Enrichment {
	return Enrichment{
		Vendor:       r.Vendor,
		Category:     r.Category,
		TaxTreatment: r.TaxTreatment,
	}
}
