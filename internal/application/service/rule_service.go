package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fintrack/recon-backend/internal/domain/rules"
	"github.com/fintrack/recon-backend/internal/infrastructure/storage"
)

// RuleService persists user corrections as reusable pattern→enrichment
// rules and applies them during bulk classification.
type RuleService struct {
	repo   storage.Repository
	logger *slog.Logger
}

// NewRuleService creates a new rule service.
func NewRuleService(repo storage.Repository, logger *slog.Logger) *RuleService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RuleService{repo: repo, logger: logger}
}

// LearnFromCorrection records a user's classification correction. An
// existing rule for the narration's signature is merged (non-empty new
// values win) and its usage counter bumped; otherwise a new user-priority
// rule is created.
func (s *RuleService) LearnFromCorrection(ctx context.Context, userID int64, narration string, e rules.Enrichment) (*storage.ReconRule, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if e.Empty() {
		return nil, fmt.Errorf("%w: correction carries no enrichment", ErrValidation)
	}
	sig, ok := rules.SignatureOf(narration)
	if !ok {
		return nil, fmt.Errorf("%w: no signature derivable from narration", ErrValidation)
	}

	existing, err := s.repo.GetRuleBySignature(userID, storage.PatternNarrationKey, sig)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		rules.MergeRule(existing, e)
		existing.MatchCount++
		if !existing.Active {
			existing.Active = true
		}
		if err := s.repo.UpdateRule(existing); err != nil {
			return nil, fmt.Errorf("failed to update rule: %w", err)
		}
		s.logger.Debug("merged correction into rule", "user", userID, "rule", existing.ID, "signature", sig)
		return existing, nil
	}

	rule := &storage.ReconRule{
		UserID:       userID,
		PatternKind:  storage.PatternNarrationKey,
		PatternValue: sig,
		Vendor:       e.Vendor,
		Category:     e.Category,
		TaxTreatment: e.TaxTreatment,
		Priority:     storage.PriorityUserRule,
		Active:       true,
	}
	if err := s.repo.InsertRule(rule); err != nil {
		return nil, fmt.Errorf("failed to insert rule: %w", err)
	}
	s.logger.Info("learned rule", "user", userID, "rule", rule.ID, "signature", sig)
	return rule, nil
}

// ApplyRules enriches the given records in place: learned rules first (by
// the signature lookup), the built-in heuristic classifier as fallback.
// Only empty fields are written. Returns the number of records enriched by
// a learned rule; each such rule's usage counter is bumped once per record.
func (s *RuleService) ApplyRules(ctx context.Context, userID int64, records []*rules.Record) (int, error) {
	if userID <= 0 {
		return 0, fmt.Errorf("%w: user id is required", ErrValidation)
	}

	ruleList, err := s.repo.ListRules(userID, true)
	if err != nil {
		return 0, fmt.Errorf("failed to load rules: %w", err)
	}
	lookup := rules.BuildLookup(ruleList)

	enriched := 0
	for _, rec := range records {
		sig, ok := rules.SignatureOf(rec.Narration)
		if ok {
			if rule, exists := lookup[sig]; exists {
				if rules.ApplyTo(rec, rules.EnrichmentOf(rule)) {
					enriched++
					if err := s.repo.IncrementRuleMatchCount(rule.ID, 1); err != nil {
						return enriched, err
					}
					continue
				}
			}
		}
		// Heuristic fallback for records no rule covers.
		rules.ApplyTo(rec, rules.Classify(rec.Narration))
	}

	s.logger.Debug("applied rules", "user", userID, "records", len(records), "enriched", enriched)
	return enriched, nil
}

// ListRules returns a user's rules in lookup order.
func (s *RuleService) ListRules(ctx context.Context, userID int64, activeOnly bool) ([]*storage.ReconRule, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	return s.repo.ListRules(userID, activeOnly)
}

// DeactivateRule soft-disables a rule. Idempotent; the rule disappears
// from the lookup map on the next classification run.
func (s *RuleService) DeactivateRule(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: rule id must be positive", ErrValidation)
	}
	return s.repo.SetRuleActive(id, false)
}

// DeleteRule removes a rule. Idempotent.
func (s *RuleService) DeleteRule(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: rule id must be positive", ErrValidation)
	}
	return s.repo.DeleteRule(id)
}
