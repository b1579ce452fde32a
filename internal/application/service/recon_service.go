// Package service orchestrates the reconciliation engine: candidate
// generation, match state mutation, rule learning and the consistency
// repair pass. All state mutations serialize per user.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fintrack/recon-backend/internal/domain/matcher"
	"github.com/fintrack/recon-backend/internal/infrastructure/storage"
)

// advancePrefix marks synthetic advance-entry ids at the API edge, e.g.
// "adv:42" for the advance view of sale-order ledger record 42. Synthetic
// entries are never matchable themselves; every mutation resolves them to
// the parent id.
const advancePrefix = "adv:"

// GroupDetail is the read-only projection of a match group's members.
// Advances carries the synthetic advance entries of partially paid
// sale-order members, alongside the real rows they project from.
type GroupDetail struct {
	Group         storage.MatchGroup      `json:"group"`
	BankRecords   []*storage.BankRecord   `json:"bank_records"`
	LedgerRecords []*storage.LedgerRecord `json:"ledger_records"`
	Advances      []*storage.AdvanceEntry `json:"advances,omitempty"`
}

// ReconService implements the engine's operation contract. It is the only
// component (besides the repair pass) allowed to write matched/unmatched
// state.
type ReconService struct {
	repo   storage.Repository
	cfg    matcher.Config
	logger *slog.Logger

	// Per-user mutexes; two concurrent reconciliation requests for the
	// same user must not race on the same record pair.
	userLocks sync.Map
}

// NewReconService creates a new reconciliation service.
func NewReconService(repo storage.Repository, cfg matcher.Config, logger *slog.Logger) *ReconService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconService{
		repo:   repo,
		cfg:    cfg,
		logger: logger,
	}
}

// lockUser serializes mutations per user. Returns the unlock func.
func (s *ReconService) lockUser(userID int64) func() {
	v, _ := s.userLocks.LoadOrStore(userID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// GenerateCandidates fetches all currently-unmatched records in range on
// both sides and returns ranked match candidates. An empty ledgerTypes
// slice accepts every ledger type. Report-only: no state is written until
// ApplyCandidates.
func (s *ReconService) GenerateCandidates(ctx context.Context, userID int64, from, to time.Time, accountID int64, ledgerTypes []storage.LedgerType) ([]matcher.Candidate, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if from.IsZero() || to.IsZero() || to.Before(from) {
		return nil, fmt.Errorf("%w: invalid date range", ErrValidation)
	}
	for _, lt := range ledgerTypes {
		if !lt.Valid() {
			return nil, fmt.Errorf("%w: unknown ledger type %q", ErrValidation, lt)
		}
	}

	banks, err := s.repo.ListBankRecords(storage.BankFilters{
		UserID:          userID,
		From:            from,
		To:              to,
		AccountID:       accountID,
		State:           storage.StateUnmatched,
		ExcludePurposes: []storage.Purpose{storage.PurposePersonal, storage.PurposeIgnored},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bank records: %w", err)
	}

	ledgers, err := s.repo.ListLedgerRecords(storage.LedgerFilters{
		UserID: userID,
		From:   from,
		To:     to,
		Types:  ledgerTypes,
		State:  storage.StateUnmatched,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ledger records: %w", err)
	}

	candidates := matcher.Generate(banks, ledgers, s.cfg)
	s.logger.Debug("generated candidates",
		"user", userID, "banks", len(banks), "ledgers", len(ledgers), "candidates", len(candidates))
	return candidates, nil
}

// ApplyCandidates resolves a candidate list into a non-conflicting
// assignment and applies it. Candidates whose records were matched in the
// meantime are skipped, not errors. Returns the number applied.
func (s *ReconService) ApplyCandidates(ctx context.Context, userID int64, candidates []matcher.Candidate) (int, error) {
	if userID <= 0 {
		return 0, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	defer s.lockUser(userID)()

	matcher.Rank(candidates)
	assigned := matcher.Resolve(candidates)

	applied := 0
	for _, c := range assigned {
		bank, err := s.repo.GetBankRecord(c.BankID)
		if err != nil {
			return applied, err
		}
		ledger, err := s.repo.GetLedgerRecord(c.LedgerID)
		if err != nil {
			return applied, err
		}
		// Re-validate: the pair must still exist, belong to the user, and
		// be unmatched on both sides.
		if bank == nil || ledger == nil ||
			bank.UserID != userID || ledger.UserID != userID ||
			bank.MatchState == storage.StateMatched ||
			ledger.MatchState == storage.StateMatched {
			continue
		}

		if err := s.applySingleMatch(bank, ledger); err != nil {
			return applied, err
		}
		applied++
	}

	s.logger.Info("applied candidates", "user", userID, "applied", applied, "offered", len(candidates))
	return applied, nil
}

// MatchOne records a 1:1 match between a bank and a ledger record.
// Idempotent no-op when they are already matched to each other; conflict
// when either is matched elsewhere.
func (s *ReconService) MatchOne(ctx context.Context, userID, bankID, ledgerID int64) error {
	if userID <= 0 || bankID <= 0 || ledgerID <= 0 {
		return fmt.Errorf("%w: ids must be positive", ErrValidation)
	}
	defer s.lockUser(userID)()

	bank, err := s.repo.GetBankRecord(bankID)
	if err != nil {
		return err
	}
	if bank == nil || bank.UserID != userID {
		return fmt.Errorf("%w: bank record %d", ErrNotFound, bankID)
	}
	ledger, err := s.repo.GetLedgerRecord(ledgerID)
	if err != nil {
		return err
	}
	if ledger == nil || ledger.UserID != userID {
		return fmt.Errorf("%w: ledger record %d", ErrNotFound, ledgerID)
	}

	// Already matched to each other: nothing to do.
	if bank.MatchRefKind == storage.RefSingle && ledger.MatchRefKind == storage.RefSingle &&
		bank.MatchedLedgerID != nil && *bank.MatchedLedgerID == ledgerID &&
		ledger.MatchedBankID != nil && *ledger.MatchedBankID == bankID {
		return nil
	}
	if bank.MatchState == storage.StateMatched {
		return fmt.Errorf("%w: bank record %d", ErrAlreadyMatched, bankID)
	}
	if ledger.MatchState == storage.StateMatched {
		return fmt.Errorf("%w: ledger record %d", ErrAlreadyMatched, ledgerID)
	}

	return s.applySingleMatch(bank, ledger)
}

// applySingleMatch writes the bidirectional pointers and tags the bank side
// as business when it is still untagged (a reconciled statement line is by
// definition part of the books).
func (s *ReconService) applySingleMatch(bank *storage.BankRecord, ledger *storage.LedgerRecord) error {
	if err := s.repo.SetSingleMatch(bank.ID, ledger.ID); err != nil {
		return fmt.Errorf("failed to set match: %w", err)
	}
	if bank.Purpose == storage.PurposeUntagged {
		if err := s.repo.SetBankPurpose(bank.ID, storage.PurposeBusiness); err != nil {
			return err
		}
	}
	return nil
}

// MatchMany creates a many-to-many match group over the named records.
// Requires at least one id per side; every record must exist, belong to the
// user, and be unmatched. Returns the new group id.
//
// Amount sums are not required to balance; an unbalanced group is logged
// for visibility but allowed (fee and rounding splits are legitimate).
func (s *ReconService) MatchMany(ctx context.Context, userID int64, bankIDs, ledgerIDs []int64) (string, error) {
	if userID <= 0 {
		return "", fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if len(bankIDs) == 0 || len(ledgerIDs) == 0 {
		return "", fmt.Errorf("%w: at least one bank and one ledger record required", ErrValidation)
	}
	defer s.lockUser(userID)()

	var bankSum, ledgerSum int64
	var untagged []int64

	for _, id := range bankIDs {
		r, err := s.repo.GetBankRecord(id)
		if err != nil {
			return "", err
		}
		if r == nil || r.UserID != userID {
			return "", fmt.Errorf("%w: bank record %d", ErrNotFound, id)
		}
		if r.MatchState == storage.StateMatched {
			return "", fmt.Errorf("%w: bank record %d", ErrAlreadyMatched, id)
		}
		bankSum += abs64(r.Amount)
		if r.Purpose == storage.PurposeUntagged {
			untagged = append(untagged, id)
		}
	}
	for _, id := range ledgerIDs {
		r, err := s.repo.GetLedgerRecord(id)
		if err != nil {
			return "", err
		}
		if r == nil || r.UserID != userID {
			return "", fmt.Errorf("%w: ledger record %d", ErrNotFound, id)
		}
		if r.MatchState == storage.StateMatched {
			return "", fmt.Errorf("%w: ledger record %d", ErrAlreadyMatched, id)
		}
		ledgerSum += abs64(r.Amount)
	}

	if bankSum != ledgerSum {
		s.logger.Warn("unbalanced match group",
			"user", userID, "bank_sum", bankSum, "ledger_sum", ledgerSum)
	}

	group := &storage.MatchGroup{
		ID:     uuid.NewString(),
		UserID: userID,
	}
	if err := s.repo.CreateMatchGroup(group, bankIDs, ledgerIDs); err != nil {
		return "", fmt.Errorf("failed to create match group: %w", err)
	}
	for _, id := range untagged {
		if err := s.repo.SetBankPurpose(id, storage.PurposeBusiness); err != nil {
			return "", err
		}
	}

	s.logger.Info("created match group",
		"user", userID, "group", group.ID, "banks", len(bankIDs), "ledgers", len(ledgerIDs))
	return group.ID, nil
}

// UnmatchBank clears a bank record's match. Soft false when the record was
// never matched. The counterpart ledger record is cleared only when it
// still points back; group references dispatch to UnmatchGroup.
func (s *ReconService) UnmatchBank(ctx context.Context, userID, bankID int64) (bool, error) {
	if userID <= 0 || bankID <= 0 {
		return false, fmt.Errorf("%w: ids must be positive", ErrValidation)
	}
	defer s.lockUser(userID)()

	bank, err := s.repo.GetBankRecord(bankID)
	if err != nil {
		return false, err
	}
	if bank == nil || bank.UserID != userID {
		return false, fmt.Errorf("%w: bank record %d", ErrNotFound, bankID)
	}
	if bank.MatchState != storage.StateMatched {
		return false, nil
	}

	switch bank.MatchRefKind {
	case storage.RefGroup:
		if bank.MatchGroupID != nil {
			if found, err := s.unmatchGroupLocked(*bank.MatchGroupID); err != nil {
				return false, err
			} else if found {
				return true, nil
			}
		}
		// Dangling group reference; clear this side.
		return true, s.repo.ClearBankMatch(bankID)

	case storage.RefSingle:
		if bank.MatchedLedgerID != nil {
			ledger, err := s.repo.GetLedgerRecord(*bank.MatchedLedgerID)
			if err != nil {
				return false, err
			}
			if ledger != nil && ledger.MatchedBankID != nil && *ledger.MatchedBankID == bankID {
				return true, s.repo.ClearSingleMatch(bankID, ledger.ID)
			}
		}
		return true, s.repo.ClearBankMatch(bankID)

	default:
		// Matched state with no ref kind is drift; clear it.
		return true, s.repo.ClearBankMatch(bankID)
	}
}

// UnmatchLedger clears a ledger record's match. Accepts synthetic advance
// ids ("adv:<parent>") and resolves them to the real record first. Whether
// the stored reference designates a group is decided by actual group
// existence, not just the stored kind, to tolerate drift.
func (s *ReconService) UnmatchLedger(ctx context.Context, userID int64, ledgerRef string) (bool, error) {
	ledgerID, err := ResolveLedgerRef(ledgerRef)
	if err != nil {
		return false, err
	}
	if userID <= 0 {
		return false, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	defer s.lockUser(userID)()

	ledger, err := s.repo.GetLedgerRecord(ledgerID)
	if err != nil {
		return false, err
	}
	if ledger == nil || ledger.UserID != userID {
		return false, fmt.Errorf("%w: ledger record %d", ErrNotFound, ledgerID)
	}
	if ledger.MatchState != storage.StateMatched {
		return false, nil
	}

	if ledger.MatchGroupID != nil {
		group, err := s.repo.GetMatchGroup(*ledger.MatchGroupID)
		if err != nil {
			return false, err
		}
		if group != nil {
			if found, err := s.unmatchGroupLocked(group.ID); err != nil {
				return false, err
			} else if found {
				return true, nil
			}
		}
		return true, s.repo.ClearLedgerMatch(ledgerID)
	}

	if ledger.MatchedBankID != nil {
		bank, err := s.repo.GetBankRecord(*ledger.MatchedBankID)
		if err != nil {
			return false, err
		}
		if bank != nil && bank.MatchedLedgerID != nil && *bank.MatchedLedgerID == ledgerID {
			return true, s.repo.ClearSingleMatch(bank.ID, ledgerID)
		}
	}
	return true, s.repo.ClearLedgerMatch(ledgerID)
}

// UnmatchGroup clears every member of a group and deletes the group and
// its member rows. Soft false when the group does not exist.
func (s *ReconService) UnmatchGroup(ctx context.Context, userID int64, groupID string) (bool, error) {
	if userID <= 0 || groupID == "" {
		return false, fmt.Errorf("%w: user and group ids are required", ErrValidation)
	}
	defer s.lockUser(userID)()
	return s.unmatchGroupLocked(groupID)
}

func (s *ReconService) unmatchGroupLocked(groupID string) (bool, error) {
	found, err := s.repo.DeleteMatchGroup(groupID)
	if err != nil {
		return false, fmt.Errorf("failed to delete match group: %w", err)
	}
	if found {
		s.logger.Info("dissolved match group", "group", groupID)
	}
	return found, nil
}

// GetGroup returns a group's full member records for display. Not-found
// when the group does not exist or has no members.
func (s *ReconService) GetGroup(ctx context.Context, groupID string) (*GroupDetail, error) {
	if groupID == "" {
		return nil, fmt.Errorf("%w: group id is required", ErrValidation)
	}
	group, err := s.repo.GetMatchGroup(groupID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, fmt.Errorf("%w: group %s", ErrNotFound, groupID)
	}
	members, err := s.repo.GetGroupMembers(groupID)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("%w: group %s has no members", ErrNotFound, groupID)
	}

	detail := &GroupDetail{Group: *group}
	for _, m := range members {
		switch {
		case m.BankRecordID != nil:
			r, err := s.repo.GetBankRecord(*m.BankRecordID)
			if err != nil {
				return nil, err
			}
			if r != nil {
				detail.BankRecords = append(detail.BankRecords, r)
			}
		case m.LedgerRecordID != nil:
			r, err := s.repo.GetLedgerRecord(*m.LedgerRecordID)
			if err != nil {
				return nil, err
			}
			if r != nil {
				detail.LedgerRecords = append(detail.LedgerRecords, r)
				if adv := r.AdvanceView(); adv != nil {
					detail.Advances = append(detail.Advances, adv)
				}
			}
		}
	}
	return detail, nil
}

// ResolveLedgerRef parses a ledger reference from the API edge: either a
// plain record id or a synthetic advance id ("adv:<parent>"), which
// resolves to the real parent record.
func ResolveLedgerRef(ref string) (int64, error) {
	ref = strings.TrimSpace(ref)
	if cut, ok := strings.CutPrefix(ref, advancePrefix); ok {
		ref = cut
	}
	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid ledger reference %q", ErrValidation, ref)
	}
	return id, nil
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
