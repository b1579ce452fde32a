package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fintrack/recon-backend/internal/domain/scorer"
	"github.com/fintrack/recon-backend/internal/infrastructure/storage"
)

// RepairResult reports what one repair sweep fixed. A second run over the
// same state must report all zeroes.
type RepairResult struct {
	Repaired           int `json:"repaired_count"`
	OrphanedBankFixed  int `json:"orphaned_bank_fixed"`
	OrphanedLedgerFixed int `json:"orphaned_ledger_fixed"`
	DuplicatesDeleted  int `json:"duplicates_deleted"`
}

// Orphan is one diagnostic finding of FindOrphans.
type Orphan struct {
	Side     string               `json:"side"` // "bank" or "ledger"
	RecordID int64                `json:"record_id"`
	RefKind  storage.MatchRefKind `json:"ref_kind"`
	Ref      string               `json:"ref"`
	Reason   string               `json:"reason"`
}

// RepairService is the full-scan idempotent job that detects and fixes
// dangling single-match pointers, dangling group references, and duplicate
// unreconciled ledger records.
type RepairService struct {
	repo   storage.Repository
	logger *slog.Logger
}

// NewRepairService creates a new repair service.
func NewRepairService(repo storage.Repository, logger *slog.Logger) *RepairService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RepairService{repo: repo, logger: logger}
}

// Repair sweeps all of a user's records once and fixes every consistency
// violation it finds. Safe to run repeatedly: once state is consistent,
// further runs change nothing.
func (s *RepairService) Repair(ctx context.Context, userID int64) (RepairResult, error) {
	var res RepairResult
	if userID <= 0 {
		return res, fmt.Errorf("%w: user id is required", ErrValidation)
	}

	// Groups already dissolved or fully repaired in this sweep; members
	// seen later in the scan must not be double-counted.
	handledGroups := make(map[string]bool)

	banks, err := s.repo.ListBankRecords(storage.BankFilters{
		UserID: userID,
		State:  storage.StateMatched,
	})
	if err != nil {
		return res, err
	}
	for _, b := range banks {
		switch b.MatchRefKind {
		case storage.RefSingle:
			if err := s.repairBankSingle(b, &res); err != nil {
				return res, err
			}
		case storage.RefGroup:
			if err := s.repairGroupRef(b.MatchGroupID, "bank", b.ID, handledGroups, &res); err != nil {
				return res, err
			}
		default:
			// Matched with no reference kind is drift.
			if err := s.repo.ClearBankMatch(b.ID); err != nil {
				return res, err
			}
			res.OrphanedBankFixed++
		}
	}

	ledgers, err := s.repo.ListLedgerRecords(storage.LedgerFilters{
		UserID: userID,
		State:  storage.StateMatched,
	})
	if err != nil {
		return res, err
	}
	for _, l := range ledgers {
		switch l.MatchRefKind {
		case storage.RefSingle:
			if err := s.repairLedgerSingle(l, &res); err != nil {
				return res, err
			}
		case storage.RefGroup:
			if err := s.repairGroupRef(l.MatchGroupID, "ledger", l.ID, handledGroups, &res); err != nil {
				return res, err
			}
		default:
			if err := s.repo.ClearLedgerMatch(l.ID); err != nil {
				return res, err
			}
			res.OrphanedLedgerFixed++
		}
	}

	deleted, err := s.suppressDuplicates(userID)
	if err != nil {
		return res, err
	}
	res.DuplicatesDeleted = deleted

	s.logger.Info("repair pass complete", "user", userID,
		"repaired", res.Repaired,
		"orphaned_bank_fixed", res.OrphanedBankFixed,
		"orphaned_ledger_fixed", res.OrphanedLedgerFixed,
		"duplicates_deleted", res.DuplicatesDeleted)
	return res, nil
}

// repairBankSingle verifies a bank record's 1:1 claim. A missing
// counterpart clears this side; a counterpart that exists but points
// elsewhere is either repaired to point back, or — when it forms a valid
// pair with some other bank record — this side is the orphan and clears.
func (s *RepairService) repairBankSingle(b *storage.BankRecord, res *RepairResult) error {
	if b.MatchedLedgerID == nil {
		res.OrphanedBankFixed++
		return s.repo.ClearBankMatch(b.ID)
	}
	l, err := s.repo.GetLedgerRecord(*b.MatchedLedgerID)
	if err != nil {
		return err
	}
	if l == nil {
		res.OrphanedBankFixed++
		return s.repo.ClearBankMatch(b.ID)
	}
	if pointsBackToBank(l, b.ID) {
		return nil
	}
	// The counterpart may form a valid pair with a different bank record;
	// overwriting its pointer would break that pair, so this side yields.
	if l.MatchRefKind == storage.RefSingle && l.MatchedBankID != nil {
		other, err := s.repo.GetBankRecord(*l.MatchedBankID)
		if err != nil {
			return err
		}
		if other != nil && other.MatchRefKind == storage.RefSingle &&
			other.MatchedLedgerID != nil && *other.MatchedLedgerID == l.ID {
			res.OrphanedBankFixed++
			return s.repo.ClearBankMatch(b.ID)
		}
	}
	res.Repaired++
	return s.repo.SetLedgerMatchRef(l.ID, storage.RefSingle, &b.ID, nil)
}

// repairLedgerSingle mirrors repairBankSingle for the ledger side.
func (s *RepairService) repairLedgerSingle(l *storage.LedgerRecord, res *RepairResult) error {
	if l.MatchedBankID == nil {
		res.OrphanedLedgerFixed++
		return s.repo.ClearLedgerMatch(l.ID)
	}
	b, err := s.repo.GetBankRecord(*l.MatchedBankID)
	if err != nil {
		return err
	}
	if b == nil {
		res.OrphanedLedgerFixed++
		return s.repo.ClearLedgerMatch(l.ID)
	}
	if pointsBackToLedger(b, l.ID) {
		return nil
	}
	if b.MatchRefKind == storage.RefSingle && b.MatchedLedgerID != nil {
		other, err := s.repo.GetLedgerRecord(*b.MatchedLedgerID)
		if err != nil {
			return err
		}
		if other != nil && other.MatchRefKind == storage.RefSingle &&
			other.MatchedBankID != nil && *other.MatchedBankID == b.ID {
			res.OrphanedLedgerFixed++
			return s.repo.ClearLedgerMatch(l.ID)
		}
	}
	res.Repaired++
	return s.repo.SetBankMatchRef(b.ID, storage.RefSingle, &l.ID, nil)
}

// repairGroupRef verifies one record's group claim and, the first time a
// group is seen in the sweep, repairs the whole group: a group without a
// live member on the opposite side dissolves; surviving members get their
// pointers straightened.
func (s *RepairService) repairGroupRef(groupID *string, side string, recordID int64, handled map[string]bool, res *RepairResult) error {
	clearSelf := func() error {
		if side == "bank" {
			res.OrphanedBankFixed++
			return s.repo.ClearBankMatch(recordID)
		}
		res.OrphanedLedgerFixed++
		return s.repo.ClearLedgerMatch(recordID)
	}

	if groupID == nil {
		return clearSelf()
	}
	gid := *groupID

	group, err := s.repo.GetMatchGroup(gid)
	if err != nil {
		return err
	}
	if group == nil {
		return clearSelf()
	}
	members, err := s.repo.GetGroupMembers(gid)
	if err != nil {
		return err
	}

	var bankMembers []*storage.BankRecord
	var ledgerMembers []*storage.LedgerRecord
	memberOfGroup := make(map[string]bool)
	for _, m := range members {
		switch {
		case m.BankRecordID != nil:
			r, err := s.repo.GetBankRecord(*m.BankRecordID)
			if err != nil {
				return err
			}
			if r != nil {
				bankMembers = append(bankMembers, r)
				memberOfGroup[fmt.Sprintf("bank:%d", r.ID)] = true
			}
		case m.LedgerRecordID != nil:
			r, err := s.repo.GetLedgerRecord(*m.LedgerRecordID)
			if err != nil {
				return err
			}
			if r != nil {
				ledgerMembers = append(ledgerMembers, r)
				memberOfGroup[fmt.Sprintf("ledger:%d", r.ID)] = true
			}
		}
	}

	// A record claiming a group it is not a member of is an orphan even
	// when the group itself is healthy. Checked per record, never memoized:
	// a bogus claimant may be scanned after a genuine member already had
	// the group repaired group-wide.
	if !memberOfGroup[fmt.Sprintf("%s:%d", side, recordID)] {
		if err := clearSelf(); err != nil {
			return err
		}
	}

	// Group-wide repair runs once per sweep.
	if handled[gid] {
		return nil
	}
	handled[gid] = true

	// No live member left on one side: the group can no longer represent a
	// bank↔ledger relationship. Dissolve it, unmatching every member.
	if len(bankMembers) == 0 || len(ledgerMembers) == 0 {
		if _, err := s.repo.DeleteMatchGroup(gid); err != nil {
			return err
		}
		res.Repaired++
		return nil
	}

	// Both sides alive: straighten member pointer drift.
	for _, r := range bankMembers {
		if r.MatchState != storage.StateMatched || r.MatchRefKind != storage.RefGroup ||
			r.MatchGroupID == nil || *r.MatchGroupID != gid {
			if err := s.repo.SetBankMatchRef(r.ID, storage.RefGroup, nil, &gid); err != nil {
				return err
			}
			res.Repaired++
		}
	}
	for _, r := range ledgerMembers {
		if r.MatchState != storage.StateMatched || r.MatchRefKind != storage.RefGroup ||
			r.MatchGroupID == nil || *r.MatchGroupID != gid {
			if err := s.repo.SetLedgerMatchRef(r.ID, storage.RefGroup, nil, &gid); err != nil {
				return err
			}
			res.Repaired++
		}
	}
	return nil
}

// suppressDuplicates enforces the "one live unreconciled copy" invariant:
// unreconciled ledger records whose signature already has a reconciled
// representative are deleted outright; signatures with several unreconciled
// copies and no reconciled one keep only the most recently created.
func (s *RepairService) suppressDuplicates(userID int64) (int, error) {
	all, err := s.repo.ListLedgerRecords(storage.LedgerFilters{UserID: userID})
	if err != nil {
		return 0, err
	}

	reconciled := make(map[string]bool)
	unreconciled := make(map[string][]*storage.LedgerRecord)
	for _, l := range all {
		sig := scorer.Signature(l)
		if l.MatchState == storage.StateMatched {
			reconciled[sig] = true
		} else {
			unreconciled[sig] = append(unreconciled[sig], l)
		}
	}

	var doomed []int64
	for sig, dups := range unreconciled {
		if reconciled[sig] {
			// A reconciled representative exists; every unreconciled copy
			// is a duplicate.
			for _, l := range dups {
				doomed = append(doomed, l.ID)
			}
			continue
		}
		if len(dups) > 1 {
			keep := dups[0]
			for _, l := range dups[1:] {
				if l.CreatedAt.After(keep.CreatedAt) ||
					(l.CreatedAt.Equal(keep.CreatedAt) && l.ID > keep.ID) {
					keep = l
				}
			}
			for _, l := range dups {
				if l.ID != keep.ID {
					doomed = append(doomed, l.ID)
				}
			}
		}
	}

	if len(doomed) == 0 {
		return 0, nil
	}
	return s.repo.DeleteLedgerRecords(doomed)
}

// FindOrphans is the read-only diagnostic twin of Repair: it reports every
// inconsistency a repair run would fix, without touching anything.
func (s *RepairService) FindOrphans(ctx context.Context, userID int64) ([]Orphan, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}

	var orphans []Orphan

	banks, err := s.repo.ListBankRecords(storage.BankFilters{
		UserID: userID,
		State:  storage.StateMatched,
	})
	if err != nil {
		return nil, err
	}
	for _, b := range banks {
		switch b.MatchRefKind {
		case storage.RefSingle:
			if b.MatchedLedgerID == nil {
				orphans = append(orphans, Orphan{"bank", b.ID, b.MatchRefKind, "", "single match with no counterpart id"})
				continue
			}
			l, err := s.repo.GetLedgerRecord(*b.MatchedLedgerID)
			if err != nil {
				return nil, err
			}
			if l == nil {
				orphans = append(orphans, Orphan{"bank", b.ID, b.MatchRefKind, fmt.Sprint(*b.MatchedLedgerID), "counterpart ledger record missing"})
			} else if !pointsBackToBank(l, b.ID) {
				orphans = append(orphans, Orphan{"bank", b.ID, b.MatchRefKind, fmt.Sprint(*b.MatchedLedgerID), "counterpart does not point back"})
			}
		case storage.RefGroup:
			if o, err := s.groupOrphan("bank", b.ID, b.MatchGroupID); err != nil {
				return nil, err
			} else if o != nil {
				orphans = append(orphans, *o)
			}
		default:
			orphans = append(orphans, Orphan{"bank", b.ID, b.MatchRefKind, "", "matched with no reference kind"})
		}
	}

	ledgers, err := s.repo.ListLedgerRecords(storage.LedgerFilters{
		UserID: userID,
		State:  storage.StateMatched,
	})
	if err != nil {
		return nil, err
	}
	for _, l := range ledgers {
		switch l.MatchRefKind {
		case storage.RefSingle:
			if l.MatchedBankID == nil {
				orphans = append(orphans, Orphan{"ledger", l.ID, l.MatchRefKind, "", "single match with no counterpart id"})
				continue
			}
			b, err := s.repo.GetBankRecord(*l.MatchedBankID)
			if err != nil {
				return nil, err
			}
			if b == nil {
				orphans = append(orphans, Orphan{"ledger", l.ID, l.MatchRefKind, fmt.Sprint(*l.MatchedBankID), "counterpart bank record missing"})
			} else if !pointsBackToLedger(b, l.ID) {
				orphans = append(orphans, Orphan{"ledger", l.ID, l.MatchRefKind, fmt.Sprint(*l.MatchedBankID), "counterpart does not point back"})
			}
		case storage.RefGroup:
			if o, err := s.groupOrphan("ledger", l.ID, l.MatchGroupID); err != nil {
				return nil, err
			} else if o != nil {
				orphans = append(orphans, *o)
			}
		default:
			orphans = append(orphans, Orphan{"ledger", l.ID, l.MatchRefKind, "", "matched with no reference kind"})
		}
	}

	return orphans, nil
}

func (s *RepairService) groupOrphan(side string, recordID int64, groupID *string) (*Orphan, error) {
	if groupID == nil {
		return &Orphan{side, recordID, storage.RefGroup, "", "group match with no group id"}, nil
	}
	group, err := s.repo.GetMatchGroup(*groupID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return &Orphan{side, recordID, storage.RefGroup, *groupID, "group missing"}, nil
	}
	members, err := s.repo.GetGroupMembers(*groupID)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		if side == "bank" && m.BankRecordID != nil && *m.BankRecordID == recordID {
			return nil, nil
		}
		if side == "ledger" && m.LedgerRecordID != nil && *m.LedgerRecordID == recordID {
			return nil, nil
		}
	}
	return &Orphan{side, recordID, storage.RefGroup, *groupID, "record not a member of its group"}, nil
}

func pointsBackToBank(l *storage.LedgerRecord, bankID int64) bool {
	return l.MatchState == storage.StateMatched &&
		l.MatchRefKind == storage.RefSingle &&
		l.MatchedBankID != nil && *l.MatchedBankID == bankID
}

func pointsBackToLedger(b *storage.BankRecord, ledgerID int64) bool {
	return b.MatchState == storage.StateMatched &&
		b.MatchRefKind == storage.RefSingle &&
		b.MatchedLedgerID != nil && *b.MatchedLedgerID == ledgerID
}
