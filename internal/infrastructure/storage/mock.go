package storage

import (
	"sort"
	"time"
)

// MockRepository is an in-memory implementation of Repository for testing.
// It stores all data in maps and slices, making tests fast and isolated.
type MockRepository struct {
	banks   map[int64]*BankRecord
	ledgers map[int64]*LedgerRecord
	groups  map[string]*MatchGroup
	members map[string][]GroupMember
	rules   map[int64]*ReconRule

	nextBankID   int64
	nextLedgerID int64
	nextMemberID int64
	nextRuleID   int64

	// Hooks for test assertions
	SetSingleMatchCalled   bool
	CreateMatchGroupCalled bool
	DeleteMatchGroupCalled bool
	LastCreatedGroupID     string

	// Error injection for testing error paths
	GetBankErr        error
	GetLedgerErr      error
	ListBankErr       error
	ListLedgerErr     error
	SetSingleMatchErr error
	CreateGroupErr    error
	InsertRuleErr     error
}

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		banks:        make(map[int64]*BankRecord),
		ledgers:      make(map[int64]*LedgerRecord),
		groups:       make(map[string]*MatchGroup),
		members:      make(map[string][]GroupMember),
		rules:        make(map[int64]*ReconRule),
		nextBankID:   1,
		nextLedgerID: 1,
		nextMemberID: 1,
		nextRuleID:   1,
	}
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

// Close does nothing for mock
func (m *MockRepository) Close() error {
	return nil
}

// --- Bank records ---

func (m *MockRepository) InsertBankRecord(r *BankRecord) error {
	if r.MatchState == "" {
		r.MatchState = StateUnmatched
	}
	if r.MatchRefKind == "" {
		r.MatchRefKind = RefNone
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	r.ID = m.nextBankID
	m.nextBankID++
	copied := *r
	m.banks[r.ID] = &copied
	return nil
}

func (m *MockRepository) GetBankRecord(id int64) (*BankRecord, error) {
	if m.GetBankErr != nil {
		return nil, m.GetBankErr
	}
	r, ok := m.banks[id]
	if !ok {
		return nil, nil
	}
	copied := *r
	return &copied, nil
}

func (m *MockRepository) ListBankRecords(f BankFilters) ([]*BankRecord, error) {
	if m.ListBankErr != nil {
		return nil, m.ListBankErr
	}
	var out []*BankRecord
	for _, r := range m.banks {
		if f.UserID != 0 && r.UserID != f.UserID {
			continue
		}
		if !f.From.IsZero() && r.Date.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && r.Date.After(f.To) {
			continue
		}
		if f.AccountID != 0 && r.AccountID != f.AccountID {
			continue
		}
		if f.State != "" && r.MatchState != f.State {
			continue
		}
		excluded := false
		for _, p := range f.ExcludePurposes {
			if r.Purpose == p {
				excluded = true
				break
			}
		}
		if excluded {
			continue
		}
		copied := *r
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].ID < out[j].ID
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

func (m *MockRepository) SetBankMatchRef(id int64, kind MatchRefKind, ledgerID *int64, groupID *string) error {
	r, ok := m.banks[id]
	if !ok {
		return nil
	}
	if kind == RefNone {
		r.MatchState = StateUnmatched
	} else {
		r.MatchState = StateMatched
	}
	r.MatchRefKind = kind
	r.MatchedLedgerID = copyInt64(ledgerID)
	r.MatchGroupID = copyString(groupID)
	return nil
}

func (m *MockRepository) ClearBankMatch(id int64) error {
	return m.SetBankMatchRef(id, RefNone, nil, nil)
}

func (m *MockRepository) SetBankPurpose(id int64, p Purpose) error {
	if r, ok := m.banks[id]; ok {
		r.Purpose = p
	}
	return nil
}

// --- Ledger records ---

func (m *MockRepository) InsertLedgerRecord(r *LedgerRecord) error {
	if r.MatchState == "" {
		r.MatchState = StateUnmatched
	}
	if r.MatchRefKind == "" {
		r.MatchRefKind = RefNone
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	r.ID = m.nextLedgerID
	m.nextLedgerID++
	copied := *r
	m.ledgers[r.ID] = &copied
	return nil
}

func (m *MockRepository) GetLedgerRecord(id int64) (*LedgerRecord, error) {
	if m.GetLedgerErr != nil {
		return nil, m.GetLedgerErr
	}
	r, ok := m.ledgers[id]
	if !ok {
		return nil, nil
	}
	copied := *r
	return &copied, nil
}

func (m *MockRepository) ListLedgerRecords(f LedgerFilters) ([]*LedgerRecord, error) {
	if m.ListLedgerErr != nil {
		return nil, m.ListLedgerErr
	}
	var out []*LedgerRecord
	for _, r := range m.ledgers {
		if f.UserID != 0 && r.UserID != f.UserID {
			continue
		}
		if !f.From.IsZero() && r.Date.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && r.Date.After(f.To) {
			continue
		}
		if len(f.Types) > 0 {
			found := false
			for _, t := range f.Types {
				if r.Type == t {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		if f.State != "" && r.MatchState != f.State {
			continue
		}
		copied := *r
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].ID < out[j].ID
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

func (m *MockRepository) SetLedgerMatchRef(id int64, kind MatchRefKind, bankID *int64, groupID *string) error {
	r, ok := m.ledgers[id]
	if !ok {
		return nil
	}
	if kind == RefNone {
		r.MatchState = StateUnmatched
	} else {
		r.MatchState = StateMatched
	}
	r.MatchRefKind = kind
	r.MatchedBankID = copyInt64(bankID)
	r.MatchGroupID = copyString(groupID)
	return nil
}

func (m *MockRepository) ClearLedgerMatch(id int64) error {
	return m.SetLedgerMatchRef(id, RefNone, nil, nil)
}

func (m *MockRepository) DeleteLedgerRecords(ids []int64) (int, error) {
	deleted := 0
	for _, id := range ids {
		if _, ok := m.ledgers[id]; ok {
			delete(m.ledgers, id)
			deleted++
		}
	}
	return deleted, nil
}

// --- Match mutators ---

func (m *MockRepository) SetSingleMatch(bankID, ledgerID int64) error {
	m.SetSingleMatchCalled = true
	if m.SetSingleMatchErr != nil {
		return m.SetSingleMatchErr
	}
	_ = m.SetBankMatchRef(bankID, RefSingle, &ledgerID, nil)
	_ = m.SetLedgerMatchRef(ledgerID, RefSingle, &bankID, nil)
	return nil
}

func (m *MockRepository) ClearSingleMatch(bankID, ledgerID int64) error {
	_ = m.ClearBankMatch(bankID)
	_ = m.ClearLedgerMatch(ledgerID)
	return nil
}

func (m *MockRepository) CreateMatchGroup(g *MatchGroup, bankIDs, ledgerIDs []int64) error {
	m.CreateMatchGroupCalled = true
	if m.CreateGroupErr != nil {
		return m.CreateGroupErr
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	copied := *g
	m.groups[g.ID] = &copied
	m.LastCreatedGroupID = g.ID

	gid := g.ID
	for _, id := range bankIDs {
		bid := id
		m.members[gid] = append(m.members[gid], GroupMember{
			ID:           m.nextMemberID,
			GroupID:      gid,
			BankRecordID: &bid,
		})
		m.nextMemberID++
		_ = m.SetBankMatchRef(id, RefGroup, nil, &gid)
	}
	for _, id := range ledgerIDs {
		lid := id
		m.members[gid] = append(m.members[gid], GroupMember{
			ID:             m.nextMemberID,
			GroupID:        gid,
			LedgerRecordID: &lid,
		})
		m.nextMemberID++
		_ = m.SetLedgerMatchRef(id, RefGroup, nil, &gid)
	}
	return nil
}

func (m *MockRepository) DeleteMatchGroup(groupID string) (bool, error) {
	m.DeleteMatchGroupCalled = true
	if _, ok := m.groups[groupID]; !ok {
		return false, nil
	}
	for _, r := range m.banks {
		if r.MatchGroupID != nil && *r.MatchGroupID == groupID {
			_ = m.ClearBankMatch(r.ID)
		}
	}
	for _, r := range m.ledgers {
		if r.MatchGroupID != nil && *r.MatchGroupID == groupID {
			_ = m.ClearLedgerMatch(r.ID)
		}
	}
	delete(m.members, groupID)
	delete(m.groups, groupID)
	return true, nil
}

func (m *MockRepository) GetMatchGroup(groupID string) (*MatchGroup, error) {
	g, ok := m.groups[groupID]
	if !ok {
		return nil, nil
	}
	copied := *g
	return &copied, nil
}

func (m *MockRepository) GetGroupMembers(groupID string) ([]GroupMember, error) {
	members := m.members[groupID]
	out := make([]GroupMember, len(members))
	copy(out, members)
	return out, nil
}

// --- Rules ---

func (m *MockRepository) ListRules(userID int64, activeOnly bool) ([]*ReconRule, error) {
	var out []*ReconRule
	for _, r := range m.rules {
		if r.UserID != userID {
			continue
		}
		if activeOnly && !r.Active {
			continue
		}
		copied := *r
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MatchCount != out[j].MatchCount {
			return out[i].MatchCount > out[j].MatchCount
		}
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MockRepository) GetRuleBySignature(userID int64, kind, value string) (*ReconRule, error) {
	for _, r := range m.rules {
		if r.UserID == userID && r.PatternKind == kind && r.PatternValue == value {
			copied := *r
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *MockRepository) InsertRule(r *ReconRule) error {
	if m.InsertRuleErr != nil {
		return m.InsertRuleErr
	}
	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	r.ID = m.nextRuleID
	m.nextRuleID++
	copied := *r
	m.rules[r.ID] = &copied
	return nil
}

func (m *MockRepository) UpdateRule(r *ReconRule) error {
	if _, ok := m.rules[r.ID]; !ok {
		return nil
	}
	r.UpdatedAt = time.Now().UTC()
	copied := *r
	m.rules[r.ID] = &copied
	return nil
}

func (m *MockRepository) IncrementRuleMatchCount(id int64, delta int) error {
	if r, ok := m.rules[id]; ok {
		r.MatchCount += delta
		r.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (m *MockRepository) SetRuleActive(id int64, active bool) error {
	if r, ok := m.rules[id]; ok {
		r.Active = active
		r.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (m *MockRepository) DeleteRule(id int64) error {
	delete(m.rules, id)
	return nil
}

// PutBankRecord overwrites a stored record verbatim. Test hook for seeding
// inconsistent states the public mutators refuse to produce.
func (m *MockRepository) PutBankRecord(r *BankRecord) {
	copied := *r
	m.banks[r.ID] = &copied
}

// PutLedgerRecord overwrites a stored record verbatim. Test hook.
func (m *MockRepository) PutLedgerRecord(r *LedgerRecord) {
	copied := *r
	m.ledgers[r.ID] = &copied
}

func copyInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func copyString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
