package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := NewStorage(filepath.Join(t.TempDir(), "recon_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testBank(userID int64, d time.Time, amount int64, narration string) *BankRecord {
	return &BankRecord{
		UserID:    userID,
		AccountID: 1,
		Date:      d,
		Amount:    amount,
		Narration: narration,
	}
}

func testLedger(userID int64, d time.Time, amount int64, party string) *LedgerRecord {
	return &LedgerRecord{
		UserID: userID,
		Date:   d,
		Amount: amount,
		Party:  party,
		Type:   LedgerSale,
	}
}

func TestStorage_Migrations(t *testing.T) {
	s := newTestStorage(t)

	// Reopening against the same file must not re-run applied migrations.
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Greater(t, count, 0)
}

func TestStorage_BankRecordRoundTrip(t *testing.T) {
	s := newTestStorage(t)
	d := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	r := testBank(1, d, 500000, "UPI/1234567890/ACME TRADERS/PAYMENT")
	require.NoError(t, s.InsertBankRecord(r))
	require.NotZero(t, r.ID)

	got, err := s.GetBankRecord(r.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(500000), got.Amount)
	assert.Equal(t, "UPI/1234567890/ACME TRADERS/PAYMENT", got.Narration)
	assert.Equal(t, StateUnmatched, got.MatchState)
	assert.Equal(t, RefNone, got.MatchRefKind)
	assert.True(t, got.Date.Equal(d))

	t.Run("missing record returns nil", func(t *testing.T) {
		got, err := s.GetBankRecord(99999)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestStorage_ListBankRecords(t *testing.T) {
	s := newTestStorage(t)
	d := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	r1 := testBank(1, d.AddDate(0, 0, 5), 100, "A")
	r2 := testBank(1, d, 200, "B")
	r3 := testBank(2, d, 300, "C") // other user
	p := testBank(1, d, 400, "D")
	p.Purpose = PurposePersonal
	for _, r := range []*BankRecord{r1, r2, r3, p} {
		require.NoError(t, s.InsertBankRecord(r))
	}

	t.Run("user scoping and date ordering", func(t *testing.T) {
		out, err := s.ListBankRecords(BankFilters{UserID: 1})
		require.NoError(t, err)
		require.Len(t, out, 3)
		assert.Equal(t, r2.ID, out[0].ID)
		assert.Equal(t, r1.ID, out[2].ID)
	})

	t.Run("date range", func(t *testing.T) {
		out, err := s.ListBankRecords(BankFilters{UserID: 1, From: d.AddDate(0, 0, 1), To: d.AddDate(0, 0, 10)})
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, r1.ID, out[0].ID)
	})

	t.Run("purpose exclusion", func(t *testing.T) {
		out, err := s.ListBankRecords(BankFilters{UserID: 1, ExcludePurposes: []Purpose{PurposePersonal, PurposeIgnored}})
		require.NoError(t, err)
		assert.Len(t, out, 2)
	})

	t.Run("state filter", func(t *testing.T) {
		out, err := s.ListBankRecords(BankFilters{UserID: 1, State: StateMatched})
		require.NoError(t, err)
		assert.Empty(t, out)
	})
}

func TestStorage_SingleMatch(t *testing.T) {
	s := newTestStorage(t)
	d := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	b := testBank(1, d, 500000, "UPI/1/ACME")
	l := testLedger(1, d, 500000, "Acme Traders")
	require.NoError(t, s.InsertBankRecord(b))
	require.NoError(t, s.InsertLedgerRecord(l))

	require.NoError(t, s.SetSingleMatch(b.ID, l.ID))

	gotB, err := s.GetBankRecord(b.ID)
	require.NoError(t, err)
	gotL, err := s.GetLedgerRecord(l.ID)
	require.NoError(t, err)

	assert.Equal(t, StateMatched, gotB.MatchState)
	assert.Equal(t, RefSingle, gotB.MatchRefKind)
	require.NotNil(t, gotB.MatchedLedgerID)
	assert.Equal(t, l.ID, *gotB.MatchedLedgerID)

	assert.Equal(t, StateMatched, gotL.MatchState)
	require.NotNil(t, gotL.MatchedBankID)
	assert.Equal(t, b.ID, *gotL.MatchedBankID)

	t.Run("clear resets both sides", func(t *testing.T) {
		require.NoError(t, s.ClearSingleMatch(b.ID, l.ID))

		gotB, err := s.GetBankRecord(b.ID)
		require.NoError(t, err)
		gotL, err := s.GetLedgerRecord(l.ID)
		require.NoError(t, err)

		assert.Equal(t, StateUnmatched, gotB.MatchState)
		assert.Equal(t, RefNone, gotB.MatchRefKind)
		assert.Nil(t, gotB.MatchedLedgerID)
		assert.Equal(t, StateUnmatched, gotL.MatchState)
		assert.Nil(t, gotL.MatchedBankID)
	})
}

func TestStorage_MatchGroup(t *testing.T) {
	s := newTestStorage(t)
	d := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	b1 := testBank(1, d, 500000, "NEFT/X/ACME")
	b2 := testBank(1, d, 700000, "NEFT/Y/ACME")
	l := testLedger(1, d, 1200000, "Acme Traders")
	require.NoError(t, s.InsertBankRecord(b1))
	require.NoError(t, s.InsertBankRecord(b2))
	require.NoError(t, s.InsertLedgerRecord(l))

	g := &MatchGroup{ID: "g-test-1", UserID: 1}
	require.NoError(t, s.CreateMatchGroup(g, []int64{b1.ID, b2.ID}, []int64{l.ID}))

	t.Run("group and members persisted", func(t *testing.T) {
		got, err := s.GetMatchGroup("g-test-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, int64(1), got.UserID)

		members, err := s.GetGroupMembers("g-test-1")
		require.NoError(t, err)
		assert.Len(t, members, 3)
	})

	t.Run("members carry group references", func(t *testing.T) {
		for _, id := range []int64{b1.ID, b2.ID} {
			r, err := s.GetBankRecord(id)
			require.NoError(t, err)
			assert.Equal(t, StateMatched, r.MatchState)
			assert.Equal(t, RefGroup, r.MatchRefKind)
			require.NotNil(t, r.MatchGroupID)
			assert.Equal(t, "g-test-1", *r.MatchGroupID)
		}
		r, err := s.GetLedgerRecord(l.ID)
		require.NoError(t, err)
		assert.Equal(t, RefGroup, r.MatchRefKind)
	})

	t.Run("delete unmatches every member", func(t *testing.T) {
		found, err := s.DeleteMatchGroup("g-test-1")
		require.NoError(t, err)
		assert.True(t, found)

		got, err := s.GetMatchGroup("g-test-1")
		require.NoError(t, err)
		assert.Nil(t, got)

		for _, id := range []int64{b1.ID, b2.ID} {
			r, err := s.GetBankRecord(id)
			require.NoError(t, err)
			assert.Equal(t, StateUnmatched, r.MatchState)
			assert.Nil(t, r.MatchGroupID)
		}
		lr, err := s.GetLedgerRecord(l.ID)
		require.NoError(t, err)
		assert.Equal(t, StateUnmatched, lr.MatchState)
	})

	t.Run("delete missing group reports false", func(t *testing.T) {
		found, err := s.DeleteMatchGroup("nope")
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestStorage_DeleteLedgerRecords(t *testing.T) {
	s := newTestStorage(t)
	d := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	l1 := testLedger(1, d, 100, "A")
	l2 := testLedger(1, d, 200, "B")
	require.NoError(t, s.InsertLedgerRecord(l1))
	require.NoError(t, s.InsertLedgerRecord(l2))

	deleted, err := s.DeleteLedgerRecords([]int64{l1.ID, 99999})
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	got, err := s.GetLedgerRecord(l1.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	deleted, err = s.DeleteLedgerRecords(nil)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestStorage_Rules(t *testing.T) {
	s := newTestStorage(t)

	r1 := &ReconRule{
		UserID: 1, PatternKind: PatternNarrationKey, PatternValue: "UPI:ACME TRADERS",
		Vendor: "Acme Traders", Category: "Income:Sales",
		Priority: PriorityUserRule, Active: true,
	}
	require.NoError(t, s.InsertRule(r1))
	require.NotZero(t, r1.ID)

	r2 := &ReconRule{
		UserID: 1, PatternKind: PatternNarrationKey, PatternValue: "NEFT:GLOBEX",
		Category: "Expense:Supplies",
		Priority: PriorityAutoRule, Active: true, MatchCount: 50,
	}
	require.NoError(t, s.InsertRule(r2))

	t.Run("lookup order is match count first", func(t *testing.T) {
		list, err := s.ListRules(1, true)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, r2.ID, list[0].ID)
	})

	t.Run("signature lookup", func(t *testing.T) {
		got, err := s.GetRuleBySignature(1, PatternNarrationKey, "UPI:ACME TRADERS")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Acme Traders", got.Vendor)

		got, err = s.GetRuleBySignature(2, PatternNarrationKey, "UPI:ACME TRADERS")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("increment match count", func(t *testing.T) {
		require.NoError(t, s.IncrementRuleMatchCount(r1.ID, 1))
		require.NoError(t, s.IncrementRuleMatchCount(r1.ID, 2))

		got, err := s.GetRuleBySignature(1, PatternNarrationKey, "UPI:ACME TRADERS")
		require.NoError(t, err)
		assert.Equal(t, 3, got.MatchCount)
	})

	t.Run("deactivate hides from active listing", func(t *testing.T) {
		require.NoError(t, s.SetRuleActive(r1.ID, false))

		list, err := s.ListRules(1, true)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, r2.ID, list[0].ID)

		list, err = s.ListRules(1, false)
		require.NoError(t, err)
		assert.Len(t, list, 2)
	})

	t.Run("update rewrites payload", func(t *testing.T) {
		r2.Category = "Expense:Inventory"
		require.NoError(t, s.UpdateRule(r2))

		got, err := s.GetRuleBySignature(1, PatternNarrationKey, "NEFT:GLOBEX")
		require.NoError(t, err)
		assert.Equal(t, "Expense:Inventory", got.Category)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.DeleteRule(r1.ID))
		got, err := s.GetRuleBySignature(1, PatternNarrationKey, "UPI:ACME TRADERS")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}
