package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintrack/recon-backend/internal/application/service"
	"github.com/fintrack/recon-backend/internal/infrastructure/storage"
)

func TestRepair_OrphanedSingles(t *testing.T) {
	ctx := context.Background()

	t.Run("bank pointing at missing ledger is cleared", func(t *testing.T) {
		repo := storage.NewMockRepository()
		svc := service.NewRepairService(repo, nil)

		b := addBank(t, repo, 1, 10, 100, "A")
		ghost := int64(999)
		require.NoError(t, repo.SetBankMatchRef(b.ID, storage.RefSingle, &ghost, nil))

		res, err := svc.Repair(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 1, res.OrphanedBankFixed)

		got, _ := repo.GetBankRecord(b.ID)
		assert.Equal(t, storage.StateUnmatched, got.MatchState)
	})

	t.Run("ledger pointing at missing bank is cleared", func(t *testing.T) {
		repo := storage.NewMockRepository()
		svc := service.NewRepairService(repo, nil)

		l := addLedger(t, repo, 1, 10, 100, "Acme")
		ghost := int64(999)
		require.NoError(t, repo.SetLedgerMatchRef(l.ID, storage.RefSingle, &ghost, nil))

		res, err := svc.Repair(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 1, res.OrphanedLedgerFixed)
	})

	t.Run("one-sided pointer is repaired to point back", func(t *testing.T) {
		repo := storage.NewMockRepository()
		svc := service.NewRepairService(repo, nil)

		b := addBank(t, repo, 1, 10, 100, "A")
		l := addLedger(t, repo, 1, 10, 100, "Acme")
		// Bank claims the ledger but the ledger side never got written.
		require.NoError(t, repo.SetBankMatchRef(b.ID, storage.RefSingle, &l.ID, nil))

		res, err := svc.Repair(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Repaired)

		gotL, _ := repo.GetLedgerRecord(l.ID)
		assert.Equal(t, storage.StateMatched, gotL.MatchState)
		require.NotNil(t, gotL.MatchedBankID)
		assert.Equal(t, b.ID, *gotL.MatchedBankID)
	})

	t.Run("stale claim on a validly paired counterpart clears the claimant", func(t *testing.T) {
		repo := storage.NewMockRepository()
		svc := service.NewRepairService(repo, nil)

		b1 := addBank(t, repo, 1, 10, 100, "A")
		b2 := addBank(t, repo, 1, 10, 100, "B")
		l := addLedger(t, repo, 1, 10, 100, "Acme")

		// b2↔l is the valid pair; b1 carries a stale claim on l.
		require.NoError(t, repo.SetSingleMatch(b2.ID, l.ID))
		require.NoError(t, repo.SetBankMatchRef(b1.ID, storage.RefSingle, &l.ID, nil))

		res, err := svc.Repair(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 1, res.OrphanedBankFixed)
		assert.Zero(t, res.Repaired)

		// The valid pair is untouched.
		gotB2, _ := repo.GetBankRecord(b2.ID)
		gotL, _ := repo.GetLedgerRecord(l.ID)
		assert.Equal(t, storage.StateMatched, gotB2.MatchState)
		require.NotNil(t, gotL.MatchedBankID)
		assert.Equal(t, b2.ID, *gotL.MatchedBankID)

		gotB1, _ := repo.GetBankRecord(b1.ID)
		assert.Equal(t, storage.StateUnmatched, gotB1.MatchState)
	})

	t.Run("matched with no ref kind is cleared", func(t *testing.T) {
		repo := storage.NewMockRepository()
		svc := service.NewRepairService(repo, nil)

		b := addBank(t, repo, 1, 10, 100, "A")
		// Force the inconsistent state directly.
		raw, _ := repo.GetBankRecord(b.ID)
		raw.MatchState = storage.StateMatched
		raw.MatchRefKind = storage.RefNone
		repo.PutBankRecord(raw)

		res, err := svc.Repair(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 1, res.OrphanedBankFixed)
	})
}

func TestRepair_Groups(t *testing.T) {
	ctx := context.Background()

	t.Run("reference to a missing group is cleared", func(t *testing.T) {
		repo := storage.NewMockRepository()
		svc := service.NewRepairService(repo, nil)

		b := addBank(t, repo, 1, 10, 100, "A")
		gid := "gone"
		require.NoError(t, repo.SetBankMatchRef(b.ID, storage.RefGroup, nil, &gid))

		res, err := svc.Repair(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 1, res.OrphanedBankFixed)
	})

	t.Run("group with no surviving ledger side dissolves", func(t *testing.T) {
		repo := storage.NewMockRepository()
		svc := service.NewRepairService(repo, nil)
		recon := newRecon(repo)

		b1 := addBank(t, repo, 1, 10, 100, "A")
		b2 := addBank(t, repo, 1, 10, 200, "B")
		l := addLedger(t, repo, 1, 10, 300, "Acme")
		groupID, err := recon.MatchMany(ctx, 1, []int64{b1.ID, b2.ID}, []int64{l.ID})
		require.NoError(t, err)

		// The ledger row disappears out-of-band (import rollback).
		_, err = repo.DeleteLedgerRecords([]int64{l.ID})
		require.NoError(t, err)

		res, err := svc.Repair(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Repaired)

		g, _ := repo.GetMatchGroup(groupID)
		assert.Nil(t, g)
		for _, id := range []int64{b1.ID, b2.ID} {
			r, _ := repo.GetBankRecord(id)
			assert.Equal(t, storage.StateUnmatched, r.MatchState)
		}
	})

	t.Run("non-member claiming a healthy group is cleared", func(t *testing.T) {
		repo := storage.NewMockRepository()
		svc := service.NewRepairService(repo, nil)
		recon := newRecon(repo)

		b1 := addBank(t, repo, 1, 10, 100, "A")
		l := addLedger(t, repo, 1, 10, 100, "Acme")
		groupID, err := recon.MatchMany(ctx, 1, []int64{b1.ID}, []int64{l.ID})
		require.NoError(t, err)

		// A later bank line claims the group without a member row. Scan
		// order is date ascending, so the genuine member goes first.
		b2 := addBank(t, repo, 1, 11, 200, "B")
		require.NoError(t, repo.SetBankMatchRef(b2.ID, storage.RefGroup, nil, &groupID))

		res, err := svc.Repair(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 1, res.OrphanedBankFixed)

		gotB2, _ := repo.GetBankRecord(b2.ID)
		assert.Equal(t, storage.StateUnmatched, gotB2.MatchState)

		// The healthy group and its members are untouched.
		g, _ := repo.GetMatchGroup(groupID)
		assert.NotNil(t, g)
		gotB1, _ := repo.GetBankRecord(b1.ID)
		assert.Equal(t, storage.StateMatched, gotB1.MatchState)

		orphans, err := svc.FindOrphans(ctx, 1)
		require.NoError(t, err)
		assert.Empty(t, orphans)

		second, err := svc.Repair(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, service.RepairResult{}, second)
	})

	t.Run("member pointer drift is straightened", func(t *testing.T) {
		repo := storage.NewMockRepository()
		svc := service.NewRepairService(repo, nil)
		recon := newRecon(repo)

		b1 := addBank(t, repo, 1, 10, 100, "A")
		b2 := addBank(t, repo, 1, 10, 200, "B")
		l := addLedger(t, repo, 1, 10, 300, "Acme")
		groupID, err := recon.MatchMany(ctx, 1, []int64{b1.ID, b2.ID}, []int64{l.ID})
		require.NoError(t, err)

		// One member lost its reference.
		require.NoError(t, repo.ClearBankMatch(b2.ID))

		res, err := svc.Repair(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Repaired)

		r, _ := repo.GetBankRecord(b2.ID)
		assert.Equal(t, storage.StateMatched, r.MatchState)
		assert.Equal(t, storage.RefGroup, r.MatchRefKind)
		require.NotNil(t, r.MatchGroupID)
		assert.Equal(t, groupID, *r.MatchGroupID)
	})
}

func TestRepair_DuplicateSuppression(t *testing.T) {
	ctx := context.Background()

	t.Run("unreconciled copy of a reconciled record is deleted", func(t *testing.T) {
		repo := storage.NewMockRepository()
		svc := service.NewRepairService(repo, nil)

		b := addBank(t, repo, 1, 10, 100, "A")
		l1 := &storage.LedgerRecord{UserID: 1, Date: day(10), Amount: 100, Party: "Acme", Type: storage.LedgerSale, InvoiceNo: "INV-1"}
		require.NoError(t, repo.InsertLedgerRecord(l1))
		require.NoError(t, repo.SetSingleMatch(b.ID, l1.ID))

		l2 := &storage.LedgerRecord{UserID: 1, Date: day(10), Amount: 100, Party: "Acme", Type: storage.LedgerSale, InvoiceNo: "INV-1"}
		require.NoError(t, repo.InsertLedgerRecord(l2))

		res, err := svc.Repair(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 1, res.DuplicatesDeleted)

		got, _ := repo.GetLedgerRecord(l2.ID)
		assert.Nil(t, got)
		kept, _ := repo.GetLedgerRecord(l1.ID)
		require.NotNil(t, kept)
		assert.Equal(t, storage.StateMatched, kept.MatchState)
	})

	t.Run("several unreconciled copies keep the latest", func(t *testing.T) {
		repo := storage.NewMockRepository()
		svc := service.NewRepairService(repo, nil)

		l1 := addLedger(t, repo, 1, 10, 100, "Acme")
		l2 := addLedger(t, repo, 1, 10, 100, "Acme")

		res, err := svc.Repair(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 1, res.DuplicatesDeleted)

		// l2 was created last (equal timestamps tie-break on the higher id).
		gone, _ := repo.GetLedgerRecord(l1.ID)
		kept, _ := repo.GetLedgerRecord(l2.ID)
		assert.Nil(t, gone)
		assert.NotNil(t, kept)
	})

	t.Run("distinct signatures are untouched", func(t *testing.T) {
		repo := storage.NewMockRepository()
		svc := service.NewRepairService(repo, nil)

		addLedger(t, repo, 1, 10, 100, "Acme")
		addLedger(t, repo, 1, 10, 200, "Acme")
		addLedger(t, repo, 1, 11, 100, "Acme")

		res, err := svc.Repair(ctx, 1)
		require.NoError(t, err)
		assert.Zero(t, res.DuplicatesDeleted)
	})
}

func TestRepair_Idempotent(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewMockRepository()
	svc := service.NewRepairService(repo, nil)
	recon := newRecon(repo)

	// A healthy pair, a broken pointer, a broken group, and a duplicate.
	b1 := addBank(t, repo, 1, 10, 100, "A")
	l1 := addLedger(t, repo, 1, 10, 100, "Acme")
	require.NoError(t, recon.MatchOne(ctx, 1, b1.ID, l1.ID))

	b2 := addBank(t, repo, 1, 11, 200, "B")
	ghost := int64(999)
	require.NoError(t, repo.SetBankMatchRef(b2.ID, storage.RefSingle, &ghost, nil))

	b3 := addBank(t, repo, 1, 12, 300, "C")
	gid := "gone"
	require.NoError(t, repo.SetBankMatchRef(b3.ID, storage.RefGroup, nil, &gid))

	addLedger(t, repo, 1, 13, 400, "Dup Co")
	addLedger(t, repo, 1, 13, 400, "Dup Co")

	first, err := svc.Repair(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, first.OrphanedBankFixed)
	assert.Equal(t, 1, first.DuplicatesDeleted)

	second, err := svc.Repair(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, service.RepairResult{}, second)

	// The healthy pair survived both passes.
	gotB1, _ := repo.GetBankRecord(b1.ID)
	assert.Equal(t, storage.StateMatched, gotB1.MatchState)
}

func TestFindOrphans(t *testing.T) {
	ctx := context.Background()

	t.Run("reports without mutating", func(t *testing.T) {
		repo := storage.NewMockRepository()
		svc := service.NewRepairService(repo, nil)

		b := addBank(t, repo, 1, 10, 100, "A")
		ghost := int64(999)
		require.NoError(t, repo.SetBankMatchRef(b.ID, storage.RefSingle, &ghost, nil))

		orphans, err := svc.FindOrphans(ctx, 1)
		require.NoError(t, err)
		require.Len(t, orphans, 1)
		assert.Equal(t, "bank", orphans[0].Side)
		assert.Equal(t, b.ID, orphans[0].RecordID)

		// Nothing was fixed.
		got, _ := repo.GetBankRecord(b.ID)
		assert.Equal(t, storage.StateMatched, got.MatchState)

		// Repair then finds the same problem and clears it.
		res, err := svc.Repair(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 1, res.OrphanedBankFixed)

		orphans, err = svc.FindOrphans(ctx, 1)
		require.NoError(t, err)
		assert.Empty(t, orphans)
	})

	t.Run("healthy state reports nothing", func(t *testing.T) {
		repo := storage.NewMockRepository()
		svc := service.NewRepairService(repo, nil)
		recon := newRecon(repo)

		b := addBank(t, repo, 1, 10, 100, "A")
		l := addLedger(t, repo, 1, 10, 100, "Acme")
		require.NoError(t, recon.MatchOne(ctx, 1, b.ID, l.ID))

		orphans, err := svc.FindOrphans(ctx, 1)
		require.NoError(t, err)
		assert.Empty(t, orphans)
	})
}
