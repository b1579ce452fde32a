package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvanceView(t *testing.T) {
	d := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	due := func(v int64) *int64 { return &v }

	t.Run("partially paid sale order projects an advance", func(t *testing.T) {
		l := &LedgerRecord{
			ID: 7, UserID: 1, Date: d, Amount: 1200000, Party: "Acme Traders",
			Type: LedgerSaleOrder, BalanceDue: due(700000),
			MatchState: StateUnmatched,
		}
		adv := l.AdvanceView()
		require.NotNil(t, adv)
		assert.Equal(t, int64(7), adv.ParentID)
		assert.Equal(t, int64(500000), adv.Amount) // order minus outstanding
		assert.Equal(t, "Acme Traders", adv.Party)
		assert.Equal(t, StateUnmatched, adv.MatchState)
	})

	t.Run("fully unpaid order projects nothing", func(t *testing.T) {
		l := &LedgerRecord{Type: LedgerSaleOrder, Amount: 1200000, BalanceDue: due(1200000)}
		assert.Nil(t, l.AdvanceView())
	})

	t.Run("fully paid order projects nothing", func(t *testing.T) {
		l := &LedgerRecord{Type: LedgerSaleOrder, Amount: 1200000, BalanceDue: due(0)}
		assert.Nil(t, l.AdvanceView())
	})

	t.Run("non sale-order types project nothing", func(t *testing.T) {
		l := &LedgerRecord{Type: LedgerSale, Amount: 1200000, BalanceDue: due(500000)}
		assert.Nil(t, l.AdvanceView())
	})

	t.Run("nil balance due projects nothing", func(t *testing.T) {
		l := &LedgerRecord{Type: LedgerSaleOrder, Amount: 1200000}
		assert.Nil(t, l.AdvanceView())
	})
}
