package scorer_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintrack/recon-backend/internal/domain/scorer"
	"github.com/fintrack/recon-backend/internal/infrastructure/storage"
)

func day(d int) time.Time {
	return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC)
}

func TestScore_AmountGate(t *testing.T) {
	cfg := scorer.DefaultConfig()

	t.Run("unequal amounts never score", func(t *testing.T) {
		b := &storage.BankRecord{Amount: 500000, Date: day(10), Narration: "UPI/1234/ACME TRADERS/PAYMENT"}
		l := &storage.LedgerRecord{Amount: 500001, Date: day(10), Party: "Acme Traders"}

		_, ok := scorer.Score(b, l, cfg)
		assert.False(t, ok)
	})

	t.Run("opposite signs compare by magnitude", func(t *testing.T) {
		b := &storage.BankRecord{Amount: -500000, Date: day(10), Narration: "UPI/1234/ACME TRADERS/PAYMENT"}
		l := &storage.LedgerRecord{Amount: 500000, Date: day(10), Party: "Acme Traders"}

		res, ok := scorer.Score(b, l, cfg)
		require.True(t, ok)
		assert.Equal(t, scorer.ConfidenceExact, res.Confidence)
	})

	t.Run("zero dates never score", func(t *testing.T) {
		b := &storage.BankRecord{Amount: 100, Narration: "UPI/1/ACME"}
		l := &storage.LedgerRecord{Amount: 100, Date: day(10), Party: "Acme"}

		_, ok := scorer.Score(b, l, cfg)
		assert.False(t, ok)
	})
}

func TestScore_ExactTier(t *testing.T) {
	cfg := scorer.DefaultConfig()

	t.Run("same day same amount is exact 100", func(t *testing.T) {
		b := &storage.BankRecord{Amount: 500000, Date: day(10), Narration: "UPI/1234567890/ACME TRADERS/PAYMENT"}
		l := &storage.LedgerRecord{Amount: 500000, Date: day(10), Party: "Acme Traders"}

		res, ok := scorer.Score(b, l, cfg)
		require.True(t, ok)
		assert.Equal(t, scorer.ConfidenceExact, res.Confidence)
		assert.Equal(t, scorer.MatchExact, res.Type)
	})

	t.Run("exact ignores narration entirely", func(t *testing.T) {
		b := &storage.BankRecord{Amount: 500000, Date: day(10), Narration: "CHQ DEP 000123"}
		l := &storage.LedgerRecord{Amount: 500000, Date: day(10), Party: "Totally Unrelated"}

		res, ok := scorer.Score(b, l, cfg)
		require.True(t, ok)
		assert.Equal(t, scorer.ConfidenceExact, res.Confidence)
	})

	t.Run("tolerance widens the exact tier", func(t *testing.T) {
		cfg := cfg
		cfg.ExactDateToleranceDays = 2

		b := &storage.BankRecord{Amount: 500000, Date: day(12), Narration: "CHQ DEP"}
		l := &storage.LedgerRecord{Amount: 500000, Date: day(10), Party: "Acme Traders"}

		res, ok := scorer.Score(b, l, cfg)
		require.True(t, ok)
		assert.Equal(t, scorer.ConfidenceExact, res.Confidence)
		assert.Equal(t, scorer.MatchExact, res.Type)
	})
}

func TestScore_FuzzyTier(t *testing.T) {
	cfg := scorer.DefaultConfig()

	t.Run("key equality scores 95", func(t *testing.T) {
		b := &storage.BankRecord{Amount: 500000, Date: day(13), Narration: "UPI/1234567890/ACME TRADERS/PAYMENT"}
		l := &storage.LedgerRecord{Amount: 500000, Date: day(10), Party: "Acme Traders"}

		res, ok := scorer.Score(b, l, cfg)
		require.True(t, ok)
		assert.Equal(t, scorer.ConfidenceKeyMatch, res.Confidence)
		assert.Equal(t, scorer.MatchFuzzy, res.Type)
	})

	t.Run("token containment scores full fuzzy", func(t *testing.T) {
		b := &storage.BankRecord{Amount: 500000, Date: day(13), Narration: "NEFT/HDFC0000354/ACME TRADERS PVT LTD/INV"}
		l := &storage.LedgerRecord{Amount: 500000, Date: day(10), Party: "Acme Traders"}

		res, ok := scorer.Score(b, l, cfg)
		require.True(t, ok)
		// sim 1.0 → 60 + 35
		assert.Equal(t, 95, res.Confidence)
		assert.Equal(t, scorer.MatchFuzzy, res.Type)
	})

	t.Run("outside fuzzy window fails", func(t *testing.T) {
		b := &storage.BankRecord{Amount: 500000, Date: day(25), Narration: "UPI/1234/ACME TRADERS/PAYMENT"}
		l := &storage.LedgerRecord{Amount: 500000, Date: day(10), Party: "Acme Traders"}

		_, ok := scorer.Score(b, l, cfg)
		assert.False(t, ok)
	})

	t.Run("dissimilar names fail the similarity floor", func(t *testing.T) {
		b := &storage.BankRecord{Amount: 500000, Date: day(13), Narration: "UPI/1234/ZEBRA HOLDINGS/PAYMENT"}
		l := &storage.LedgerRecord{Amount: 500000, Date: day(10), Party: "Acme Traders"}

		_, ok := scorer.Score(b, l, cfg)
		assert.False(t, ok)
	})

	t.Run("empty party fails fuzzy", func(t *testing.T) {
		b := &storage.BankRecord{Amount: 500000, Date: day(13), Narration: "UPI/1234/ACME TRADERS/PAYMENT"}
		l := &storage.LedgerRecord{Amount: 500000, Date: day(10), Party: ""}

		_, ok := scorer.Score(b, l, cfg)
		assert.False(t, ok)
	})

	t.Run("fuzzy confidence stays within tier bounds", func(t *testing.T) {
		b := &storage.BankRecord{Amount: 500000, Date: day(13), Narration: "UPI/1234/ACME TRADING CO/PAYMENT"}
		l := &storage.LedgerRecord{Amount: 500000, Date: day(10), Party: "Acme Traders Co"}

		res, ok := scorer.Score(b, l, cfg)
		require.True(t, ok)
		assert.GreaterOrEqual(t, res.Confidence, 60)
		assert.LessOrEqual(t, res.Confidence, 95)
	})
}

func TestNameSimilarity(t *testing.T) {
	t.Run("identical names", func(t *testing.T) {
		assert.Equal(t, 1.0, scorer.NameSimilarity("ACME TRADERS", "Acme Traders"))
	})

	t.Run("containment counts as full overlap", func(t *testing.T) {
		assert.Equal(t, 1.0, scorer.NameSimilarity("ACME TRADERS PVT LTD", "Acme Traders"))
	})

	t.Run("rail narration reduces to extracted name", func(t *testing.T) {
		assert.Equal(t, 1.0, scorer.NameSimilarity("UPI/1234567890/ACME TRADERS/PAYMENT", "Acme Traders"))
	})

	t.Run("unrelated names score low", func(t *testing.T) {
		sim := scorer.NameSimilarity("ZEBRA HOLDINGS", "Acme Traders")
		assert.Less(t, sim, 0.5)
	})

	t.Run("empty inputs score zero", func(t *testing.T) {
		assert.Equal(t, 0.0, scorer.NameSimilarity("", "Acme Traders"))
		assert.Equal(t, 0.0, scorer.NameSimilarity("ACME", ""))
	})
}
