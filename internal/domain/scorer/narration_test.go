package scorer_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintrack/recon-backend/internal/domain/scorer"
	"github.com/fintrack/recon-backend/internal/infrastructure/storage"
)

func TestExtractKey(t *testing.T) {
	tests := []struct {
		name      string
		narration string
		wantRail  string
		wantName  string
		wantOK    bool
	}{
		{
			name:      "upi with reference and name",
			narration: "UPI/1234567890/ACME TRADERS/PAYMENT",
			wantRail:  "UPI",
			wantName:  "ACME TRADERS",
			wantOK:    true,
		},
		{
			name:      "upi p2m noise skipped",
			narration: "UPI/P2M/987654/SWIGGY/BANGALORE",
			wantRail:  "UPI",
			wantName:  "SWIGGY",
			wantOK:    true,
		},
		{
			name:      "neft with ifsc segment skipped",
			narration: "NEFT/HDFC0000354/GLOBEX CORP/INV 221",
			wantRail:  "NEFT",
			wantName:  "GLOBEX CORP",
			wantOK:    true,
		},
		{
			name:      "rtgs dash separated",
			narration: "RTGS-UTIB0000012-INITECH LLC",
			wantRail:  "RTGS",
			wantName:  "INITECH LLC",
			wantOK:    true,
		},
		{
			name:      "imps colon separated",
			narration: "IMPS:509912345678:RAVI KUMAR",
			wantRail:  "IMPS",
			wantName:  "RAVI KUMAR",
			wantOK:    true,
		},
		{
			name:      "nach normalizes to ach",
			narration: "NACH/LIC OF INDIA/PREMIUM",
			wantRail:  "ACH",
			wantName:  "LIC OF INDIA",
			wantOK:    true,
		},
		{
			name:      "received from form",
			narration: "RECEIVED FROM: STARK INDUSTRIES",
			wantRail:  "RCV",
			wantName:  "STARK INDUSTRIES",
			wantOK:    true,
		},
		{
			name:      "gateway settlement with merchant",
			narration: "RAZORPAY/WAYNE ENTERPRISES/SETTLEMENT",
			wantRail:  "PG",
			wantName:  "WAYNE ENTERPRISES",
			wantOK:    true,
		},
		{
			name:      "gateway settlement without merchant keeps gateway name",
			narration: "PAYTM/90331122",
			wantRail:  "PG",
			wantName:  "PAYTM",
			wantOK:    true,
		},
		{
			name:      "lowercase input normalized",
			narration: "upi/4455/acme traders/p2p",
			wantRail:  "UPI",
			wantName:  "ACME TRADERS",
			wantOK:    true,
		},
		{
			name:      "no rail prefix",
			narration: "CHQ DEP 000123",
			wantOK:    false,
		},
		{
			name:      "rail with only numeric segments",
			narration: "UPI/123456/789012",
			wantOK:    false,
		},
		{
			name:      "empty narration",
			narration: "",
			wantOK:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, ok := scorer.ExtractKey(tt.narration)
			require.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.wantRail, key.Rail)
			assert.Equal(t, tt.wantName, key.Name)
		})
	}
}

func TestKeyString(t *testing.T) {
	key := scorer.Key{Rail: "UPI", Name: "ACME TRADERS"}
	assert.Equal(t, "UPI:ACME TRADERS", key.String())
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "ACME TRADERS PVT LTD", scorer.NormalizeName("  Acme Traders Pvt. Ltd. "))
	assert.Equal(t, "RAVI KUMAR", scorer.NormalizeName("ravi   kumar"))
	assert.Equal(t, "", scorer.NormalizeName("..."))
}

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"ACME", "TRADERS"}, scorer.Tokens("Acme Traders"))

	// Single-character tokens are dropped.
	assert.Equal(t, []string{"ACME"}, scorer.Tokens("A ACME B"))
	assert.Nil(t, scorer.Tokens("a b c"))
}

func TestSignature(t *testing.T) {
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	t.Run("invoice number wins when present", func(t *testing.T) {
		l := &storage.LedgerRecord{
			Date: date, Amount: 500000, Party: "Acme Traders",
			Type: storage.LedgerSale, InvoiceNo: " inv-221 ",
		}
		assert.Equal(t, "INV:INV-221", scorer.Signature(l))
	})

	t.Run("composite fallback", func(t *testing.T) {
		l := &storage.LedgerRecord{
			Date: date, Amount: 500000, Party: "Acme Traders",
			Type: storage.LedgerSale,
		}
		assert.Equal(t, "2026-03-10|500000|ACME TRADERS|sale", scorer.Signature(l))
	})

	t.Run("same invoice different dates collide", func(t *testing.T) {
		a := &storage.LedgerRecord{Date: date, Amount: 100, InvoiceNo: "X1", Type: storage.LedgerSale}
		b := &storage.LedgerRecord{Date: date.AddDate(0, 0, 3), Amount: 100, InvoiceNo: "X1", Type: storage.LedgerSale}
		assert.Equal(t, scorer.Signature(a), scorer.Signature(b))
	})
}
