package scorer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fintrack/recon-backend/internal/infrastructure/storage"
)

// Key is the canonical RAIL:NAME token extracted from a bank narration.
// Two narrations with equal keys refer to the same counterparty over the
// same payment rail.
type Key struct {
	Rail string // UPI, NEFT, RTGS, IMPS, ACH, PG, RCV
	Name string // normalized counterparty name
}

// String renders the canonical form, e.g. "UPI:ACME TRADERS".
func (k Key) String() string {
	return k.Rail + ":" + k.Name
}

var (
	railPrefixRe   = regexp.MustCompile(`^(UPI|NEFT|RTGS|IMPS|ACH|NACH)\b[/\-: ]*(.+)$`)
	receivedFromRe = regexp.MustCompile(`^(?:RECEIVED|RCVD)\s+FROM[:\s]+(.+)$`)
	gatewayRe      = regexp.MustCompile(`^(RAZORPAY|PAYTM|PAYU|BILLDESK|CASHFREE|CCAVENUE)\b[/\-: ]*(.*)$`)

	// IFSC codes show up as narration segments (e.g. NEFT/HDFC0000354/...)
	ifscRe = regexp.MustCompile(`^[A-Z]{4}0[A-Z0-9]{6}$`)

	nonNameRe    = regexp.MustCompile(`[^A-Z0-9 ]+`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Segments that never name a counterparty.
var railNoise = map[string]bool{
	"P2M": true, "P2P": true, "PAYMENT": true, "PAY": true, "REF": true,
	"TRANSFER": true, "TXN": true, "UTR": true, "MB": true, "IB": true,
	"NET": true, "BANK": true, "DR": true, "CR": true, "FROM": true, "TO": true,
}

// ExtractKey reduces a free-text narration to its canonical RAIL:NAME key.
// Returns ok=false when no rail pattern applies or no name segment survives
// the noise filter.
func ExtractKey(narration string) (Key, bool) {
	s := normalizeNarration(narration)
	if s == "" {
		return Key{}, false
	}

	if m := receivedFromRe.FindStringSubmatch(s); m != nil {
		if name := bestNameSegment(m[1]); name != "" {
			return Key{Rail: "RCV", Name: name}, true
		}
		return Key{}, false
	}

	if m := gatewayRe.FindStringSubmatch(s); m != nil {
		name := bestNameSegment(m[2])
		if name == "" {
			// Settlement lines often carry only the gateway's own name.
			name = m[1]
		}
		return Key{Rail: "PG", Name: name}, true
	}

	if m := railPrefixRe.FindStringSubmatch(s); m != nil {
		rail := m[1]
		if rail == "NACH" {
			rail = "ACH"
		}
		if name := bestNameSegment(m[2]); name != "" {
			return Key{Rail: rail, Name: name}, true
		}
	}

	return Key{}, false
}

// bestNameSegment picks the first narration segment that looks like a
// counterparty name rather than a reference number or an IFSC code.
func bestNameSegment(s string) string {
	for _, seg := range strings.FieldsFunc(s, func(r rune) bool {
		return r == '/' || r == '-' || r == ':'
	}) {
		seg = strings.TrimSpace(seg)
		if seg == "" || railNoise[whitespaceRe.ReplaceAllString(seg, "")] {
			continue
		}
		if ifscRe.MatchString(seg) {
			continue
		}
		letters, digits := 0, 0
		for _, r := range seg {
			switch {
			case r >= 'A' && r <= 'Z':
				letters++
			case r >= '0' && r <= '9':
				digits++
			}
		}
		if letters >= 2 && letters > digits {
			return NormalizeName(seg)
		}
	}
	return ""
}

// NormalizeName canonicalizes a party name for comparison: uppercase,
// punctuation stripped, whitespace collapsed.
func NormalizeName(s string) string {
	s = strings.ToUpper(s)
	s = nonNameRe.ReplaceAllString(s, " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func normalizeNarration(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return whitespaceRe.ReplaceAllString(s, " ")
}

// Tokens splits a normalized name into comparison tokens. Tokens shorter
// than two characters are dropped to avoid spurious overlap.
func Tokens(s string) []string {
	var out []string
	for _, tok := range strings.Fields(NormalizeName(s)) {
		if len(tok) < 2 {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// Signature derives the duplicate-detection key of a ledger record: the
// invoice number when present, else a composite of date, amount, party and
// type.
func Signature(l *storage.LedgerRecord) string {
	if inv := strings.ToUpper(strings.TrimSpace(l.InvoiceNo)); inv != "" {
		return "INV:" + inv
	}
	return fmt.Sprintf("%s|%d|%s|%s",
		l.Date.Format("2006-01-02"), l.Amount, NormalizeName(l.Party), l.Type)
}
