package matcher

// Resolve turns a ranked candidate list into a non-conflicting one-to-one
// assignment. Greedy: candidates are taken in rank order, and any candidate
// whose bank or ledger side was already consumed by an earlier candidate is
// dropped.
//
// This is not a maximum-weight matching; greedy-by-confidence is sufficient
// while duplicate-amount collisions stay rare.
func Resolve(candidates []Candidate) []Candidate {
	usedBank := make(map[int64]bool)
	usedLedger := make(map[int64]bool)

	var assigned []Candidate
	for _, c := range candidates {
		if usedBank[c.BankID] || usedLedger[c.LedgerID] {
			continue
		}
		usedBank[c.BankID] = true
		usedLedger[c.LedgerID] = true
		assigned = append(assigned, c)
	}
	return assigned
}
