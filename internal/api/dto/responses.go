package dto

import "github.com/fintrack/recon-backend/internal/domain/matcher"

// CandidatesResponse lists ranked candidates for review.
type CandidatesResponse struct {
	Candidates []matcher.Candidate `json:"candidates"`
	Count      int                 `json:"count"`
}

// AppliedResponse reports how many candidate pairs were written.
type AppliedResponse struct {
	Applied int `json:"applied"`
}

// MatchedResponse acknowledges a single match.
type MatchedResponse struct {
	Matched bool `json:"matched"`
}

// GroupCreatedResponse returns the id of a new match group.
type GroupCreatedResponse struct {
	GroupID string `json:"group_id"`
}

// UnmatchedResponse reports whether an unmatch changed anything. Found is
// false when the record was never matched (or the group did not exist).
type UnmatchedResponse struct {
	Found bool `json:"found"`
}
