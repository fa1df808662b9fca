// Package ledger holds the vote bookkeeping for a single suggestion.
//
// Everything here is a pure function over model.Votes or a *model.Suggestion
// the caller owns. Nothing touches a store: the service layer reads a
// suggestion, runs one of these transitions inside a docstore update, and
// persists the result.
//
// STATE MACHINE per (suggestion, voter):
//
//	NOT_VOTED --CastVote--> VOTED --ApplyBoost--> BOOSTED (terminal)
//
// No transition removes or decrements a recorded value.
package ledger

import (
	"github.com/sakif/suggestion-board/internal/apperror"
	"github.com/sakif/suggestion-board/internal/model"
)

// MaxSequence is the longest vote sequence a voter may hold: one vote plus one boost.
const MaxSequence = 2

// Score sums every value of every voter.
func Score(votes model.Votes) int {
	total := 0
	for _, seq := range votes {
		for _, v := range seq {
			total += v
		}
	}
	return total
}

// HasVoted reports whether voterID has a non-empty sequence.
func HasVoted(votes model.Votes, voterID string) bool {
	return len(votes[voterID]) > 0
}

// BoostUsed reports whether voterID already applied their boost.
func BoostUsed(votes model.Votes, voterID string) bool {
	return len(votes[voterID]) > 1
}

// VotersExcludingAuthor counts distinct voters other than the author who hold a
// non-empty sequence.
func VotersExcludingAuthor(votes model.Votes, authorID string) int {
	n := 0
	for voter, seq := range votes {
		if voter != authorID && len(seq) > 0 {
			n++
		}
	}
	return n
}

// ValidValue reports whether v is one of -1, 0, 1.
func ValidValue(v int) bool {
	return v >= model.VoteDown && v <= model.VoteUp
}

// CastVote records voterID's first vote on s.
//
// Errors: InvalidVote for a value outside {-1,0,1}, SelfVote for the author,
// AlreadyVoted when the voter already holds a sequence. On error s is untouched.
func CastVote(s *model.Suggestion, voterID string, value int) error {
	if !ValidValue(value) {
		return apperror.InvalidVote(value)
	}
	if voterID == s.AuthorID {
		return apperror.SelfVote(s.ID)
	}
	if HasVoted(s.Votes, voterID) {
		return apperror.AlreadyVoted(s.ID)
	}

	if s.Votes == nil {
		s.Votes = make(model.Votes)
	}
	s.Votes[voterID] = []int{value}
	return nil
}

// ApplyBoost appends voterID's boost to s and returns the applied value.
//
// A boost needs a prior vote: boosting from NOT_VOTED would leave a length-1
// sequence indistinguishable from a plain vote. rule decides the value.
//
// Errors: SelfVote for the author, NotVoted without a prior vote,
// BoostAlreadyUsed when the sequence is already at MaxSequence.
func ApplyBoost(s *model.Suggestion, voterID string, rule BoostRule) (int, error) {
	if voterID == s.AuthorID {
		return 0, apperror.SelfVote(s.ID)
	}
	if BoostUsed(s.Votes, voterID) {
		return 0, apperror.BoostAlreadyUsed(s.ID)
	}
	if !HasVoted(s.Votes, voterID) {
		return 0, apperror.NotVoted(s.ID)
	}

	applied := rule.Value(s.Votes, voterID, s.AuthorID)
	s.Votes[voterID] = append(s.Votes[voterID], applied)
	return applied, nil
}
