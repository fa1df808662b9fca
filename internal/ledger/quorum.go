package ledger

import (
	"fmt"
	"math"

	"github.com/sakif/suggestion-board/internal/model"
)

// Quorum modes accepted by ParseQuorum.
const (
	QuorumAny      = "any"
	QuorumFraction = "fraction"
)

// DefaultQuorumFraction is the share of the other members that must vote
// before a suggestion is ranked in fraction mode.
const DefaultQuorumFraction = 0.3

// Quorum decides whether a suggestion has enough external voters to be ranked.
// memberCount is the board's member count including the author.
type Quorum func(s *model.Suggestion, memberCount int) bool

// AtLeastOne ranks a suggestion once anyone other than its author has voted.
func AtLeastOne(s *model.Suggestion, _ int) bool {
	return VotersExcludingAuthor(s.Votes, s.AuthorID) >= 1
}

// Fraction ranks a suggestion once ceil((members-1) * f) other members voted.
// The threshold never drops below one voter.
func Fraction(f float64) Quorum {
	return func(s *model.Suggestion, memberCount int) bool {
		return VotersExcludingAuthor(s.Votes, s.AuthorID) >= QuorumThreshold(memberCount, f)
	}
}

// QuorumThreshold returns ceil((memberCount-1) * f), floored at 1.
func QuorumThreshold(memberCount int, f float64) int {
	need := int(math.Ceil(float64(memberCount-1) * f))
	if need < 1 {
		need = 1
	}
	return need
}

// ParseQuorum maps a config mode to a predicate. Empty means AtLeastOne.
func ParseQuorum(mode string, fraction float64) (Quorum, error) {
	switch mode {
	case "", QuorumAny:
		return AtLeastOne, nil
	case QuorumFraction:
		if fraction <= 0 || fraction > 1 {
			return nil, fmt.Errorf("ledger: quorum fraction %v must be in (0, 1]", fraction)
		}
		return Fraction(fraction), nil
	default:
		return nil, fmt.Errorf("ledger: unknown quorum mode %q", mode)
	}
}
