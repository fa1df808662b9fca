package ledger

import (
	"fmt"

	"github.com/sakif/suggestion-board/internal/model"
)

// Boost rule names accepted by ParseBoostRule.
const (
	RuleReinforce = "reinforce"
	RuleTieBreak  = "tiebreak"
)

// BoostRule decides the value a boost appends.
type BoostRule interface {
	Name() string
	Value(votes model.Votes, voterID, authorID string) int
}

// Reinforce repeats the voter's last value. A voter with no prior vote (or the
// author) gets +1; ApplyBoost rejects both before asking, so only direct
// callers of Value see that case.
type Reinforce struct{}

func (Reinforce) Name() string { return RuleReinforce }

func (Reinforce) Value(votes model.Votes, voterID, authorID string) int {
	seq := votes[voterID]
	if voterID == authorID || len(seq) == 0 {
		return model.VoteUp
	}
	return seq[len(seq)-1]
}

// TieBreak behaves like Reinforce except after a neutral vote: the boost then
// pushes against the current score (score>0 gives -1, score<0 gives +1, 0 stays 0).
type TieBreak struct{}

func (TieBreak) Name() string { return RuleTieBreak }

func (TieBreak) Value(votes model.Votes, voterID, authorID string) int {
	v := Reinforce{}.Value(votes, voterID, authorID)
	if v != model.VoteNeutral {
		return v
	}
	switch score := Score(votes); {
	case score > 0:
		return model.VoteDown
	case score < 0:
		return model.VoteUp
	default:
		return model.VoteNeutral
	}
}

// ParseBoostRule maps a config value to a rule. Empty means Reinforce.
func ParseBoostRule(name string) (BoostRule, error) {
	switch name {
	case "", RuleReinforce:
		return Reinforce{}, nil
	case RuleTieBreak:
		return TieBreak{}, nil
	default:
		return nil, fmt.Errorf("ledger: unknown boost rule %q", name)
	}
}
