package economy

import "fmt"

// Scope names accepted by ParseScope.
const (
	ScopeMember = "member"
	ScopeBoard  = "board"
)

// Scope decides which account a voter earns into and spends from.
type Scope interface {
	Name() string
	// Key returns the account key for userID acting on boardID.
	Key(boardID, userID string) string
	// Owner returns the UserID stored on the account, empty for a shared pool.
	Owner(userID string) string
}

// PerMember gives every member a private account on each board.
type PerMember struct{}

func (PerMember) Name() string                      { return ScopeMember }
func (PerMember) Key(boardID, userID string) string { return boardID + "/" + userID }
func (PerMember) Owner(userID string) string        { return userID }

// SharedPool makes every member of a board earn into and spend from one account.
type SharedPool struct{}

func (SharedPool) Name() string                 { return ScopeBoard }
func (SharedPool) Key(boardID, _ string) string { return boardID }
func (SharedPool) Owner(string) string          { return "" }

// ParseScope maps a config value to a Scope. Empty means PerMember.
func ParseScope(name string) (Scope, error) {
	switch name {
	case "", ScopeMember:
		return PerMember{}, nil
	case ScopeBoard:
		return SharedPool{}, nil
	default:
		return nil, fmt.Errorf("economy: unknown scope %q", name)
	}
}
