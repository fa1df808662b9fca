package model

import (
	"slices"
	"time"
)

// Board is a scoping container for suggestions, members and economy accounts.
//
// Admins are always members as well. Boards are archived, never hard-deleted.
type Board struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedBy string    `json:"createdBy"`
	AdminIDs  []string  `json:"admins"`
	MemberIDs []string  `json:"members"`
	Archived  bool      `json:"archived"`
	CreatedAt time.Time `json:"createdAt"`
}

// IsAdmin reports whether userID administers the board.
func (b *Board) IsAdmin(userID string) bool {
	return slices.Contains(b.AdminIDs, userID)
}

// IsMember reports whether userID belongs to the board. Admins count as members.
func (b *Board) IsMember(userID string) bool {
	return slices.Contains(b.MemberIDs, userID) || b.IsAdmin(userID)
}

// AddMember adds userID to the member set. It reports whether anything changed.
func (b *Board) AddMember(userID string) bool {
	if slices.Contains(b.MemberIDs, userID) {
		return false
	}
	b.MemberIDs = append(b.MemberIDs, userID)
	return true
}

// AddAdmin promotes userID, making it a member too when it wasn't already.
func (b *Board) AddAdmin(userID string) bool {
	changed := b.AddMember(userID)
	if slices.Contains(b.AdminIDs, userID) {
		return changed
	}
	b.AdminIDs = append(b.AdminIDs, userID)
	return true
}

// RemoveMember drops userID from both the member and the admin sets.
func (b *Board) RemoveMember(userID string) bool {
	before := len(b.MemberIDs) + len(b.AdminIDs)
	b.MemberIDs = slices.DeleteFunc(b.MemberIDs, func(id string) bool { return id == userID })
	b.AdminIDs = slices.DeleteFunc(b.AdminIDs, func(id string) bool { return id == userID })
	return len(b.MemberIDs)+len(b.AdminIDs) != before
}

// MemberCount is the size of the member set, counting admins missing from it.
func (b *Board) MemberCount() int {
	n := len(b.MemberIDs)
	for _, id := range b.AdminIDs {
		if !slices.Contains(b.MemberIDs, id) {
			n++
		}
	}
	return n
}
