package model

// Identity is the acting user as supplied by the identity collaborator.
//
// The engine only reads it. Sign-in, profile photos and presence belong to the
// collaborator and never reach this package.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// Profile summarises one member's authored suggestions on a board.
type Profile struct {
	UserID          string       `json:"userId"`
	BoardID         string       `json:"boardId"`
	SuggestionCount int          `json:"count"`
	TotalScore      int          `json:"score"`
	History         []Suggestion `json:"history"`
}
