package model

// Account holds the currency a voter earns on a board.
//
// Fragments stays in [0, 9] after every completed update; ten fragments become
// one boost. UserID is empty when the board runs a shared pool.
type Account struct {
	Key       string `json:"key"`
	BoardID   string `json:"boardId"`
	UserID    string `json:"userId,omitempty"`
	Fragments int    `json:"fragments"`
	Boosts    int    `json:"boosts"`
}
