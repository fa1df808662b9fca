// Package model defines the documents the board engine reads and writes.
//
// Every record here is a plain structured document: strings, numbers, bools,
// sequences and mappings. The `json:"..."` tags are the persisted field names,
// so renaming a tag is a storage migration, not a refactor.
package model

import "time"

// Vote values a member may cast. A boost appends one more value of the same set.
const (
	VoteDown    = -1
	VoteNeutral = 0
	VoteUp      = 1
)

// Votes maps a voter id to the values they applied, in the order they were applied.
//
// A voter's sequence has length 0 (never voted), 1 (voted) or 2 (voted, then boosted).
// The map itself is unordered; the sequence inside each entry is not.
type Votes map[string][]int

// Content is the body of a suggestion. Image is an external resource reference
// and is stored as-is.
type Content struct {
	Text  string `json:"text"`
	Image string `json:"image,omitempty"`
}

// Report is moderation metadata attached to a suggestion.
type Report struct {
	ReporterID string    `json:"reportedBy"`
	Reason     string    `json:"reason"`
	Timestamp  time.Time `json:"timestamp"`
}

// Suggestion is a short text proposal on a board.
//
// AuthorID, AuthorDisplayName and CreatedAt never change after creation.
// Votes is written only by the vote and boost operations; Reports only by
// report and dismiss.
type Suggestion struct {
	ID                string    `json:"id"`
	BoardID           string    `json:"groupId"`
	AuthorID          string    `json:"author"`
	AuthorDisplayName string    `json:"authorName"`
	Content           Content   `json:"content"`
	Votes             Votes     `json:"votes"`
	Reports           []Report  `json:"reports"`
	CreatedAt         time.Time `json:"createdAt"`
}
