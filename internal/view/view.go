// Package view derives what a viewer sees from a board's suggestions.
//
// Nothing here is stored. Views are recomputed from a full suggestion list
// every time that list changes.
package view

import (
	"sort"

	"github.com/sakif/suggestion-board/internal/ledger"
	"github.com/sakif/suggestion-board/internal/model"
)

// Entry is a suggestion with its score precomputed for display.
type Entry struct {
	model.Suggestion
	Score  int `json:"score"`
	Voters int `json:"voters"`
}

// Views are the three lists shown to one viewer.
//
// Pending and Review are disjoint. A suggestion can sit in Ranked as well as
// in either of them.
type Views struct {
	BoardID string  `json:"boardId"`
	Viewer  string  `json:"viewer"`
	Pending []Entry `json:"pending"`
	Review  []Entry `json:"review"`
	Ranked  []Entry `json:"ranked"`
}

// Project splits suggestions for viewerID.
//
//	Pending  the viewer has not voted and is not the author
//	Review   the viewer voted, or is the author
//	Ranked   passes quorum; score desc, then oldest first, then id
//
// Pending and Review keep the input order.
func Project(boardID string, suggestions []model.Suggestion, viewerID string, quorum ledger.Quorum, memberCount int) Views {
	v := Views{
		BoardID: boardID,
		Viewer:  viewerID,
		Pending: []Entry{},
		Review:  []Entry{},
		Ranked:  []Entry{},
	}

	for _, s := range suggestions {
		e := Entry{
			Suggestion: s,
			Score:      ledger.Score(s.Votes),
			Voters:     ledger.VotersExcludingAuthor(s.Votes, s.AuthorID),
		}

		if ledger.HasVoted(s.Votes, viewerID) || s.AuthorID == viewerID {
			v.Review = append(v.Review, e)
		} else {
			v.Pending = append(v.Pending, e)
		}

		if quorum(&s, memberCount) {
			v.Ranked = append(v.Ranked, e)
		}
	}

	SortRanked(v.Ranked)
	return v
}

// SortRanked orders entries by score descending. Equal scores fall back to
// creation time, oldest first, and then to id so the order is total.
func SortRanked(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
