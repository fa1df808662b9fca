// Package apperror defines the error taxonomy shared by every layer.
//
// Each AppError wraps exactly one category sentinel so callers can branch with
// errors.Is, and carries a Code naming the concrete reason so callers that
// treat some conflicts as benign (AlreadyVoted, NotFound on delete) can tell
// them apart without string matching.
package apperror

import (
	"errors"
	"fmt"
)

// Category sentinels.
var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation error")
	ErrConflict          = errors.New("conflict")
	ErrForbidden         = errors.New("forbidden")
	ErrResourceExhausted = errors.New("resource exhausted")
	ErrUnavailable       = errors.New("unavailable")
)

// Reason codes. These double as the machine-readable "error" field in API responses.
const (
	CodeNotFound           = "not_found"
	CodeValidation         = "validation_error"
	CodeEmptyContent       = "empty_content"
	CodeEmptyReason        = "empty_reason"
	CodeInvalidVote        = "invalid_vote"
	CodeForbidden          = "forbidden"
	CodeSelfVote           = "self_vote"
	CodeBoardArchived      = "board_archived"
	CodeAlreadyVoted       = "already_voted"
	CodeBoostAlreadyUsed   = "boost_already_used"
	CodeNotVoted           = "not_voted"
	CodeInsufficientBoosts = "insufficient_boosts"
	CodeUnavailable        = "unavailable"
)

type AppError struct {
	Err     error  // category sentinel
	Code    string // concrete reason
	Message string // human-readable error message
	Field   string // optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// HasCode reports whether err carries an AppError with the given reason code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Code:    CodeValidation,
		Message: message,
		Field:   field,
	}
}

// EmptyContent rejects a suggestion with neither text nor an attached resource.
func EmptyContent() *AppError {
	return &AppError{
		Err:     ErrValidation,
		Code:    CodeEmptyContent,
		Message: "suggestion text is required",
		Field:   "text",
	}
}

// EmptyReason rejects a report without a reason.
func EmptyReason() *AppError {
	return &AppError{
		Err:     ErrValidation,
		Code:    CodeEmptyReason,
		Message: "report reason is required",
		Field:   "reason",
	}
}

// InvalidVote rejects a vote value outside {-1, 0, 1}.
func InvalidVote(value int) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Code:    CodeInvalidVote,
		Message: fmt.Sprintf("vote value %d must be -1, 0 or 1", value),
		Field:   "value",
	}
}

// BoardArchived rejects any mutation on an archived board.
func BoardArchived(boardID string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Code:    CodeBoardArchived,
		Message: fmt.Sprintf("board %s is archived", boardID),
	}
}

// AlreadyVoted reports a second vote by the same voter. Callers treat it as a no-op.
func AlreadyVoted(suggestionID string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Code:    CodeAlreadyVoted,
		Message: fmt.Sprintf("already voted on suggestion %s", suggestionID),
	}
}

// BoostAlreadyUsed reports a second boost by the same voter.
func BoostAlreadyUsed(suggestionID string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Code:    CodeBoostAlreadyUsed,
		Message: fmt.Sprintf("boost already used on suggestion %s", suggestionID),
	}
}

// NotVoted rejects a boost from a voter with no prior vote.
func NotVoted(suggestionID string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Code:    CodeNotVoted,
		Message: fmt.Sprintf("vote on suggestion %s before boosting it", suggestionID),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Code:    CodeForbidden,
		Message: message,
	}
}

// SelfVote rejects an author voting on or boosting their own suggestion.
func SelfVote(suggestionID string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Code:    CodeSelfVote,
		Message: fmt.Sprintf("authors cannot vote on their own suggestion %s", suggestionID),
	}
}

// InsufficientBoosts is surfaced to the user; it is never retried.
func InsufficientBoosts() *AppError {
	return &AppError{
		Err:     ErrResourceExhausted,
		Code:    CodeInsufficientBoosts,
		Message: "no boosts available",
	}
}

// Unavailable wraps a transport or driver failure from the document store.
func Unavailable(op string, err error) *AppError {
	return &AppError{
		Err:     errors.Join(ErrUnavailable, err),
		Code:    CodeUnavailable,
		Message: fmt.Sprintf("store unavailable: %s", op),
	}
}
