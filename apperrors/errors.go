package apperrors

func (d Definition) Error() string {
	return d.Message
}

// Definition is a business error code with its default message. Values
// are comparable, so errors.Is works against the package variables.
type Definition struct {
	Code    string
	Message string
}

// Mission lifecycle errors.
var (
	DuplicateAssignment = Definition{Code: "DUPLICATE_ASSIGNMENT", Message: "Mission already assigned for this period"}
	InvalidTransition   = Definition{Code: "INVALID_TRANSITION", Message: "Mission is not in a state that allows this transition"}
	AlreadyCompleted    = Definition{Code: "ALREADY_COMPLETED", Message: "Mission already completed"}
)

// Verification quorum errors.
var (
	DuplicateSubmission = Definition{Code: "DUPLICATE_SUBMISSION", Message: "A proof submission already exists for this mission"}
	SelfVote            = Definition{Code: "SELF_VOTE", Message: "Cannot vote on your own submission"}
	AlreadyVoted        = Definition{Code: "ALREADY_VOTED", Message: "Already voted on this submission"}
	SubmissionClosed    = Definition{Code: "SUBMISSION_CLOSED", Message: "Submission is no longer pending"}
	NotSubmissionOwner  = Definition{Code: "NOT_SUBMISSION_OWNER", Message: "Submission belongs to another user"}
)

// Badge errors.
var (
	AlreadyIssued = Definition{Code: "ALREADY_ISSUED", Message: "Badge already issued for this mission"}
)

// Lookup failures.
var (
	NotFound = Definition{Code: "NOT_FOUND", Message: "Resource not found"}
)

// Lookup maps codes back to definitions for API error payloads.
var Lookup = map[string]Definition{
	DuplicateAssignment.Code: DuplicateAssignment,
	InvalidTransition.Code:   InvalidTransition,
	AlreadyCompleted.Code:    AlreadyCompleted,
	DuplicateSubmission.Code: DuplicateSubmission,
	SelfVote.Code:            SelfVote,
	AlreadyVoted.Code:        AlreadyVoted,
	SubmissionClosed.Code:    SubmissionClosed,
	NotSubmissionOwner.Code:  NotSubmissionOwner,
	AlreadyIssued.Code:       AlreadyIssued,
	NotFound.Code:            NotFound,
}

// Get returns the Definition for a code, or a generic one if unknown.
func Get(code string) Definition {
	if def, ok := Lookup[code]; ok {
		return def
	}
	return Definition{Code: code, Message: "Unexpected error"}
}
