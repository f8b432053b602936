package domain

import "errors"

var (
	// ErrMissingParticipant is returned when an operation lacks a participant identifier.
	ErrMissingParticipant = errors.New("participant identifier required")
	// ErrAssignmentNotFound indicates no task assignment exists for the participant.
	ErrAssignmentNotFound = errors.New("task assignment not found")
	// ErrTaskNotFound indicates the named task is not part of the cached assignment.
	ErrTaskNotFound = errors.New("task not found in assignment")
	// ErrQuestionNotFound indicates the question key is not part of the task.
	ErrQuestionNotFound = errors.New("question not found in task")
	// ErrEmptyQuery rejects a search with a blank query before any network call.
	ErrEmptyQuery = errors.New("search query must not be empty")
	// ErrRetrievalFailed is the user-visible retrieval failure, covering both a
	// failed rewrite and a failed search call.
	ErrRetrievalFailed = errors.New("an error occurred while fetching search results")
	// ErrNoActiveResults is returned when rating or submitting without a result set.
	ErrNoActiveResults = errors.New("no active result set for question")
	// ErrStaleRating rejects a rating that does not match the active result set.
	ErrStaleRating = errors.New("rating does not match the active result set")
	// ErrRatingsIncomplete blocks submission until every displayed result is rated.
	ErrRatingsIncomplete = errors.New("every result must be rated before submission")
	// ErrSubmissionFailed indicates the submission backend rejected or never
	// acknowledged the ratings; the participant must re-trigger submission.
	ErrSubmissionFailed = errors.New("submission failed")
	// ErrMalformedResponse indicates a backend payload did not match its schema.
	ErrMalformedResponse = errors.New("malformed backend response")
)
