package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a battle session has not been started.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionEnded is returned for gameplay calls after Won/Lost.
	ErrSessionEnded = errors.New("session already ended")
	// ErrNotAccepting is returned for submissions while the session is paused.
	ErrNotAccepting = errors.New("session not accepting answers")
	// ErrSetNotFound indicates the question-set content could not be loaded.
	ErrSetNotFound = errors.New("question set not found")
	// ErrEmptySet indicates a set with no questions was supplied.
	ErrEmptySet = errors.New("question set has no questions")
	// ErrNoSubmission indicates a submission with no values.
	ErrNoSubmission = errors.New("submission has no values")
)
