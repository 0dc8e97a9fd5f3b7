package domain

import "errors"

var (
	// ErrNoActiveQuestion is returned when an answer arrives while no question is posted.
	ErrNoActiveQuestion = errors.New("no active question")
	// ErrGradingUnavailable marks a grading attempt that failed; the submission is still kept.
	ErrGradingUnavailable = errors.New("grading unavailable")
	// ErrProblemNotFound indicates the problem bank has no entry for the requested ID.
	ErrProblemNotFound = errors.New("problem not found")
)
