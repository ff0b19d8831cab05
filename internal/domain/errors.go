package domain

import "errors"

var (
	// ErrEmptyMessage signals a blank or missing chat message.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrGenerationTimeout signals that generation exceeded the wall-clock budget.
	ErrGenerationTimeout = errors.New("generation timed out")
	// ErrGenerationUpstream signals an inference service failure or malformed payload.
	ErrGenerationUpstream = errors.New("inference service error")
	// ErrUnknownGoal signals an unrecognized recommendation goal.
	ErrUnknownGoal = errors.New("unknown goal")
	// ErrDatasetNotLoaded signals an empty or missing food catalog.
	ErrDatasetNotLoaded = errors.New("dataset not loaded")
)
