package evolver

import "errors"

var (
	// ErrNoCandidates means the service answered with zero candidates, usually a safety block.
	ErrNoCandidates = errors.New("model returned no candidates")
	// ErrCompileTimeout means the artifact never compiled within the poll budget.
	ErrCompileTimeout = errors.New("shader did not compile in time")
	// ErrIndexOutOfRange is returned for a slot index outside the configured slots.
	ErrIndexOutOfRange = errors.New("slot index out of range")
	// ErrInvalidTransition is returned when a slot is asked to make an illegal phase change.
	ErrInvalidTransition = errors.New("invalid slot transition")
)
