package editor

import "errors"

// Sentinel errors for edit sessions.
var (
	// ErrBusy indicates an edit is already in flight for this session.
	ErrBusy = errors.New("edit already in progress")

	// ErrClosed indicates the session has been discarded.
	ErrClosed = errors.New("session closed")

	// ErrEmptyInstruction indicates the edit instruction was blank.
	ErrEmptyInstruction = errors.New("empty instruction")

	// ErrEmptyResponse indicates the model returned nothing after fence
	// stripping.
	ErrEmptyResponse = errors.New("empty model response")

	// ErrResponseTooShort indicates the response fell below the
	// plausibility threshold and is treated as truncated output.
	ErrResponseTooShort = errors.New("model response too short")
)
