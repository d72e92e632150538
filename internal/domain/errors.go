package domain

import "errors"

// Sentinel errors used across layers.
var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrNotImplemented    = errors.New("not implemented")
	ErrParse             = errors.New("could not parse command")
	ErrUnknownAction     = errors.New("unknown action")
	ErrMissingParam      = errors.New("missing required parameter")
	ErrWorkflowAborted   = errors.New("workflow aborted")
	ErrRecognitionMiss   = errors.New("speech not recognized")
	ErrTransient         = errors.New("transient llm failure")
	ErrModelNotFound     = errors.New("model not found")
	ErrDuplicateAction   = errors.New("action already registered")
	ErrRegistryFrozen    = errors.New("registry is frozen")
	ErrDeviceUnavailable = errors.New("device unavailable")
)
