package common

import "errors"

// Closed set of caller-facing failures. Callers match with errors.Is and
// render a message per code; anything outside this set is a backend fault.
var (
	ErrNoTarget        = errors.New("no target given")
	ErrTargetMissing   = errors.New("target user does not exist")
	ErrDuplicateRename = errors.New("an open rename proposal already exists for this target")
	ErrTopicCreate     = errors.New("failed to create discussion topic")
	ErrExpired         = errors.New("voting window already closed")
	ErrAlreadyHandled  = errors.New("sanction already handled")
)
