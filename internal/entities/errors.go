package entities

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicate         = errors.New("already exists")
	ErrQueueEntryClosed  = errors.New("queue entry is no longer pending")
	ErrUsageLimitReached = errors.New("monthly analysis limit reached")
	ErrInvalidInput      = errors.New("invalid input")
	ErrReplySendFailed   = errors.New("reply could not be sent")
	ErrSyncInProgress    = errors.New("sync already running")
)
