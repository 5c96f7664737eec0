package sdk

import "errors"

var (
	// ErrAlreadyInitialized is returned by Initialize when the coordinator is
	// initializing or initialized.
	ErrAlreadyInitialized = errors.New("sdk already initialized or initializing")
	// ErrInvalidContext is returned when Initialize gets a non-application context.
	ErrInvalidContext = errors.New("sdk must be initialized with an application context")
	// ErrNotInitialized is returned by WaitForInitialization when no attempt is
	// running or the running attempt was cancelled by Cleanup.
	ErrNotInitialized = errors.New("sdk not initialized")
	// ErrSlotDestroyed is returned by operations on a destroyed slot.
	ErrSlotDestroyed = errors.New("ad slot destroyed")
)
