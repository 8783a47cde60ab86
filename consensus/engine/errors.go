package engine

import "errors"

// Error kinds for the consensus engine (spec.md §7).
var (
	// ErrInvalidBlock is wrapped around the underlying coretypes verification
	// error when a staged or inbound block fails self-verification.
	ErrInvalidBlock = errors.New("consensus: invalid block")
	// ErrBlockNotInsertable is returned by TestBlockInsertable.
	ErrBlockNotInsertable = errors.New("consensus: block not insertable on local tip")
	// ErrForkRejected is returned when an inbound chain does not out-weigh
	// the existing main chain suffix at the same height.
	ErrForkRejected = errors.New("consensus: inbound fork has insufficient cumulative difficulty")
)
