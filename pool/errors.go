package pool

import "errors"

var (
	// ErrNoCandidate is returned when a job is requested before Refresh has
	// built an initial candidate block.
	ErrNoCandidate = errors.New("pool: no candidate block built yet")
	// ErrUnknownJob is returned when a share references a job_id the pool
	// never issued or has since discarded (candidate moved on).
	ErrUnknownJob = errors.New("pool: unknown or stale job id")
	// ErrShareBelowTarget is returned when neither the pool target nor the
	// network target is met by the submitted nonce (spec.md §4.5 step 4).
	ErrShareBelowTarget = errors.New("pool: share does not meet pool target")
)
