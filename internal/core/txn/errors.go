package txn

import "errors"

// Error taxonomy for the transactional core. Callers test membership
// with errors.Is; the original driver error stays on the wrap chain.
var (
	// ErrTxConflict marks a store-reported serialization or write
	// conflict. Transient, retryable by policy.
	ErrTxConflict = errors.New("transaction conflict")

	// ErrTxTimeout marks a statement or lock timeout. Fatal for the
	// current attempt; the coordinator never retries it itself.
	ErrTxTimeout = errors.New("transaction timeout")

	// ErrDeadlock marks a store-detected circular lock wait.
	// Transient, retryable with jitter.
	ErrDeadlock = errors.New("deadlock detected")

	// ErrVersionConflict marks an optimistic-locked update that
	// affected zero rows because a concurrent writer already advanced
	// the version.
	ErrVersionConflict = errors.New("version conflict")
)
