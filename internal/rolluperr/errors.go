// Package rolluperr defines the shared error taxonomy used across every
// store, tree, queue, and pipeline stage (spec §7). Call sites wrap one of
// these sentinels with fmt.Errorf("...: %w", ...) so callers can still
// distinguish error kinds with errors.Is while getting a contextual message.
package rolluperr

import "errors"

var (
	// ErrIO wraps an underlying file or socket failure. Always fatal to the
	// current operation; never retried by the core.
	ErrIO = errors.New("io error")

	// ErrIndexOutOfBounds is returned by DynamicList/StaticList Get/Set when
	// the index has never been written (or exceeds capacity for a
	// StaticList).
	ErrIndexOutOfBounds = errors.New("index out of bounds")

	// ErrIndexDoesntExist is returned by a Merkle tree when the index
	// exceeds the tree's maximum leaf index (2^(H-1)-1).
	ErrIndexDoesntExist = errors.New("index doesn't exist")

	// ErrUnusableIndex is returned by DynamicMerkleTree.SetLeaf when the
	// target index is not the next contiguous slot (or an existing one).
	ErrUnusableIndex = errors.New("unusable index")

	// ErrAlreadyExists is returned by a domain store's Push when the
	// natural key is already mapped.
	ErrAlreadyExists = errors.New("already exists")

	// ErrDoesntExist is returned by a domain store's Update when the
	// natural key has no mapping yet.
	ErrDoesntExist = errors.New("doesn't exist")

	// ErrOverflow is returned when a computation exceeds the destination
	// width at a conversion boundary (spec §4.8, §9 open question 3).
	ErrOverflow = errors.New("overflow")

	// ErrNotEnoughBalance is a BurnTokens/trading precondition failure.
	ErrNotEnoughBalance = errors.New("not enough balance")

	// ErrNotEnoughLiquidity is a RemoveLiquidity precondition failure.
	ErrNotEnoughLiquidity = errors.New("not enough liquidity")

	// ErrNotEnoughInPool is a trading precondition failure (insufficient
	// reserves to satisfy the requested trade).
	ErrNotEnoughInPool = errors.New("not enough in pool")

	// ErrLimitExceeded is returned when a caller-specified slippage limit
	// would be violated.
	ErrLimitExceeded = errors.New("limit exceeded")

	// ErrParentDirectoryNotSpecified is a startup-time error: the store was
	// opened against a path with no parent directory.
	ErrParentDirectoryNotSpecified = errors.New("parent directory not specified")

	// ErrInfallible marks an "impossible" internal invariant violation.
	// Callers that observe it should treat it as a fatal bug, not a
	// recoverable condition.
	ErrInfallible = errors.New("infallible invariant violated")
)
