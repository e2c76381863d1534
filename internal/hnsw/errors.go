package hnsw

import "errors"

// Sentinel errors for the four error kinds the core surfaces. Each is
// composed with fmt.Errorf("%w: ...") at the call site for context,
// following the same pattern as the teacher's vectorstore package.
var (
	// ErrInvalidArgument is returned when construction parameters are
	// rejected: M <= 0, beamWidth <= 0, a nil provider or similarity, or
	// vectors of mismatched encoding or dimension.
	ErrInvalidArgument = errors.New("hnsw: invalid argument")

	// ErrIoFailure wraps an underlying vector-provider I/O fault surfaced
	// from addGraphNode or buildAsync.
	ErrIoFailure = errors.New("hnsw: vector provider I/O failure")

	// ErrCancelled is returned from buildAsync when the caller's context
	// is cancelled before all insertions complete.
	ErrCancelled = errors.New("hnsw: build cancelled")

	// ErrInternalInvariant marks a debug-only assertion failure: a
	// duplicate or a self-loop in a freshly selected neighbor list.
	// Neighbor ids are not range-checked. See DebugAssertions.
	ErrInternalInvariant = errors.New("hnsw: internal invariant violated")
)

// DebugAssertions enables InternalInvariant checks that panic instead of
// being silently skipped. It defaults to false, and this package's tests
// do not change it.
var DebugAssertions = false

// assertInvariant panics with ErrInternalInvariant context when
// DebugAssertions is enabled and cond is false. It is a no-op otherwise,
// matching spec.md's description of InternalInvariant as a "debug-only
// assertion."
func assertInvariant(cond bool, msg string) {
	if cond || !DebugAssertions {
		return
	}
	panic(errors.New(ErrInternalInvariant.Error() + ": " + msg))
}
