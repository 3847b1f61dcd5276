package kv

import "errors"

// ErrEmptyInput is returned by a ConflictResolver when asked to resolve a
// zero-length set of values — there is no winner to pick.
var ErrEmptyInput = errors.New("kv: conflict resolver given no values")

// ConflictResolver picks a single winning Value out of several replicas'
// versions of the same key.
type ConflictResolver interface {
	Resolve(values []Value) (Value, error)
}

// LastWriteWinsResolver implements ConflictResolver by picking the Value
// with the maximum (Version, CreatedAt): a Value with no Version is treated
// as older than any Value that has one; among values that both lack a
// Version, the newer CreatedAt wins.
//
// The rule is deterministic, associative, and commutative over the input
// multiset, and idempotent on a singleton — resolving the same set twice,
// or resolving it one value at a time in any order, always produces the
// same winner.
type LastWriteWinsResolver struct{}

// Resolve implements ConflictResolver.
func (LastWriteWinsResolver) Resolve(values []Value) (Value, error) {
	if len(values) == 0 {
		return Value{}, ErrEmptyInput
	}

	winner := values[0]
	for _, candidate := range values[1:] {
		if wins(candidate, winner) {
			winner = candidate
		}
	}
	return winner, nil
}

// wins reports whether candidate should replace current as the winner.
func wins(candidate, current Value) bool {
	switch {
	case candidate.Version == nil && current.Version == nil:
		return candidate.CreatedAt.After(current.CreatedAt)
	case candidate.Version == nil:
		return false
	case current.Version == nil:
		return true
	default:
		return candidate.Version.Compare(*current.Version) > 0
	}
}
