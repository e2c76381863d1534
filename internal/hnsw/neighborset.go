package hnsw

import (
	"fmt"
	"sync/atomic"
)

// ConcurrentNeighborSet holds up to capacity (nodeId, score) members for a
// single (node, level) slot, published via compare-and-swap on a
// versioned immutable slice — the "optimistic concurrency" strategy
// spec.md's design notes call for in place of the teacher's
// internal/indexing/hnsw/graph.go Node.mu RWMutex.
type ConcurrentNeighborSet struct {
	owner      NodeId
	level      Level
	capacity   int
	similarity Similarity
	vectorOf   func(NodeId) (Vector, error)
	state      atomic.Pointer[neighborSetState]
}

type neighborSetState struct {
	entries []neighborEntry // invariant: sorted descending by score, tie by nodeId ascending
}

// NewConcurrentNeighborSet creates an empty set for owner at level, bounded
// to capacity members.
func NewConcurrentNeighborSet(owner NodeId, level Level, capacity int, similarity Similarity, vectorOf func(NodeId) (Vector, error)) *ConcurrentNeighborSet {
	s := &ConcurrentNeighborSet{
		owner:      owner,
		level:      level,
		capacity:   capacity,
		similarity: similarity,
		vectorOf:   vectorOf,
	}
	s.state.Store(&neighborSetState{entries: nil})
	return s
}

// Snapshot returns the current members, descending by score — safe during
// concurrent mutation since it reads one immutable published slice.
func (s *ConcurrentNeighborSet) Snapshot() []neighborEntry {
	st := s.state.Load()
	out := make([]neighborEntry, len(st.entries))
	copy(out, st.entries)
	return out
}

// Len returns the current member count.
func (s *ConcurrentNeighborSet) Len() int { return len(s.state.Load().entries) }

// InsertDiverse runs the RNG-diversity selection algorithm from
// spec.md §4.2 against the current members plus candidates (assumed
// sorted best-first, as NeighborQueue.Nodes()/Scores() returns them),
// publishing the result via CAS and retrying on contention. It returns
// the entries that ended up accepted, so the caller can perform
// reciprocal linking.
func (s *ConcurrentNeighborSet) InsertDiverse(candidates *NeighborQueue) ([]neighborEntry, error) {
	candIds, candScores := candidates.Scores()
	target, err := s.vectorOf(s.owner)
	if err != nil {
		return nil, fmt.Errorf("%w: reading owner vector %d: %v", ErrIoFailure, s.owner, err)
	}

	for {
		old := s.state.Load()
		merged := mergeDescending(old.entries, candIds, candScores)
		accepted, err := s.diversitySelect(merged, target)
		if err != nil {
			return nil, err
		}
		next := &neighborSetState{entries: accepted}
		if s.state.CompareAndSwap(old, next) {
			return accepted, nil
		}
		// Lost the race to a concurrent writer; retry from the freshly
		// observed members (spec.md §4.2 "restart from step 1").
	}
}

// InsertNotDiverse is the reciprocal update performed when another node's
// insertion accepts this set's owner as a neighbor. If there is spare
// capacity the new member is simply added; otherwise diversity pruning
// runs over existing ∪ {new} using the same rule as InsertDiverse, which
// may displace a previously-accepted member (spec.md's testDiversity3d).
func (s *ConcurrentNeighborSet) InsertNotDiverse(id NodeId, score float32) error {
	if id == s.owner {
		return nil
	}
	target, err := s.vectorOf(s.owner)
	if err != nil {
		return fmt.Errorf("%w: reading owner vector %d: %v", ErrIoFailure, s.owner, err)
	}

	for {
		old := s.state.Load()
		for _, e := range old.entries {
			if e.id == id {
				return nil // already a member; idempotent no-op
			}
		}
		if len(old.entries) < s.capacity {
			next := append(append([]neighborEntry{}, old.entries...), neighborEntry{id: id, score: score})
			sortEntriesDescending(next)
			if s.state.CompareAndSwap(old, &neighborSetState{entries: next}) {
				return nil
			}
			continue
		}

		merged := append(append([]neighborEntry{}, old.entries...), neighborEntry{id: id, score: score})
		sortEntriesDescending(merged)
		accepted, err := s.diversitySelect(merged, target)
		if err != nil {
			return err
		}
		if s.state.CompareAndSwap(old, &neighborSetState{entries: accepted}) {
			return nil
		}
	}
}

// Reconcile re-runs diversitySelect over the set's current members against
// themselves, with no new candidates, when the set holds more than
// capacity members, bringing it back within capacity without needing new
// candidate data. A set at or under capacity is left unchanged; its
// diversity is not re-checked. Builder.finishBuild runs it once per node
// after a build completes.
func (s *ConcurrentNeighborSet) Reconcile() error {
	target, err := s.vectorOf(s.owner)
	if err != nil {
		return fmt.Errorf("%w: reading owner vector %d: %v", ErrIoFailure, s.owner, err)
	}
	for {
		old := s.state.Load()
		if len(old.entries) <= s.capacity {
			return nil // nothing to reconcile; under/at capacity is never a violation
		}
		accepted, err := s.diversitySelect(old.entries, target)
		if err != nil {
			return err
		}
		if s.state.CompareAndSwap(old, &neighborSetState{entries: accepted}) {
			return nil
		}
	}
}

// diversitySelect implements the RNG rule: walk candidates best-first,
// accept c iff for every already-accepted a, sim(c, a) < sim(c, target).
// The fallback only engages when the distinct candidate pool itself is
// smaller than capacity — genuine undersupply, not diversity-driven
// rejection — in which case the remainder is filled by score order
// (spec.md's testDiversityFallback: a pool of exactly capacity distinct
// candidates that fails diversity checks is allowed to settle below
// capacity rather than being backfilled from the rejected set).
func (s *ConcurrentNeighborSet) diversitySelect(ordered []neighborEntry, target Vector) ([]neighborEntry, error) {
	accepted := make([]neighborEntry, 0, s.capacity)
	var rejected []neighborEntry
	seen := map[NodeId]bool{s.owner: true}
	pool := 0

	for _, c := range ordered {
		if seen[c.id] {
			continue
		}
		seen[c.id] = true
		pool++
		if len(accepted) >= s.capacity {
			continue
		}

		cVec, err := s.vectorOf(c.id)
		if err != nil {
			return nil, fmt.Errorf("%w: reading candidate vector %d: %v", ErrIoFailure, c.id, err)
		}
		cToTarget := s.similarity(cVec, target)

		diverse := true
		for _, a := range accepted {
			aVec, err := s.vectorOf(a.id)
			if err != nil {
				return nil, fmt.Errorf("%w: reading accepted vector %d: %v", ErrIoFailure, a.id, err)
			}
			if s.similarity(cVec, aVec) >= cToTarget {
				diverse = false
				break
			}
		}
		if diverse {
			accepted = append(accepted, c)
		} else {
			rejected = append(rejected, c)
		}
	}

	if pool < s.capacity {
		for _, c := range rejected {
			if len(accepted) >= s.capacity {
				break
			}
			accepted = append(accepted, c)
		}
	}

	sortEntriesDescending(accepted)
	assertInvariant(!containsDuplicateOrSelf(accepted, s.owner), "duplicate or self-loop after publication")
	return accepted, nil
}

func containsDuplicateOrSelf(entries []neighborEntry, owner NodeId) bool {
	seen := make(map[NodeId]bool, len(entries))
	for _, e := range entries {
		if e.id == owner || seen[e.id] {
			return true
		}
		seen[e.id] = true
	}
	return false
}

func sortEntriesDescending(entries []neighborEntry) {
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && bestFirstLess(entries[j], entries[j-1]); j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
}

// mergeDescending combines existing members with a parallel (ids, scores)
// candidate list into one score-descending slice, deduplicating by id and
// preferring the existing entry's score on overlap.
func mergeDescending(existing []neighborEntry, candIds []NodeId, candScores []float32) []neighborEntry {
	out := make([]neighborEntry, 0, len(existing)+len(candIds))
	out = append(out, existing...)
	present := make(map[NodeId]bool, len(existing))
	for _, e := range existing {
		present[e.id] = true
	}
	for i, id := range candIds {
		if present[id] {
			continue
		}
		present[id] = true
		out = append(out, neighborEntry{id: id, score: candScores[i]})
	}
	sortEntriesDescending(out)
	return out
}
