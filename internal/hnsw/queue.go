package hnsw

import "container/heap"

// Orientation controls which extremum a NeighborQueue retains when it is
// at capacity.
type Orientation int

const (
	// OrientKeepMax retains the highest-scoring entries (used for the
	// searcher's bounded results set: best-by-similarity topK).
	OrientKeepMax Orientation = iota
	// OrientKeepMin retains the lowest-scoring entries. Pop/Top on a
	// KeepMin queue therefore surface the highest-scoring entry first
	// (the one that would be evicted under KeepMax), which is exactly
	// the greedy "expand the most similar frontier node first" order the
	// searcher's candidate queue needs.
	OrientKeepMin
)

type neighborEntry struct {
	id    NodeId
	score float32
}

// entryHeap is the container/heap backing store. Its root is always the
// entry that would be evicted first under the queue's Orientation — the
// worst-by-similarity entry for OrientKeepMax, the best for OrientKeepMin.
// Pop()/Top() expose that root directly, which conveniently is exactly
// what both callers in this package need: the searcher's results queue
// wants fast access to its own worst member (the termination check in
// spec.md's beam search step 4), and the candidate frontier wants to pop
// its best member first for greedy expansion.
type entryHeap struct {
	entries     []neighborEntry
	orientation Orientation
}

func (h *entryHeap) Len() int { return len(h.entries) }

func (h *entryHeap) Less(i, j int) bool {
	a, b := h.entries[i], h.entries[j]
	if a.score != b.score {
		if h.orientation == OrientKeepMax {
			return a.score < b.score
		}
		return a.score > b.score
	}
	// Deterministic tie-break: the smaller nodeId is preferred/kept, so
	// under KeepMax the larger nodeId must be the eviction target (the
	// heap root) on a tie — the inverse of the score comparison above,
	// which also puts the less-preferred entry at the root.
	if h.orientation == OrientKeepMax {
		return a.id > b.id
	}
	return a.id < b.id
}

func (h *entryHeap) Swap(i, j int) { h.entries[i], h.entries[j] = h.entries[j], h.entries[i] }

func (h *entryHeap) Push(x any) { h.entries = append(h.entries, x.(neighborEntry)) }

func (h *entryHeap) Pop() any {
	old := h.entries
	n := len(old)
	e := old[n-1]
	h.entries = old[:n-1]
	return e
}

// NeighborQueue is a fixed-capacity priority container of (nodeId, score)
// pairs, oriented to retain either the highest- or lowest-scoring
// entries. Capacity <= 0 means unbounded. Not safe for concurrent use —
// each builder or searcher goroutine owns its own queue instance.
type NeighborQueue struct {
	h            entryHeap
	capacity     int
	visitedCount int
	incomplete   bool
}

// NewNeighborQueue creates an empty queue with the given orientation and
// capacity (<=0 for unbounded).
func NewNeighborQueue(orientation Orientation, capacity int) *NeighborQueue {
	return &NeighborQueue{
		h:        entryHeap{orientation: orientation, entries: make([]neighborEntry, 0, maxInt(capacity, 0))},
		capacity: capacity,
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Push inserts (id, score). If the queue is at capacity, the new entry
// competes against the current eviction target (the heap root): if the
// new entry is preferable under the queue's orientation, the root is
// evicted and the new entry is inserted; otherwise Push is a no-op.
// Returns whether the entry was accepted.
func (q *NeighborQueue) Push(id NodeId, score float32) bool {
	if q.capacity <= 0 || q.h.Len() < q.capacity {
		heap.Push(&q.h, neighborEntry{id: id, score: score})
		return true
	}
	root := q.h.entries[0]
	candidate := neighborEntry{id: id, score: score}
	// candidate replaces root iff root is still the eviction target
	// between the two, i.e. candidate is a genuine improvement.
	tmp := entryHeap{orientation: q.h.orientation, entries: []neighborEntry{root, candidate}}
	if tmp.Less(0, 1) {
		// root is still the eviction target; candidate is an improvement.
		q.h.entries[0] = candidate
		heap.Fix(&q.h, 0)
		return true
	}
	return false
}

// Pop removes and returns the queue's extremum (the root — see entryHeap
// doc). The second return value is false if the queue is empty.
func (q *NeighborQueue) Pop() (NodeId, float32, bool) {
	if q.h.Len() == 0 {
		return 0, 0, false
	}
	e := heap.Pop(&q.h).(neighborEntry)
	return e.id, e.score, true
}

// Top returns the queue's extremum without removing it.
func (q *NeighborQueue) Top() (NodeId, float32, bool) {
	if q.h.Len() == 0 {
		return 0, 0, false
	}
	e := q.h.entries[0]
	return e.id, e.score, true
}

// Size returns the current number of entries.
func (q *NeighborQueue) Size() int { return q.h.Len() }

// Full reports whether the queue has reached its bounded capacity. A
// queue created with capacity <= 0 is never full.
func (q *NeighborQueue) Full() bool { return q.capacity > 0 && q.h.Len() >= q.capacity }

// VisitedCount returns the number of nodes the search that populated this
// queue scored before returning.
func (q *NeighborQueue) VisitedCount() int { return q.visitedCount }

// IncrementVisited bumps the visited-node counter by one.
func (q *NeighborQueue) IncrementVisited() { q.visitedCount++ }

// Incomplete reports whether the search terminated early because it hit
// its visit budget before converging.
func (q *NeighborQueue) Incomplete() bool { return q.incomplete }

// MarkIncomplete flags the queue as having been cut short by a visit
// limit.
func (q *NeighborQueue) MarkIncomplete() { q.incomplete = true }

// Nodes returns a snapshot of the queue's members ordered best-first
// (descending score, smaller nodeId breaking ties) regardless of the
// queue's internal orientation — this is the "ascending by distance"
// order spec.md's beam search asks the searcher to return.
func (q *NeighborQueue) Nodes() []NodeId {
	ids, _ := q.sortedEntries()
	return ids
}

// Scores mirrors Nodes but returns the similarity score alongside each id,
// in the same best-first order.
func (q *NeighborQueue) Scores() ([]NodeId, []float32) {
	return q.sortedEntries()
}

func (q *NeighborQueue) sortedEntries() ([]NodeId, []float32) {
	entries := make([]neighborEntry, len(q.h.entries))
	copy(entries, q.h.entries)
	// Insertion sort: queues are small (beamWidth/topK sized), and this
	// keeps the ordering independent of heap internals.
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && bestFirstLess(entries[j], entries[j-1]); j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
	ids := make([]NodeId, len(entries))
	scores := make([]float32, len(entries))
	for i, e := range entries {
		ids[i] = e.id
		scores[i] = e.score
	}
	return ids, scores
}

// bestFirstLess orders a before b when a has the higher score, or the
// smaller nodeId on a tie.
func bestFirstLess(a, b neighborEntry) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	return a.id < b.id
}
