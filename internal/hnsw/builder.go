package hnsw

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
)

// Builder incrementally constructs a Graph from a VectorProvider,
// following the level-assignment and diversity-linking algorithm in
// spec.md §4.4. One Builder instance may be driven by many goroutines
// concurrently via BuildAsync; AddGraphNode itself is also safe to call
// from multiple goroutines for distinct node ids.
type Builder struct {
	provider   VectorProvider
	encoding   Encoding
	similarity Similarity
	m          int
	beamWidth  int
	ml         float64

	graph    *Graph
	searcher *Searcher

	rngMu sync.Mutex
	rng   *rand.Rand

	bytesAllocated atomic.Int64
}

// NewBuilder validates constructor parameters and returns a Builder
// over an empty Graph. seed fixes the level-assignment RNG so that
// single-threaded builds are reproducible (spec.md §5 "Determinism").
func NewBuilder(provider VectorProvider, encoding Encoding, similarity Similarity, m, beamWidth int, seed int64) (*Builder, error) {
	if provider == nil {
		return nil, fmt.Errorf("%w: vector provider must not be nil", ErrInvalidArgument)
	}
	if similarity == nil {
		return nil, fmt.Errorf("%w: similarity function must not be nil", ErrInvalidArgument)
	}
	if m <= 0 {
		return nil, fmt.Errorf("%w: M must be positive, got %d", ErrInvalidArgument, m)
	}
	if beamWidth <= 0 {
		return nil, fmt.Errorf("%w: beamWidth must be positive, got %d", ErrInvalidArgument, beamWidth)
	}
	graph := NewGraph(m, similarity, provider.VectorValue)
	return &Builder{
		provider:   provider,
		encoding:   encoding,
		similarity: similarity,
		m:          m,
		beamWidth:  beamWidth,
		ml:         1.0 / math.Log(float64(maxInt(m, 2))),
		graph:      graph,
		searcher:   NewSearcher(similarity),
		rng:        rand.New(rand.NewSource(seed)),
	}, nil
}

// NewBuilderFromGraph wraps an already-populated Graph, remapping every
// node id through oldToNewOrd (spec.md §6's initialization-from-graph
// mode), for incremental builds that add nodes on top of a prior batch
// under a fresh VectorProvider's ordinal space. oldToNewOrd must be
// injective and non-decreasing — i.e. strictly increasing — across the
// ordinals it covers; violations are rejected up front rather than
// producing a silently corrupt graph. initializer's node/level
// membership, neighbor sets, and entry point are copied into the new
// Builder's Graph under the remapped ids; it then behaves as an
// ordinary builder for subsequent AddGraphNode calls.
func NewBuilderFromGraph(provider VectorProvider, encoding Encoding, similarity Similarity, m, beamWidth int, seed int64, initializer *Graph, oldToNewOrd []int) (*Builder, error) {
	b, err := NewBuilder(provider, encoding, similarity, m, beamWidth, seed)
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(oldToNewOrd); i++ {
		if oldToNewOrd[i] <= oldToNewOrd[i-1] {
			return nil, fmt.Errorf("%w: oldToNewOrd must be strictly increasing, got [%d]=%d after [%d]=%d",
				ErrInvalidArgument, i, oldToNewOrd[i], i-1, oldToNewOrd[i-1])
		}
	}

	remap := func(old NodeId) (NodeId, bool) {
		if int(old) < 0 || int(old) >= len(oldToNewOrd) {
			return 0, false
		}
		return NodeId(oldToNewOrd[old]), true
	}

	numLevels := Level(initializer.numLevels())
	for l := Level(0); l < numLevels; l++ {
		for _, oldId := range initializer.getNodesOnLevel(l) {
			if newId, ok := remap(oldId); ok {
				b.graph.addNode(l, newId)
			}
		}
	}
	for l := Level(0); l < numLevels; l++ {
		for _, oldId := range initializer.getNodesOnLevel(l) {
			newId, ok := remap(oldId)
			if !ok {
				continue
			}
			oldSet, ok := initializer.getNeighbors(l, oldId)
			if !ok {
				continue
			}
			newSet, ok := b.graph.getNeighbors(l, newId)
			if !ok {
				continue
			}
			for _, e := range oldSet.Snapshot() {
				newNeighbor, ok := remap(e.id)
				if !ok {
					continue
				}
				if err := newSet.InsertNotDiverse(newNeighbor, e.score); err != nil {
					return nil, err
				}
			}
		}
	}

	if ep, epLevel, ok := initializer.entryNode(); ok {
		if newEp, ok := remap(ep); ok {
			b.graph.tryPromoteEntry(newEp, epLevel)
		}
	}

	return b, nil
}

// GetGraph returns the graph under construction. Safe to call while
// BuildAsync is in flight; callers get a live, still-mutating graph.
func (b *Builder) GetGraph() *Graph { return b.graph }

// randomLevel draws L(node) = floor(-ln(U) * mL), matching the teacher's
// internal/indexing/hnsw/graph.go randomLevel geometric-distribution
// shape (there expressed as a rand.Float64()-driven loop; here as the
// closed-form inverse-transform spec.md specifies directly).
func (b *Builder) randomLevel() Level {
	b.rngMu.Lock()
	u := b.rng.Float64()
	b.rngMu.Unlock()
	if u <= 0 {
		u = math.SmallestNonzeroFloat64
	}
	return Level(math.Floor(-math.Log(u) * b.ml))
}

// AddGraphNode inserts one node following spec.md §4.4's algorithm,
// reading nodeId's own vector through the Builder's shared provider.
// Returns an incremental bytes-allocated estimate for RAM accounting.
// On a vector-provider I/O failure the node may already be present in
// the graph with an empty or partial neighbor list; the caller must
// rebuild to recover correctness (spec.md's failure-semantics note).
func (b *Builder) AddGraphNode(ctx context.Context, nodeId NodeId) (int64, error) {
	return b.addGraphNode(ctx, nodeId, b.provider)
}

// addGraphNode is AddGraphNode parameterized on which VectorProvider
// cursor reads the new node's own vector — BuildAsync passes each
// worker's provider.Copy() here so concurrent insertions never share
// cursor state, per spec.md §4.4's buildAsync contract. The entry
// node's vector is read through the same cursor; neighbor lookups
// during search and diversity pruning still go through the graph's
// fixed vectorOf, since VectorProvider.VectorValue is documented as
// random-access by ordinal, not sequential.
func (b *Builder) addGraphNode(ctx context.Context, nodeId NodeId, provider VectorProvider) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCancelled, err)
	}

	nodeVec, err := provider.VectorValue(nodeId)
	if err != nil {
		return 0, fmt.Errorf("%w: reading node %d: %v", ErrIoFailure, nodeId, err)
	}

	nodeMaxLevel := b.randomLevel()
	wasEmpty := b.graph.size() == 0
	before := b.graph.ramBytesUsed()
	for l := Level(0); l <= nodeMaxLevel; l++ {
		b.graph.addNode(l, nodeId)
	}

	if wasEmpty {
		b.graph.tryPromoteEntry(nodeId, nodeMaxLevel)
		delta := b.graph.ramBytesUsed() - before
		b.bytesAllocated.Add(delta)
		return delta, nil
	}

	ep, epLevel, ok := b.graph.entryNode()
	if !ok {
		// Another goroutine raced us to the empty->non-empty transition;
		// treat as if not empty and fall through with its entry point. If
		// it has still not published one, this node is left unlinked.
		ep, epLevel, ok = b.graph.entryNode()
	}

	view := b.graph.getView()
	if ok {
		epVec, err := provider.VectorValue(ep)
		if err != nil {
			return 0, fmt.Errorf("%w: reading entry node %d: %v", ErrIoFailure, ep, err)
		}
		epScore := b.similarity(nodeVec, epVec)
		for l := epLevel; l > nodeMaxLevel; l-- {
			next, nextScore, err := b.searcher.greedyTop1(nodeVec, b.graph, view, l, ep, epScore)
			if err != nil {
				return 0, err
			}
			ep, epScore = next, nextScore
		}

		for l := minLevel(epLevel, nodeMaxLevel); l >= 0; l-- {
			candidates, err := b.searcher.SearchLevel(nodeVec, b.beamWidth, b.graph, view, l, ep, epScore, AcceptAll, 0)
			if err != nil {
				return 0, err
			}

			ownSet, ok := b.graph.getNeighbors(l, nodeId)
			if !ok {
				continue // level above nodeMaxLevel for this node; shouldn't happen given loop bound
			}
			accepted, err := ownSet.InsertDiverse(candidates)
			if err != nil {
				return 0, err
			}
			for _, a := range accepted {
				neighborSet, ok := b.graph.getNeighbors(l, a.id)
				if !ok {
					continue
				}
				if err := neighborSet.InsertNotDiverse(nodeId, a.score); err != nil {
					return 0, err
				}
			}
		}
	}

	if nodeMaxLevel > epLevel {
		b.graph.tryPromoteEntry(nodeId, nodeMaxLevel)
	}

	b.bytesAllocated.Add(b.graph.ramBytesUsed() - before)
	return b.graph.ramBytesUsed() - before, nil
}

// finishBuild sweeps every (level, node) neighbor set and calls Reconcile
// on it, resolving spec.md §9's diversity-under-contention Open Question
// via option (b): InsertDiverse/InsertNotDiverse are not coordinated
// across goroutines beyond their per-set CAS publish, and this final pass
// prunes any set found over capacity. Sets at or under capacity are left
// as they are. Runs automatically at the end of BuildAsync; safe to call
// again after AddGraphNode calls too.
func (b *Builder) finishBuild() error {
	for l := Level(0); l < Level(b.graph.numLevels()); l++ {
		for _, nodeId := range b.graph.getNodesOnLevel(l) {
			set, ok := b.graph.getNeighbors(l, nodeId)
			if !ok {
				continue
			}
			if err := set.Reconcile(); err != nil {
				return err
			}
		}
	}
	return nil
}

func minLevel(a, b Level) Level {
	if a < b {
		return a
	}
	return b
}

// BuildHandle is returned by BuildAsync and resolves once every ordinal
// has been inserted (or the build was cancelled).
type BuildHandle struct {
	done chan struct{}
	err  error
}

// Wait blocks until the build completes, returning the first error
// encountered (if any), or ctx.Err() wrapped as Cancelled if ctx is
// cancelled first.
func (h *BuildHandle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
	}
}

// BuildAsync submits one insertion task per ordinal in [0, count) to a
// pool of parallelism worker goroutines, each holding its own
// provider.Copy() cursor, per spec.md §4.4's buildAsync contract. Tasks
// claim ordinals from a single shared atomic counter (spec.md §9's
// "worker pool + shared atomic counter" re-architecture note) rather
// than a static partition, so a slow worker never stalls the others.
func (b *Builder) BuildAsync(ctx context.Context, count int, parallelism int) *BuildHandle {
	if parallelism < 1 {
		parallelism = 1
	}
	h := &BuildHandle{done: make(chan struct{})}

	var next atomic.Int64
	var firstErr atomic.Pointer[error]
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		cursor := b.provider.Copy()
		for {
			if ctx.Err() != nil {
				return
			}
			ord := next.Add(1) - 1
			if ord >= int64(count) {
				return
			}
			if _, err := b.addGraphNode(ctx, NodeId(ord), cursor); err != nil {
				firstErr.CompareAndSwap(nil, &err)
				return
			}
		}
	}

	wg.Add(parallelism)
	for i := 0; i < parallelism; i++ {
		go worker()
	}

	go func() {
		wg.Wait()
		if ctx.Err() != nil {
			h.err = fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
		} else if p := firstErr.Load(); p != nil {
			h.err = *p
		} else if err := b.finishBuild(); err != nil {
			h.err = err
		}
		close(h.done)
	}()

	return h
}
