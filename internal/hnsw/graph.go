package hnsw

import (
	"sync"
	"sync/atomic"
)

// Graph is the layered proximity graph: level 0 holds every inserted
// node, upper levels a sparse subset chosen by each node's randomly
// assigned max level. Storage is a slice of sync.Map (one per level)
// rather than the teacher's single mutex-guarded map-of-maps in
// internal/indexing/hnsw/graph.go, so concurrent addNode/getNeighbors
// calls at different levels never contend on a shared lock — only the
// rare act of growing past the current highest level takes levelsMu.
type Graph struct {
	levelsMu sync.Mutex
	levels   atomic.Pointer[[]*sync.Map] // each *sync.Map: NodeId -> *ConcurrentNeighborSet
	entry    atomic.Pointer[entryPointState]

	m         int
	similarity Similarity
	vectorOf   func(NodeId) (Vector, error)

	count atomic.Int64
}

type entryPointState struct {
	node  NodeId
	level Level
}

// NewGraph creates an empty graph. m is the base neighbor-set capacity
// (level 0 uses 2*m per spec.md §4.1; upper levels use m).
func NewGraph(m int, similarity Similarity, vectorOf func(NodeId) (Vector, error)) *Graph {
	g := &Graph{m: m, similarity: similarity, vectorOf: vectorOf}
	empty := make([]*sync.Map, 0)
	g.levels.Store(&empty)
	return g
}

func (g *Graph) capacityAt(level Level) int {
	if level == 0 {
		return 2 * g.m
	}
	return g.m
}

// addNode idempotently creates a neighbor-set slot for nodeId at level.
// Returns true if this call created the slot, false if one already
// existed. Safe to call out of order across levels or node ids.
func (g *Graph) addNode(level Level, nodeId NodeId) bool {
	lvl := g.ensureLevel(level)
	set := NewConcurrentNeighborSet(nodeId, level, g.capacityAt(level), g.similarity, g.vectorOf)
	_, loaded := lvl.LoadOrStore(nodeId, set)
	if !loaded {
		if level == 0 {
			g.count.Add(1)
		}
		return true
	}
	return false
}

// ensureLevel returns the sync.Map for level, growing the levels slice
// under levelsMu if necessary. Growth publishes a new slice via CAS-free
// mutex (rare path, bounded by log(n) distinct levels in practice).
func (g *Graph) ensureLevel(level Level) *sync.Map {
	if lvl := g.levelAt(level); lvl != nil {
		return lvl
	}
	g.levelsMu.Lock()
	defer g.levelsMu.Unlock()
	cur := *g.levels.Load()
	if int(level) < len(cur) && cur[level] != nil {
		return cur[level]
	}
	grown := make([]*sync.Map, maxInt(int(level)+1, len(cur)))
	copy(grown, cur)
	for i := range grown {
		if grown[i] == nil {
			grown[i] = &sync.Map{}
		}
	}
	g.levels.Store(&grown)
	return grown[level]
}

func (g *Graph) levelAt(level Level) *sync.Map {
	cur := *g.levels.Load()
	if int(level) < len(cur) {
		return cur[level]
	}
	return nil
}

// getNeighbors returns the neighbor set for (level, nodeId), or false if
// nodeId has no slot at that level.
func (g *Graph) getNeighbors(level Level, nodeId NodeId) (*ConcurrentNeighborSet, bool) {
	lvl := g.levelAt(level)
	if lvl == nil {
		return nil, false
	}
	v, ok := lvl.Load(nodeId)
	if !ok {
		return nil, false
	}
	return v.(*ConcurrentNeighborSet), true
}

// size returns the number of nodes present at level 0.
func (g *Graph) size() int { return int(g.count.Load()) }

// numLevels returns one more than the highest level holding any node.
func (g *Graph) numLevels() int {
	cur := *g.levels.Load()
	for i := len(cur) - 1; i >= 0; i-- {
		if cur[i] == nil {
			continue
		}
		if !syncMapEmpty(cur[i]) {
			return i + 1
		}
	}
	return 0
}

func syncMapEmpty(m *sync.Map) bool {
	empty := true
	m.Range(func(_, _ any) bool {
		empty = false
		return false
	})
	return empty
}

// getNodesOnLevel returns every nodeId with a slot at level, in no
// particular order.
func (g *Graph) getNodesOnLevel(level Level) []NodeId {
	lvl := g.levelAt(level)
	if lvl == nil {
		return nil
	}
	var out []NodeId
	lvl.Range(func(k, _ any) bool {
		out = append(out, k.(NodeId))
		return true
	})
	return out
}

// entryNode returns the current entry point (node, level) and whether
// one has been set yet.
func (g *Graph) entryNode() (NodeId, Level, bool) {
	ep := g.entry.Load()
	if ep == nil {
		return 0, 0, false
	}
	return ep.node, ep.level, true
}

// tryPromoteEntry installs (nodeId, level) as the entry point iff level
// exceeds the current entry's level (or none is set yet), via CAS retry.
// entryLevel never decreases, per spec.md §4.1.
func (g *Graph) tryPromoteEntry(nodeId NodeId, level Level) bool {
	for {
		cur := g.entry.Load()
		if cur != nil && cur.level >= level {
			return false
		}
		next := &entryPointState{node: nodeId, level: level}
		if g.entry.CompareAndSwap(cur, next) {
			return true
		}
	}
}

// ramBytesUsed estimates the graph's resident memory: a fixed per-node
// overhead plus 4 bytes per stored neighbor edge, summed across levels.
// Mirrors the teacher's RamBytesUsed accounting in
// internal/indexing/hnsw/graph.go without attempting exact GC-level
// precision.
func (g *Graph) ramBytesUsed() int64 {
	const perNodeOverhead = 64
	var total int64
	cur := *g.levels.Load()
	for _, lvl := range cur {
		if lvl == nil {
			continue
		}
		lvl.Range(func(_, v any) bool {
			set := v.(*ConcurrentNeighborSet)
			total += perNodeOverhead + int64(set.Len())*4
			return true
		})
	}
	return total
}

// getView returns a fresh single-threaded read cursor over the graph.
// Each reader goroutine must obtain its own View; sharing one across
// goroutines races on its cursor fields.
func (g *Graph) getView() *View {
	return &View{graph: g}
}

// GetView is the exported form of getView, for callers outside this
// package (the demo CLI, external search drivers) that need their own
// read cursor over a Graph under construction or already built.
func (g *Graph) GetView() *View { return g.getView() }

// Size is the exported form of size: the number of nodes present at
// level 0.
func (g *Graph) Size() int { return g.size() }

// NumLevels is the exported form of numLevels.
func (g *Graph) NumLevels() int { return g.numLevels() }

// RamBytesUsed is the exported form of ramBytesUsed.
func (g *Graph) RamBytesUsed() int64 { return g.ramBytesUsed() }

// EntryNode is the exported form of entryNode.
func (g *Graph) EntryNode() (NodeId, Level, bool) { return g.entryNode() }

// noMoreNeighbors is the sentinel returned by View.nextNeighbor once the
// current neighbor list is exhausted.
const noMoreNeighbors = NodeId(-1)

// View is a stateful, single-threaded seek-then-iterate cursor over a
// shared Graph, per spec.md §9's re-architecture note: the underlying
// graph is read concurrently by every searcher goroutine, so the cursor
// state (which neighbor list we're iterating, and how far into it) must
// live per-goroutine rather than on the graph itself.
type View struct {
	graph   *Graph
	entries []neighborEntry
	pos     int
}

// seek positions the view at (level, node)'s neighbor list. A node with
// no slot at level seeks to an empty list.
func (v *View) seek(level Level, node NodeId) {
	set, ok := v.graph.getNeighbors(level, node)
	if !ok {
		v.entries = nil
		v.pos = 0
		return
	}
	v.entries = set.Snapshot()
	v.pos = 0
}

// nextNeighbor returns the next neighbor id in the current seek()'d
// list, or noMoreNeighbors once exhausted.
func (v *View) nextNeighbor() NodeId {
	if v.pos >= len(v.entries) {
		return noMoreNeighbors
	}
	id := v.entries[v.pos].id
	v.pos++
	return id
}
