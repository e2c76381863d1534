package hnsw

// Searcher runs beam search over a Graph. Stateless beyond its
// constructor arguments: every call takes its own View, so one Searcher
// value is safely shared across goroutines.
type Searcher struct {
	similarity Similarity
}

// NewSearcher creates a Searcher using sim to score query against graph
// vectors.
func NewSearcher(sim Similarity) *Searcher {
	return &Searcher{similarity: sim}
}

// Search runs the full multi-level beam search described in spec.md
// §4.5: greedy top-1 descent through the upper levels, then a bounded
// beam search at level 0 (or at the graph's only level, for a
// single-level graph). view must be owned by the calling goroutine.
// accept may be nil, meaning AcceptAll. visitLimit <= 0 means unbounded.
func (s *Searcher) Search(query Vector, topK int, graph *Graph, view *View, accept AcceptPredicate, visitLimit int) (*NeighborQueue, error) {
	if accept == nil {
		accept = AcceptAll
	}
	ep, epLevel, ok := graph.entryNode()
	if !ok {
		return NewNeighborQueue(OrientKeepMax, topK), nil
	}

	epVec, err := graph.vectorOf(ep)
	if err != nil {
		return nil, err
	}
	cur := ep
	curScore := s.similarity(query, epVec)

	for level := epLevel; level > 0; level-- {
		next, nextScore, err := s.greedyTop1(query, graph, view, level, cur, curScore)
		if err != nil {
			return nil, err
		}
		cur, curScore = next, nextScore
	}

	return s.SearchLevel(query, topK, graph, view, 0, cur, curScore, accept, visitLimit)
}

// greedyTop1 repeatedly moves to the best-scoring neighbor of cur at
// level until no neighbor improves on curScore, per spec.md §4.5 step 1.
func (s *Searcher) greedyTop1(query Vector, graph *Graph, view *View, level Level, cur NodeId, curScore float32) (NodeId, float32, error) {
	for {
		view.seek(level, cur)
		improved := false
		for {
			n := view.nextNeighbor()
			if n == noMoreNeighbors {
				break
			}
			vec, err := graph.vectorOf(n)
			if err != nil {
				return 0, 0, err
			}
			score := s.similarity(query, vec)
			if score > curScore {
				cur, curScore = n, score
				improved = true
			}
		}
		if !improved {
			return cur, curScore, nil
		}
	}
}

// SearchLevel runs the bounded beam search at a single level, seeded
// from (entryNode, entryScore), per spec.md §4.5 steps 2-6. Exposed
// directly so the builder can run single-level candidate searches
// during insertion.
func (s *Searcher) SearchLevel(query Vector, topK int, graph *Graph, view *View, level Level, entryNode NodeId, entryScore float32, accept AcceptPredicate, visitLimit int) (*NeighborQueue, error) {
	if accept == nil {
		accept = AcceptAll
	}
	results := NewNeighborQueue(OrientKeepMax, topK)
	candidates := NewNeighborQueue(OrientKeepMin, 0)

	visited := map[NodeId]bool{entryNode: true}
	candidates.Push(entryNode, entryScore)
	if accept.Get(entryNode) {
		results.Push(entryNode, entryScore)
	}

	for candidates.Size() > 0 {
		c, cScore, ok := candidates.Pop()
		if !ok {
			break
		}
		if results.Full() {
			_, worst, _ := results.Top()
			if cScore < worst {
				break
			}
		}

		view.seek(level, c)
		for {
			n := view.nextNeighbor()
			if n == noMoreNeighbors {
				break
			}
			if visited[n] {
				continue
			}
			visited[n] = true
			results.IncrementVisited()

			if visitLimit > 0 && results.VisitedCount() >= visitLimit {
				results.MarkIncomplete()
				return results, nil
			}

			vec, err := graph.vectorOf(n)
			if err != nil {
				return nil, err
			}
			score := s.similarity(query, vec)
			candidates.Push(n, score)
			if accept.Get(n) {
				results.Push(n, score)
			}
		}
	}

	return results, nil
}
