// Package hnsw implements a concurrent Hierarchical Navigable Small World
// (HNSW) approximate-nearest-neighbor graph index over fixed-dimensional
// numeric vectors.
//
// The package supports many writer goroutines extending the graph at once
// and many reader goroutines searching it concurrently, with no global
// locks: neighbor-list mutation is resolved with optimistic compare-and-swap
// on a versioned slice, and the entry point is a single atomically-updated
// cell.
//
// Four pieces compose the engine: NeighborQueue (a bounded priority
// container), ConcurrentNeighborSet (per-node per-level neighbor storage
// with RNG-diversity pruning), Graph (the layered graph and its stateful
// read View), and Builder (insertion coordination) paired with Searcher
// (beam search).
package hnsw
