package hnsw

import "fmt"

// MemoryProvider is a VectorProvider backed by an in-memory slice of
// Vectors of a single Encoding, the concrete adapter used by the demo
// CLI. VectorValue is true random access by ordinal, so
// Copy() returns a provider over the same backing slice rather than a
// deep clone — safe for concurrent readers since the slice is never
// mutated after construction.
type MemoryProvider struct {
	vecs     []Vector
	encoding Encoding
	dim      int
}

// NewMemoryProvider validates that every vector shares encoding and
// dimensionality before wrapping them.
func NewMemoryProvider(encoding Encoding, vecs []Vector) (*MemoryProvider, error) {
	if len(vecs) == 0 {
		return nil, fmt.Errorf("%w: vectors must not be empty", ErrInvalidArgument)
	}
	dim := vecs[0].Dim()
	for i, v := range vecs {
		if v.Encoding != encoding {
			return nil, fmt.Errorf("%w: vector %d has encoding %s, want %s", ErrInvalidArgument, i, v.Encoding, encoding)
		}
		if v.Dim() != dim {
			return nil, fmt.Errorf("%w: vector %d has dimension %d, want %d", ErrInvalidArgument, i, v.Dim(), dim)
		}
	}
	return &MemoryProvider{vecs: vecs, encoding: encoding, dim: dim}, nil
}

func (p *MemoryProvider) Size() int      { return len(p.vecs) }
func (p *MemoryProvider) Dimension() int { return p.dim }
func (p *MemoryProvider) Encoding() Encoding { return p.encoding }

func (p *MemoryProvider) VectorValue(ord NodeId) (Vector, error) {
	if int(ord) < 0 || int(ord) >= len(p.vecs) {
		return Vector{}, fmt.Errorf("%w: ordinal %d out of range [0,%d)", ErrInvalidArgument, ord, len(p.vecs))
	}
	return p.vecs[ord], nil
}

func (p *MemoryProvider) Copy() VectorProvider {
	return &MemoryProvider{vecs: p.vecs, encoding: p.encoding, dim: p.dim}
}

// FaultProvider wraps another VectorProvider and injects ErrIoFailure
// for a configured set of ordinals, for exercising the partial-insertion
// failure semantics spec.md's Failure semantics section describes.
type FaultProvider struct {
	inner  VectorProvider
	faulty map[NodeId]bool
}

// NewFaultProvider wraps inner, failing VectorValue for every ordinal in
// faultyOrds.
func NewFaultProvider(inner VectorProvider, faultyOrds ...NodeId) *FaultProvider {
	faulty := make(map[NodeId]bool, len(faultyOrds))
	for _, o := range faultyOrds {
		faulty[o] = true
	}
	return &FaultProvider{inner: inner, faulty: faulty}
}

func (p *FaultProvider) Size() int          { return p.inner.Size() }
func (p *FaultProvider) Dimension() int     { return p.inner.Dimension() }
func (p *FaultProvider) Encoding() Encoding { return p.inner.Encoding() }

func (p *FaultProvider) VectorValue(ord NodeId) (Vector, error) {
	if p.faulty[ord] {
		return Vector{}, fmt.Errorf("%w: injected fault at ordinal %d", ErrIoFailure, ord)
	}
	return p.inner.VectorValue(ord)
}

func (p *FaultProvider) Copy() VectorProvider {
	return &FaultProvider{inner: p.inner.Copy(), faulty: p.faulty}
}
