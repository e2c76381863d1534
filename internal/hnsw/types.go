package hnsw

// NodeId is a non-negative ordinal identifying a vector in the external
// provider. It doubles as the index into level-0 neighbor storage.
type NodeId int32

// Level is a non-negative graph layer; 0 is the dense base layer that
// contains every inserted node.
type Level int32

// Encoding distinguishes the two vector value shapes the core supports.
// Modeled as a sum type per the dispatch-by-enum guidance in spec.md's
// design notes, rather than an interface hierarchy over value types.
type Encoding int

const (
	// EncodingFloat32 marks a Vector carrying F32.
	EncodingFloat32 Encoding = iota
	// EncodingByte marks a Vector carrying I8.
	EncodingByte
)

func (e Encoding) String() string {
	switch e {
	case EncodingFloat32:
		return "FLOAT32"
	case EncodingByte:
		return "BYTE"
	default:
		return "UNKNOWN"
	}
}

// Vector is the sum type over the two value shapes a VectorProvider may
// hand back: a float32 slice or a byte (int8-range) slice. Exactly one of
// F32/I8 is populated, selected by Encoding.
type Vector struct {
	Encoding Encoding
	F32      []float32
	I8       []byte
}

// F32Vector wraps a float32 slice as a Vector.
func F32Vector(v []float32) Vector { return Vector{Encoding: EncodingFloat32, F32: v} }

// I8Vector wraps a byte slice as a Vector.
func I8Vector(v []byte) Vector { return Vector{Encoding: EncodingByte, I8: v} }

// Dim returns the dimensionality of the populated branch.
func (v Vector) Dim() int {
	switch v.Encoding {
	case EncodingByte:
		return len(v.I8)
	default:
		return len(v.F32)
	}
}

// VectorProvider is a random-access source of vectors. Deliberately left
// as an external collaborator per spec.md's scope: the core only relies on
// Size/Dimension/VectorValue/Copy. Implementations in this repository
// (vectorprovider.go) are concrete adapters used for testing and the demo
// CLI, not part of the hardest subsystem.
type VectorProvider interface {
	// Size returns the number of vectors currently available.
	Size() int
	// Dimension returns the fixed dimensionality of every vector.
	Dimension() int
	// VectorValue returns the vector at ord, or ErrIoFailure wrapped with
	// context if the underlying source faults.
	VectorValue(ord NodeId) (Vector, error)
	// Copy returns a new VectorProvider backed by the same logical source
	// but with an independent cursor, safe for use from another goroutine.
	Copy() VectorProvider
	// Encoding reports which Vector branch VectorValue populates.
	Encoding() Encoding
}

// Similarity scores two vectors of the same encoding; higher means more
// similar. A function type, not an interface, matching the teacher's
// DistanceFunc idiom in internal/indexing/hnsw/distance.go.
type Similarity func(a, b Vector) float32

// AcceptPredicate restricts what a search returns without restricting what
// it traverses (see Searcher). Cardinality may return -1 when the
// predicate's selectivity is unknown or unbounded.
type AcceptPredicate interface {
	Get(id NodeId) bool
	Cardinality() int
}

// acceptAll is the zero-filtering predicate used when no AcceptPredicate
// is supplied to Search.
type acceptAll struct{}

func (acceptAll) Get(NodeId) bool { return true }
func (acceptAll) Cardinality() int { return -1 }

// AcceptAll is the sentinel "no filtering" predicate.
var AcceptAll AcceptPredicate = acceptAll{}
