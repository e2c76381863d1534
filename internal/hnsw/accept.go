package hnsw

import "github.com/bits-and-blooms/bitset"

// BitsetAccept is an AcceptPredicate backed by a bits-and-blooms bitset:
// Get(id) reports whether bit id is set. Used to restrict what a search
// returns (e.g. a pre-filter over metadata) without restricting what it
// traverses, per spec.md §4.5.
type BitsetAccept struct {
	bits *bitset.BitSet
}

// NewBitsetAccept wraps bs. A nil bs behaves like the empty set (rejects
// everything).
func NewBitsetAccept(bs *bitset.BitSet) *BitsetAccept {
	return &BitsetAccept{bits: bs}
}

func (a *BitsetAccept) Get(id NodeId) bool {
	if a.bits == nil {
		return false
	}
	return a.bits.Test(uint(id))
}

func (a *BitsetAccept) Cardinality() int {
	if a.bits == nil {
		return 0
	}
	return int(a.bits.Count())
}
