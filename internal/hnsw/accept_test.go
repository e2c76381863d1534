package hnsw

import (
	"testing"

	"github.com/bits-and-blooms/bitset"
	"github.com/stretchr/testify/assert"
)

func TestBitsetAcceptGetAndCardinality(t *testing.T) {
	bs := bitset.New(16)
	bs.Set(2)
	bs.Set(5)
	a := NewBitsetAccept(bs)

	assert.True(t, a.Get(2))
	assert.True(t, a.Get(5))
	assert.False(t, a.Get(3))
	assert.Equal(t, 2, a.Cardinality())
}

func TestBitsetAcceptNilRejectsEverything(t *testing.T) {
	a := NewBitsetAccept(nil)
	assert.False(t, a.Get(0))
	assert.Equal(t, 0, a.Cardinality())
}

func TestAcceptAllAcceptsEverything(t *testing.T) {
	assert.True(t, AcceptAll.Get(0))
	assert.True(t, AcceptAll.Get(9999))
	assert.Equal(t, -1, AcceptAll.Cardinality())
}
