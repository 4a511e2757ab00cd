package pool_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/CZ-NIC/go-cdns/internal/pool"
)

func TestByteBufferReuse(t *testing.T) {
	bb := pool.GetItemBuffer()
	bb.MustWrite([]byte{1, 2, 3})
	require.Equal(t, 3, bb.Len())

	pool.PutItemBuffer(bb)

	bb2 := pool.GetItemBuffer()
	require.Equal(t, 0, bb2.Len())
}

func TestByteBufferGrow(t *testing.T) {
	bb := pool.NewByteBuffer(4)
	bb.Grow(100)
	require.GreaterOrEqual(t, bb.Cap(), 100)

	n, err := bb.Write(make([]byte, 50))
	require.NoError(t, err)
	require.Equal(t, 50, n)
	require.Equal(t, 50, bb.Len())
}

func TestByteBufferPoolDiscardsOversized(t *testing.T) {
	p := pool.NewByteBufferPool(4, 8)
	bb := p.Get()
	bb.Grow(100)
	p.Put(bb)

	bb2 := p.Get()
	require.Equal(t, 0, bb2.Len())
	require.Less(t, bb2.Cap(), 100)
}
