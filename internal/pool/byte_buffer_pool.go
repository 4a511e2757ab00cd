// Package pool provides reusable byte buffers in two sizes. The CBOR
// encoder takes its per-item header scratch space from the item pool so it
// does not allocate on every item written; the block-sized pool has no
// caller inside this module.
package pool

import (
	"io"
	"sync"
)

// Default and maximum sizes for the two buffer pools this package exposes:
// one sized for a single CBOR item header/value, one sized for a whole
// serialized block.
const (
	ItemBufferDefaultSize  = 256             // typical header + small value
	ItemBufferMaxThreshold = 1024 * 16       // 16KiB
	BlockBufferDefaultSize = 1024 * 64       // 64KiB
	BlockBufferMaxThreshold = 1024 * 1024 * 8 // 8MiB
)

type ByteBuffer struct {
	// B is the underlying byte slice.
	B []byte
}

// NewByteBuffer creates a new ByteBuffer with the specified default size.
func NewByteBuffer(defaultSize int) *ByteBuffer {
	return &ByteBuffer{
		B: make([]byte, 0, defaultSize),
	}
}

// Bytes returns the underlying byte slice.
func (bb *ByteBuffer) Bytes() []byte {
	return bb.B
}

// Reset resets the buffer to be empty, but retains the allocated memory for reuse.
func (bb *ByteBuffer) Reset() {
	bb.B = bb.B[:0]
}

// Len returns the length of the buffer.
func (bb *ByteBuffer) Len() int {
	return len(bb.B)
}

// Cap returns the capacity of the buffer.
func (bb *ByteBuffer) Cap() int {
	return cap(bb.B)
}

// MustWrite writes data to the buffer, growing it if necessary.
func (bb *ByteBuffer) MustWrite(data []byte) {
	bb.B = append(bb.B, data...)
}

// Grow ensures the buffer can hold requiredBytes more bytes without
// reallocating.
//
// Growth strategy: small buffers grow by ItemBufferDefaultSize to minimize
// reallocations; large buffers grow by 25% of current capacity.
func (bb *ByteBuffer) Grow(requiredBytes int) {
	available := cap(bb.B) - len(bb.B)
	if available >= requiredBytes {
		return
	}

	growBy := ItemBufferDefaultSize
	if cap(bb.B) > 4*ItemBufferDefaultSize {
		growBy = cap(bb.B) / 4
	}

	if growBy < requiredBytes {
		growBy = requiredBytes
	}

	newBuf := make([]byte, len(bb.B), len(bb.B)+growBy)
	copy(newBuf, bb.B)
	bb.B = newBuf
}

// Write appends the contents of data to the buffer, growing it as needed. It
// implements io.Writer so a ByteBuffer can be handed directly to an encoder.
func (bb *ByteBuffer) Write(data []byte) (int, error) {
	bb.Grow(len(data))
	bb.B = append(bb.B, data...)

	return len(data), nil
}

// WriteTo writes the contents of the buffer to w.
func (bb *ByteBuffer) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(bb.B)
	return int64(n), err
}

// ByteBufferPool pools ByteBuffers of a given default size, discarding
// buffers that have grown past maxThreshold instead of returning them to
// the pool.
type ByteBufferPool struct {
	pool         sync.Pool
	maxThreshold int
}

// NewByteBufferPool creates a new ByteBufferPool with buffers of the specified default size.
func NewByteBufferPool(defaultSize int, maxThreshold int) *ByteBufferPool {
	return &ByteBufferPool{
		pool: sync.Pool{
			New: func() any {
				return NewByteBuffer(defaultSize)
			},
		},
		maxThreshold: maxThreshold,
	}
}

// Get retrieves a ByteBuffer from the pool.
func (bbp *ByteBufferPool) Get() *ByteBuffer {
	bb, _ := bbp.pool.Get().(*ByteBuffer)
	return bb
}

// Put returns a ByteBuffer to the pool for reuse.
func (bbp *ByteBufferPool) Put(bb *ByteBuffer) {
	if bb == nil {
		return
	}

	if bbp.maxThreshold > 0 && cap(bb.B) > bbp.maxThreshold {
		return
	}

	bb.Reset()
	bbp.pool.Put(bb)
}

var (
	itemDefaultPool  = NewByteBufferPool(ItemBufferDefaultSize, ItemBufferMaxThreshold)
	blockDefaultPool = NewByteBufferPool(BlockBufferDefaultSize, BlockBufferMaxThreshold)
)

// GetItemBuffer retrieves a ByteBuffer sized for a single CBOR item.
func GetItemBuffer() *ByteBuffer { return itemDefaultPool.Get() }

// PutItemBuffer returns a ByteBuffer to the item pool.
func PutItemBuffer(bb *ByteBuffer) { itemDefaultPool.Put(bb) }

// GetBlockBuffer retrieves a ByteBuffer sized for a whole serialized block.
func GetBlockBuffer() *ByteBuffer { return blockDefaultPool.Get() }

// PutBlockBuffer returns a ByteBuffer to the block pool.
func PutBlockBuffer(bb *ByteBuffer) { blockDefaultPool.Put(bb) }
