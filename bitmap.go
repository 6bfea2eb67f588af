package geoarrow

import (
	"github.com/apache/arrow-go/v18/arrow/bitutil"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// validityBitmap is a growable validity bitmap that is only materialized
// once the first null arrives: callers skip appendBit for valid features
// while the bitmap is unallocated, and ensureAllocated backfills ones for
// every previously appended feature. appendBit itself always records a bit.
type validityBitmap struct {
	bytes []byte
	nbits int
}

func (b *validityBitmap) allocated() bool { return b.bytes != nil }

func (b *validityBitmap) reset() {
	b.bytes = nil
	b.nbits = 0
}

func (b *validityBitmap) appendBit(valid bool) {
	if byteIdx := b.nbits / 8; byteIdx >= len(b.bytes) {
		b.bytes = append(b.bytes, 0)
	}
	if valid {
		bitutil.SetBit(b.bytes, b.nbits)
	} else {
		bitutil.ClearBit(b.bytes, b.nbits)
	}
	b.nbits++
}

// ensureAllocated backfills ones for the n features appended before the
// first null.
func (b *validityBitmap) ensureAllocated(n int64) {
	if b.allocated() {
		return
	}
	b.bytes = make([]byte, bitutil.BytesForBits(n))
	for i := int64(0); i < n; i++ {
		bitutil.SetBit(b.bytes, int(i))
	}
	b.nbits = int(n)
}

// buffer wraps the bitmap bytes into an Arrow buffer, or returns nil when no
// null was ever appended.
func (b *validityBitmap) buffer() *memory.Buffer {
	if !b.allocated() {
		return nil
	}
	return memory.NewBufferBytes(b.bytes)
}
