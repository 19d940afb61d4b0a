package serializer

import "sync"

// scratchPool hands out per call scratch buffers. A buffer is owned by the
// caller between checkout and checkin and never shared.
var scratchPool = sync.Pool{
	New: func() any {
		b := make([]byte, 0, 64*1024)
		return &b
	},
}

// checkout returns a buffer of length n
func checkout(n int) *[]byte {
	b := scratchPool.Get().(*[]byte)
	if cap(*b) < n {
		*b = make([]byte, n)
	}
	*b = (*b)[:n]
	return b
}

// checkin returns a buffer to the pool. Huge buffers are dropped.
func checkin(b *[]byte) {
	if cap(*b) > 4*1024*1024 {
		return
	}
	scratchPool.Put(b)
}
