package pump

import "sync"

// DefaultTailSize is used when NewTail is given a non-positive size.
const DefaultTailSize = 8 << 10

// Tail is an io.Writer keeping only the last size bytes written to it.
// The stderr pumper writes into a Tail so diagnostics stay bounded no matter
// how chatty the decompiler is.
type Tail struct {
	mu   sync.Mutex
	b    []byte
	size int
	// total counts every byte ever written, including dropped ones.
	total int64
}

// NewTail returns a Tail holding at most size bytes.
func NewTail(size int) *Tail {
	if size <= 0 {
		size = DefaultTailSize
	}
	return &Tail{b: make([]byte, 0, size), size: size}
}

// Write appends p, dropping the oldest bytes beyond the limit. It never fails.
func (t *Tail) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total += int64(len(p))
	if len(p) >= t.size {
		t.b = append(t.b[:0], p[len(p)-t.size:]...)
		return len(p), nil
	}
	if len(t.b)+len(p) > t.size {
		drop := len(t.b) + len(p) - t.size
		t.b = append(t.b[:0], t.b[drop:]...)
	}
	t.b = append(t.b, p...)
	return len(p), nil
}

// String returns the retained bytes.
func (t *Tail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.b)
}

// Truncated reports whether bytes were dropped.
func (t *Tail) Truncated() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total > int64(len(t.b))
}

// Total returns the number of bytes ever written.
func (t *Tail) Total() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}
