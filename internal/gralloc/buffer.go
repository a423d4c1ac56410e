// Package gralloc implements the software graphics-allocator server of
// §4.2: a domain-socket protocol that manages pixel buffers keyed by a
// monotonically increasing id (buffers carry no reference count; each
// lives until a Free names it), tracks which one is currently
// "presented", and delivers presented frames to an installable callback.
package gralloc

import "sync"

// Buffer is a single allocated pixel buffer. Owned exclusively by the
// buffer table; never aliased outside it. The byte slice's length never
// changes after allocation (§3 GrallocBuffer invariant).
type Buffer struct {
	ID     uint64
	Width  uint32
	Height uint32
	Format uint32
	Usage  uint64
	Stride uint32
	Data   []byte
}

// Table is the many-reader/single-writer map of live buffers (§3
// BufferTable, §5 concurrency model). Allocate and Free take the write
// lock; GetInfo and the data copy step of Lock take the read lock;
// Unlock's byte copy takes the write lock only for the copy itself —
// never across network I/O.
type Table struct {
	mu      sync.RWMutex
	buffers map[uint64]*Buffer
	nextID  uint64
}

// NewTable creates an empty buffer table; ids are allocated starting at 1.
func NewTable() *Table {
	return &Table{buffers: make(map[uint64]*Buffer), nextID: 1}
}

// Allocate creates a new buffer of the given dimensions/format/usage,
// assigns it the next id, inserts it, and returns it.
func (t *Table) Allocate(width, height, format uint32, usage uint64, bpp int) *Buffer {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.nextID
	t.nextID++

	stride := width
	size := int(stride) * int(height) * bpp
	buf := &Buffer{
		ID: id, Width: width, Height: height, Format: format,
		Usage: usage, Stride: stride, Data: make([]byte, size),
	}
	t.buffers[id] = buf
	return buf
}

// Free removes the entry for id, reporting whether it existed. Does not
// clear PresentedId even if id was presented (§9 open-question decision,
// §8 "Present causality").
func (t *Table) Free(id uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.buffers[id]; !ok {
		return false
	}
	delete(t.buffers, id)
	return true
}

// Len returns the number of currently live (unfreed) buffers.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.buffers)
}

// Get returns the table's own *Buffer for id (not a copy), or ok=false if
// id is absent. The returned *Buffer must not be mutated by the caller;
// Unlock goes through Table.Unlock instead.
func (t *Table) Get(id uint64) (buf *Buffer, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	b, ok := t.buffers[id]
	return b, ok
}

// WithReadLock looks up id and, while still holding the table's read
// lock, calls fn with the buffer. Lock (§4.2) is the one caller that
// needs this: it must hold the read lock across its single write of
// buf.Data to the connection, excluding a concurrent Unlock's in-place
// mutation of the same backing array (§5). Returns ok=false without
// calling fn if id is absent.
func (t *Table) WithReadLock(id uint64, fn func(*Buffer) error) (ok bool, err error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	b, ok := t.buffers[id]
	if !ok {
		return false, nil
	}
	return true, fn(b)
}

// Unlock copies payload into the buffer's data, truncated to the buffer's
// declared capacity, under the write lock. The lock is held only for the
// copy, never across the network read that produced payload (§4.2).
func (t *Table) Unlock(id uint64, payload []byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	b, ok := t.buffers[id]
	if !ok {
		return false
	}
	n := copy(b.Data, payload)
	for i := n; i < len(b.Data); i++ {
		b.Data[i] = 0
	}
	return true
}
