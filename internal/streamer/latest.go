// Package streamer implements the framebuffer broadcaster of §4.3: a
// periodic producer that picks the best available frame source
// (presented gralloc buffer, then a Linux framebuffer device, then a
// generated diagnostic test pattern) and fans it out to connected TCP
// viewers as a sequence of FrameHeader records.
package streamer

import "sync"

// LatestFrame is the bounded 1-slot, drop-on-overflow cell the gralloc
// FrameCallback feeds (§9 "dynamic callback for frame presented"). The
// streamer polls it once per tick rather than the gralloc worker holding
// a function pointer into the streamer, keeping the two loosely coupled.
type LatestFrame struct {
	mu     sync.Mutex
	data   []byte
	width  int
	height int
}

// Set replaces the latest frame, overwriting whatever was there.
func (l *LatestFrame) Set(data []byte, width, height int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.data = data
	l.width = width
	l.height = height
}

// Get returns the latest frame and whether the cell currently holds
// non-nil data with positive dimensions.
func (l *LatestFrame) Get() (data []byte, width, height int, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.data == nil || l.width <= 0 || l.height <= 0 {
		return nil, 0, 0, false
	}
	return l.data, l.width, l.height, true
}
