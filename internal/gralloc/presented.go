package gralloc

import "sync"

// Presented is the single-writer, many-reader cell holding the id of the
// buffer currently marked displayable (§3 PresentedId). It never clears:
// Free(id) after Present(id) removes the table entry but leaves the
// numeric id here, so a later read observes "absent" rather than
// resurrecting a stale buffer (§9 open-question decision).
type Presented struct {
	mu sync.RWMutex
	id uint64
	ok bool
}

// Set records id as the presented buffer.
func (p *Presented) Set(id uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.id = id
	p.ok = true
}

// Get returns the presented id and whether one has ever been set.
func (p *Presented) Get() (id uint64, ok bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.id, p.ok
}

// FrameCallback is invoked synchronously from the Present handler with a
// clone of the presented buffer's pixel bytes and its dimensions.
// Reinstalling replaces the previous callback; a nil callback is not an
// error (§4.2).
type FrameCallback func(data []byte, width, height int)

// CallbackCell holds the single installable FrameCallback (§4.2, §9
// "dynamic callback for frame presented").
type CallbackCell struct {
	mu sync.RWMutex
	fn FrameCallback
}

// Set installs fn, replacing any previous callback.
func (c *CallbackCell) Set(fn FrameCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fn = fn
}

// Invoke calls the installed callback, if any, with a fresh copy of data
// so the callback can retain it past the caller's lock scope.
func (c *CallbackCell) Invoke(data []byte, width, height int) {
	c.mu.RLock()
	fn := c.fn
	c.mu.RUnlock()
	if fn == nil {
		return
	}
	clone := make([]byte, len(data))
	copy(clone, data)
	fn(clone, width, height)
}
