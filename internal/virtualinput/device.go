// Package virtualinput implements the touch and key virtual evdev
// devices: each is a domain-socket server that accepts a single guest
// consumer, streams it a DeviceDescriptor once, and then fans in
// InputEvents produced by any number of concurrent external sources (the
// local preview window, remote viewers over the control endpoint).
package virtualinput

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/twoyi/redroidhostd/internal/wire"
)

// Device owns one virtual evdev socket. At most one consumer is attached
// at a time; accepting a new one replaces the producer channel that
// feeds it, per §4.1 "producer registration".
type Device struct {
	name       string
	socketPath string
	descriptor wire.DeviceDescriptor
	log        zerolog.Logger

	mu     sync.Mutex
	events chan wire.InputEvent // nil when no consumer is attached

	listener net.Listener
}

// New creates a device bound to socketPath. The socket is not bound until
// Serve is called.
func New(name, socketPath string, descriptor wire.DeviceDescriptor, log zerolog.Logger) *Device {
	return &Device{
		name:       name,
		socketPath: socketPath,
		descriptor: descriptor,
		log:        log.With().Str("component", "virtualinput."+name).Logger(),
	}
}

// Serve creates the parent directory if absent, unlinks any pre-existing
// socket file, binds, and accepts guest connections until the listener is
// closed. Bind failure is returned without being logged here; the caller
// (the daemon's top level) logs it and lets the other components continue
// per §7.
func (d *Device) Serve() error {
	if err := os.MkdirAll(filepath.Dir(d.socketPath), 0o755); err != nil {
		return fmt.Errorf("create parent dir for %s: %w", d.socketPath, err)
	}
	_ = unix.Unlink(d.socketPath)

	ln, err := net.Listen("unix", d.socketPath)
	if err != nil {
		return fmt.Errorf("bind %s socket at %s: %w", d.name, d.socketPath, err)
	}
	_ = unix.Chmod(d.socketPath, 0o660)

	d.mu.Lock()
	d.listener = ln
	d.mu.Unlock()

	d.log.Info().Str("path", d.socketPath).Msg("virtual input device listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			d.log.Info().Err(err).Msg("virtual input listener closed")
			return nil
		}
		go d.handleConsumer(conn)
	}
}

// Close stops accepting new consumers and best-effort removes the socket
// file.
func (d *Device) Close() error {
	d.mu.Lock()
	ln := d.listener
	d.mu.Unlock()
	if ln != nil {
		_ = ln.Close()
	}
	_ = unix.Unlink(d.socketPath)
	return nil
}

func (d *Device) handleConsumer(conn net.Conn) {
	defer conn.Close()
	d.log.Info().Str("remote", conn.RemoteAddr().String()).Msg("guest consumer connected")

	if _, err := conn.Write(d.descriptor.Encode()); err != nil {
		d.log.Warn().Err(err).Msg("failed writing device descriptor")
		return
	}

	events := make(chan wire.InputEvent, 64)
	d.mu.Lock()
	d.events = events
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		if d.events == events {
			d.events = nil
		}
		d.mu.Unlock()
	}()

	for ev := range events {
		if err := ev.WriteTo(conn); err != nil {
			d.log.Warn().Err(err).Msg("consumer write failed, ending session")
			return
		}
	}
}

// Emit enqueues ev for the current consumer. If no consumer is attached
// the event is silently dropped, per §4.1 "Events produced while no
// consumer is attached are dropped".
func (d *Device) Emit(ev wire.InputEvent) {
	d.mu.Lock()
	ch := d.events
	d.mu.Unlock()
	if ch == nil {
		return
	}
	select {
	case ch <- ev:
	default:
		// Consumer is not draining fast enough; drop rather than block
		// the producer. §5 requires FIFO delivery, not bounded latency.
		d.log.Warn().Msg("event channel full, dropping event")
	}
}

// Registry looks devices up by name so any producer (local preview
// window, control endpoint) can inject events without holding a direct
// reference, per the "avoid process-wide globals" design note in §9:
// this is a handle passed around, not a package-level global.
type Registry struct {
	mu      sync.RWMutex
	devices map[string]*Device
}

// NewRegistry creates an empty device registry.
func NewRegistry() *Registry {
	return &Registry{devices: make(map[string]*Device)}
}

// Register adds d under its name.
func (r *Registry) Register(d *Device) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices[d.name] = d
}

// Get returns the named device, or nil if it was never registered.
func (r *Registry) Get(name string) *Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.devices[name]
}
