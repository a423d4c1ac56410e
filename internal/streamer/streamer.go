package streamer

import (
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/twoyi/redroidhostd/internal/metrics"
	"github.com/twoyi/redroidhostd/internal/wire"
)

// DefaultFPS is the streamer's default tick rate (§4.3).
const DefaultFPS = 30

// Streamer owns the target resolution, the fallback framebuffer device
// path, the set of connected TCP viewers, and the gralloc-fed latest
// frame cell.
type Streamer struct {
	Width, Height int
	FBDevicePath  string
	FPS           int

	Latest *LatestFrame

	log     zerolog.Logger
	metrics *metrics.Registry

	running atomic.Bool
	tick    int

	mu      sync.Mutex
	clients []net.Conn

	testPatternBuf []byte
}

// New creates a streamer for the given target resolution. Latest is
// shared with the gralloc server's FrameCallback by the daemon's wiring
// code.
func New(width, height int, fbDevicePath string, log zerolog.Logger, reg *metrics.Registry) *Streamer {
	return &Streamer{
		Width: width, Height: height, FBDevicePath: fbDevicePath, FPS: DefaultFPS,
		Latest:         &LatestFrame{},
		log:            log.With().Str("component", "streamer").Logger(),
		metrics:        reg,
		testPatternBuf: make([]byte, width*height*4),
	}
}

// Start sets running=true and launches the single tick worker. Calling
// Start twice spawns only one worker (§8 "idempotent start").
func (s *Streamer) Start() {
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	go s.run()
}

// Stop clears the running flag; the worker observes it on its next tick
// and exits (§5 "cooperative shutdown via a per-component running flag").
func (s *Streamer) Stop() {
	s.running.Store(false)
}

// AddClient registers stream as a frame-stream recipient. Streams are
// owned by the streamer's client set until removed on a write error.
func (s *Streamer) AddClient(conn net.Conn) {
	s.mu.Lock()
	s.clients = append(s.clients, conn)
	n := len(s.clients)
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.ViewersActive.Set(float64(n))
	}
}

func (s *Streamer) run() {
	interval := time.Second / time.Duration(s.FPS)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for s.running.Load() {
		<-ticker.C
		s.broadcastOnce()
		s.tick++
	}
}

// broadcastOnce chooses a frame source per the §4.3 priority chain and
// fans it out to every registered client in insertion order.
func (s *Streamer) broadcastOnce() {
	data, width, height := s.selectSource()

	// The client set's lock is held across this tick's fan-out write, a
	// known contention point the spec accepts at 30 FPS and small viewer
	// counts (§5) rather than copying the slice out to write unlocked.
	s.mu.Lock()
	defer s.mu.Unlock()

	survivors := s.clients[:0]
	sent := 0
	for _, c := range s.clients {
		if err := wire.WriteFrame(c, int32(width), int32(height), data); err != nil {
			s.log.Debug().Err(err).Msg("viewer write failed, dropping client")
			c.Close()
			continue
		}
		survivors = append(survivors, c)
		sent++
	}
	s.clients = survivors

	if s.metrics != nil {
		s.metrics.FramesBroadcast.Add(float64(sent))
		s.metrics.ViewersActive.Set(float64(len(s.clients)))
	}
}

// selectSource implements the §4.3 priority chain: gralloc-presented
// buffer, then the fallback framebuffer device, then a generated test
// pattern. The streamer never re-negotiates resolution; a source frame
// with different dimensions than s.Width/s.Height is forwarded as-is.
func (s *Streamer) selectSource() (data []byte, width, height int) {
	if data, width, height, ok := s.Latest.Get(); ok {
		return data, width, height
	}

	if s.FBDevicePath != "" {
		if data, ok := s.readFBDevice(); ok {
			return data, s.Width, s.Height
		}
	}

	testPattern(s.testPatternBuf, s.Width, s.Height, s.tick)
	return s.testPatternBuf, s.Width, s.Height
}

func (s *Streamer) readFBDevice() ([]byte, bool) {
	f, err := os.Open(s.FBDevicePath)
	if err != nil {
		return nil, false
	}
	defer f.Close()

	want := s.Width * s.Height * 4
	buf := make([]byte, want)
	n, err := readFull(f, buf)
	if err != nil || n != want {
		return nil, false
	}
	return buf, true
}

func readFull(f *os.File, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := f.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, fmt.Errorf("short read from framebuffer device")
		}
	}
	return total, nil
}
