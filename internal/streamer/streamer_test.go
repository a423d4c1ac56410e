package streamer

import (
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/twoyi/redroidhostd/internal/wire"
)

func newTestStreamer(width, height int) *Streamer {
	return New(width, height, "", zerolog.Nop(), nil)
}

func TestSelectSourcePrefersLatestFrame(t *testing.T) {
	s := newTestStreamer(4, 2)
	s.Latest.Set([]byte{1, 2, 3, 4}, 4, 2)

	data, w, h := s.selectSource()
	if w != 4 || h != 2 || len(data) != 4 {
		t.Fatalf("selectSource = (%v, %d, %d), want the latest frame", data, w, h)
	}
}

func TestSelectSourceFallsBackToTestPattern(t *testing.T) {
	s := newTestStreamer(4, 2)
	s.FBDevicePath = "/nonexistent/path/for/test"

	data, w, h := s.selectSource()
	if w != 4 || h != 2 {
		t.Fatalf("dims = (%d,%d), want configured (4,2)", w, h)
	}
	if len(data) != 4*2*4 {
		t.Fatalf("test pattern length = %d, want %d", len(data), 4*2*4)
	}
}

func TestIdempotentStart(t *testing.T) {
	s := newTestStreamer(2, 2)
	s.FPS = 1000
	s.Start()
	s.Start() // must not spawn a second worker
	time.Sleep(5 * time.Millisecond)
	s.Stop()

	if s.running.Load() {
		t.Fatalf("Stop should clear the running flag")
	}
}

func TestFrameBroadcastFanout(t *testing.T) {
	s := newTestStreamer(4, 2)
	s.Latest.Set(repeat(0xAB, 32), 4, 2)

	server, client := net.Pipe()
	s.AddClient(server)

	done := make(chan struct{})
	var gotW, gotH int32
	var gotPayload []byte
	go func() {
		gotW, gotH, gotPayload, _ = wire.ReadFrame(client)
		close(done)
	}()

	s.broadcastOnce()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
	}

	if gotW != 4 || gotH != 2 {
		t.Errorf("dims = (%d,%d), want (4,2)", gotW, gotH)
	}
	if len(gotPayload) != 32 {
		t.Errorf("payload length = %d, want 32", len(gotPayload))
	}
}

func TestBroadcastRemovesFailedClient(t *testing.T) {
	s := newTestStreamer(2, 2)
	s.Latest.Set(repeat(0, 16), 2, 2)

	server, client := net.Pipe()
	client.Close() // force the next write on server to fail
	s.AddClient(server)

	s.broadcastOnce()

	s.mu.Lock()
	n := len(s.clients)
	s.mu.Unlock()
	if n != 0 {
		t.Fatalf("failed client was not removed, clients = %d", n)
	}
}

func repeat(b byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}
