package control

import (
	"bufio"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/twoyi/redroidhostd/internal/virtualinput"
	"github.com/twoyi/redroidhostd/internal/wire"
)

type stubSink struct {
	added chan net.Conn
}

func newStubSink() *stubSink { return &stubSink{added: make(chan net.Conn, 1)} }

func (s *stubSink) AddClient(conn net.Conn) { s.added <- conn }

// newConnectedTouchDevice starts a real virtualinput touch device on a
// temp unix socket and dials a consumer, returning the consumer side so
// the test can read back the descriptor and subsequent events.
func newConnectedTouchDevice(t *testing.T) (*virtualinput.Touch, net.Conn) {
	t.Helper()
	dir := t.TempDir()
	sockPath := filepath.Join(dir, "touch")

	desc := virtualinput.TouchDescriptor(720, 1280)
	device := virtualinput.New("touch", sockPath, desc, zerolog.Nop())
	go device.Serve()

	var consumer net.Conn
	var err error
	for i := 0; i < 50; i++ {
		consumer, err = net.Dial("unix", sockPath)
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("dial virtual touch device: %v", err)
	}

	// Drain the descriptor.
	buf := make([]byte, wire.DescriptorSize)
	if _, err := readFull(consumer, buf); err != nil {
		t.Fatalf("read descriptor: %v", err)
	}

	return virtualinput.NewTouch(device), consumer
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func TestHandleClientSendsStatusGreeting(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	sink := newStubSink()
	ep := New(Config{
		Width: 720, Height: 1280, RootFS: "/data/rootfs",
		ADBAddress: "127.0.0.1:5555", DisplayMode: "mirror",
	}, nil, nil, sink, zerolog.Nop())

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		ep.handleClient(conn)
	}()

	client, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	reader := bufio.NewReader(client)
	line, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("read greeting: %v", err)
	}

	var got status
	if err := json.Unmarshal([]byte(line), &got); err != nil {
		t.Fatalf("unmarshal greeting: %v", err)
	}
	if got.Width != 720 || got.Height != 1280 || got.RootFS != "/data/rootfs" {
		t.Errorf("unexpected greeting: %+v", got)
	}
	if !got.Streaming || got.Status != "running" {
		t.Errorf("expected running/streaming greeting, got %+v", got)
	}

	select {
	case added := <-sink.added:
		if added == nil {
			t.Error("expected the accepted connection to be handed to the sink")
		}
	case <-time.After(time.Second):
		t.Fatal("sink never received the duplicated connection")
	}
}

func TestDispatchLineTouchReachesDevice(t *testing.T) {
	touch, consumer := newConnectedTouchDevice(t)
	defer consumer.Close()

	ep := New(Config{}, touch, nil, nil, zerolog.Nop())
	ep.dispatchLine(`{"type":"touch","action":0,"pointer_id":0,"x":100,"y":200,"pressure":50}` + "\n")

	// DOWN on slot 0 emits 8 events (§8 scenario 1's first half).
	buf := make([]byte, wire.InputEventSize*8)
	if _, err := readFull(consumer, buf); err != nil {
		t.Fatalf("read events: %v", err)
	}
}

func TestDispatchLineUnknownTypeIgnored(t *testing.T) {
	ep := New(Config{}, nil, nil, nil, zerolog.Nop())
	// Must not panic despite nil touch/key producers.
	ep.dispatchLine(`{"type":"bogus"}` + "\n")
	ep.dispatchLine("not json at all\n")
}
