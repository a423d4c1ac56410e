package adbforward

import (
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// startEchoServer stubs the guest adbd with a local unix-socket echo
// server, matching §8 scenario 6.
func startEchoServer(t *testing.T, path string) {
	t.Helper()
	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("listen echo socket: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				io.Copy(c, c)
			}(conn)
		}
	}()
}

func TestBlindPumpEchoesBytes(t *testing.T) {
	dir := t.TempDir()
	sockPath := filepath.Join(dir, "adbd")
	startEchoServer(t, sockPath)

	fwd := New("127.0.0.1:0", sockPath, "", zerolog.Nop(), nil)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	fwd.listener = ln
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		fwd.handleClient(conn)
	}()

	client, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial forwarder: %v", err)
	}
	defer client.Close()

	if _, err := client.Write([]byte("HELO")); err != nil {
		t.Fatalf("write: %v", err)
	}

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 4)
	if _, err := io.ReadFull(client, buf); err != nil {
		t.Fatalf("read echo: %v", err)
	}
	if string(buf) != "HELO" {
		t.Fatalf("echoed %q, want HELO", buf)
	}
}

func TestDialGuestFallsBackToTCP(t *testing.T) {
	fallback, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen fallback: %v", err)
	}
	defer fallback.Close()

	missing := filepath.Join(os.TempDir(), "nonexistent-adbd.sock")
	fwd := New("", missing, fallback.Addr().String(), zerolog.Nop(), nil)

	conn, err := fwd.dialGuest()
	if err != nil {
		t.Fatalf("dialGuest should fall back to TCP: %v", err)
	}
	conn.Close()
}

func TestDialGuestFailsWithoutFallback(t *testing.T) {
	missing := filepath.Join(os.TempDir(), "nonexistent-adbd.sock")
	fwd := New("", missing, "", zerolog.Nop(), nil)
	if _, err := fwd.dialGuest(); err == nil {
		t.Fatal("expected error when both the domain socket and fallback are unavailable")
	}
}
