// Package adbforward implements the ADB forwarder of §4.5: a blind
// bidirectional byte pump between a listening TCP port and the guest's
// adbd domain socket, with an optional TCP fallback.
package adbforward

import (
	"fmt"
	"io"
	"net"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"

	"github.com/twoyi/redroidhostd/internal/metrics"
)

// copyBufferSize is the buffer size for each direction of the pump (§4.5).
const copyBufferSize = 8 * 1024

// Forwarder accepts TCP clients and pumps their bytes to/from the guest
// adbd domain socket.
type Forwarder struct {
	ListenAddr     string
	DomainSockPath string
	TCPFallback    string // e.g. "127.0.0.1:5037"; empty disables it

	log     zerolog.Logger
	metrics *metrics.Registry

	listener net.Listener
}

// New creates a forwarder. reg may be nil.
func New(listenAddr, domainSockPath, tcpFallback string, log zerolog.Logger, reg *metrics.Registry) *Forwarder {
	return &Forwarder{
		ListenAddr: listenAddr, DomainSockPath: domainSockPath, TCPFallback: tcpFallback,
		log:     log.With().Str("component", "adbforward").Logger(),
		metrics: reg,
	}
}

// Serve accepts TCP clients until the listener is closed.
func (f *Forwarder) Serve() error {
	ln, err := net.Listen("tcp", f.ListenAddr)
	if err != nil {
		return fmt.Errorf("bind adb forward listener at %s: %w", f.ListenAddr, err)
	}
	f.listener = ln
	f.log.Info().Str("addr", f.ListenAddr).Msg("adb forwarder listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			f.log.Info().Err(err).Msg("adb forward listener closed")
			return nil
		}
		go f.handleClient(conn)
	}
}

// Close stops accepting new connections.
func (f *Forwarder) Close() error {
	if f.listener != nil {
		return f.listener.Close()
	}
	return nil
}

func (f *Forwarder) handleClient(client net.Conn) {
	defer client.Close()

	guest, err := f.dialGuest()
	if err != nil {
		f.log.Warn().Err(err).Msg("failed to reach guest adbd, closing client")
		return
	}
	defer guest.Close()

	var pumps conc.WaitGroup
	pumps.Go(func() { f.pump(client, guest) })
	pumps.Go(func() { f.pump(guest, client) })
	pumps.Wait()

	f.log.Info().Msg("adb forward connection closed")
}

// dialGuest opens the domain socket to the guest's adbd; on failure, if a
// TCP fallback is configured, it tries that instead.
func (f *Forwarder) dialGuest() (net.Conn, error) {
	conn, err := net.Dial("unix", f.DomainSockPath)
	if err == nil {
		return conn, nil
	}
	if f.TCPFallback == "" {
		return nil, fmt.Errorf("dial guest adbd at %s: %w", f.DomainSockPath, err)
	}
	fallback, fallbackErr := net.Dial("tcp", f.TCPFallback)
	if fallbackErr != nil {
		return nil, fmt.Errorf("dial guest adbd at %s: %w (tcp fallback %s also failed: %v)", f.DomainSockPath, err, f.TCPFallback, fallbackErr)
	}
	return fallback, nil
}

// pump copies from src to dst in copyBufferSize chunks, terminating on
// read 0, a read error, or a write error on the peer.
func (f *Forwarder) pump(dst io.Writer, src io.Reader) {
	buf := make([]byte, copyBufferSize)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return
			}
			if f.metrics != nil {
				f.metrics.ADBBytesPumped.Add(float64(n))
			}
		}
		if err != nil {
			return
		}
	}
}
