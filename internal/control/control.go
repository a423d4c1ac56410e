// Package control implements the control endpoint of §4.6: a TCP listener
// for viewer clients that greets each with a status line, hands the same
// connection to the FrameStreamer as a write-only client, and dispatches
// newline-delimited touch/key messages read from it into the virtual
// input producers.
package control

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net"

	"github.com/rs/zerolog"

	"github.com/twoyi/redroidhostd/internal/virtualinput"
)

// status is the greeting record sent once per accepted connection. Field
// names and casing are part of the wire contract with viewer clients.
type status struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	RootFS      string `json:"rootfs"`
	Status      string `json:"status"`
	Streaming   bool   `json:"streaming"`
	ADBAddress  string `json:"adb_address"`
	DisplayMode string `json:"display_mode"`
}

// message is the newline-delimited envelope read back from a connected
// viewer. Unrecognized Type values are ignored per §4.6.
type message struct {
	Type string `json:"type"`

	Action    int     `json:"action"`
	PointerID int     `json:"pointer_id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Pressure  float64 `json:"pressure"`

	Keycode int32 `json:"keycode"`
}

// FrameSink is satisfied by the streamer: the control endpoint hands it
// the accepted connection as a write-only fan-out client.
type FrameSink interface {
	AddClient(conn net.Conn)
}

// Config describes the fixed fields of the status greeting.
type Config struct {
	ListenAddr  string
	Width       int
	Height      int
	RootFS      string
	ADBAddress  string
	DisplayMode string
}

// Endpoint accepts viewer TCP clients.
type Endpoint struct {
	cfg Config

	touch *virtualinput.Touch
	key   *virtualinput.Key
	sink  FrameSink

	log zerolog.Logger

	listener net.Listener
}

// New creates a control endpoint wired to the given touch/key producers
// and frame sink.
func New(cfg Config, touch *virtualinput.Touch, key *virtualinput.Key, sink FrameSink, log zerolog.Logger) *Endpoint {
	return &Endpoint{
		cfg: cfg, touch: touch, key: key, sink: sink,
		log: log.With().Str("component", "control").Logger(),
	}
}

// Serve accepts viewer clients until the listener is closed.
func (e *Endpoint) Serve() error {
	ln, err := net.Listen("tcp", e.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("bind control listener at %s: %w", e.cfg.ListenAddr, err)
	}
	e.listener = ln
	e.log.Info().Str("addr", e.cfg.ListenAddr).Msg("control endpoint listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			e.log.Info().Err(err).Msg("control listener closed")
			return nil
		}
		go e.handleClient(conn)
	}
}

// Close stops accepting new viewer connections.
func (e *Endpoint) Close() error {
	if e.listener != nil {
		return e.listener.Close()
	}
	return nil
}

func (e *Endpoint) handleClient(conn net.Conn) {
	peer := conn.RemoteAddr().String()
	e.log.Info().Str("remote", peer).Msg("viewer connected")

	greeting, err := json.Marshal(status{
		Width: e.cfg.Width, Height: e.cfg.Height, RootFS: e.cfg.RootFS,
		Status: "running", Streaming: true,
		ADBAddress: e.cfg.ADBAddress, DisplayMode: e.cfg.DisplayMode,
	})
	if err != nil {
		e.log.Warn().Err(err).Msg("failed to encode status greeting")
		conn.Close()
		return
	}
	if _, err := conn.Write(append(greeting, '\n')); err != nil {
		e.log.Warn().Err(err).Str("remote", peer).Msg("failed to write status greeting")
		conn.Close()
		return
	}

	// The same connection is handed to the streamer as a write-only fan-out
	// client (§4.6 step 2: "duplicate the stream"); unlike the original's
	// try_clone of a raw fd, a net.Conn already tolerates one goroutine
	// reading while another (the streamer's tick loop) writes.
	if e.sink != nil {
		e.sink.AddClient(conn)
	}

	e.dispatchMessages(conn, peer)
}

// dispatchMessages reads newline-delimited JSON messages from conn until
// EOF or a read error; disconnection here only ends input processing, the
// frame-streaming half continues until the streamer observes a write
// error (§4.6).
func (e *Endpoint) dispatchMessages(conn net.Conn, peer string) {
	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			e.dispatchLine(line)
		}
		if err != nil {
			if err != io.EOF {
				e.log.Debug().Err(err).Str("remote", peer).Msg("error reading from viewer")
			}
			e.log.Info().Str("remote", peer).Msg("viewer input stream closed")
			return
		}
	}
}

func (e *Endpoint) dispatchLine(line string) {
	var msg message
	if err := json.Unmarshal([]byte(line), &msg); err != nil {
		e.log.Debug().Err(err).Msg("malformed control message, ignoring")
		return
	}

	switch msg.Type {
	case "touch":
		if e.touch != nil {
			e.touch.HandleAction(msg.Action, msg.PointerID, int32(msg.X), int32(msg.Y), int32(msg.Pressure))
		}
	case "key":
		if e.key != nil {
			e.key.Tap(msg.Keycode)
		}
	default:
		// Unknown message types are ignored per §4.6.
	}
}
