package gralloc

import (
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/twoyi/redroidhostd/internal/metrics"
	"github.com/twoyi/redroidhostd/internal/wire"
)

// defaultWidth/defaultHeight are used by Allocate when the request's
// width or height is zero.
const (
	defaultWidth  = 720
	defaultHeight = 1280
)

// Server is the gralloc domain-socket server of §4.2.
type Server struct {
	socketPath string
	log        zerolog.Logger

	Table     *Table
	Presented *Presented
	Callback  *CallbackCell

	metrics *metrics.Registry

	listener net.Listener
}

// New creates a gralloc server bound to socketPath once Serve runs. reg
// may be nil.
func New(socketPath string, log zerolog.Logger, reg *metrics.Registry) *Server {
	return &Server{
		socketPath: socketPath,
		log:        log.With().Str("component", "gralloc").Logger(),
		Table:      NewTable(),
		Presented:  &Presented{},
		Callback:   &CallbackCell{},
		metrics:    reg,
	}
}

func (s *Server) reportBuffersLive() {
	if s.metrics != nil {
		s.metrics.GrallocBuffersLive.Set(float64(s.Table.Len()))
	}
}

// Serve creates the parent directory if absent, unlinks any pre-existing
// socket file, binds, and dispatches each accepted connection to its own
// goroutine worker.
func (s *Server) Serve() error {
	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0o755); err != nil {
		return fmt.Errorf("create parent dir for gralloc socket: %w", err)
	}
	_ = unix.Unlink(s.socketPath)

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("bind gralloc socket at %s: %w", s.socketPath, err)
	}
	_ = unix.Chmod(s.socketPath, 0o660)
	s.listener = ln

	s.log.Info().Str("path", s.socketPath).Msg("gralloc server listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			s.log.Info().Err(err).Msg("gralloc listener closed")
			return nil
		}
		go s.handleConn(conn)
	}
}

// Close stops accepting connections and best-effort removes the socket
// file.
func (s *Server) Close() error {
	if s.listener != nil {
		_ = s.listener.Close()
	}
	_ = unix.Unlink(s.socketPath)
	return nil
}

// handleConn serves one client's request stream in strict order (§5
// "Gralloc requests on a single connection are served in order").
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	reqBuf := make([]byte, wire.GrallocRequestSize)
	for {
		if _, err := io.ReadFull(conn, reqBuf); err != nil {
			if err != io.EOF {
				s.log.Debug().Err(err).Msg("gralloc connection read ended")
			}
			return
		}
		req := wire.DecodeGrallocRequest(reqBuf)
		resp, responseWritten, err := s.dispatch(conn, req)
		if err != nil {
			s.log.Warn().Err(err).Uint32("command", req.Command).Msg("gralloc request failed")
			return
		}
		if responseWritten {
			continue
		}
		if _, err := conn.Write(resp.Encode()); err != nil {
			s.log.Debug().Err(err).Msg("gralloc response write failed")
			return
		}
	}
}

// dispatch handles one request. It returns the response for handleConn
// to write, unless responseWritten is true — Lock writes its response
// and pixel payload directly to conn (§4.2 "do NOT write a second
// response") and signals that by returning responseWritten=true.
func (s *Server) dispatch(conn net.Conn, req wire.GrallocRequest) (resp wire.GrallocResponse, responseWritten bool, err error) {
	switch req.Command {
	case wire.CmdAllocate:
		width, height := req.Width, req.Height
		if width == 0 {
			width = defaultWidth
		}
		if height == 0 {
			height = defaultHeight
		}
		format := req.Format
		if format == 0 {
			format = wire.FormatRGBA8888
		}
		bpp := wire.BytesPerPixel(format)
		buf := s.Table.Allocate(width, height, format, req.Usage, bpp)
		s.reportBuffersLive()
		return wire.GrallocResponse{
			Status: 0, BufferID: buf.ID, Width: buf.Width, Height: buf.Height,
			Stride: buf.Stride, Format: buf.Format, Size: uint64(len(buf.Data)),
		}, false, nil

	case wire.CmdFree:
		if s.Table.Free(req.BufferID) {
			s.reportBuffersLive()
			return wire.GrallocResponse{Status: 0, BufferID: req.BufferID}, false, nil
		}
		return wire.ErrorResponse(req.BufferID), false, nil

	case wire.CmdLock:
		found, writeErr := s.Table.WithReadLock(req.BufferID, func(buf *Buffer) error {
			lockResp := wire.GrallocResponse{
				Status: 0, BufferID: buf.ID, Width: buf.Width, Height: buf.Height,
				Stride: buf.Stride, Format: buf.Format, Size: uint64(len(buf.Data)),
			}
			if _, err := conn.Write(lockResp.Encode()); err != nil {
				return fmt.Errorf("write lock response: %w", err)
			}
			if _, err := conn.Write(buf.Data); err != nil {
				return fmt.Errorf("write lock payload: %w", err)
			}
			return nil
		})
		if !found {
			return wire.ErrorResponse(req.BufferID), false, nil
		}
		if writeErr != nil {
			return wire.GrallocResponse{}, true, writeErr
		}
		return wire.GrallocResponse{}, true, nil

	case wire.CmdUnlock:
		if req.Size > 0 {
			payload := make([]byte, req.Size)
			if _, err := io.ReadFull(conn, payload); err != nil {
				return wire.GrallocResponse{}, false, fmt.Errorf("read unlock payload: %w", err)
			}
			if !s.Table.Unlock(req.BufferID, payload) {
				return wire.ErrorResponse(req.BufferID), false, nil
			}
			return wire.GrallocResponse{Status: 0, BufferID: req.BufferID}, false, nil
		}
		if _, ok := s.Table.Get(req.BufferID); !ok {
			return wire.ErrorResponse(req.BufferID), false, nil
		}
		return wire.GrallocResponse{Status: 0, BufferID: req.BufferID}, false, nil

	case wire.CmdGetInfo:
		buf, ok := s.Table.Get(req.BufferID)
		if !ok {
			return wire.ErrorResponse(req.BufferID), false, nil
		}
		return wire.GrallocResponse{
			Status: 0, BufferID: buf.ID, Width: buf.Width, Height: buf.Height,
			Stride: buf.Stride, Format: buf.Format, Size: uint64(len(buf.Data)),
		}, false, nil

	case wire.CmdPresent:
		s.Presented.Set(req.BufferID)
		if buf, ok := s.Table.Get(req.BufferID); ok {
			s.Callback.Invoke(buf.Data, int(buf.Width), int(buf.Height))
		}
		return wire.GrallocResponse{Status: 0, BufferID: req.BufferID}, false, nil

	default:
		return wire.GrallocResponse{Status: -1}, false, nil
	}
}
