package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// FrameMagic is the 5-byte magic that begins every FrameHeader.
const FrameMagic = "FRAME"

// FrameHeaderSize is the size of the header preceding the pixel payload:
// the magic plus width, height, and length as little-endian int32/uint32.
const FrameHeaderSize = len(FrameMagic) + 4 + 4 + 4

// WriteFrame writes a FrameHeader followed by payload to w, per §3:
// "FRAME" ‖ width:i32 LE ‖ height:i32 LE ‖ length:u32 LE ‖ payload.
func WriteFrame(w io.Writer, width, height int32, payload []byte) error {
	header := make([]byte, FrameHeaderSize)
	copy(header, FrameMagic)
	binary.LittleEndian.PutUint32(header[5:9], uint32(width))
	binary.LittleEndian.PutUint32(header[9:13], uint32(height))
	binary.LittleEndian.PutUint32(header[13:17], uint32(len(payload)))

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write frame payload: %w", err)
	}
	return nil
}

// ReadFrame reads one FrameHeader and its payload from r. Used by tests
// and by any future viewer-side tooling; the streamer itself only writes.
func ReadFrame(r io.Reader) (width, height int32, payload []byte, err error) {
	header := make([]byte, FrameHeaderSize)
	if _, err = io.ReadFull(r, header); err != nil {
		return 0, 0, nil, fmt.Errorf("read frame header: %w", err)
	}
	if string(header[0:5]) != FrameMagic {
		return 0, 0, nil, fmt.Errorf("bad frame magic %q", header[0:5])
	}
	width = int32(binary.LittleEndian.Uint32(header[5:9]))
	height = int32(binary.LittleEndian.Uint32(header[9:13]))
	length := binary.LittleEndian.Uint32(header[13:17])

	payload = make([]byte, length)
	if _, err = io.ReadFull(r, payload); err != nil {
		return 0, 0, nil, fmt.Errorf("read frame payload: %w", err)
	}
	return width, height, payload, nil
}
