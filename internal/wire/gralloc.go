package wire

import "encoding/binary"

// Gralloc command codes (§4.2).
const (
	CmdAllocate = 1
	CmdFree     = 2
	CmdLock     = 3
	CmdUnlock   = 4
	CmdGetInfo  = 5
	CmdPresent  = 7
)

// Pixel formats, matching Android's HAL_PIXEL_FORMAT values.
const (
	FormatRGBA8888 = 1
	FormatRGBX8888 = 2
	FormatRGB888   = 3
	FormatRGB565   = 4
	FormatBGRA8888 = 5
)

// BytesPerPixel returns the pixel size for a known gralloc format, or 4
// (RGBA8888's width) for an unrecognized one — the server's default
// format when Allocate is asked for format 0.
func BytesPerPixel(format uint32) int {
	switch format {
	case FormatRGBA8888, FormatRGBX8888, FormatBGRA8888:
		return 4
	case FormatRGB888:
		return 3
	case FormatRGB565:
		return 2
	default:
		return 4
	}
}

// GrallocRequestSize is the wire size of a GrallocRequest (§3).
const GrallocRequestSize = 4 + 8 + 4 + 4 + 4 + 8 + 8 + 8 // 48

// GrallocRequest is the 48-byte little-endian request struct a gralloc
// client sends on its connection.
type GrallocRequest struct {
	Command  uint32
	BufferID uint64
	Width    uint32
	Height   uint32
	Format   uint32
	Usage    uint64
	Offset   uint64
	Size     uint64
}

// DecodeGrallocRequest parses exactly GrallocRequestSize bytes of b into a
// GrallocRequest, field-by-little-endian-field.
func DecodeGrallocRequest(b []byte) GrallocRequest {
	_ = b[:GrallocRequestSize] // bounds check hint
	return GrallocRequest{
		Command:  binary.LittleEndian.Uint32(b[0:4]),
		BufferID: binary.LittleEndian.Uint64(b[4:12]),
		Width:    binary.LittleEndian.Uint32(b[12:16]),
		Height:   binary.LittleEndian.Uint32(b[16:20]),
		Format:   binary.LittleEndian.Uint32(b[20:24]),
		Usage:    binary.LittleEndian.Uint64(b[24:32]),
		Offset:   binary.LittleEndian.Uint64(b[32:40]),
		Size:     binary.LittleEndian.Uint64(b[40:48]),
	}
}

// GrallocResponseSize is the wire size of a GrallocResponse (§3).
const GrallocResponseSize = 4 + 8 + 4 + 4 + 4 + 4 + 8 // 36

// GrallocResponse is the 36-byte little-endian response struct.
type GrallocResponse struct {
	Status   int32
	BufferID uint64
	Width    uint32
	Height   uint32
	Stride   uint32
	Format   uint32
	Size     uint64
}

// Encode serializes the response field-by-little-endian-field.
func (r GrallocResponse) Encode() []byte {
	buf := make([]byte, GrallocResponseSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(r.Status))
	binary.LittleEndian.PutUint64(buf[4:12], r.BufferID)
	binary.LittleEndian.PutUint32(buf[12:16], r.Width)
	binary.LittleEndian.PutUint32(buf[16:20], r.Height)
	binary.LittleEndian.PutUint32(buf[20:24], r.Stride)
	binary.LittleEndian.PutUint32(buf[24:28], r.Format)
	binary.LittleEndian.PutUint64(buf[28:36], r.Size)
	return buf
}

// ErrorResponse builds the `{-1, id, 0, ...}` response shape the server
// sends when a command names a buffer id it cannot serve. An unknown
// command gets `{-1, 0, 0, ...}` instead.
func ErrorResponse(id uint64) GrallocResponse {
	return GrallocResponse{Status: -1, BufferID: id}
}
