// Package wire defines the fixed-layout byte encodings shared with the
// guest: evdev input events and device descriptors, the gralloc
// request/response structs, and the framebuffer frame header. Everything
// here is parsed and emitted field-by-little-endian-field; none of it
// reinterprets host memory as the wire format.
package wire

import (
	"encoding/binary"
	"io"
)

// evdev event types/codes the daemon emits. Only the subset this daemon
// needs; not a full evdev constant table.
const (
	EvSyn = 0x00
	EvKey = 0x01
	EvAbs = 0x03

	SynReport = 0

	BtnTouch        = 0x14a
	BtnToolFinger   = 0x145
	AbsMtSlot       = 0x2f
	AbsMtTouchMajor = 0x30
	AbsMtTouchMinor = 0x31
	AbsMtPositionX  = 0x35
	AbsMtPositionY  = 0x36
	AbsMtTrackingID = 0x39
	AbsMtPressure   = 0x3a
	AbsRz           = 0x03
	AbsThrottle     = 0x13
	AbsRudder       = 0x14

	InputPropButtonpad = 0x02

	AbsCnt = 0x40 // ABS_CNT, sized to cover the evdev ABS_* range used here
)

// InputEvent mirrors the Linux evdev input_event ABI: a timeval followed
// by (type, code, value). The daemon only ever produces these; it never
// parses an InputEvent read from a guest.
type InputEvent struct {
	TimeSec  int64
	TimeUsec int64
	Type     uint16
	Code     uint16
	Value    int32
}

// InputEventSize is the encoded size of InputEvent on the wire: two
// 8-byte timeval fields plus two 2-byte fields plus a 4-byte value,
// padded to 8-byte alignment to match the kernel's struct input_event
// layout on 64-bit hosts.
const InputEventSize = 24

// Encode serializes ev into the kernel's little-endian input_event layout.
func (ev InputEvent) Encode() []byte {
	buf := make([]byte, InputEventSize)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(ev.TimeSec))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(ev.TimeUsec))
	binary.LittleEndian.PutUint16(buf[16:18], ev.Type)
	binary.LittleEndian.PutUint16(buf[18:20], ev.Code)
	binary.LittleEndian.PutUint32(buf[20:24], uint32(ev.Value))
	return buf
}

// WriteTo writes the encoded event to w.
func (ev InputEvent) WriteTo(w io.Writer) error {
	_, err := w.Write(ev.Encode())
	return err
}
