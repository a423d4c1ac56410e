package virtualinput

import "github.com/twoyi/redroidhostd/internal/wire"

// Key wraps a Device with the key-tap protocol of §4.1: each
// (keycode, pressed?) produces EV_KEY followed by EV_SYN(SYN_REPORT); the
// convenience tap form emits press then release back-to-back.
type Key struct {
	device *Device
}

// NewKey wraps device with key semantics.
func NewKey(device *Device) *Key {
	return &Key{device: device}
}

func (k *Key) emit(typ, code uint16, value int32) {
	sec, usec := now()
	k.device.Emit(wire.InputEvent{TimeSec: sec, TimeUsec: usec, Type: typ, Code: code, Value: value})
}

// Press emits EV_KEY(keycode, pressed) followed by SYN_REPORT.
func (k *Key) Press(keycode int32, pressed bool) {
	var value int32
	if pressed {
		value = 1
	}
	k.emit(wire.EvKey, uint16(keycode), value)
	k.emit(wire.EvSyn, wire.SynReport, wire.SynReport)
}

// Tap emits a press immediately followed by a release: each is its own
// EV_KEY + SYN_REPORT pair per §4.1.
func (k *Key) Tap(keycode int32) {
	k.Press(keycode, true)
	k.Press(keycode, false)
}

// KeyDescriptor builds the DeviceDescriptor advertised by the key device,
// per §4.1: product id 1, driver version 1, key_bitmask[14] = 0x1C.
func KeyDescriptor() wire.DeviceDescriptor {
	var d wire.DeviceDescriptor
	d.Name = "vkey"
	d.DriverVersion = 1
	d.Product = 1
	d.UniqueID = "<keyboard 0>"
	d.KeyBitmask[14] = 0x1C
	return d
}
