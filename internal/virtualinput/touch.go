package virtualinput

import (
	"sync"
	"time"

	"github.com/twoyi/redroidhostd/internal/wire"
)

// MaxPointers bounds the multi-touch slot table (§3 TouchState).
const MaxPointers = 5

// Touch actions, matching the Android MotionEvent action codes the
// control endpoint decodes off the wire.
const (
	ActionDown        = 0
	ActionUp          = 1
	ActionMove        = 2
	ActionCancel      = 3
	ActionPointerDown = 5
	ActionPointerUp   = 6
)

// Touch wraps a Device with the multi-touch slot state machine of §3/§4.1.
// The mutex serializes whole action handlers so that, per §5's ordering
// guarantee, one action's emitted sub-sequence never interleaves with
// another's.
type Touch struct {
	device *Device

	mu     sync.Mutex
	active [MaxPointers]bool
}

// NewTouch wraps device with touch semantics.
func NewTouch(device *Device) *Touch {
	return &Touch{device: device}
}

func now() (sec, usec int64) {
	t := time.Now()
	return t.Unix(), int64(t.Nanosecond() / 1000)
}

func (t *Touch) emit(typ, code uint16, value int32) {
	sec, usec := now()
	t.device.Emit(wire.InputEvent{TimeSec: sec, TimeUsec: usec, Type: typ, Code: code, Value: value})
}

func (t *Touch) syn() {
	t.emit(wire.EvSyn, wire.SynReport, wire.SynReport)
}

// HandleAction processes one (action, pointer) touch event and emits the
// corresponding evdev sub-sequence, per the §4.1 table. x, y, pressure are
// only meaningful for DOWN/POINTER_DOWN/MOVE. A pointerID outside the
// slot table is dropped rather than indexed — it can arrive straight off
// the wire from a remote viewer, unlike the trusted in-process caller the
// original assumed (§7 "malformed control message: log and continue").
func (t *Touch) HandleAction(action, pointerID int, x, y, pressure int32) {
	if pointerID < 0 || pointerID >= MaxPointers {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	switch action {
	case ActionDown, ActionPointerDown:
		t.active[pointerID] = true
		t.emit(wire.EvAbs, wire.AbsMtSlot, int32(pointerID))
		t.emit(wire.EvAbs, wire.AbsMtTrackingID, int32(pointerID+1))
		if action == ActionDown {
			t.emit(wire.EvKey, wire.BtnTouch, touchDown)
			t.emit(wire.EvKey, wire.BtnToolFinger, touchDown)
		}
		t.emit(wire.EvAbs, wire.AbsMtPositionX, x)
		t.emit(wire.EvAbs, wire.AbsMtPositionY, y)
		t.emit(wire.EvAbs, wire.AbsMtPressure, pressure)
		t.syn()

	case ActionMove:
		if !t.active[pointerID] {
			return // MOVE on an inactive slot is silently dropped
		}
		t.emit(wire.EvAbs, wire.AbsMtSlot, int32(pointerID))
		t.emit(wire.EvAbs, wire.AbsMtPositionX, x)
		t.emit(wire.EvAbs, wire.AbsMtPositionY, y)
		t.emit(wire.EvAbs, wire.AbsMtPressure, pressure)
		t.syn()

	case ActionPointerUp:
		if !t.active[pointerID] {
			return
		}
		t.active[pointerID] = false
		t.emit(wire.EvAbs, wire.AbsMtSlot, int32(pointerID))
		t.emit(wire.EvAbs, wire.AbsMtTrackingID, -1)
		t.syn()

	case ActionUp, ActionCancel:
		for i := 0; i < MaxPointers; i++ {
			if !t.active[i] {
				continue
			}
			t.active[i] = false
			t.emit(wire.EvAbs, wire.AbsMtSlot, int32(i))
			t.emit(wire.EvAbs, wire.AbsMtTrackingID, -1)
			t.syn()
		}
	}
}

// ActiveSlots reports which slots are currently down. Exposed for tests
// exercising the §8 "touch slot invariant".
func (t *Touch) ActiveSlots() [MaxPointers]bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

const touchDown = 108

// TouchDescriptor builds the DeviceDescriptor advertised by the touch
// device, per §4.1 "Descriptor details".
func TouchDescriptor(width, height int32) wire.DeviceDescriptor {
	var d wire.DeviceDescriptor
	d.Name = "vtouch"
	d.DriverVersion = 1
	d.Product = 1
	d.UniqueID = "<vtouch 0>"

	d.PropBitmask[0] = wire.InputPropButtonpad

	d.AbsBitmask[wire.AbsRz] = 0x80
	d.AbsBitmask[wire.AbsThrottle] = 0x60
	d.AbsBitmask[wire.AbsRudder] = 0x2

	d.AbsMin[wire.AbsMtPositionX] = 0
	d.AbsMax[wire.AbsMtPositionX] = uint32(width)

	d.AbsMin[wire.AbsMtPositionY] = 0
	d.AbsMax[wire.AbsMtPositionY] = uint32(height)

	d.AbsMin[wire.AbsMtTouchMajor] = 0
	d.AbsMin[wire.AbsMtTouchMinor] = 15

	d.AbsMin[wire.AbsMtSlot] = 4
	d.AbsMin[wire.AbsMtPressure] = 0
	d.AbsMax[wire.AbsMtPressure] = 80

	return d
}
