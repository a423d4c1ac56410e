package virtualinput

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/twoyi/redroidhostd/internal/wire"
)

// newTestDevice captures emitted events without a real socket, for
// asserting emission order against the §8 testable properties.
func newTestDevice() *Device {
	d := New("test", "/tmp/does-not-matter.sock", wire.DeviceDescriptor{}, zerolog.Nop())
	d.events = make(chan wire.InputEvent, 256)
	return d
}

func drain(d *Device) []wire.InputEvent {
	close(d.events)
	var out []wire.InputEvent
	for ev := range d.events {
		out = append(out, ev)
	}
	return out
}

func TestTouchTapSequence(t *testing.T) {
	d := newTestDevice()
	tc := NewTouch(d)

	tc.HandleAction(ActionDown, 0, 100, 200, 50)
	tc.HandleAction(ActionUp, 0, 0, 0, 0)

	events := drain(d)

	type ec struct {
		typ, code uint16
		value     int32
	}
	want := []ec{
		{wire.EvAbs, wire.AbsMtSlot, 0},
		{wire.EvAbs, wire.AbsMtTrackingID, 1},
		{wire.EvKey, wire.BtnTouch, 108},
		{wire.EvKey, wire.BtnToolFinger, 108},
		{wire.EvAbs, wire.AbsMtPositionX, 100},
		{wire.EvAbs, wire.AbsMtPositionY, 200},
		{wire.EvAbs, wire.AbsMtPressure, 50},
		{wire.EvSyn, wire.SynReport, wire.SynReport},
		{wire.EvAbs, wire.AbsMtSlot, 0},
		{wire.EvAbs, wire.AbsMtTrackingID, -1},
		{wire.EvSyn, wire.SynReport, wire.SynReport},
	}

	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d: %+v", len(events), len(want), events)
	}
	for i, w := range want {
		got := events[i]
		if got.Type != w.typ || got.Code != w.code || got.Value != w.value {
			t.Errorf("event %d = {type:%d code:%d value:%d}, want {%d %d %d}",
				i, got.Type, got.Code, got.Value, w.typ, w.code, w.value)
		}
	}
}

func TestTouchMoveOnInactiveSlotDropped(t *testing.T) {
	d := newTestDevice()
	tc := NewTouch(d)

	tc.HandleAction(ActionMove, 1, 10, 10, 10)

	events := drain(d)
	if len(events) != 0 {
		t.Fatalf("MOVE on inactive slot emitted %d events, want 0", len(events))
	}
}

func TestTouchSlotInvariant(t *testing.T) {
	d := newTestDevice()
	tc := NewTouch(d)

	tc.HandleAction(ActionDown, 0, 0, 0, 0)
	tc.HandleAction(ActionPointerDown, 1, 0, 0, 0)
	if !tc.ActiveSlots()[0] || !tc.ActiveSlots()[1] {
		t.Fatalf("slots 0 and 1 should be active after DOWN/POINTER_DOWN")
	}

	tc.HandleAction(ActionPointerUp, 1, 0, 0, 0)
	active := tc.ActiveSlots()
	if active[1] {
		t.Errorf("slot 1 should be inactive after POINTER_UP")
	}
	if !active[0] {
		t.Errorf("slot 0 should remain active; POINTER_UP only clears its own slot")
	}

	tc.HandleAction(ActionUp, 0, 0, 0, 0)
	active = tc.ActiveSlots()
	for i, a := range active {
		if a {
			t.Errorf("slot %d still active after UP, want all clear", i)
		}
	}
}

func TestKeyTapSequence(t *testing.T) {
	d := newTestDevice()
	k := NewKey(d)

	k.Tap(30)

	events := drain(d)
	if len(events) != 4 {
		t.Fatalf("got %d events, want 4 (press+syn, release+syn): %+v", len(events), events)
	}
	if events[0].Value != 1 || events[2].Value != 0 {
		t.Errorf("expected press (value=1) then release (value=0), got %d then %d", events[0].Value, events[2].Value)
	}
	if events[1].Type != wire.EvSyn || events[3].Type != wire.EvSyn {
		t.Errorf("expected SYN_REPORT after each half of the tap")
	}
}

func TestKeyDescriptorBitmask(t *testing.T) {
	d := KeyDescriptor()
	if d.KeyBitmask[14] != 0x1C {
		t.Errorf("key_bitmask[14] = %#x, want 0x1C", d.KeyBitmask[14])
	}
}

func TestTouchDescriptorRanges(t *testing.T) {
	d := TouchDescriptor(1080, 1920)
	if d.AbsMax[wire.AbsMtPositionX] != 1080 {
		t.Errorf("ABS_MT_POSITION_X max = %d, want 1080", d.AbsMax[wire.AbsMtPositionX])
	}
	if d.AbsMax[wire.AbsMtPositionY] != 1920 {
		t.Errorf("ABS_MT_POSITION_Y max = %d, want 1920", d.AbsMax[wire.AbsMtPositionY])
	}
	if d.AbsMax[wire.AbsMtPressure] != 80 {
		t.Errorf("ABS_MT_PRESSURE max = %d, want 80", d.AbsMax[wire.AbsMtPressure])
	}
}
