package gralloc

import (
	"bytes"
	"testing"

	"github.com/twoyi/redroidhostd/internal/wire"
)

func TestAllocateGetInfoFreeBijection(t *testing.T) {
	table := NewTable()
	buf := table.Allocate(4, 2, wire.FormatRGBA8888, 0, wire.BytesPerPixel(wire.FormatRGBA8888))

	if buf.ID != 1 {
		t.Fatalf("first allocated id = %d, want 1", buf.ID)
	}
	if buf.Stride != 4 || len(buf.Data) != 32 {
		t.Fatalf("stride=%d size=%d, want stride=4 size=32", buf.Stride, len(buf.Data))
	}

	got, ok := table.Get(buf.ID)
	if !ok {
		t.Fatalf("GetInfo after Allocate: entry missing")
	}
	if got.Width != 4 || got.Height != 2 || got.Stride != 4 || len(got.Data) != 32 {
		t.Fatalf("GetInfo mismatch: %+v", got)
	}

	if !table.Free(buf.ID) {
		t.Fatalf("Free on existing id should succeed")
	}
	if _, ok := table.Get(buf.ID); ok {
		t.Fatalf("GetInfo after Free should report absent")
	}
	if table.Free(buf.ID) {
		t.Fatalf("second Free on the same id should report absent")
	}
}

func TestUnlockLockRoundTrip(t *testing.T) {
	table := NewTable()
	buf := table.Allocate(2, 1, wire.FormatRGBA8888, 0, wire.BytesPerPixel(wire.FormatRGBA8888))

	payload := []byte{0, 1, 2, 3, 4, 5, 6, 7}
	if !table.Unlock(buf.ID, payload) {
		t.Fatalf("Unlock on existing id should succeed")
	}

	got, ok := table.Get(buf.ID)
	if !ok {
		t.Fatalf("Lock after Unlock: entry missing")
	}
	if !bytes.Equal(got.Data, payload) {
		t.Fatalf("Lock data = %v, want %v", got.Data, payload)
	}
}

func TestUnlockTruncatesToBufferCapacity(t *testing.T) {
	table := NewTable()
	buf := table.Allocate(1, 1, wire.FormatRGBA8888, 0, 4) // 4-byte buffer

	oversized := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	table.Unlock(buf.ID, oversized)

	got, _ := table.Get(buf.ID)
	if len(got.Data) != 4 {
		t.Fatalf("Unlock grew the buffer to %d bytes, want capacity held at 4", len(got.Data))
	}
	if !bytes.Equal(got.Data, oversized[:4]) {
		t.Fatalf("Unlock data = %v, want first 4 bytes of payload", got.Data)
	}
}

func TestUnlockZeroPadsShortPayload(t *testing.T) {
	table := NewTable()
	buf := table.Allocate(1, 1, wire.FormatRGBA8888, 0, 4)

	table.Unlock(buf.ID, []byte{0xFF, 0xFF, 0xFF, 0xFF})
	table.Unlock(buf.ID, []byte{0x01}) // shorter payload on a dirty buffer

	got, _ := table.Get(buf.ID)
	want := []byte{0x01, 0, 0, 0}
	if !bytes.Equal(got.Data, want) {
		t.Fatalf("Unlock data = %v, want zero-padded %v", got.Data, want)
	}
}

func TestPresentCausality(t *testing.T) {
	table := NewTable()
	presented := &Presented{}
	callback := &CallbackCell{}

	var gotData []byte
	var gotW, gotH int
	callback.Set(func(data []byte, w, h int) {
		gotData = data
		gotW, gotH = w, h
	})

	buf := table.Allocate(2, 2, wire.FormatRGBA8888, 0, 4)
	table.Unlock(buf.ID, bytes.Repeat([]byte{0xAB}, 16))

	presented.Set(buf.ID)
	if b, ok := table.Get(buf.ID); ok {
		callback.Invoke(b.Data, int(b.Width), int(b.Height))
	}

	if gotW != 2 || gotH != 2 {
		t.Fatalf("callback dims = (%d,%d), want (2,2)", gotW, gotH)
	}
	if !bytes.Equal(gotData, bytes.Repeat([]byte{0xAB}, 16)) {
		t.Fatalf("callback data mismatch")
	}

	id, ok := presented.Get()
	if !ok || id != buf.ID {
		t.Fatalf("Presented.Get() = (%d, %v), want (%d, true)", id, ok, buf.ID)
	}

	table.Free(buf.ID)
	if _, ok := table.Get(id); ok {
		t.Fatalf("buffer should be gone from the table after Free")
	}
	// Presented still names the numeric id; it is the caller's job (the
	// streamer) to treat a Get() miss as "fall through to the next
	// source", per §9's open-question decision.
	stillID, stillOK := presented.Get()
	if !stillOK || stillID != buf.ID {
		t.Fatalf("Free must not clear PresentedId")
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	s := New("/tmp/unused.sock", testLogger(), nil)
	resp, written, err := s.dispatch(nil, wire.GrallocRequest{Command: 99, BufferID: 5})
	if err != nil || written {
		t.Fatalf("unknown command should return a plain response, got err=%v written=%v", err, written)
	}
	if resp.Status != -1 {
		t.Fatalf("unknown command status = %d, want -1", resp.Status)
	}
}

func TestDispatchFreeMissingID(t *testing.T) {
	s := New("/tmp/unused.sock", testLogger(), nil)
	resp, _, err := s.dispatch(nil, wire.GrallocRequest{Command: wire.CmdFree, BufferID: 42})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != -1 || resp.BufferID != 42 {
		t.Fatalf("Free on missing id = %+v, want {-1, 42, ...}", resp)
	}
}
