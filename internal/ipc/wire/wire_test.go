package wire

import (
	"testing"

	"github.com/dashost/dashost/internal/result"
)

func TestFrameRoundTrip(t *testing.T) {
	h := Header{
		CallID:      42,
		MessageType: Request,
		InterfaceID: 9,
		SessionID:   7,
		Generation:  1,
		LocalID:     123,
		Version:     1,
	}
	body := []byte(`{"manifest_path":"/tmp/x"}`)
	frame := EncodeFrame(h, body)

	got, gotBody, code := DecodeFrame(frame)
	if code != result.OK {
		t.Fatalf("expected OK, got %s", code)
	}
	if got.CallID != 42 || got.InterfaceID != 9 || got.SessionID != 7 {
		t.Errorf("unexpected decoded header: %+v", got)
	}
	if string(gotBody) != string(body) {
		t.Errorf("expected body round trip, got %q", gotBody)
	}
}

func TestDecodeFrameRejectsTruncatedHeader(t *testing.T) {
	if _, _, code := DecodeFrame(make([]byte, HeaderSize-1)); code != result.ErrInvalidMessageBody {
		t.Errorf("expected ErrInvalidMessageBody, got %s", code)
	}
}

func TestDecodeFrameRejectsBodySizeMismatch(t *testing.T) {
	h := Header{CallID: 1}
	frame := EncodeFrame(h, []byte("hello"))
	frame = frame[:len(frame)-1] // truncate the body by one byte

	if _, _, code := DecodeFrame(frame); code != result.ErrInvalidMessageBody {
		t.Errorf("expected ErrInvalidMessageBody, got %s", code)
	}
}

func TestObjectIDRoundTrip(t *testing.T) {
	id := EncodeObjectID(7, 3, 999)
	session, gen, local := id.Decode()
	if session != 7 || gen != 3 || local != 999 {
		t.Errorf("expected (7,3,999), got (%d,%d,%d)", session, gen, local)
	}
	if id.IsNull() {
		t.Error("expected non-null id")
	}
	if !ObjectID(0).IsNull() {
		t.Error("expected zero id to be null")
	}
}

func TestIsValidSessionID(t *testing.T) {
	cases := map[uint16]bool{0: false, 1: true, 2: true, 0xFFFE: true, 0xFFFF: false}
	for id, want := range cases {
		if got := IsValidSessionID(id); got != want {
			t.Errorf("IsValidSessionID(%d) = %v, want %v", id, got, want)
		}
	}
}

func TestSessionAllocatorUniquenessAndReuse(t *testing.T) {
	a := NewSessionAllocator()
	first, code := a.Allocate()
	if code != result.OK || first != 2 {
		t.Fatalf("expected first id 2, got %d (%s)", first, code)
	}
	second, code := a.Allocate()
	if code != result.OK || second == first {
		t.Fatalf("expected distinct second id, got %d", second)
	}

	a.Release(first)
	if a.InUse(first) {
		t.Error("expected released id to no longer be in use")
	}
	third, code := a.Allocate()
	if code != result.OK || third != first {
		t.Errorf("expected reuse of released id %d, got %d", first, third)
	}
}

func TestSessionAllocatorExhaustion(t *testing.T) {
	a := &SessionAllocator{next: maxSessionID, used: make(map[uint16]bool)}
	if _, code := a.Allocate(); code != result.OK {
		t.Fatalf("expected OK for last valid id, got %s", code)
	}
	if _, code := a.Allocate(); code != result.ErrSessionAllocFailed {
		t.Errorf("expected ErrSessionAllocFailed once exhausted, got %s", code)
	}
}
