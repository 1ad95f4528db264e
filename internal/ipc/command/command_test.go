package command

import (
	"encoding/binary"
	"testing"

	"github.com/dashost/dashost/internal/ifc"
	"github.com/dashost/dashost/internal/ipc/registry"
	"github.com/dashost/dashost/internal/ipc/wire"
	"github.com/dashost/dashost/internal/result"
)

func encodeRegisterPayload(id wire.ObjectID, iid ifc.Iid, session, version uint16, name string) []byte {
	buf := make([]byte, 8+16+2+2+2+len(name))
	i := 0
	binary.LittleEndian.PutUint64(buf[i:], uint64(id))
	i += 8
	copy(buf[i:], iid[:])
	i += 16
	binary.LittleEndian.PutUint16(buf[i:], session)
	i += 2
	binary.LittleEndian.PutUint16(buf[i:], version)
	i += 2
	binary.LittleEndian.PutUint16(buf[i:], uint16(len(name)))
	i += 2
	copy(buf[i:], name)
	return buf
}

func encodeObjectIDPayload(id wire.ObjectID) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(id))
	return buf
}

func TestInfoRoundTrip(t *testing.T) {
	info := registry.ObjectInfo{
		ObjectID:  wire.EncodeObjectID(2, 0, 1),
		Iid:       ifc.NamedIid("capture.factory"),
		SessionID: 2,
		Version:   1,
		Name:      "capture0",
	}
	encoded := EncodeInfo(info)
	got, code := DecodeInfo(encoded)
	if code != result.OK {
		t.Fatalf("expected OK, got %s", code)
	}
	if got.ObjectID != info.ObjectID || got.Name != info.Name || got.SessionID != info.SessionID {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestDecodeInfoRejectsShortInput(t *testing.T) {
	if _, code := DecodeInfo(make([]byte, 4)); code != result.ErrDeserializationFailed {
		t.Errorf("expected ErrDeserializationFailed, got %s", code)
	}
	// fixed prefix present but name length claims more bytes than follow.
	info := registry.ObjectInfo{ObjectID: 1, Name: "abc"}
	encoded := EncodeInfo(info)
	truncated := encoded[:len(encoded)-1]
	if _, code := DecodeInfo(truncated); code != result.ErrDeserializationFailed {
		t.Errorf("expected ErrDeserializationFailed for truncated name, got %s", code)
	}
}

func TestDispatchRegisterLookupUnregister(t *testing.T) {
	reg := registry.New()
	d := NewDispatcher(reg, nil)
	iid := ifc.NamedIid("capture.factory")
	id := wire.EncodeObjectID(2, 0, 1)

	_, code := d.Dispatch(RegisterObject, encodeRegisterPayload(id, iid, 2, 1, "capture0"))
	if code != result.OK {
		t.Fatalf("expected OK, got %s", code)
	}

	body, code := d.Dispatch(LookupObject, encodeObjectIDPayload(id))
	if code != result.OK {
		t.Fatalf("expected OK, got %s", code)
	}
	info, code := DecodeInfo(body)
	if code != result.OK || info.Name != "capture0" {
		t.Errorf("unexpected lookup result: %+v (%s)", info, code)
	}

	if _, code := d.Dispatch(UnregisterObject, encodeObjectIDPayload(id)); code != result.OK {
		t.Errorf("expected OK, got %s", code)
	}
	if _, code := d.Dispatch(LookupObject, encodeObjectIDPayload(id)); code != result.ErrObjectNotFound {
		t.Errorf("expected ErrObjectNotFound, got %s", code)
	}
}

func TestDispatchGetObjectCount(t *testing.T) {
	reg := registry.New()
	d := NewDispatcher(reg, nil)
	iid := ifc.NamedIid("capture.factory")
	reg.RegisterObject(wire.EncodeObjectID(2, 0, 1), iid, 2, "a", 1)
	reg.RegisterObject(wire.EncodeObjectID(2, 0, 2), iid, 2, "b", 1)

	body, code := d.Dispatch(GetObjectCount, nil)
	if code != result.OK {
		t.Fatalf("expected OK, got %s", code)
	}
	if count := binary.LittleEndian.Uint64(body); count != 2 {
		t.Errorf("expected count 2, got %d", count)
	}
}

func TestDispatchLoadPluginWithoutLoaderIsUnimplemented(t *testing.T) {
	d := NewDispatcher(registry.New(), nil)
	if _, code := d.Dispatch(LoadPlugin, nil); code != result.ErrNoImplementation {
		t.Errorf("expected ErrNoImplementation, got %s", code)
	}
}

type stubLoader struct {
	info registry.ObjectInfo
	code result.Code
}

func (s stubLoader) LoadPlugin(manifestPath string) (registry.ObjectInfo, result.Code) {
	return s.info, s.code
}

func TestDispatchLoadPluginDelegatesToLoader(t *testing.T) {
	want := registry.ObjectInfo{ObjectID: wire.EncodeObjectID(2, 0, 1), Name: "demo"}
	d := NewDispatcher(registry.New(), stubLoader{info: want, code: result.OK})

	pathPayload := make([]byte, 2+len("/plugins/demo.json"))
	binary.LittleEndian.PutUint16(pathPayload, uint16(len("/plugins/demo.json")))
	copy(pathPayload[2:], "/plugins/demo.json")

	body, code := d.Dispatch(LoadPlugin, pathPayload)
	if code != result.OK {
		t.Fatalf("expected OK, got %s", code)
	}
	info, code := DecodeInfo(body)
	if code != result.OK || info.Name != "demo" {
		t.Errorf("unexpected plugin info: %+v", info)
	}
}

func TestCustomHandlerShadowsBuiltin(t *testing.T) {
	d := NewDispatcher(registry.New(), nil)
	called := false
	d.RegisterHandler(Ping, func(body []byte) ([]byte, result.Code) {
		called = true
		return []byte("custom"), result.OK
	})

	body, code := d.Dispatch(Ping, nil)
	if code != result.OK || !called || string(body) != "custom" {
		t.Errorf("expected custom handler to run, got called=%v body=%q", called, body)
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	d := NewDispatcher(registry.New(), nil)
	if _, code := d.Dispatch(Command(999), nil); code != result.ErrInvalidEnum {
		t.Errorf("expected ErrInvalidEnum, got %s", code)
	}
}
