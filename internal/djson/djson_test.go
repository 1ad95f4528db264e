package djson

import (
	"testing"

	"github.com/dashost/dashost/internal/result"
)

func TestParseAndAccess(t *testing.T) {
	v, err := Parse([]byte(`{"name":"capture","count":3,"tags":["a","b"],"enabled":true}`))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	defer v.Destroy()

	if v.Kind() != KindObject {
		t.Fatalf("expected object kind, got %s", v.Kind())
	}

	name, code := v.Get("name")
	if code != result.OK {
		t.Fatalf("expected OK, got %s", code)
	}
	s, code := name.String()
	if code != result.OK || s != "capture" {
		t.Errorf("expected \"capture\", got %q (%s)", s, code)
	}

	tags, code := v.Get("tags")
	if code != result.OK {
		t.Fatalf("expected OK, got %s", code)
	}
	n, code := tags.Len()
	if code != result.OK || n != 2 {
		t.Errorf("expected len 2, got %d (%s)", n, code)
	}

	first, code := tags.Index(0)
	if code != result.OK {
		t.Fatalf("expected OK, got %s", code)
	}
	if s, _ := first.String(); s != "a" {
		t.Errorf("expected \"a\", got %q", s)
	}

	if _, code := v.Get("missing"); code != result.ErrOutOfRange {
		t.Errorf("expected ErrOutOfRange, got %s", code)
	}
	if _, code := v.Index(0); code != result.ErrTypeError {
		t.Errorf("expected ErrTypeError indexing an object, got %s", code)
	}
}

func TestBorrowerDanglesAfterOwnerDestroyed(t *testing.T) {
	v, err := Parse([]byte(`{"a":{"b":1}}`))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	a, code := v.Get("a")
	if code != result.OK {
		t.Fatalf("expected OK, got %s", code)
	}
	b, code := a.Get("b")
	if code != result.OK {
		t.Fatalf("expected OK, got %s", code)
	}

	v.Destroy()

	if a.Valid() {
		t.Error("expected first-level borrower to be invalidated")
	}
	if b.Valid() {
		t.Error("expected transitive borrower to be invalidated")
	}
	if _, code := a.Get("b"); code != result.ErrDanglingReference {
		t.Errorf("expected ErrDanglingReference, got %s", code)
	}
	if _, code := b.Float(); code != result.ErrDanglingReference {
		t.Errorf("expected ErrDanglingReference, got %s", code)
	}
}

func TestSetAndMarshal(t *testing.T) {
	v := NewOwningObject()
	defer v.Destroy()

	if code := v.Set("k", "v"); code != result.OK {
		t.Fatalf("expected OK, got %s", code)
	}
	out, code := v.Marshal()
	if code != result.OK {
		t.Fatalf("expected OK, got %s", code)
	}
	if string(out) != `{"k":"v"}` {
		t.Errorf("unexpected marshal output: %s", out)
	}
}

func TestSetIntAndUintKinds(t *testing.T) {
	v := NewOwningObject()
	defer v.Destroy()

	if code := v.Set("signed", int64(-7)); code != result.OK {
		t.Fatalf("expected OK, got %s", code)
	}
	if code := v.Set("unsigned", uint64(42)); code != result.OK {
		t.Fatalf("expected OK, got %s", code)
	}

	signed, code := v.Get("signed")
	if code != result.OK {
		t.Fatalf("expected OK, got %s", code)
	}
	if signed.Kind() != KindInt {
		t.Errorf("expected KindInt, got %s", signed.Kind())
	}
	i, code := signed.Int()
	if code != result.OK || i != -7 {
		t.Errorf("expected -7, got %d (%s)", i, code)
	}
	if f, code := signed.Float(); code != result.OK || f != -7 {
		t.Errorf("expected Float to widen KindInt, got %v (%s)", f, code)
	}

	unsigned, code := v.Get("unsigned")
	if code != result.OK {
		t.Fatalf("expected OK, got %s", code)
	}
	if unsigned.Kind() != KindUint {
		t.Errorf("expected KindUint, got %s", unsigned.Kind())
	}
	u, code := unsigned.Uint()
	if code != result.OK || u != 42 {
		t.Errorf("expected 42, got %d (%s)", u, code)
	}

	if _, code := unsigned.Int(); code != result.ErrTypeError {
		t.Errorf("expected ErrTypeError calling Int on a KindUint view, got %s", code)
	}

	out, code := v.Marshal()
	if code != result.OK {
		t.Fatalf("expected OK, got %s", code)
	}
	if string(out) != `{"signed":-7,"unsigned":42}` {
		t.Errorf("unexpected marshal output: %s", out)
	}
}

func TestDestroyOnBorrowerIsNoop(t *testing.T) {
	v, err := Parse([]byte(`{"a":1}`))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	defer v.Destroy()

	a, code := v.Get("a")
	if code != result.OK {
		t.Fatalf("expected OK, got %s", code)
	}
	a.Destroy()
	if !a.Valid() {
		t.Error("expected Destroy on a borrower to be a no-op")
	}
}
