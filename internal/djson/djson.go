// Package djson implements the core's JSON view value: a typed,
// indexed/keyed accessor over a parsed document that distinguishes
// owning views (independent objects backed by their own document) from
// borrowing views (a pointer into someone else's document plus a weak
// notification connection).
//
// When an owning view is destroyed it signals every live borrower
// reachable from it; those borrowers atomically null their backing
// pointer and every subsequent operation on them fails with
// result.ErrDanglingReference.
package djson

import (
	"encoding/json"
	"sync"

	"github.com/dashost/dashost/internal/result"
)

// Kind enumerates the eight JSON value categories.
type Kind int

const (
	KindNull Kind = iota
	KindObject
	KindArray
	KindString
	KindBool
	KindInt
	KindUint
	KindFloat
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	default:
		return "unknown"
	}
}

// node is the parsed document backing one or more Views. A node tree is
// shared by an owning View and every View borrowed from it.
type node struct {
	kind   Kind
	str    string
	bl     bool
	i      int64
	u      uint64
	f      float64
	object map[string]*node
	array  []*node
}

// View is a handle onto a node, either owning the document that node
// belongs to or borrowing from another View's document.
type View struct {
	mu    sync.Mutex
	n     *node // nil once invalidated (borrower only)
	owner *View // nil for an owning view; the root owner otherwise

	// borrowers is only populated on an owning (root) view: the set of
	// live views borrowed, directly or transitively, from this one.
	borrowers map[*View]struct{}
}

// Parse decodes data into a new owning View.
func Parse(data []byte) (*View, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return &View{n: fromAny(raw), borrowers: make(map[*View]struct{})}, nil
}

func fromAny(v any) *node {
	switch t := v.(type) {
	case nil:
		return &node{kind: KindNull}
	case bool:
		return &node{kind: KindBool, bl: t}
	case string:
		return &node{kind: KindString, str: t}
	case float64:
		return &node{kind: KindFloat, f: t}
	case int64:
		return &node{kind: KindInt, i: t}
	case uint64:
		return &node{kind: KindUint, u: t}
	case int:
		return &node{kind: KindInt, i: int64(t)}
	case map[string]any:
		obj := make(map[string]*node, len(t))
		for k, v := range t {
			obj[k] = fromAny(v)
		}
		return &node{kind: KindObject, object: obj}
	case []any:
		arr := make([]*node, len(t))
		for i, v := range t {
			arr[i] = fromAny(v)
		}
		return &node{kind: KindArray, array: arr}
	default:
		return &node{kind: KindNull}
	}
}

// NewOwningObject returns a fresh, empty owning View of kind object, the
// starting point for values built up in memory rather than parsed.
func NewOwningObject() *View {
	return &View{n: &node{kind: KindObject, object: map[string]*node{}}, borrowers: make(map[*View]struct{})}
}

// root returns the owning View this view's document ultimately belongs
// to (itself, if it is already an owner).
func (v *View) root() *View {
	if v.owner != nil {
		return v.owner
	}
	return v
}

// alive reports whether the view's backing node is still reachable,
// without acquiring a lock on the root (call with v.mu held).
func (v *View) alive() bool { return v.n != nil }

// Valid reports whether this view's backing data is still reachable. A
// borrowing view becomes invalid the instant its owning view is
// destroyed.
func (v *View) Valid() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.alive()
}

// Kind returns the view's JSON category, or KindNull on a dangling view.
func (v *View) Kind() Kind {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.alive() {
		return KindNull
	}
	return v.n.kind
}

func (v *View) borrow(child *node) *View {
	root := v.root()
	bv := &View{n: child, owner: root}
	root.mu.Lock()
	root.borrowers[bv] = struct{}{}
	root.mu.Unlock()
	return bv
}

// Get performs keyed access into an object view, returning a borrowing
// sub-view over the matched value.
func (v *View) Get(key string) (*View, result.Code) {
	v.mu.Lock()
	if !v.alive() {
		v.mu.Unlock()
		return nil, result.ErrDanglingReference
	}
	if v.n.kind != KindObject {
		v.mu.Unlock()
		return nil, result.ErrTypeError
	}
	child, ok := v.n.object[key]
	v.mu.Unlock()
	if !ok {
		return nil, result.ErrOutOfRange
	}
	return v.borrow(child), result.OK
}

// Index performs indexed access into an array view, returning a
// borrowing sub-view over the matched element.
func (v *View) Index(i int) (*View, result.Code) {
	v.mu.Lock()
	if !v.alive() {
		v.mu.Unlock()
		return nil, result.ErrDanglingReference
	}
	if v.n.kind != KindArray {
		v.mu.Unlock()
		return nil, result.ErrTypeError
	}
	if i < 0 || i >= len(v.n.array) {
		v.mu.Unlock()
		return nil, result.ErrOutOfRange
	}
	child := v.n.array[i]
	v.mu.Unlock()
	return v.borrow(child), result.OK
}

// Len returns the number of keys or elements for an object or array
// view.
func (v *View) Len() (int, result.Code) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.alive() {
		return 0, result.ErrDanglingReference
	}
	switch v.n.kind {
	case KindObject:
		return len(v.n.object), result.OK
	case KindArray:
		return len(v.n.array), result.OK
	default:
		return 0, result.ErrTypeError
	}
}

// Keys returns the object's keys in unspecified order.
func (v *View) Keys() ([]string, result.Code) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.alive() {
		return nil, result.ErrDanglingReference
	}
	if v.n.kind != KindObject {
		return nil, result.ErrTypeError
	}
	keys := make([]string, 0, len(v.n.object))
	for k := range v.n.object {
		keys = append(keys, k)
	}
	return keys, result.OK
}

func (v *View) scalar(want Kind) (*node, result.Code) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.alive() {
		return nil, result.ErrDanglingReference
	}
	if v.n.kind != want {
		return nil, result.ErrTypeError
	}
	return v.n, result.OK
}

// String returns the scalar string value.
func (v *View) String() (string, result.Code) {
	n, code := v.scalar(KindString)
	if code.Failed() {
		return "", code
	}
	return n.str, result.OK
}

// Bool returns the scalar bool value.
func (v *View) Bool() (bool, result.Code) {
	n, code := v.scalar(KindBool)
	if code.Failed() {
		return false, code
	}
	return n.bl, result.OK
}

// Int returns the scalar signed-integer value. A view parsed from JSON
// text is always KindFloat (encoding/json's Unmarshal has no integer
// category of its own); KindInt only arises from a Set call given an
// int or int64 value.
func (v *View) Int() (int64, result.Code) {
	n, code := v.scalar(KindInt)
	if code.Failed() {
		return 0, code
	}
	return n.i, result.OK
}

// Uint returns the scalar unsigned-integer value. Like Int, this kind
// only arises from a Set call given a uint64 value; Parse never
// produces it.
func (v *View) Uint() (uint64, result.Code) {
	n, code := v.scalar(KindUint)
	if code.Failed() {
		return 0, code
	}
	return n.u, result.OK
}

// Float returns the scalar numeric value as a float64 regardless of
// whether it was decoded as int/uint/float, matching encoding/json's
// own float64-only number representation.
func (v *View) Float() (float64, result.Code) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.alive() {
		return 0, result.ErrDanglingReference
	}
	switch v.n.kind {
	case KindFloat:
		return v.n.f, result.OK
	case KindInt:
		return float64(v.n.i), result.OK
	case KindUint:
		return float64(v.n.u), result.OK
	default:
		return 0, result.ErrTypeError
	}
}

// Set assigns a value by key on an owning or still-live object view,
// replacing any existing value at that key.
func (v *View) Set(key string, value any) result.Code {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.alive() {
		return result.ErrDanglingReference
	}
	if v.n.kind != KindObject {
		return result.ErrTypeError
	}
	v.n.object[key] = fromAny(value)
	return result.OK
}

// Marshal serializes the view's current value back to JSON bytes.
func (v *View) Marshal() ([]byte, result.Code) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.alive() {
		return nil, result.ErrDanglingReference
	}
	return marshalNode(v.n), result.OK
}

func marshalNode(n *node) []byte {
	out, _ := json.Marshal(toAny(n))
	return out
}

func toAny(n *node) any {
	switch n.kind {
	case KindNull:
		return nil
	case KindBool:
		return n.bl
	case KindString:
		return n.str
	case KindInt:
		return n.i
	case KindUint:
		return n.u
	case KindFloat:
		return n.f
	case KindObject:
		m := make(map[string]any, len(n.object))
		for k, c := range n.object {
			m[k] = toAny(c)
		}
		return m
	case KindArray:
		a := make([]any, len(n.array))
		for i, c := range n.array {
			a[i] = toAny(c)
		}
		return a
	default:
		return nil
	}
}

// Destroy tears down an owning view, severing every borrower reachable
// from it. Calling Destroy on a borrowing view is a no-op: only the
// owner's destruction can invalidate borrowers.
func (v *View) Destroy() {
	if v.owner != nil {
		return
	}
	v.mu.Lock()
	borrowers := v.borrowers
	v.borrowers = nil
	v.n = nil
	v.mu.Unlock()

	for bv := range borrowers {
		bv.mu.Lock()
		bv.n = nil
		bv.mu.Unlock()
	}
}
