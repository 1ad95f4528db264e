// Package variant implements the core's variant vector: a single
// ordered, heterogeneous sequence that backs both the native and
// foreign-runtime projections of plugin argument lists.
//
// Every element carries one of eight categories. Reading an element
// with the accessor matching its stored category returns the value
// unchanged; reading a native-handle element with the foreign accessor
// (or vice versa) materializes the matching adapter through the bridge
// rather than failing; any other mismatch returns result.ErrTypeError.
package variant

import (
	"github.com/dashost/dashost/internal/dstring"
	"github.com/dashost/dashost/internal/ifc"
	"github.com/dashost/dashost/internal/result"
)

// Category identifies one of the eight element kinds a Vector can hold.
type Category int

const (
	CatInt64 Category = iota
	CatFloat32
	CatBool
	CatString
	CatNativeInterface
	CatForeignInterface
	CatNativeComponent
	CatForeignComponent
)

func (c Category) String() string {
	switch c {
	case CatInt64:
		return "int64"
	case CatFloat32:
		return "float32"
	case CatBool:
		return "bool"
	case CatString:
		return "string"
	case CatNativeInterface:
		return "native-interface"
	case CatForeignInterface:
		return "foreign-interface"
	case CatNativeComponent:
		return "native-component"
	case CatForeignComponent:
		return "foreign-component"
	default:
		return "unknown"
	}
}

func (c Category) isNativeHandle() bool {
	return c == CatNativeInterface || c == CatNativeComponent
}

func (c Category) isForeignHandle() bool {
	return c == CatForeignInterface || c == CatForeignComponent
}

// foreignCounterpart maps a native handle category to its foreign twin
// and vice versa, for the cross-adapt path.
func (c Category) foreignCounterpart() Category {
	switch c {
	case CatNativeInterface:
		return CatForeignInterface
	case CatForeignInterface:
		return CatNativeInterface
	case CatNativeComponent:
		return CatForeignComponent
	case CatForeignComponent:
		return CatNativeComponent
	}
	return c
}

// Adapter materializes a handle on one side of the native/foreign
// divide from a handle on the other side. The bridge package supplies
// the concrete implementation; variant only depends on this interface
// to avoid an import cycle.
type Adapter interface {
	ToForeign(h ifc.Unknown, id ifc.Iid) (any, result.Code)
	ToNative(v any, id ifc.Iid) (ifc.Unknown, result.Code)
}

type element struct {
	cat Category

	i64 int64
	f32 float32
	bl  bool
	str *dstring.String

	// Handle elements. nativeObj is populated for native-interface and
	// native-component; foreignVal for foreign-interface and
	// foreign-component. iid identifies the interface the handle was
	// stored against, so cross-adapting knows what to query/wrap for.
	nativeObj ifc.Unknown
	foreignVal any
	iid        ifc.Iid
}

// Vector is an ordered, mutable sequence of elements.
type Vector struct {
	items   []element
	adapter Adapter
}

// Option configures a Vector at construction.
type Option func(*Vector)

// WithAdapter installs the native/foreign bridge used to materialize
// cross-divide handle accesses.
func WithAdapter(a Adapter) Option {
	return func(v *Vector) { v.adapter = a }
}

// New returns an empty Vector.
func New(opts ...Option) *Vector {
	v := &Vector{}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Size returns the number of elements.
func (v *Vector) Size() int { return len(v.items) }

// TypeAt reports the category stored at index i.
func (v *Vector) TypeAt(i int) (Category, result.Code) {
	if i < 0 || i >= len(v.items) {
		return 0, result.ErrOutOfRange
	}
	return v.items[i].cat, result.OK
}

// RemoveAt deletes the element at index i, shifting later elements down.
func (v *Vector) RemoveAt(i int) result.Code {
	if i < 0 || i >= len(v.items) {
		return result.ErrOutOfRange
	}
	v.items = append(v.items[:i], v.items[i+1:]...)
	return result.OK
}

// PushInt64 appends an i64 element.
func (v *Vector) PushInt64(x int64) { v.items = append(v.items, element{cat: CatInt64, i64: x}) }

// PushFloat32 appends an f32 element.
func (v *Vector) PushFloat32(x float32) {
	v.items = append(v.items, element{cat: CatFloat32, f32: x})
}

// PushBool appends a bool element.
func (v *Vector) PushBool(x bool) { v.items = append(v.items, element{cat: CatBool, bl: x}) }

// PushString appends a read-only-string element.
func (v *Vector) PushString(x *dstring.String) {
	v.items = append(v.items, element{cat: CatString, str: x})
}

// PushNativeInterface appends a native-interface-handle element.
func (v *Vector) PushNativeInterface(obj ifc.Unknown, id ifc.Iid) {
	v.items = append(v.items, element{cat: CatNativeInterface, nativeObj: obj, iid: id})
}

// PushForeignInterface appends a foreign-interface-handle element.
func (v *Vector) PushForeignInterface(val any, id ifc.Iid) {
	v.items = append(v.items, element{cat: CatForeignInterface, foreignVal: val, iid: id})
}

// PushNativeComponent appends a native-component-handle element.
func (v *Vector) PushNativeComponent(obj ifc.Unknown, id ifc.Iid) {
	v.items = append(v.items, element{cat: CatNativeComponent, nativeObj: obj, iid: id})
}

// PushForeignComponent appends a foreign-component-handle element.
func (v *Vector) PushForeignComponent(val any, id ifc.Iid) {
	v.items = append(v.items, element{cat: CatForeignComponent, foreignVal: val, iid: id})
}

// SetInt64 replaces the element at index i with an i64.
func (v *Vector) SetInt64(i int, x int64) result.Code {
	return v.set(i, element{cat: CatInt64, i64: x})
}

// SetFloat32 replaces the element at index i with an f32.
func (v *Vector) SetFloat32(i int, x float32) result.Code {
	return v.set(i, element{cat: CatFloat32, f32: x})
}

// SetBool replaces the element at index i with a bool.
func (v *Vector) SetBool(i int, x bool) result.Code {
	return v.set(i, element{cat: CatBool, bl: x})
}

// SetString replaces the element at index i with a read-only string.
func (v *Vector) SetString(i int, x *dstring.String) result.Code {
	return v.set(i, element{cat: CatString, str: x})
}

// SetNativeInterface replaces the element at index i with a
// native-interface handle.
func (v *Vector) SetNativeInterface(i int, obj ifc.Unknown, id ifc.Iid) result.Code {
	return v.set(i, element{cat: CatNativeInterface, nativeObj: obj, iid: id})
}

// SetForeignInterface replaces the element at index i with a
// foreign-interface handle.
func (v *Vector) SetForeignInterface(i int, val any, id ifc.Iid) result.Code {
	return v.set(i, element{cat: CatForeignInterface, foreignVal: val, iid: id})
}

// SetNativeComponent replaces the element at index i with a
// native-component handle.
func (v *Vector) SetNativeComponent(i int, obj ifc.Unknown, id ifc.Iid) result.Code {
	return v.set(i, element{cat: CatNativeComponent, nativeObj: obj, iid: id})
}

// SetForeignComponent replaces the element at index i with a
// foreign-component handle.
func (v *Vector) SetForeignComponent(i int, val any, id ifc.Iid) result.Code {
	return v.set(i, element{cat: CatForeignComponent, foreignVal: val, iid: id})
}

func (v *Vector) set(i int, e element) result.Code {
	if i < 0 || i >= len(v.items) {
		return result.ErrOutOfRange
	}
	v.items[i] = e
	return result.OK
}

func (v *Vector) at(i int) (*element, result.Code) {
	if i < 0 || i >= len(v.items) {
		return nil, result.ErrOutOfRange
	}
	return &v.items[i], result.OK
}

// GetInt64 reads an i64 element.
func (v *Vector) GetInt64(i int) (int64, result.Code) {
	e, code := v.at(i)
	if code.Failed() {
		return 0, code
	}
	if e.cat != CatInt64 {
		return 0, result.ErrTypeError
	}
	return e.i64, result.OK
}

// GetFloat32 reads an f32 element.
func (v *Vector) GetFloat32(i int) (float32, result.Code) {
	e, code := v.at(i)
	if code.Failed() {
		return 0, code
	}
	if e.cat != CatFloat32 {
		return 0, result.ErrTypeError
	}
	return e.f32, result.OK
}

// GetBool reads a bool element.
func (v *Vector) GetBool(i int) (bool, result.Code) {
	e, code := v.at(i)
	if code.Failed() {
		return false, code
	}
	if e.cat != CatBool {
		return false, result.ErrTypeError
	}
	return e.bl, result.OK
}

// GetString reads a read-only-string element.
func (v *Vector) GetString(i int) (*dstring.String, result.Code) {
	e, code := v.at(i)
	if code.Failed() {
		return nil, code
	}
	if e.cat != CatString {
		return nil, result.ErrTypeError
	}
	return e.str, result.OK
}

// GetNativeInterface reads a native-interface-handle element. If the
// stored element is instead a foreign-interface-handle, the bridge
// adapter materializes the native counterpart.
func (v *Vector) GetNativeInterface(i int) (ifc.Unknown, result.Code) {
	return v.getNativeHandle(i, CatNativeInterface, CatForeignInterface)
}

// GetNativeComponent reads a native-component-handle element, adapting
// from foreign-component-handle if that is what is stored.
func (v *Vector) GetNativeComponent(i int) (ifc.Unknown, result.Code) {
	return v.getNativeHandle(i, CatNativeComponent, CatForeignComponent)
}

func (v *Vector) getNativeHandle(i int, nativeCat, foreignCat Category) (ifc.Unknown, result.Code) {
	e, code := v.at(i)
	if code.Failed() {
		return nil, code
	}
	switch e.cat {
	case nativeCat:
		return e.nativeObj, result.OK
	case foreignCat:
		if v.adapter == nil {
			return nil, result.ErrNoImplementation
		}
		return v.adapter.ToNative(e.foreignVal, e.iid)
	default:
		return nil, result.ErrTypeError
	}
}

// GetForeignInterface reads a foreign-interface-handle element, adapting
// from native-interface-handle if that is what is stored.
func (v *Vector) GetForeignInterface(i int) (any, result.Code) {
	return v.getForeignHandle(i, CatForeignInterface, CatNativeInterface)
}

// GetForeignComponent reads a foreign-component-handle element, adapting
// from native-component-handle if that is what is stored.
func (v *Vector) GetForeignComponent(i int) (any, result.Code) {
	return v.getForeignHandle(i, CatForeignComponent, CatNativeComponent)
}

func (v *Vector) getForeignHandle(i int, foreignCat, nativeCat Category) (any, result.Code) {
	e, code := v.at(i)
	if code.Failed() {
		return nil, code
	}
	switch e.cat {
	case foreignCat:
		return e.foreignVal, result.OK
	case nativeCat:
		if v.adapter == nil {
			return nil, result.ErrNoImplementation
		}
		return v.adapter.ToForeign(e.nativeObj, e.iid)
	default:
		return nil, result.ErrTypeError
	}
}
