// Package result defines the closed set of result codes every public
// operation in the core returns.
package result

import "fmt"

// Code is a 32-bit signed result code. Non-negative is success.
type Code int32

// Success codes.
const (
	OK    Code = 0
	FALSE Code = 1
)

// Failure codes, grouped by class. Values are stable once assigned —
// they may cross process boundaries (IPC responses, HTTP envelopes).
const (
	// ArgumentShape
	ErrInvalidPointer    Code = -1
	ErrInvalidString     Code = -2
	ErrInvalidStringSize Code = -3
	ErrInvalidSize       Code = -4
	ErrInvalidEnum       Code = -5
	ErrInvalidPath       Code = -6
	ErrInvalidFile       Code = -7
	ErrInvalidUrl        Code = -8
	ErrInvalidArgument   Code = -9

	// Typing
	ErrTypeError      Code = -20
	ErrNoInterface    Code = -21
	ErrSymbolNotFound Code = -22

	// Lookup
	ErrOutOfRange      Code = -30
	ErrDuplicateElement Code = -31
	ErrFileNotFound    Code = -32
	ErrObjectNotFound  Code = -33

	// Lifecycle
	ErrDanglingReference           Code = -40
	ErrStrongReferenceNotAvailable Code = -41
	ErrObjectNotInit               Code = -42
	ErrObjectAlreadyInit           Code = -43
	ErrTaskWorking                 Code = -44
	ErrConnectionLost              Code = -45

	// Resource
	ErrOutOfMemory      Code = -50
	ErrTimeout          Code = -51
	ErrPermissionDenied Code = -52
	ErrMaybeOverflow    Code = -53

	// Carrier
	ErrInvalidJson            Code = -60
	ErrInvalidMessageBody     Code = -61
	ErrInvalidMessageType     Code = -62
	ErrDeserializationFailed  Code = -63
	ErrInvalidObjectId        Code = -64
	ErrSessionAllocFailed     Code = -65

	// Runtime-side
	ErrPythonError      Code = -70
	ErrSwigInternalError Code = -71
	ErrCsharpError      Code = -72
	ErrJavaError        Code = -73

	// Fatal / reserved
	ErrInternalFatalError    Code = -90
	ErrUnsupportedSystem     Code = -91
	ErrNoImplementation      Code = -92
	ErrReserved              Code = -93
	ErrUndefinedReturnValue  Code = -94
)

var names = map[Code]string{
	OK:    "OK",
	FALSE: "FALSE",

	ErrInvalidPointer:    "InvalidPointer",
	ErrInvalidString:     "InvalidString",
	ErrInvalidStringSize: "InvalidStringSize",
	ErrInvalidSize:       "InvalidSize",
	ErrInvalidEnum:       "InvalidEnum",
	ErrInvalidPath:       "InvalidPath",
	ErrInvalidFile:       "InvalidFile",
	ErrInvalidUrl:        "InvalidUrl",
	ErrInvalidArgument:   "InvalidArgument",

	ErrTypeError:      "TypeError",
	ErrNoInterface:    "NoInterface",
	ErrSymbolNotFound: "SymbolNotFound",

	ErrOutOfRange:       "OutOfRange",
	ErrDuplicateElement: "DuplicateElement",
	ErrFileNotFound:     "FileNotFound",
	ErrObjectNotFound:   "ObjectNotFound",

	ErrDanglingReference:           "DanglingReference",
	ErrStrongReferenceNotAvailable: "StrongReferenceNotAvailable",
	ErrObjectNotInit:               "ObjectNotInit",
	ErrObjectAlreadyInit:           "ObjectAlreadyInit",
	ErrTaskWorking:                 "TaskWorking",
	ErrConnectionLost:              "ConnectionLost",

	ErrOutOfMemory:      "OutOfMemory",
	ErrTimeout:          "Timeout",
	ErrPermissionDenied: "PermissionDenied",
	ErrMaybeOverflow:    "MaybeOverflow",

	ErrInvalidJson:           "InvalidJson",
	ErrInvalidMessageBody:    "InvalidMessageBody",
	ErrInvalidMessageType:    "InvalidMessageType",
	ErrDeserializationFailed: "DeserializationFailed",
	ErrInvalidObjectId:       "InvalidObjectId",
	ErrSessionAllocFailed:    "SessionAllocFailed",

	ErrPythonError:       "PythonError",
	ErrSwigInternalError: "SwigInternalError",
	ErrCsharpError:       "CsharpError",
	ErrJavaError:         "JavaError",

	ErrInternalFatalError:   "InternalFatalError",
	ErrUnsupportedSystem:    "UnsupportedSystem",
	ErrNoImplementation:     "NoImplementation",
	ErrReserved:             "Reserved",
	ErrUndefinedReturnValue: "UndefinedReturnValue",
}

// String renders the code's symbolic name, or a numeric fallback for an
// unrecognized value (never returned by this package itself).
func (c Code) String() string {
	if n, ok := names[c]; ok {
		return n
	}
	return fmt.Sprintf("Code(%d)", int32(c))
}

// Succeeded reports whether c represents success (OK or FALSE).
func (c Code) Succeeded() bool { return c >= 0 }

// Failed reports whether c represents failure.
func (c Code) Failed() bool { return c < 0 }

// Error implements the error interface so a Code can be returned directly
// from functions that also want to satisfy Go's error conventions.
func (c Code) Error() string {
	return c.String()
}

// AsError returns nil for a successful code and the code itself
// (as an error) for a failure, for call sites that want idiomatic
// `if err := ...; err != nil` handling atop a result code.
func AsError(c Code) error {
	if c.Succeeded() {
		return nil
	}
	return c
}
