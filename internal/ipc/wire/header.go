// Package wire implements the IPC frame header codec, the 64-bit
// object-id encoding, and the session-id allocator: the
// fixed-width binary envelope every message crosses a plugin/IPC
// boundary wrapped in, little-endian on the wire exactly as declared.
package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/dashost/dashost/internal/result"
)

// MessageType tags a frame as a request, response, or fire-and-forget
// event.
type MessageType uint8

const (
	Request  MessageType = 1
	Response MessageType = 2
	Event    MessageType = 3
)

// HeaderSize is the exact on-wire size of Header in bytes:
// 8+1+4+4+2+2+4+2+2+4.
const HeaderSize = 8 + 1 + 4 + 4 + 2 + 2 + 4 + 2 + 2 + 4

// Header is the fixed frame envelope. Field widths and order must not
// change without breaking wire compatibility.
type Header struct {
	CallID      uint64
	MessageType MessageType
	ErrorCode   int32
	InterfaceID uint32 // doubles as the command enum
	SessionID   uint16
	Generation  uint16
	LocalID     uint32
	Version     uint16
	Flags       uint16
	BodySize    uint32
}

// Encode writes h in its fixed on-wire layout.
func (h Header) Encode() []byte {
	buf := make([]byte, HeaderSize)
	i := 0
	binary.LittleEndian.PutUint64(buf[i:], h.CallID)
	i += 8
	buf[i] = byte(h.MessageType)
	i++
	binary.LittleEndian.PutUint32(buf[i:], uint32(h.ErrorCode))
	i += 4
	binary.LittleEndian.PutUint32(buf[i:], h.InterfaceID)
	i += 4
	binary.LittleEndian.PutUint16(buf[i:], h.SessionID)
	i += 2
	binary.LittleEndian.PutUint16(buf[i:], h.Generation)
	i += 2
	binary.LittleEndian.PutUint32(buf[i:], h.LocalID)
	i += 4
	binary.LittleEndian.PutUint16(buf[i:], h.Version)
	i += 2
	binary.LittleEndian.PutUint16(buf[i:], h.Flags)
	i += 2
	binary.LittleEndian.PutUint32(buf[i:], h.BodySize)
	return buf
}

// DecodeHeader parses a Header from the front of buf. A short buffer
// returns result.ErrInvalidMessageBody rather than panicking.
func DecodeHeader(buf []byte) (Header, result.Code) {
	if len(buf) < HeaderSize {
		return Header{}, result.ErrInvalidMessageBody
	}
	var h Header
	i := 0
	h.CallID = binary.LittleEndian.Uint64(buf[i:])
	i += 8
	h.MessageType = MessageType(buf[i])
	i++
	h.ErrorCode = int32(binary.LittleEndian.Uint32(buf[i:]))
	i += 4
	h.InterfaceID = binary.LittleEndian.Uint32(buf[i:])
	i += 4
	h.SessionID = binary.LittleEndian.Uint16(buf[i:])
	i += 2
	h.Generation = binary.LittleEndian.Uint16(buf[i:])
	i += 2
	h.LocalID = binary.LittleEndian.Uint32(buf[i:])
	i += 4
	h.Version = binary.LittleEndian.Uint16(buf[i:])
	i += 2
	h.Flags = binary.LittleEndian.Uint16(buf[i:])
	i += 2
	h.BodySize = binary.LittleEndian.Uint32(buf[i:])
	return h, result.OK
}

// DecodeFrame splits buf into a Header and its body, validating that
// body_size matches what actually follows. Truncated or oversized
// frames return result.ErrInvalidMessageBody.
func DecodeFrame(buf []byte) (Header, []byte, result.Code) {
	h, code := DecodeHeader(buf)
	if code.Failed() {
		return Header{}, nil, code
	}
	rest := buf[HeaderSize:]
	if uint32(len(rest)) != h.BodySize {
		return Header{}, nil, result.ErrInvalidMessageBody
	}
	return h, rest, result.OK
}

// EncodeFrame renders h and body as one contiguous frame, setting
// h.BodySize from len(body) regardless of whatever was already there.
func EncodeFrame(h Header, body []byte) []byte {
	h.BodySize = uint32(len(body))
	out := h.Encode()
	return append(out, body...)
}

func (t MessageType) String() string {
	switch t {
	case Request:
		return "REQUEST"
	case Response:
		return "RESPONSE"
	case Event:
		return "EVENT"
	default:
		return fmt.Sprintf("MessageType(%d)", uint8(t))
	}
}
