package session

import (
	"encoding/binary"

	"github.com/dashost/dashost/internal/result"
)

// Handshake frames travel in the same envelope as ordinary commands but
// on their own sub-enum band of interface_id, so a frame reader can
// split handshake traffic from registry commands before any session has
// been established. The band sits far above the command table's values.
const (
	handshakeBand uint32 = 0xF000

	CmdHello     = handshakeBand + 1
	CmdWelcome   = handshakeBand + 2
	CmdReady     = handshakeBand + 3
	CmdHeartbeat = handshakeBand + 4
	CmdGoodbye   = handshakeBand + 5
)

// IsHandshakeCommand reports whether interfaceID belongs to the
// handshake sub-protocol.
func IsHandshakeCommand(interfaceID uint32) bool {
	return interfaceID >= CmdHello && interfaceID <= CmdGoodbye
}

// pluginNameSize is the fixed width of the plugin_name field in a
// HelloRequest frame; shorter names are NUL-padded on the wire.
const pluginNameSize = 64

// helloRequestSize is the exact on-wire size of a HelloRequest body.
const helloRequestSize = 4 + 4 + pluginNameSize

// EncodeHello renders req in its fixed wire layout. A name longer than
// the fixed field is truncated at the field boundary.
func EncodeHello(req HelloRequest) []byte {
	buf := make([]byte, helloRequestSize)
	binary.LittleEndian.PutUint32(buf[0:], req.ProtocolVersion)
	binary.LittleEndian.PutUint32(buf[4:], req.PID)
	copy(buf[8:], req.PluginName)
	return buf
}

// DecodeHello parses a HelloRequest body. Short input returns
// result.ErrDeserializationFailed and produces no partial state.
func DecodeHello(buf []byte) (HelloRequest, result.Code) {
	if len(buf) < helloRequestSize {
		return HelloRequest{}, result.ErrDeserializationFailed
	}
	name := buf[8 : 8+pluginNameSize]
	end := len(name)
	for i, b := range name {
		if b == 0 {
			end = i
			break
		}
	}
	return HelloRequest{
		ProtocolVersion: binary.LittleEndian.Uint32(buf[0:]),
		PID:             binary.LittleEndian.Uint32(buf[4:]),
		PluginName:      string(name[:end]),
	}, result.OK
}

// EncodeWelcome renders resp as `u16 session_id, u8 status`.
func EncodeWelcome(resp WelcomeResponse) []byte {
	buf := make([]byte, 3)
	binary.LittleEndian.PutUint16(buf[0:], resp.SessionID)
	buf[2] = byte(resp.Status)
	return buf
}

// DecodeWelcome parses a WelcomeResponse body.
func DecodeWelcome(buf []byte) (WelcomeResponse, result.Code) {
	if len(buf) < 3 {
		return WelcomeResponse{}, result.ErrDeserializationFailed
	}
	return WelcomeResponse{
		SessionID: binary.LittleEndian.Uint16(buf[0:]),
		Status:    WelcomeStatus(buf[2]),
	}, result.OK
}

// EncodeReady renders a ReadyRequest body carrying the session id.
func EncodeReady(sessionID uint16) []byte {
	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf, sessionID)
	return buf
}

// DecodeReady parses a ReadyRequest body.
func DecodeReady(buf []byte) (uint16, result.Code) {
	if len(buf) < 2 {
		return 0, result.ErrDeserializationFailed
	}
	return binary.LittleEndian.Uint16(buf), result.OK
}

// EncodeHeartbeat renders a heartbeat body. sessionID may be nil: the
// source protocol's heartbeat frames carry no session id, and the
// receiver then refreshes every ready session (see Table.Heartbeat).
func EncodeHeartbeat(sessionID *uint16) []byte {
	if sessionID == nil {
		return nil
	}
	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf, *sessionID)
	return buf
}

// DecodeHeartbeat parses a heartbeat body, returning nil for the
// empty (session-less) form.
func DecodeHeartbeat(buf []byte) *uint16 {
	if len(buf) < 2 {
		return nil
	}
	id := binary.LittleEndian.Uint16(buf)
	return &id
}

// EncodeGoodbye renders a Goodbye body: a u16-length-prefixed utf-8
// reason string, matching the command layer's string convention.
func EncodeGoodbye(reason string) []byte {
	buf := make([]byte, 2+len(reason))
	binary.LittleEndian.PutUint16(buf[0:], uint16(len(reason)))
	copy(buf[2:], reason)
	return buf
}

// DecodeGoodbye parses a Goodbye body.
func DecodeGoodbye(buf []byte) (string, result.Code) {
	if len(buf) < 2 {
		return "", result.ErrDeserializationFailed
	}
	n := int(binary.LittleEndian.Uint16(buf[0:]))
	if len(buf) < 2+n {
		return "", result.ErrDeserializationFailed
	}
	return string(buf[2 : 2+n]), result.OK
}
