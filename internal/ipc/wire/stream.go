package wire

import (
	"io"
)

// ReadFrame reads one complete frame (header + body) from r, blocking
// until the fixed header and its declared body arrive. It is the
// streaming counterpart to DecodeFrame for callers reading directly off
// a net.Conn rather than a fully-buffered slice.
func ReadFrame(r io.Reader) (Header, []byte, error) {
	hdrBuf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, hdrBuf); err != nil {
		return Header{}, nil, err
	}
	h, code := DecodeHeader(hdrBuf)
	if code.Failed() {
		return Header{}, nil, code
	}
	body := make([]byte, h.BodySize)
	if h.BodySize > 0 {
		if _, err := io.ReadFull(r, body); err != nil {
			return Header{}, nil, err
		}
	}
	return h, body, nil
}

// WriteFrame writes h and body to w as one contiguous frame, setting
// h.BodySize from len(body).
func WriteFrame(w io.Writer, h Header, body []byte) error {
	frame := EncodeFrame(h, body)
	_, err := w.Write(frame)
	return err
}
