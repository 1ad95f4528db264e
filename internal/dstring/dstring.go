// Package dstring implements the core's read-only string value: an
// immutable sequence of Unicode scalar values that caches its utf-8,
// utf-16 and platform-wide encodings lazily.
package dstring

import (
	"sync"
	"unicode/utf16"
)

// String owns an immutable sequence of runes and lazily caches three
// encodings of it. Construction from any one encoding invalidates the
// other two cached forms; a subsequent read re-encodes and re-caches.
// A zero String is the empty string, ready to use.
type String struct {
	mu // guards the cached slices below; runes never changes after New*

	runes []rune

	utf8Cached  bool
	utf8        string
	utf16Cached bool
	utf16       []uint16
	wideCached  bool
	wide []rune // platform-wide: utf-32 (rune) on non-Windows targets
}

// mu is embedded rather than named so zero-value Strings need no
// constructor call.
type mu struct{ sync.Mutex }

// FromUTF8 constructs a String from a utf-8 byte sequence.
func FromUTF8(s string) *String {
	return &String{runes: []rune(s)}
}

// FromUTF16 constructs a String from a utf-16 code unit sequence.
func FromUTF16(units []uint16) *String {
	return &String{runes: utf16.Decode(units)}
}

// FromRunes constructs a String from a platform-wide (utf-32) sequence.
func FromRunes(runes []rune) *String {
	cp := make([]rune, len(runes))
	copy(cp, runes)
	return &String{runes: cp}
}

// UTF8 returns the utf-8 encoding, computing and caching it on first use.
// Idempotent: repeated calls return byte-identical results for the
// lifetime of the object.
func (s *String) UTF8() string {
	s.Lock()
	defer s.Unlock()
	if !s.utf8Cached {
		s.utf8 = string(s.runes)
		s.utf8Cached = true
	}
	return s.utf8
}

// UTF16 returns the utf-16 encoding, computing and caching it on first use.
func (s *String) UTF16() []uint16 {
	s.Lock()
	defer s.Unlock()
	if !s.utf16Cached {
		s.utf16 = utf16.Encode(s.runes)
		s.utf16Cached = true
	}
	out := make([]uint16, len(s.utf16))
	copy(out, s.utf16)
	return out
}

// Wide returns the platform-wide encoding (utf-32 scalar values on every
// target this implementation runs on; Windows' native utf-16 "wide"
// form is exposed separately via UTF16 for callers that need it).
func (s *String) Wide() []rune {
	s.Lock()
	defer s.Unlock()
	if !s.wideCached {
		s.wide = make([]rune, len(s.runes))
		copy(s.wide, s.runes)
		s.wideCached = true
	}
	out := make([]rune, len(s.wide))
	copy(out, s.wide)
	return out
}

// Len returns the number of Unicode scalar values.
func (s *String) Len() int { return len(s.runes) }

// Equal reports whether two Strings hold the same scalar sequence.
func Equal(a, b *String) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if len(a.runes) != len(b.runes) {
		return false
	}
	for i, r := range a.runes {
		if b.runes[i] != r {
			return false
		}
	}
	return true
}
