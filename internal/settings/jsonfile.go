// Package settings implements per-plugin settings json, profile
// enumeration, and the two process-wide settings blobs ("UI extra
// settings" and "global settings"). Every settings object is backed by
// a single file on disk, edited in memory, and written back atomically
// under a mutex that guarantees one writer, validated with
// github.com/xeipuuv/gojsonschema on the way out when a schema is
// attached.
package settings

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/dashost/dashost/internal/djson"
	"github.com/dashost/dashost/internal/result"
)

// JSONFile is a json document backed by a file, with an optional
// defaults fallback and an optional schema enforced on Save.
type JSONFile struct {
	mu       sync.Mutex
	path     string
	doc      *djson.View
	defaults *djson.View
	schema   *gojsonschema.Schema
}

// JSONFileOption configures a JSONFile at construction.
type JSONFileOption func(*JSONFile)

// WithDefaults attaches a fallback document consulted by GetKey when a
// key is absent from the live document.
func WithDefaults(defaults *djson.View) JSONFileOption {
	return func(f *JSONFile) { f.defaults = defaults }
}

// WithSchema attaches a json-schema (as raw bytes) validated against
// the in-memory document on every Save.
func WithSchema(schemaJSON []byte) JSONFileOption {
	return func(f *JSONFile) {
		loader := gojsonschema.NewBytesLoader(schemaJSON)
		schema, err := gojsonschema.NewSchema(loader)
		if err == nil {
			f.schema = schema
		}
	}
}

// Open loads path if it exists, or starts from an empty object if it
// does not. A fresh settings file is not an error: nothing pre-exists
// on disk before the first Save.
func Open(path string, opts ...JSONFileOption) (*JSONFile, error) {
	f := &JSONFile{path: path}
	for _, opt := range opts {
		opt(f)
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		v, parseErr := djson.Parse(data)
		if parseErr != nil {
			return nil, parseErr
		}
		f.doc = v
	case os.IsNotExist(err):
		f.doc = djson.NewOwningObject()
	default:
		return nil, err
	}
	return f, nil
}

// ToString serializes the live document.
func (f *JSONFile) ToString() (string, result.Code) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out, code := f.doc.Marshal()
	if code.Failed() {
		return "", code
	}
	return string(out), result.OK
}

// FromString replaces the in-memory document by parsing s. On any parse
// error the previous in-memory state is left unchanged and
// result.ErrInvalidJson is returned.
func (f *JSONFile) FromString(s string) result.Code {
	v, err := djson.Parse([]byte(s))
	if err != nil {
		return result.ErrInvalidJson
	}
	f.mu.Lock()
	old := f.doc
	f.doc = v
	f.mu.Unlock()
	old.Destroy()
	return result.OK
}

// GetKey consults the live document first, then the defaults document
// if one is attached, returning result.ErrOutOfRange if the key is
// absent from both.
func (f *JSONFile) GetKey(key string) (*djson.View, result.Code) {
	f.mu.Lock()
	doc, defaults := f.doc, f.defaults
	f.mu.Unlock()

	if v, code := doc.Get(key); code == result.OK {
		return v, result.OK
	}
	if defaults != nil {
		if v, code := defaults.Get(key); code == result.OK {
			return v, result.OK
		}
	}
	return nil, result.ErrOutOfRange
}

// Save validates (if a schema is attached) and atomically writes the
// live document to its canonical path: write to a sibling temp file,
// then rename over the destination, so a reader never observes a
// partially written file. IO errors map to result.ErrInvalidFile.
func (f *JSONFile) Save() result.Code {
	return f.SaveToWorkingDirectory(filepath.Dir(f.path))
}

// SaveToWorkingDirectory writes the live document under dir using the
// file's base name, for the "save a copy elsewhere" edit-cycle
// operation offered alongside Save.
func (f *JSONFile) SaveToWorkingDirectory(dir string) result.Code {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, code := f.doc.Marshal()
	if code.Failed() {
		return code
	}

	if f.schema != nil {
		docLoader := gojsonschema.NewBytesLoader(data)
		res, err := f.schema.Validate(docLoader)
		if err != nil || !res.Valid() {
			return result.ErrInvalidJson
		}
	}

	target := filepath.Join(dir, filepath.Base(f.path))
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return result.ErrInvalidFile
	}
	if err := os.Rename(tmp, target); err != nil {
		return result.ErrInvalidFile
	}
	return result.OK
}

// Doc returns the live document for direct read/write access beyond
// GetKey (e.g. the HTTP control surface editing arbitrary sub-keys).
func (f *JSONFile) Doc() *djson.View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.doc
}
