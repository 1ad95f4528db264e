// Package corelog implements the core's logging fan-out: a structured
// log/slog core writing the exact
// "[date][tid][level][func()][file:line][pid] msg" line format to a
// rotating file sink, plus a process-wide LogRequester
// fan-out so HTTP/CLI consumers can drain recent records without
// tailing the file.
package corelog

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dashost/dashost/internal/result"
)

// Entry is one formatted log record, the unit a LogRequester hands back.
type Entry struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Func    string         `json:"func"`
	File    string         `json:"file"`
	Line    int            `json:"line"`
	Pid     int            `json:"pid"`
	Message string         `json:"message"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Text    string         `json:"text"`
}

// defaultCoreName is the log file's base name (logs/<core-name>.log)
// when New is given an empty coreName.
const defaultCoreName = "dashost"

// New builds the root *slog.Logger for the process: records are
// rendered through Handler's fixed pattern and written to a
// lumberjack-rotated file capped at 50 MiB times 2 backups, fanned out
// to every currently-subscribed LogRequester.
func New(logDir, coreName string) *slog.Logger {
	if coreName == "" {
		coreName = defaultCoreName
	}
	sink := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, coreName+".log"),
		MaxSize:    50, // MiB
		MaxBackups: 2,
		Compress:   false,
	}
	h := &Handler{out: sink, level: slog.LevelInfo}
	return slog.New(h)
}

// Handler is a slog.Handler producing the fixed line pattern and
// fanning every record out to the package-level requester registry.
type Handler struct {
	out   *lumberjack.Logger
	level slog.Level
	attrs []slog.Attr
	mu    sync.Mutex
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool { return level >= h.level }

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	fn, file, line := callerInfo()
	attrs := map[string]any{}
	for _, a := range h.attrs {
		attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	e := Entry{
		Time:    r.Time,
		Level:   r.Level.String(),
		Func:    fn,
		File:    file,
		Line:    line,
		Pid:     os.Getpid(),
		Message: r.Message,
		Attrs:   attrs,
	}
	e.Text = fmt.Sprintf("[%s][%d][%s][%s()][%s:%d][%d] %s",
		e.Time.Format("2006-01-02 15:04:05.000"),
		goid(), e.Level, e.Func, filepath.Base(e.File), e.Line, e.Pid, e.Message)

	h.mu.Lock()
	fmt.Fprintln(h.out, e.Text)
	h.mu.Unlock()

	fanout(e)
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := &Handler{out: h.out, level: h.level, attrs: append(append([]slog.Attr{}, h.attrs...), attrs...)}
	return out
}

func (h *Handler) WithGroup(_ string) slog.Handler { return h }

func callerInfo() (fn, file string, line int) {
	pc, file, line, ok := runtime.Caller(4)
	if !ok {
		return "unknown", "unknown", 0
	}
	f := runtime.FuncForPC(pc)
	if f == nil {
		return "unknown", file, line
	}
	return filepath.Base(f.Name()), file, line
}

// goid recovers the calling goroutine's id for the log pattern's [tid]
// slot. Go exposes no public API for this; the standard workaround
// (also used by net/http/httputil's debug code) parses it off the
// first line of a single-goroutine stack dump.
func goid() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

var (
	subsMu sync.RWMutex
	subs   = map[*LogRequester]struct{}{}
)

func fanout(e Entry) {
	subsMu.RLock()
	defer subsMu.RUnlock()
	for r := range subs {
		r.push(e)
	}
}

// LogRequester is a bounded ring buffer over the process-wide log
// fan-out, one per subscriber (an HTTP long-poller, a CLI tail, …).
// Generalizes internal/plugin/log_buffer.go's per-plugin LogBuffer from
// "one ring per plugin name" to "one ring per subscriber, fed every
// record regardless of source".
type LogRequester struct {
	mu    sync.Mutex
	buf   []Entry
	cap   int
	head  int
	count int
	read  int // number of entries already delivered via RequestOne
}

// NewLogRequester subscribes a new requester with the given ring
// capacity and registers it with the global fan-out.
func NewLogRequester(capacity int) *LogRequester {
	if capacity <= 0 {
		capacity = 256
	}
	r := &LogRequester{buf: make([]Entry, capacity), cap: capacity}
	subsMu.Lock()
	subs[r] = struct{}{}
	subsMu.Unlock()
	return r
}

// Close unsubscribes the requester from the global fan-out.
func (r *LogRequester) Close() {
	subsMu.Lock()
	delete(subs, r)
	subsMu.Unlock()
}

func (r *LogRequester) push(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := r.count == r.cap
	r.buf[r.head] = e
	r.head = (r.head + 1) % r.cap
	if !evicted {
		r.count++
	} else if r.read > 0 {
		// the push overwrote the oldest entry, which had already been
		// delivered; step the cursor back so it still points at the
		// oldest undelivered one.
		r.read--
	}
}

// RequestOne writes the oldest not-yet-delivered entry into out and
// advances the read cursor, returning result.OK. When every buffered
// entry has already been delivered it leaves out untouched and returns
// result.ErrOutOfRange, the drained-empty sentinel.
func (r *LogRequester) RequestOne(out *Entry) result.Code {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.read >= r.count {
		return result.ErrOutOfRange
	}
	// oldest-first: the entry (count-read) slots back from head.
	idx := (r.head - r.count + r.read + r.cap) % r.cap
	*out = r.buf[idx]
	r.read++
	return result.OK
}
