package corelog

import (
	"io"
	"log"
	"log/slog"

	"github.com/hashicorp/go-hclog"
)

// HCLogAdapter satisfies hclog.Logger by forwarding onto a slog.Logger,
// so the daemon's one corelog sink is also what go-plugin and any
// hclog-only dependency write through, instead of each subsystem
// opening its own log file.
type HCLogAdapter struct {
	l    *slog.Logger
	name string
	args []interface{}
}

// NewHCLogAdapter wraps l for use anywhere an hclog.Logger is required.
func NewHCLogAdapter(l *slog.Logger) *HCLogAdapter {
	return &HCLogAdapter{l: l}
}

func (h *HCLogAdapter) Log(level hclog.Level, msg string, args ...interface{}) {
	switch level {
	case hclog.Trace, hclog.Debug:
		h.l.Debug(msg, args...)
	case hclog.Warn:
		h.l.Warn(msg, args...)
	case hclog.Error:
		h.l.Error(msg, args...)
	default:
		h.l.Info(msg, args...)
	}
}

func (h *HCLogAdapter) Trace(msg string, args ...interface{}) { h.l.Debug(msg, args...) }
func (h *HCLogAdapter) Debug(msg string, args ...interface{}) { h.l.Debug(msg, args...) }
func (h *HCLogAdapter) Info(msg string, args ...interface{})  { h.l.Info(msg, args...) }
func (h *HCLogAdapter) Warn(msg string, args ...interface{})  { h.l.Warn(msg, args...) }
func (h *HCLogAdapter) Error(msg string, args ...interface{}) { h.l.Error(msg, args...) }

func (h *HCLogAdapter) IsTrace() bool { return true }
func (h *HCLogAdapter) IsDebug() bool { return true }
func (h *HCLogAdapter) IsInfo() bool  { return true }
func (h *HCLogAdapter) IsWarn() bool  { return true }
func (h *HCLogAdapter) IsError() bool { return true }

func (h *HCLogAdapter) ImpliedArgs() []interface{} { return h.args }

func (h *HCLogAdapter) With(args ...interface{}) hclog.Logger {
	return &HCLogAdapter{l: h.l, name: h.name, args: append(append([]interface{}{}, h.args...), args...)}
}

func (h *HCLogAdapter) Name() string { return h.name }

func (h *HCLogAdapter) Named(name string) hclog.Logger {
	full := name
	if h.name != "" {
		full = h.name + "." + name
	}
	return &HCLogAdapter{l: h.l.With("logger", full), name: full, args: h.args}
}

func (h *HCLogAdapter) ResetNamed(name string) hclog.Logger {
	return &HCLogAdapter{l: h.l.With("logger", name), name: name, args: h.args}
}

func (h *HCLogAdapter) SetLevel(hclog.Level) {}
func (h *HCLogAdapter) GetLevel() hclog.Level { return hclog.Info }

func (h *HCLogAdapter) StandardLogger(opts *hclog.StandardLoggerOptions) *log.Logger {
	return log.New(h.StandardWriter(opts), "", 0)
}

func (h *HCLogAdapter) StandardWriter(_ *hclog.StandardLoggerOptions) io.Writer {
	return &slogWriter{l: h.l}
}

// slogWriter adapts an io.Writer onto Info-level slog records, for
// callers of StandardWriter that just want a *log.Logger-compatible
// sink rather than structured fields.
type slogWriter struct{ l *slog.Logger }

func (w *slogWriter) Write(p []byte) (int, error) {
	w.l.Info(string(p))
	return len(p), nil
}
