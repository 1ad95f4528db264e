// Package scheduler implements the core's task scheduler: a single
// ascending-by-next-execution-time queue drained by exactly one worker
// goroutine at a time. Schedule parsing is delegated to
// github.com/robfig/cron/v3, but execution concurrency deliberately
// does not follow cron.Cron's run-everything-due-concurrently model:
// at most one task body executes at any instant, so this package keeps
// its own queue and worker loop and uses cron only for computing "when
// is the next occurrence of this schedule".
package scheduler

import (
	"context"
	"time"

	"github.com/dashost/dashost/internal/djson"
	"github.com/dashost/dashost/internal/ifc"
)

// Task is implemented by a scheduled unit of work. Do must honor ctx
// cancellation cooperatively — the scheduler cancels ctx on RequestStop
// rather than forcibly killing the goroutine.
type Task interface {
	Do(ctx context.Context, env *djson.View, settings *djson.View) (message string, err error)

	// GetNextExecutionTime computes the task's next run time. ok is
	// false when the task has no further occurrences (a one-shot task
	// that already ran, or a schedule that has ended), in which case
	// the scheduler drops the descriptor instead of re-queueing it.
	GetNextExecutionTime() (t time.Time, ok bool)
}

// Descriptor is one entry in the scheduler's queue: an iid/name pair
// identifying the task, its next execution time, a settings snapshot
// taken at schedule time, and a weak reference to the plugin that
// declared it so the task can outlive plugin unload without pinning it.
type Descriptor struct {
	Iid               ifc.Iid
	Name              string
	NextExecutionTime time.Time
	Settings          *djson.View
	Owner             ifc.WeakRef // may be nil for host-internal tasks
	Task              Task

	// LastMessage and LastErr record the outcome of the most recent run,
	// surfaced through Info for the HTTP control surface.
	LastMessage string
	LastErr     string
}
