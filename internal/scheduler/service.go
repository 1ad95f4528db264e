package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/dashost/dashost/internal/djson"
	"github.com/dashost/dashost/internal/result"
)

// Service is the scheduler state machine: a queue, a running flag, an
// enabled flag, a stop token for the in-flight task,
// and the environment-config snapshot every task body receives. Exactly
// one worker goroutine (started by Run) drains the queue; at most one
// task executes at any instant.
type Service struct {
	mu      sync.Mutex
	q       queue
	running       bool
	enabled       bool
	cancel        context.CancelFunc // cancels the in-flight task; nil when idle
	stopSignalled bool               // true once RequestStop has fired for the current run
	env           *djson.View

	logger       hclog.Logger
	metrics      *taskMetrics
	statusCache  *StatusCache
	pollInterval time.Duration

	wake chan struct{} // nudges the worker loop to re-evaluate the queue
}

// New returns an idle, disabled Service. Call SetEnabled(true) and Run
// to start draining the queue.
func New(opts ...Option) *Service {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Service{
		env:          o.Env,
		logger:       o.Logger,
		metrics:      globalTaskMetrics(),
		statusCache:  o.StatusCache,
		pollInterval: o.PollInterval,
		wake:         make(chan struct{}, 1),
	}
}

// Schedule enqueues a descriptor. Safe to call from any goroutine,
// including from within a running task's own Do method (to reschedule
// itself under a new time, for instance).
func (s *Service) Schedule(d *Descriptor) result.Code {
	if d == nil || d.Task == nil {
		return result.ErrInvalidArgument
	}
	s.mu.Lock()
	s.q.insert(d)
	depth := s.q.len()
	s.mu.Unlock()
	s.metrics.setQueueDepth(depth)
	s.nudge()
	return result.OK
}

// SetEnabled toggles whether the worker loop may start new tasks.
// Disabling does not interrupt a task already running.
func (s *Service) SetEnabled(enabled bool) {
	s.mu.Lock()
	s.enabled = enabled
	s.mu.Unlock()
	if enabled {
		s.nudge()
	}
}

// IsEnabled reports the current enabled flag.
func (s *Service) IsEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// IsRunning reports whether a task is currently executing.
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// ForceStart rewrites the soonest-due descriptor's next-execution-time
// to now and wakes the worker. Legal only when Idle and Enabled; any
// other state returns result.ErrTaskWorking (running) or
// result.ErrObjectNotInit (disabled).
func (s *Service) ForceStart() result.Code {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return result.ErrTaskWorking
	}
	if !s.enabled {
		return result.ErrObjectNotInit
	}
	d := s.q.peekTail()
	if d == nil {
		return result.ErrOutOfRange
	}
	d.NextExecutionTime = time.Now()
	go s.nudge()
	return result.OK
}

// RequestStop signals the in-flight task's stop token. Legal only while
// a task is running; calling while idle returns result.ErrTaskWorking
// (the scheduler itself is not "working" but the code is reused to
// mean "nothing to stop"), and a second call against the same
// run returns result.FALSE instead of re-signalling.
func (s *Service) RequestStop() result.Code {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return result.ErrTaskWorking
	}
	if s.stopSignalled {
		return result.FALSE
	}
	s.stopSignalled = true
	if s.cancel != nil {
		s.cancel()
	}
	return result.OK
}

// WorkingTasks returns a snapshot of the queue's current contents.
func (s *Service) WorkingTasks() []*Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.snapshot()
}

// Info renders the scheduler's current state as a json view, the shape
// the HTTP control surface's "get scheduler info" handler serializes
// directly to its caller.
func (s *Service) Info() *djson.View {
	s.mu.Lock()
	running, enabled, depth := s.running, s.enabled, s.q.len()
	s.mu.Unlock()

	v := djson.NewOwningObject()
	v.Set("running", running)
	v.Set("enabled", enabled)
	v.Set("queueDepth", float64(depth))
	return v
}

func (s *Service) nudge() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run drives the worker loop until ctx is canceled. It is intended to
// run in its own goroutine for the lifetime of the process.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		case <-ticker.C:
		}
		s.tryDispatch(ctx)
	}
}

// tryDispatch performs the Idle to Running transition: atomically set
// running, reset the stop token, pop the
// tail of the queue, and execute — one task at a time.
func (s *Service) tryDispatch(parent context.Context) {
	s.mu.Lock()
	if s.running || !s.enabled {
		s.mu.Unlock()
		return
	}
	d := s.q.peekTail()
	if d == nil || d.NextExecutionTime.After(time.Now()) {
		s.mu.Unlock()
		return
	}
	d = s.q.popTail()
	if d.Owner != nil {
		if owner, code := d.Owner.Resolve(d.Iid); code == result.ErrStrongReferenceNotAvailable {
			// The declaring plugin is gone; drop the descriptor instead
			// of running a task whose code may no longer exist.
			depth := s.q.len()
			s.mu.Unlock()
			s.metrics.setQueueDepth(depth)
			s.logger.Info("dropping task from unloaded plugin", "task", d.Name)
			return
		} else if code == result.OK {
			defer owner.Release()
		}
	}
	taskCtx, cancel := context.WithCancel(parent)
	s.running = true
	s.cancel = cancel
	s.stopSignalled = false
	depth := s.q.len()
	s.mu.Unlock()
	s.metrics.setQueueDepth(depth)

	go s.execute(taskCtx, cancel, d)
}

func (s *Service) execute(ctx context.Context, cancel context.CancelFunc, d *Descriptor) {
	stop := s.metrics.recordRun()
	msg, err := d.Task.Do(ctx, s.env, d.Settings)
	success := err == nil
	stop(success)

	if success {
		d.LastMessage = msg
		d.LastErr = ""
	} else {
		d.LastErr = err.Error()
		s.logger.Error("task execution failed", "task", d.Name, "error", err)
	}

	s.mu.Lock()
	s.running = false
	s.cancel = nil
	s.mu.Unlock()
	cancel()
	s.statusCache.recordLastRun(context.Background(), d.Name, d.LastMessage, d.LastErr)

	next, ok := d.Task.GetNextExecutionTime()
	if !ok {
		s.logger.Info("task has no further occurrences, dropping", "task", d.Name)
		s.nudge()
		return
	}
	d.NextExecutionTime = next
	s.Schedule(d)
}
