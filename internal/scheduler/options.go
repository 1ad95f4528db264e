package scheduler

import (
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/robfig/cron/v3"

	"github.com/dashost/dashost/internal/djson"
)

type options struct {
	Logger       hclog.Logger
	Parser       cron.Parser
	Env          *djson.View
	StatusCache  *StatusCache
	PollInterval time.Duration
}

// Option applies configuration to the scheduler service.
type Option func(*options)

func defaultOptions() options {
	return options{
		Logger:       hclog.NewNullLogger(),
		Parser:       cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		Env:          djson.NewOwningObject(),
		PollInterval: 100 * time.Millisecond,
	}
}

// WithPollInterval overrides the driver loop's polling cadence. Zero or
// negative keeps the 100ms default.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.PollInterval = d
		}
	}
}

// WithLogger injects a custom hclog.Logger.
func WithLogger(l hclog.Logger) Option {
	return func(o *options) { o.Logger = l }
}

// WithCronParser overrides the schedule-string parser used to compute
// each task's next occurrence.
func WithCronParser(p cron.Parser) Option {
	return func(o *options) { o.Parser = p }
}

// WithEnvironment supplies the environment-config json snapshotted into
// every task invocation.
func WithEnvironment(env *djson.View) Option {
	return func(o *options) { o.Env = env }
}
