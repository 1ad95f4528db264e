package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dashost/dashost/internal/djson"
	"github.com/dashost/dashost/internal/ifc"
	"github.com/dashost/dashost/internal/result"
)

// DoFunc is the function shape a cron-backed task runs on each
// occurrence.
type DoFunc func(ctx context.Context, env, settings *djson.View) (string, error)

type cronTask struct {
	do       DoFunc
	schedule cron.Schedule
}

func (t *cronTask) Do(ctx context.Context, env, settings *djson.View) (string, error) {
	return t.do(ctx, env, settings)
}

func (t *cronTask) GetNextExecutionTime() (time.Time, bool) {
	return t.schedule.Next(time.Now()), true
}

// ScheduleCron parses spec with parser (ordinarily the Service's own
// options.Parser) and enqueues a recurring task built from do. It is
// the bridge between a plugin's declared JobSpec.Schedule string and
// the scheduler's internal Descriptor/Task representation.
func (s *Service) ScheduleCron(parser cron.Parser, id ifc.Iid, name string, spec string, settings *djson.View, owner ifc.WeakRef, do DoFunc) result.Code {
	schedule, err := parser.Parse(spec)
	if err != nil {
		return result.ErrInvalidArgument
	}
	d := &Descriptor{
		Iid:               id,
		Name:              name,
		NextExecutionTime: schedule.Next(time.Now()),
		Settings:          settings,
		Owner:             owner,
		Task:              &cronTask{do: do, schedule: schedule},
	}
	return s.Schedule(d)
}
