package scheduler

import (
	"context"
	"testing"
)

func TestNilStatusCacheRecordLastRunNoop(t *testing.T) {
	var c *StatusCache
	c.recordLastRun(context.Background(), "task", "ok", "")
}

func TestStatusCacheWithoutClientNoop(t *testing.T) {
	c := NewStatusCache(nil, 0)
	c.recordLastRun(context.Background(), "task", "ok", "")
}
