package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
)

// Cron robfig/cron 封装，清扫类任务走 cron 表达式
type Cron struct {
	c *cron.Cron
}

func NewCron(loc *time.Location) *Cron {
	if loc == nil {
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	return &Cron{c: c}
}

func (cr *Cron) Start() { cr.c.Start() }
func (cr *Cron) Stop()  { ctx := cr.c.Stop(); <-ctx.Done() }

func (cr *Cron) Add(expr string, fn func(ctx context.Context)) (cron.EntryID, error) {
	return cr.c.AddFunc(expr, func() { fn(context.Background()) })
}
