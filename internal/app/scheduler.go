package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Scheduler runs a job on a standard 5-field cron expression
// (minute hour day-of-month month day-of-week), e.g. "*/5 * * * *".
type Scheduler struct {
	sched cron.Schedule
	expr  string
	now   func() time.Time
}

func NewScheduler(expr string) (*Scheduler, error) {
	expr = strings.TrimSpace(expr)
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", expr, err)
	}
	return &Scheduler{sched: sched, expr: expr, now: time.Now}, nil
}

// Run calls job at every activation until ctx is done. Jobs run one at a time.
func (s *Scheduler) Run(ctx context.Context, job func(context.Context)) error {
	for {
		now := s.now()
		next := s.sched.Next(now)
		wait := next.Sub(now)
		log.Debug().Str("cron", s.expr).Time("next", next).Dur("in", wait).Msg("next scheduled refresh")

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		job(ctx)
	}
}

// RefreshJob adapts IngestionService.Refresh to a scheduler job; failures are
// already logged by Refresh.
func RefreshJob(ing *IngestionService) func(context.Context) {
	return func(ctx context.Context) {
		_, _ = ing.Refresh(ctx)
	}
}
