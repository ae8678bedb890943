// Package runner schedules background tasks on a shared cron instance.
package runner

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Task is a scheduled background job.
type Task interface {
	Name() string
	// Schedule returns a cron expression with seconds field.
	Schedule() string
	Timeout() time.Duration
	Run(ctx context.Context) error
}

// Runner drives registered tasks on their cron schedules.
type Runner struct {
	cron   *cron.Cron
	logger *log.Logger
}

// New creates a runner. Schedules use the six-field form with seconds.
func New() *Runner {
	return &Runner{
		cron:   cron.New(cron.WithSeconds()),
		logger: log.New(log.Writer(), "[RUNNER] ", log.LstdFlags),
	}
}

// Register adds a task to the schedule.
func (r *Runner) Register(t Task) error {
	_, err := r.cron.AddFunc(t.Schedule(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), t.Timeout())
		defer cancel()
		if err := t.Run(ctx); err != nil {
			r.logger.Printf("task %s failed: %v", t.Name(), err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule task %s: %w", t.Name(), err)
	}
	return nil
}

// Start begins running scheduled tasks.
func (r *Runner) Start() {
	r.cron.Start()
}

// Stop halts scheduling and waits for running jobs.
func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}
