package worker

import (
	"context"
	"time"

	"saldo/internal/core"
	applog "saldo/internal/log"
)

// DueProcessor materializes due fixed expenses for a day.
type DueProcessor interface {
	ProcessDue(ctx context.Context, today core.Date) (int, error)
}

// FixedExpenseLoop runs the processor once at startup and then on every tick.
type FixedExpenseLoop struct {
	processor DueProcessor
	interval  time.Duration
	now       func() time.Time
	logger    *applog.Logger
}

func NewFixedExpenseLoop(processor DueProcessor, interval time.Duration, logger *applog.Logger) *FixedExpenseLoop {
	if logger == nil {
		logger = applog.Default(applog.ComponentWorker)
	}
	return &FixedExpenseLoop{
		processor: processor,
		interval:  interval,
		now:       time.Now,
		logger:    logger.WithComponent(applog.ComponentFixed),
	}
}

// Run blocks until ctx is cancelled. Processing errors are logged and the
// loop keeps going.
func (l *FixedExpenseLoop) Run(ctx context.Context) error {
	l.logger.InfoContext(ctx, "Fixed expense processor configured", "interval", l.interval)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.process(ctx, l.now())
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			l.process(ctx, l.now())
		}
	}
}

func (l *FixedExpenseLoop) process(ctx context.Context, now time.Time) {
	count, err := l.processor.ProcessDue(ctx, core.DateOf(now))
	if err != nil {
		if ctx.Err() == nil {
			l.logger.ErrorContext(ctx, "Fixed expense processing failed", applog.FieldError, err)
		}
		return
	}
	l.logger.InfoContext(ctx, "Fixed expense processing complete",
		"expenses_created", count,
		"next_check", now.Add(l.interval).Format("15:04:05"))
}
