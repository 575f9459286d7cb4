// Package worker runs the periodic jobs of the service: re-persisting the
// session state and evaluating reminders.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/tartampluch/remindme/internal/app"
	"github.com/tartampluch/remindme/internal/config"
	"github.com/tartampluch/remindme/internal/engine"
	"github.com/tartampluch/remindme/internal/metrics"
	"github.com/tartampluch/remindme/internal/notify"
)

// Worker owns the flush and reminder tickers.
type Worker struct {
	State      *app.State
	Dispatcher *notify.Dispatcher
	Clock      engine.Clock

	FlushInterval    time.Duration
	ReminderInterval time.Duration
}

// Run evaluates reminders once, then ticks until ctx is cancelled. The state
// is flushed one last time on the way out.
func (w *Worker) Run(ctx context.Context) error {
	log := slog.With(config.LogKeyComponent, config.CompWorker)

	w.Remind(ctx)

	flush := time.NewTicker(w.FlushInterval)
	defer flush.Stop()
	remind := time.NewTicker(w.ReminderInterval)
	defer remind.Stop()

	log.Info(config.MsgWorkerStart,
		config.LogKeyInterval, w.FlushInterval,
		config.LogKeyValue, w.ReminderInterval)

	for {
		select {
		case <-ctx.Done():
			log.Info(config.MsgWorkerStop)
			stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), config.ShutdownTimeout)
			defer cancel()
			return w.Flush(stopCtx)

		case <-flush.C:
			_ = w.Flush(ctx)

		case <-remind.C:
			w.Remind(ctx)
		}
	}
}

// Flush re-persists the active session.
func (w *Worker) Flush(ctx context.Context) error {
	err := w.State.Flush(ctx)
	metrics.Flushed(err)
	if err != nil {
		slog.WarnContext(ctx, config.MsgFlushFailed,
			config.LogKeyComponent, config.CompWorker,
			config.LogKeyError, err)
		return err
	}
	slog.DebugContext(ctx, config.MsgFlush, config.LogKeyComponent, config.CompWorker)
	return nil
}

// Remind evaluates today's reminders of the active session. Failures are
// logged; the next tick tries again.
func (w *Worker) Remind(ctx context.Context) []notify.Result {
	snap := w.State.Snapshot()
	if !snap.Active() {
		return nil
	}

	results, err := w.Dispatcher.Evaluate(ctx, snap.Email, snap.Profile, snap.Birthdays, engine.Today(w.Clock))
	if err != nil {
		slog.ErrorContext(ctx, config.MsgReminderFailed,
			config.LogKeyComponent, config.CompWorker,
			config.LogKeyError, err)
		return results
	}
	slog.DebugContext(ctx, config.MsgReminderRun,
		config.LogKeyComponent, config.CompWorker,
		config.LogKeyUser, snap.Email,
		config.LogKeyCount, len(results))
	return results
}
