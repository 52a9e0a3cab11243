package stream

import (
	"context"
	"fmt"
	"time"

	"github.com/gorhill/cronexpr"
	log "github.com/sirupsen/logrus"
)

// Schedule streams a fresh archive every time expr fires until ctx is
// done. build is called per run because sinks are single-use. A failed run
// is logged and the schedule carries on.
func Schedule(ctx context.Context, expr string, build func() (*Firehose, error)) error {
	schedule, err := cronexpr.Parse(expr)
	if err != nil {
		return fmt.Errorf("Invalid schedule %q: %w", expr, err)
	}

	logger := log.WithField("schedule", expr)

	for {
		next := schedule.Next(time.Now())
		if next.IsZero() {
			return fmt.Errorf("Schedule %q never fires again", expr)
		}
		logger.Debugf("Next archive at %s", next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		firehose, err := build()
		if err != nil {
			logger.Errorf("Could not prepare archive: %s", err)
			continue
		}

		if err := firehose.Start(ctx); err != nil {
			logger.Errorf("Archive run failed: %s", err)
		}
	}
}
