package helper

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
)

// SignalContext returns a context that is cancelled on SIGINT or SIGTERM,
// so a running stream can stop and release its sink gracefully.
func SignalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(c)

		select {
		case <-c:
			fmt.Fprintln(os.Stderr)
			log.Info("Caught signal, stopping...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
