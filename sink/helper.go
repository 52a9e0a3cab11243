package sink

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

const defaultQueueSize = 1000

var (
	// ErrNotStarted is returned by Put before Start.
	ErrNotStarted = errors.New("sink not started")
	// ErrStopped is returned by Put after Stop or Abort, and by a second Stop or Abort.
	ErrStopped = errors.New("sink already stopped")
)

func requireEnv(sink, name, example string) (string, error) {
	v := os.Getenv(name)
	if v == "" {
		if example != "" {
			return "", fmt.Errorf("[sink/%s] Missing %s (example: %s)", sink, name, example)
		}
		return "", fmt.Errorf("[sink/%s] Missing %s", sink, name)
	}
	return v, nil
}

func queueSize() (int, error) {
	v := os.Getenv("SINK_QUEUE_SIZE")
	if v == "" {
		return defaultQueueSize, nil
	}

	size, err := strconv.Atoi(v)
	if err != nil || size < 1 {
		return 0, fmt.Errorf("Invalid SINK_QUEUE_SIZE, must be a positive integer")
	}
	return size, nil
}

// queue hands chunks to a single background writer so their order is kept.
// The first send error is sticky: later puts fail with it and the rest of
// the queue is discarded.
type queue struct {
	name   string
	putCh  chan []byte
	doneCh chan struct{}

	// guards started/closed and every send on putCh
	stateMu sync.Mutex
	started bool
	closed  bool

	aborted atomic.Bool

	mu  sync.Mutex
	err error
}

func newQueue(name string, size int) *queue {
	return &queue{
		name:   name,
		putCh:  make(chan []byte, size),
		doneCh: make(chan struct{}),
	}
}

func (q *queue) start(send func(data []byte) error) {
	q.stateMu.Lock()
	defer q.stateMu.Unlock()

	if q.started {
		return
	}
	q.started = true
	go q.write(send)
}

func (q *queue) put(data []byte) error {
	q.stateMu.Lock()
	defer q.stateMu.Unlock()

	if !q.started {
		return fmt.Errorf("[sink/%s] %w", q.name, ErrNotStarted)
	}
	if q.closed {
		return fmt.Errorf("[sink/%s] %w", q.name, ErrStopped)
	}
	if err := q.failure(); err != nil {
		return err
	}

	// the producer reuses its buffer once we return
	q.putCh <- append([]byte(nil), data...)
	return nil
}

func (q *queue) write(send func(data []byte) error) {
	log.Infof("[sink/%s] Starting writer", q.name)
	defer close(q.doneCh)

	for data := range q.putCh {
		if q.aborted.Load() || q.failure() != nil {
			continue
		}

		if err := send(data); err != nil {
			log.Errorf("[sink/%s] %s", q.name, err)
			q.fail(err)
			continue
		}

		log.Debugf("[sink/%s] wrote %d bytes", q.name, len(data))
	}
}

// stop waits for every queued chunk to be written.
func (q *queue) stop() error {
	log.Infof("[sink/%s] ensure writer queue is empty (%d messages left)", q.name, len(q.putCh))
	if err := q.close(); err != nil {
		return err
	}
	return q.failure()
}

// abort drops whatever is still queued.
func (q *queue) abort(cause error) error {
	q.aborted.Store(true)
	log.Warnf("[sink/%s] aborting, discarding %d queued messages: %s", q.name, len(q.putCh), cause)
	if err := q.close(); err != nil {
		return err
	}
	return q.failure()
}

func (q *queue) close() error {
	q.stateMu.Lock()
	if !q.started {
		q.stateMu.Unlock()
		return nil
	}
	if q.closed {
		q.stateMu.Unlock()
		return fmt.Errorf("[sink/%s] %w", q.name, ErrStopped)
	}
	q.closed = true
	close(q.putCh)
	q.stateMu.Unlock()

	<-q.doneCh
	return nil
}

func (q *queue) fail(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err == nil {
		q.err = fmt.Errorf("[sink/%s] %w", q.name, err)
	}
}

func (q *queue) failure() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.err
}
