package sink

import (
	"io"
	"os"
)

// StdoutSink writes chunks straight to stdout, e.g. `zip-firehose stream dir > dir.zip`.
type StdoutSink struct {
	w io.Writer
}

// NewStdout ...
func NewStdout() (*StdoutSink, error) {
	return &StdoutSink{w: os.Stdout}, nil
}

// Start ...
func (s *StdoutSink) Start() error {
	return nil
}

// Stop ...
func (s *StdoutSink) Stop() error {
	return nil
}

// Abort ...
func (s *StdoutSink) Abort(cause error) error {
	return nil
}

// Put ..
func (s *StdoutSink) Put(data []byte) error {
	_, err := s.w.Write(data)
	return err
}
