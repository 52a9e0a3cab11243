package sink

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/hashicorp/go-cleanhttp"
	log "github.com/sirupsen/logrus"
)

// HttpSink streams the archive as the body of a single POST. The body has
// no known length, so it goes out with chunked transfer encoding, one chunk
// per Put.
type HttpSink struct {
	address     string
	contentType string
	client      *http.Client

	pw      *io.PipeWriter
	doneCh  chan error
	stopped bool
}

// NewHttp ...
func NewHttp() (*HttpSink, error) {
	address, err := requireEnv("http", "SINK_HTTP_ADDRESS", "http://miau.com:8080/biau")
	if err != nil {
		return nil, err
	}

	contentType := os.Getenv("SINK_HTTP_CONTENT_TYPE")
	if contentType == "" {
		contentType = "application/zip"
	}

	return newHttpSink(address, contentType, cleanhttp.DefaultClient()), nil
}

func newHttpSink(address, contentType string, client *http.Client) *HttpSink {
	return &HttpSink{
		address:     address,
		contentType: contentType,
		client:      client,
		doneCh:      make(chan error, 1),
	}
}

// Start opens the request; it completes when Stop closes the body.
func (s *HttpSink) Start() error {
	pr, pw := io.Pipe()

	req, err := http.NewRequest(http.MethodPost, s.address, pr)
	if err != nil {
		return fmt.Errorf("[sink/http] %w", err)
	}
	req.Header.Set("Content-Type", s.contentType)

	s.pw = pw
	go s.send(req, pr)

	return nil
}

func (s *HttpSink) send(req *http.Request, pr *io.PipeReader) {
	log.Infof("[sink/http] Starting upload to %s", s.address)

	resp, err := s.client.Do(req)
	if err == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= 300 {
			err = fmt.Errorf("[sink/http] %s responded %s", s.address, resp.Status)
		}
	} else {
		err = fmt.Errorf("[sink/http] %w", err)
	}

	// unblock a Put still waiting on the pipe
	pr.CloseWithError(err)

	if err != nil {
		log.Error(err)
	} else {
		log.Debugf("[sink/http] publish ok")
	}
	s.doneCh <- err
}

// Stop ends the body and waits for the upload to finish.
func (s *HttpSink) Stop() error {
	if err := s.finish(); err != nil {
		return err
	}

	s.pw.Close()
	return <-s.doneCh
}

// Abort fails the body with cause so the upload is dropped instead of
// completed. It only reports an error if the upload went through anyway.
func (s *HttpSink) Abort(cause error) error {
	if err := s.finish(); err != nil {
		return err
	}

	log.Warnf("[sink/http] aborting upload: %s", cause)
	s.pw.CloseWithError(cause)
	if err := <-s.doneCh; err == nil {
		return fmt.Errorf("[sink/http] upload completed before abort")
	}
	return nil
}

func (s *HttpSink) finish() error {
	if s.pw == nil {
		return fmt.Errorf("[sink/http] %w", ErrNotStarted)
	}
	if s.stopped {
		return fmt.Errorf("[sink/http] %w", ErrStopped)
	}
	s.stopped = true
	return nil
}

// Put ..
func (s *HttpSink) Put(data []byte) error {
	if s.pw == nil {
		return fmt.Errorf("[sink/http] %w", ErrNotStarted)
	}
	if s.stopped {
		return fmt.Errorf("[sink/http] %w", ErrStopped)
	}

	_, err := s.pw.Write(data)
	return err
}
