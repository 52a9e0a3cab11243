package stream

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seatgeek/zip-firehose/sink"
	"github.com/seatgeek/zip-firehose/structs"
	"github.com/seatgeek/zip-firehose/zipstream"
)

type memorySink struct {
	buf      bytes.Buffer
	puts     int
	started  bool
	stopped  bool
	aborted  error
	putErr   error
	stopErr  error
	abortErr error
}

func (s *memorySink) Start() error {
	s.started = true
	return nil
}

func (s *memorySink) Stop() error {
	s.stopped = true
	return s.stopErr
}

func (s *memorySink) Abort(cause error) error {
	s.aborted = cause
	return s.abortErr
}

func (s *memorySink) Put(data []byte) error {
	if s.putErr != nil {
		return s.putErr
	}
	s.puts++
	s.buf.Write(data)
	return nil
}

func manifest(t *testing.T) *zipstream.Manifest {
	dir := t.TempDir()
	p := filepath.Join(dir, "report.csv")
	require.NoError(t, os.WriteFile(p, []byte("a,b\n1,2\n"), 0o644))
	return &zipstream.Manifest{Entries: []zipstream.Entry{{Name: "report.csv", Path: p}}}
}

func TestFirehoseStreamsArchive(t *testing.T) {
	sink := &memorySink{}
	f := newFirehose(sink, manifest(t), flate.BestSpeed)

	require.NoError(t, f.Start(context.Background()))
	assert.True(t, sink.started)
	assert.True(t, sink.stopped)
	assert.NoError(t, sink.aborted)
	assert.Greater(t, sink.puts, 0)

	zr, err := zip.NewReader(bytes.NewReader(sink.buf.Bytes()), int64(sink.buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)
	assert.Equal(t, "report.csv", zr.File[0].Name)
}

func TestFirehoseAbortsSinkOnError(t *testing.T) {
	boom := errors.New("connection reset")
	sink := &memorySink{putErr: boom}
	f := newFirehose(sink, manifest(t), flate.DefaultCompression)

	err := f.Start(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, sink.aborted, boom)
	assert.False(t, sink.stopped)
}

// failAfter lets the first n chunks through to the wrapped sink.
type failAfter struct {
	structs.Sink
	n   int
	err error
}

func (f *failAfter) Put(data []byte) error {
	if f.n == 0 {
		return f.err
	}
	f.n--
	return f.Sink.Put(data)
}

func TestFirehoseFailedArchiveNeverCompletesHttpUpload(t *testing.T) {
	type result struct {
		body []byte
		err  error
	}
	results := make(chan result, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		results <- result{body, err}
	}))
	defer srv.Close()

	t.Setenv("SINK_HTTP_ADDRESS", srv.URL)
	httpSink, err := sink.NewHttp()
	require.NoError(t, err)

	boom := errors.New("boom")
	f := newFirehose(&failAfter{Sink: httpSink, n: 1, err: boom}, manifest(t), flate.DefaultCompression)

	assert.ErrorIs(t, f.Start(context.Background()), boom)

	res := <-results
	assert.Error(t, res.err)
	assert.NotEmpty(t, res.body)
}

func TestFirehoseAbortsSinkOnCancel(t *testing.T) {
	sink := &memorySink{}
	f := newFirehose(sink, manifest(t), flate.DefaultCompression)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.Start(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, sink.aborted, context.Canceled)
	assert.False(t, sink.stopped)
}

func TestFirehoseReportsAbortError(t *testing.T) {
	boom := errors.New("connection reset")
	abortErr := errors.New("upload completed before abort")
	sink := &memorySink{putErr: boom, abortErr: abortErr}
	f := newFirehose(sink, manifest(t), flate.DefaultCompression)

	err := f.Start(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, abortErr)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Contains(t, err.Error(), "upload completed before abort")
}

func TestFirehoseReportsStopError(t *testing.T) {
	stopErr := errors.New("upload failed")
	sink := &memorySink{stopErr: stopErr}
	f := newFirehose(sink, manifest(t), flate.DefaultCompression)

	assert.ErrorIs(t, f.Start(context.Background()), stopErr)
}

func TestNewFirehoseNeedsInput(t *testing.T) {
	_, err := NewFirehose(nil, "", flate.DefaultCompression)
	assert.Error(t, err)
}

func TestNewFirehoseNeedsSink(t *testing.T) {
	t.Setenv("SINK_TYPE", "")
	dir := t.TempDir()

	_, err := NewFirehose([]string{dir}, "", flate.DefaultCompression)
	assert.EqualError(t, err, "Missing SINK_TYPE: stdout, http, amqp, redis, nsq, kafka or s3")
}
