// Package zipstream writes zip archives to forward-only writers.
//
// The archive writer is only ever used in streaming mode: local headers are
// followed by data descriptors, so nothing written is patched later and the
// destination never needs to seek.
package zipstream

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	log "github.com/sirupsen/logrus"
)

// Stats summarizes a written archive.
type Stats struct {
	Entries int
	// uncompressed bytes read from disk
	Bytes int64
}

type options struct {
	level  int
	logger *log.Entry
}

// Option configures Write.
type Option func(*options)

// WithCompressionLevel sets the deflate level (flate.BestSpeed..flate.BestCompression).
func WithCompressionLevel(level int) Option {
	return func(o *options) {
		o.level = level
	}
}

// WithLogger sets the entry used for per-file debug logging.
func WithLogger(logger *log.Entry) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Write streams an archive of m to w and closes the archive. w itself is not closed.
func Write(ctx context.Context, w io.Writer, m *Manifest, opts ...Option) (Stats, error) {
	o := options{
		level:  flate.DefaultCompression,
		logger: log.WithField("component", "zipstream"),
	}
	for _, opt := range opts {
		opt(&o)
	}

	if o.level < flate.HuffmanOnly || o.level > flate.BestCompression {
		return Stats{}, fmt.Errorf("[zipstream] invalid compression level %d", o.level)
	}

	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, o.level)
	})

	if m.Comment != "" {
		if err := zw.SetComment(m.Comment); err != nil {
			return Stats{}, err
		}
	}

	var stats Stats
	for _, e := range m.Entries {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		n, err := writeEntry(ctx, zw, e)
		if err != nil {
			return stats, fmt.Errorf("[zipstream] %s: %w", e.Name, err)
		}

		// push what the compressor has so far to the sink
		if err := zw.Flush(); err != nil {
			return stats, err
		}

		stats.Entries++
		stats.Bytes += n
		o.logger.WithField("entry", e.Name).Debugf("[zipstream] added %d bytes", n)
	}

	if err := zw.Close(); err != nil {
		return stats, err
	}

	return stats, nil
}

func writeEntry(ctx context.Context, zw *zip.Writer, e Entry) (int64, error) {
	name := cleanName(e.Name)
	if name == "" {
		return 0, fmt.Errorf("empty entry name")
	}

	f, err := os.Open(e.Path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("not a regular file")
	}

	h, err := zip.FileInfoHeader(info)
	if err != nil {
		return 0, err
	}

	h.Name = name
	h.Method = zip.Deflate
	if e.Store {
		h.Method = zip.Store
	}
	if !e.Modified.IsZero() {
		h.Modified = e.Modified
	}

	fw, err := zw.CreateHeader(h)
	if err != nil {
		return 0, err
	}

	return io.Copy(fw, &contextReader{ctx: ctx, r: f})
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
