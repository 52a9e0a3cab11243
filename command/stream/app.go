package stream

import (
	"context"
	"fmt"

	multierror "github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	"github.com/seatgeek/zip-firehose/blockwrite"
	"github.com/seatgeek/zip-firehose/helper"
	"github.com/seatgeek/zip-firehose/structs"
	"github.com/seatgeek/zip-firehose/zipstream"
)

// Firehose streams one archive into the configured sink.
type Firehose struct {
	sink     structs.Sink
	manifest *zipstream.Manifest
	level    int
	logger   *log.Entry
}

// NewFirehose builds the archive from a manifest file, or from paths when
// no manifest is given, and picks the sink from SINK_TYPE.
func NewFirehose(paths []string, manifestFile string, level int) (*Firehose, error) {
	var manifest *zipstream.Manifest

	switch {
	case manifestFile != "":
		m, err := zipstream.LoadManifest(manifestFile)
		if err != nil {
			return nil, err
		}
		manifest = m
	case len(paths) > 0:
		entries, err := zipstream.EntriesFromPaths(paths...)
		if err != nil {
			return nil, err
		}
		manifest = &zipstream.Manifest{Entries: entries}
	default:
		return nil, fmt.Errorf("Nothing to stream: pass paths or --manifest")
	}

	sink, err := helper.GetSink()
	if err != nil {
		return nil, err
	}

	return newFirehose(sink, manifest, level), nil
}

func newFirehose(sink structs.Sink, manifest *zipstream.Manifest, level int) *Firehose {
	return &Firehose{
		sink:     sink,
		manifest: manifest,
		level:    level,
		logger:   log.WithField("type", "stream"),
	}
}

// Start streams the archive and ends the sink: Stop when the archive is
// complete, Abort when it is not. It returns once the sink is done.
func (f *Firehose) Start(ctx context.Context) error {
	if err := f.sink.Start(); err != nil {
		return err
	}

	counter := &zipstream.CountingWriter{W: blockwrite.New(f.sink.Put)}
	stats, err := zipstream.Write(ctx, counter, f.manifest,
		zipstream.WithCompressionLevel(f.level),
		zipstream.WithLogger(f.logger),
	)

	if err != nil {
		f.logger.Errorf("Archive failed after %d bytes, aborting sink: %s", counter.Bytes, err)

		if abortErr := f.sink.Abort(err); abortErr != nil {
			return multierror.Append(err, abortErr)
		}
		return err
	}

	if err := f.sink.Stop(); err != nil {
		return err
	}

	f.logger.WithFields(log.Fields{
		"entries": stats.Entries,
		"read":    stats.Bytes,
		"written": counter.Bytes,
		"chunks":  counter.Writes,
	}).Info("Archive streamed")

	return nil
}
