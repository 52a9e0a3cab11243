package sink

import (
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	log "github.com/sirupsen/logrus"
)

// S3Sink uploads the archive as one object. The uploader reads the body
// from a pipe and sends it as a multipart upload, so the size never has to
// be known up front.
type S3Sink struct {
	uploader s3manageriface.UploaderAPI
	bucket   string
	key      string

	pw      *io.PipeWriter
	doneCh  chan error
	stopped bool
}

// NewS3 ...
func NewS3() (*S3Sink, error) {
	bucket, err := requireEnv("s3", "SINK_S3_BUCKET", "my-bucket")
	if err != nil {
		return nil, err
	}

	key, err := requireEnv("s3", "SINK_S3_KEY", "exports/archive.zip")
	if err != nil {
		return nil, err
	}

	sess, err := session.NewSession()
	if err != nil {
		return nil, fmt.Errorf("[sink/s3] %w", err)
	}

	return newS3Sink(s3manager.NewUploader(sess), bucket, key), nil
}

func newS3Sink(uploader s3manageriface.UploaderAPI, bucket, key string) *S3Sink {
	return &S3Sink{
		uploader: uploader,
		bucket:   bucket,
		key:      key,
		doneCh:   make(chan error, 1),
	}
}

// Start ...
func (s *S3Sink) Start() error {
	pr, pw := io.Pipe()
	s.pw = pw

	go func() {
		log.Infof("[sink/s3] Starting upload to s3://%s/%s", s.bucket, s.key)

		out, err := s.uploader.Upload(&s3manager.UploadInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(s.key),
			ContentType: aws.String("application/zip"),
			Body:        pr,
		})
		if err != nil {
			err = fmt.Errorf("[sink/s3] %w", err)
			log.Error(err)
		} else {
			log.Infof("[sink/s3] uploaded %s", out.Location)
		}

		pr.CloseWithError(err)
		s.doneCh <- err
	}()

	return nil
}

// Stop ends the body and waits for the upload to finish.
func (s *S3Sink) Stop() error {
	if err := s.finish(); err != nil {
		return err
	}

	s.pw.Close()
	return <-s.doneCh
}

// Abort fails the body with cause so the upload is dropped instead of
// completed. It only reports an error if the upload went through anyway.
func (s *S3Sink) Abort(cause error) error {
	if err := s.finish(); err != nil {
		return err
	}

	log.Warnf("[sink/s3] aborting upload: %s", cause)
	s.pw.CloseWithError(cause)
	if err := <-s.doneCh; err == nil {
		return fmt.Errorf("[sink/s3] upload completed before abort")
	}
	return nil
}

func (s *S3Sink) finish() error {
	if s.pw == nil {
		return fmt.Errorf("[sink/s3] %w", ErrNotStarted)
	}
	if s.stopped {
		return fmt.Errorf("[sink/s3] %w", ErrStopped)
	}
	s.stopped = true
	return nil
}

// Put ..
func (s *S3Sink) Put(data []byte) error {
	if s.pw == nil {
		return fmt.Errorf("[sink/s3] %w", ErrNotStarted)
	}
	if s.stopped {
		return fmt.Errorf("[sink/s3] %w", ErrStopped)
	}

	_, err := s.pw.Write(data)
	return err
}
