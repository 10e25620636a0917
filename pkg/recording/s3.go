package recording

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the slice of the S3 client the sink needs.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink buffers a recording in memory and uploads it as one object on
// Close. Session recordings are small relative to the video they stand in
// for; buffering keeps Record cheap on the relay goroutine.
type S3Sink struct {
	api           S3API
	bucket        string
	key           string
	uploadTimeout time.Duration

	mu     sync.Mutex
	buf    bytes.Buffer
	closed bool
}

// NewS3Sink creates a sink uploading to s3://bucket/key.
//
//	cfg, _ := config.LoadDefaultConfig(context.Background())
//	sink := recording.NewS3Sink(s3.NewFromConfig(cfg), "recordings", "sessions/"+id+".vgr")
func NewS3Sink(api S3API, bucket, key string) *S3Sink {
	return &S3Sink{
		api:           api,
		bucket:        bucket,
		key:           key,
		uploadTimeout: 30 * time.Second,
	}
}

// WithUploadTimeout sets the deadline for the Close-time upload.
func (s *S3Sink) WithUploadTimeout(d time.Duration) *S3Sink {
	s.uploadTimeout = d
	return s
}

// Record implements Sink.
func (s *S3Sink) Record(ev Event) error {
	line, err := encodeEvent(ev)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("recording: sink closed")
	}
	_, err = s.buf.Write(line)
	return err
}

// Close implements Sink: it performs the upload.
func (s *S3Sink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	data := s.buf.Bytes()
	s.mu.Unlock()

	if len(data) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.uploadTimeout)
	defer cancel()

	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("text/plain; charset=utf-8"),
		Metadata: map[string]string{
			"recorded-at": time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return fmt.Errorf("recording: s3 upload failed: %w", err)
	}
	return nil
}
