// package landing writes extracted records to the object-store landing zone
// as newline-delimited JSON under time-partitioned keys.
package landing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/desertthunder/tracklake/internal/models"
	"github.com/desertthunder/tracklake/internal/shared"
)

// ObjectStore is the landing zone contract: durable puts and gets by key.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// S3Client is the subset of the S3 API the store uses.
// Declared here so tests can substitute a fake.
type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Store implements [ObjectStore] against an S3 bucket.
type S3Store struct {
	client S3Client
	bucket string
}

// NewS3Store constructs an S3Store from ambient AWS configuration.
func NewS3Store(ctx context.Context, region, bucket string) (*S3Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("%w: landing bucket not configured", shared.ErrMissingConfig)
	}

	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3Store{client: s3.NewFromConfig(cfg), bucket: bucket}, nil
}

// NewS3StoreWithClient constructs an S3Store with an injected client.
func NewS3StoreWithClient(client S3Client, bucket string) *S3Store {
	return &S3Store{client: client, bucket: bucket}
}

func (s *S3Store) Put(ctx context.Context, key string, body []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/jsonl"),
	})
	if err != nil {
		return fmt.Errorf("failed to put s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}

func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", s.bucket, key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read s3://%s/%s: %w", s.bucket, key, err)
	}
	return body, nil
}

// Key builds the time-partitioned object key for a cycle's landed file.
func Key(prefix string, loadedAt time.Time) string {
	name := fmt.Sprintf("tracks_%s.jsonl", shared.CycleTimestamp(loadedAt))
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// EncodeJSONL renders records as newline-delimited JSON, one record per line.
func EncodeJSONL(tracks []models.RawTrack) ([]byte, error) {
	var buf bytes.Buffer
	for _, track := range tracks {
		line, err := json.Marshal(track)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal track %q: %w", track.ID, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// Zone couples an object store with a key prefix; one Zone serves one
// pipeline's landing area.
type Zone struct {
	store  ObjectStore
	prefix string
}

// NewZone creates a landing zone over the given store and key prefix.
func NewZone(store ObjectStore, prefix string) *Zone {
	return &Zone{store: store, prefix: prefix}
}

// Land writes the extracted tracks as one JSONL object and returns its key.
// Failures wrap [shared.ErrLandingFailed]; no staging or merge follows one.
func (z *Zone) Land(ctx context.Context, tracks []models.RawTrack, loadedAt time.Time) (string, error) {
	body, err := EncodeJSONL(tracks)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrLandingFailed, err)
	}

	key := Key(z.prefix, loadedAt)
	if err := z.store.Put(ctx, key, body); err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrLandingFailed, err)
	}

	return key, nil
}

// Read fetches a landed object for bulk copy into staging.
func (z *Zone) Read(ctx context.Context, key string) ([]byte, error) {
	return z.store.Get(ctx, key)
}
