// package testing contains shared testing utilities
package testing

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/desertthunder/tracklake/internal/models"
	"github.com/desertthunder/tracklake/internal/services"
)

// MockCatalog is a test double for [services.Catalog] with canned responses.
type MockCatalog struct {
	Albums    []services.Album
	Tracks    map[string][]models.RawTrack
	AuthErr   error
	ListErr   error
	TracksErr error
}

func (m *MockCatalog) Authenticate(ctx context.Context) error {
	return m.AuthErr
}

func (m *MockCatalog) NewReleases(ctx context.Context, limit int) ([]services.Album, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	if limit > 0 && len(m.Albums) > limit {
		return m.Albums[:limit], nil
	}
	return m.Albums, nil
}

func (m *MockCatalog) AlbumTracks(ctx context.Context, albumID string) ([]models.RawTrack, error) {
	if m.TracksErr != nil {
		return nil, m.TracksErr
	}
	return m.Tracks[albumID], nil
}

func (m *MockCatalog) Name() string { return "mock" }

// MemS3Client is an in-memory fake of the landing S3 client.
type MemS3Client struct {
	mu      sync.Mutex
	Objects map[string][]byte
	PutErr  error
	GetErr  error
}

func NewMemS3Client() *MemS3Client {
	return &MemS3Client{Objects: make(map[string][]byte)}
}

func (m *MemS3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.PutErr != nil {
		return nil, m.PutErr
	}
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.Objects[*params.Key] = body
	m.mu.Unlock()
	return &s3.PutObjectOutput{}, nil
}

func (m *MemS3Client) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.Lock()
	body, ok := m.Objects[*params.Key]
	m.mu.Unlock()
	if !ok {
		return nil, errors.New("no such key")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

// MemSecretsClient is an in-memory fake of the Secrets Manager client.
type MemSecretsClient struct {
	Secrets map[string]string
	Err     error
}

func (m *MemSecretsClient) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	value, ok := m.Secrets[*params.SecretId]
	if !ok {
		return nil, errors.New("secret not found")
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: &value}, nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper serves canned JSON bodies by request path, building a
// fresh response per call so repeated requests work.
type MockRoundTripper struct {
	Routes   map[string]string // path -> JSON body
	Statuses map[string]int    // path -> status, 200 when absent
	Err      error
}

func (m *MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if m.Err != nil {
		return nil, m.Err
	}

	path := req.URL.Path
	body, ok := m.Routes[path]
	status := http.StatusOK
	if s, found := m.Statuses[path]; found {
		status = s
	}
	if !ok && status == http.StatusOK {
		status = http.StatusNotFound
	}

	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
		Request:    req,
	}, nil
}
