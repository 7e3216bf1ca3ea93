// Package gcs stores rendered documents as Cloud Storage objects. Objects are
// served from the public base URL, so the bucket is expected to grant
// allUsers the object viewer role.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type DocumentStore struct {
	client    *storage.Client
	bucket    string
	projectID string
	// PublicBaseURL defaults to https://storage.googleapis.com.
	PublicBaseURL string
}

func NewDocumentStore(client *storage.Client, bucket, projectID string) *DocumentStore {
	return &DocumentStore{
		client:        client,
		bucket:        strings.TrimSpace(bucket),
		projectID:     projectID,
		PublicBaseURL: "https://storage.googleapis.com",
	}
}

// Put writes the object. When the bucket does not exist yet it is created once
// and the write retried exactly once.
func (s *DocumentStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if s.client == nil {
		return "", errors.New("document store: storage client is nil")
	}
	if s.bucket == "" {
		return "", errors.New("document store: bucket is empty")
	}
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return "", errors.New("document store: object key is empty")
	}

	err := s.write(ctx, key, data, contentType)
	if bucketMissing(err) {
		if cerr := s.client.Bucket(s.bucket).Create(ctx, s.projectID, nil); cerr != nil {
			return "", fmt.Errorf("document store: create bucket %s: %w", s.bucket, cerr)
		}
		err = s.write(ctx, key, data, contentType)
	}
	if err != nil {
		return "", fmt.Errorf("document store: write %s: %w", key, err)
	}

	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.PublicBaseURL, "/"), s.bucket, key), nil
}

func (s *DocumentStore) write(ctx context.Context, key string, data []byte, contentType string) error {
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	// Invoices are a few KB; a single-shot upload skips the resumable
	// session round trips.
	w.ChunkSize = 0
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// bucketMissing reports whether err is the storage service rejecting the
// write because the bucket does not exist. The client library only maps 404s
// to ErrBucketNotExist on attribute reads and listings; an object upload
// surfaces the raw transport error, so the HTTP and gRPC shapes are checked
// too. An upload 404 can only mean a missing bucket (objects are created, not
// addressed, by the insert).
func bucketMissing(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, storage.ErrBucketNotExist) {
		return true
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		return true
	}
	return status.Code(err) == codes.NotFound
}
