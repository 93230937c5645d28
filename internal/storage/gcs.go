package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
	"github.com/rotisserie/eris"
	"google.golang.org/api/option"
)

// gcsStore implements ObjectStore on a Google Cloud Storage bucket.
type gcsStore struct {
	client *gcs.Client
	bucket string
}

// NewGCSStore creates an ObjectStore backed by the named GCS bucket.
// Credentials are resolved from the environment (application default
// credentials) unless overridden via opts.
func NewGCSStore(ctx context.Context, bucket string, opts ...option.ClientOption) (ObjectStore, error) {
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, eris.Wrap(err, "storage: create gcs client")
	}
	return &gcsStore{client: client, bucket: bucket}, nil
}

func (s *gcsStore) Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) error {
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = metadata

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return eris.Wrap(err, fmt.Sprintf("storage: write %s", key))
	}
	if err := w.Close(); err != nil {
		return eris.Wrap(err, fmt.Sprintf("storage: close writer %s", key))
	}
	return nil
}

func (s *gcsStore) Head(ctx context.Context, key string) (*ObjectInfo, error) {
	attrs, err := s.client.Bucket(s.bucket).Object(key).Attrs(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, eris.Wrap(err, fmt.Sprintf("storage: head %s", key))
	}
	return &ObjectInfo{
		Metadata: attrs.Metadata,
		Updated:  attrs.Updated,
	}, nil
}

func (s *gcsStore) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, eris.Wrap(err, fmt.Sprintf("storage: open %s", key))
	}
	defer r.Close() //nolint:errcheck

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("storage: read %s", key))
	}
	return data, nil
}
