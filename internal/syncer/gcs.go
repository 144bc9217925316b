package syncer

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCSStore implements ObjectStore on a Google Cloud Storage bucket.
// Credentials come from the client library's default chain.
type GCSStore struct {
	Bucket string
	client *storage.Client
}

// NewGCSStore connects a store to the named bucket
func NewGCSStore(ctx context.Context, bucket string) (*GCSStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("no bucket name given")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}
	return &GCSStore{
		Bucket: bucket,
		client: client,
	}, nil
}

// Upload writes data to an object in the bucket
func (gs *GCSStore) Upload(ctx context.Context, objectName string, data io.Reader, contentType string) error {
	writer := gs.client.Bucket(gs.Bucket).Object(objectName).NewWriter(ctx)
	writer.ContentType = contentType

	if _, err := io.Copy(writer, data); err != nil {
		writer.Close()
		return fmt.Errorf("writing object %s: %w", objectName, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing object %s: %w", objectName, err)
	}
	return nil
}

// Download opens an object for reading. The caller closes the reader.
func (gs *GCSStore) Download(ctx context.Context, objectName string) (io.ReadCloser, error) {
	reader, err := gs.client.Bucket(gs.Bucket).Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening object %s: %w", objectName, err)
	}
	return reader, nil
}

// ListObjects calls fn for every object under the prefix
func (gs *GCSStore) ListObjects(ctx context.Context, prefix string, fn func(object ObjectInfo) error) error {
	objects := gs.client.Bucket(gs.Bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := objects.Next()
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			return fmt.Errorf("listing prefix %s: %w", prefix, err)
		}
		if err := fn(ObjectInfo{Name: attrs.Name, Size: attrs.Size}); err != nil {
			return err
		}
	}
}

// Close releases the underlying client
func (gs *GCSStore) Close() error {
	return gs.client.Close()
}
