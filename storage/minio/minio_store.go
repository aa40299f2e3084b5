// Package minio implements a storage.Endpoint backed by MinIO or any
// other S3-compatible object store reached through minio-go.
package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"github.com/minio/minio-go/v7"

	"github.com/fgilic/entwine/storage"
)

// Endpoint implements storage.Endpoint against a MinIO/S3-compatible
// bucket.
type Endpoint struct {
	client *minio.Client
	bucket string
	prefix string
}

// New returns an Endpoint writing into bucket under rootPrefix.
func New(client *minio.Client, bucket, rootPrefix string) *Endpoint {
	return &Endpoint{client: client, bucket: bucket, prefix: rootPrefix}
}

func (e *Endpoint) key(name string) string {
	return path.Join(e.prefix, name)
}

func (e *Endpoint) Get(name string) ([]byte, error) {
	ctx := context.Background()
	obj, err := e.client.GetObject(ctx, e.bucket, e.key(name), minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if isNotFound(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (e *Endpoint) Put(name string, data []byte) error {
	ctx := context.Background()
	_, err := e.client.PutObject(ctx, e.bucket, e.key(name), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})
	return err
}

func (e *Endpoint) TryGetSize(name string) (uint64, bool, error) {
	ctx := context.Background()
	info, err := e.client.StatObject(ctx, e.bucket, e.key(name), minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(info.Size), true, nil
}

func (e *Endpoint) Resolve(name string) string {
	return fmt.Sprintf("minio://%s/%s", e.bucket, e.key(name))
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.Code == "NotFound"
}
