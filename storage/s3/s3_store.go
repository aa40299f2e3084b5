// Package s3 implements a storage.Endpoint backed by Amazon S3 (or any
// S3-compatible API reachable through the AWS SDK).
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/fgilic/entwine/storage"
)

// Endpoint implements storage.Endpoint against an S3 bucket.
type Endpoint struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

// New returns an Endpoint writing into bucket under rootPrefix, using
// client's configured region and credentials. Puts larger than the
// uploader's part size are sent as multipart uploads automatically.
func New(client *s3.Client, bucket, rootPrefix string) *Endpoint {
	return &Endpoint{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		prefix:   rootPrefix,
	}
}

// NewFromEnv resolves credentials and region the standard AWS way
// (environment, shared config file, EC2/ECS role) and returns an
// Endpoint backed by the resulting client. This is the common case for
// a bare "s3://bucket/prefix" URL with no pre-built client to hand New.
func NewFromEnv(ctx context.Context, bucket, rootPrefix string) (*Endpoint, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("s3: load AWS config: %w", err)
	}
	return New(s3.NewFromConfig(cfg), bucket, rootPrefix), nil
}

func (e *Endpoint) key(name string) string {
	return path.Join(e.prefix, name)
}

func (e *Endpoint) Get(name string) ([]byte, error) {
	ctx := context.Background()
	out, err := e.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(e.bucket),
		Key:    aws.String(e.key(name)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (e *Endpoint) Put(name string, data []byte) error {
	ctx := context.Background()
	_, err := e.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(e.bucket),
		Key:    aws.String(e.key(name)),
		Body:   bytes.NewReader(data),
	})
	return err
}

func (e *Endpoint) TryGetSize(name string) (uint64, bool, error) {
	ctx := context.Background()
	head, err := e.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(e.bucket),
		Key:    aws.String(e.key(name)),
	})
	if err != nil {
		if isNotFound(err) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(aws.ToInt64(head.ContentLength)), true, nil
}

func (e *Endpoint) Resolve(name string) string {
	return fmt.Sprintf("s3://%s/%s", e.bucket, e.key(name))
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	return errors.As(err, &nsk)
}
