package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/spec-kit/fleet-helpdesk/internal/config"
)

// S3Bucket talks to any S3 compatible object store (MinIO, Supabase storage, AWS).
type S3Bucket struct {
	client      *minio.Client
	region      string
	listObjects func(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

// NewS3Bucket creates a client from storage configuration. No request is made until first use.
func NewS3Bucket(cfg config.StorageConfig) (*S3Bucket, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	return &S3Bucket{client: client, region: cfg.S3Region, listObjects: client.ListObjects}, nil
}

// EnsureBucket creates the bucket when absent.
func (b *S3Bucket) EnsureBucket(ctx context.Context, name string) error {
	exists, err := b.client.BucketExists(ctx, name)
	if err != nil {
		return fmt.Errorf("%w: bucket exists %s: %v", ErrUnavailable, name, err)
	}
	if exists {
		return nil
	}
	if err := b.client.MakeBucket(ctx, name, minio.MakeBucketOptions{Region: b.region}); err != nil {
		// another writer may have created it between the two calls
		if resp := minio.ToErrorResponse(err); resp.Code == "BucketAlreadyOwnedByYou" || resp.Code == "BucketAlreadyExists" {
			return nil
		}
		return classify(fmt.Errorf("make bucket %s: %w", name, err))
	}
	return nil
}

// Put uploads body under key.
func (b *S3Bucket) Put(ctx context.Context, bucket, key string, body []byte, contentType string) error {
	_, err := b.client.PutObject(ctx, bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return classify(fmt.Errorf("put object %s: %w", key, err))
	}
	return nil
}

// Get downloads the object body.
func (b *S3Bucket) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := b.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, classify(fmt.Errorf("get object %s: %w", key, err))
	}
	defer obj.Close()

	body, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrObjectNotFound
		}
		return nil, classify(fmt.Errorf("read object %s: %w", key, err))
	}
	return body, nil
}

// ListByPrefix lists every object below prefix, recursively.
func (b *S3Bucket) ListByPrefix(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	// Returning mid-listing must stop minio's lister goroutine.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	objects := []ObjectInfo{}
	for obj := range b.listObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			if minio.ToErrorResponse(obj.Err).Code == "NoSuchBucket" {
				return []ObjectInfo{}, nil
			}
			return nil, classify(fmt.Errorf("list objects %s: %w", prefix, obj.Err))
		}
		objects = append(objects, ObjectInfo{Key: obj.Key, Size: obj.Size, LastModified: obj.LastModified})
	}
	return objects, nil
}

// classify marks transport level failures as ErrUnavailable so callers can answer 503.
func classify(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp := minio.ToErrorResponse(errors.Unwrap(err)); resp.StatusCode == http.StatusServiceUnavailable {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}
