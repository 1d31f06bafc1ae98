package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
)

const (
	dirPerms  = 0o750
	filePerms = 0o640
)

// FSBucket stores objects as files below root/<bucket>/<key>.
type FSBucket struct {
	root string
}

// NewFSBucket builds a filesystem bucket rooted at root.
func NewFSBucket(root string) *FSBucket {
	return &FSBucket{root: root}
}

func (b *FSBucket) bucketDir(bucket string) (string, error) {
	if bucket == "" || strings.ContainsAny(bucket, `/\`) || bucket == "." || bucket == ".." {
		return "", fmt.Errorf("invalid bucket name %q", bucket)
	}
	return filepath.Join(b.root, bucket), nil
}

func (b *FSBucket) objectPath(bucket, key string) (string, error) {
	dir, err := b.bucketDir(bucket)
	if err != nil {
		return "", err
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return "", fmt.Errorf("invalid object key %q", key)
		}
	}
	return filepath.Join(dir, filepath.FromSlash(key)), nil
}

// EnsureBucket creates the bucket directory if it does not exist.
func (b *FSBucket) EnsureBucket(_ context.Context, name string) error {
	dir, err := b.bucketDir(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, dirPerms); err != nil {
		return fmt.Errorf("%w: create bucket %s: %v", ErrUnavailable, name, err)
	}
	return nil
}

// Put writes body atomically; readers never observe a partially written object.
func (b *FSBucket) Put(_ context.Context, bucket, key string, body []byte, _ string) error {
	path, err := b.objectPath(bucket, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), dirPerms); err != nil {
		return fmt.Errorf("create object dir: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(body)); err != nil {
		return fmt.Errorf("write object %s: %w", key, err)
	}
	if err := os.Chmod(path, filePerms); err != nil {
		return fmt.Errorf("chmod object %s: %w", key, err)
	}
	return nil
}

// Get returns the object body.
func (b *FSBucket) Get(_ context.Context, bucket, key string) ([]byte, error) {
	path, err := b.objectPath(bucket, key)
	if err != nil {
		return nil, err
	}
	body, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return body, nil
}

// ListByPrefix walks the bucket and returns every object whose key starts with prefix.
func (b *FSBucket) ListByPrefix(_ context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	dir, err := b.bucketDir(bucket)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []ObjectInfo{}, nil
		}
		return nil, fmt.Errorf("%w: stat bucket %s: %v", ErrUnavailable, bucket, err)
	}

	objects := []ObjectInfo{}
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		objects = append(objects, ObjectInfo{Key: key, Size: info.Size(), LastModified: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list bucket %s: %w", bucket, err)
	}
	return objects, nil
}
