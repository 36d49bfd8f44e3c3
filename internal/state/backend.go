// Package state persists the per-generation record between runs and plans
// the cleanup of the previous generation.
package state

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// ErrNotExist is returned by backends when the named record is absent.
var ErrNotExist = errors.New("state: record does not exist")

// Backend abstracts where generation records live. The local backend is the
// default; the GCS backend keeps state across ephemeral cron containers.
type Backend interface {
	Read(ctx context.Context, name string) ([]byte, error)
	// Write must be durable before returning.
	Write(ctx context.Context, name string, data []byte) error
	// Rename promotes one record name to another, replacing any existing
	// target. Missing sources are not an error.
	Rename(ctx context.Context, oldName, newName string) error
}

// LocalBackend stores records as files in a directory. Writes go through a
// temp file and an atomic rename.
type LocalBackend struct {
	dir string
}

func NewLocalBackend(dir string) (*LocalBackend, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return &LocalBackend{dir: dir}, nil
}

func (b *LocalBackend) Read(_ context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(b.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state %s: %w", name, err)
	}
	return data, nil
}

func (b *LocalBackend) Write(_ context.Context, name string, data []byte) error {
	target := filepath.Join(b.dir, name)
	tmp, err := os.CreateTemp(b.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write state %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync state %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp state file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to commit state %s: %w", name, err)
	}
	return nil
}

func (b *LocalBackend) Rename(_ context.Context, oldName, newName string) error {
	err := os.Rename(filepath.Join(b.dir, oldName), filepath.Join(b.dir, newName))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to rename state %s to %s: %w", oldName, newName, err)
	}
	return nil
}

// GCSBackend stores records as objects in a bucket.
type GCSBackend struct {
	client *storage.Client
	bucket string
	prefix string
}

func NewGCSBackend(ctx context.Context, bucket, prefix, credentialsFile string) (*GCSBackend, error) {
	var client *storage.Client
	var err error
	if credentialsFile != "" {
		client, err = storage.NewClient(ctx, option.WithCredentialsFile(credentialsFile))
	} else {
		client, err = storage.NewClient(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &GCSBackend{client: client, bucket: bucket, prefix: prefix}, nil
}

func (b *GCSBackend) object(name string) *storage.ObjectHandle {
	if b.prefix != "" {
		name = b.prefix + "/" + name
	}
	return b.client.Bucket(b.bucket).Object(name)
}

func (b *GCSBackend) Read(ctx context.Context, name string) ([]byte, error) {
	reader, err := b.object(name).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open state object %s: %w", name, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read state object %s: %w", name, err)
	}
	return data, nil
}

func (b *GCSBackend) Write(ctx context.Context, name string, data []byte) error {
	writer := b.object(name).NewWriter(ctx)
	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write state object %s: %w", name, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to commit state object %s: %w", name, err)
	}
	return nil
}

func (b *GCSBackend) Rename(ctx context.Context, oldName, newName string) error {
	src := b.object(oldName)
	if _, err := src.Attrs(ctx); errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	} else if err != nil {
		return fmt.Errorf("failed to stat state object %s: %w", oldName, err)
	}

	if _, err := b.object(newName).CopierFrom(src).Run(ctx); err != nil {
		return fmt.Errorf("failed to copy state object %s: %w", oldName, err)
	}
	if err := src.Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete state object %s: %w", oldName, err)
	}
	return nil
}
