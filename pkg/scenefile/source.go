package scenefile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var (
	// ErrNotFound is returned by a Source when no object has the given name.
	ErrNotFound = errors.New("scene document not found")
	// ErrInvalidName rejects names that are not clean slash-separated paths.
	ErrInvalidName = errors.New("invalid document name")
)

// Source opens raw scene documents by slash-separated name.
type Source interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// DirSource reads documents from a local directory.
type DirSource struct {
	Root string
}

func (d DirSource) Open(_ context.Context, name string) (io.ReadCloser, error) {
	if !fs.ValidPath(name) {
		return nil, fmt.Errorf("%w %q", ErrInvalidName, name)
	}
	f, err := os.Open(filepath.Join(d.Root, filepath.FromSlash(name)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return f, err
}

type MinioOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	// Prefix is prepended to every object key.
	Prefix string
}

// MinioSource reads documents from an S3-compatible bucket.
type MinioSource struct {
	client *minio.Client
	bucket string
	prefix string
}

func NewMinioSource(opts MinioOptions) (*MinioSource, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return &MinioSource{client: client, bucket: opts.Bucket, prefix: opts.Prefix}, nil
}

func (m *MinioSource) key(name string) string {
	return path.Join(m.prefix, name)
}

func (m *MinioSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if !fs.ValidPath(name) {
		return nil, fmt.Errorf("%w %q", ErrInvalidName, name)
	}
	obj, err := m.client.GetObject(ctx, m.bucket, m.key(name), minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	// GetObject is lazy; Stat surfaces a missing key.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, m.bucket, m.key(name))
		}
		return nil, err
	}
	return obj, nil
}
