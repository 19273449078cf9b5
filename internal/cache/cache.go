// Package cache makes skip-pattern files available locally before any
// mapper instance starts. References are either local paths or
// s3://bucket/key objects fetched through MinIO.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/suenchunyu/wordcount/internal/config"
	"github.com/suenchunyu/wordcount/internal/model"
)

const schemeS3 = "s3://"

var ErrInvalidReference = errors.New("invalid s3 reference, want s3://bucket/key")

// Object is a parsed s3://bucket/key reference.
type Object struct {
	Bucket string
	Key    string
}

func (o Object) String() string {
	return schemeS3 + o.Bucket + "/" + o.Key
}

// ParseReference reports whether ref names an object and parses it.
func ParseReference(ref string) (Object, bool, error) {
	if !strings.HasPrefix(ref, schemeS3) {
		return Object{}, false, nil
	}
	bucket, key, ok := strings.Cut(strings.TrimPrefix(ref, schemeS3), "/")
	if !ok || bucket == "" || key == "" {
		return Object{}, true, ErrInvalidReference
	}
	return Object{Bucket: bucket, Key: key}, true, nil
}

// Getter downloads an object to a local file. *minio.Client satisfies it.
type Getter interface {
	FGetObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.GetObjectOptions) error
}

// NewClient builds the MinIO client described by the cache section.
func NewClient(c *config.Config) (*minio.Client, error) {
	return minio.New(c.Cache.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.Cache.AccessKey, c.Cache.AccessSecret, ""),
		Secure: c.Cache.UseSSL,
	})
}

// Fetcher resolves skip-file references to local paths.
type Fetcher struct {
	dir     string
	client  Getter
	timeout time.Duration
}

// NewFetcher stores downloaded objects under dir. client may be nil when
// every reference is a local path.
func NewFetcher(dir string, client Getter) *Fetcher {
	return &Fetcher{
		dir:     dir,
		client:  client,
		timeout: 30 * time.Second,
	}
}

// Resolve returns the local path of every reference it could make
// available, in reference order. A reference that cannot be resolved is
// logged and left out.
func (f *Fetcher) Resolve(ctx context.Context, refs []string) []string {
	paths := make([]string, 0, len(refs))
	for i, ref := range refs {
		path, err := f.resolve(ctx, i, ref)
		if err != nil {
			log.Printf("shared cache: %v\n", err)
			continue
		}
		paths = append(paths, path)
	}
	return paths
}

func (f *Fetcher) resolve(ctx context.Context, seq int, ref string) (string, error) {
	obj, remote, err := ParseReference(ref)
	if err != nil {
		return "", model.NewError(model.KindCacheRead, "parse", ref, err)
	}

	if !remote {
		if _, err := os.Stat(ref); err != nil {
			return "", model.NewError(model.KindCacheRead, "stat", ref, err)
		}
		return ref, nil
	}

	if f.client == nil {
		return "", model.NewError(model.KindCacheRead, "fetch", ref, errors.New("no object store configured"))
	}

	// the sequence number keeps same-named keys from different buckets apart
	path := filepath.Join(f.dir, fmt.Sprintf("%03d-%s", seq, filepath.Base(obj.Key)))

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	if err := f.client.FGetObject(ctx, obj.Bucket, obj.Key, path, minio.GetObjectOptions{}); err != nil {
		return "", model.NewError(model.KindCacheRead, "fetch", ref, err)
	}
	log.Printf("shared cache: %s -> %s\n", ref, path)
	return path, nil
}
