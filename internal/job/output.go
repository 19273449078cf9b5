package job

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"

	"github.com/minio/minio-go/v7"

	"github.com/suenchunyu/wordcount/internal/model"
)

const (
	temporaryDir = "_temporary"
	successFile  = "_SUCCESS"
)

var ErrOutputExists = errors.New("output location already exists")

func partName(partition int) string {
	return fmt.Sprintf("part-r-%05d", partition)
}

// checkOutput fails when the output location is already taken.
func checkOutput(output string) error {
	if _, err := os.Stat(output); err == nil {
		return model.NewError(model.KindConfiguration, "check", output, ErrOutputExists)
	} else if !errors.Is(err, os.ErrNotExist) {
		return model.NewError(model.KindConfiguration, "check", output, err)
	}
	return nil
}

// committer writes reducer parts under output/_temporary and moves them
// into place once every part is written.
type committer struct {
	output string
	tmp    string
}

func newCommitter(output string) (*committer, error) {
	tmp := filepath.Join(output, temporaryDir)
	if err := os.MkdirAll(tmp, 0o755); err != nil {
		return nil, model.NewError(model.KindOutput, "mkdir", tmp, err)
	}
	return &committer{output: output, tmp: tmp}, nil
}

// writePart writes one word<TAB>count line per entry.
func (c *committer) writePart(partition int, counts []model.AggregatedCount) error {
	name := filepath.Join(c.tmp, partName(partition))
	fp, err := os.Create(name)
	if err != nil {
		return model.NewError(model.KindOutput, "create", name, err)
	}

	w := bufio.NewWriter(fp)
	for _, count := range counts {
		if _, err := fmt.Fprintf(w, "%s\t%d\n", count.Key, count.Value); err != nil {
			_ = fp.Close()
			return model.NewError(model.KindOutput, "write", name, err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = fp.Close()
		return model.NewError(model.KindOutput, "flush", name, err)
	}
	if err := fp.Close(); err != nil {
		return model.NewError(model.KindOutput, "close", name, err)
	}
	return nil
}

// commit moves the parts into the output directory and marks success.
func (c *committer) commit(partitions int) ([]string, error) {
	parts := make([]string, 0, partitions)
	for p := 0; p < partitions; p++ {
		from := filepath.Join(c.tmp, partName(p))
		to := filepath.Join(c.output, partName(p))
		if err := os.Rename(from, to); err != nil {
			return nil, model.NewError(model.KindOutput, "rename", from, err)
		}
		parts = append(parts, to)
	}
	if err := os.RemoveAll(c.tmp); err != nil {
		return nil, model.NewError(model.KindOutput, "cleanup", c.tmp, err)
	}
	marker := filepath.Join(c.output, successFile)
	if err := os.WriteFile(marker, nil, 0o644); err != nil {
		return nil, model.NewError(model.KindOutput, "mark", marker, err)
	}
	return parts, nil
}

// abort removes everything written so far.
func (c *committer) abort() {
	if err := os.RemoveAll(c.output); err != nil {
		log.Printf("cannot clean output %s: %v\n", c.output, err)
	}
}

// Uploader copies the committed parts somewhere else.
type Uploader interface {
	Upload(ctx context.Context, files []string) error
}

// Putter uploads a local file. *minio.Client satisfies it.
type Putter interface {
	FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// S3Uploader puts every part into bucket under prefix.
type S3Uploader struct {
	client Putter
	bucket string
	prefix string
}

func NewS3Uploader(client Putter, bucket, prefix string) *S3Uploader {
	return &S3Uploader{client: client, bucket: bucket, prefix: prefix}
}

func (u *S3Uploader) Upload(ctx context.Context, files []string) error {
	for _, file := range files {
		object := path.Join(u.prefix, filepath.Base(file))
		info, err := u.client.FPutObject(ctx, u.bucket, object, file, minio.PutObjectOptions{
			ContentType: "text/plain",
		})
		if err != nil {
			return model.NewError(model.KindOutput, "upload", file, err)
		}
		log.Printf("uploaded %s to s3://%s/%s (%d bytes)\n", file, u.bucket, object, info.Size)
	}
	return nil
}
