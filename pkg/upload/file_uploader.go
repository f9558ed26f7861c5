package upload

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileUploader copies the archive into another directory.
type FileUploader struct {
	dir string
}

func NewFileUploader(dir string) *FileUploader {
	return &FileUploader{
		dir: dir,
	}
}

func (u *FileUploader) Upload(ctx context.Context, archivePath string) error {
	src, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer src.Close()

	if err = os.MkdirAll(u.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", u.dir, err)
	}
	dstPath := filepath.Join(u.dir, filepath.Base(archivePath))
	dst, err := os.Create(dstPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	if _, err = io.Copy(dst, &ctxReader{ctx: ctx, r: src}); err != nil {
		return fmt.Errorf("failed to copy %s to %s: %w", archivePath, dstPath, err)
	}

	return dst.Close()
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}

	return c.r.Read(p)
}
