package upload

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Uploader struct {
	bucketName string
	key        string
	client     S3Client
}

// NewS3Uploader parses s3://bucket[/prefix].
func NewS3Uploader(dstPath string, cfg aws.Config) (*S3Uploader, error) {
	// Remove the "s3://" prefix if it exists.
	dstPath = strings.TrimPrefix(dstPath, "s3://")

	bucketName, key, _ := strings.Cut(dstPath, "/")
	if bucketName == "" {
		return nil, fmt.Errorf("invalid S3 path: %s", dstPath)
	}
	client := s3.NewFromConfig(cfg)

	return &S3Uploader{
		client:     client,
		bucketName: bucketName,
		key:        strings.Trim(key, "/"),
	}, nil
}

func (u *S3Uploader) Upload(ctx context.Context, archivePath string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucketName),
		Key:         aws.String(u.objectKey(archivePath)),
		Body:        f,
		ContentType: aws.String("application/zip"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload file to S3, %w", err)
	}

	return nil
}

func (u *S3Uploader) objectKey(archivePath string) string {
	if u.key == "" {
		return filepath.Base(archivePath)
	}

	return path.Join(u.key, filepath.Base(archivePath))
}
