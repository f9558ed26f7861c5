package upload

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/block/bcpzip/pkg/destinations"
)

// Uploader publishes a finished archive file.
type Uploader interface {
	Upload(ctx context.Context, archivePath string) error
}

type ConfigLoader func(ctx context.Context, optFns ...func(*config.LoadOptions) error) (aws.Config, error)

// DefaultConfigLoader loads the AWS config from the environment.
func DefaultConfigLoader(ctx context.Context, optFns ...func(*config.LoadOptions) error) (aws.Config, error) {
	return config.LoadDefaultConfig(ctx, optFns...)
}

// NewUploader returns the uploader for a publishing destination type. The local
// type needs no uploader and is rejected here.
func NewUploader(ctx context.Context, tp string, dstPath string, loader ConfigLoader) (Uploader, error) {
	dst, err := destinations.Parse(tp)
	if err != nil {
		return nil, err
	}
	switch dst {
	case destinations.Dir:
		return NewFileUploader(dstPath), nil
	case destinations.S3:
		cfg, err := loader(ctx)
		if err != nil {
			return nil, fmt.Errorf("unable to load AWS SDK config, %w", err)
		}
		s3up, err := NewS3Uploader(dstPath, cfg)
		if err != nil {
			return nil, err
		}

		return s3up, nil
	}

	return nil, fmt.Errorf("unsupported destination type: %s", dst)
}
