package upload

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/block/bcpzip/pkg/destinations"
	"github.com/stretchr/testify/require"
)

func mockConfigLoader(_ context.Context, _ ...func(*config.LoadOptions) error) (aws.Config, error) {
	return aws.Config{}, nil
}

func TestNewUploader(t *testing.T) {
	uploader, err := NewUploader(context.TODO(), destinations.S3.String(), "s3://testBucket/testDir/testSubDir/", mockConfigLoader)
	require.NoError(t, err)
	s3uploader, ok := uploader.(*S3Uploader)
	require.True(t, ok)
	require.NotNil(t, s3uploader)
	require.Equal(t, "testBucket", s3uploader.bucketName)
	require.Equal(t, "testDir/testSubDir", s3uploader.key)
	require.Equal(t, "testDir/testSubDir/nightly.zip", s3uploader.objectKey("/tmp/out/nightly.zip"))

	uploader, err = NewUploader(context.TODO(), destinations.Dir.String(), "backups", mockConfigLoader)
	require.NoError(t, err)
	fileUploader, ok := uploader.(*FileUploader)
	require.True(t, ok)
	require.NotNil(t, fileUploader)

	_, err = NewUploader(context.TODO(), destinations.Local.String(), "", mockConfigLoader)
	require.ErrorContains(t, err, "unsupported destination type: local")

	_, err = NewUploader(context.TODO(), "table", "", mockConfigLoader)
	require.ErrorContains(t, err, "unknown destination type table")

	_, err = NewUploader(context.TODO(), destinations.S3.String(), "s3://", mockConfigLoader)
	require.ErrorContains(t, err, "invalid S3 path")
}

func TestFileUploader_Upload(t *testing.T) {
	archivePath := filepath.Join(t.TempDir(), "nightly.zip")
	require.NoError(t, os.WriteFile(archivePath, []byte("zip bytes"), 0o644))
	dst := filepath.Join(t.TempDir(), "copies", "daily")

	require.NoError(t, NewFileUploader(dst).Upload(context.Background(), archivePath))

	data, err := os.ReadFile(filepath.Join(dst, "nightly.zip"))
	require.NoError(t, err)
	require.Equal(t, "zip bytes", string(data))
	// The source archive stays in place.
	require.FileExists(t, archivePath)
}

func TestFileUploader_UploadMissingArchive(t *testing.T) {
	err := NewFileUploader(t.TempDir()).Upload(context.Background(), filepath.Join(t.TempDir(), "missing.zip"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestDstTypeParse(t *testing.T) {
	for _, d := range []destinations.DstType{destinations.Local, destinations.Dir, destinations.S3} {
		parsed, err := destinations.Parse(d.String())
		require.NoError(t, err)
		require.Equal(t, d, parsed)
	}
	_, err := destinations.Parse("table")
	require.Error(t, err)
}
