// Package s3util provides shared S3 helper functions used by the pipeline
// stages: playlist download, thumbnail upload, and playlist read/rewrite.
package s3util

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// DownloadToFile downloads an S3 object to a specific local path.
func DownloadToFile(ctx context.Context, client GetObjectAPI, bucket, key, localPath string) error {
	log.Debug().Str("bucket", bucket).Str("key", key).Str("localPath", localPath).Msg("Downloading from S3")
	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket, Key: &key,
	})
	if err != nil {
		return fmt.Errorf("S3 GetObject: %w", err)
	}
	defer result.Body.Close()

	f, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, result.Body); err != nil {
		return fmt.Errorf("download: %w", err)
	}
	return nil
}

// GetObjectString reads an S3 object fully into a string, returning the
// object's ETag alongside the body. The ETag feeds conditional rewrites of
// the master playlist.
func GetObjectString(ctx context.Context, client GetObjectAPI, bucket, key string) (body, etag string, err error) {
	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket, Key: &key,
	})
	if err != nil {
		return "", "", fmt.Errorf("S3 GetObject: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return "", "", fmt.Errorf("read object body: %w", err)
	}
	if result.ETag != nil {
		etag = *result.ETag
	}
	return string(data), etag, nil
}
