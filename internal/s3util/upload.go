package s3util

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog/log"
)

// GetObjectAPI is the subset of the S3 client used for reads.
// *s3.Client satisfies it; tests provide fakes.
type GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// PutObjectAPI is the subset of the S3 client used for writes.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Client combines the read and write surfaces the pipeline needs.
type Client interface {
	GetObjectAPI
	PutObjectAPI
}

// UploadPublicFile uploads a local file to S3 with public-read ACL and the
// given content type. Thumbnails and playlists are served directly through
// the CDN, so they are uploaded world-readable.
func UploadPublicFile(ctx context.Context, client PutObjectAPI, bucket, key, localPath, contentType string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	log.Debug().Str("bucket", bucket).Str("key", key).Str("contentType", contentType).Msg("Uploading to S3")
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        f,
		ContentType: &contentType,
		ACL:         s3types.ObjectCannedACLPublicRead,
		Tagging:     ProjectTagging(),
	})
	if err != nil {
		return fmt.Errorf("S3 PutObject %s: %w", key, err)
	}
	return nil
}

// PutPublicString writes a string body to S3 with public-read ACL and the
// given content type. An optional ifMatch ETag turns the write into a
// conditional replace; S3 rejects it with PreconditionFailed when the object
// changed since the ETag was read.
func PutPublicString(ctx context.Context, client PutObjectAPI, bucket, key, body, contentType, ifMatch string) error {
	input := &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        strings.NewReader(body),
		ContentType: &contentType,
		ACL:         s3types.ObjectCannedACLPublicRead,
		Tagging:     ProjectTagging(),
	}
	if ifMatch != "" {
		input.IfMatch = &ifMatch
	}

	log.Debug().Str("bucket", bucket).Str("key", key).Bool("conditional", ifMatch != "").Msg("Putting object to S3")
	if _, err := client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("S3 PutObject %s: %w", key, err)
	}
	return nil
}
