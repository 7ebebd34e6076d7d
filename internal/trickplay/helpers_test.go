package trickplay

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// testConfig returns a deterministic pipeline configuration matching the
// production defaults.
func testConfig() Config {
	return Config{
		Bucket:         "test-bucket",
		DistributionID: "E2TESTDIST",
		Interval:       10,
		Format:         "jpg",
		SmallWidth:     320,
		SmallHeight:    180,
		SmallBandwidth: 16460,
		BigWidth:       640,
		BigHeight:      360,
		BigBandwidth:   32920,
		ThumbsFolder:   "thumbs",
	}
}

// fakeS3 is an in-memory object store implementing the read/write surface
// the stages use. ETags are bumped on every write so conditional-write
// behavior can be exercised.
type fakeS3 struct {
	objects map[string]string
	etags   map[string]int
	puts    []string // keys in write order

	// onPut, when set, runs before each write and may reject it; it is
	// invoked with the key and the write's sequence number.
	onPut func(key string, seq int) error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string]string), etags: make(map[string]int)}
}

func (f *fakeS3) seed(key, body string) {
	f.objects[key] = body
	f.etags[key]++
}

func (f *fakeS3) etag(key string) string {
	return fmt.Sprintf("\"etag-%d\"", f.etags[key])
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[*params.Key]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "NoSuchKey", Message: *params.Key}
	}
	etag := f.etag(*params.Key)
	return &s3.GetObjectOutput{
		Body: io.NopCloser(strings.NewReader(body)),
		ETag: &etag,
	}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	key := *params.Key
	if f.onPut != nil {
		if err := f.onPut(key, len(f.puts)); err != nil {
			return nil, err
		}
	}
	if params.IfMatch != nil && *params.IfMatch != f.etag(key) {
		return nil, &smithy.GenericAPIError{Code: "PreconditionFailed", Message: key}
	}

	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.objects[key] = string(data)
	f.etags[key]++
	f.puts = append(f.puts, key)
	return &s3.PutObjectOutput{}, nil
}
