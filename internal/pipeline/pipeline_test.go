package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/smithy-go"

	"github.com/mediaops/trickplay-pipeline/internal/trickplay"
)

const masterPlaylist = "#EXTM3U\n" +
	"#EXT-X-VERSION:7\n" +
	"#EXT-X-STREAM-INF:BANDWIDTH=800000,RESOLUTION=1280x720\n" +
	"hls/720p.m3u8\n" +
	"#EXT-X-ENDLIST"

func testConfig() trickplay.Config {
	return trickplay.Config{
		Bucket:               "test-bucket",
		DistributionID:       "E2TESTDIST",
		Interval:             10,
		Format:               "jpg",
		SmallWidth:           320,
		SmallHeight:          180,
		SmallBandwidth:       16460,
		BigWidth:             640,
		BigHeight:            360,
		BigBandwidth:         32920,
		ThumbsFolder:         "thumbs",
		ManifestQueueURL:     "https://sqs.test/manifest",
		InvalidationQueueURL: "https://sqs.test/invalidation",
	}
}

// memS3 is a minimal in-memory object store for wiring whole-pipeline tests.
type memS3 struct {
	objects map[string]string
	etags   map[string]int
}

func newMemS3() *memS3 {
	return &memS3{objects: make(map[string]string), etags: make(map[string]int)}
}

func (m *memS3) seed(key, body string) {
	m.objects[key] = body
	m.etags[key]++
}

func (m *memS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := m.objects[*params.Key]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "NoSuchKey", Message: *params.Key}
	}
	etag := fmt.Sprintf("\"etag-%d\"", m.etags[*params.Key])
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body)), ETag: &etag}, nil
}

func (m *memS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	key := *params.Key
	if params.IfMatch != nil {
		current := fmt.Sprintf("\"etag-%d\"", m.etags[key])
		if *params.IfMatch != current {
			return nil, &smithy.GenericAPIError{Code: "PreconditionFailed", Message: key}
		}
	}
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	m.objects[key] = string(data)
	m.etags[key]++
	return &s3.PutObjectOutput{}, nil
}

type stubSampler struct{ frameCount int }

func (s stubSampler) Sample(ctx context.Context, req trickplay.SampleRequest) ([]string, error) {
	var frames []string
	for i := 1; i <= s.frameCount; i++ {
		path := filepath.Join(req.OutputDir, fmt.Sprintf(req.NamePattern, i))
		if err := os.WriteFile(path, []byte("frame"), 0o644); err != nil {
			return nil, err
		}
		frames = append(frames, path)
	}
	return frames, nil
}

type captureSQS struct {
	urls   []string
	bodies []string
}

func (c *captureSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	c.urls = append(c.urls, aws.ToString(params.QueueUrl))
	c.bodies = append(c.bodies, aws.ToString(params.MessageBody))
	return &sqs.SendMessageOutput{MessageId: aws.String(fmt.Sprintf("msg-%d", len(c.bodies)))}, nil
}

type stubCDN struct{ calls int }

func (s *stubCDN) CreateInvalidation(ctx context.Context, params *cloudfront.CreateInvalidationInput, optFns ...func(*cloudfront.Options)) (*cloudfront.CreateInvalidationOutput, error) {
	s.calls++
	return &cloudfront.CreateInvalidationOutput{
		Invalidation: &cftypes.Invalidation{Id: aws.String("INVEXAMPLE")},
	}, nil
}

func newTestPipeline(store *memS3, sqsClient *captureSQS, cdn *stubCDN) *Pipeline {
	cfg := testConfig()
	return &Pipeline{
		Gen:  trickplay.NewGenerator(store, stubSampler{frameCount: 2}, cfg),
		Comp: trickplay.NewComposer(store, cfg),
		Inv:  trickplay.NewInvalidator(cdn),
		SQS:  sqsClient,
		Cfg:  cfg,
	}
}

func transcodeDetail() trickplay.TranscodeCompleteDetail {
	return trickplay.TranscodeCompleteDetail{
		MediaKey:  "v1",
		MediaPath: "content/v1/",
		OutputGroupDetails: []trickplay.OutputGroupDetail{
			{OutputDetails: []trickplay.OutputDetail{
				{OutputFilePaths: []string{"s3://test-bucket/content/v1/play.m3u8"}},
			}},
		},
	}
}

func TestHandleTranscodeComplete(t *testing.T) {
	store := newMemS3()
	store.seed("content/v1/play.m3u8", masterPlaylist)
	sqsClient := &captureSQS{}
	p := newTestPipeline(store, sqsClient, &stubCDN{})

	result, err := p.HandleTranscodeComplete(context.Background(), transcodeDetail(), "req-1")
	if err != nil {
		t.Fatal(err)
	}
	if result.SmallCount != 2 || result.BigCount != 2 {
		t.Errorf("counts: %+v", result)
	}
	if result.MessageID == "" {
		t.Error("expected the manifest request to be published")
	}

	if len(sqsClient.urls) != 1 || sqsClient.urls[0] != "https://sqs.test/manifest" {
		t.Fatalf("manifest queue not used: %v", sqsClient.urls)
	}
	var msg trickplay.ManifestRequest
	if err := json.Unmarshal([]byte(sqsClient.bodies[0]), &msg); err != nil {
		t.Fatal(err)
	}
	if msg.SchemaVersion != trickplay.SchemaVersion || msg.MediaKey != "v1" || msg.RequestID != "req-1" {
		t.Errorf("manifest request fields wrong: %+v", msg)
	}
	wantSmall := []string{
		"content/v1/thumbs/v1_small.00001.jpg",
		"content/v1/thumbs/v1_small.00002.jpg",
	}
	if !reflect.DeepEqual(msg.SmallThumbnails, wantSmall) {
		t.Errorf("small thumbnails: got %v, want %v", msg.SmallThumbnails, wantSmall)
	}
}

func TestHandleTranscodeComplete_NoHLSURL(t *testing.T) {
	p := newTestPipeline(newMemS3(), &captureSQS{}, &stubCDN{})

	detail := transcodeDetail()
	detail.OutputGroupDetails = nil
	_, err := p.HandleTranscodeComplete(context.Background(), detail, "req-1")
	if !trickplay.IsClientError(err) {
		t.Errorf("missing HLS URL must be a client error, got %v", err)
	}
}

func TestHandleTranscodeComplete_NoQueueConfigured(t *testing.T) {
	store := newMemS3()
	store.seed("content/v1/play.m3u8", masterPlaylist)
	p := newTestPipeline(store, &captureSQS{}, &stubCDN{})
	p.SQS = nil

	result, err := p.HandleTranscodeComplete(context.Background(), transcodeDetail(), "req-1")
	if err != nil {
		t.Fatal(err)
	}
	if result.MessageID != "" {
		t.Error("no message id expected when publishing is skipped")
	}
}

func TestHandleManifestRequest(t *testing.T) {
	store := newMemS3()
	store.seed("content/v1/play.m3u8", masterPlaylist)
	sqsClient := &captureSQS{}
	p := newTestPipeline(store, sqsClient, &stubCDN{})

	result, err := p.HandleManifestRequest(context.Background(), trickplay.ManifestRequest{
		SchemaVersion:   trickplay.SchemaVersion,
		MediaKey:        "v1",
		MediaPath:       "content/v1/",
		HLSURL:          "s3://test-bucket/content/v1/play.m3u8",
		SmallThumbnails: []string{"content/v1/thumbs/v1_small.00001.jpg"},
		RequestID:       "req-2",
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := result.Results["small"]; !ok {
		t.Errorf("small resolution not processed: %+v", result.Results)
	}

	if len(sqsClient.urls) != 1 || sqsClient.urls[0] != "https://sqs.test/invalidation" {
		t.Fatalf("invalidation queue not used: %v", sqsClient.urls)
	}
	var inv trickplay.InvalidationMessage
	if err := json.Unmarshal([]byte(sqsClient.bodies[0]), &inv); err != nil {
		t.Fatal(err)
	}
	wantPaths := []string{
		"/content/v1/play.m3u8",
		"/content/v1/thumbs_320x180.m3u8",
		"/content/v1/thumbs_640x360.m3u8",
		"/content/v1/thumbs/*",
	}
	if !reflect.DeepEqual(inv.PathsToInvalidate, wantPaths) {
		t.Errorf("paths: got %v, want %v", inv.PathsToInvalidate, wantPaths)
	}
	if inv.RequestID != "req-2" {
		t.Errorf("request id must carry through, got %q", inv.RequestID)
	}
}

func TestHandleManifestRequest_ValidationError(t *testing.T) {
	p := newTestPipeline(newMemS3(), &captureSQS{}, &stubCDN{})
	_, err := p.HandleManifestRequest(context.Background(), trickplay.ManifestRequest{MediaKey: "v1"})
	if !trickplay.IsClientError(err) {
		t.Errorf("missing fields must be a client error, got %v", err)
	}
}

func TestHandleInvalidation(t *testing.T) {
	cdn := &stubCDN{}
	p := newTestPipeline(newMemS3(), &captureSQS{}, cdn)

	result, err := p.HandleInvalidation(context.Background(), trickplay.InvalidationMessage{
		SchemaVersion:     trickplay.SchemaVersion,
		MediaKey:          "v1",
		MediaPath:         "content/v1/",
		PathsToInvalidate: []string{"/content/v1/play.m3u8", "/content/v1/thumbs/*"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.InvalidationID != "INVEXAMPLE" || result.PathCount != 2 {
		t.Errorf("result: %+v", result)
	}
	if cdn.calls != 1 {
		t.Errorf("expected 1 invalidation call, got %d", cdn.calls)
	}
}

func TestHandleInvalidation_ValidationError(t *testing.T) {
	p := newTestPipeline(newMemS3(), &captureSQS{}, &stubCDN{})
	_, err := p.HandleInvalidation(context.Background(), trickplay.InvalidationMessage{
		SchemaVersion: "99",
		MediaKey:      "v1",
		MediaPath:     "content/v1/",
	})
	if !trickplay.IsClientError(err) {
		t.Errorf("unknown schemaVersion must be a client error, got %v", err)
	}
}

// Full chain: extraction output feeds composition, composition output feeds
// invalidation, exactly as the queues would deliver it.
func TestPipeline_EndToEnd(t *testing.T) {
	store := newMemS3()
	store.seed("content/v1/play.m3u8", masterPlaylist)
	sqsClient := &captureSQS{}
	cdn := &stubCDN{}
	p := newTestPipeline(store, sqsClient, cdn)
	ctx := context.Background()

	if _, err := p.HandleTranscodeComplete(ctx, transcodeDetail(), "req-e2e"); err != nil {
		t.Fatal(err)
	}
	var manifestMsg trickplay.ManifestRequest
	if err := json.Unmarshal([]byte(sqsClient.bodies[0]), &manifestMsg); err != nil {
		t.Fatal(err)
	}

	if _, err := p.HandleManifestRequest(ctx, manifestMsg); err != nil {
		t.Fatal(err)
	}
	var invMsg trickplay.InvalidationMessage
	if err := json.Unmarshal([]byte(sqsClient.bodies[1]), &invMsg); err != nil {
		t.Fatal(err)
	}

	result, err := p.HandleInvalidation(ctx, invMsg)
	if err != nil {
		t.Fatal(err)
	}
	if result.InvalidationID == "" || cdn.calls != 1 {
		t.Errorf("invalidation did not run: %+v", result)
	}

	master := store.objects["content/v1/play.m3u8"]
	for _, uri := range []string{"thumbs_320x180.m3u8", "thumbs_640x360.m3u8"} {
		if !strings.Contains(master, `URI="`+uri+`"`) {
			t.Errorf("master playlist missing %s reference:\n%s", uri, master)
		}
	}
}
