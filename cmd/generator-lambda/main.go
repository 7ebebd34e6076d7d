// Package main provides the Lambda entry point for trick-play thumbnail
// extraction.
//
// This Lambda is invoked by an EventBridge rule matching MediaConvert
// JOB_COMPLETE notifications. It samples frames from the transcoded HLS
// asset at two resolutions, uploads them to S3, and publishes a manifest
// request to SQS for the next stage.
//
// Container: Heavy (includes ffmpeg for frame sampling)
// Memory: 1024 MB
// Timeout: 10 minutes
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/rs/zerolog/log"

	"github.com/mediaops/trickplay-pipeline/internal/lambdaboot"
	"github.com/mediaops/trickplay-pipeline/internal/logging"
	"github.com/mediaops/trickplay-pipeline/internal/pipeline"
	"github.com/mediaops/trickplay-pipeline/internal/trickplay"
)

// Pipeline wiring initialized at cold start.
var pipe *pipeline.Pipeline

var coldStart = true

func init() {
	initStart := time.Now()
	logging.Init()

	clients := lambdaboot.InitAWS()
	cfg := trickplay.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	pipe = &pipeline.Pipeline{
		Gen: trickplay.NewGenerator(lambdaboot.InitS3(clients.Config), trickplay.NewFFmpegSampler(), cfg),
		SQS: lambdaboot.InitSQS(clients.Config),
		Cfg: cfg,
	}

	lambdaboot.StartupLog("generator-lambda", initStart).
		S3Bucket("mediaBucket", cfg.Bucket).
		Queue("manifestQueue", cfg.ManifestQueueURL).
		Config("interval", fmt.Sprintf("%d", cfg.Interval)).
		Config("format", cfg.Format).
		Log()
}

// GenerateResponse is returned to the invoking event rule. StatusCode
// mirrors the client/server failure split: validation failures report 400
// without triggering redelivery, infrastructure failures surface as Lambda
// errors.
type GenerateResponse struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	MediaKey   string `json:"mediaKey,omitempty"`
	SmallCount int    `json:"smallThumbnailsCount,omitempty"`
	BigCount   int    `json:"bigThumbnailsCount,omitempty"`
	Error      string `json:"error,omitempty"`
}

func handler(ctx context.Context, event events.CloudWatchEvent) (GenerateResponse, error) {
	if coldStart {
		coldStart = false
		log.Info().Str("function", "generator-lambda").Msg("Cold start — first invocation")
	}

	requestID := ""
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		requestID = lc.AwsRequestID
	}

	var detail trickplay.TranscodeCompleteDetail
	if err := json.Unmarshal(event.Detail, &detail); err != nil {
		log.Error().Err(err).Str("requestId", requestID).Msg("Malformed event detail")
		return GenerateResponse{StatusCode: 400, Error: "malformed event detail"}, nil
	}

	result, err := pipe.HandleTranscodeComplete(ctx, detail, requestID)
	if err != nil {
		if trickplay.IsClientError(err) {
			log.Error().Err(err).Str("requestId", requestID).Msg("Rejected transcode event")
			return GenerateResponse{StatusCode: 400, Error: err.Error()}, nil
		}
		log.Error().Err(err).Str("requestId", requestID).Str("mediaKey", detail.MediaKey).Msg("Thumbnail generation failed")
		return GenerateResponse{StatusCode: 500, Error: err.Error()}, err
	}

	log.Info().
		Str("mediaKey", result.MediaKey).
		Str("requestId", requestID).
		Msg("Trick play generation succeeded")

	return GenerateResponse{
		StatusCode: 200,
		Message:    "Trick play thumbnails generated successfully",
		MediaKey:   result.MediaKey,
		SmallCount: result.SmallCount,
		BigCount:   result.BigCount,
	}, nil
}

func main() {
	lambda.Start(handler)
}
