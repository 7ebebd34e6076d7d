// Package main provides the Lambda entry point for tile manifest composition.
//
// This Lambda consumes the manifest queue: each record carries the thumbnail
// key lists produced by the generator. It writes one image-tile playlist per
// resolution, merges references into the asset's master playlist, and
// publishes the invalidation message for the final stage.
//
// Records are processed with per-record error isolation: one bad record is
// logged and skipped, and the batch fails only when every record failed.
package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"

	"github.com/mediaops/trickplay-pipeline/internal/lambdaboot"
	"github.com/mediaops/trickplay-pipeline/internal/logging"
	"github.com/mediaops/trickplay-pipeline/internal/pipeline"
	"github.com/mediaops/trickplay-pipeline/internal/trickplay"
)

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
		Comp: trickplay.NewComposer(lambdaboot.InitS3(clients.Config), cfg),
		SQS:  lambdaboot.InitSQS(clients.Config),
		Cfg:  cfg,
	}

	lambdaboot.StartupLog("manifest-lambda", initStart).
		S3Bucket("mediaBucket", cfg.Bucket).
		Queue("invalidationQueue", cfg.InvalidationQueueURL).
		Log()
}

func handler(ctx context.Context, sqsEvent events.SQSEvent) error {
	if coldStart {
		coldStart = false
		log.Info().Str("function", "manifest-lambda").Msg("Cold start — first invocation")
	}
	if len(sqsEvent.Records) == 0 {
		log.Info().Msg("no SQS records to process")
		return nil
	}

	var lastErr error
	successCount := 0

	for _, record := range sqsEvent.Records {
		if err := processRecord(ctx, record); err != nil {
			log.Error().Err(err).Str("messageId", record.MessageId).Msg("failed to process SQS record")
			lastErr = err
		} else {
			successCount++
			log.Info().Str("messageId", record.MessageId).Msg("processed SQS record")
		}
	}

	if successCount == 0 && lastErr != nil {
		return lastErr
	}
	return nil
}

func processRecord(ctx context.Context, record events.SQSMessage) error {
	var msg trickplay.ManifestRequest
	if err := json.Unmarshal([]byte(record.Body), &msg); err != nil {
		return trickplay.E(trickplay.KindValidation, "parse manifest request", err)
	}

	log.Info().
		Str("mediaKey", msg.MediaKey).
		Str("requestId", msg.RequestID).
		Msg("Processing manifest update")

	result, err := pipe.HandleManifestRequest(ctx, msg)
	if err != nil {
		return err
	}

	log.Info().
		Str("mediaKey", msg.MediaKey).
		Interface("results", result.Results).
		Msg("Manifest update succeeded")
	return nil
}

func main() {
	lambda.Start(handler)
}
