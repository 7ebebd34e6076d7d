// Package main provides the Lambda entry point for CDN cache invalidation.
//
// This Lambda consumes the invalidation queue: each record carries the CDN
// path set committed by the manifest stage. It submits one CloudFront
// invalidation batch per record and fires the optional completion
// notifications (Slack, EventBridge).
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
	"github.com/mediaops/trickplay-pipeline/internal/notify"
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
	cfg.DistributionID = lambdaboot.LoadDistributionID(clients.SSM)

	pipe = &pipeline.Pipeline{
		Inv:      trickplay.NewInvalidator(lambdaboot.InitCloudFront(clients.Config)),
		Events:   lambdaboot.InitEventBridge(clients.Config),
		Notifier: notify.NewSlackNotifier(cfg.SlackWebhookURL),
		Cfg:      cfg,
	}

	lambdaboot.StartupLog("invalidator-lambda", initStart).
		Distribution("cdn", cfg.DistributionID).
		Feature("slack", cfg.SlackEnabled).
		Feature("completionEvent", cfg.EventBusName != "").
		Log()
}

func handler(ctx context.Context, sqsEvent events.SQSEvent) error {
	if coldStart {
		coldStart = false
		log.Info().Str("function", "invalidator-lambda").Msg("Cold start — first invocation")
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
	var msg trickplay.InvalidationMessage
	if err := json.Unmarshal([]byte(record.Body), &msg); err != nil {
		return trickplay.E(trickplay.KindValidation, "parse invalidation message", err)
	}

	log.Info().
		Str("mediaKey", msg.MediaKey).
		Int("pathCount", len(msg.PathsToInvalidate)).
		Str("requestId", msg.RequestID).
		Msg("Processing cache invalidation")

	result, err := pipe.HandleInvalidation(ctx, msg)
	if err != nil {
		return err
	}

	log.Info().
		Str("mediaKey", msg.MediaKey).
		Str("invalidationId", result.InvalidationID).
		Msg("Cache invalidation succeeded")
	return nil
}

func main() {
	lambda.Start(handler)
}
