// Package pipeline chains the three trick-play stages: each handler runs one
// stage against a validated message and publishes the next stage's message.
// The Lambda entrypoints, the local CLI, and the dev server all dispatch
// through this package, so stage semantics live in exactly one place.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mediaops/trickplay-pipeline/internal/metrics"
	"github.com/mediaops/trickplay-pipeline/internal/notify"
	"github.com/mediaops/trickplay-pipeline/internal/queue"
	"github.com/mediaops/trickplay-pipeline/internal/trickplay"
)

// Pipeline holds the wired stages and the optional downstream collaborators.
// SQS, Events, and Notifier may be nil; the corresponding side effects are
// skipped with a log line.
type Pipeline struct {
	Gen  *trickplay.Generator
	Comp *trickplay.Composer
	Inv  *trickplay.Invalidator

	SQS      queue.SendMessageAPI
	Events   trickplay.EventBridgeAPI
	Notifier *notify.SlackNotifier

	Cfg trickplay.Config
}

// GenerateResult summarises one extraction-stage invocation.
type GenerateResult struct {
	MediaKey   string `json:"mediaKey"`
	SmallCount int    `json:"smallThumbnailsCount"`
	BigCount   int    `json:"bigThumbnailsCount"`
	MessageID  string `json:"messageId,omitempty"`
}

// ComposeResult summarises one manifest-stage invocation.
type ComposeResult struct {
	MediaKey  string            `json:"mediaKey"`
	Results   map[string]string `json:"results"`
	MessageID string            `json:"messageId,omitempty"`
}

// InvalidateResult summarises one invalidation-stage invocation.
type InvalidateResult struct {
	MediaKey       string `json:"mediaKey"`
	InvalidationID string `json:"invalidationId,omitempty"`
	PathCount      int    `json:"pathCount"`
}

// HandleTranscodeComplete runs the extraction stage for one transcode
// completion event and publishes the manifest request for the next stage.
func (p *Pipeline) HandleTranscodeComplete(ctx context.Context, detail trickplay.TranscodeCompleteDetail, requestID string) (*GenerateResult, error) {
	start := time.Now()

	if err := detail.Validate(); err != nil {
		return nil, err
	}
	hlsURL, ok := detail.HLSURL()
	if !ok {
		return nil, trickplay.Errorf(trickplay.KindValidation, "locate hls url", "no HLS manifest found in event")
	}

	log.Info().
		Str("mediaKey", detail.MediaKey).
		Str("mediaPath", detail.MediaPath).
		Str("hlsUrl", hlsURL).
		Msg("Processing media")

	small, big, err := p.Gen.Generate(ctx, hlsURL, detail.MediaKey, p.Cfg.Bucket, detail.MediaPath)
	if err != nil {
		return nil, err
	}

	result := &GenerateResult{MediaKey: detail.MediaKey, SmallCount: len(small), BigCount: len(big)}

	msg := trickplay.ManifestRequest{
		SchemaVersion:   trickplay.SchemaVersion,
		MediaKey:        detail.MediaKey,
		MediaPath:       detail.MediaPath,
		HLSURL:          hlsURL,
		SmallThumbnails: small,
		BigThumbnails:   big,
		RequestID:       requestID,
	}
	if p.SQS != nil && p.Cfg.ManifestQueueURL != "" {
		messageID, err := queue.Publish(ctx, p.SQS, p.Cfg.ManifestQueueURL, msg)
		if err != nil {
			return nil, trickplay.E(trickplay.KindStorage, "publish manifest request", err)
		}
		result.MessageID = messageID
	} else {
		log.Warn().Str("mediaKey", detail.MediaKey).Msg("Manifest queue not configured — pipeline ends here")
	}

	metrics.ForStage("generate").
		Metric("SmallThumbnails", float64(len(small)), metrics.UnitCount).
		Metric("BigThumbnails", float64(len(big)), metrics.UnitCount).
		Duration("StageDuration", time.Since(start)).
		Property("mediaKey", detail.MediaKey).
		Flush()

	return result, nil
}

// HandleManifestRequest runs the manifest stage for one extractor message
// and publishes the invalidation message for the final stage.
func (p *Pipeline) HandleManifestRequest(ctx context.Context, msg trickplay.ManifestRequest) (*ComposeResult, error) {
	start := time.Now()

	if err := msg.Validate(); err != nil {
		return nil, err
	}

	results, err := p.Comp.Compose(ctx, p.Cfg.Bucket, msg.MediaPath, msg.HLSURL, msg.SmallThumbnails, msg.BigThumbnails)
	if err != nil {
		return nil, err
	}

	result := &ComposeResult{MediaKey: msg.MediaKey, Results: results}

	inv := trickplay.InvalidationMessage{
		SchemaVersion:     trickplay.SchemaVersion,
		MediaKey:          msg.MediaKey,
		MediaPath:         msg.MediaPath,
		PathsToInvalidate: trickplay.InvalidationPaths(msg.MediaPath, msg.HLSURL, p.Cfg),
		RequestID:         msg.RequestID,
	}
	if p.SQS != nil && p.Cfg.InvalidationQueueURL != "" {
		messageID, err := queue.Publish(ctx, p.SQS, p.Cfg.InvalidationQueueURL, inv)
		if err != nil {
			return nil, trickplay.E(trickplay.KindStorage, "publish invalidation message", err)
		}
		result.MessageID = messageID
	} else {
		log.Warn().Str("mediaKey", msg.MediaKey).Msg("Invalidation queue not configured — pipeline ends here")
	}

	metrics.ForStage("compose").
		Metric("ResolutionsProcessed", float64(len(results)), metrics.UnitCount).
		Duration("StageDuration", time.Since(start)).
		Property("mediaKey", msg.MediaKey).
		Flush()

	return result, nil
}

// HandleInvalidation runs the final stage for one composer message:
// invalidate the CDN paths, then fire the optional completion notifications.
func (p *Pipeline) HandleInvalidation(ctx context.Context, msg trickplay.InvalidationMessage) (*InvalidateResult, error) {
	start := time.Now()

	if err := msg.Validate(); err != nil {
		return nil, err
	}

	invalidationID, err := p.Inv.Invalidate(ctx, msg.PathsToInvalidate, p.Cfg.DistributionID)
	if err != nil {
		return nil, err
	}

	// Completion side effects are best-effort: the invalidation already
	// succeeded and redelivering the message would duplicate it.
	if p.Notifier.Enabled() && p.Cfg.SlackEnabled {
		text := fmt.Sprintf("Trick play published for %s (%d paths invalidated, invalidation %s)",
			msg.MediaKey, len(msg.PathsToInvalidate), invalidationID)
		if err := p.Notifier.Notify(ctx, text); err != nil {
			log.Warn().Err(err).Str("mediaKey", msg.MediaKey).Msg("Slack notification failed")
		}
	}
	if p.Events != nil && p.Cfg.EventBusName != "" {
		event := trickplay.CompletionEvent{
			MediaKey:       msg.MediaKey,
			MediaPath:      msg.MediaPath,
			InvalidationID: invalidationID,
			PathCount:      len(msg.PathsToInvalidate),
			RequestID:      msg.RequestID,
		}
		if err := trickplay.EmitCompletion(ctx, p.Events, p.Cfg.EventBusName, event); err != nil {
			log.Warn().Err(err).Str("mediaKey", msg.MediaKey).Msg("Completion event emission failed")
		}
	}

	metrics.ForStage("invalidate").
		Metric("InvalidationPaths", float64(len(msg.PathsToInvalidate)), metrics.UnitCount).
		Duration("StageDuration", time.Since(start)).
		Property("mediaKey", msg.MediaKey).
		Flush()

	return &InvalidateResult{
		MediaKey:       msg.MediaKey,
		InvalidationID: invalidationID,
		PathCount:      len(msg.PathsToInvalidate),
	}, nil
}
