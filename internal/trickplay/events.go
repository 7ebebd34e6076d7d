package trickplay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	eventbridgetypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/rs/zerolog/log"
)

// Completion event identity on the bus.
const (
	eventSource         = "trickplay-pipeline"
	completedDetailType = "TrickPlayCompleted"
)

// EventBridgeAPI is the subset of the EventBridge client used for the
// completion event.
type EventBridgeAPI interface {
	PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// CompletionEvent announces that an asset's trick-play assets are live and
// its CDN paths have been submitted for invalidation.
type CompletionEvent struct {
	MediaKey       string `json:"mediaKey"`
	MediaPath      string `json:"mediaPath"`
	InvalidationID string `json:"invalidationId,omitempty"`
	PathCount      int    `json:"pathCount"`
	RequestID      string `json:"requestId,omitempty"`
}

// EmitCompletion publishes a TrickPlayCompleted event to the given bus.
func EmitCompletion(ctx context.Context, client EventBridgeAPI, busName string, event CompletionEvent) error {
	detail, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal CompletionEvent: %w", err)
	}

	input := &eventbridge.PutEventsInput{
		Entries: []eventbridgetypes.PutEventsRequestEntry{
			{
				Source:       aws.String(eventSource),
				DetailType:   aws.String(completedDetailType),
				Detail:       aws.String(string(detail)),
				EventBusName: aws.String(busName),
			},
		},
	}

	result, err := client.PutEvents(ctx, input)
	if err != nil {
		log.Error().Err(err).Str("mediaKey", event.MediaKey).Msg("EventBridge PutEvents failed")
		return fmt.Errorf("PutEvents: %w", err)
	}

	if result.FailedEntryCount > 0 {
		for i, entry := range result.Entries {
			if entry.ErrorCode != nil || entry.ErrorMessage != nil {
				log.Error().
					Int("index", i).
					Str("errorCode", aws.ToString(entry.ErrorCode)).
					Str("errorMessage", aws.ToString(entry.ErrorMessage)).
					Str("mediaKey", event.MediaKey).
					Msg("EventBridge PutEvents entry failed")
				return fmt.Errorf("PutEvents entry %d failed: %s - %s", i, aws.ToString(entry.ErrorCode), aws.ToString(entry.ErrorMessage))
			}
		}
	}

	log.Debug().Str("mediaKey", event.MediaKey).Str("invalidationId", event.InvalidationID).Msg("Completion event emitted to EventBridge")
	return nil
}
