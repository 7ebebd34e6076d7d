// Package queue publishes stage-boundary messages to SQS as JSON documents.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/rs/zerolog/log"
)

// SendMessageAPI is the subset of the SQS client used for publishing.
// *sqs.Client satisfies it; tests provide fakes.
type SendMessageAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Publish marshals payload to JSON and sends it to the given queue,
// returning the SQS message id.
func Publish(ctx context.Context, client SendMessageAPI, queueURL string, payload interface{}) (string, error) {
	if queueURL == "" {
		return "", fmt.Errorf("queue URL not provided")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal message: %w", err)
	}

	out, err := client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    &queueURL,
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return "", fmt.Errorf("SQS SendMessage: %w", err)
	}

	messageID := aws.ToString(out.MessageId)
	log.Info().Str("queueUrl", queueURL).Str("messageId", messageID).Msg("SQS message sent")
	return messageID, nil
}
