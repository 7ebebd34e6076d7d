package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

type fakeSQS struct {
	inputs []*sqs.SendMessageInput
	err    error
}

func (f *fakeSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.inputs = append(f.inputs, params)
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("msg-123")}, nil
}

func TestPublish(t *testing.T) {
	client := &fakeSQS{}
	payload := map[string]interface{}{"mediaKey": "v1", "count": 3}

	id, err := Publish(context.Background(), client, "https://sqs.test/queue", payload)
	if err != nil {
		t.Fatal(err)
	}
	if id != "msg-123" {
		t.Errorf("got message id %q", id)
	}

	if len(client.inputs) != 1 {
		t.Fatalf("expected 1 send, got %d", len(client.inputs))
	}
	in := client.inputs[0]
	if aws.ToString(in.QueueUrl) != "https://sqs.test/queue" {
		t.Errorf("queue url: got %q", aws.ToString(in.QueueUrl))
	}

	var got map[string]interface{}
	if err := json.Unmarshal([]byte(aws.ToString(in.MessageBody)), &got); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if got["mediaKey"] != "v1" {
		t.Errorf("body payload wrong: %v", got)
	}
}

func TestPublish_EmptyQueueURL(t *testing.T) {
	client := &fakeSQS{}
	if _, err := Publish(context.Background(), client, "", "payload"); err == nil {
		t.Fatal("expected error for empty queue URL")
	}
	if len(client.inputs) != 0 {
		t.Error("no send should happen without a queue URL")
	}
}

func TestPublish_SendFailure(t *testing.T) {
	client := &fakeSQS{err: errors.New("throttled")}
	if _, err := Publish(context.Background(), client, "https://sqs.test/queue", "x"); err == nil {
		t.Fatal("expected send failure to propagate")
	}
}
