package events

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

type fakeSNSClient struct {
	input *sns.PublishInput
	err   error
}

func (f *fakeSNSClient) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSNSSinkPublishes(t *testing.T) {
	client := &fakeSNSClient{}
	sink := &snsSink{
		id:       "topic",
		topicARN: "arn:aws:sns:us-east-1:123:ads",
		client:   client,
		log:      noopLogger{},
	}

	if err := sink.Send(context.Background(), NewEvent(TypeClicked, "slot-2", "unit-2", "pub")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if client.input == nil {
		t.Fatalf("client was not called")
	}
	if got := aws.ToString(client.input.TopicArn); got != "arn:aws:sns:us-east-1:123:ads" {
		t.Fatalf("TopicArn = %s", got)
	}
	if attr := client.input.MessageAttributes["slot_id"]; aws.ToString(attr.StringValue) != "slot-2" {
		t.Fatalf("slot_id attribute wrong: %#v", attr)
	}
	if !strings.Contains(aws.ToString(client.input.Message), `"type":"clicked"`) {
		t.Fatalf("Message missing type: %s", aws.ToString(client.input.Message))
	}
}

func TestSNSSinkPublishError(t *testing.T) {
	sink := &snsSink{id: "topic", client: &fakeSNSClient{err: errors.New("denied")}, log: noopLogger{}}
	if err := sink.Send(context.Background(), Event{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNewSNSSinkRequiresConfig(t *testing.T) {
	if _, err := newSNSSink(context.Background(), SinkConfig{ID: "topic", Type: TypeSNS}, nil); err == nil {
		t.Fatalf("expected error without sns config")
	}
}
