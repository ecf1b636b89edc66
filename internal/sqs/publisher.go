package sqs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/iyhunko/barcode-pricing/internal/model"
)

const actionAttribute = "action"

// PublisherAPI defines the interface for SQS operations used by Publisher.
type PublisherAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Publisher handles publishing messages to AWS SQS.
type Publisher struct {
	client   PublisherAPI
	queueURL string
}

// NewPublisher creates a new SQS Publisher with the given client and queue URL.
func NewPublisher(client PublisherAPI, queueURL string) *Publisher {
	return &Publisher{
		client:   client,
		queueURL: queueURL,
	}
}

// ProductMessage notifies subscribers about a change of a product.
// Action is one of the product event types, e.g. "product.repriced".
type ProductMessage struct {
	Action  string                `json:"action"`
	EventID string                `json:"event_id"`
	Product model.ProductSnapshot `json:"product"`
}

// NewProductMessage builds the message announcing an outbox event.
func NewProductMessage(event *model.Event) (ProductMessage, error) {
	var snapshot model.ProductSnapshot
	if err := json.Unmarshal(event.EventData, &snapshot); err != nil {
		return ProductMessage{}, fmt.Errorf("failed to decode event data: %w", err)
	}
	return ProductMessage{
		Action:  event.EventType,
		EventID: event.ID.String(),
		Product: snapshot,
	}, nil
}

// PublishProductMessage publishes a product message to the SQS queue.
func (p *Publisher) PublishProductMessage(ctx context.Context, msg ProductMessage) error {
	messageBody, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(messageBody)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			actionAttribute: {
				DataType:    aws.String("String"),
				StringValue: aws.String(msg.Action),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send message to SQS: %w", err)
	}

	return nil
}
