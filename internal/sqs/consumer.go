package sqs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// ConsumerAPI defines the interface for SQS operations used by Consumer.
type ConsumerAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Handler reacts to one decoded product message.
// A returned error leaves the message on the queue for redelivery.
type Handler func(ctx context.Context, msg ProductMessage) error

const defaultRetryDelay = time.Second

// Consumer handles consuming messages from AWS SQS.
type Consumer struct {
	client     ConsumerAPI
	queueURL   string
	handle     Handler
	retryDelay time.Duration
}

// NewConsumer creates a new SQS Consumer with the given client and queue URL.
// Messages are passed to LogMessage until another handler is set.
func NewConsumer(client ConsumerAPI, queueURL string) *Consumer {
	return &Consumer{
		client:     client,
		queueURL:   queueURL,
		handle:     LogMessage,
		retryDelay: defaultRetryDelay,
	}
}

// WithHandler replaces the handler invoked for every valid message.
func (c *Consumer) WithHandler(handler Handler) *Consumer {
	c.handle = handler
	return c
}

// Start begins consuming messages from the SQS queue until the context is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	slog.Info("starting SQS consumer", slog.String("queue_url", c.queueURL))

	for {
		select {
		case <-ctx.Done():
			slog.Info("stopping SQS consumer")
			return ctx.Err()
		default:
			err := c.receiveMessages(ctx)
			if err == nil || errors.Is(err, context.Canceled) {
				continue
			}
			slog.Error("error receiving messages", slog.Any("err", err))
			select {
			case <-ctx.Done():
			case <-time.After(c.retryDelay):
			}
		}
	}
}

func (c *Consumer) receiveMessages(ctx context.Context) error {
	result, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:              aws.String(c.queueURL),
		MaxNumberOfMessages:   10,
		WaitTimeSeconds:       20, // long polling
		MessageAttributeNames: []string{actionAttribute},
	})
	if err != nil {
		return fmt.Errorf("failed to receive messages: %w", err)
	}

	for _, message := range result.Messages {
		if err := c.processMessage(ctx, message); err != nil {
			slog.Error("error processing message", slog.Any("err", err))
			continue
		}

		if err := c.deleteMessage(ctx, message); err != nil {
			slog.Error("error deleting message", slog.Any("err", err))
		}
	}

	return nil
}

func (c *Consumer) processMessage(ctx context.Context, message types.Message) error {
	if message.Body == nil {
		return fmt.Errorf("message body is nil")
	}

	var productMsg ProductMessage
	if err := json.Unmarshal([]byte(*message.Body), &productMsg); err != nil {
		return fmt.Errorf("failed to unmarshal message: %w", err)
	}
	if productMsg.Product.Barcode == "" {
		return fmt.Errorf("message %s carries no barcode", productMsg.EventID)
	}

	if err := c.handle(ctx, productMsg); err != nil {
		return fmt.Errorf("failed to handle message %s: %w", productMsg.EventID, err)
	}
	return nil
}

// LogMessage logs the product carried by msg.
func LogMessage(_ context.Context, msg ProductMessage) error {
	slog.Info("received product notification",
		slog.String("action", msg.Action),
		slog.String("event_id", msg.EventID),
		slog.String("barcode", msg.Product.Barcode),
		slog.String("name", msg.Product.Name),
		slog.String("price_reference", msg.Product.PriceReference.String()),
		slog.String("exchange_rate", msg.Product.ExchangeRate.String()),
		slog.Int64("price_converted", msg.Product.PriceConverted),
	)
	return nil
}

func (c *Consumer) deleteMessage(ctx context.Context, message types.Message) error {
	_, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: message.ReceiptHandle,
	})
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}
