package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/iyhunko/barcode-pricing/internal/config"
	"github.com/iyhunko/barcode-pricing/internal/logger"
	"github.com/iyhunko/barcode-pricing/internal/model"
	sqspkg "github.com/iyhunko/barcode-pricing/internal/sqs"
)

func main() {
	conf, err := config.LoadFromEnv()
	handleErr("loading config", err)

	logger.InitJSONLogger(conf.DebugMode)

	if conf.AWS.SQSQueueURL == "" {
		handleErr("loading config", errors.New(config.SQSQueueURLEnv+" is required"))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sqsClient, err := sqspkg.NewClient(ctx, conf.AWS)
	handleErr("creating SQS client", err)

	consumer := sqspkg.NewConsumer(sqsClient, conf.AWS.SQSQueueURL).WithHandler(announce)

	slog.Info("notification service started, listening for product messages")
	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		handleErr("consuming messages", err)
	}
	slog.Info("notification service stopped")
}

// announce logs a shelf notice for the product change carried by msg.
func announce(ctx context.Context, msg sqspkg.ProductMessage) error {
	product := msg.Product
	attrs := []any{
		slog.String("barcode", product.Barcode),
		slog.String("name", product.Name),
		slog.String("event_id", msg.EventID),
	}

	switch msg.Action {
	case model.EventProductDeleted:
		slog.Info("product withdrawn, remove shelf label", attrs...)
	case model.EventProductCreated, model.EventProductUpdated, model.EventProductRepriced:
		attrs = append(attrs,
			slog.String("price_reference", product.PriceReference.StringFixed(2)),
			slog.Int64("price_converted", product.PriceConverted),
			slog.String("exchange_rate", product.ExchangeRate.String()),
		)
		slog.Info("print shelf label", attrs...)
	default:
		return sqspkg.LogMessage(ctx, msg)
	}
	return nil
}

func handleErr(msg string, err error) {
	if err != nil {
		slog.Error("error while "+msg, slog.Any("err", err))
		os.Exit(1)
	}
}
