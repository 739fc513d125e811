package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	portssvc "github.com/omnixys/invoice-service/internal/core/ports/services"
	"github.com/omnixys/invoice-service/internal/dto"
	"github.com/omnixys/invoice-service/internal/middleware"
	"github.com/segmentio/kafka-go"
)

// PaymentConsumer consumes payment confirmations and applies them to the
// invoice aggregate. Delivery is at-least-once and unordered; the service
// layer is idempotent, so the consumer never has to dedupe.
type PaymentConsumer struct {
	reader     *kafka.Reader
	invoiceSvc portssvc.InvoiceWriterSvc
	logger     *slog.Logger
}

// NewPaymentConsumer creates a consumer on the payment-confirmation topic.
func NewPaymentConsumer(brokers []string, groupID string, invoiceSvc portssvc.InvoiceWriterSvc, logger *slog.Logger) *PaymentConsumer {
	return &PaymentConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   TopicNewPaymentID,
		}),
		invoiceSvc: invoiceSvc,
		logger:     logger,
	}
}

// Run consumes until the context is cancelled. Messages that fail to apply
// are logged and committed anyway; redelivering a broken payload forever
// would just wedge the partition, and the applier is safe to re-run if the
// same event arrives again later.
func (c *PaymentConsumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		c.handleMessage(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			c.logger.Error("Failed to commit payment confirmation", slog.Int64("offset", msg.Offset), slog.String("error", err.Error()))
		}
	}
}

func (c *PaymentConsumer) handleMessage(ctx context.Context, msg kafka.Message) {
	msgLogger := c.logger.With(
		slog.String("topic", msg.Topic),
		slog.Int("partition", msg.Partition),
		slog.Int64("offset", msg.Offset),
	)
	ctx = middleware.WithLogger(ctx, msgLogger)

	var event dto.NewPaymentID
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		msgLogger.Error("Malformed payment confirmation payload", slog.String("error", err.Error()))
		return
	}
	if event.InvoiceID == uuid.Nil || event.PaymentID == uuid.Nil {
		msgLogger.Error("Payment confirmation missing invoice or payment id")
		return
	}

	if err := c.invoiceSvc.FinalizePayment(ctx, event); err != nil {
		msgLogger.Error("Failed to apply payment confirmation",
			slog.String("invoice_id", event.InvoiceID.String()),
			slog.String("payment_id", event.PaymentID.String()),
			slog.String("error", err.Error()),
		)
		return
	}
	msgLogger.Info("Payment confirmation applied",
		slog.String("invoice_id", event.InvoiceID.String()),
		slog.String("payment_id", event.PaymentID.String()),
	)
}

// Close closes the underlying reader.
func (c *PaymentConsumer) Close() error {
	return c.reader.Close()
}
