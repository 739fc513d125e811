package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/omnixys/invoice-service/internal/core/domain"
	portssvc "github.com/omnixys/invoice-service/internal/core/ports/services"
	"github.com/segmentio/kafka-go"
)

// invoiceEvent is the payload published for invoice lifecycle events.
type invoiceEvent struct {
	Event     string `json:"event"`
	InvoiceID string `json:"invoiceId"`
	IssuedBy  string `json:"issuedBy"`
	BilledTo  string `json:"billedTo"`
	Amount    string `json:"amount"`
	Status    string `json:"status"`
	At        string `json:"at"`
}

// KafkaPublisher publishes invoice lifecycle events. One writer is shared
// across topics; the topic is set per message.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher creates a publisher against the given brokers.
func NewKafkaPublisher(brokers []string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

var _ portssvc.InvoiceEventPublisherSvc = (*KafkaPublisher)(nil)

// InvoiceCreated publishes the creation event to the notification topic and
// mirrors it to the activity log.
func (p *KafkaPublisher) InvoiceCreated(ctx context.Context, invoice domain.Invoice) error {
	return p.publish(ctx, invoice, "invoice.created", TopicInvoiceCreated, TopicActivityLog)
}

// InvoicePaid publishes the settlement event to the activity log.
func (p *KafkaPublisher) InvoicePaid(ctx context.Context, invoice domain.Invoice) error {
	return p.publish(ctx, invoice, "invoice.paid", TopicActivityLog)
}

func (p *KafkaPublisher) publish(ctx context.Context, invoice domain.Invoice, event string, topics ...string) error {
	payload, err := json.Marshal(invoiceEvent{
		Event:     event,
		InvoiceID: invoice.ID.String(),
		IssuedBy:  invoice.IssuedBy.String(),
		BilledTo:  invoice.BilledTo.String(),
		Amount:    invoice.Amount.String(),
		Status:    string(invoice.Status),
		At:        time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event, err)
	}

	msgs := make([]kafka.Message, len(topics))
	for i, topic := range topics {
		msgs[i] = kafka.Message{
			Topic: topic,
			Key:   []byte(invoice.ID.String()),
			Value: payload,
		}
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to publish %s event for invoice %s: %w", event, invoice.ID, err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
