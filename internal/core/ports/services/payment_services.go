package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/omnixys/invoice-service/internal/core/domain"
)

// PaymentClientSvc resolves payment details from the external payment service.
// Implementations must fold transport and field-resolution failures into a
// not-found ("payments could not be retrieved"), never surface raw transport
// errors.
type PaymentClientSvc interface {
	FetchPayments(ctx context.Context, paymentIDs []uuid.UUID, token string) ([]domain.Payment, error)
}

// InvoiceEventPublisherSvc publishes invoice lifecycle events to the broker.
// Publishing is best-effort from the core's perspective; failures are
// reported, not retried here.
type InvoiceEventPublisherSvc interface {
	InvoiceCreated(ctx context.Context, invoice domain.Invoice) error
	InvoicePaid(ctx context.Context, invoice domain.Invoice) error
}
