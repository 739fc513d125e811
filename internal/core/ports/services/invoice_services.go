package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/omnixys/invoice-service/internal/core/domain"
	"github.com/omnixys/invoice-service/internal/core/queries"
	"github.com/omnixys/invoice-service/internal/dto"
	"github.com/shopspring/decimal"
)

// InvoiceReaderSvc defines read operations over the invoice collection.
type InvoiceReaderSvc interface {
	// GetInvoiceByID retrieves a single invoice by id. Non-admin callers must
	// be a participant of the invoice.
	GetInvoiceByID(ctx context.Context, id uuid.UUID, caller domain.Caller) (*domain.Invoice, error)

	// FindInvoices retrieves invoices matching the criteria. Empty criteria
	// returns the full collection; a bad filter or zero matches is a
	// not-found, never a silently unfiltered or empty result.
	FindInvoices(ctx context.Context, criteria queries.Criteria, caller domain.Caller) ([]domain.Invoice, error)

	// FindInvoicesByCustomer retrieves invoices where the customer is issuer
	// or recipient, optionally narrowed by extra criteria.
	FindInvoicesByCustomer(ctx context.Context, customerID uuid.UUID, criteria queries.Criteria, caller domain.Caller) ([]domain.Invoice, error)

	// ListInvoices retrieves a cursor-paginated page of the collection.
	ListInvoices(ctx context.Context, limit int, nextToken *string) ([]domain.Invoice, *string, error)

	// TotalInfo aggregates count and total amount over the person's invoices
	// (as issuer or as recipient) in the given status, over either the
	// invoices themselves or their payments.
	TotalInfo(ctx context.Context, isIssuer bool, personID uuid.UUID, infoType domain.InfoType, status string, caller domain.Caller) (*dto.InfoPayload, error)

	// InfoByCustomer aggregates over all invoices the customer participates
	// in, optionally narrowed to one status.
	InfoByCustomer(ctx context.Context, customerID uuid.UUID, infoType domain.InfoType, status string, caller domain.Caller) (*dto.InfoPayload, error)

	// PaymentInfo aggregates count and total amount of a single invoice's
	// payments, resolved through the payment service.
	PaymentInfo(ctx context.Context, invoiceID uuid.UUID, caller domain.Caller) (*dto.InfoPayload, error)
}

// InvoiceWriterSvc defines mutating operations on the invoice aggregate.
type InvoiceWriterSvc interface {
	// CreateInvoice persists a new invoice with status PENDING and an empty
	// payment set.
	CreateInvoice(ctx context.Context, req dto.CreateInvoiceRequest, caller domain.Caller) (*domain.Invoice, error)

	// Pay applies a synchronous settlement and returns the amount actually
	// applied (capped at the remaining balance).
	Pay(ctx context.Context, req dto.PaymentRequest, caller domain.Caller) (decimal.Decimal, error)

	// FinalizePayment idempotently attaches a confirmed payment id to the
	// invoice. Safe under duplicate and out-of-order delivery.
	FinalizePayment(ctx context.Context, event dto.NewPaymentID) error
}

// InvoiceSvcFacade combines all invoice-related service interfaces
type InvoiceSvcFacade interface {
	InvoiceReaderSvc
	InvoiceWriterSvc
}
