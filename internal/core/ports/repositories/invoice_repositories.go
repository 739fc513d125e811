package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/omnixys/invoice-service/internal/core/domain"
	"github.com/omnixys/invoice-service/internal/core/queries"
)

// InvoiceReader defines read operations for invoice data
type InvoiceReader interface {
	// FindInvoiceByID retrieves a specific invoice by its unique identifier.
	FindInvoiceByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error)

	// FindAllInvoices retrieves the full unfiltered collection.
	FindAllInvoices(ctx context.Context) ([]domain.Invoice, error)

	// FindInvoices retrieves all invoices matching the composed predicate.
	FindInvoices(ctx context.Context, predicate *queries.Predicate) ([]domain.Invoice, error)

	// FindByParticipant retrieves invoices where the person is issuer or recipient.
	FindByParticipant(ctx context.Context, personID uuid.UUID) ([]domain.Invoice, error)

	// FindByIssuerAndStatus retrieves invoices issued by the person in the given status.
	FindByIssuerAndStatus(ctx context.Context, personID uuid.UUID, status domain.StatusType) ([]domain.Invoice, error)

	// FindByRecipientAndStatus retrieves invoices billed to the person in the given status.
	FindByRecipientAndStatus(ctx context.Context, personID uuid.UUID, status domain.StatusType) ([]domain.Invoice, error)

	// FindByParticipantAndOptionalStatus retrieves invoices where the person is
	// a participant, optionally narrowed to one status.
	FindByParticipantAndOptionalStatus(ctx context.Context, personID uuid.UUID, status *domain.StatusType) ([]domain.Invoice, error)

	// ListInvoices retrieves a cursor-paginated page of invoices ordered by
	// creation time.
	ListInvoices(ctx context.Context, limit int, nextToken *string) ([]domain.Invoice, *string, error)
}

// InvoiceWriter defines write operations for invoice data
type InvoiceWriter interface {
	// SaveInvoice persists a new invoice at version 1.
	SaveInvoice(ctx context.Context, invoice domain.Invoice) error

	// UpdateInvoiceWithVersion persists a mutation with a compare-and-swap on
	// the version column: the write succeeds only when the stored version
	// still equals invoice.Version, and bumps it by one. A mismatch returns
	// apperrors.ErrConflict so lost updates are detected, never absorbed.
	UpdateInvoiceWithVersion(ctx context.Context, invoice domain.Invoice) error
}

// InvoiceRepositoryFacade combines all invoice-related repository interfaces
type InvoiceRepositoryFacade interface {
	InvoiceReader
	InvoiceWriter
}

// InvoiceRepositoryWithTx extends InvoiceRepositoryFacade with transaction capabilities
type InvoiceRepositoryWithTx interface {
	InvoiceRepositoryFacade
	TransactionManager
}
