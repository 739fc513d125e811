package services

import (
	"github.com/google/uuid"
	"github.com/omnixys/invoice-service/internal/apperrors"
	"github.com/omnixys/invoice-service/internal/core/domain"
	portsrepo "github.com/omnixys/invoice-service/internal/core/ports/repositories"
	portssvc "github.com/omnixys/invoice-service/internal/core/ports/services"
)

// maxConflictRetries bounds how often a mutation is replayed after losing a
// version race against a concurrent writer.
const maxConflictRetries = 3

// invoiceService provides core invoice query and settlement operations.
type invoiceService struct {
	invoiceRepo portsrepo.InvoiceRepositoryWithTx
	paymentSvc  portssvc.PaymentClientSvc
	publisher   portssvc.InvoiceEventPublisherSvc
}

// NewInvoiceService creates a new InvoiceService.
func NewInvoiceService(invoiceRepo portsrepo.InvoiceRepositoryWithTx, paymentSvc portssvc.PaymentClientSvc, publisher portssvc.InvoiceEventPublisherSvc) portssvc.InvoiceSvcFacade {
	return &invoiceService{
		invoiceRepo: invoiceRepo,
		paymentSvc:  paymentSvc,
		publisher:   publisher,
	}
}

// Ensure invoiceService implements the portssvc.InvoiceSvcFacade interface
var _ portssvc.InvoiceSvcFacade = (*invoiceService)(nil)

// requireKnownRole passes callers holding the ADMIN or USER role.
func requireKnownRole(caller domain.Caller) error {
	if caller.HasAnyRole(domain.RoleAdmin, domain.RoleUser) {
		return nil
	}
	return &apperrors.ForbiddenError{Username: caller.Username, Roles: caller.RoleStrings()}
}

// requireAdminOrSelf passes admins and the person the query is scoped to.
func requireAdminOrSelf(caller domain.Caller, personID uuid.UUID) error {
	if caller.HasAnyRole(domain.RoleAdmin) || caller.PersonID == personID {
		return nil
	}
	return &apperrors.ForbiddenError{Username: caller.Username, Roles: caller.RoleStrings()}
}

// requireAdminOrParticipant passes admins and either participant of the invoice.
func requireAdminOrParticipant(caller domain.Caller, invoice *domain.Invoice) error {
	if caller.HasAnyRole(domain.RoleAdmin) || caller.PersonID == invoice.IssuedBy || caller.PersonID == invoice.BilledTo {
		return nil
	}
	return &apperrors.ForbiddenError{Username: caller.Username, Roles: caller.RoleStrings()}
}
