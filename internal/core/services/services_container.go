package services

import (
	portsrepo "github.com/omnixys/invoice-service/internal/core/ports/repositories"
	portssvc "github.com/omnixys/invoice-service/internal/core/ports/services"
	"github.com/omnixys/invoice-service/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, paymentSvc portssvc.PaymentClientSvc, publisher portssvc.InvoiceEventPublisherSvc) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	container.Invoice = NewInvoiceService(
		repos.InvoiceRepo,
		paymentSvc,
		publisher,
	)

	return container
}
