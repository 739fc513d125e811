package mapping

import (
	"github.com/omnixys/invoice-service/internal/core/domain"
	"github.com/omnixys/invoice-service/internal/models"
)

// ToModelInvoice converts a domain Invoice to a model Invoice, deriving the
// canonical persisted payment string.
func ToModelInvoice(d domain.Invoice) models.Invoice {
	return models.Invoice{
		ID:          d.ID,
		Version:     d.Version,
		InfoType:    string(d.InfoType),
		Amount:      d.Amount,
		Status:      string(d.Status),
		DueDate:     d.DueDate,
		IssuedBy:    d.IssuedBy,
		BilledTo:    d.BilledTo,
		PaymentsStr: domain.EncodePaymentIDs(d.PaymentIDs),
		Created:     d.Created,
		Updated:     d.Updated,
	}
}

// ToDomainInvoice converts a model Invoice to a domain Invoice. A corrupt
// payment encoding fails the whole conversion; the row is unusable.
func ToDomainInvoice(m models.Invoice) (domain.Invoice, error) {
	paymentIDs, err := domain.DecodePaymentIDs(m.PaymentsStr)
	if err != nil {
		return domain.Invoice{}, err
	}
	return domain.Invoice{
		ID:         m.ID,
		Version:    m.Version,
		InfoType:   domain.InfoType(m.InfoType),
		Amount:     m.Amount,
		Status:     domain.StatusType(m.Status),
		DueDate:    m.DueDate,
		IssuedBy:   m.IssuedBy,
		BilledTo:   m.BilledTo,
		PaymentIDs: paymentIDs,
		Created:    m.Created,
		Updated:    m.Updated,
	}, nil
}

// ToDomainInvoiceSlice converts model Invoices to domain Invoices, failing on
// the first corrupt row.
func ToDomainInvoiceSlice(ms []models.Invoice) ([]domain.Invoice, error) {
	ds := make([]domain.Invoice, len(ms))
	for i, m := range ms {
		d, err := ToDomainInvoice(m)
		if err != nil {
			return nil, err
		}
		ds[i] = d
	}
	return ds, nil
}
