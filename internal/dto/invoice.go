package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/omnixys/invoice-service/internal/core/domain"
	"github.com/omnixys/invoice-service/internal/core/queries"
	"github.com/shopspring/decimal"
)

// CreateInvoiceRequest defines the data needed to create a new invoice.
// Status is not accepted: new invoices always start PENDING.
type CreateInvoiceRequest struct {
	Amount   decimal.Decimal `json:"amount" binding:"required"`
	DueDate  time.Time       `json:"dueDate" binding:"required"`
	IssuedBy uuid.UUID       `json:"issuedBy" binding:"required"`
	BilledTo uuid.UUID       `json:"billedTo" binding:"required"`
	InfoType string          `json:"infoType" binding:"omitempty,oneof=INVOICES PAYMENTS invoices payments"`
}

// InvoiceResponse defines the data returned for an invoice.
// Mirrors domain.Invoice.
type InvoiceResponse struct {
	ID       uuid.UUID         `json:"id"`
	Version  int64             `json:"version"`
	InfoType domain.InfoType   `json:"infoType"`
	Amount   decimal.Decimal   `json:"amount"`
	Status   domain.StatusType `json:"status"`
	DueDate  time.Time         `json:"dueDate"`
	IssuedBy uuid.UUID         `json:"issuedBy"`
	BilledTo uuid.UUID         `json:"billedTo"`
	Payments []uuid.UUID       `json:"payments"`
	Created  time.Time         `json:"created"`
	Updated  time.Time         `json:"updated"`
}

// ToInvoiceResponse converts a domain.Invoice to InvoiceResponse DTO
func ToInvoiceResponse(inv *domain.Invoice) InvoiceResponse {
	return InvoiceResponse{
		ID:       inv.ID,
		Version:  inv.Version,
		InfoType: inv.InfoType,
		Amount:   inv.Amount,
		Status:   inv.Status,
		DueDate:  inv.DueDate,
		IssuedBy: inv.IssuedBy,
		BilledTo: inv.BilledTo,
		Payments: inv.PaymentIDs,
		Created:  inv.Created,
		Updated:  inv.Updated,
	}
}

// ToListInvoiceResponse converts a slice of domain.Invoice to response DTOs
func ToListInvoiceResponse(invoices []domain.Invoice) []InvoiceResponse {
	res := make([]InvoiceResponse, len(invoices))
	for i, inv := range invoices {
		res[i] = ToInvoiceResponse(&inv)
	}
	return res
}

// ListInvoicesResponse wraps a page of invoices with the cursor for the next page.
type ListInvoicesResponse struct {
	Invoices  []InvoiceResponse `json:"invoices"`
	NextToken *string           `json:"nextToken,omitempty"`
}

// SearchCriteria binds the supported filter keys from query parameters.
// Absent fields are simply not part of the criteria; values are kept as raw
// strings because parsing (and parse failure policy) belongs to the queries
// package.
type SearchCriteria struct {
	InfoType  *string `form:"infoType"`
	Status    *string `form:"status"`
	IssuedBy  *string `form:"issuedBy"`
	BilledTo  *string `form:"billedTo"`
	DueDate   *string `form:"dueDate"`
	Created   *string `form:"created"`
	Updated   *string `form:"updated"`
	DueBefore *string `form:"dueBefore"`
	DueAfter  *string `form:"dueAfter"`
	MinAmount *string `form:"minAmount"`
	MaxAmount *string `form:"maxAmount"`
}

// ToCriteria converts the bound search fields into the raw criteria map.
func (s SearchCriteria) ToCriteria() queries.Criteria {
	criteria := queries.Criteria{}
	add := func(key string, value *string) {
		if value != nil {
			criteria[key] = []string{*value}
		}
	}
	add("infoType", s.InfoType)
	add("status", s.Status)
	add(queries.KeyIssuedBy, s.IssuedBy)
	add(queries.KeyBilledTo, s.BilledTo)
	add("dueDate", s.DueDate)
	add("created", s.Created)
	add("updated", s.Updated)
	add("dueBefore", s.DueBefore)
	add("dueAfter", s.DueAfter)
	add("minAmount", s.MinAmount)
	add("maxAmount", s.MaxAmount)
	return criteria
}

// PaymentRequest defines a synchronous settlement request against an invoice.
// AlreadyPaid is supplied by the caller, which owns the payment ledger.
type PaymentRequest struct {
	InvoiceID   uuid.UUID       `json:"invoiceId"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	AlreadyPaid decimal.Decimal `json:"alreadyPaid"`
}

// PaymentResponse reports the amount actually applied by a settlement.
type PaymentResponse struct {
	PaidNow decimal.Decimal `json:"paidNow"`
}

// NewPaymentID is the payment-confirmation event consumed from the broker.
// Delivery is at-least-once and unordered; the applier is idempotent.
type NewPaymentID struct {
	PaymentID uuid.UUID `json:"paymentId"`
	InvoiceID uuid.UUID `json:"invoiceId"`
}

// InfoPayload carries a count and a total amount, for both invoice and
// payment aggregations.
type InfoPayload struct {
	Count       int             `json:"count"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}
