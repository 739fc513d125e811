package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StatusType indicates the settlement state of an invoice.
type StatusType string

const (
	StatusPending StatusType = "PENDING"
	StatusPaid    StatusType = "PAID"
	StatusOverdue StatusType = "OVERDUE"
)

// shortCode returns the compact wire form of the status, matching the codes
// used by the surrounding services ("PND", "P", "O").
func (s StatusType) ShortCode() string {
	switch s {
	case StatusPending:
		return "PND"
	case StatusPaid:
		return "P"
	case StatusOverdue:
		return "O"
	}
	return string(s)
}

// ParseStatusType resolves a status token, accepting either the enum name or
// the short code, case-insensitively.
func ParseStatusType(value string) (StatusType, error) {
	switch strings.ToUpper(value) {
	case "PENDING", "PND":
		return StatusPending, nil
	case "PAID", "P":
		return StatusPaid, nil
	case "OVERDUE", "O":
		return StatusOverdue, nil
	}
	return "", fmt.Errorf("unknown status %q", value)
}

// InfoType selects which totals an info query aggregates over.
type InfoType string

const (
	InfoInvoices InfoType = "INVOICES"
	InfoPayments InfoType = "PAYMENTS"
)

// ParseInfoType resolves an info-type token case-insensitively.
func ParseInfoType(value string) (InfoType, error) {
	switch strings.ToUpper(value) {
	case "INVOICES":
		return InfoInvoices, nil
	case "PAYMENTS":
		return InfoPayments, nil
	}
	return "", fmt.Errorf("unknown info type %q", value)
}

// Invoice is the versioned aggregate root. Amount and the participant
// references are fixed at creation; only the status transition PENDING->PAID
// and growth of the payment-id set mutate it afterwards. Version is the
// optimistic-concurrency token, bumped exactly once per persisted mutation.
type Invoice struct {
	ID         uuid.UUID       `json:"id"`
	Version    int64           `json:"version"`
	InfoType   InfoType        `json:"infoType"`
	Amount     decimal.Decimal `json:"amount"`
	Status     StatusType      `json:"status"`
	DueDate    time.Time       `json:"dueDate"`
	IssuedBy   uuid.UUID       `json:"issuedBy"`
	BilledTo   uuid.UUID       `json:"billedTo"`
	PaymentIDs []uuid.UUID     `json:"payments"`
	Created    time.Time       `json:"created"`
	Updated    time.Time       `json:"updated"`
}

// AttachPayment inserts a payment id into the payment set. Duplicates are
// ignored; the return value reports whether the set actually changed, so
// callers can skip the persist (and the version bump) for a true no-op.
func (inv *Invoice) AttachPayment(paymentID uuid.UUID) bool {
	for _, existing := range inv.PaymentIDs {
		if existing == paymentID {
			return false
		}
	}
	inv.PaymentIDs = append(inv.PaymentIDs, paymentID)
	return true
}

// HasPayment reports whether the payment id is already attached.
func (inv *Invoice) HasPayment(paymentID uuid.UUID) bool {
	for _, existing := range inv.PaymentIDs {
		if existing == paymentID {
			return true
		}
	}
	return false
}

// EncodePaymentIDs derives the canonical persisted form of a payment-id set:
// a comma-joined string, or nil (SQL NULL) for the empty set. Never the empty
// string, so encode/decode round-trips are stable.
func EncodePaymentIDs(ids []uuid.UUID) *string {
	if len(ids) == 0 {
		return nil
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	joined := strings.Join(parts, ",")
	return &joined
}

// DecodePaymentIDs reconstructs the payment-id set from its persisted form.
// A nil or empty string yields the empty set. Any malformed token fails the
// whole decode: a corrupt encoding is a data-integrity bug, not something to
// partially recover from.
func DecodePaymentIDs(encoded *string) ([]uuid.UUID, error) {
	if encoded == nil || *encoded == "" {
		return []uuid.UUID{}, nil
	}
	tokens := strings.Split(*encoded, ",")
	ids := make([]uuid.UUID, len(tokens))
	for i, token := range tokens {
		id, err := uuid.Parse(token)
		if err != nil {
			return nil, fmt.Errorf("corrupt payment-id encoding %q: %w", token, err)
		}
		ids[i] = id
	}
	return ids, nil
}
