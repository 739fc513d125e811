package queries

import (
	"time"

	"github.com/google/uuid"
	"github.com/omnixys/invoice-service/internal/core/domain"
	"github.com/shopspring/decimal"
)

// Condition is one typed filter fragment over an invoice's fields. The set of
// implementations is closed: the repository layer type-switches over it to
// emit SQL, and Matches gives the same semantics in memory. New criteria mean
// a new type here plus a case in the parser and the SQL builder.
type Condition interface {
	// Matches evaluates the condition against an invoice in memory.
	Matches(inv domain.Invoice) bool

	// condition restricts implementations to this package.
	condition()
}

// InfoTypeIs matches invoices with the given info type.
type InfoTypeIs struct {
	InfoType domain.InfoType
}

// StatusIs matches invoices with the given settlement status.
type StatusIs struct {
	Status domain.StatusType
}

// IssuedByIs matches invoices issued by the given participant.
type IssuedByIs struct {
	ID uuid.UUID
}

// BilledToIs matches invoices billed to the given participant.
type BilledToIs struct {
	ID uuid.UUID
}

// DueDateIs matches invoices whose due date equals the given instant exactly.
type DueDateIs struct {
	At time.Time
}

// CreatedIs matches invoices created at the given instant exactly.
type CreatedIs struct {
	At time.Time
}

// UpdatedIs matches invoices last updated at the given instant exactly.
type UpdatedIs struct {
	At time.Time
}

// DueBefore matches invoices strictly due before the given instant.
type DueBefore struct {
	At time.Time
}

// DueAfter matches invoices strictly due after the given instant.
type DueAfter struct {
	At time.Time
}

// MinAmount matches invoices with amount >= the given value.
type MinAmount struct {
	Amount decimal.Decimal
}

// MaxAmount matches invoices with amount <= the given value.
type MaxAmount struct {
	Amount decimal.Decimal
}

func (c InfoTypeIs) Matches(inv domain.Invoice) bool { return inv.InfoType == c.InfoType }
func (c StatusIs) Matches(inv domain.Invoice) bool   { return inv.Status == c.Status }
func (c IssuedByIs) Matches(inv domain.Invoice) bool { return inv.IssuedBy == c.ID }
func (c BilledToIs) Matches(inv domain.Invoice) bool { return inv.BilledTo == c.ID }
func (c DueDateIs) Matches(inv domain.Invoice) bool  { return inv.DueDate.Equal(c.At) }
func (c CreatedIs) Matches(inv domain.Invoice) bool  { return inv.Created.Equal(c.At) }
func (c UpdatedIs) Matches(inv domain.Invoice) bool  { return inv.Updated.Equal(c.At) }
func (c DueBefore) Matches(inv domain.Invoice) bool  { return inv.DueDate.Before(c.At) }
func (c DueAfter) Matches(inv domain.Invoice) bool   { return inv.DueDate.After(c.At) }
func (c MinAmount) Matches(inv domain.Invoice) bool {
	return inv.Amount.GreaterThanOrEqual(c.Amount)
}
func (c MaxAmount) Matches(inv domain.Invoice) bool {
	return inv.Amount.LessThanOrEqual(c.Amount)
}

func (InfoTypeIs) condition() {}
func (StatusIs) condition()   {}
func (IssuedByIs) condition() {}
func (BilledToIs) condition() {}
func (DueDateIs) condition()  {}
func (CreatedIs) condition()  {}
func (UpdatedIs) condition()  {}
func (DueBefore) condition()  {}
func (DueAfter) condition()   {}
func (MinAmount) condition()  {}
func (MaxAmount) condition()  {}
