package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice is the persistence shape of the invoice aggregate. The payment-id
// set is stored as a nullable comma-joined text column (PaymentsStr); the
// split into a real set happens at the mapping boundary.
type Invoice struct {
	ID          uuid.UUID       `db:"invoice_id"`
	Version     int64           `db:"version"`
	InfoType    string          `db:"info_type"`
	Amount      decimal.Decimal `db:"amount"`
	Status      string          `db:"status"`
	DueDate     time.Time       `db:"due_date"`
	IssuedBy    uuid.UUID       `db:"issued_by"`
	BilledTo    uuid.UUID       `db:"billed_to"`
	PaymentsStr *string         `db:"payments"` // NULL when the set is empty
	Created     time.Time       `db:"created"`
	Updated     time.Time       `db:"updated"`
}
