package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment is the detail record for a single externally-processed payment, as
// returned by the payment service. This service stores only the id on the
// invoice; amount and timestamp live with the payment service.
type Payment struct {
	ID        uuid.UUID       `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created"`
}
