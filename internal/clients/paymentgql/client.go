package paymentgql

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/machinebox/graphql"
	"github.com/omnixys/invoice-service/internal/apperrors"
	"github.com/omnixys/invoice-service/internal/core/domain"
	portssvc "github.com/omnixys/invoice-service/internal/core/ports/services"
	"github.com/omnixys/invoice-service/internal/middleware"
	"github.com/shopspring/decimal"
)

const paymentsQuery = `
query ($ids: [ID!]!) {
	payments(ids: $ids) {
		id
		amount
		created
	}
}`

// Client resolves payment details from the payment service's GraphQL API.
// Every failure on this path, transport or field resolution, is folded into a
// not-found with a fixed message; the raw error only reaches the logs.
type Client struct {
	gql *graphql.Client
}

// NewClient creates a payment client against the given GraphQL endpoint.
func NewClient(endpoint string) *Client {
	return &Client{gql: graphql.NewClient(endpoint)}
}

var _ portssvc.PaymentClientSvc = (*Client)(nil)

type paymentData struct {
	ID      string `json:"id"`
	Amount  string `json:"amount"`
	Created string `json:"created"`
}

// FetchPayments resolves the given payment ids, passing the caller's bearer
// token through to the payment service.
func (c *Client) FetchPayments(ctx context.Context, paymentIDs []uuid.UUID, token string) ([]domain.Payment, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if len(paymentIDs) == 0 {
		return []domain.Payment{}, nil
	}

	ids := make([]string, len(paymentIDs))
	for i, id := range paymentIDs {
		ids[i] = id.String()
	}

	req := graphql.NewRequest(paymentsQuery)
	req.Var("ids", ids)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	var resp struct {
		Payments []paymentData `json:"payments"`
	}
	if err := c.gql.Run(ctx, req, &resp); err != nil {
		logger.Warn("Payment lookup failed", slog.String("error", err.Error()))
		return nil, apperrors.NewNotFoundWithReason("payments could not be retrieved")
	}

	payments := make([]domain.Payment, len(resp.Payments))
	for i, p := range resp.Payments {
		id, err := uuid.Parse(p.ID)
		if err != nil {
			logger.Warn("Payment lookup returned malformed id", slog.String("payment_id", p.ID))
			return nil, apperrors.NewNotFoundWithReason("payments could not be retrieved")
		}
		amount, err := decimal.NewFromString(p.Amount)
		if err != nil {
			logger.Warn("Payment lookup returned malformed amount", slog.String("payment_id", p.ID), slog.String("amount", p.Amount))
			return nil, apperrors.NewNotFoundWithReason("payments could not be retrieved")
		}
		createdAt, err := time.Parse(time.RFC3339, p.Created)
		if err != nil {
			logger.Warn("Payment lookup returned malformed timestamp", slog.String("payment_id", p.ID), slog.String("created", p.Created))
			return nil, apperrors.NewNotFoundWithReason("payments could not be retrieved")
		}
		payments[i] = domain.Payment{ID: id, Amount: amount, CreatedAt: createdAt}
	}
	return payments, nil
}
