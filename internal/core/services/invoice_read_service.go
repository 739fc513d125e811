package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/omnixys/invoice-service/internal/apperrors"
	"github.com/omnixys/invoice-service/internal/core/domain"
	"github.com/omnixys/invoice-service/internal/core/queries"
	"github.com/omnixys/invoice-service/internal/dto"
	"github.com/omnixys/invoice-service/internal/middleware"
	"github.com/shopspring/decimal"
)

// GetInvoiceByID retrieves a single invoice by id.
func (s *invoiceService) GetInvoiceByID(ctx context.Context, id uuid.UUID, caller domain.Caller) (*domain.Invoice, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	invoice, err := s.invoiceRepo.FindInvoiceByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFoundByID(id.String())
		}
		logger.Error("Failed to find invoice by ID", slog.String("invoice_id", id.String()), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to get invoice %s: %w", id, err)
	}

	if err := requireAdminOrParticipant(caller, invoice); err != nil {
		logger.Warn("Authorization failed for GetInvoiceByID", slog.String("username", caller.Username), slog.String("invoice_id", id.String()))
		return nil, err
	}
	return invoice, nil
}

// FindInvoices retrieves invoices matching the criteria. The filter policy is
// strict: an empty criteria map means the full collection, while a criteria
// map that fails to build or matches zero rows is a not-found. A bad filter
// must never degrade into an unfiltered result.
func (s *invoiceService) FindInvoices(ctx context.Context, criteria queries.Criteria, caller domain.Caller) ([]domain.Invoice, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := requireKnownRole(caller); err != nil {
		logger.Warn("Authorization failed for FindInvoices", slog.String("username", caller.Username))
		return nil, err
	}

	if len(criteria) == 0 {
		invoices, err := s.invoiceRepo.FindAllInvoices(ctx)
		if err != nil {
			logger.Error("Failed to list all invoices", slog.String("error", err.Error()))
			return nil, fmt.Errorf("failed to find invoices: %w", err)
		}
		return invoices, nil
	}

	predicate, err := queries.BuildAll(criteria)
	if err != nil {
		// The parse error stays internal; outwardly a broken filter is the
		// same as a filter matching nothing.
		logger.Debug("Criteria failed to build", slog.String("error", err.Error()))
		return nil, apperrors.NewNotFoundByCriteria(criteria)
	}

	invoices, err := s.invoiceRepo.FindInvoices(ctx, predicate)
	if err != nil {
		logger.Error("Failed to query invoices", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to find invoices: %w", err)
	}
	if len(invoices) == 0 {
		return nil, apperrors.NewNotFoundByCriteria(criteria)
	}
	return invoices, nil
}

// FindInvoicesByCustomer retrieves invoices where the customer is issuer or
// recipient, optionally narrowed by extra criteria. The participant filter is
// an OR-group AND-ed with the strict build of the remaining criteria.
func (s *invoiceService) FindInvoicesByCustomer(ctx context.Context, customerID uuid.UUID, criteria queries.Criteria, caller domain.Caller) ([]domain.Invoice, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := requireAdminOrSelf(caller, customerID); err != nil {
		logger.Warn("Authorization failed for FindInvoicesByCustomer", slog.String("username", caller.Username), slog.String("customer_id", customerID.String()))
		return nil, err
	}

	if len(criteria) == 0 {
		invoices, err := s.invoiceRepo.FindByParticipant(ctx, customerID)
		if err != nil {
			logger.Error("Failed to query participant invoices", slog.String("customer_id", customerID.String()), slog.String("error", err.Error()))
			return nil, fmt.Errorf("failed to find invoices for customer %s: %w", customerID, err)
		}
		if len(invoices) == 0 {
			return nil, apperrors.NewNotFoundByCriteria(queries.Criteria{"customer": {customerID.String()}})
		}
		return invoices, nil
	}

	participantCriteria := queries.Criteria{
		queries.KeyIssuedBy: {customerID.String()},
		queries.KeyBilledTo: {customerID.String()},
	}
	anyPredicate := queries.BuildAny(participantCriteria, []string{queries.KeyIssuedBy, queries.KeyBilledTo})

	// Drop the participant keys from the extra criteria so they cannot fight
	// the OR-group, then apply the strict policy to the rest.
	extra := queries.Criteria{}
	for key, values := range criteria {
		if key == queries.KeyIssuedBy || key == queries.KeyBilledTo {
			continue
		}
		extra[key] = values
	}

	var allPredicate *queries.Predicate
	if len(extra) > 0 {
		built, err := queries.BuildAll(extra)
		if err != nil {
			logger.Debug("Customer criteria failed to build", slog.String("error", err.Error()))
			return nil, apperrors.NewNotFoundByCriteria(criteria)
		}
		allPredicate = built
	}

	invoices, err := s.invoiceRepo.FindInvoices(ctx, anyPredicate.And(allPredicate))
	if err != nil {
		logger.Error("Failed to query invoices by customer", slog.String("customer_id", customerID.String()), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to find invoices for customer %s: %w", customerID, err)
	}
	if len(invoices) == 0 {
		diag := queries.Criteria{"customer": {customerID.String()}}
		for key, values := range extra {
			diag[key] = values
		}
		return nil, apperrors.NewNotFoundByCriteria(diag)
	}
	return invoices, nil
}

// ListInvoices retrieves a cursor-paginated page of the collection.
func (s *invoiceService) ListInvoices(ctx context.Context, limit int, nextToken *string) ([]domain.Invoice, *string, error) {
	invoices, token, err := s.invoiceRepo.ListInvoices(ctx, limit, nextToken)
	if err != nil {
		middleware.GetLoggerFromCtx(ctx).Error("Failed to list invoices", slog.String("error", err.Error()))
		return nil, nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	return invoices, token, nil
}

// TotalInfo aggregates count and total amount over the person's invoices in
// the given status, counting either the invoices themselves or their payments.
func (s *invoiceService) TotalInfo(ctx context.Context, isIssuer bool, personID uuid.UUID, infoType domain.InfoType, status string, caller domain.Caller) (*dto.InfoPayload, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := requireAdminOrSelf(caller, personID); err != nil {
		logger.Warn("Authorization failed for TotalInfo", slog.String("username", caller.Username), slog.String("person_id", personID.String()))
		return nil, err
	}

	invoices, err := s.findByRoleAndStatus(ctx, isIssuer, personID, status)
	if err != nil {
		return nil, err
	}
	return s.aggregate(ctx, invoices, infoType, caller.Token)
}

// InfoByCustomer aggregates over all invoices the customer participates in,
// optionally narrowed to one status.
func (s *invoiceService) InfoByCustomer(ctx context.Context, customerID uuid.UUID, infoType domain.InfoType, status string, caller domain.Caller) (*dto.InfoPayload, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := requireAdminOrSelf(caller, customerID); err != nil {
		logger.Warn("Authorization failed for InfoByCustomer", slog.String("username", caller.Username), slog.String("customer_id", customerID.String()))
		return nil, err
	}

	var statusFilter *domain.StatusType
	if status != "" {
		parsed, err := domain.ParseStatusType(status)
		if err != nil {
			return nil, apperrors.NewNotFoundByCriteria(queries.Criteria{"status": {status}})
		}
		statusFilter = &parsed
	}

	invoices, err := s.invoiceRepo.FindByParticipantAndOptionalStatus(ctx, customerID, statusFilter)
	if err != nil {
		logger.Error("Failed to query participant invoices", slog.String("customer_id", customerID.String()), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to aggregate invoices for customer %s: %w", customerID, err)
	}
	return s.aggregate(ctx, invoices, infoType, caller.Token)
}

// PaymentInfo aggregates count and total amount of a single invoice's
// payments, resolved through the payment service.
func (s *invoiceService) PaymentInfo(ctx context.Context, invoiceID uuid.UUID, caller domain.Caller) (*dto.InfoPayload, error) {
	invoice, err := s.GetInvoiceByID(ctx, invoiceID, caller)
	if err != nil {
		return nil, err
	}
	return s.aggregate(ctx, []domain.Invoice{*invoice}, domain.InfoPayments, caller.Token)
}

func (s *invoiceService) findByRoleAndStatus(ctx context.Context, isIssuer bool, personID uuid.UUID, status string) ([]domain.Invoice, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	var predicate *queries.Predicate
	if isIssuer {
		predicate = &queries.Predicate{All: []queries.Condition{queries.IssuedByIs{ID: personID}}}
	} else {
		predicate = &queries.Predicate{All: []queries.Condition{queries.BilledToIs{ID: personID}}}
	}
	if status != "" {
		parsed, err := domain.ParseStatusType(status)
		if err != nil {
			return nil, apperrors.NewNotFoundByCriteria(queries.Criteria{"status": {status}})
		}
		if isIssuer {
			return s.invoiceRepo.FindByIssuerAndStatus(ctx, personID, parsed)
		}
		return s.invoiceRepo.FindByRecipientAndStatus(ctx, personID, parsed)
	}

	invoices, err := s.invoiceRepo.FindInvoices(ctx, predicate)
	if err != nil {
		logger.Error("Failed to query invoices by role", slog.String("person_id", personID.String()), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to query invoices for person %s: %w", personID, err)
	}
	return invoices, nil
}

// aggregate folds a set of invoices into an InfoPayload, either over the
// invoice amounts themselves or over their resolved payments.
func (s *invoiceService) aggregate(ctx context.Context, invoices []domain.Invoice, infoType domain.InfoType, token string) (*dto.InfoPayload, error) {
	if infoType == domain.InfoInvoices {
		total := decimal.Zero
		for _, inv := range invoices {
			total = total.Add(inv.Amount)
		}
		return &dto.InfoPayload{Count: len(invoices), TotalAmount: total}, nil
	}

	paymentIDs := make([]uuid.UUID, 0)
	for _, inv := range invoices {
		paymentIDs = append(paymentIDs, inv.PaymentIDs...)
	}
	if len(paymentIDs) == 0 {
		return &dto.InfoPayload{Count: 0, TotalAmount: decimal.Zero}, nil
	}

	payments, err := s.paymentSvc.FetchPayments(ctx, paymentIDs, token)
	if err != nil {
		return nil, err
	}
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return &dto.InfoPayload{Count: len(payments), TotalAmount: total}, nil
}
