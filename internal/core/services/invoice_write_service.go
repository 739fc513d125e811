package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/omnixys/invoice-service/internal/apperrors"
	"github.com/omnixys/invoice-service/internal/core/domain"
	"github.com/omnixys/invoice-service/internal/dto"
	"github.com/omnixys/invoice-service/internal/middleware"
	"github.com/shopspring/decimal"
)

// CreateInvoice persists a new invoice with status PENDING and an empty
// payment set.
func (s *invoiceService) CreateInvoice(ctx context.Context, req dto.CreateInvoiceRequest, caller domain.Caller) (*domain.Invoice, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", apperrors.ErrValidation)
	}
	if req.IssuedBy == req.BilledTo {
		return nil, fmt.Errorf("%w: issuer and recipient must differ", apperrors.ErrValidation)
	}

	infoType := domain.InfoInvoices
	if req.InfoType != "" {
		parsed, err := domain.ParseInfoType(req.InfoType)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
		infoType = parsed
	}

	now := time.Now().UTC()
	invoice := domain.Invoice{
		ID:         uuid.New(),
		Version:    1,
		InfoType:   infoType,
		Amount:     req.Amount,
		Status:     domain.StatusPending,
		DueDate:    req.DueDate,
		IssuedBy:   req.IssuedBy,
		BilledTo:   req.BilledTo,
		PaymentIDs: []uuid.UUID{},
		Created:    now,
		Updated:    now,
	}

	if err := s.invoiceRepo.SaveInvoice(ctx, invoice); err != nil {
		logger.Error("Failed to save invoice", slog.String("invoice_id", invoice.ID.String()), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}

	// Publishing is best-effort. The invoice is already durable; a broker
	// hiccup must not fail the request.
	if err := s.publisher.InvoiceCreated(ctx, invoice); err != nil {
		logger.Warn("Failed to publish invoice created event", slog.String("invoice_id", invoice.ID.String()), slog.String("error", err.Error()))
	}

	logger.Info("Invoice created", slog.String("invoice_id", invoice.ID.String()), slog.String("issued_by", invoice.IssuedBy.String()))
	return &invoice, nil
}

// Pay applies a synchronous settlement against the invoice and returns the
// amount actually applied, capped at the remaining balance. A settlement that
// covers the remainder flips the invoice to PAID under a version check; a
// partial settlement mutates nothing here, the external payment ledger owns
// partial progress. Positive paymentAmount is a precondition enforced at the
// transport boundary.
func (s *invoiceService) Pay(ctx context.Context, req dto.PaymentRequest, caller domain.Caller) (decimal.Decimal, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	for attempt := 0; ; attempt++ {
		invoice, err := s.invoiceRepo.FindInvoiceByID(ctx, req.InvoiceID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return decimal.Zero, apperrors.NewNotFoundByID(req.InvoiceID.String())
			}
			logger.Error("Failed to load invoice for payment", slog.String("invoice_id", req.InvoiceID.String()), slog.String("error", err.Error()))
			return decimal.Zero, fmt.Errorf("failed to load invoice %s: %w", req.InvoiceID, err)
		}

		if err := requireAdminOrParticipant(caller, invoice); err != nil {
			logger.Warn("Authorization failed for Pay", slog.String("username", caller.Username), slog.String("invoice_id", req.InvoiceID.String()))
			return decimal.Zero, err
		}

		if invoice.Status == domain.StatusPaid {
			return decimal.Zero, fmt.Errorf("%w: invoice %s is already paid", apperrors.ErrInvalidState, invoice.ID)
		}

		remaining := invoice.Amount.Sub(req.AlreadyPaid)
		if remaining.LessThanOrEqual(decimal.Zero) {
			return decimal.Zero, fmt.Errorf("%w: invoice %s is already fully paid", apperrors.ErrInvalidState, invoice.ID)
		}

		paidNow := decimal.Min(req.Amount, remaining)
		if paidNow.LessThan(remaining) {
			// Partial payment: the aggregate stays untouched.
			logger.Info("Partial payment accepted", slog.String("invoice_id", invoice.ID.String()), slog.String("paid_now", paidNow.String()))
			return paidNow, nil
		}

		invoice.Status = domain.StatusPaid
		invoice.Updated = time.Now().UTC()
		err = s.invoiceRepo.UpdateInvoiceWithVersion(ctx, *invoice)
		if err == nil {
			if pubErr := s.publisher.InvoicePaid(ctx, *invoice); pubErr != nil {
				logger.Warn("Failed to publish invoice paid event", slog.String("invoice_id", invoice.ID.String()), slog.String("error", pubErr.Error()))
			}
			logger.Info("Invoice settled", slog.String("invoice_id", invoice.ID.String()), slog.String("paid_now", paidNow.String()))
			return paidNow, nil
		}
		if errors.Is(err, apperrors.ErrConflict) && attempt < maxConflictRetries {
			// A concurrent writer bumped the version. Reload and re-evaluate;
			// the invoice may meanwhile have been settled by someone else.
			logger.Debug("Retrying payment after version conflict", slog.String("invoice_id", invoice.ID.String()), slog.Int("attempt", attempt+1))
			continue
		}
		logger.Error("Failed to persist payment", slog.String("invoice_id", invoice.ID.String()), slog.String("error", err.Error()))
		return decimal.Zero, fmt.Errorf("failed to settle invoice %s: %w", invoice.ID, err)
	}
}

// FinalizePayment attaches a confirmed payment id to the invoice. The broker
// delivers at-least-once and unordered, so the whole path must be idempotent:
// an already-attached id is a true no-op, persisting nothing and bumping no
// version.
func (s *invoiceService) FinalizePayment(ctx context.Context, event dto.NewPaymentID) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	for attempt := 0; ; attempt++ {
		invoice, err := s.invoiceRepo.FindInvoiceByID(ctx, event.InvoiceID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return apperrors.NewNotFoundByID(event.InvoiceID.String())
			}
			logger.Error("Failed to load invoice for payment confirmation", slog.String("invoice_id", event.InvoiceID.String()), slog.String("error", err.Error()))
			return fmt.Errorf("failed to load invoice %s: %w", event.InvoiceID, err)
		}

		if !invoice.AttachPayment(event.PaymentID) {
			// Duplicate delivery. Leave the aggregate, and its version, alone.
			logger.Debug("Payment already attached", slog.String("invoice_id", invoice.ID.String()), slog.String("payment_id", event.PaymentID.String()))
			return nil
		}

		invoice.Updated = time.Now().UTC()
		err = s.invoiceRepo.UpdateInvoiceWithVersion(ctx, *invoice)
		if err == nil {
			logger.Info("Payment attached", slog.String("invoice_id", invoice.ID.String()), slog.String("payment_id", event.PaymentID.String()))
			return nil
		}
		if errors.Is(err, apperrors.ErrConflict) && attempt < maxConflictRetries {
			logger.Debug("Retrying payment confirmation after version conflict", slog.String("invoice_id", invoice.ID.String()), slog.Int("attempt", attempt+1))
			continue
		}
		logger.Error("Failed to persist payment confirmation", slog.String("invoice_id", invoice.ID.String()), slog.String("error", err.Error()))
		return fmt.Errorf("failed to attach payment %s to invoice %s: %w", event.PaymentID, event.InvoiceID, err)
	}
}
