package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/omnixys/invoice-service/internal/apperrors"
	"github.com/omnixys/invoice-service/internal/core/domain"
	portssvc "github.com/omnixys/invoice-service/internal/core/ports/services"
	"github.com/omnixys/invoice-service/internal/dto"
	"github.com/omnixys/invoice-service/internal/middleware"
)

// invoiceHandler handles HTTP requests related to invoices.
type invoiceHandler struct {
	invoiceService portssvc.InvoiceSvcFacade
}

// newInvoiceHandler creates a new invoiceHandler.
func newInvoiceHandler(is portssvc.InvoiceSvcFacade) *invoiceHandler {
	return &invoiceHandler{
		invoiceService: is,
	}
}

// RegisterInvoiceRoutes registers routes related to invoices.
func RegisterInvoiceRoutes(rg *gin.RouterGroup, invoiceService portssvc.InvoiceSvcFacade) {
	h := newInvoiceHandler(invoiceService)

	invoices := rg.Group("/invoices")
	{
		invoices.POST("", h.createInvoice)
		invoices.GET("", h.findInvoices)
		invoices.GET("/page", h.listInvoices)
		invoices.GET("/:id", h.getInvoice)
		invoices.POST("/:id/pay", h.pay)
		invoices.GET("/:id/payments/info", h.paymentInfo)
		invoices.GET("/info", h.totalInfo)
		invoices.GET("/customer/:customerID", h.findInvoicesByCustomer)
		invoices.GET("/customer/:customerID/info", h.infoByCustomer)
	}
}

// bindErrorMessage flattens a binding failure into a readable message, listing
// the offending fields when gin's validator produced field-level errors.
func bindErrorMessage(err error) string {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		fields := make([]string, len(validationErrs))
		for i, fe := range validationErrs {
			fields[i] = fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag())
		}
		return "Invalid request: " + strings.Join(fields, ", ")
	}
	return "Invalid request format: " + err.Error()
}

// respondWithError maps service errors onto HTTP statuses.
func respondWithError(c *gin.Context, logger *slog.Logger, err error, action string) {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		logger.Warn("Validation error", slog.String("action", action), slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrForbidden):
		logger.Warn("Access forbidden", slog.String("action", action), slog.String("error", err.Error()))
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrNotFound):
		logger.Warn("Not found", slog.String("action", action), slog.String("error", err.Error()))
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrInvalidState):
		logger.Warn("Invalid state", slog.String("action", action), slog.String("error", err.Error()))
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrConflict):
		logger.Warn("Concurrent modification", slog.String("action", action), slog.String("error", err.Error()))
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.Error("Unexpected service error", slog.String("action", action), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// createInvoice godoc
// @Summary Create a new invoice
// @Description Creates a new invoice in status PENDING with an empty payment set
// @Tags invoices
// @Accept  json
// @Produce  json
// @Param   invoice body dto.CreateInvoiceRequest true "Invoice details"
// @Success 201 {object} dto.InvoiceResponse
// @Failure 400 {object} map[string]string "Invalid input format or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to create invoice"
// @Security BearerAuth
// @Router /invoices [post]
func (h *invoiceHandler) createInvoice(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateInvoice", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": bindErrorMessage(err)})
		return
	}

	caller, ok := middleware.RequireCaller(c)
	if !ok {
		return
	}

	invoice, err := h.invoiceService.CreateInvoice(c.Request.Context(), req, caller)
	if err != nil {
		respondWithError(c, logger, err, "createInvoice")
		return
	}

	c.JSON(http.StatusCreated, dto.ToInvoiceResponse(invoice))
}

// getInvoice godoc
// @Summary Get an invoice by ID
// @Description Retrieves a single invoice; callers without the ADMIN role must be a participant
// @Tags invoices
// @Produce  json
// @Param   id path string true "Invoice ID"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Invoice not found"
// @Security BearerAuth
// @Router /invoices/{id} [get]
func (h *invoiceHandler) getInvoice(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid invoice id"})
		return
	}

	caller, ok := middleware.RequireCaller(c)
	if !ok {
		return
	}

	invoice, err := h.invoiceService.GetInvoiceByID(c.Request.Context(), id, caller)
	if err != nil {
		respondWithError(c, logger, err, "getInvoice")
		return
	}
	c.JSON(http.StatusOK, dto.ToInvoiceResponse(invoice))
}

// findInvoices godoc
// @Summary Search invoices
// @Description Retrieves invoices matching the given criteria; requires the ADMIN or USER role. No criteria returns the full collection, a broken or unmatched filter yields 404.
// @Tags invoices
// @Produce  json
// @Param   criteria query dto.SearchCriteria false "Search criteria"
// @Success 200 {array} dto.InvoiceResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "No invoices found"
// @Security BearerAuth
// @Router /invoices [get]
func (h *invoiceHandler) findInvoices(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var criteria dto.SearchCriteria
	if err := c.ShouldBindQuery(&criteria); err != nil {
		logger.Warn("Failed to bind query for FindInvoices", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	caller, ok := middleware.RequireCaller(c)
	if !ok {
		return
	}

	invoices, err := h.invoiceService.FindInvoices(c.Request.Context(), criteria.ToCriteria(), caller)
	if err != nil {
		respondWithError(c, logger, err, "findInvoices")
		return
	}
	c.JSON(http.StatusOK, dto.ToListInvoiceResponse(invoices))
}

// listInvoices godoc
// @Summary List invoices page by page
// @Description Retrieves a cursor-paginated page of the invoice collection
// @Tags invoices
// @Produce  json
// @Param   limit query int false "Page size (default 20)"
// @Param   nextToken query string false "Cursor from the previous page"
// @Success 200 {object} dto.ListInvoicesResponse
// @Failure 400 {object} map[string]string "Invalid pagination token"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Security BearerAuth
// @Router /invoices/page [get]
func (h *invoiceHandler) listInvoices(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = parsed
	}
	var nextToken *string
	if raw := c.Query("nextToken"); raw != "" {
		nextToken = &raw
	}

	invoices, token, err := h.invoiceService.ListInvoices(c.Request.Context(), limit, nextToken)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Code == http.StatusBadRequest {
			c.JSON(http.StatusBadRequest, gin.H{"error": appErr.Message})
			return
		}
		respondWithError(c, logger, err, "listInvoices")
		return
	}
	c.JSON(http.StatusOK, dto.ListInvoicesResponse{
		Invoices:  dto.ToListInvoiceResponse(invoices),
		NextToken: token,
	})
}

// findInvoicesByCustomer godoc
// @Summary Search a customer's invoices
// @Description Retrieves invoices where the customer is issuer or recipient, optionally narrowed by extra criteria
// @Tags invoices
// @Produce  json
// @Param   customerID path string true "Customer ID"
// @Param   criteria query dto.SearchCriteria false "Extra search criteria"
// @Success 200 {array} dto.InvoiceResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "No invoices found"
// @Security BearerAuth
// @Router /invoices/customer/{customerID} [get]
func (h *invoiceHandler) findInvoicesByCustomer(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	customerID, err := uuid.Parse(c.Param("customerID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid customer id"})
		return
	}

	var criteria dto.SearchCriteria
	if err := c.ShouldBindQuery(&criteria); err != nil {
		logger.Warn("Failed to bind query for FindInvoicesByCustomer", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	caller, ok := middleware.RequireCaller(c)
	if !ok {
		return
	}

	invoices, err := h.invoiceService.FindInvoicesByCustomer(c.Request.Context(), customerID, criteria.ToCriteria(), caller)
	if err != nil {
		respondWithError(c, logger, err, "findInvoicesByCustomer")
		return
	}
	c.JSON(http.StatusOK, dto.ToListInvoiceResponse(invoices))
}

// pay godoc
// @Summary Settle an invoice
// @Description Applies a payment against the invoice and returns the amount actually applied, capped at the remaining balance
// @Tags invoices
// @Accept  json
// @Produce  json
// @Param   id path string true "Invoice ID"
// @Param   payment body dto.PaymentRequest true "Payment amount and the amount already paid"
// @Success 200 {object} dto.PaymentResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Invoice not found"
// @Failure 422 {object} map[string]string "Invoice already paid"
// @Security BearerAuth
// @Router /invoices/{id}/pay [post]
func (h *invoiceHandler) pay(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid invoice id"})
		return
	}

	var req dto.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for Pay", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": bindErrorMessage(err)})
		return
	}
	req.InvoiceID = id

	// The settlement core treats a positive amount as a precondition, so the
	// transport boundary enforces it.
	if !req.Amount.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Payment amount must be positive"})
		return
	}
	if req.AlreadyPaid.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Already-paid amount must not be negative"})
		return
	}

	caller, ok := middleware.RequireCaller(c)
	if !ok {
		return
	}

	paidNow, err := h.invoiceService.Pay(c.Request.Context(), req, caller)
	if err != nil {
		respondWithError(c, logger, err, "pay")
		return
	}
	c.JSON(http.StatusOK, dto.PaymentResponse{PaidNow: paidNow})
}

// paymentInfo godoc
// @Summary Aggregate an invoice's payments
// @Description Returns count and total amount of the invoice's confirmed payments, resolved through the payment service
// @Tags invoices
// @Produce  json
// @Param   id path string true "Invoice ID"
// @Success 200 {object} dto.InfoPayload
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Invoice or payments not found"
// @Security BearerAuth
// @Router /invoices/{id}/payments/info [get]
func (h *invoiceHandler) paymentInfo(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid invoice id"})
		return
	}

	caller, ok := middleware.RequireCaller(c)
	if !ok {
		return
	}

	info, err := h.invoiceService.PaymentInfo(c.Request.Context(), id, caller)
	if err != nil {
		respondWithError(c, logger, err, "paymentInfo")
		return
	}
	c.JSON(http.StatusOK, info)
}

// totalInfo godoc
// @Summary Aggregate a person's invoices
// @Description Returns count and total amount over the person's invoices as issuer or recipient, over the invoices themselves or their payments
// @Tags invoices
// @Produce  json
// @Param   personId query string true "Person ID"
// @Param   isIssuer query bool false "Aggregate as issuer instead of recipient"
// @Param   infoType query string false "INVOICES or PAYMENTS (default INVOICES)"
// @Param   status query string false "Status filter (name or short code)"
// @Success 200 {object} dto.InfoPayload
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Nothing to aggregate"
// @Security BearerAuth
// @Router /invoices/info [get]
func (h *invoiceHandler) totalInfo(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	personID, err := uuid.Parse(c.Query("personId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid person id"})
		return
	}
	isIssuer := c.Query("isIssuer") == "true"

	infoType := domain.InfoInvoices
	if raw := c.Query("infoType"); raw != "" {
		parsed, err := domain.ParseInfoType(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid info type"})
			return
		}
		infoType = parsed
	}

	caller, ok := middleware.RequireCaller(c)
	if !ok {
		return
	}

	info, err := h.invoiceService.TotalInfo(c.Request.Context(), isIssuer, personID, infoType, c.Query("status"), caller)
	if err != nil {
		respondWithError(c, logger, err, "totalInfo")
		return
	}
	c.JSON(http.StatusOK, info)
}

// infoByCustomer godoc
// @Summary Aggregate a customer's invoices
// @Description Returns count and total amount over all invoices the customer participates in, optionally narrowed to one status
// @Tags invoices
// @Produce  json
// @Param   customerID path string true "Customer ID"
// @Param   infoType query string false "INVOICES or PAYMENTS (default INVOICES)"
// @Param   status query string false "Status filter (name or short code)"
// @Success 200 {object} dto.InfoPayload
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Nothing to aggregate"
// @Security BearerAuth
// @Router /invoices/customer/{customerID}/info [get]
func (h *invoiceHandler) infoByCustomer(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	customerID, err := uuid.Parse(c.Param("customerID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid customer id"})
		return
	}

	infoType := domain.InfoInvoices
	if raw := c.Query("infoType"); raw != "" {
		parsed, err := domain.ParseInfoType(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid info type"})
			return
		}
		infoType = parsed
	}

	caller, ok := middleware.RequireCaller(c)
	if !ok {
		return
	}

	info, err := h.invoiceService.InfoByCustomer(c.Request.Context(), customerID, infoType, c.Query("status"), caller)
	if err != nil {
		respondWithError(c, logger, err, "infoByCustomer")
		return
	}
	c.JSON(http.StatusOK, info)
}
