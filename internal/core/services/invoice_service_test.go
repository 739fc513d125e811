package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/omnixys/invoice-service/internal/apperrors"
	"github.com/omnixys/invoice-service/internal/core/domain"
	portsrepo "github.com/omnixys/invoice-service/internal/core/ports/repositories"
	portssvc "github.com/omnixys/invoice-service/internal/core/ports/services"
	"github.com/omnixys/invoice-service/internal/core/queries"
	"github.com/omnixys/invoice-service/internal/core/services"
	"github.com/omnixys/invoice-service/internal/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// --- Mock InvoiceRepository ---
type MockInvoiceRepository struct {
	mock.Mock
}

// Ensure MockInvoiceRepository implements portsrepo.InvoiceRepositoryWithTx
var _ portsrepo.InvoiceRepositoryWithTx = (*MockInvoiceRepository)(nil)

func (m *MockInvoiceRepository) FindInvoiceByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindAllInvoices(ctx context.Context) ([]domain.Invoice, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindInvoices(ctx context.Context, predicate *queries.Predicate) ([]domain.Invoice, error) {
	args := m.Called(ctx, predicate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByParticipant(ctx context.Context, personID uuid.UUID) ([]domain.Invoice, error) {
	args := m.Called(ctx, personID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByIssuerAndStatus(ctx context.Context, personID uuid.UUID, status domain.StatusType) ([]domain.Invoice, error) {
	args := m.Called(ctx, personID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByRecipientAndStatus(ctx context.Context, personID uuid.UUID, status domain.StatusType) ([]domain.Invoice, error) {
	args := m.Called(ctx, personID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByParticipantAndOptionalStatus(ctx context.Context, personID uuid.UUID, status *domain.StatusType) ([]domain.Invoice, error) {
	args := m.Called(ctx, personID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) ListInvoices(ctx context.Context, limit int, nextToken *string) ([]domain.Invoice, *string, error) {
	args := m.Called(ctx, limit, nextToken)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	var returnedToken *string
	if args.Get(1) != nil {
		tokenVal := args.Get(1).(string)
		returnedToken = &tokenVal
	}
	return args.Get(0).([]domain.Invoice), returnedToken, args.Error(2)
}

func (m *MockInvoiceRepository) SaveInvoice(ctx context.Context, invoice domain.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) UpdateInvoiceWithVersion(ctx context.Context, invoice domain.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Tx), args.Error(1)
}

func (m *MockInvoiceRepository) Commit(ctx context.Context, tx pgx.Tx) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockInvoiceRepository) Rollback(ctx context.Context, tx pgx.Tx) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

// --- Mock PaymentClient ---
type MockPaymentClient struct {
	mock.Mock
}

var _ portssvc.PaymentClientSvc = (*MockPaymentClient)(nil)

func (m *MockPaymentClient) FetchPayments(ctx context.Context, paymentIDs []uuid.UUID, token string) ([]domain.Payment, error) {
	args := m.Called(ctx, paymentIDs, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Payment), args.Error(1)
}

// --- Mock Publisher ---
type MockPublisher struct {
	mock.Mock
}

var _ portssvc.InvoiceEventPublisherSvc = (*MockPublisher)(nil)

func (m *MockPublisher) InvoiceCreated(ctx context.Context, invoice domain.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockPublisher) InvoicePaid(ctx context.Context, invoice domain.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

// --- Test Suite ---
type InvoiceServiceTestSuite struct {
	suite.Suite
	mockRepo      *MockInvoiceRepository
	mockPayments  *MockPaymentClient
	mockPublisher *MockPublisher
	service       portssvc.InvoiceSvcFacade

	admin    domain.Caller
	issuer   domain.Caller
	stranger domain.Caller
	invoice  domain.Invoice
}

func (suite *InvoiceServiceTestSuite) SetupTest() {
	suite.mockRepo = new(MockInvoiceRepository)
	suite.mockPayments = new(MockPaymentClient)
	suite.mockPublisher = new(MockPublisher)
	suite.service = services.NewInvoiceService(suite.mockRepo, suite.mockPayments, suite.mockPublisher)

	issuerID := uuid.New()
	suite.admin = domain.Caller{Username: "admin", PersonID: uuid.New(), Roles: []domain.Role{domain.RoleAdmin}}
	suite.issuer = domain.Caller{Username: "issuer", PersonID: issuerID, Roles: []domain.Role{domain.RoleUser}}
	suite.stranger = domain.Caller{Username: "stranger", PersonID: uuid.New(), Roles: []domain.Role{domain.RoleUser}}

	now := time.Now().UTC()
	suite.invoice = domain.Invoice{
		ID:         uuid.New(),
		Version:    1,
		InfoType:   domain.InfoInvoices,
		Amount:     decimal.NewFromInt(100),
		Status:     domain.StatusPending,
		DueDate:    now.Add(30 * 24 * time.Hour),
		IssuedBy:   issuerID,
		BilledTo:   uuid.New(),
		PaymentIDs: []uuid.UUID{},
		Created:    now,
		Updated:    now,
	}
}

func (suite *InvoiceServiceTestSuite) invoiceCopy() *domain.Invoice {
	inv := suite.invoice
	inv.PaymentIDs = append([]uuid.UUID{}, suite.invoice.PaymentIDs...)
	return &inv
}

// --- Pay ---

func (suite *InvoiceServiceTestSuite) TestPay_CappedAtRemaining_SetsPaid() {
	ctx := context.Background()
	suite.mockRepo.On("FindInvoiceByID", ctx, suite.invoice.ID).Return(suite.invoiceCopy(), nil).Once()
	suite.mockRepo.On("UpdateInvoiceWithVersion", ctx, mock.MatchedBy(func(inv domain.Invoice) bool {
		return inv.Status == domain.StatusPaid && inv.Version == 1
	})).Return(nil).Once()
	suite.mockPublisher.On("InvoicePaid", ctx, mock.AnythingOfType("domain.Invoice")).Return(nil).Once()

	paidNow, err := suite.service.Pay(ctx, dto.PaymentRequest{
		InvoiceID:   suite.invoice.ID,
		Amount:      decimal.NewFromInt(80),
		AlreadyPaid: decimal.NewFromInt(40),
	}, suite.admin)

	suite.Require().NoError(err)
	suite.True(paidNow.Equal(decimal.NewFromInt(60)), "paidNow should be capped at the remaining 60, got %s", paidNow)
	suite.mockRepo.AssertExpectations(suite.T())
	suite.mockPublisher.AssertExpectations(suite.T())
}

func (suite *InvoiceServiceTestSuite) TestPay_Partial_NoMutation() {
	ctx := context.Background()
	suite.mockRepo.On("FindInvoiceByID", ctx, suite.invoice.ID).Return(suite.invoiceCopy(), nil).Once()

	paidNow, err := suite.service.Pay(ctx, dto.PaymentRequest{
		InvoiceID:   suite.invoice.ID,
		Amount:      decimal.NewFromInt(30),
		AlreadyPaid: decimal.NewFromInt(40),
	}, suite.admin)

	suite.Require().NoError(err)
	suite.True(paidNow.Equal(decimal.NewFromInt(30)))
	suite.mockRepo.AssertNotCalled(suite.T(), "UpdateInvoiceWithVersion", mock.Anything, mock.Anything)
	suite.mockPublisher.AssertNotCalled(suite.T(), "InvoicePaid", mock.Anything, mock.Anything)
}

func (suite *InvoiceServiceTestSuite) TestPay_AlreadyPaidStatus_InvalidState() {
	ctx := context.Background()
	paid := suite.invoiceCopy()
	paid.Status = domain.StatusPaid
	suite.mockRepo.On("FindInvoiceByID", ctx, suite.invoice.ID).Return(paid, nil).Once()

	_, err := suite.service.Pay(ctx, dto.PaymentRequest{
		InvoiceID:   suite.invoice.ID,
		Amount:      decimal.NewFromInt(10),
		AlreadyPaid: decimal.Zero,
	}, suite.admin)

	suite.ErrorIs(err, apperrors.ErrInvalidState)
}

func (suite *InvoiceServiceTestSuite) TestPay_FullyCovered_InvalidState() {
	ctx := context.Background()
	suite.mockRepo.On("FindInvoiceByID", ctx, suite.invoice.ID).Return(suite.invoiceCopy(), nil).Once()

	_, err := suite.service.Pay(ctx, dto.PaymentRequest{
		InvoiceID:   suite.invoice.ID,
		Amount:      decimal.NewFromInt(10),
		AlreadyPaid: decimal.NewFromInt(100),
	}, suite.admin)

	suite.ErrorIs(err, apperrors.ErrInvalidState)
}

func (suite *InvoiceServiceTestSuite) TestPay_NotFound() {
	ctx := context.Background()
	id := uuid.New()
	suite.mockRepo.On("FindInvoiceByID", ctx, id).Return(nil, apperrors.ErrNotFound).Once()

	_, err := suite.service.Pay(ctx, dto.PaymentRequest{
		InvoiceID: id,
		Amount:    decimal.NewFromInt(10),
	}, suite.admin)

	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *InvoiceServiceTestSuite) TestPay_Forbidden() {
	ctx := context.Background()
	suite.mockRepo.On("FindInvoiceByID", ctx, suite.invoice.ID).Return(suite.invoiceCopy(), nil).Once()

	_, err := suite.service.Pay(ctx, dto.PaymentRequest{
		InvoiceID: suite.invoice.ID,
		Amount:    decimal.NewFromInt(10),
	}, suite.stranger)

	suite.ErrorIs(err, apperrors.ErrForbidden)
	suite.mockRepo.AssertNotCalled(suite.T(), "UpdateInvoiceWithVersion", mock.Anything, mock.Anything)
}

func (suite *InvoiceServiceTestSuite) TestPay_RetriesOnVersionConflict() {
	ctx := context.Background()
	suite.mockRepo.On("FindInvoiceByID", ctx, suite.invoice.ID).Return(suite.invoiceCopy(), nil).Twice()
	suite.mockRepo.On("UpdateInvoiceWithVersion", ctx, mock.AnythingOfType("domain.Invoice")).Return(apperrors.ErrConflict).Once()
	suite.mockRepo.On("UpdateInvoiceWithVersion", ctx, mock.AnythingOfType("domain.Invoice")).Return(nil).Once()
	suite.mockPublisher.On("InvoicePaid", ctx, mock.AnythingOfType("domain.Invoice")).Return(nil).Once()

	paidNow, err := suite.service.Pay(ctx, dto.PaymentRequest{
		InvoiceID:   suite.invoice.ID,
		Amount:      decimal.NewFromInt(100),
		AlreadyPaid: decimal.Zero,
	}, suite.admin)

	suite.Require().NoError(err)
	suite.True(paidNow.Equal(decimal.NewFromInt(100)))
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *InvoiceServiceTestSuite) TestPay_ConcurrentSettlement_SecondCallInvalidState() {
	// First attempt loses the version race; on reload the invoice is already
	// PAID, so the retry surfaces InvalidState instead of double-settling.
	ctx := context.Background()
	paid := suite.invoiceCopy()
	paid.Status = domain.StatusPaid
	paid.Version = 2
	suite.mockRepo.On("FindInvoiceByID", ctx, suite.invoice.ID).Return(suite.invoiceCopy(), nil).Once()
	suite.mockRepo.On("UpdateInvoiceWithVersion", ctx, mock.AnythingOfType("domain.Invoice")).Return(apperrors.ErrConflict).Once()
	suite.mockRepo.On("FindInvoiceByID", ctx, suite.invoice.ID).Return(paid, nil).Once()

	_, err := suite.service.Pay(ctx, dto.PaymentRequest{
		InvoiceID:   suite.invoice.ID,
		Amount:      decimal.NewFromInt(100),
		AlreadyPaid: decimal.Zero,
	}, suite.admin)

	suite.ErrorIs(err, apperrors.ErrInvalidState)
}

// --- FinalizePayment ---

func (suite *InvoiceServiceTestSuite) TestFinalizePayment_AttachesAndPersists() {
	ctx := context.Background()
	paymentID := uuid.New()
	suite.mockRepo.On("FindInvoiceByID", ctx, suite.invoice.ID).Return(suite.invoiceCopy(), nil).Once()
	suite.mockRepo.On("UpdateInvoiceWithVersion", ctx, mock.MatchedBy(func(inv domain.Invoice) bool {
		return len(inv.PaymentIDs) == 1 && inv.PaymentIDs[0] == paymentID
	})).Return(nil).Once()

	err := suite.service.FinalizePayment(ctx, dto.NewPaymentID{PaymentID: paymentID, InvoiceID: suite.invoice.ID})

	suite.Require().NoError(err)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *InvoiceServiceTestSuite) TestFinalizePayment_DuplicateIsInert() {
	ctx := context.Background()
	paymentID := uuid.New()
	withPayment := suite.invoiceCopy()
	withPayment.PaymentIDs = []uuid.UUID{paymentID}
	suite.mockRepo.On("FindInvoiceByID", ctx, suite.invoice.ID).Return(withPayment, nil).Once()

	err := suite.service.FinalizePayment(ctx, dto.NewPaymentID{PaymentID: paymentID, InvoiceID: suite.invoice.ID})

	suite.Require().NoError(err)
	// A duplicate delivery must not persist anything or bump the version.
	suite.mockRepo.AssertNotCalled(suite.T(), "UpdateInvoiceWithVersion", mock.Anything, mock.Anything)
}

func (suite *InvoiceServiceTestSuite) TestFinalizePayment_DuplicateDeliveryConverges() {
	ctx := context.Background()
	paymentID := uuid.New()

	stored := suite.invoiceCopy()
	suite.mockRepo.On("FindInvoiceByID", ctx, suite.invoice.ID).Return(stored, nil).Once()
	suite.mockRepo.On("UpdateInvoiceWithVersion", ctx, mock.AnythingOfType("domain.Invoice")).Run(func(args mock.Arguments) {
		persisted := args.Get(1).(domain.Invoice)
		persisted.Version++
		*stored = persisted
	}).Return(nil).Once()

	event := dto.NewPaymentID{PaymentID: paymentID, InvoiceID: suite.invoice.ID}
	suite.Require().NoError(suite.service.FinalizePayment(ctx, event))

	// Redeliver the same event against the updated aggregate.
	suite.mockRepo.On("FindInvoiceByID", ctx, suite.invoice.ID).Return(stored, nil).Once()
	suite.Require().NoError(suite.service.FinalizePayment(ctx, event))

	suite.Equal([]uuid.UUID{paymentID}, stored.PaymentIDs)
	suite.Equal(int64(2), stored.Version)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *InvoiceServiceTestSuite) TestFinalizePayment_MissingInvoiceIsHardFailure() {
	ctx := context.Background()
	id := uuid.New()
	suite.mockRepo.On("FindInvoiceByID", ctx, id).Return(nil, apperrors.ErrNotFound).Once()

	err := suite.service.FinalizePayment(ctx, dto.NewPaymentID{PaymentID: uuid.New(), InvoiceID: id})
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

// --- CreateInvoice ---

func (suite *InvoiceServiceTestSuite) TestCreateInvoice_Success() {
	ctx := context.Background()
	req := dto.CreateInvoiceRequest{
		Amount:   decimal.NewFromInt(250),
		DueDate:  time.Now().UTC().Add(14 * 24 * time.Hour),
		IssuedBy: uuid.New(),
		BilledTo: uuid.New(),
	}
	suite.mockRepo.On("SaveInvoice", ctx, mock.MatchedBy(func(inv domain.Invoice) bool {
		return inv.Status == domain.StatusPending && inv.Version == 1 && len(inv.PaymentIDs) == 0
	})).Return(nil).Once()
	suite.mockPublisher.On("InvoiceCreated", ctx, mock.AnythingOfType("domain.Invoice")).Return(nil).Once()

	invoice, err := suite.service.CreateInvoice(ctx, req, suite.admin)

	suite.Require().NoError(err)
	suite.Equal(domain.StatusPending, invoice.Status)
	suite.Equal(domain.InfoInvoices, invoice.InfoType)
	suite.mockRepo.AssertExpectations(suite.T())
	suite.mockPublisher.AssertExpectations(suite.T())
}

func (suite *InvoiceServiceTestSuite) TestCreateInvoice_ValidationFailures() {
	ctx := context.Background()

	_, err := suite.service.CreateInvoice(ctx, dto.CreateInvoiceRequest{
		Amount:   decimal.NewFromInt(-5),
		DueDate:  time.Now(),
		IssuedBy: uuid.New(),
		BilledTo: uuid.New(),
	}, suite.admin)
	suite.ErrorIs(err, apperrors.ErrValidation)

	same := uuid.New()
	_, err = suite.service.CreateInvoice(ctx, dto.CreateInvoiceRequest{
		Amount:   decimal.NewFromInt(5),
		DueDate:  time.Now(),
		IssuedBy: same,
		BilledTo: same,
	}, suite.admin)
	suite.ErrorIs(err, apperrors.ErrValidation)

	suite.mockRepo.AssertNotCalled(suite.T(), "SaveInvoice", mock.Anything, mock.Anything)
}

func (suite *InvoiceServiceTestSuite) TestCreateInvoice_PublishFailureDoesNotFailRequest() {
	ctx := context.Background()
	req := dto.CreateInvoiceRequest{
		Amount:   decimal.NewFromInt(10),
		DueDate:  time.Now().UTC(),
		IssuedBy: uuid.New(),
		BilledTo: uuid.New(),
	}
	suite.mockRepo.On("SaveInvoice", ctx, mock.AnythingOfType("domain.Invoice")).Return(nil).Once()
	suite.mockPublisher.On("InvoiceCreated", ctx, mock.AnythingOfType("domain.Invoice")).Return(assert.AnError).Once()

	_, err := suite.service.CreateInvoice(ctx, req, suite.admin)
	suite.NoError(err)
}

// --- Queries ---

func (suite *InvoiceServiceTestSuite) TestFindInvoices_RequiresKnownRole() {
	ctx := context.Background()
	basic := domain.Caller{Username: "basic", PersonID: uuid.New(), Roles: []domain.Role{domain.RoleBasic}}

	_, err := suite.service.FindInvoices(ctx, queries.Criteria{}, basic)

	suite.ErrorIs(err, apperrors.ErrForbidden)
	var forbidden *apperrors.ForbiddenError
	suite.Require().ErrorAs(err, &forbidden)
	suite.Equal("basic", forbidden.Username)
	suite.Equal([]string{"BASIC"}, forbidden.Roles)
}

func (suite *InvoiceServiceTestSuite) TestFindInvoices_UserRoleAllowed() {
	ctx := context.Background()
	all := []domain.Invoice{suite.invoice}
	suite.mockRepo.On("FindAllInvoices", ctx).Return(all, nil).Once()

	invoices, err := suite.service.FindInvoices(ctx, queries.Criteria{}, suite.issuer)

	suite.Require().NoError(err)
	suite.Equal(all, invoices)
}

func (suite *InvoiceServiceTestSuite) TestFindInvoices_EmptyCriteriaReturnsAll() {
	ctx := context.Background()
	all := []domain.Invoice{suite.invoice}
	suite.mockRepo.On("FindAllInvoices", ctx).Return(all, nil).Once()

	invoices, err := suite.service.FindInvoices(ctx, queries.Criteria{}, suite.admin)

	suite.Require().NoError(err)
	suite.Equal(all, invoices)
}

func (suite *InvoiceServiceTestSuite) TestFindInvoices_BrokenFilterIsNotFound() {
	ctx := context.Background()

	_, err := suite.service.FindInvoices(ctx, queries.Criteria{"status": {"bogus"}}, suite.admin)

	suite.ErrorIs(err, apperrors.ErrNotFound)
	suite.mockRepo.AssertNotCalled(suite.T(), "FindInvoices", mock.Anything, mock.Anything)
}

func (suite *InvoiceServiceTestSuite) TestFindInvoices_ZeroRowsIsNotFound() {
	ctx := context.Background()
	suite.mockRepo.On("FindInvoices", ctx, mock.AnythingOfType("*queries.Predicate")).Return([]domain.Invoice{}, nil).Once()

	_, err := suite.service.FindInvoices(ctx, queries.Criteria{"status": {"PENDING"}}, suite.admin)

	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *InvoiceServiceTestSuite) TestFindInvoicesByCustomer_SelfAccessAllowed() {
	ctx := context.Background()
	results := []domain.Invoice{suite.invoice}
	suite.mockRepo.On("FindByParticipant", ctx, suite.issuer.PersonID).Return(results, nil).Once()

	invoices, err := suite.service.FindInvoicesByCustomer(ctx, suite.issuer.PersonID, queries.Criteria{}, suite.issuer)

	suite.Require().NoError(err)
	suite.Equal(results, invoices)
}

func (suite *InvoiceServiceTestSuite) TestFindInvoicesByCustomer_StrangerForbidden() {
	ctx := context.Background()

	_, err := suite.service.FindInvoicesByCustomer(ctx, suite.issuer.PersonID, queries.Criteria{}, suite.stranger)

	suite.ErrorIs(err, apperrors.ErrForbidden)
}

func (suite *InvoiceServiceTestSuite) TestFindInvoicesByCustomer_ExtraCriteriaNarrow() {
	ctx := context.Background()
	suite.mockRepo.On("FindInvoices", ctx, mock.MatchedBy(func(p *queries.Predicate) bool {
		return p != nil && len(p.AnyGroups) == 1 && len(p.All) == 1
	})).Return([]domain.Invoice{suite.invoice}, nil).Once()

	_, err := suite.service.FindInvoicesByCustomer(ctx, suite.issuer.PersonID, queries.Criteria{"status": {"PENDING"}}, suite.admin)
	suite.NoError(err)
}

func (suite *InvoiceServiceTestSuite) TestGetInvoiceByID_ParticipantAllowed_StrangerForbidden() {
	ctx := context.Background()
	suite.mockRepo.On("FindInvoiceByID", ctx, suite.invoice.ID).Return(suite.invoiceCopy(), nil).Twice()

	invoice, err := suite.service.GetInvoiceByID(ctx, suite.invoice.ID, suite.issuer)
	suite.Require().NoError(err)
	suite.Equal(suite.invoice.ID, invoice.ID)

	_, err = suite.service.GetInvoiceByID(ctx, suite.invoice.ID, suite.stranger)
	suite.ErrorIs(err, apperrors.ErrForbidden)
}

// --- Aggregations ---

func (suite *InvoiceServiceTestSuite) TestTotalInfo_OverInvoices() {
	ctx := context.Background()
	second := suite.invoice
	second.ID = uuid.New()
	second.Amount = decimal.NewFromInt(50)
	suite.mockRepo.On("FindByIssuerAndStatus", ctx, suite.issuer.PersonID, domain.StatusPending).Return([]domain.Invoice{suite.invoice, second}, nil).Once()

	info, err := suite.service.TotalInfo(ctx, true, suite.issuer.PersonID, domain.InfoInvoices, "PENDING", suite.issuer)

	suite.Require().NoError(err)
	suite.Equal(2, info.Count)
	suite.True(info.TotalAmount.Equal(decimal.NewFromInt(150)))
	suite.mockPayments.AssertNotCalled(suite.T(), "FetchPayments", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *InvoiceServiceTestSuite) TestTotalInfo_OverPayments() {
	ctx := context.Background()
	paymentID := uuid.New()
	withPayment := suite.invoice
	withPayment.PaymentIDs = []uuid.UUID{paymentID}
	suite.mockRepo.On("FindByRecipientAndStatus", ctx, suite.issuer.PersonID, domain.StatusPaid).Return([]domain.Invoice{withPayment}, nil).Once()
	suite.mockPayments.On("FetchPayments", ctx, []uuid.UUID{paymentID}, "").Return([]domain.Payment{
		{ID: paymentID, Amount: decimal.NewFromInt(75), CreatedAt: time.Now()},
	}, nil).Once()

	info, err := suite.service.TotalInfo(ctx, false, suite.issuer.PersonID, domain.InfoPayments, "P", suite.issuer)

	suite.Require().NoError(err)
	suite.Equal(1, info.Count)
	suite.True(info.TotalAmount.Equal(decimal.NewFromInt(75)))
}

func (suite *InvoiceServiceTestSuite) TestPaymentInfo_NoPayments() {
	ctx := context.Background()
	suite.mockRepo.On("FindInvoiceByID", ctx, suite.invoice.ID).Return(suite.invoiceCopy(), nil).Once()

	info, err := suite.service.PaymentInfo(ctx, suite.invoice.ID, suite.issuer)

	suite.Require().NoError(err)
	suite.Equal(0, info.Count)
	suite.True(info.TotalAmount.IsZero())
	suite.mockPayments.AssertNotCalled(suite.T(), "FetchPayments", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *InvoiceServiceTestSuite) TestInfoByCustomer_PaymentLookupFailureIsNotFound() {
	ctx := context.Background()
	paymentID := uuid.New()
	withPayment := suite.invoice
	withPayment.PaymentIDs = []uuid.UUID{paymentID}
	suite.mockRepo.On("FindByParticipantAndOptionalStatus", ctx, suite.issuer.PersonID, (*domain.StatusType)(nil)).Return([]domain.Invoice{withPayment}, nil).Once()
	suite.mockPayments.On("FetchPayments", ctx, []uuid.UUID{paymentID}, "").Return(nil, apperrors.NewNotFoundWithReason("payments could not be retrieved")).Once()

	_, err := suite.service.InfoByCustomer(ctx, suite.issuer.PersonID, domain.InfoPayments, "", suite.issuer)

	suite.ErrorIs(err, apperrors.ErrNotFound)
	suite.EqualError(err, "payments could not be retrieved")
}

func TestInvoiceServiceTestSuite(t *testing.T) {
	suite.Run(t, new(InvoiceServiceTestSuite))
}
