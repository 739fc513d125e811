package pgsql

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/omnixys/invoice-service/internal/apperrors"
	"github.com/omnixys/invoice-service/internal/core/domain"
	portsrepo "github.com/omnixys/invoice-service/internal/core/ports/repositories"
	"github.com/omnixys/invoice-service/internal/core/queries"
	"github.com/omnixys/invoice-service/internal/models"
	"github.com/omnixys/invoice-service/internal/utils/mapping"
	"github.com/omnixys/invoice-service/internal/utils/pagination"
)

const invoiceColumns = `invoice_id, version, info_type, amount, status, due_date, issued_by, billed_to, payments, created, updated`

type PgxInvoiceRepository struct {
	BaseRepository
}

// newPgxInvoiceRepository creates a new repository for invoice data.
func newPgxInvoiceRepository(pool *pgxpool.Pool) portsrepo.InvoiceRepositoryWithTx {
	return &PgxInvoiceRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure PgxInvoiceRepository implements portsrepo.InvoiceRepositoryWithTx
var _ portsrepo.InvoiceRepositoryWithTx = (*PgxInvoiceRepository)(nil)

// SaveInvoice persists a new invoice row at version 1.
func (r *PgxInvoiceRepository) SaveInvoice(ctx context.Context, invoice domain.Invoice) error {
	m := mapping.ToModelInvoice(invoice)
	query := `
		INSERT INTO invoices (` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
	`
	_, err := r.Pool.Exec(ctx, query,
		m.ID,
		m.Version,
		m.InfoType,
		m.Amount,
		m.Status,
		m.DueDate,
		m.IssuedBy,
		m.BilledTo,
		m.PaymentsStr,
		m.Created,
		m.Updated,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique violation
			return fmt.Errorf("%w: invoice with ID %s already exists", apperrors.ErrDuplicate, m.ID)
		}
		return fmt.Errorf("failed to save invoice %s: %w", m.ID, err)
	}
	return nil
}

// UpdateInvoiceWithVersion persists a mutation guarded by a compare-and-swap
// on the version column. The row is only written when the stored version
// still equals invoice.Version; a concurrent writer that got there first
// leaves this write with zero affected rows, reported as ErrConflict.
func (r *PgxInvoiceRepository) UpdateInvoiceWithVersion(ctx context.Context, invoice domain.Invoice) error {
	m := mapping.ToModelInvoice(invoice)
	query := `
		UPDATE invoices
		SET version = version + 1,
		    amount = $1,
		    status = $2,
		    due_date = $3,
		    payments = $4,
		    updated = $5
		WHERE invoice_id = $6 AND version = $7;
	`
	cmdTag, err := r.Pool.Exec(ctx, query,
		m.Amount,
		m.Status,
		m.DueDate,
		m.PaymentsStr,
		m.Updated,
		m.ID,
		m.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update invoice %s: %w", m.ID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		// Either the row is gone or someone bumped the version first. Re-check
		// so the caller gets the right signal.
		exists, checkErr := r.invoiceExists(ctx, invoice.ID)
		if checkErr != nil {
			return checkErr
		}
		if !exists {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("%w: invoice %s version %d is stale", apperrors.ErrConflict, m.ID, m.Version)
	}
	return nil
}

func (r *PgxInvoiceRepository) invoiceExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM invoices WHERE invoice_id = $1);`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check invoice %s: %w", id, err)
	}
	return exists, nil
}

// FindInvoiceByID retrieves an invoice by its ID.
func (r *PgxInvoiceRepository) FindInvoiceByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE invoice_id = $1;`

	var m models.Invoice
	err := r.Pool.QueryRow(ctx, query, id).Scan(
		&m.ID,
		&m.Version,
		&m.InfoType,
		&m.Amount,
		&m.Status,
		&m.DueDate,
		&m.IssuedBy,
		&m.BilledTo,
		&m.PaymentsStr,
		&m.Created,
		&m.Updated,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find invoice by ID %s: %w", id, err)
	}

	d, err := mapping.ToDomainInvoice(m)
	if err != nil {
		return nil, apperrors.NewAppError(500, "corrupt payment encoding on invoice "+id.String(), err)
	}
	return &d, nil
}

// FindAllInvoices retrieves every invoice, oldest first.
func (r *PgxInvoiceRepository) FindAllInvoices(ctx context.Context) ([]domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices ORDER BY created ASC, invoice_id ASC;`
	return r.queryInvoices(ctx, query)
}

// FindInvoices retrieves all invoices matching the composed predicate. A nil
// predicate means no filter at all.
func (r *PgxInvoiceRepository) FindInvoices(ctx context.Context, predicate *queries.Predicate) ([]domain.Invoice, error) {
	if predicate == nil {
		return r.FindAllInvoices(ctx)
	}

	whereClause, args := buildPredicateSQL(predicate)
	query := `SELECT ` + invoiceColumns + ` FROM invoices`
	if whereClause != "" {
		query += ` WHERE ` + whereClause
	}
	query += ` ORDER BY created ASC, invoice_id ASC;`

	return r.queryInvoices(ctx, query, args...)
}

// FindByParticipant retrieves invoices where the person is issuer or recipient.
func (r *PgxInvoiceRepository) FindByParticipant(ctx context.Context, personID uuid.UUID) ([]domain.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + ` FROM invoices
		WHERE issued_by = $1 OR billed_to = $1
		ORDER BY created ASC, invoice_id ASC;
	`
	return r.queryInvoices(ctx, query, personID)
}

// FindByIssuerAndStatus retrieves invoices issued by the person in the given status.
func (r *PgxInvoiceRepository) FindByIssuerAndStatus(ctx context.Context, personID uuid.UUID, status domain.StatusType) ([]domain.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + ` FROM invoices
		WHERE issued_by = $1 AND status = $2
		ORDER BY created ASC, invoice_id ASC;
	`
	return r.queryInvoices(ctx, query, personID, string(status))
}

// FindByRecipientAndStatus retrieves invoices billed to the person in the given status.
func (r *PgxInvoiceRepository) FindByRecipientAndStatus(ctx context.Context, personID uuid.UUID, status domain.StatusType) ([]domain.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + ` FROM invoices
		WHERE billed_to = $1 AND status = $2
		ORDER BY created ASC, invoice_id ASC;
	`
	return r.queryInvoices(ctx, query, personID, string(status))
}

// FindByParticipantAndOptionalStatus retrieves invoices where the person is a
// participant, optionally narrowed to one status.
func (r *PgxInvoiceRepository) FindByParticipantAndOptionalStatus(ctx context.Context, personID uuid.UUID, status *domain.StatusType) ([]domain.Invoice, error) {
	if status == nil {
		return r.FindByParticipant(ctx, personID)
	}
	query := `
		SELECT ` + invoiceColumns + ` FROM invoices
		WHERE (issued_by = $1 OR billed_to = $1) AND status = $2
		ORDER BY created ASC, invoice_id ASC;
	`
	return r.queryInvoices(ctx, query, personID, string(*status))
}

// ListInvoices retrieves one page of invoices, newest first, using a keyset
// cursor on (created, invoice_id).
func (r *PgxInvoiceRepository) ListInvoices(ctx context.Context, limit int, nextToken *string) ([]domain.Invoice, *string, error) {
	if limit <= 0 {
		limit = 20
	}
	fetchLimit := limit + 1 // Fetch one extra row to detect a next page

	baseQuery := `SELECT ` + invoiceColumns + ` FROM invoices`
	// Ordering must be stable; invoice_id breaks created-time ties.
	orderByClause := `ORDER BY created DESC, invoice_id DESC`

	args := []interface{}{}
	var query string
	if nextToken != nil && *nextToken != "" {
		lastCreated, lastID, decodeErr := pagination.DecodeCursorToken(*nextToken)
		if decodeErr != nil {
			return nil, nil, apperrors.NewAppError(400, "invalid nextToken", decodeErr)
		}
		args = append(args, lastCreated, lastID)
		query = baseQuery + ` WHERE (created, invoice_id) < ($1, $2) ` + orderByClause + ` LIMIT $3;`
		args = append(args, fetchLimit)
	} else {
		query = baseQuery + ` ` + orderByClause + ` LIMIT $1;`
		args = append(args, fetchLimit)
	}

	invoices, err := r.queryInvoices(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}

	var nextTokenVal *string
	if len(invoices) > limit {
		last := invoices[limit-1]
		token := pagination.EncodeCursorToken(last.Created, last.ID)
		nextTokenVal = &token
		invoices = invoices[:limit]
	}
	return invoices, nextTokenVal, nil
}

func (r *PgxInvoiceRepository) queryInvoices(ctx context.Context, query string, args ...interface{}) ([]domain.Invoice, error) {
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer rows.Close()

	modelInvoices := make([]models.Invoice, 0)
	for rows.Next() {
		var m models.Invoice
		err := rows.Scan(
			&m.ID,
			&m.Version,
			&m.InfoType,
			&m.Amount,
			&m.Status,
			&m.DueDate,
			&m.IssuedBy,
			&m.BilledTo,
			&m.PaymentsStr,
			&m.Created,
			&m.Updated,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice row: %w", err)
		}
		modelInvoices = append(modelInvoices, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invoice rows: %w", err)
	}

	invoices, err := mapping.ToDomainInvoiceSlice(modelInvoices)
	if err != nil {
		return nil, apperrors.NewAppError(500, "corrupt payment encoding in invoice rows", err)
	}
	return invoices, nil
}

// buildPredicateSQL translates a predicate into a WHERE clause over the
// invoices table. The condition set is closed, so the type switch below is
// exhaustive; a condition this switch does not know cannot be constructed.
func buildPredicateSQL(p *queries.Predicate) (string, []interface{}) {
	args := make([]interface{}, 0)
	clauses := make([]string, 0, len(p.All)+len(p.AnyGroups))

	for _, cond := range p.All {
		clauses = append(clauses, conditionSQL(cond, &args))
	}
	for _, group := range p.AnyGroups {
		parts := make([]string, 0, len(group))
		for _, cond := range group {
			parts = append(parts, conditionSQL(cond, &args))
		}
		if len(parts) > 0 {
			clauses = append(clauses, "("+strings.Join(parts, " OR ")+")")
		}
	}
	return strings.Join(clauses, " AND "), args
}

func conditionSQL(c queries.Condition, args *[]interface{}) string {
	switch cond := c.(type) {
	case queries.InfoTypeIs:
		*args = append(*args, string(cond.InfoType))
		return "info_type = " + placeholder(len(*args))
	case queries.StatusIs:
		*args = append(*args, string(cond.Status))
		return "status = " + placeholder(len(*args))
	case queries.IssuedByIs:
		*args = append(*args, cond.ID)
		return "issued_by = " + placeholder(len(*args))
	case queries.BilledToIs:
		*args = append(*args, cond.ID)
		return "billed_to = " + placeholder(len(*args))
	case queries.DueDateIs:
		*args = append(*args, cond.At)
		return "due_date = " + placeholder(len(*args))
	case queries.CreatedIs:
		*args = append(*args, cond.At)
		return "created = " + placeholder(len(*args))
	case queries.UpdatedIs:
		*args = append(*args, cond.At)
		return "updated = " + placeholder(len(*args))
	case queries.DueBefore:
		*args = append(*args, cond.At)
		return "due_date < " + placeholder(len(*args))
	case queries.DueAfter:
		*args = append(*args, cond.At)
		return "due_date > " + placeholder(len(*args))
	case queries.MinAmount:
		*args = append(*args, cond.Amount)
		return "amount >= " + placeholder(len(*args))
	case queries.MaxAmount:
		*args = append(*args, cond.Amount)
		return "amount <= " + placeholder(len(*args))
	}
	// Unreachable while the condition set stays closed.
	return "FALSE"
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}
