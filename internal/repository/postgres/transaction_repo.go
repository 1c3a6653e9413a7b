package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dafibh/ledgerly/ledgerly-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const transactionColumns = `id, user_id, amount, type, category_id, wallet_id, description, date, tags,
	transfer_id, created_at, updated_at`

// TransactionRepository implements domain.TransactionRepository using PostgreSQL
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new TransactionRepository
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

// Create creates a new transaction
func (r *TransactionRepository) Create(ctx context.Context, transaction *domain.Transaction) (*domain.Transaction, error) {
	amount, err := decimalToPgNumeric(transaction.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}

	row := conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO transactions (id, user_id, amount, type, category_id, wallet_id, description, date, tags, transfer_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+transactionColumns,
		transaction.ID, transaction.OwnerID, amount, string(transaction.Type),
		nullableUUID(transaction.CategoryID), nullableUUID(transaction.WalletID),
		transaction.Description, pgDate(transaction.Date), tagsOrEmpty(transaction.Tags),
		nullableUUID(transaction.TransferID),
	)
	created, err := scanTransaction(row)
	if err != nil {
		if isPgForeignKeyViolation(err) {
			return nil, fmt.Errorf("%w: referenced wallet or category does not exist", domain.ErrNotFound)
		}
		return nil, err
	}
	return created, nil
}

// GetByID retrieves a transaction by its ID for an owner
func (r *TransactionRepository) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*domain.Transaction, error) {
	return r.getOne(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE user_id = $1 AND id = $2`, ownerID, id)
}

// GetByIDForUpdate retrieves a transaction and locks its row until the surrounding
// database transaction ends, serializing concurrent edits of the same record.
func (r *TransactionRepository) GetByIDForUpdate(ctx context.Context, ownerID, id uuid.UUID) (*domain.Transaction, error) {
	return r.getOne(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE user_id = $1 AND id = $2 FOR UPDATE`, ownerID, id)
}

func (r *TransactionRepository) getOne(ctx context.Context, query string, ownerID, id uuid.UUID) (*domain.Transaction, error) {
	transaction, err := scanTransaction(conn(ctx, r.pool).QueryRow(ctx, query, ownerID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, err
	}
	return transaction, nil
}

// GetByOwner retrieves a filtered page of transactions, newest first
func (r *TransactionRepository) GetByOwner(ctx context.Context, ownerID uuid.UUID, filters *domain.TransactionFilters) (*domain.PaginatedTransactions, error) {
	if filters == nil {
		filters = &domain.TransactionFilters{}
	}
	where, args := transactionWhere(ownerID, filters)
	db := conn(ctx, r.pool)

	var total int64
	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM transactions WHERE `+where, args...).Scan(&total); err != nil {
		return nil, err
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = domain.DefaultPageSize
	}
	offset := int64(filters.Page) * int64(limit)

	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE %s
		ORDER BY date DESC, created_at DESC, id
		LIMIT $%d OFFSET $%d`, transactionColumns, where, len(args)+1, len(args)+2)
	rows, err := db.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := []*domain.Transaction{}
	for rows.Next() {
		transaction, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, transaction)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &domain.PaginatedTransactions{
		Data:       transactions,
		Page:       filters.Page,
		Limit:      limit,
		TotalItems: total,
	}, nil
}

func transactionWhere(ownerID uuid.UUID, filters *domain.TransactionFilters) (string, []any) {
	conds := []string{"user_id = $1"}
	args := []any{ownerID}
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filters.Type != nil {
		add("type = $%d", string(*filters.Type))
	}
	if filters.WalletID != nil {
		add("wallet_id = $%d", *filters.WalletID)
	}
	if filters.CategoryID != nil {
		add("category_id = $%d", *filters.CategoryID)
	}
	if filters.Tag != nil {
		add("$%d = ANY(tags)", *filters.Tag)
	}
	if filters.StartDate != nil {
		add("date >= $%d", pgDate(*filters.StartDate))
	}
	if filters.EndDate != nil {
		add("date <= $%d", pgDate(*filters.EndDate))
	}
	return strings.Join(conds, " AND "), args
}

// Update replaces the mutable fields of a transaction
func (r *TransactionRepository) Update(ctx context.Context, ownerID, id uuid.UUID, data *domain.UpdateTransactionData) (*domain.Transaction, error) {
	amount, err := decimalToPgNumeric(data.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}

	row := conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE transactions
		SET amount = $3, type = $4, category_id = $5, wallet_id = $6, description = $7, date = $8,
			tags = $9, updated_at = NOW()
		WHERE user_id = $1 AND id = $2
		RETURNING `+transactionColumns,
		ownerID, id, amount, string(data.Type), nullableUUID(data.CategoryID), nullableUUID(data.WalletID),
		data.Description, pgDate(data.Date), tagsOrEmpty(data.Tags),
	)
	transaction, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		if isPgForeignKeyViolation(err) {
			return nil, fmt.Errorf("%w: referenced wallet or category does not exist", domain.ErrNotFound)
		}
		return nil, err
	}
	return transaction, nil
}

// Delete removes a transaction
func (r *TransactionRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM transactions WHERE user_id = $1 AND id = $2`, ownerID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTransactionNotFound
	}
	return nil
}

// SumByTypeAndDateRange returns the income and expense totals inside an inclusive date range
func (r *TransactionRepository) SumByTypeAndDateRange(ctx context.Context, ownerID uuid.UUID, startDate, endDate time.Time) (income, expense decimal.Decimal, err error) {
	var incomeNum, expenseNum pgtype.Numeric
	err = conn(ctx, r.pool).QueryRow(ctx, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE type = 'income'), 0),
			COALESCE(SUM(amount) FILTER (WHERE type = 'expense'), 0)
		FROM transactions
		WHERE user_id = $1 AND date BETWEEN $2 AND $3`,
		ownerID, pgDate(startDate), pgDate(endDate)).Scan(&incomeNum, &expenseNum)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return pgNumericToDecimal(incomeNum), pgNumericToDecimal(expenseNum), nil
}

// GetCategoryStats groups totals by category and type. Uncategorized transactions
// form their own group with a nil category.
func (r *TransactionRepository) GetCategoryStats(ctx context.Context, ownerID uuid.UUID, startDate, endDate time.Time) ([]*domain.CategoryStat, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT t.category_id, c.name, t.type, SUM(t.amount), COUNT(*)
		FROM transactions t
		LEFT JOIN categories c ON c.id = t.category_id
		WHERE t.user_id = $1 AND t.date BETWEEN $2 AND $3
		GROUP BY t.category_id, c.name, t.type
		ORDER BY SUM(t.amount) DESC`,
		ownerID, pgDate(startDate), pgDate(endDate))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := []*domain.CategoryStat{}
	for rows.Next() {
		var (
			stat       domain.CategoryStat
			categoryID pgtype.UUID
			name       pgtype.Text
			statType   string
			total      pgtype.Numeric
		)
		if err := rows.Scan(&categoryID, &name, &statType, &total, &stat.Count); err != nil {
			return nil, err
		}
		stat.CategoryID = pgUUIDToPtr(categoryID)
		if name.Valid {
			stat.CategoryName = &name.String
		}
		stat.Type = domain.TransactionType(statType)
		stat.Total = pgNumericToDecimal(total)
		stats = append(stats, &stat)
	}
	return stats, rows.Err()
}

// SumExpensesByCategories sums expense amounts in the given categories inside an inclusive date range
func (r *TransactionRepository) SumExpensesByCategories(ctx context.Context, ownerID uuid.UUID, categoryIDs []uuid.UUID, startDate, endDate time.Time) (decimal.Decimal, error) {
	if len(categoryIDs) == 0 {
		return decimal.Zero, nil
	}

	var total pgtype.Numeric
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE user_id = $1 AND type = 'expense'
			AND category_id = ANY($2::text[]::uuid[])
			AND date BETWEEN $3 AND $4`,
		ownerID, uuidStrings(categoryIDs), pgDate(startDate), pgDate(endDate)).Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}
	return pgNumericToDecimal(total), nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		t                                domain.Transaction
		amount                           pgtype.Numeric
		txType                           string
		categoryID, walletID, transferID pgtype.UUID
		date                             pgtype.Date
		createdAt, updatedAt             pgtype.Timestamptz
	)
	err := row.Scan(
		&t.ID, &t.OwnerID, &amount, &txType, &categoryID, &walletID, &t.Description, &date, &t.Tags,
		&transferID, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Amount = pgNumericToDecimal(amount)
	t.Type = domain.TransactionType(txType)
	t.CategoryID = pgUUIDToPtr(categoryID)
	t.WalletID = pgUUIDToPtr(walletID)
	t.TransferID = pgUUIDToPtr(transferID)
	t.Date = date.Time
	t.Tags = tagsOrEmpty(t.Tags)
	t.CreatedAt = createdAt.Time
	t.UpdatedAt = updatedAt.Time
	return &t, nil
}

func pgDate(t time.Time) pgtype.Date {
	return pgtype.Date{Time: domain.DateOf(t), Valid: true}
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
