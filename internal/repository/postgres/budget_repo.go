package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dafibh/ledgerly/ledgerly-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Category ids are aggregated from the join table in a stable order
const budgetSelect = `
	SELECT b.id, b.user_id, b.name, b.description, b.amount, b.period, b.start_date, b.end_date,
		b.color, b.icon, b.alert_threshold, b.notifications_enabled, b.is_active, b.created_at, b.updated_at,
		COALESCE(
			(SELECT array_agg(bc.category_id::text ORDER BY bc.category_id)
			 FROM budget_categories bc WHERE bc.budget_id = b.id),
			'{}'
		)
	FROM budgets b`

// BudgetRepository implements domain.BudgetRepository using PostgreSQL
type BudgetRepository struct {
	pool *pgxpool.Pool
}

// NewBudgetRepository creates a new BudgetRepository
func NewBudgetRepository(pool *pgxpool.Pool) *BudgetRepository {
	return &BudgetRepository{pool: pool}
}

// Create creates a budget together with its category links
func (r *BudgetRepository) Create(ctx context.Context, budget *domain.Budget) (*domain.Budget, error) {
	amount, err := decimalToPgNumeric(budget.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}

	db := conn(ctx, r.pool)
	_, err = db.Exec(ctx, `
		INSERT INTO budgets (id, user_id, name, description, amount, period, start_date, end_date,
			color, icon, alert_threshold, notifications_enabled, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		budget.ID, budget.OwnerID, budget.Name, budget.Description, amount, string(budget.Period),
		pgDate(budget.StartDate), nullableDate(budget.EndDate), budget.Color, budget.Icon,
		budget.AlertThreshold, budget.NotificationsEnabled, budget.IsActive,
	)
	if err != nil {
		return nil, err
	}

	if err := r.replaceCategories(ctx, db, budget.ID, budget.CategoryIDs); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, budget.OwnerID, budget.ID)
}

// GetByID retrieves a budget by its ID for an owner
func (r *BudgetRepository) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*domain.Budget, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, budgetSelect+` WHERE b.user_id = $1 AND b.id = $2`, ownerID, id)
	budget, err := scanBudget(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBudgetNotFound
		}
		return nil, err
	}
	return budget, nil
}

// GetAllByOwner retrieves an owner's budgets ordered by name
func (r *BudgetRepository) GetAllByOwner(ctx context.Context, ownerID uuid.UUID, includeInactive bool) ([]*domain.Budget, error) {
	return r.list(ctx, budgetSelect+` WHERE b.user_id = $1 AND ($2 OR b.is_active) ORDER BY b.name`, ownerID, includeInactive)
}

// GetAlertable retrieves active budgets with notifications enabled
func (r *BudgetRepository) GetAlertable(ctx context.Context, ownerID uuid.UUID) ([]*domain.Budget, error) {
	return r.list(ctx, budgetSelect+` WHERE b.user_id = $1 AND b.is_active AND b.notifications_enabled ORDER BY b.name`, ownerID)
}

func (r *BudgetRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Budget, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	budgets := []*domain.Budget{}
	for rows.Next() {
		budget, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		budgets = append(budgets, budget)
	}
	return budgets, rows.Err()
}

// Update replaces a budget's fields and its category links
func (r *BudgetRepository) Update(ctx context.Context, ownerID, id uuid.UUID, data *domain.UpdateBudgetData) (*domain.Budget, error) {
	amount, err := decimalToPgNumeric(data.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}

	db := conn(ctx, r.pool)
	tag, err := db.Exec(ctx, `
		UPDATE budgets
		SET name = $3, description = $4, amount = $5, period = $6, start_date = $7, end_date = $8,
			color = $9, icon = $10, alert_threshold = $11, notifications_enabled = $12, is_active = $13,
			updated_at = NOW()
		WHERE user_id = $1 AND id = $2`,
		ownerID, id, data.Name, data.Description, amount, string(data.Period), pgDate(data.StartDate),
		nullableDate(data.EndDate), data.Color, data.Icon, data.AlertThreshold, data.NotificationsEnabled,
		data.IsActive,
	)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrBudgetNotFound
	}

	if err := r.replaceCategories(ctx, db, id, data.CategoryIDs); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, ownerID, id)
}

// Delete removes a budget. Its category links cascade.
func (r *BudgetRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM budgets WHERE user_id = $1 AND id = $2`, ownerID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBudgetNotFound
	}
	return nil
}

func (r *BudgetRepository) replaceCategories(ctx context.Context, db DBTX, budgetID uuid.UUID, categoryIDs []uuid.UUID) error {
	if _, err := db.Exec(ctx, `DELETE FROM budget_categories WHERE budget_id = $1`, budgetID); err != nil {
		return err
	}
	if len(categoryIDs) == 0 {
		return nil
	}
	_, err := db.Exec(ctx, `
		INSERT INTO budget_categories (budget_id, category_id)
		SELECT $1, unnest($2::text[]::uuid[])
		ON CONFLICT DO NOTHING`, budgetID, uuidStrings(categoryIDs))
	if err != nil {
		if isPgForeignKeyViolation(err) {
			return domain.ErrCategoryNotFound
		}
		return err
	}
	return nil
}

func scanBudget(row pgx.Row) (*domain.Budget, error) {
	var (
		b                    domain.Budget
		amount               pgtype.Numeric
		period               string
		startDate, endDate   pgtype.Date
		createdAt, updatedAt pgtype.Timestamptz
		categoryIDs          []string
	)
	err := row.Scan(
		&b.ID, &b.OwnerID, &b.Name, &b.Description, &amount, &period, &startDate, &endDate,
		&b.Color, &b.Icon, &b.AlertThreshold, &b.NotificationsEnabled, &b.IsActive, &createdAt, &updatedAt,
		&categoryIDs,
	)
	if err != nil {
		return nil, err
	}
	b.Amount = pgNumericToDecimal(amount)
	b.Period = domain.BudgetPeriod(period)
	b.StartDate = startDate.Time
	if endDate.Valid {
		end := endDate.Time
		b.EndDate = &end
	}
	b.CreatedAt = createdAt.Time
	b.UpdatedAt = updatedAt.Time

	b.CategoryIDs = make([]uuid.UUID, 0, len(categoryIDs))
	for _, raw := range categoryIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse budget category id: %w", err)
		}
		b.CategoryIDs = append(b.CategoryIDs, id)
	}
	return &b, nil
}

func nullableDate(t *time.Time) pgtype.Date {
	if t == nil {
		return pgtype.Date{}
	}
	return pgDate(*t)
}
