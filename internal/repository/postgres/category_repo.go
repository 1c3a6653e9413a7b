package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dafibh/ledgerly/ledgerly-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const categoryColumns = `id, user_id, name, type, description, color, icon, is_default, budget_limit,
	created_at, updated_at`

// CategoryRepository implements domain.CategoryRepository using PostgreSQL
type CategoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository creates a new CategoryRepository
func NewCategoryRepository(pool *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

// Create creates a new category
func (r *CategoryRepository) Create(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	budgetLimit, err := nullableDecimal(category.BudgetLimit)
	if err != nil {
		return nil, fmt.Errorf("invalid budget limit: %w", err)
	}

	row := conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO categories (id, user_id, name, type, description, color, icon, is_default, budget_limit)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+categoryColumns,
		category.ID, category.OwnerID, category.Name, string(category.Type), category.Description,
		category.Color, category.Icon, category.IsDefault, budgetLimit,
	)
	created, err := scanCategory(row)
	if err != nil {
		if isPgUniqueViolation(err) {
			return nil, domain.ErrCategoryNameTaken
		}
		return nil, err
	}
	return created, nil
}

// GetByID retrieves a category by its ID for an owner
func (r *CategoryRepository) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*domain.Category, error) {
	row := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE user_id = $1 AND id = $2`, ownerID, id)
	category, err := scanCategory(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCategoryNotFound
		}
		return nil, err
	}
	return category, nil
}

// GetByName retrieves a category by its name, case-insensitively
func (r *CategoryRepository) GetByName(ctx context.Context, ownerID uuid.UUID, name string) (*domain.Category, error) {
	row := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE user_id = $1 AND LOWER(name) = LOWER($2)`, ownerID, name)
	category, err := scanCategory(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCategoryNotFound
		}
		return nil, err
	}
	return category, nil
}

// GetAllByOwner retrieves an owner's categories, optionally restricted to one type
func (r *CategoryRepository) GetAllByOwner(ctx context.Context, ownerID uuid.UUID, categoryType *domain.TransactionType) ([]*domain.Category, error) {
	var typeFilter pgtype.Text
	if categoryType != nil {
		typeFilter = pgtype.Text{String: string(*categoryType), Valid: true}
	}

	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT `+categoryColumns+` FROM categories
		WHERE user_id = $1 AND ($2::text IS NULL OR type = $2)
		ORDER BY type, name`, ownerID, typeFilter)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []*domain.Category{}
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

// Update updates a category. The type is fixed at creation.
func (r *CategoryRepository) Update(ctx context.Context, ownerID, id uuid.UUID, data *domain.UpdateCategoryData) (*domain.Category, error) {
	budgetLimit, err := nullableDecimal(data.BudgetLimit)
	if err != nil {
		return nil, fmt.Errorf("invalid budget limit: %w", err)
	}

	row := conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE categories
		SET name = $3, description = $4, color = $5, icon = $6, budget_limit = $7, updated_at = NOW()
		WHERE user_id = $1 AND id = $2
		RETURNING `+categoryColumns,
		ownerID, id, data.Name, data.Description, data.Color, data.Icon, budgetLimit,
	)
	category, err := scanCategory(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCategoryNotFound
		}
		if isPgUniqueViolation(err) {
			return nil, domain.ErrCategoryNameTaken
		}
		return nil, err
	}
	return category, nil
}

// Delete removes a category that no transaction references. Budgets drop the
// category through the budget_categories cascade.
func (r *CategoryRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		DELETE FROM categories c
		WHERE c.user_id = $1 AND c.id = $2
			AND NOT EXISTS (SELECT 1 FROM transactions t WHERE t.category_id = c.id)`, ownerID, id)
	if err != nil {
		if isPgForeignKeyViolation(err) {
			return domain.ErrCategoryInUse
		}
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	if _, err := r.GetByID(ctx, ownerID, id); err != nil {
		return err
	}
	return domain.ErrCategoryInUse
}

// CountTransactions counts the transactions referencing a category
func (r *CategoryRepository) CountTransactions(ctx context.Context, ownerID, id uuid.UUID) (int64, error) {
	var count int64
	err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM transactions WHERE user_id = $1 AND category_id = $2`, ownerID, id).Scan(&count)
	return count, err
}

func scanCategory(row pgx.Row) (*domain.Category, error) {
	var (
		c                    domain.Category
		categoryType         string
		budgetLimit          pgtype.Numeric
		createdAt, updatedAt pgtype.Timestamptz
	)
	err := row.Scan(
		&c.ID, &c.OwnerID, &c.Name, &categoryType, &c.Description, &c.Color, &c.Icon, &c.IsDefault,
		&budgetLimit, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Type = domain.TransactionType(categoryType)
	c.BudgetLimit = pgNumericToDecimalPtr(budgetLimit)
	c.CreatedAt = createdAt.Time
	c.UpdatedAt = updatedAt.Time
	return &c, nil
}
