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
	"github.com/shopspring/decimal"
)

const walletColumns = `id, user_id, name, description, type, currency, initial_balance, balance,
	icon, color, is_active, exclude_from_stats, created_at, updated_at`

// WalletRepository implements domain.WalletRepository using PostgreSQL
type WalletRepository struct {
	pool *pgxpool.Pool
}

// NewWalletRepository creates a new WalletRepository
func NewWalletRepository(pool *pgxpool.Pool) *WalletRepository {
	return &WalletRepository{pool: pool}
}

// Create creates a new wallet with its balance set to the initial balance
func (r *WalletRepository) Create(ctx context.Context, wallet *domain.Wallet) (*domain.Wallet, error) {
	initialBalance, err := decimalToPgNumeric(wallet.InitialBalance)
	if err != nil {
		return nil, fmt.Errorf("invalid initial balance: %w", err)
	}

	row := conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO wallets (id, user_id, name, description, type, currency, initial_balance, balance,
			icon, color, is_active, exclude_from_stats)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7, $8, $9, $10, $11)
		RETURNING `+walletColumns,
		wallet.ID, wallet.OwnerID, wallet.Name, wallet.Description, string(wallet.Type), wallet.Currency,
		initialBalance, wallet.Icon, wallet.Color, wallet.IsActive, wallet.ExcludeFromStats,
	)
	created, err := scanWallet(row)
	if err != nil {
		if isPgUniqueViolation(err) {
			return nil, domain.ErrWalletNameTaken
		}
		return nil, err
	}
	return created, nil
}

// GetByID retrieves a wallet by its ID for an owner
func (r *WalletRepository) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*domain.Wallet, error) {
	row := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE user_id = $1 AND id = $2`, ownerID, id)
	wallet, err := scanWallet(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWalletNotFound
		}
		return nil, err
	}
	return wallet, nil
}

// GetAllByOwner retrieves an owner's wallets ordered by name
func (r *WalletRepository) GetAllByOwner(ctx context.Context, ownerID uuid.UUID, includeInactive bool) ([]*domain.Wallet, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT `+walletColumns+` FROM wallets
		WHERE user_id = $1 AND ($2 OR is_active)
		ORDER BY name`, ownerID, includeInactive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	wallets := []*domain.Wallet{}
	for rows.Next() {
		wallet, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, wallet)
	}
	return wallets, rows.Err()
}

// Update updates a wallet's descriptive fields. The balance is never written here.
func (r *WalletRepository) Update(ctx context.Context, ownerID, id uuid.UUID, data *domain.UpdateWalletData) (*domain.Wallet, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE wallets
		SET name = $3, description = $4, type = $5, currency = $6, icon = $7, color = $8,
			is_active = $9, exclude_from_stats = $10, updated_at = NOW()
		WHERE user_id = $1 AND id = $2
		RETURNING `+walletColumns,
		ownerID, id, data.Name, data.Description, string(data.Type), data.Currency, data.Icon, data.Color,
		data.IsActive, data.ExcludeFromStats,
	)
	wallet, err := scanWallet(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWalletNotFound
		}
		if isPgUniqueViolation(err) {
			return nil, domain.ErrWalletNameTaken
		}
		return nil, err
	}
	return wallet, nil
}

// Delete removes a wallet. The reference check is part of the DELETE statement itself so a
// transaction created after an earlier check still blocks the delete.
func (r *WalletRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	db := conn(ctx, r.pool)
	tag, err := db.Exec(ctx, `
		DELETE FROM wallets w
		WHERE w.user_id = $1 AND w.id = $2
			AND NOT EXISTS (SELECT 1 FROM transactions t WHERE t.wallet_id = w.id)`, ownerID, id)
	if err != nil {
		if isPgForeignKeyViolation(err) {
			return domain.ErrWalletInUse
		}
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Nothing deleted: either the wallet does not exist or it is still referenced
	if _, err := r.GetByID(ctx, ownerID, id); err != nil {
		return err
	}
	return domain.ErrWalletInUse
}

// AdjustBalance atomically adds delta to the wallet balance
func (r *WalletRepository) AdjustBalance(ctx context.Context, ownerID, id uuid.UUID, delta decimal.Decimal) (*domain.Wallet, error) {
	amount, err := decimalToPgNumeric(delta)
	if err != nil {
		return nil, fmt.Errorf("invalid balance delta: %w", err)
	}

	row := conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE wallets SET balance = balance + $3, updated_at = NOW()
		WHERE user_id = $1 AND id = $2
		RETURNING `+walletColumns, ownerID, id, amount)
	wallet, err := scanWallet(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWalletNotFound
		}
		return nil, err
	}
	return wallet, nil
}

// Withdraw subtracts amount in a single guarded UPDATE, so concurrent withdrawals
// cannot take the balance below zero
func (r *WalletRepository) Withdraw(ctx context.Context, ownerID, id uuid.UUID, amount decimal.Decimal) (*domain.Wallet, error) {
	value, err := decimalToPgNumeric(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid withdrawal amount: %w", err)
	}

	q := conn(ctx, r.pool)
	row := q.QueryRow(ctx, `
		UPDATE wallets SET balance = balance - $3, updated_at = NOW()
		WHERE user_id = $1 AND id = $2 AND balance >= $3
		RETURNING `+walletColumns, ownerID, id, value)
	wallet, err := scanWallet(row)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	var balance pgtype.Numeric
	err = q.QueryRow(ctx, `SELECT balance FROM wallets WHERE user_id = $1 AND id = $2`, ownerID, id).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWalletNotFound
		}
		return nil, err
	}
	return nil, &domain.InsufficientFundsError{
		WalletID:  id,
		Balance:   pgNumericToDecimal(balance),
		Requested: amount,
	}
}

// CountTransactions counts the transactions referencing a wallet
func (r *WalletRepository) CountTransactions(ctx context.Context, ownerID, id uuid.UUID) (int64, error) {
	var count int64
	err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM transactions WHERE user_id = $1 AND wallet_id = $2`, ownerID, id).Scan(&count)
	return count, err
}

// GetTotalsByCurrency sums the balances of active wallets not excluded from stats, per currency
func (r *WalletRepository) GetTotalsByCurrency(ctx context.Context, ownerID uuid.UUID, currency *string) ([]*domain.CurrencyTotal, error) {
	var currencyFilter pgtype.Text
	if currency != nil {
		currencyFilter = pgtype.Text{String: *currency, Valid: true}
	}

	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT currency, COALESCE(SUM(balance), 0), COUNT(*)
		FROM wallets
		WHERE user_id = $1 AND is_active AND NOT exclude_from_stats
			AND ($2::text IS NULL OR currency = $2)
		GROUP BY currency
		ORDER BY currency`, ownerID, currencyFilter)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := []*domain.CurrencyTotal{}
	for rows.Next() {
		var (
			total domain.CurrencyTotal
			sum   pgtype.Numeric
			count int64
		)
		if err := rows.Scan(&total.Currency, &sum, &count); err != nil {
			return nil, err
		}
		total.Total = pgNumericToDecimal(sum)
		total.WalletCount = int32(count)
		totals = append(totals, &total)
	}
	return totals, rows.Err()
}

// GetLedgerSums replays every transaction referencing the wallet
func (r *WalletRepository) GetLedgerSums(ctx context.Context, ownerID, id uuid.UUID) (*domain.WalletLedgerSums, error) {
	var income, expense pgtype.Numeric
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE type = 'income'), 0),
			COALESCE(SUM(amount) FILTER (WHERE type = 'expense'), 0)
		FROM transactions
		WHERE user_id = $1 AND wallet_id = $2`, ownerID, id).Scan(&income, &expense)
	if err != nil {
		return nil, err
	}
	return &domain.WalletLedgerSums{
		Income:  pgNumericToDecimal(income),
		Expense: pgNumericToDecimal(expense),
	}, nil
}

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	var (
		w                       domain.Wallet
		walletType              string
		initialBalance, balance pgtype.Numeric
		createdAt, updatedAt    pgtype.Timestamptz
	)
	err := row.Scan(
		&w.ID, &w.OwnerID, &w.Name, &w.Description, &walletType, &w.Currency, &initialBalance, &balance,
		&w.Icon, &w.Color, &w.IsActive, &w.ExcludeFromStats, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	w.Type = domain.WalletType(walletType)
	w.InitialBalance = pgNumericToDecimal(initialBalance)
	w.Balance = pgNumericToDecimal(balance)
	w.CreatedAt = createdAt.Time
	w.UpdatedAt = updatedAt.Time
	return &w, nil
}
