package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dafibh/ledgerly/ledgerly-backend/internal/domain"
	"github.com/dafibh/ledgerly/ledgerly-backend/internal/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	defaultBudgetIcon  = "fas fa-chart-pie"
	defaultBudgetColor = "#007bff"

	// alertWorkers bounds the concurrent progress queries of one alert check
	alertWorkers = 4
)

var hundred = decimal.NewFromInt(100)

// BudgetService manages budgets and computes their progress and alerts on demand.
// It never mutates transactions or wallets.
type BudgetService struct {
	txManager       domain.TxManager
	budgetRepo      domain.BudgetRepository
	categoryRepo    domain.CategoryRepository
	transactionRepo domain.TransactionRepository
	eventPublisher  websocket.EventPublisher
	now             func() time.Time
}

// NewBudgetService creates a new BudgetService
func NewBudgetService(
	txManager domain.TxManager,
	budgetRepo domain.BudgetRepository,
	categoryRepo domain.CategoryRepository,
	transactionRepo domain.TransactionRepository,
) *BudgetService {
	return &BudgetService{
		txManager:       txManager,
		budgetRepo:      budgetRepo,
		categoryRepo:    categoryRepo,
		transactionRepo: transactionRepo,
		now:             time.Now,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *BudgetService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

// SetClock overrides the source of "today", used by alert checks and default reference dates
func (s *BudgetService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *BudgetService) publishEvent(ownerID uuid.UUID, event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(ownerID, event)
	}
}

func (s *BudgetService) today() time.Time {
	return domain.DateOf(s.now())
}

// CreateBudgetInput holds the input for creating a budget
type CreateBudgetInput struct {
	Name        string
	Description string
	Amount      decimal.Decimal
	// Period defaults to monthly
	Period      domain.BudgetPeriod
	CategoryIDs []uuid.UUID
	// StartDate defaults to today
	StartDate time.Time
	EndDate   *time.Time
	Color     string
	Icon      string
	// AlertThreshold defaults to domain.DefaultAlertThreshold
	AlertThreshold       *int32
	NotificationsEnabled *bool
}

// UpdateBudgetInput is a partial update; nil fields keep their current value
type UpdateBudgetInput struct {
	Name                 *string
	Description          *string
	Amount               *decimal.Decimal
	Period               *domain.BudgetPeriod
	CategoryIDs          []uuid.UUID
	StartDate            *time.Time
	EndDate              *time.Time
	ClearEndDate         bool
	Color                *string
	Icon                 *string
	AlertThreshold       *int32
	NotificationsEnabled *bool
	IsActive             *bool
}

// Create creates a budget over a set of the owner's categories
func (s *BudgetService) Create(ctx context.Context, ownerID uuid.UUID, input CreateBudgetInput) (*domain.Budget, error) {
	budget := &domain.Budget{
		ID:                   uuid.New(),
		OwnerID:              ownerID,
		Name:                 strings.TrimSpace(input.Name),
		Description:          strings.TrimSpace(input.Description),
		Amount:               input.Amount,
		Period:               input.Period,
		CategoryIDs:          dedupeUUIDs(input.CategoryIDs),
		StartDate:            input.StartDate,
		EndDate:              input.EndDate,
		Color:                orDefault(input.Color, defaultBudgetColor),
		Icon:                 orDefault(input.Icon, defaultBudgetIcon),
		AlertThreshold:       domain.DefaultAlertThreshold,
		NotificationsEnabled: true,
		IsActive:             true,
	}
	if budget.Period == "" {
		budget.Period = domain.BudgetPeriodMonthly
	}
	if budget.StartDate.IsZero() {
		budget.StartDate = s.today()
	}
	budget.StartDate = domain.DateOf(budget.StartDate)
	if budget.EndDate != nil {
		end := domain.DateOf(*budget.EndDate)
		budget.EndDate = &end
	}
	if input.AlertThreshold != nil {
		budget.AlertThreshold = *input.AlertThreshold
	}
	if input.NotificationsEnabled != nil {
		budget.NotificationsEnabled = *input.NotificationsEnabled
	}

	if err := validateBudget(budget.Name, budget.Amount, budget.Period, budget.AlertThreshold, budget.StartDate, budget.EndDate, budget.Color); err != nil {
		return nil, err
	}

	var created *domain.Budget
	err := s.txManager.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.checkCategories(ctx, ownerID, budget.CategoryIDs); err != nil {
			return err
		}
		var err error
		created, err = s.budgetRepo.Create(ctx, budget)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Stringer("owner_id", ownerID).
		Stringer("budget_id", created.ID).
		Str("period", string(created.Period)).
		Msg("Budget created")

	s.publishEvent(ownerID, websocket.BudgetCreated(created))
	return created, nil
}

// GetByID retrieves a budget owned by ownerID
func (s *BudgetService) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*domain.Budget, error) {
	return s.budgetRepo.GetByID(ctx, ownerID, id)
}

// List retrieves the owner's budgets
func (s *BudgetService) List(ctx context.Context, ownerID uuid.UUID, includeInactive bool) ([]*domain.Budget, error) {
	return s.budgetRepo.GetAllByOwner(ctx, ownerID, includeInactive)
}

// Update applies a partial update. CategoryIDs, when non-nil, replaces the whole set.
func (s *BudgetService) Update(ctx context.Context, ownerID, id uuid.UUID, input UpdateBudgetInput) (*domain.Budget, error) {
	var updated *domain.Budget
	err := s.txManager.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := s.budgetRepo.GetByID(ctx, ownerID, id)
		if err != nil {
			return err
		}

		data := mergeBudgetUpdate(existing, input)
		if err := validateBudget(data.Name, data.Amount, data.Period, data.AlertThreshold, data.StartDate, data.EndDate, data.Color); err != nil {
			return err
		}
		if input.CategoryIDs != nil {
			if err := s.checkCategories(ctx, ownerID, data.CategoryIDs); err != nil {
				return err
			}
		}

		updated, err = s.budgetRepo.Update(ctx, ownerID, id, data)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ownerID, websocket.BudgetUpdated(updated))
	return updated, nil
}

// Delete removes a budget. Transactions and categories are untouched.
func (s *BudgetService) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	if err := s.budgetRepo.Delete(ctx, ownerID, id); err != nil {
		return err
	}

	log.Info().
		Stringer("owner_id", ownerID).
		Stringer("budget_id", id).
		Msg("Budget deleted")

	s.publishEvent(ownerID, websocket.BudgetDeleted(map[string]any{"id": id}))
	return nil
}

// ResolvePeriod returns the inclusive bounds of the budget period containing ref
func (s *BudgetService) ResolvePeriod(period domain.BudgetPeriod, ref time.Time) (domain.Period, error) {
	if ref.IsZero() {
		ref = s.today()
	}
	return domain.ResolvePeriod(period, ref)
}

// GetBudgetProgress computes spend against a budget for the period containing ref.
// A zero ref means today.
func (s *BudgetService) GetBudgetProgress(ctx context.Context, ownerID, budgetID uuid.UUID, ref time.Time) (*domain.BudgetProgress, error) {
	budget, err := s.budgetRepo.GetByID(ctx, ownerID, budgetID)
	if err != nil {
		return nil, err
	}
	if ref.IsZero() {
		ref = s.today()
	}
	return s.computeProgress(ctx, budget, ref)
}

// CheckBudgetAlerts polls every active, notification-enabled budget and returns those whose
// current-period spend has reached their threshold. Budgets are additionally skipped when
// today falls outside their start/end dates, a filter beyond active and notifications-enabled.
// The poll is read-only: nothing is stored or published, and the same alert is returned on
// every call until spend drops or the budget is deactivated.
func (s *BudgetService) CheckBudgetAlerts(ctx context.Context, ownerID uuid.UUID) ([]*domain.BudgetAlert, error) {
	budgets, err := s.budgetRepo.GetAlertable(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	today := s.today()
	var (
		mu     sync.Mutex
		alerts = make([]*domain.BudgetAlert, 0)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(alertWorkers)
	for _, budget := range budgets {
		if !budget.CoversDate(today) {
			continue
		}
		g.Go(func() error {
			progress, err := s.computeProgress(gctx, budget, today)
			if err != nil {
				return err
			}
			if progress.Ratio.LessThan(decimal.NewFromInt32(budget.AlertThreshold)) {
				return nil
			}

			mu.Lock()
			alerts = append(alerts, &domain.BudgetAlert{
				BudgetID:   budget.ID,
				BudgetName: budget.Name,
				Percentage: progress.Ratio,
				Threshold:  budget.AlertThreshold,
				Remaining:  progress.Remaining,
				Spent:      progress.Spent,
				Amount:     progress.Budget,
			})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Keep the result order stable regardless of goroutine scheduling
	order := make(map[uuid.UUID]int, len(budgets))
	for i, b := range budgets {
		order[b.ID] = i
	}
	sort.Slice(alerts, func(i, j int) bool {
		return order[alerts[i].BudgetID] < order[alerts[j].BudgetID]
	})

	for _, alert := range alerts {
		log.Debug().
			Stringer("owner_id", ownerID).
			Stringer("budget_id", alert.BudgetID).
			Str("percentage", alert.Percentage.StringFixed(2)).
			Int32("threshold", alert.Threshold).
			Msg("Budget alert triggered")
	}
	return alerts, nil
}

func (s *BudgetService) computeProgress(ctx context.Context, budget *domain.Budget, ref time.Time) (*domain.BudgetProgress, error) {
	period, err := domain.ResolvePeriod(budget.Period, ref)
	if err != nil {
		return nil, err
	}

	spent, err := s.transactionRepo.SumExpensesByCategories(ctx, budget.OwnerID, budget.CategoryIDs, period.Start, period.End)
	if err != nil {
		return nil, err
	}

	progress := &domain.BudgetProgress{
		BudgetID:  budget.ID,
		Budget:    budget.Amount,
		Spent:     spent,
		Remaining: budget.Amount.Sub(spent),
		Ratio:     decimal.Zero,
		Period:    period,
	}
	if budget.Amount.IsPositive() {
		progress.Ratio = spent.Div(budget.Amount).Mul(hundred)
		progress.Percentage = progress.Ratio.Round(0).IntPart()
	}
	return progress, nil
}

func (s *BudgetService) checkCategories(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID) error {
	for _, id := range ids {
		if _, err := s.categoryRepo.GetByID(ctx, ownerID, id); err != nil {
			return err
		}
	}
	return nil
}

func mergeBudgetUpdate(existing *domain.Budget, input UpdateBudgetInput) *domain.UpdateBudgetData {
	data := &domain.UpdateBudgetData{
		Name:                 existing.Name,
		Description:          existing.Description,
		Amount:               existing.Amount,
		Period:               existing.Period,
		CategoryIDs:          existing.CategoryIDs,
		StartDate:            existing.StartDate,
		EndDate:              existing.EndDate,
		Color:                existing.Color,
		Icon:                 existing.Icon,
		AlertThreshold:       existing.AlertThreshold,
		NotificationsEnabled: existing.NotificationsEnabled,
		IsActive:             existing.IsActive,
	}
	if input.Name != nil {
		data.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		data.Description = strings.TrimSpace(*input.Description)
	}
	if input.Amount != nil {
		data.Amount = *input.Amount
	}
	if input.Period != nil {
		data.Period = *input.Period
	}
	if input.CategoryIDs != nil {
		data.CategoryIDs = dedupeUUIDs(input.CategoryIDs)
	}
	if input.StartDate != nil {
		data.StartDate = domain.DateOf(*input.StartDate)
	}
	if input.ClearEndDate {
		data.EndDate = nil
	} else if input.EndDate != nil {
		end := domain.DateOf(*input.EndDate)
		data.EndDate = &end
	}
	if input.Color != nil {
		data.Color = orDefault(*input.Color, defaultBudgetColor)
	}
	if input.Icon != nil {
		data.Icon = orDefault(*input.Icon, defaultBudgetIcon)
	}
	if input.AlertThreshold != nil {
		data.AlertThreshold = *input.AlertThreshold
	}
	if input.NotificationsEnabled != nil {
		data.NotificationsEnabled = *input.NotificationsEnabled
	}
	if input.IsActive != nil {
		data.IsActive = *input.IsActive
	}
	return data
}

func validateBudget(name string, amount decimal.Decimal, period domain.BudgetPeriod, threshold int32, start time.Time, end *time.Time, color string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if amount.IsNegative() {
		return domain.NewValidationError("amount", "must not be negative")
	}
	if !domain.FitsAmountScale(amount) {
		return domain.NewValidationError("amount", fmt.Sprintf("must have at most %d decimal places", domain.MaxAmountScale))
	}
	if !period.IsValid() {
		return domain.NewValidationError("period", "must be monthly, quarterly or yearly")
	}
	if threshold < 0 || threshold > 100 {
		return domain.NewValidationError("alertThreshold", "must be between 0 and 100")
	}
	if end != nil && end.Before(start) {
		return domain.NewValidationError("endDate", "must not be before startDate")
	}
	if !colorPattern.MatchString(color) {
		return domain.NewValidationError("color", "must be a hex color like #1a2b3c")
	}
	return nil
}

func dedupeUUIDs(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
