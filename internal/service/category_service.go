package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dafibh/ledgerly/ledgerly-backend/internal/domain"
	"github.com/dafibh/ledgerly/ledgerly-backend/internal/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	defaultCategoryIcon  = "fas fa-tag"
	defaultCategoryColor = "#6c757d"
)

// CategoryService handles category management
type CategoryService struct {
	txManager       domain.TxManager
	categoryRepo    domain.CategoryRepository
	transactionRepo domain.TransactionRepository
	eventPublisher  websocket.EventPublisher
}

// NewCategoryService creates a new CategoryService
func NewCategoryService(txManager domain.TxManager, categoryRepo domain.CategoryRepository, transactionRepo domain.TransactionRepository) *CategoryService {
	return &CategoryService{
		txManager:       txManager,
		categoryRepo:    categoryRepo,
		transactionRepo: transactionRepo,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *CategoryService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

func (s *CategoryService) publishEvent(ownerID uuid.UUID, event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(ownerID, event)
	}
}

// CreateCategoryInput holds the input for creating a category
type CreateCategoryInput struct {
	Name        string
	Type        domain.TransactionType
	Description string
	Color       string
	Icon        string
	BudgetLimit *decimal.Decimal
}

// UpdateCategoryInput is a partial update. The category type cannot change.
type UpdateCategoryInput struct {
	Name             *string
	Description      *string
	Color            *string
	Icon             *string
	BudgetLimit      *decimal.Decimal
	ClearBudgetLimit bool
}

// Create creates a category with a name unique for the owner
func (s *CategoryService) Create(ctx context.Context, ownerID uuid.UUID, input CreateCategoryInput) (*domain.Category, error) {
	name := strings.TrimSpace(input.Name)
	if err := validateName(name); err != nil {
		return nil, err
	}
	if !input.Type.IsValid() {
		return nil, domain.NewValidationError("type", "must be income or expense")
	}
	if err := validateBudgetLimit(input.BudgetLimit); err != nil {
		return nil, err
	}
	color := orDefault(input.Color, defaultCategoryColor)
	if !colorPattern.MatchString(color) {
		return nil, domain.NewValidationError("color", "must be a hex color like #1a2b3c")
	}

	created, err := s.categoryRepo.Create(ctx, &domain.Category{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Name:        name,
		Type:        input.Type,
		Description: strings.TrimSpace(input.Description),
		Color:       color,
		Icon:        orDefault(input.Icon, defaultCategoryIcon),
		BudgetLimit: input.BudgetLimit,
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ownerID, websocket.CategoryCreated(created))
	return created, nil
}

// GetByID retrieves a category owned by ownerID
func (s *CategoryService) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*domain.Category, error) {
	return s.categoryRepo.GetByID(ctx, ownerID, id)
}

// List retrieves the owner's categories, optionally of a single type
func (s *CategoryService) List(ctx context.Context, ownerID uuid.UUID, categoryType *domain.TransactionType) ([]*domain.Category, error) {
	if categoryType != nil && !categoryType.IsValid() {
		return nil, domain.NewValidationError("type", "must be income or expense")
	}
	return s.categoryRepo.GetAllByOwner(ctx, ownerID, categoryType)
}

// Update updates a category
func (s *CategoryService) Update(ctx context.Context, ownerID, id uuid.UUID, input UpdateCategoryInput) (*domain.Category, error) {
	existing, err := s.categoryRepo.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	data := &domain.UpdateCategoryData{
		Name:        existing.Name,
		Description: existing.Description,
		Color:       existing.Color,
		Icon:        existing.Icon,
		BudgetLimit: existing.BudgetLimit,
	}
	if input.Name != nil {
		data.Name = strings.TrimSpace(*input.Name)
		if err := validateName(data.Name); err != nil {
			return nil, err
		}
	}
	if input.Description != nil {
		data.Description = strings.TrimSpace(*input.Description)
	}
	if input.Color != nil {
		if !colorPattern.MatchString(*input.Color) {
			return nil, domain.NewValidationError("color", "must be a hex color like #1a2b3c")
		}
		data.Color = *input.Color
	}
	if input.Icon != nil {
		data.Icon = orDefault(*input.Icon, defaultCategoryIcon)
	}
	if input.ClearBudgetLimit {
		data.BudgetLimit = nil
	} else if input.BudgetLimit != nil {
		if err := validateBudgetLimit(input.BudgetLimit); err != nil {
			return nil, err
		}
		data.BudgetLimit = input.BudgetLimit
	}

	updated, err := s.categoryRepo.Update(ctx, ownerID, id, data)
	if err != nil {
		return nil, err
	}

	s.publishEvent(ownerID, websocket.CategoryUpdated(updated))
	return updated, nil
}

// Delete removes a category that no transaction references. The repository
// repeats the reference check inside the delete statement.
func (s *CategoryService) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	count, err := s.categoryRepo.CountTransactions(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return domain.ErrCategoryInUse
	}

	if err := s.categoryRepo.Delete(ctx, ownerID, id); err != nil {
		return err
	}

	log.Info().
		Stringer("owner_id", ownerID).
		Stringer("category_id", id).
		Msg("Category deleted")

	s.publishEvent(ownerID, websocket.CategoryDeleted(map[string]any{"id": id}))
	return nil
}

// CreateDefaultCategories creates the built-in categories the owner does not have yet.
// Names are matched case-insensitively, so calling it twice creates nothing the second time.
func (s *CategoryService) CreateDefaultCategories(ctx context.Context, ownerID uuid.UUID) ([]*domain.Category, error) {
	created := []*domain.Category{}
	err := s.txManager.WithinTx(ctx, func(ctx context.Context) error {
		for _, def := range domain.DefaultCategories {
			_, err := s.categoryRepo.GetByName(ctx, ownerID, def.Name)
			if err == nil {
				continue
			}
			if !errors.Is(err, domain.ErrCategoryNotFound) {
				return err
			}

			category, err := s.categoryRepo.Create(ctx, &domain.Category{
				ID:        uuid.New(),
				OwnerID:   ownerID,
				Name:      def.Name,
				Type:      def.Type,
				Color:     def.Color,
				Icon:      def.Icon,
				IsDefault: true,
			})
			if err != nil {
				return err
			}
			created = append(created, category)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Stringer("owner_id", ownerID).
		Int("created", len(created)).
		Msg("Default categories created")

	for _, c := range created {
		s.publishEvent(ownerID, websocket.CategoryCreated(c))
	}
	return created, nil
}

// GetCategoryStats groups transaction totals by category and type over an inclusive date range
func (s *CategoryService) GetCategoryStats(ctx context.Context, ownerID uuid.UUID, startDate, endDate time.Time) ([]*domain.CategoryStat, error) {
	if startDate.IsZero() || endDate.IsZero() {
		return nil, domain.NewValidationError("dateRange", "startDate and endDate are required")
	}
	if domain.DateOf(startDate).After(domain.DateOf(endDate)) {
		return nil, domain.NewValidationError("startDate", "must not be after endDate")
	}
	return s.transactionRepo.GetCategoryStats(ctx, ownerID, domain.DateOf(startDate), domain.DateOf(endDate))
}

func validateBudgetLimit(limit *decimal.Decimal) error {
	if limit != nil && limit.IsNegative() {
		return domain.NewValidationError("budgetLimit", "must not be negative")
	}
	if limit != nil && !domain.FitsAmountScale(*limit) {
		return domain.NewValidationError("budgetLimit", fmt.Sprintf("must have at most %d decimal places", domain.MaxAmountScale))
	}
	return nil
}
