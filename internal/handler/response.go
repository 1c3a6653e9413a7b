package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dafibh/ledgerly/ledgerly-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ProblemDetails represents an RFC 7807 Problem Details response
type ProblemDetails struct {
	Type     string            `json:"type"`
	Title    string            `json:"title"`
	Status   int               `json:"status"`
	Detail   string            `json:"detail,omitempty"`
	Instance string            `json:"instance,omitempty"`
	Errors   []ValidationError `json:"errors,omitempty"`
}

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error types
const (
	ErrorTypeValidation        = "https://ledgerly.app/errors/validation"
	ErrorTypeNotFound          = "https://ledgerly.app/errors/not-found"
	ErrorTypeUnauthorized      = "https://ledgerly.app/errors/unauthorized"
	ErrorTypeConflict          = "https://ledgerly.app/errors/conflict"
	ErrorTypeInsufficientFunds = "https://ledgerly.app/errors/insufficient-funds"
	ErrorTypeIntegrity         = "https://ledgerly.app/errors/integrity"
	ErrorTypeInternal          = "https://ledgerly.app/errors/internal"
)

// NewValidationError creates a validation error response
func NewValidationError(c echo.Context, detail string, errors []ValidationError) error {
	return c.JSON(http.StatusBadRequest, ProblemDetails{
		Type:     ErrorTypeValidation,
		Title:    "Validation Error",
		Status:   http.StatusBadRequest,
		Detail:   detail,
		Instance: c.Request().URL.Path,
		Errors:   errors,
	})
}

// NewNotFoundError creates a not found error response
func NewNotFoundError(c echo.Context, detail string) error {
	return newProblem(c, http.StatusNotFound, ErrorTypeNotFound, "Not Found", detail)
}

// NewUnauthorizedError creates an unauthorized error response
func NewUnauthorizedError(c echo.Context, detail string) error {
	return newProblem(c, http.StatusUnauthorized, ErrorTypeUnauthorized, "Unauthorized", detail)
}

// NewConflictError creates a conflict error response
func NewConflictError(c echo.Context, detail string) error {
	return newProblem(c, http.StatusConflict, ErrorTypeConflict, "Conflict", detail)
}

// NewInternalError creates an internal error response
func NewInternalError(c echo.Context, detail string) error {
	return newProblem(c, http.StatusInternalServerError, ErrorTypeInternal, "Internal Server Error", detail)
}

func newProblem(c echo.Context, status int, errType, title, detail string) error {
	return c.JSON(status, ProblemDetails{
		Type:     errType,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	})
}

// respondError maps a service error onto its problem response by error kind
func respondError(c echo.Context, err error, action string) error {
	var validationErr *domain.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: validationErr.Field, Message: validationErr.Message},
		})
	case errors.Is(err, domain.ErrValidation):
		return NewValidationError(c, err.Error(), nil)
	case errors.Is(err, domain.ErrNotFound):
		return NewNotFoundError(c, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return NewConflictError(c, err.Error())
	case errors.Is(err, domain.ErrInsufficientFunds):
		return newProblem(c, http.StatusUnprocessableEntity, ErrorTypeInsufficientFunds, "Insufficient Funds", err.Error())
	case errors.Is(err, domain.ErrIntegrity):
		log.Error().Err(err).Str("path", c.Request().URL.Path).Msg("Ledger integrity violation: " + action)
		return newProblem(c, http.StatusInternalServerError, ErrorTypeIntegrity, "Ledger Integrity Violation",
			"The operation was partially applied and could not be undone; wallet balances need reconciliation")
	}
	log.Error().Err(err).Str("path", c.Request().URL.Path).Msg("Failed to " + action)
	return NewInternalError(c, "Failed to "+action)
}

// Request parsing helpers return a field error that callers pass to invalidField.

func invalidField(c echo.Context, fieldErr *ValidationError) error {
	return NewValidationError(c, "Invalid "+fieldErr.Field, []ValidationError{*fieldErr})
}

func parseUUID(field, raw string) (uuid.UUID, *ValidationError) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, &ValidationError{Field: field, Message: "Must be a valid UUID"}
	}
	return id, nil
}

func parseOptionalUUID(field string, raw *string) (*uuid.UUID, *ValidationError) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, fieldErr := parseUUID(field, *raw)
	if fieldErr != nil {
		return nil, fieldErr
	}
	return &id, nil
}

func parseUUIDs(field string, raw []string) ([]uuid.UUID, *ValidationError) {
	if raw == nil {
		return nil, nil
	}
	ids := make([]uuid.UUID, 0, len(raw))
	for _, r := range raw {
		id, fieldErr := parseUUID(field, r)
		if fieldErr != nil {
			return nil, fieldErr
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseDecimal(field, raw string) (decimal.Decimal, *ValidationError) {
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, &ValidationError{Field: field, Message: "Must be a valid decimal number"}
	}
	return value, nil
}

func parseOptionalDecimal(field string, raw *string) (*decimal.Decimal, *ValidationError) {
	if raw == nil {
		return nil, nil
	}
	value, fieldErr := parseDecimal(field, *raw)
	if fieldErr != nil {
		return nil, fieldErr
	}
	return &value, nil
}

func parseOptionalDate(field string, raw *string) (*time.Time, *ValidationError) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(domain.DateLayout, *raw)
	if err != nil {
		return nil, &ValidationError{Field: field, Message: "Must be in YYYY-MM-DD format"}
	}
	return &parsed, nil
}

func parseDateQuery(c echo.Context, field string) (*time.Time, *ValidationError) {
	raw := c.QueryParam(field)
	return parseOptionalDate(field, &raw)
}

func parseIntQuery(c echo.Context, field string, fallback int) (int, *ValidationError) {
	raw := c.QueryParam(field)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ValidationError{Field: field, Message: "Must be an integer"}
	}
	return value, nil
}

func parseBoolQuery(c echo.Context, field string) (bool, *ValidationError) {
	raw := c.QueryParam(field)
	if raw == "" {
		return false, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, &ValidationError{Field: field, Message: "Must be true or false"}
	}
	return value, nil
}

func formatDate(t time.Time) string {
	return t.Format(domain.DateLayout)
}

func formatOptionalDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatDate(*t)
	return &s
}

func formatTimestamp(t time.Time) string {
	return t.Format(time.RFC3339)
}

func formatOptionalUUID(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
