package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/dafibh/ledgerly/ledgerly-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubValidator returns canned claims or an error for every token
type stubValidator struct {
	claims interface{}
	err    error
	tokens []string
}

func (s *stubValidator) ValidateToken(ctx context.Context, token string) (interface{}, error) {
	s.tokens = append(s.tokens, token)
	return s.claims, s.err
}

func TestGetAuth0ID(t *testing.T) {
	e := echo.New()

	tests := []struct {
		name     string
		setup    func(c echo.Context)
		expected string
	}{
		{
			name: "returns auth0 id when present",
			setup: func(c echo.Context) {
				ctx := context.WithValue(c.Request().Context(), Auth0IDKey, "auth0|12345")
				c.SetRequest(c.Request().WithContext(ctx))
			},
			expected: "auth0|12345",
		},
		{
			name:     "returns empty string when not present",
			setup:    func(c echo.Context) {},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			tt.setup(c)

			result := GetAuth0ID(c)
			if result != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestGetOwnerID_MissingIsNil(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	assert.Equal(t, uuid.Nil, GetOwnerID(c))
}

func TestGetCustomClaims(t *testing.T) {
	e := echo.New()

	t.Run("returns custom claims when present", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		claims := &validator.ValidatedClaims{
			RegisteredClaims: validator.RegisteredClaims{Subject: "auth0|test"},
			CustomClaims:     &CustomClaims{Email: "test@example.com", Name: "Test User"},
		}
		ctx := context.WithValue(c.Request().Context(), ClaimsKey, claims)
		c.SetRequest(c.Request().WithContext(ctx))

		result := GetCustomClaims(c)
		require.NotNil(t, result)
		assert.Equal(t, "test@example.com", result.Email)
		assert.Equal(t, "Test User", result.Name)
	})

	t.Run("returns nil when claims not present", func(t *testing.T) {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

		assert.Nil(t, GetCustomClaims(c))
		assert.Nil(t, GetClaims(c))
	})
}

func TestAuthMiddleware_ResolvesOwner(t *testing.T) {
	e := echo.New()
	stub := &stubValidator{claims: &validator.ValidatedClaims{
		RegisteredClaims: validator.RegisteredClaims{Subject: "auth0|abc"},
	}}
	auth := NewAuthMiddlewareWithValidator(stub)

	var gotOwner uuid.UUID
	var gotSubject string
	handler := auth.Authenticate()(func(c echo.Context) error {
		gotOwner = GetOwnerID(c)
		gotSubject = GetAuth0ID(c)
		return c.NoContent(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/wallets", nil)
	req.Header.Set("Authorization", "Bearer token-123")
	rec := httptest.NewRecorder()

	require.NoError(t, handler(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, domain.OwnerIDFromSubject("auth0|abc"), gotOwner)
	assert.Equal(t, "auth0|abc", gotSubject)
	assert.Equal(t, []string{"token-123"}, stub.tokens)
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		header string
		stub   *stubValidator
	}{
		{"missing header", "", &stubValidator{}},
		{"no bearer prefix", "invalid-token", &stubValidator{}},
		{"wrong scheme", "Basic token123", &stubValidator{}},
		{"empty token", "Bearer ", &stubValidator{}},
		{"validator rejects", "Bearer bad", &stubValidator{err: errors.New("expired")}},
		{"unexpected claims", "Bearer odd", &stubValidator{claims: "not claims"}},
		{"empty subject", "Bearer anon", &stubValidator{claims: &validator.ValidatedClaims{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			called := false
			handler := NewAuthMiddlewareWithValidator(tt.stub).Authenticate()(func(c echo.Context) error {
				called = true
				return nil
			})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/wallets", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			require.NoError(t, handler(e.NewContext(req, rec)))
			assert.False(t, called)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), errorTypeUnauthorized)
		})
	}
}

func TestCustomClaims_Validate(t *testing.T) {
	claims := CustomClaims{}
	assert.NoError(t, claims.Validate(context.Background()))
}
