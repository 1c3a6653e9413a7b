package websocket

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuth0JWTValidator_Implements_TokenValidator(t *testing.T) {
	var _ TokenValidator = (*Auth0JWTValidator)(nil)
}

func TestCustomClaims_Validate(t *testing.T) {
	claims := &CustomClaims{}
	assert.NoError(t, claims.Validate(context.Background()))
}

func TestNewAuth0JWTValidator_Success(t *testing.T) {
	v, err := NewAuth0JWTValidator("test.auth0.com", "https://api.ledgerly.app")
	require.NoError(t, err)
	assert.NotNil(t, v.validator)
}

func TestAuth0JWTValidator_ValidateToken_InvalidJWT(t *testing.T) {
	v, err := NewAuth0JWTValidator("test.auth0.com", "https://api.ledgerly.app")
	require.NoError(t, err)

	ownerID, err := v.ValidateToken(context.Background(), "invalid-token")
	assert.True(t, errors.Is(err, ErrInvalidToken))
	assert.Equal(t, uuid.Nil, ownerID)
}
