package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AyanAhmedKhan/careerly-backend/internal/config"
)

func TestTokenRoundTrip(t *testing.T) {
	config.AppConfig = &config.Config{JWTSecret: "test-secret"}

	token, err := GenerateToken("user-123")
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := ValidateToken(token)
	assert.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	config.AppConfig = &config.Config{JWTSecret: "secret-a"}
	token, err := GenerateToken("user-123")
	assert.NoError(t, err)

	config.AppConfig = &config.Config{JWTSecret: "secret-b"}
	_, err = ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	config.AppConfig = &config.Config{JWTSecret: "test-secret"}

	_, err := ValidateToken("not-a-token")
	assert.Error(t, err)
}

func TestIsUUID(t *testing.T) {
	assert.True(t, IsUUID(GenerateID()))
	assert.False(t, IsUUID("hello"))
}
