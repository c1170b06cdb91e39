package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmaster/todo/internal/domain/entities"
	"github.com/taskmaster/todo/internal/infrastructure/config"
	"github.com/taskmaster/todo/internal/infrastructure/logger"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:    "test-secret",
		ExpiresIn: time.Hour,
		Issuer:    "todo-test",
		Audience:  "authenticated",
	}
}

func TestAuthService_IssueAndVerify(t *testing.T) {
	svc := NewAuthService(testJWTConfig(), logger.NewNop())
	owner := uuid.New()

	token, err := svc.IssueToken(owner, "ada@example.com")
	require.NoError(t, err)

	session, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, owner, session.OwnerID)
	assert.Equal(t, "ada@example.com", session.Email)
}

func TestAuthService_Rejects(t *testing.T) {
	cfg := testJWTConfig()
	svc := NewAuthService(cfg, logger.NewNop())
	owner := uuid.New()

	sign := func(claims jwt.Claims, secret string) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return s
	}
	valid := func() jwt.RegisteredClaims {
		return jwt.RegisteredClaims{
			Subject:   owner.String(),
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Audience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}
	}

	expired := valid()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	wrongIssuer := valid()
	wrongIssuer.Issuer = "someone-else"
	wrongAudience := valid()
	wrongAudience.Audience = jwt.ClaimStrings{"anon"}
	badSubject := valid()
	badSubject.Subject = "not-a-uuid"

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not.a.token"},
		{"wrong secret", sign(&Claims{RegisteredClaims: valid()}, "other-secret")},
		{"expired", sign(&Claims{RegisteredClaims: expired}, cfg.Secret)},
		{"wrong issuer", sign(&Claims{RegisteredClaims: wrongIssuer}, cfg.Secret)},
		{"wrong audience", sign(&Claims{RegisteredClaims: wrongAudience}, cfg.Secret)},
		{"subject not uuid", sign(&Claims{RegisteredClaims: badSubject}, cfg.Secret)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.VerifyToken(tt.token)
			assert.ErrorIs(t, err, entities.ErrUnauthorized)
		})
	}
}
