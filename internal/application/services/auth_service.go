package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/taskmaster/todo/internal/domain/entities"
	"github.com/taskmaster/todo/internal/infrastructure/config"
	"github.com/taskmaster/todo/internal/infrastructure/logger"
	"github.com/taskmaster/todo/internal/ports"
)

// Claims represents the JWT claims. The subject is the owner's UUID.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// AuthService verifies session tokens minted by the external auth provider, and can
// mint its own for development and the shell.
type AuthService struct {
	jwtConfig config.JWTConfig
	logger    *logger.Logger
	now       func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(jwtConfig config.JWTConfig, logger *logger.Logger) *AuthService {
	return &AuthService{
		jwtConfig: jwtConfig,
		logger:    logger.WithComponent("auth"),
		now:       time.Now,
	}
}

// VerifyToken validates a JWT and returns the session it carries
func (s *AuthService) VerifyToken(tokenString string) (*ports.Session, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.jwtConfig.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.jwtConfig.Issuer))
	}
	if s.jwtConfig.Audience != "" {
		opts = append(opts, jwt.WithAudience(s.jwtConfig.Audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtConfig.Secret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid token: %v", entities.ErrUnauthorized, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token claims", entities.ErrUnauthorized)
	}

	ownerID, err := uuid.Parse(claims.Subject)
	if err != nil || ownerID == uuid.Nil {
		return nil, fmt.Errorf("%w: subject is not a user id", entities.ErrUnauthorized)
	}

	return &ports.Session{
		OwnerID: ownerID,
		Email:   claims.Email,
	}, nil
}

// IssueToken signs a token for ownerID using the configured secret, issuer, audience and
// lifetime
func (s *AuthService) IssueToken(ownerID uuid.UUID, email string) (string, error) {
	now := s.now()
	claims := &Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtConfig.ExpiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.jwtConfig.Issuer,
			Subject:   ownerID.String(),
		},
	}
	if s.jwtConfig.Audience != "" {
		claims.Audience = jwt.ClaimStrings{s.jwtConfig.Audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtConfig.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	s.logger.Infow("Issued session token", "owner_id", ownerID, "expires_at", claims.ExpiresAt.Time)
	return tokenString, nil
}
