package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seu-repo/voxa-cobranza/internal/ports"
)

var ErrTokenRevoked = errors.New("auth: token revoked")

// Claims represents the custom JWT claims accepted by the call API.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

// JWTService issues and validates the HS256 bearer tokens of the operator API.
type JWTService struct {
	secret string
	issuer string
	cache  ports.Cache
	log    *zap.Logger
}

// NewJWTService creates a new JWTService instance. cache may be nil, which
// disables revocation.
func NewJWTService(secret, issuer string, cache ports.Cache, log *zap.Logger) (*JWTService, error) {
	if secret == "" {
		return nil, fmt.Errorf("auth: jwt secret is required")
	}
	return &JWTService{
		secret: secret,
		issuer: issuer,
		cache:  cache,
		log:    log,
	}, nil
}

// GenerateToken signs a token for subject valid for ttl.
func (s *JWTService) GenerateToken(subject, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
		Role: role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	s.log.Debug("token generated", zap.String("subject", subject), zap.String("jti", claims.ID))
	return signed, nil
}

// ValidateToken parses and validates a JWT token string, returning the claims
// if the token is valid and has not been revoked.
func (s *JWTService) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.secret), nil
	}, opts...)
	if err != nil {
		s.log.Debug("token validation failed", zap.Error(err))
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if s.IsTokenRevoked(ctx, claims.ID) {
		return nil, ErrTokenRevoked
	}

	return claims, nil
}

// RevokeToken blacklists a token ID until ttl elapses.
func (s *JWTService) RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	if s.cache == nil {
		return fmt.Errorf("auth: revocation requires a cache")
	}
	if err := s.cache.Set(ctx, revokedKey(tokenID), "revoked", ttl); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	s.log.Info("token revoked", zap.String("token_id", tokenID))
	return nil
}

// IsTokenRevoked checks whether a token ID has been revoked.
func (s *JWTService) IsTokenRevoked(ctx context.Context, tokenID string) bool {
	if s.cache == nil || tokenID == "" {
		return false
	}
	val, err := s.cache.Get(ctx, revokedKey(tokenID))
	if err != nil {
		return false
	}
	return val == "revoked"
}

func revokedKey(tokenID string) string {
	return "revoked_token:" + tokenID
}
