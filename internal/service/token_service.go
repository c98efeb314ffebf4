package service

import (
	"fmt"

	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/golang-jwt/jwt/v5"
)

// JWTTokenService validates platform-issued service-to-service tokens.
// The ledger never mints tokens; the platform's identity service does.
type JWTTokenService struct {
	secret []byte
	issuer string
}

// NewJWTTokenService creates a validate-only JWT token service.
func NewJWTTokenService(secret, issuer string) *JWTTokenService {
	return &JWTTokenService{secret: []byte(secret), issuer: issuer}
}

// Validate parses and validates a service JWT, returning the claims.
func (s *JWTTokenService) Validate(tokenString string) (*ports.TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, apperror.ErrInvalidToken()
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, apperror.ErrInvalidToken()
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return nil, apperror.ErrInvalidToken()
	}

	return &ports.TokenClaims{ServiceName: sub}, nil
}
