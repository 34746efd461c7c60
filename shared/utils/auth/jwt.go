package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"bloodlink-backend/shared/config"
)

// Claims is the token payload the session service issues. The organization
// and role fields already reflect any "acting as branch" context switch, so
// this service never sees the difference.
type Claims struct {
	UserID         string `json:"user_id"`
	Email          string `json:"email"`
	OrganizationID string `json:"organization_id"`
	Role           string `json:"role"`
	jwt.RegisteredClaims
}

func jwtSecret() []byte {
	return []byte(config.GetConfig().JWTSecret)
}

// GenerateJWT issues a token for development tooling and tests. Production
// tokens come from the external session service with the same claims shape.
func GenerateJWT(userID uuid.UUID, email string, organizationID uuid.UUID, role string, ttl time.Duration) (string, error) {
	claims := Claims{
		UserID:         userID.String(),
		Email:          email,
		OrganizationID: organizationID.String(),
		Role:           role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret())
}

// ValidateJWT parses and validates a token string
func ValidateJWT(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return jwtSecret(), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
