// Package security provides JWT token utilities
package security

import (
	"errors"
	"time"

	"github.com/AtRiskMedia/leadledger-go/internal/domain/operator"
	"github.com/golang-jwt/jwt/v4"
)

// OperatorTokenTTL bounds how long an operator session token stays valid.
const OperatorTokenTTL = 24 * time.Hour

// ValidateJWT validates a JWT token and returns the claims
func ValidateJWT(tokenString, jwtSecret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// GetOperatorFromClaims extracts an operator identity from JWT claims
func GetOperatorFromClaims(claims jwt.MapClaims) *operator.Operator {
	operatorID, ok := claims["operatorId"].(string)
	if !ok {
		return nil
	}
	venueID, ok := claims["venueId"].(string)
	if !ok {
		return nil
	}
	role, ok := claims["role"].(string)
	if !ok {
		return nil
	}
	return &operator.Operator{
		OperatorID: operatorID,
		VenueID:    venueID,
		Role:       role,
	}
}

// GenerateOperatorToken creates a JWT token for an authenticated operator.
// The token is bound to the venue it was issued for; requests carrying it
// against another venue are rejected at the middleware.
func GenerateOperatorToken(op *operator.Operator, jwtSecret string) (string, error) {
	claims := jwt.MapClaims{
		"operatorId": op.OperatorID,
		"venueId":    op.VenueID,
		"role":       op.Role,
		"iat":        time.Now().UTC().Unix(),
		"exp":        time.Now().UTC().Add(OperatorTokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}
