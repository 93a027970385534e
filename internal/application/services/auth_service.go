package services

import (
	"slices"
	"strings"
	"time"

	"github.com/AtRiskMedia/leadledger-go/internal/domain/operator"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/security"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/venue"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles operator authentication and JWT operations. Venues
// carry two shared passwords, one per role; the operator id supplied at login
// keys that person's delivery preferences.
type AuthService struct {
	logger *logging.ChanneledLogger
}

// NewAuthService creates a new authentication service
func NewAuthService(logger *logging.ChanneledLogger) *AuthService {
	return &AuthService{
		logger: logger,
	}
}

// AuthResult holds authentication result data
type AuthResult struct {
	Token   string `json:"token"`
	Role    string `json:"role"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// AuthenticateOperator validates admin or operator credentials against the
// venue config and issues a venue-bound JWT.
func (a *AuthService) AuthenticateOperator(operatorID, password string, venueCtx *venue.Context) *AuthResult {
	operatorID = strings.TrimSpace(operatorID)
	if operatorID == "" {
		return &AuthResult{Success: false, Error: "Operator id required"}
	}

	var role string
	if venueCtx.Config.AdminPassword != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(venueCtx.Config.AdminPassword), []byte(password)); err == nil {
			role = operator.RoleAdmin
		}
	}
	if role == "" && venueCtx.Config.OperatorPassword != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(venueCtx.Config.OperatorPassword), []byte(password)); err == nil {
			role = operator.RoleOperator
		}
	}

	// Fallback for plaintext passwords during transition/testing
	if role == "" {
		if venueCtx.Config.AdminPassword != "" && password == venueCtx.Config.AdminPassword {
			role = operator.RoleAdmin
		} else if venueCtx.Config.OperatorPassword != "" && password == venueCtx.Config.OperatorPassword {
			role = operator.RoleOperator
		}
	}

	if role == "" {
		a.logger.Auth().Warn("Operator authentication rejected", "venueId", venueCtx.VenueID, "operatorId", operatorID)
		return &AuthResult{Success: false, Error: "Invalid credentials"}
	}

	op := &operator.Operator{
		OperatorID: operatorID,
		VenueID:    venueCtx.VenueID,
		Role:       role,
	}
	token, err := security.GenerateOperatorToken(op, venueCtx.Config.JWTSecret)
	if err != nil {
		a.logger.Auth().Error("Token generation failed", "venueId", venueCtx.VenueID, "error", err.Error())
		return &AuthResult{Success: false, Error: "Token generation failed"}
	}

	a.logger.Auth().Info("Operator authenticated", "venueId", venueCtx.VenueID, "operatorId", operatorID, "role", role)
	return &AuthResult{Token: token, Role: role, Success: true}
}

// OperatorFromToken validates a token for this venue and returns the
// operator identity it carries, or nil when the token is unusable.
func (a *AuthService) OperatorFromToken(tokenString string, venueCtx *venue.Context) *operator.Operator {
	if tokenString == "" {
		return nil
	}
	claims, err := security.ValidateJWT(tokenString, venueCtx.Config.JWTSecret)
	if err != nil {
		return nil
	}
	op := security.GetOperatorFromClaims(claims)
	if op == nil || op.VenueID != venueCtx.VenueID {
		return nil
	}
	return op
}

// ValidateAdminToken checks if a token belongs to an admin for this venue.
func (a *AuthService) ValidateAdminToken(tokenString string, venueCtx *venue.Context) bool {
	return a.ValidateTokenWithRoles(tokenString, venueCtx, []string{operator.RoleAdmin})
}

// ValidateOperatorToken checks if a token belongs to an admin or operator
// for this venue.
func (a *AuthService) ValidateOperatorToken(tokenString string, venueCtx *venue.Context) bool {
	return a.ValidateTokenWithRoles(tokenString, venueCtx, []string{operator.RoleAdmin, operator.RoleOperator})
}

// ValidateTokenWithRoles validates a token and checks if the role is in the allowed list
func (a *AuthService) ValidateTokenWithRoles(tokenString string, venueCtx *venue.Context, allowedRoles []string) bool {
	op := a.OperatorFromToken(tokenString, venueCtx)
	if op == nil {
		return false
	}
	return slices.Contains(allowedRoles, op.Role)
}

// TokenInfo holds information about a decoded token
type TokenInfo struct {
	Valid      bool      `json:"valid"`
	OperatorID string    `json:"operatorId,omitempty"`
	Role       string    `json:"role,omitempty"`
	VenueID    string    `json:"venueId,omitempty"`
	ExpiresAt  time.Time `json:"expiresAt,omitempty"`
}

// GetTokenInfo extracts information from a JWT token without validating permissions
func (a *AuthService) GetTokenInfo(tokenString string, venueCtx *venue.Context) *TokenInfo {
	if tokenString == "" {
		return &TokenInfo{Valid: false}
	}

	claims, err := security.ValidateJWT(tokenString, venueCtx.Config.JWTSecret)
	if err != nil {
		return &TokenInfo{Valid: false}
	}

	info := &TokenInfo{Valid: true}
	if id, ok := claims["operatorId"].(string); ok {
		info.OperatorID = id
	}
	if role, ok := claims["role"].(string); ok {
		info.Role = role
	}
	if venueID, ok := claims["venueId"].(string); ok {
		info.VenueID = venueID
	}
	if exp, ok := claims["exp"].(float64); ok {
		info.ExpiresAt = time.Unix(int64(exp), 0)
	}
	return info
}
