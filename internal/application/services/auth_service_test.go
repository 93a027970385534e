package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/AtRiskMedia/leadledger-go/internal/domain/operator"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/security"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/venue"
)

func TestAuthenticateOperatorWithHashedPassword(t *testing.T) {
	vc := newTestVenue(t)
	svc := NewAuthService(testLogger(t))

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	vc.Config.AdminPassword = string(hash)

	result := svc.AuthenticateOperator("irina", "s3cret", vc)
	require.True(t, result.Success, result.Error)
	assert.Equal(t, operator.RoleAdmin, result.Role)
	require.NotEmpty(t, result.Token)

	op := svc.OperatorFromToken(result.Token, vc)
	require.NotNil(t, op)
	assert.Equal(t, "irina", op.OperatorID)
	assert.Equal(t, operator.RoleAdmin, op.Role)
	assert.Equal(t, vc.VenueID, op.VenueID)
}

func TestAuthenticateOperatorPlaintextFallback(t *testing.T) {
	vc := newTestVenue(t)
	svc := NewAuthService(testLogger(t))
	vc.Config.OperatorPassword = "door-code"

	result := svc.AuthenticateOperator("oleg", "door-code", vc)
	require.True(t, result.Success, result.Error)
	assert.Equal(t, operator.RoleOperator, result.Role)
}

func TestAuthenticateOperatorRejectsBadInput(t *testing.T) {
	vc := newTestVenue(t)
	svc := NewAuthService(testLogger(t))
	vc.Config.OperatorPassword = "door-code"

	denied := svc.AuthenticateOperator("oleg", "wrong", vc)
	assert.False(t, denied.Success)
	assert.Equal(t, "Invalid credentials", denied.Error)
	assert.Empty(t, denied.Token)

	anonymous := svc.AuthenticateOperator("   ", "door-code", vc)
	assert.False(t, anonymous.Success)
	assert.Equal(t, "Operator id required", anonymous.Error)
}

func TestTokenRoleGating(t *testing.T) {
	vc := newTestVenue(t)
	svc := NewAuthService(testLogger(t))
	vc.Config.AdminPassword = "admin-pass"
	vc.Config.OperatorPassword = "operator-pass"

	admin := svc.AuthenticateOperator("irina", "admin-pass", vc)
	require.True(t, admin.Success)
	assert.True(t, svc.ValidateAdminToken(admin.Token, vc))
	assert.True(t, svc.ValidateOperatorToken(admin.Token, vc))

	op := svc.AuthenticateOperator("oleg", "operator-pass", vc)
	require.True(t, op.Success)
	assert.False(t, svc.ValidateAdminToken(op.Token, vc))
	assert.True(t, svc.ValidateOperatorToken(op.Token, vc))

	assert.False(t, svc.ValidateOperatorToken("not-a-token", vc))
}

func TestTokenBoundToVenue(t *testing.T) {
	vc := newTestVenue(t)
	svc := NewAuthService(testLogger(t))

	token, err := security.GenerateOperatorToken(&operator.Operator{
		OperatorID: "irina",
		VenueID:    vc.VenueID,
		Role:       operator.RoleAdmin,
	}, vc.Config.JWTSecret)
	require.NoError(t, err)

	other := &venue.Context{
		VenueID: "venue-2",
		Config:  &venue.Config{VenueID: "venue-2", JWTSecret: vc.Config.JWTSecret},
		Logger:  vc.Logger,
	}
	assert.Nil(t, svc.OperatorFromToken(token, other))

	// A token signed under another venue's secret never validates here.
	foreign, err := security.GenerateOperatorToken(&operator.Operator{
		OperatorID: "irina",
		VenueID:    vc.VenueID,
		Role:       operator.RoleAdmin,
	}, "some-other-secret")
	require.NoError(t, err)
	assert.Nil(t, svc.OperatorFromToken(foreign, vc))
}

func TestGetTokenInfoDecodesClaims(t *testing.T) {
	vc := newTestVenue(t)
	svc := NewAuthService(testLogger(t))
	vc.Config.OperatorPassword = "door-code"

	result := svc.AuthenticateOperator("oleg", "door-code", vc)
	require.True(t, result.Success)

	info := svc.GetTokenInfo(result.Token, vc)
	require.True(t, info.Valid)
	assert.Equal(t, "oleg", info.OperatorID)
	assert.Equal(t, operator.RoleOperator, info.Role)
	assert.Equal(t, vc.VenueID, info.VenueID)
	assert.WithinDuration(t, time.Now().Add(security.OperatorTokenTTL), info.ExpiresAt, time.Minute)

	assert.False(t, svc.GetTokenInfo("", vc).Valid)
}
