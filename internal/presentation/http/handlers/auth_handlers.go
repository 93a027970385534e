// Package handlers provides HTTP request handlers for the presentation layer.
package handlers

import (
	"net/http"
	"time"

	"github.com/AtRiskMedia/leadledger-go/internal/application/services"
	"github.com/AtRiskMedia/leadledger-go/internal/domain/operator"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/leadledger-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

const authCookieMaxAge = 86400 // 24 hours, matching the token TTL

// AuthHandlers contains all authentication-related HTTP handlers
type AuthHandlers struct {
	authService *services.AuthService
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewAuthHandlers creates auth handlers with injected dependencies
func NewAuthHandlers(authService *services.AuthService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// PostLogin handles POST /api/v1/auth/login - operator authentication
func (h *AuthHandlers) PostLogin(c *gin.Context) {
	venueCtx, exists := middleware.GetVenueContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "venue context not found"})
		return
	}

	start := time.Now()
	marker := h.perfTracker.StartOperation("post_login_request", venueCtx.VenueID)
	defer marker.Complete()
	h.logger.Auth().Debug("Received login request", "method", c.Request.Method, "path", c.Request.URL.Path, "venueId", venueCtx.VenueID)

	var loginReq struct {
		OperatorID string `json:"operatorId" binding:"required"`
		Password   string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&loginReq); err != nil {
		h.logger.Auth().Error("Login request JSON binding failed", "venueId", venueCtx.VenueID, "error", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	result := h.authService.AuthenticateOperator(loginReq.OperatorID, loginReq.Password, venueCtx)

	if !result.Success {
		h.logger.Auth().Warn("Login attempt failed", "venueId", venueCtx.VenueID, "operatorId", loginReq.OperatorID, "error", result.Error, "duration", time.Since(start))
		marker.SetSuccess(false)
		h.logger.Perf().Info("Performance for PostLogin request", "duration", marker.Duration, "venueId", venueCtx.VenueID, "success", false)

		c.JSON(http.StatusUnauthorized, gin.H{"error": result.Error})
		return
	}

	// Set role-specific HTTP-only cookie
	cookieName := "operator_auth"
	if result.Role == operator.RoleAdmin {
		cookieName = "admin_auth"
	}

	c.SetCookie(
		cookieName,       // name (admin_auth or operator_auth)
		result.Token,     // value
		authCookieMaxAge, // maxAge
		"/",              // path
		"",               // domain (empty for current domain)
		false,            // secure (set to true in production)
		true,             // httpOnly
	)

	h.logger.Auth().Info("Login successful", "venueId", venueCtx.VenueID, "operatorId", loginReq.OperatorID, "role", result.Role, "duration", time.Since(start))
	marker.SetSuccess(true)
	h.logger.Perf().Info("Performance for PostLogin request", "duration", marker.Duration, "venueId", venueCtx.VenueID, "success", true)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"role":    result.Role,
		"token":   result.Token,
		"message": "Login successful",
	})
}

// PostLogout handles POST /api/v1/auth/logout - clears authentication cookies
func (h *AuthHandlers) PostLogout(c *gin.Context) {
	venueCtx, exists := middleware.GetVenueContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "venue context not found"})
		return
	}

	start := time.Now()
	marker := h.perfTracker.StartOperation("post_logout_request", venueCtx.VenueID)
	defer marker.Complete()
	h.logger.Auth().Debug("Received logout request", "method", c.Request.Method, "path", c.Request.URL.Path, "venueId", venueCtx.VenueID)

	// Clear both role cookies by setting them to expired
	c.SetCookie("admin_auth", "", -1, "/", "", false, true)
	c.SetCookie("operator_auth", "", -1, "/", "", false, true)

	h.logger.Auth().Info("Logout completed", "venueId", venueCtx.VenueID, "duration", time.Since(start))
	marker.SetSuccess(true)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Logout successful",
	})
}

// GetAuthStatus handles GET /api/v1/auth/status - checks current authentication status
func (h *AuthHandlers) GetAuthStatus(c *gin.Context) {
	venueCtx, exists := middleware.GetVenueContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "venue context not found"})
		return
	}

	start := time.Now()
	marker := h.perfTracker.StartOperation("get_auth_status_request", venueCtx.VenueID)
	defer marker.Complete()
	h.logger.Auth().Debug("Received auth status request", "method", c.Request.Method, "path", c.Request.URL.Path, "venueId", venueCtx.VenueID)

	token, authMethod := extractToken(c)

	var tokenInfo *services.TokenInfo
	authenticated := false
	if token != "" {
		tokenInfo = h.authService.GetTokenInfo(token, venueCtx)
		authenticated = tokenInfo.Valid
	}
	if !authenticated {
		authMethod = ""
	}

	response := gin.H{
		"authenticated": authenticated,
		"method":        authMethod,
	}

	if authenticated && tokenInfo != nil {
		response["operatorId"] = tokenInfo.OperatorID
		response["role"] = tokenInfo.Role
		response["venueId"] = tokenInfo.VenueID
		response["expiresAt"] = tokenInfo.ExpiresAt
	}

	h.logger.Auth().Info("Auth status check completed", "venueId", venueCtx.VenueID, "authenticated", authenticated, "method", authMethod, "duration", time.Since(start))
	marker.SetSuccess(true)

	c.JSON(http.StatusOK, response)
}

// AuthMiddleware validates the operator token and stashes the operator
// identity for downstream policy checks.
func (h *AuthHandlers) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		venueCtx, exists := middleware.GetVenueContext(c)
		if !exists {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "venue context not found"})
			c.Abort()
			return
		}

		token, _ := extractToken(c)
		op := h.authService.OperatorFromToken(token, venueCtx)
		if op == nil {
			h.logger.Auth().Warn("Unauthorized access attempt", "venueId", venueCtx.VenueID, "path", c.Request.URL.Path)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			c.Abort()
			return
		}

		c.Set("operator", op)

		c.Next()
	}
}

// AdminOnlyMiddleware provides admin-only authentication middleware
func (h *AuthHandlers) AdminOnlyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		venueCtx, exists := middleware.GetVenueContext(c)
		if !exists {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "venue context not found"})
			c.Abort()
			return
		}

		token, _ := extractToken(c)
		if !h.authService.ValidateAdminToken(token, venueCtx) {
			h.logger.Auth().Warn("Unauthorized admin access attempt", "venueId", venueCtx.VenueID, "path", c.Request.URL.Path)
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// LoginRequest represents the structure for login requests
type LoginRequest struct {
	OperatorID string `json:"operatorId" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

// LoginResponse represents the response structure for login requests
type LoginResponse struct {
	Success bool   `json:"success"`
	Role    string `json:"role,omitempty"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}
