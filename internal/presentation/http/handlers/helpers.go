package handlers

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/AtRiskMedia/leadledger-go/internal/application/policy"
	"github.com/AtRiskMedia/leadledger-go/internal/domain/operator"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/venue"
	"github.com/gin-gonic/gin"
)

// extractToken pulls the operator token from the Authorization header or
// the role cookies, reporting where it came from.
func extractToken(c *gin.Context) (token, source string) {
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer "), "bearer"
	}
	if cookie, err := c.Cookie("admin_auth"); err == nil && cookie != "" {
		return cookie, "cookie"
	}
	if cookie, err := c.Cookie("operator_auth"); err == nil && cookie != "" {
		return cookie, "cookie"
	}
	return "", ""
}

// operatorFrom returns the operator identity stashed by the auth middleware.
func operatorFrom(c *gin.Context) *operator.Operator {
	v, exists := c.Get("operator")
	if !exists {
		return nil
	}
	op, ok := v.(*operator.Operator)
	if !ok {
		return nil
	}
	return op
}

// allowCommand runs the dispatch policies for the current operator and
// writes the denial response when one refuses. Returns true when the
// command may proceed.
func allowCommand(c *gin.Context, pipeline *policy.Pipeline, venueCtx *venue.Context, command string) bool {
	op := operatorFrom(c)
	if op == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return false
	}

	decision := pipeline.Evaluate(policy.Request{
		VenueID:    venueCtx.VenueID,
		OperatorID: op.OperatorID,
		Role:       op.Role,
		Command:    command,
	})
	if decision.Allowed {
		return true
	}

	status := http.StatusForbidden
	if decision.RetryAfter > 0 {
		status = http.StatusTooManyRequests
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(decision.RetryAfter.Seconds()))))
	}
	c.JSON(status, gin.H{"error": decision.Reason, "policy": decision.Policy})
	return false
}

// writeCachedJSON handles ETag negotiation: a matching If-None-Match gets
// 304 with no body, otherwise the payload is written with its ETag.
func writeCachedJSON(c *gin.Context, etag string, payload any) {
	if etag != "" {
		c.Header("ETag", etag)
		if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}
	c.JSON(http.StatusOK, payload)
}
