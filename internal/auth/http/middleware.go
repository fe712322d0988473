package http

import (
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	authDomain "github.com/allisson/filevault/internal/auth/domain"
	"github.com/allisson/filevault/internal/httputil"
)

// Headers set by the authenticating gateway.
const (
	HeaderUserID     = "X-User-Id"
	HeaderUserRole   = "X-User-Role"
	HeaderDepartment = "X-User-Department"
	HeaderTeamID     = "X-Team-Id"
)

// PrincipalMiddleware builds the principal from gateway headers and stores it in the
// request context. Requests without a valid user id are rejected with 401.
func PrincipalMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := uuid.Parse(c.GetHeader(HeaderUserID))
		if err != nil {
			logger.Debug("principal rejected: invalid user id")
			httputil.HandleErrorGin(c, authDomain.ErrPrincipalMissing, logger)
			c.Abort()
			return
		}

		principal := &authDomain.Principal{
			UserID:     userID,
			Role:       strings.ToLower(strings.TrimSpace(c.GetHeader(HeaderUserRole))),
			Department: strings.TrimSpace(c.GetHeader(HeaderDepartment)),
		}
		if principal.Role == "" {
			principal.Role = authDomain.RoleEmployee
		}

		if raw := c.GetHeader(HeaderTeamID); raw != "" {
			teamID, err := uuid.Parse(raw)
			if err != nil {
				logger.Debug("principal rejected: invalid team id")
				httputil.HandleErrorGin(c, authDomain.ErrPrincipalMissing, logger)
				c.Abort()
				return
			}
			principal.TeamID = &teamID
		}

		c.Request = c.Request.WithContext(WithPrincipal(c.Request.Context(), principal))
		c.Next()
	}
}

// MustPrincipal returns the request principal or writes a 401 and aborts.
func MustPrincipal(c *gin.Context, logger *slog.Logger) (*authDomain.Principal, bool) {
	principal, ok := GetPrincipal(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, authDomain.ErrPrincipalMissing, logger)
		c.Abort()
		return nil, false
	}
	return principal, true
}
