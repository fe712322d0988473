// Package http provides HTTP handlers for the vault quota.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	authHTTP "github.com/allisson/filevault/internal/auth/http"
	"github.com/allisson/filevault/internal/httputil"
	"github.com/allisson/filevault/internal/quota/http/dto"
	quotaUseCase "github.com/allisson/filevault/internal/quota/usecase"
)

// QuotaHandler handles HTTP requests for quota reporting.
type QuotaHandler struct {
	ledger quotaUseCase.Ledger
	logger *slog.Logger
}

// NewQuotaHandler creates a new quota handler.
func NewQuotaHandler(ledger quotaUseCase.Ledger, logger *slog.Logger) *QuotaHandler {
	return &QuotaHandler{
		ledger: ledger,
		logger: logger,
	}
}

// GetHandler reports the caller's vault usage and budget.
// GET /v1/quota
func (h *QuotaHandler) GetHandler(c *gin.Context) {
	principal, ok := authHTTP.MustPrincipal(c, h.logger)
	if !ok {
		return
	}

	summary, err := h.ledger.Summary(c.Request.Context(), principal)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapSummaryToResponse(summary))
}
