// Package http provides HTTP handlers for the confidential vault.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	authHTTP "github.com/allisson/filevault/internal/auth/http"
	filesHTTP "github.com/allisson/filevault/internal/files/http"
	"github.com/allisson/filevault/internal/httputil"
	customValidation "github.com/allisson/filevault/internal/validation"
	"github.com/allisson/filevault/internal/vault/http/dto"
	vaultUseCase "github.com/allisson/filevault/internal/vault/usecase"
)

// HeaderVaultPin carries the candidate PIN of a gate check. It is never logged.
const HeaderVaultPin = "X-Vault-Pin"

// VaultHandler handles HTTP requests for vault operations.
type VaultHandler struct {
	vaultUseCase vaultUseCase.VaultUseCase
	logger       *slog.Logger
}

// NewVaultHandler creates a new vault handler.
func NewVaultHandler(vaultUseCase vaultUseCase.VaultUseCase, logger *slog.Logger) *VaultHandler {
	return &VaultHandler{
		vaultUseCase: vaultUseCase,
		logger:       logger,
	}
}

// PromoteHandler places a file into the vault.
// POST /v1/vault - Returns 201 with the membership.
func (h *VaultHandler) PromoteHandler(c *gin.Context) {
	principal, ok := authHTTP.MustPrincipal(c, h.logger)
	if !ok {
		return
	}

	var req dto.PromoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}
	input, err := req.ToInput()
	if err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	membership, err := h.vaultUseCase.Promote(c.Request.Context(), principal, input)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapMembershipToResponse(membership))
}

// GetHandler returns membership metadata.
// GET /v1/vault/:id
func (h *VaultHandler) GetHandler(c *gin.Context) {
	principal, ok := authHTTP.MustPrincipal(c, h.logger)
	if !ok {
		return
	}

	id, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	membership, err := h.vaultUseCase.Get(c.Request.Context(), principal, id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapMembershipToResponse(membership))
}

// RemoveHandler takes a file out of the vault. Repeating the call is harmless.
// DELETE /v1/vault/:id - Returns 204 No Content.
func (h *VaultHandler) RemoveHandler(c *gin.Context) {
	principal, ok := authHTTP.MustPrincipal(c, h.logger)
	if !ok {
		return
	}

	id, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := h.vaultUseCase.Remove(c.Request.Context(), principal, id); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}

// AccessHandler runs the PIN gate and returns a single-use capability.
// POST /v1/vault/:id/access (header X-Vault-Pin)
func (h *VaultHandler) AccessHandler(c *gin.Context) {
	principal, ok := authHTTP.MustPrincipal(c, h.logger)
	if !ok {
		return
	}

	id, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	capability, err := h.vaultUseCase.Gate(c.Request.Context(), principal, id, c.GetHeader(HeaderVaultPin))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, dto.MapCapabilityToResponse(capability))
}

// ContentHandler redeems a capability and streams the decrypted file.
// GET /v1/vault/capabilities/:token/content
func (h *VaultHandler) ContentHandler(c *gin.Context) {
	principal, ok := authHTTP.MustPrincipal(c, h.logger)
	if !ok {
		return
	}

	rc, file, err := h.vaultUseCase.OpenCapability(c.Request.Context(), principal, c.Param("token"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	defer rc.Close() //nolint:errcheck

	c.DataFromReader(http.StatusOK, file.Size, file.ContentType, rc, map[string]string{
		"Content-Disposition": filesHTTP.ContentDisposition(file.OriginalName),
		"Cache-Control":       "no-store",
	})
}
