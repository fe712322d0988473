// Package http provides HTTP handlers for stored file operations. Content is
// streamed through the cipher in both directions.
package http

import (
	"fmt"
	"log/slog"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"

	authHTTP "github.com/allisson/filevault/internal/auth/http"
	"github.com/allisson/filevault/internal/files/http/dto"
	filesUseCase "github.com/allisson/filevault/internal/files/usecase"
	"github.com/allisson/filevault/internal/httputil"
	customValidation "github.com/allisson/filevault/internal/validation"
)

// FileHandler handles HTTP requests for file operations.
type FileHandler struct {
	fileUseCase filesUseCase.FileUseCase
	logger      *slog.Logger
}

// NewFileHandler creates a new file handler.
func NewFileHandler(fileUseCase filesUseCase.FileUseCase, logger *slog.Logger) *FileHandler {
	return &FileHandler{
		fileUseCase: fileUseCase,
		logger:      logger,
	}
}

// UploadHandler stores a new encrypted file.
// POST /v1/files (multipart: file, optional expires_at) - Returns 201 with file metadata.
func (h *FileHandler) UploadHandler(c *gin.Context) {
	principal, ok := authHTTP.MustPrincipal(c, h.logger)
	if !ok {
		return
	}

	var req dto.UploadFileRequest
	if err := c.ShouldBind(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}
	expiresAt, err := req.ParsedExpiresAt()
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("file is required"), h.logger)
		return
	}

	body, err := header.Open()
	if err != nil {
		httputil.HandleBadRequestGin(c, fmt.Errorf("failed to read uploaded file"), h.logger)
		return
	}
	defer body.Close() //nolint:errcheck

	file, err := h.fileUseCase.Upload(c.Request.Context(), principal, filesUseCase.UploadInput{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        body,
		ExpiresAt:   expiresAt,
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapFileToResponse(file))
}

// ListHandler lists the caller's files.
// GET /v1/files?offset=0&limit=50
func (h *FileHandler) ListHandler(c *gin.Context) {
	principal, ok := authHTTP.MustPrincipal(c, h.logger)
	if !ok {
		return
	}

	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	files, err := h.fileUseCase.List(c.Request.Context(), principal, offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapFilesToListResponse(files))
}

// GetHandler returns file metadata.
// GET /v1/files/:id
func (h *FileHandler) GetHandler(c *gin.Context) {
	principal, ok := authHTTP.MustPrincipal(c, h.logger)
	if !ok {
		return
	}

	id, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	file, err := h.fileUseCase.Get(c.Request.Context(), principal, id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapFileToResponse(file))
}

// DownloadHandler streams the decrypted content of a non-vaulted file.
// GET /v1/files/:id/content
func (h *FileHandler) DownloadHandler(c *gin.Context) {
	principal, ok := authHTTP.MustPrincipal(c, h.logger)
	if !ok {
		return
	}

	id, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	rc, file, err := h.fileUseCase.Open(c.Request.Context(), principal, id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	defer rc.Close() //nolint:errcheck

	c.DataFromReader(http.StatusOK, file.Size, file.ContentType, rc, map[string]string{
		"Content-Disposition": ContentDisposition(file.OriginalName),
	})
}

// VerifyHandler checks the stored content against the digest recorded at upload.
// POST /v1/files/:id/verify
func (h *FileHandler) VerifyHandler(c *gin.Context) {
	principal, ok := authHTTP.MustPrincipal(c, h.logger)
	if !ok {
		return
	}

	id, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	valid, err := h.fileUseCase.Verify(c.Request.Context(), principal, id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.VerifyFileResponse{FileID: id.String(), Valid: valid})
}

// DeleteHandler deletes a non-vaulted file.
// DELETE /v1/files/:id - Returns 204 No Content.
func (h *FileHandler) DeleteHandler(c *gin.Context) {
	principal, ok := authHTTP.MustPrincipal(c, h.logger)
	if !ok {
		return
	}

	id, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := h.fileUseCase.Delete(c.Request.Context(), principal, id); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}

// ContentDisposition builds an attachment header carrying the original file name.
func ContentDisposition(name string) string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": name})
}
