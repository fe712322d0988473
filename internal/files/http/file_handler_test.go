package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	authDomain "github.com/allisson/filevault/internal/auth/domain"
	authHTTP "github.com/allisson/filevault/internal/auth/http"
	filesDomain "github.com/allisson/filevault/internal/files/domain"
	"github.com/allisson/filevault/internal/files/http/dto"
	filesUseCase "github.com/allisson/filevault/internal/files/usecase"
	"github.com/allisson/filevault/internal/files/usecase/mocks"
)

// setupTestRouter wires the handler behind the principal middleware.
func setupTestRouter(t *testing.T) (*gin.Engine, *mocks.MockFileUseCase) {
	t.Helper()

	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mockUseCase := mocks.NewMockFileUseCase(t)
	handler := NewFileHandler(mockUseCase, logger)

	router := gin.New()
	files := router.Group("/v1/files", authHTTP.PrincipalMiddleware(logger))
	files.POST("", handler.UploadHandler)
	files.GET("", handler.ListHandler)
	files.GET("/:id", handler.GetHandler)
	files.GET("/:id/content", handler.DownloadHandler)
	files.POST("/:id/verify", handler.VerifyHandler)
	files.DELETE("/:id", handler.DeleteHandler)

	return router, mockUseCase
}

func withPrincipal(req *http.Request, userID uuid.UUID) *http.Request {
	req.Header.Set(authHTTP.HeaderUserID, userID.String())
	return req
}

func isPrincipal(userID uuid.UUID) any {
	return mock.MatchedBy(func(p *authDomain.Principal) bool {
		return p != nil && p.UserID == userID
	})
}

func newStoredFile(ownerID uuid.UUID) *filesDomain.StoredFile {
	return &filesDomain.StoredFile{
		ID:           uuid.Must(uuid.NewV7()),
		OwnerID:      ownerID,
		OriginalName: "report.txt",
		StoredName:   "object",
		Size:         5,
		ContentType:  "text/plain",
		DigestHex:    "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		UploadedAt:   time.Now().UTC(),
	}
}

func multipartBody(t *testing.T, fields map[string]string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if content != nil {
		part, err := writer.CreateFormFile("file", "report.txt")
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestFileHandler_UploadHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		router, mockUseCase := setupTestRouter(t)
		userID := uuid.Must(uuid.NewV7())
		file := newStoredFile(userID)

		mockUseCase.On("Upload", mock.Anything, isPrincipal(userID), mock.MatchedBy(func(in filesUseCase.UploadInput) bool {
			content, err := io.ReadAll(in.Body)
			return err == nil && string(content) == "hello" && in.Name == "report.txt" && in.ExpiresAt == nil
		})).Return(file, nil).Once()

		body, contentType := multipartBody(t, nil, []byte("hello"))
		req := withPrincipal(httptest.NewRequest(http.MethodPost, "/v1/files", body), userID)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		var response dto.FileResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, file.ID.String(), response.ID)
		assert.Equal(t, file.DigestHex, response.SHA256)
		assert.NotContains(t, w.Body.String(), "nonce")
	})

	t.Run("Error_MissingFile", func(t *testing.T) {
		router, _ := setupTestRouter(t)

		body, contentType := multipartBody(t, nil, nil)
		req := withPrincipal(httptest.NewRequest(http.MethodPost, "/v1/files", body), uuid.Must(uuid.NewV7()))
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("Error_PastExpiry", func(t *testing.T) {
		router, _ := setupTestRouter(t)

		body, contentType := multipartBody(t, map[string]string{
			"expires_at": time.Now().Add(-time.Hour).Format(time.RFC3339),
		}, []byte("hello"))
		req := withPrincipal(httptest.NewRequest(http.MethodPost, "/v1/files", body), uuid.Must(uuid.NewV7()))
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("Error_NoPrincipal", func(t *testing.T) {
		router, _ := setupTestRouter(t)

		body, contentType := multipartBody(t, nil, []byte("hello"))
		req := httptest.NewRequest(http.MethodPost, "/v1/files", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestFileHandler_ListHandler(t *testing.T) {
	router, mockUseCase := setupTestRouter(t)
	userID := uuid.Must(uuid.NewV7())
	files := []*filesDomain.StoredFile{newStoredFile(userID), newStoredFile(userID)}

	mockUseCase.On("List", mock.Anything, isPrincipal(userID), 0, 10).Return(files, nil).Once()

	req := withPrincipal(httptest.NewRequest(http.MethodGet, "/v1/files?limit=10", nil), userID)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var response dto.ListFilesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Len(t, response.Data, 2)
}

func TestFileHandler_GetHandler(t *testing.T) {
	t.Run("Error_NotOwner", func(t *testing.T) {
		router, mockUseCase := setupTestRouter(t)
		userID := uuid.Must(uuid.NewV7())
		id := uuid.Must(uuid.NewV7())

		mockUseCase.On("Get", mock.Anything, isPrincipal(userID), id).
			Return(nil, filesDomain.ErrNotFileOwner).Once()

		req := withPrincipal(httptest.NewRequest(http.MethodGet, "/v1/files/"+id.String(), nil), userID)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Error_InvalidID", func(t *testing.T) {
		router, _ := setupTestRouter(t)

		req := withPrincipal(httptest.NewRequest(http.MethodGet, "/v1/files/not-a-uuid", nil), uuid.Must(uuid.NewV7()))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestFileHandler_DownloadHandler(t *testing.T) {
	t.Run("Success_StreamsPlaintext", func(t *testing.T) {
		router, mockUseCase := setupTestRouter(t)
		userID := uuid.Must(uuid.NewV7())
		file := newStoredFile(userID)

		mockUseCase.On("Open", mock.Anything, isPrincipal(userID), file.ID).
			Return(io.NopCloser(bytes.NewReader([]byte("hello"))), file, nil).Once()

		req := withPrincipal(httptest.NewRequest(http.MethodGet, "/v1/files/"+file.ID.String()+"/content", nil), userID)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "hello", w.Body.String())
		assert.Equal(t, "text/plain", w.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename=report.txt`, w.Header().Get("Content-Disposition"))
	})

	t.Run("Error_Vaulted", func(t *testing.T) {
		router, mockUseCase := setupTestRouter(t)
		userID := uuid.Must(uuid.NewV7())
		id := uuid.Must(uuid.NewV7())

		mockUseCase.On("Open", mock.Anything, isPrincipal(userID), id).
			Return(nil, nil, filesDomain.ErrFileVaulted).Once()

		req := withPrincipal(httptest.NewRequest(http.MethodGet, "/v1/files/"+id.String()+"/content", nil), userID)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestFileHandler_VerifyHandler(t *testing.T) {
	router, mockUseCase := setupTestRouter(t)
	userID := uuid.Must(uuid.NewV7())
	id := uuid.Must(uuid.NewV7())

	mockUseCase.On("Verify", mock.Anything, isPrincipal(userID), id).Return(false, nil).Once()

	req := withPrincipal(httptest.NewRequest(http.MethodPost, "/v1/files/"+id.String()+"/verify", nil), userID)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var response dto.VerifyFileResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, id.String(), response.FileID)
	assert.False(t, response.Valid)
}

func TestFileHandler_DeleteHandler(t *testing.T) {
	router, mockUseCase := setupTestRouter(t)
	userID := uuid.Must(uuid.NewV7())
	id := uuid.Must(uuid.NewV7())

	mockUseCase.On("Delete", mock.Anything, isPrincipal(userID), id).Return(nil).Once()

	req := withPrincipal(httptest.NewRequest(http.MethodDelete, "/v1/files/"+id.String(), nil), userID)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}
