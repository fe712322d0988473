package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
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
	quotaDomain "github.com/allisson/filevault/internal/quota/domain"
	vaultDomain "github.com/allisson/filevault/internal/vault/domain"
	"github.com/allisson/filevault/internal/vault/http/dto"
	vaultUseCase "github.com/allisson/filevault/internal/vault/usecase"
	"github.com/allisson/filevault/internal/vault/usecase/mocks"
)

func setupTestRouter(t *testing.T) (*gin.Engine, *mocks.MockVaultUseCase, *bytes.Buffer) {
	t.Helper()

	gin.SetMode(gin.TestMode)
	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	mockUseCase := mocks.NewMockVaultUseCase(t)
	handler := NewVaultHandler(mockUseCase, logger)

	router := gin.New()
	vault := router.Group("/v1/vault", authHTTP.PrincipalMiddleware(logger))
	vault.POST("", handler.PromoteHandler)
	vault.GET("/:id", handler.GetHandler)
	vault.DELETE("/:id", handler.RemoveHandler)
	vault.POST("/:id/access", handler.AccessHandler)
	vault.GET("/capabilities/:token/content", handler.ContentHandler)

	return router, mockUseCase, logs
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

func newMembership(ownerID uuid.UUID) *vaultDomain.Membership {
	return &vaultDomain.Membership{
		ID:        uuid.Must(uuid.NewV7()),
		FileID:    uuid.Must(uuid.NewV7()),
		OwnerID:   ownerID,
		PinHash:   "$argon2id$v=19$m=65536,t=3,p=4$secret-hash",
		CreatedAt: time.Now().UTC(),
	}
}

func TestVaultHandler_PromoteHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		router, mockUseCase, logs := setupTestRouter(t)
		userID := uuid.Must(uuid.NewV7())
		membership := newMembership(userID)

		mockUseCase.On("Promote", mock.Anything, isPrincipal(userID), vaultUseCase.PromoteInput{
			FileID: membership.FileID,
			Pin:    "482913",
		}).Return(membership, nil).Once()

		body, _ := json.Marshal(dto.PromoteRequest{FileID: membership.FileID.String(), Pin: "482913"})
		req := withPrincipal(httptest.NewRequest(http.MethodPost, "/v1/vault", bytes.NewReader(body)), userID)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		var response dto.MembershipResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, membership.ID.String(), response.ID)
		assert.Equal(t, membership.FileID.String(), response.FileID)
		assert.NotContains(t, w.Body.String(), "argon2id")
		assert.NotContains(t, w.Body.String(), "482913")
		assert.NotContains(t, logs.String(), "482913")
	})

	t.Run("Error_InvalidPin", func(t *testing.T) {
		router, _, logs := setupTestRouter(t)

		body := []byte(`{"file_id":"` + uuid.Must(uuid.NewV7()).String() + `","pin":"12345"}`)
		req := withPrincipal(httptest.NewRequest(http.MethodPost, "/v1/vault", bytes.NewReader(body)), uuid.Must(uuid.NewV7()))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.NotContains(t, logs.String(), "12345")
	})

	t.Run("Error_MalformedJSON", func(t *testing.T) {
		router, _, _ := setupTestRouter(t)

		req := withPrincipal(
			httptest.NewRequest(http.MethodPost, "/v1/vault", bytes.NewReader([]byte(`{`))),
			uuid.Must(uuid.NewV7()),
		)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Error_QuotaExceeded", func(t *testing.T) {
		router, mockUseCase, _ := setupTestRouter(t)
		userID := uuid.Must(uuid.NewV7())
		fileID := uuid.Must(uuid.NewV7())

		mockUseCase.On("Promote", mock.Anything, isPrincipal(userID), mock.Anything).
			Return(nil, quotaDomain.ErrQuotaExceeded).Once()

		body, _ := json.Marshal(dto.PromoteRequest{FileID: fileID.String(), Pin: "482913"})
		req := withPrincipal(httptest.NewRequest(http.MethodPost, "/v1/vault", bytes.NewReader(body)), userID)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("Error_AlreadyInVault", func(t *testing.T) {
		router, mockUseCase, _ := setupTestRouter(t)
		userID := uuid.Must(uuid.NewV7())

		mockUseCase.On("Promote", mock.Anything, isPrincipal(userID), mock.Anything).
			Return(nil, vaultDomain.ErrAlreadyInVault).Once()

		body, _ := json.Marshal(dto.PromoteRequest{FileID: uuid.Must(uuid.NewV7()).String(), Pin: "482913"})
		req := withPrincipal(httptest.NewRequest(http.MethodPost, "/v1/vault", bytes.NewReader(body)), userID)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestVaultHandler_AccessHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		router, mockUseCase, logs := setupTestRouter(t)
		userID := uuid.Must(uuid.NewV7())
		membershipID := uuid.Must(uuid.NewV7())
		capability := &vaultDomain.Capability{
			Token:        "capability-token",
			MembershipID: membershipID,
			OwnerID:      userID,
			ExpiresAt:    time.Now().Add(time.Minute).UTC(),
		}

		mockUseCase.On("Gate", mock.Anything, isPrincipal(userID), membershipID, "482913").
			Return(capability, nil).Once()

		req := withPrincipal(
			httptest.NewRequest(http.MethodPost, "/v1/vault/"+membershipID.String()+"/access", nil),
			userID,
		)
		req.Header.Set(HeaderVaultPin, "482913")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
		var response dto.CapabilityResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "capability-token", response.Capability)
		assert.NotContains(t, logs.String(), "482913")
	})

	t.Run("Error_WrongPin", func(t *testing.T) {
		router, mockUseCase, logs := setupTestRouter(t)
		userID := uuid.Must(uuid.NewV7())
		membershipID := uuid.Must(uuid.NewV7())

		mockUseCase.On("Gate", mock.Anything, isPrincipal(userID), membershipID, "482914").
			Return(nil, vaultDomain.ErrInvalidSecret).Once()

		req := withPrincipal(
			httptest.NewRequest(http.MethodPost, "/v1/vault/"+membershipID.String()+"/access", nil),
			userID,
		)
		req.Header.Set(HeaderVaultPin, "482914")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.NotContains(t, logs.String(), "482914")
	})

	t.Run("Error_MembershipNotFound", func(t *testing.T) {
		router, mockUseCase, _ := setupTestRouter(t)
		userID := uuid.Must(uuid.NewV7())
		membershipID := uuid.Must(uuid.NewV7())

		mockUseCase.On("Gate", mock.Anything, isPrincipal(userID), membershipID, "000000").
			Return(nil, vaultDomain.ErrMembershipNotFound).Once()

		req := withPrincipal(
			httptest.NewRequest(http.MethodPost, "/v1/vault/"+membershipID.String()+"/access", nil),
			userID,
		)
		req.Header.Set(HeaderVaultPin, "000000")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestVaultHandler_GetHandler(t *testing.T) {
	router, mockUseCase, _ := setupTestRouter(t)
	userID := uuid.Must(uuid.NewV7())
	membership := newMembership(userID)
	membership.AccessCount = 7

	mockUseCase.On("Get", mock.Anything, isPrincipal(userID), membership.ID).Return(membership, nil).Once()

	req := withPrincipal(httptest.NewRequest(http.MethodGet, "/v1/vault/"+membership.ID.String(), nil), userID)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var response dto.MembershipResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, int64(7), response.AccessCount)
	assert.NotContains(t, w.Body.String(), "pin")
}

func TestVaultHandler_RemoveHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		router, mockUseCase, _ := setupTestRouter(t)
		userID := uuid.Must(uuid.NewV7())
		id := uuid.Must(uuid.NewV7())

		mockUseCase.On("Remove", mock.Anything, isPrincipal(userID), id).Return(nil).Twice()

		for i := 0; i < 2; i++ {
			req := withPrincipal(httptest.NewRequest(http.MethodDelete, "/v1/vault/"+id.String(), nil), userID)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusNoContent, w.Code)
		}
	})

	t.Run("Error_NotOwner", func(t *testing.T) {
		router, mockUseCase, _ := setupTestRouter(t)
		userID := uuid.Must(uuid.NewV7())
		id := uuid.Must(uuid.NewV7())

		mockUseCase.On("Remove", mock.Anything, isPrincipal(userID), id).
			Return(vaultDomain.ErrNotMembershipOwner).Once()

		req := withPrincipal(httptest.NewRequest(http.MethodDelete, "/v1/vault/"+id.String(), nil), userID)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestVaultHandler_ContentHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		router, mockUseCase, _ := setupTestRouter(t)
		userID := uuid.Must(uuid.NewV7())
		file := &filesDomain.StoredFile{
			ID:           uuid.Must(uuid.NewV7()),
			OwnerID:      userID,
			OriginalName: "minutes.txt",
			Size:         5,
			ContentType:  "text/plain",
		}

		mockUseCase.On("OpenCapability", mock.Anything, isPrincipal(userID), "tok").
			Return(io.NopCloser(bytes.NewReader([]byte("hello"))), file, nil).Once()

		req := withPrincipal(httptest.NewRequest(http.MethodGet, "/v1/vault/capabilities/tok/content", nil), userID)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "hello", w.Body.String())
		assert.Contains(t, w.Header().Get("Content-Disposition"), "minutes.txt")
	})

	t.Run("Error_Redeemed", func(t *testing.T) {
		router, mockUseCase, _ := setupTestRouter(t)
		userID := uuid.Must(uuid.NewV7())

		mockUseCase.On("OpenCapability", mock.Anything, isPrincipal(userID), "tok").
			Return(nil, nil, vaultDomain.ErrCapabilityNotFound).Once()

		req := withPrincipal(httptest.NewRequest(http.MethodGet, "/v1/vault/capabilities/tok/content", nil), userID)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
