package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	authDomain "github.com/allisson/filevault/internal/auth/domain"
	authHTTP "github.com/allisson/filevault/internal/auth/http"
	apperrors "github.com/allisson/filevault/internal/errors"
	quotaDomain "github.com/allisson/filevault/internal/quota/domain"
	"github.com/allisson/filevault/internal/quota/http/dto"
	"github.com/allisson/filevault/internal/quota/usecase/mocks"
)

func setupTestRouter(t *testing.T) (*gin.Engine, *mocks.MockLedger) {
	t.Helper()

	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ledger := mocks.NewMockLedger(t)
	handler := NewQuotaHandler(ledger, logger)

	router := gin.New()
	router.GET("/v1/quota", authHTTP.PrincipalMiddleware(logger), handler.GetHandler)

	return router, ledger
}

func getQuota(router *gin.Engine, userID uuid.UUID) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/v1/quota", nil)
	req.Header.Set(authHTTP.HeaderUserID, userID.String())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func isPrincipal(userID uuid.UUID) any {
	return mock.MatchedBy(func(p *authDomain.Principal) bool {
		return p != nil && p.UserID == userID
	})
}

func TestQuotaHandler_GetHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		router, ledger := setupTestRouter(t)
		userID := uuid.Must(uuid.NewV7())

		ledger.On("Summary", mock.Anything, isPrincipal(userID)).Return(&quotaDomain.Summary{
			OwnerID:    userID,
			UsedBytes:  300,
			LimitBytes: 1000,
		}, nil).Once()

		w := getQuota(router, userID)

		assert.Equal(t, http.StatusOK, w.Code)
		var response dto.QuotaResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, dto.QuotaResponse{UsedBytes: 300, LimitBytes: 1000, RemainingBytes: 700}, response)
	})

	t.Run("Unlimited", func(t *testing.T) {
		router, ledger := setupTestRouter(t)
		userID := uuid.Must(uuid.NewV7())

		ledger.On("Summary", mock.Anything, isPrincipal(userID)).Return(&quotaDomain.Summary{
			OwnerID:   userID,
			UsedBytes: 5 << 30,
			Unlimited: true,
		}, nil).Once()

		w := getQuota(router, userID)

		assert.Equal(t, http.StatusOK, w.Code)
		var response dto.QuotaResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.True(t, response.Unlimited)
		assert.Equal(t, int64(-1), response.RemainingBytes)
	})

	t.Run("Error_LedgerUnavailable", func(t *testing.T) {
		router, ledger := setupTestRouter(t)
		userID := uuid.Must(uuid.NewV7())

		ledger.On("Summary", mock.Anything, isPrincipal(userID)).
			Return(nil, apperrors.Wrap(apperrors.ErrUnavailable, "usage store offline")).Once()

		w := getQuota(router, userID)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("Error_MissingPrincipal", func(t *testing.T) {
		router, _ := setupTestRouter(t)

		req := httptest.NewRequest(http.MethodGet, "/v1/quota", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
