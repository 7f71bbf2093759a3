package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inboxkit/mailsync/interfaces"
	mailerrors "github.com/inboxkit/mailsync/internal/errors"
	"github.com/inboxkit/mailsync/internal/logger"
)

type fakeSyncService struct {
	runErr error
	runs   int
	status interfaces.SyncStatus
}

func (f *fakeSyncService) RunSyncPass(ctx context.Context) error {
	f.runs++
	return f.runErr
}

func (f *fakeSyncService) RegisterObserver(observer interfaces.SyncObserver) {}

func (f *fakeSyncService) Status() interfaces.SyncStatus { return f.status }

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{DevMode: true})
	appLogger.InitLogger()
	return appLogger
}

func setupRouter(svc interfaces.SyncService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/health", HealthCheck)
	r.GET("/sync/status", SyncStatus(svc))
	r.POST("/sync/run", RunSync(svc, getLogger()))
	return r
}

func TestHealthCheck(t *testing.T) {
	router := setupRouter(&fakeSyncService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSyncStatus(t *testing.T) {
	svc := &fakeSyncService{status: interfaces.SyncStatus{LastUID: 99, MessagesSynced: 12}}
	router := setupRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/sync/status", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var status interfaces.SyncStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, uint32(99), status.LastUID)
	assert.Equal(t, int64(12), status.MessagesSynced)
}

func TestRunSync(t *testing.T) {
	svc := &fakeSyncService{}
	router := setupRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sync/run", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, svc.runs)
}

func TestRunSync_ConflictWhenPassInFlight(t *testing.T) {
	svc := &fakeSyncService{runErr: mailerrors.ErrSyncInProgress}
	router := setupRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sync/run", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRunSync_FailureIsReported(t *testing.T) {
	svc := &fakeSyncService{runErr: errors.Wrap(mailerrors.ErrConnection, "dial failed")}
	router := setupRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sync/run", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
