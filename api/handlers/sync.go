package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/inboxkit/mailsync/interfaces"
	mailerrors "github.com/inboxkit/mailsync/internal/errors"
	"github.com/inboxkit/mailsync/internal/logger"
)

// HealthCheck reports process liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// SyncStatus reports the current cursor and pass state.
func SyncStatus(syncService interfaces.SyncService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, syncService.Status())
	}
}

// RunSync triggers one sync pass inline. A pass already in flight yields
// 409 rather than queueing a second one.
func RunSync(syncService interfaces.SyncService, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := syncService.RunSyncPass(c.Request.Context())
		if err != nil {
			if errors.Is(err, mailerrors.ErrSyncInProgress) {
				c.JSON(http.StatusConflict, gin.H{"error": "sync already in progress"})
				return
			}
			log.Errorf("manual sync pass failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, syncService.Status())
	}
}
