package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// StartWatchdog starts the printer counter poll loop
func (h *Handler) StartWatchdog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": h.Watchdog.Start()})
}

// StopWatchdog stops the poll loop and reports whether it exited in time
func (h *Handler) StopWatchdog(c *gin.Context) {
	result, err := h.Watchdog.Stop(c.Request.Context())
	if err != nil {
		h.Log.WithError(err).Warn("watchdog stop did not complete")
	}
	c.JSON(http.StatusOK, gin.H{"status": result, "exited": err == nil})
}

// WatchdogStatus reports whether the poll loop is running
func (h *Handler) WatchdogStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.Watchdog.Status())
}
