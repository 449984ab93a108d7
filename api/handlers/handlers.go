package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/devadigapratham/printsync/api/models"
	"github.com/devadigapratham/printsync/raft"
	"github.com/devadigapratham/printsync/stock"
	"github.com/devadigapratham/printsync/watchdog"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// WatchdogControl is the administrative surface of the printer poll loop
type WatchdogControl interface {
	Start() watchdog.Result
	Stop(ctx context.Context) (watchdog.Result, error)
	Status() watchdog.Status
}

// Handler represents the API handlers
type Handler struct {
	Node     *raft.Node
	Store    *raft.Store
	Stock    *stock.Engine
	Watchdog WatchdogControl
	Log      logrus.FieldLogger
}

// NewHandler creates a new Handler
func NewHandler(node *raft.Node, store *raft.Store, engine *stock.Engine, wd WatchdogControl, log logrus.FieldLogger) *Handler {
	return &Handler{
		Node:     node,
		Store:    store,
		Stock:    engine,
		Watchdog: wd,
		Log:      log.WithField("component", "api"),
	}
}

// RaftLeaderMiddleware ensures write requests only reach the leader
func (h *Handler) RaftLeaderMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Only apply to write operations
		if c.Request.Method != "GET" && c.Request.Method != "HEAD" {
			// Check if this node is the leader
			if !h.Node.Leader() {
				// Respond with the leader's address
				c.JSON(http.StatusConflict, gin.H{
					"error":  "not the leader",
					"leader": h.Node.LeaderAddress(),
				})
				c.Abort()
				return
			}
		}
		c.Next()
	}
}

// abortWithError maps store errors to HTTP statuses
func abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, raft.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, raft.ErrAlreadyExists),
		errors.Is(err, raft.ErrInsufficientStock),
		errors.Is(err, models.ErrInvalidTransition):
		status = http.StatusBadRequest
	case raft.IsNotLeader(err):
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
