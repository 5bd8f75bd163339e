package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dan-divy/spruce-sub000/internal/usecase"
)

// StateSource reports the live client state.
type StateSource interface {
	Snapshot() usecase.Snapshot
}

// StateHandler serves the current view, session and channel states.
type StateHandler struct {
	source StateSource
}

func NewStateHandler(source StateSource) *StateHandler {
	return &StateHandler{source: source}
}

func (h *StateHandler) State(c *gin.Context) {
	if h.source == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "client not running"})
		return
	}
	c.JSON(http.StatusOK, h.source.Snapshot())
}
