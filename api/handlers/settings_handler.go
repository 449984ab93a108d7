package handlers

import (
	"net/http"

	"github.com/devadigapratham/printsync/api/models"
	"github.com/gin-gonic/gin"
)

// UpdateSetting creates or replaces a system setting
func (h *Handler) UpdateSetting(c *gin.Context) {
	var setting models.Setting
	if err := c.ShouldBindJSON(&setting); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Store.SetSetting(c.Request.Context(), &setting); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Setting " + setting.Key + " updated to " + setting.Value})
}

// GetSettings returns all system settings
func (h *Handler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.Node.GetFSM().GetSettings())
}
