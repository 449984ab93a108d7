package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type printerInput struct {
	Name      string `json:"name" binding:"required"`
	IPAddress string `json:"ip_address" binding:"required"`
}

// RegisterPrinter registers a new printer
func (h *Handler) RegisterPrinter(c *gin.Context) {
	var input printerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	printer, err := h.Store.RegisterPrinter(c.Request.Context(), input.Name, input.IPAddress)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Printer Registered", "printer": printer})
}

// GetPrinters returns all printers
func (h *Handler) GetPrinters(c *gin.Context) {
	printers := h.Node.GetFSM().GetPrinters()
	c.JSON(http.StatusOK, printers)
}

// GetPrinterLogs returns the counter history of one printer
func (h *Handler) GetPrinterLogs(c *gin.Context) {
	printerID := c.Param("id")
	if _, exists := h.Node.GetFSM().GetPrinter(printerID); !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "printer not found"})
		return
	}

	c.JSON(http.StatusOK, h.Node.GetFSM().GetPrinterLogs(printerID))
}
