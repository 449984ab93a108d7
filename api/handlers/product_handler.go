package handlers

import (
	"net/http"
	"strconv"

	"github.com/devadigapratham/printsync/api/models"
	"github.com/gin-gonic/gin"
)

// CreateProduct adds a retail product
func (h *Handler) CreateProduct(c *gin.Context) {
	var product models.Product
	if err := c.ShouldBindJSON(&product); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	product.ID = ""

	if err := h.Store.AddProduct(c.Request.Context(), &product); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, product)
}

// ScanProduct looks a product up by barcode
func (h *Handler) ScanProduct(c *gin.Context) {
	product, exists := h.Node.GetFSM().GetProductByBarcode(c.Param("barcode"))
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "found",
		"name":   product.Name,
		"price":  product.Price,
		"stock":  product.StockQuantity,
		"type":   models.CartProduct,
	})
}

// AuditProduct overwrites the stock quantity with a physical count
func (h *Handler) AuditProduct(c *gin.Context) {
	qty, err := strconv.Atoi(c.Query("actual_qty"))
	if err != nil || qty < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "actual_qty must be a non-negative integer"})
		return
	}

	if err := h.Store.AuditProduct(c.Request.Context(), c.Param("barcode"), qty); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Stock updated", "new_qty": qty})
}
