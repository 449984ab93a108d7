package handlers

import (
	"math"
	"net/http"
	"strconv"

	"github.com/devadigapratham/printsync/api/models"
	"github.com/gin-gonic/gin"
)

// lowProductStock is the shelf quantity under which a product counts as low
const lowProductStock = 10

const defaultRecentOrders = 10

// DashboardStats returns headline sales and inventory figures
func (h *Handler) DashboardStats(c *gin.Context) {
	fsm := h.Node.GetFSM()
	orders := fsm.GetOrders()
	products := fsm.GetProducts()

	var sales float64
	for _, order := range orders {
		sales += order.TotalAmount
	}

	lowStock := 0
	for _, product := range products {
		if product.StockQuantity < lowProductStock {
			lowStock++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"total_sales":     math.Round(sales*100) / 100,
		"total_orders":    len(orders),
		"total_products":  len(products),
		"low_stock_items": lowStock,
	})
}

// RecentOrders returns the newest orders, up to ?limit (default 10)
func (h *Handler) RecentOrders(c *gin.Context) {
	limit := defaultRecentOrders
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	orders := h.Node.GetFSM().GetOrders()
	if len(orders) > limit {
		orders = orders[:limit]
	}
	if orders == nil {
		orders = []*models.Order{}
	}
	c.JSON(http.StatusOK, orders)
}
