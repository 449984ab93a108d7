package handlers

import (
	"fmt"
	"net/http"

	"github.com/devadigapratham/printsync/api/models"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Per-page print prices and the settings that override them
const (
	SettingPriceColor   = "price_color_a4"
	SettingPriceBW      = "price_bw_a4"
	DefaultPriceColorA4 = 0.50
	DefaultPriceBWA4    = 0.10
)

// printLine is a print job sold in the cart, consumed after commit
type printLine struct {
	job    *models.PrintJob
	copies int
}

// Checkout sells a cart of retail products and print jobs in one transaction
func (h *Handler) Checkout(c *gin.Context) {
	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = "CASH"
	}

	fsm := h.Node.GetFSM()
	checkout := &models.Checkout{
		Order:         &models.Order{PaymentMethod: req.PaymentMethod},
		ProductCounts: make(map[string]int),
	}
	var prints []printLine
	seenJobs := make(map[string]bool)

	for _, item := range req.Items {
		qty := item.Quantity
		if qty <= 0 {
			qty = 1
		}

		switch item.Type {
		case models.CartProduct:
			product, exists := fsm.GetProductByBarcode(item.ID)
			if !exists {
				c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Product %s not found", item.ID)})
				return
			}
			if product.StockQuantity < checkout.ProductCounts[product.ID]+qty {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Not enough stock for " + product.Name})
				return
			}
			checkout.ProductCounts[product.ID] += qty
			checkout.Order.TotalAmount += product.Price * float64(qty)
			checkout.Order.Items = append(checkout.Order.Items, models.OrderItem{
				ProductName: product.Name,
				Quantity:    qty,
				UnitPrice:   product.Price,
				ItemType:    models.ItemRetail,
			})

		case models.CartPrintJob:
			job, exists := fsm.GetPrintJobByCode(item.ID)
			if !exists {
				c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Print job %s not found", item.ID)})
				return
			}
			if seenJobs[job.ID] {
				c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Print job %s is already in the cart", item.ID)})
				return
			}
			seenJobs[job.ID] = true

			pagePrice := h.Store.FloatSetting(SettingPriceBW, DefaultPriceBWA4)
			if job.IsColor {
				pagePrice = h.Store.FloatSetting(SettingPriceColor, DefaultPriceColorA4)
			}
			unitPrice := pagePrice * float64(job.TotalPages)

			checkout.CollectedJobs = append(checkout.CollectedJobs, job.ID)
			checkout.Order.TotalAmount += unitPrice * float64(qty)
			checkout.Order.Items = append(checkout.Order.Items, models.OrderItem{
				ProductName: fmt.Sprintf("Print Job #%s", job.JobCode),
				Quantity:    qty,
				UnitPrice:   unitPrice,
				ItemType:    models.ItemService,
			})
			prints = append(prints, printLine{job: job, copies: qty})

		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid item type %q", item.Type)})
			return
		}
	}

	ctx := c.Request.Context()
	if err := h.Store.Checkout(ctx, checkout); err != nil {
		abortWithError(c, err)
		return
	}

	deductions := make([]string, 0)
	for _, p := range prints {
		out, err := h.Stock.ConsumeForPrint(ctx, p.job.TotalPages*p.copies, p.job.IsColor)
		if err != nil {
			h.Log.WithError(err).WithField("job_code", p.job.JobCode).Error("stock deduction failed")
			continue
		}
		deductions = append(deductions, out...)
	}

	h.Log.WithFields(logrus.Fields{
		"order_id": checkout.Order.ID,
		"total":    checkout.Order.TotalAmount,
		"items":    len(checkout.Order.Items),
	}).Info("checkout completed")

	c.JSON(http.StatusOK, gin.H{
		"status":     "success",
		"order_id":   checkout.Order.ID,
		"total_paid": checkout.Order.TotalAmount,
		"message":    "Transaction Completed",
		"deductions": deductions,
	})
}
