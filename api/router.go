// api/router.go
package api

import (
	"net/http"

	"github.com/devadigapratham/printsync/api/handlers"
	"github.com/devadigapratham/printsync/metrics"
	"github.com/devadigapratham/printsync/raft"
	"github.com/gin-gonic/gin"
)

// SetupRouter sets up the API routes
func SetupRouter(handler *handlers.Handler, transport *raft.Transport) *gin.Engine {
	router := gin.Default()
	node := handler.Node

	// Apply middleware
	router.Use(handler.RaftLeaderMiddleware())

	// API group
	api := router.Group("/api/v1")
	{
		admin := api.Group("/admin")
		{
			// Printer endpoints
			admin.POST("/printers", handler.RegisterPrinter)
			admin.GET("/printers", handler.GetPrinters)
			admin.GET("/printers/:id/logs", handler.GetPrinterLogs)

			// Recipe endpoints
			admin.POST("/recipes", handler.CreateRecipe)
			admin.GET("/recipes", handler.GetRecipes)

			// Settings endpoints
			admin.POST("/settings", handler.UpdateSetting)
			admin.GET("/settings", handler.GetSettings)

			// Watchdog endpoints
			admin.POST("/watchdog/start", handler.StartWatchdog)
			admin.POST("/watchdog/stop", handler.StopWatchdog)
			admin.GET("/watchdog/status", handler.WatchdogStatus)
		}

		inventory := api.Group("/inventory")
		{
			inventory.POST("/products", handler.CreateProduct)
			inventory.GET("/scan/:barcode", handler.ScanProduct)
			inventory.POST("/audit/:barcode", handler.AuditProduct)

			inventory.POST("/materials", handler.CreateMaterial)
			inventory.GET("/materials", handler.GetMaterials)
			inventory.GET("/materials/low", handler.GetLowMaterials)
			inventory.POST("/materials/:id/level", handler.SetMaterialLevel)
		}

		// Print job endpoints
		api.POST("/print_jobs", handler.CreatePrintJob)
		api.GET("/print_jobs", handler.GetPrintJobs)
		api.POST("/print_jobs/:id/status", handler.UpdatePrintJobStatus)

		api.GET("/staff/queue", handler.GetQueue)
		api.POST("/staff/print/:code", handler.ExecutePrintJob)

		api.POST("/pos/checkout", handler.Checkout)

		api.GET("/dashboard/stats", handler.DashboardStats)
		api.GET("/dashboard/recent-orders", handler.RecentOrders)
	}

	// Add a raft status endpoint
	router.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"node_id":     node.ID(),
			"is_leader":   node.Leader(),
			"leader_addr": node.LeaderAddress(),
			"state":       node.State().String(),
		})
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Cluster membership
	if transport != nil {
		router.Any("/raft/*path", gin.WrapH(http.StripPrefix("/raft", transport.RaftHandler())))
	}

	return router
}
