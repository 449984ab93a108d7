package handlers

import (
	"errors"
	"fmt"
	"math/rand"
	"net/http"

	"github.com/devadigapratham/printsync/api/models"
	"github.com/devadigapratham/printsync/raft"
	"github.com/gin-gonic/gin"
)

// jobCodeAttempts bounds retries when a random job code collides
const jobCodeAttempts = 5

type printJobInput struct {
	Filename   string `json:"filename" binding:"required"`
	TotalPages int    `json:"total_pages" binding:"min=1"`
	IsColor    bool   `json:"is_color"`
}

// CreatePrintJob queues a customer document under a 4-digit job code
func (h *Handler) CreatePrintJob(c *gin.Context) {
	var input printJobInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var err error
	for attempt := 0; attempt < jobCodeAttempts; attempt++ {
		job := &models.PrintJob{
			JobCode:    fmt.Sprintf("%d", 1000+rand.Intn(9000)),
			Filename:   input.Filename,
			TotalPages: input.TotalPages,
			IsColor:    input.IsColor,
		}
		err = h.Store.AddPrintJob(c.Request.Context(), job)
		if err == nil {
			c.JSON(http.StatusCreated, gin.H{
				"job_code": job.JobCode,
				"pages":    job.TotalPages,
				"filename": job.Filename,
				"message":  "Go to counter and show this code.",
			})
			return
		}
		if !errors.Is(err, raft.ErrAlreadyExists) {
			break
		}
	}

	abortWithError(c, err)
}

// GetPrintJobs returns all print jobs
func (h *Handler) GetPrintJobs(c *gin.Context) {
	// Check if status filter is provided
	status := c.Query("status")

	var printJobs []*models.PrintJob
	if status != "" && models.IsValidPrintJobStatus(status) {
		printJobs = h.Node.GetFSM().GetPrintJobsByStatus(status)
	} else {
		printJobs = h.Node.GetFSM().GetPrintJobs()
	}

	c.JSON(http.StatusOK, printJobs)
}

// GetQueue returns the jobs waiting to be printed
func (h *Handler) GetQueue(c *gin.Context) {
	c.JSON(http.StatusOK, h.Node.GetFSM().GetPrintJobsByStatus(models.JobPending))
}

// UpdatePrintJobStatus updates the status of a print job
func (h *Handler) UpdatePrintJobStatus(c *gin.Context) {
	jobID := c.Param("id")
	newStatus := c.Query("status")

	// Validate status
	if !models.IsValidPrintJobStatus(newStatus) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	if err := h.Store.UpdatePrintJobStatus(c.Request.Context(), jobID, newStatus); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": jobID, "status": newStatus})
}

// ExecutePrintJob marks a job as printed and consumes paper and ink for it
func (h *Handler) ExecutePrintJob(c *gin.Context) {
	job, exists := h.Node.GetFSM().GetPrintJobByCode(c.Param("code"))
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}

	ctx := c.Request.Context()
	if err := h.Store.UpdatePrintJobStatus(ctx, job.ID, models.JobPrinted); err != nil {
		abortWithError(c, err)
		return
	}

	// Inventory problems never fail the print
	deductions, err := h.Stock.ConsumeForPrint(ctx, job.TotalPages, job.IsColor)
	if err != nil {
		h.Log.WithError(err).WithField("job_code", job.JobCode).Error("stock deduction failed")
	}

	c.JSON(http.StatusOK, gin.H{
		"message":        "Printing started",
		"pages_deducted": job.TotalPages,
		"deductions":     deductions,
	})
}
