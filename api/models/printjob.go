// api/models/printjob.go
package models

import "time"

// Print job statuses
const (
	JobPending   = "PENDING"
	JobPrinting  = "PRINTING"
	JobPrinted   = "PRINTED"
	JobCollected = "COLLECTED"
)

// PrintJob represents a customer document waiting at the counter
type PrintJob struct {
	ID         string    `json:"id"`
	JobCode    string    `json:"job_code"`
	Filename   string    `json:"filename"`
	TotalPages int       `json:"total_pages"`
	IsColor    bool      `json:"is_color"`
	Status     string    `json:"status"` // PENDING, PRINTING, PRINTED, COLLECTED
	CreatedAt  time.Time `json:"created_at"`
}
