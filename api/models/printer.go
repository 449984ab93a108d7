// api/models/printer.go
package models

import "time"

// Printer represents a physical printer on the shop network
type Printer struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	IPAddress        string `json:"ip_address"`
	TotalPageCounter int64  `json:"total_page_counter"` // lifetime pages, hardware sourced
}

// PrinterLog is an append-only counter history entry
type PrinterLog struct {
	ID        string    `json:"id"`
	PrinterID string    `json:"printer_id"`
	PageCount int64     `json:"page_count"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}
