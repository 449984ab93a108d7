// api/models/models.go
package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// CommandType represents the type of command to be executed
type CommandType string

const (
	AddPrinter     CommandType = "ADD_PRINTER"
	RecordCounter  CommandType = "RECORD_COUNTER"
	AddMaterial    CommandType = "ADD_MATERIAL"
	AdjustMaterial CommandType = "ADJUST_MATERIAL"
	AddRecipe      CommandType = "ADD_RECIPE"
	DeductStock    CommandType = "DEDUCT_STOCK"
	AddPrintJob    CommandType = "ADD_PRINT_JOB"
	UpdatePrintJob CommandType = "UPDATE_PRINT_JOB"
	AddProduct     CommandType = "ADD_PRODUCT"
	AuditProduct   CommandType = "AUDIT_PRODUCT"
	CheckoutCart   CommandType = "CHECKOUT"
	SetSetting     CommandType = "SET_SETTING"
)

// Command represents a command to be applied to the FSM
type Command struct {
	Type     CommandType       `json:"type"`
	Printer  *Printer          `json:"printer,omitempty"`
	Material *RawMaterial      `json:"material,omitempty"`
	Recipe   *ProductionRecipe `json:"recipe,omitempty"`
	PrintJob *PrintJob         `json:"print_job,omitempty"`
	Product  *Product          `json:"product,omitempty"`
	Checkout *Checkout         `json:"checkout,omitempty"`
	Setting  *Setting          `json:"setting,omitempty"`
	Deltas   []MaterialDelta   `json:"deltas,omitempty"`

	// RECORD_COUNTER / ADD_PRINTER
	PrinterID string    `json:"printer_id,omitempty"`
	Count     int64     `json:"count,omitempty"`
	LogID     string    `json:"log_id,omitempty"`
	At        time.Time `json:"at,omitempty"`

	// UPDATE_PRINT_JOB / ADJUST_MATERIAL / AUDIT_PRODUCT
	JobID      string  `json:"job_id,omitempty"`
	NewStatus  string  `json:"new_status,omitempty"`
	MaterialID string  `json:"material_id,omitempty"`
	Level      float64 `json:"level,omitempty"`
	Barcode    string  `json:"barcode,omitempty"`
	Quantity   int     `json:"quantity,omitempty"`
}

// Marshal serializes a command to JSON
func (c *Command) Marshal() ([]byte, error) {
	return json.Marshal(c)
}

// Unmarshal deserializes a command from JSON
func UnmarshalCommand(data []byte) (*Command, error) {
	var c Command
	err := json.Unmarshal(data, &c)
	return &c, err
}

// ErrInvalidTransition is returned for a print job status change that is not allowed
var ErrInvalidTransition = errors.New("invalid status transition")

// ValidateStatusChange checks if a print job status transition is valid
func ValidateStatusChange(currentStatus, newStatus string) error {
	switch currentStatus {
	case JobPending:
		if newStatus != JobPrinting && newStatus != JobPrinted && newStatus != JobCollected {
			return fmt.Errorf("%w: a job can only transition from PENDING to PRINTING, PRINTED or COLLECTED", ErrInvalidTransition)
		}
	case JobPrinting:
		if newStatus != JobPrinted {
			return fmt.Errorf("%w: a job can only transition from PRINTING to PRINTED", ErrInvalidTransition)
		}
	case JobPrinted:
		if newStatus != JobCollected {
			return fmt.Errorf("%w: a job can only transition from PRINTED to COLLECTED", ErrInvalidTransition)
		}
	default:
		return ErrInvalidTransition
	}
	return nil
}

// IsValidMaterialType checks if a raw material category is valid
func IsValidMaterialType(materialType string) bool {
	upperType := strings.ToUpper(materialType)
	return upperType == MaterialPaper || upperType == MaterialInk
}

// IsValidPrintJobStatus checks if a print job status is valid
func IsValidPrintJobStatus(status string) bool {
	validStatuses := []string{JobPending, JobPrinting, JobPrinted, JobCollected}

	for _, vs := range validStatuses {
		if status == vs {
			return true
		}
	}
	return false
}

// IsValidCartItemType checks if a cart line type is valid
func IsValidCartItemType(itemType string) bool {
	return itemType == CartProduct || itemType == CartPrintJob
}
