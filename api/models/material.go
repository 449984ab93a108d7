// api/models/material.go
package models

// Raw material categories
const (
	MaterialPaper = "PAPER"
	MaterialInk   = "INK"
)

// RawMaterial is a consumable used to fulfil print services
type RawMaterial struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Type         string  `json:"type"` // PAPER, INK
	CurrentLevel float64 `json:"current_level"`
}

// ProductionRecipe links a service type to the material it consumes
type ProductionRecipe struct {
	ID               string  `json:"id"`
	ServiceType      string  `json:"service_type"` // PRINT_BW_A4, PRINT_COLOR_A4, BINDING_SPIRAL
	RawMaterialID    string  `json:"raw_material_id"`
	QuantityRequired float64 `json:"quantity_required"`
}

// MaterialDelta is one balance change inside a DEDUCT_STOCK command
type MaterialDelta struct {
	MaterialID string  `json:"material_id"`
	Amount     float64 `json:"amount"`
}
