// Package stock turns performed print services into raw-material deductions.
//
// Deductions never fail because of low stock: levels may go negative and a
// warning is emitted instead, so counter and sales transactions are never
// blocked by inventory.
package stock

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/devadigapratham/printsync/api/models"
	"github.com/devadigapratham/printsync/metrics"
	"github.com/sirupsen/logrus"
)

// DefaultLowStockThreshold is the level under which a material is reported as low
const DefaultLowStockThreshold = 50.0

// Fixed consumption rates of the legacy print path
const (
	SheetsPerPage = 1.0
	InkPerPage    = 0.05
)

// Service types resolved for a print job
const (
	ServicePrintBW    = "PRINT_BW_A4"
	ServicePrintColor = "PRINT_COLOR_A4"
)

// Inventory is the persistence the engine needs
type Inventory interface {
	RecipesFor(ctx context.Context, serviceType string) ([]*models.ProductionRecipe, error)
	Material(ctx context.Context, id string) (*models.RawMaterial, bool)
	MaterialByType(ctx context.Context, materialType string) (*models.RawMaterial, bool)
	// ApplyDeductions commits all deltas in one transaction
	ApplyDeductions(ctx context.Context, deltas []models.MaterialDelta) error
}

// Engine deducts raw materials for performed services
type Engine struct {
	inv       Inventory
	threshold float64
	log       logrus.FieldLogger
}

// NewEngine creates a new Engine; a non-positive threshold means DefaultLowStockThreshold
func NewEngine(inv Inventory, threshold float64, log logrus.FieldLogger) *Engine {
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}
	return &Engine{
		inv:       inv,
		threshold: threshold,
		log:       log.WithField("component", "stock"),
	}
}

// rule is a resolved consumption rate for one material
type rule struct {
	material *models.RawMaterial
	perUnit  float64
}

// Deduct applies every recipe rule of serviceType for count units and returns
// one summary per deducted material. A service type without rules deducts
// nothing.
func (e *Engine) Deduct(ctx context.Context, serviceType string, count int) ([]string, error) {
	recipes, err := e.inv.RecipesFor(ctx, serviceType)
	if err != nil {
		return nil, fmt.Errorf("failed to load recipes for %s: %w", serviceType, err)
	}

	rules := make([]rule, 0, len(recipes))
	for _, recipe := range recipes {
		material, ok := e.inv.Material(ctx, recipe.RawMaterialID)
		if !ok {
			continue
		}
		rules = append(rules, rule{material: material, perUnit: recipe.QuantityRequired})
	}

	return e.apply(ctx, rules, count, e.log.WithField("service_type", serviceType))
}

// DeductForPrint is the fixed-rule variant: one sheet of the first PAPER
// material and 0.05 units of the first INK material per page. isColor is
// accepted but does not change consumption yet.
func (e *Engine) DeductForPrint(ctx context.Context, pages int, isColor bool) ([]string, error) {
	var rules []rule
	if paper, ok := e.inv.MaterialByType(ctx, models.MaterialPaper); ok {
		rules = append(rules, rule{material: paper, perUnit: SheetsPerPage})
	}
	if ink, ok := e.inv.MaterialByType(ctx, models.MaterialInk); ok {
		rules = append(rules, rule{material: ink, perUnit: InkPerPage})
	}

	return e.apply(ctx, rules, pages, e.log.WithField("is_color", isColor))
}

// ConsumeForPrint is the one entry point used by the print action and the
// checkout. It prefers the recipe table and falls back to the fixed rates
// when no rules exist for the job's service type.
func (e *Engine) ConsumeForPrint(ctx context.Context, pages int, isColor bool) ([]string, error) {
	serviceType := ServicePrintBW
	if isColor {
		serviceType = ServicePrintColor
	}

	recipes, err := e.inv.RecipesFor(ctx, serviceType)
	if err != nil {
		return nil, fmt.Errorf("failed to load recipes for %s: %w", serviceType, err)
	}
	if len(recipes) > 0 {
		return e.Deduct(ctx, serviceType, pages)
	}
	return e.DeductForPrint(ctx, pages, isColor)
}

// apply computes the deltas, commits them at once and reports low stock.
func (e *Engine) apply(ctx context.Context, rules []rule, count int, log logrus.FieldLogger) ([]string, error) {
	results := make([]string, 0, len(rules))
	if len(rules) == 0 {
		return results, nil
	}

	deltas := make([]models.MaterialDelta, 0, len(rules))
	// levels tracks post-deduction balances when several rules hit one material
	levels := make(map[string]float64, len(rules))
	for _, r := range rules {
		required := r.perUnit * float64(count)

		level, seen := levels[r.material.ID]
		if !seen {
			level = r.material.CurrentLevel
		}
		levels[r.material.ID] = level - required

		deltas = append(deltas, models.MaterialDelta{MaterialID: r.material.ID, Amount: required})
		results = append(results, fmt.Sprintf("Deducted %s of %s", formatAmount(required), r.material.Name))
	}

	if err := e.inv.ApplyDeductions(ctx, deltas); err != nil {
		return nil, fmt.Errorf("failed to commit deductions: %w", err)
	}

	warned := make(map[string]bool, len(rules))
	for _, r := range rules {
		metrics.RecordDeduction(r.material.Name, r.perUnit*float64(count))

		level := levels[r.material.ID]
		if level < e.threshold && !warned[r.material.ID] {
			warned[r.material.ID] = true
			metrics.RecordLowStock(r.material.Name)
			log.WithFields(logrus.Fields{
				"material_id": r.material.ID,
				"level":       level,
			}).Warnf("Low Stock for %s", r.material.Name)
		}
	}

	return results, nil
}

// formatAmount renders at most four decimals so 0.05*3 prints as 0.15
func formatAmount(v float64) string {
	return strconv.FormatFloat(math.Round(v*1e4)/1e4, 'f', -1, 64)
}

// Threshold returns the low-stock level in use
func (e *Engine) Threshold() float64 {
	return e.threshold
}
