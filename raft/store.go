package raft

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/devadigapratham/printsync/api/models"
	"github.com/google/uuid"
)

// Store is the typed persistence facade over the replicated FSM.
// Every write is exactly one raft command, which makes it atomic.
type Store struct {
	node *Node
	now  func() time.Time
}

// NewStore creates a store that proposes commands through node
func NewStore(node *Node) *Store {
	return &Store{
		node: node,
		now:  time.Now,
	}
}

// FSM exposes the read side of the store
func (s *Store) FSM() *FSM {
	return s.node.GetFSM()
}

func (s *Store) apply(ctx context.Context, cmd *models.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.node.Apply(cmd)
}

// Printers returns a point-in-time view of every registered printer
func (s *Store) Printers(ctx context.Context) ([]*models.Printer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.FSM().GetPrinters(), nil
}

// RegisterPrinter adds a printer and its initial history row
func (s *Store) RegisterPrinter(ctx context.Context, name, ipAddress string) (*models.Printer, error) {
	printer := &models.Printer{
		ID:        uuid.New().String(),
		Name:      name,
		IPAddress: ipAddress,
	}
	cmd := &models.Command{
		Type:    models.AddPrinter,
		Printer: printer,
		LogID:   uuid.New().String(),
		At:      s.now().UTC(),
	}
	if err := s.apply(ctx, cmd); err != nil {
		return nil, err
	}
	return printer, nil
}

// RecordCounter advances a printer's counter and appends the matching log row.
// Readings that do not exceed the stored counter fail with ErrStaleCounter.
func (s *Store) RecordCounter(ctx context.Context, printerID string, count int64) (*models.PrinterLog, error) {
	cmd := &models.Command{
		Type:      models.RecordCounter,
		PrinterID: printerID,
		Count:     count,
		LogID:     uuid.New().String(),
		At:        s.now().UTC(),
	}
	if err := s.apply(ctx, cmd); err != nil {
		return nil, err
	}

	entry, ok := s.FSM().GetPrinterLog(printerID, cmd.LogID)
	if !ok {
		return nil, fmt.Errorf("%w: log %s of printer %s", ErrNotFound, cmd.LogID, printerID)
	}
	return entry, nil
}

// AddMaterial registers a raw material
func (s *Store) AddMaterial(ctx context.Context, material *models.RawMaterial) error {
	if material.ID == "" {
		material.ID = uuid.New().String()
	}
	return s.apply(ctx, &models.Command{Type: models.AddMaterial, Material: material})
}

// SetMaterialLevel overwrites a material level, typically after a restock
func (s *Store) SetMaterialLevel(ctx context.Context, materialID string, level float64) error {
	return s.apply(ctx, &models.Command{
		Type:       models.AdjustMaterial,
		MaterialID: materialID,
		Level:      level,
	})
}

// Material returns a raw material by ID
func (s *Store) Material(ctx context.Context, id string) (*models.RawMaterial, bool) {
	return s.FSM().GetMaterial(id)
}

// MaterialByType returns the first registered material of a category
func (s *Store) MaterialByType(ctx context.Context, materialType string) (*models.RawMaterial, bool) {
	return s.FSM().FindMaterialByType(materialType)
}

// AddRecipe registers a consumption rule
func (s *Store) AddRecipe(ctx context.Context, recipe *models.ProductionRecipe) error {
	if recipe.ID == "" {
		recipe.ID = uuid.New().String()
	}
	return s.apply(ctx, &models.Command{Type: models.AddRecipe, Recipe: recipe})
}

// RecipesFor returns the rules of a service type
func (s *Store) RecipesFor(ctx context.Context, serviceType string) ([]*models.ProductionRecipe, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if serviceType == "" {
		return nil, nil
	}
	return s.FSM().GetRecipes(serviceType), nil
}

// ApplyDeductions commits all balance changes of one deduction in a single command
func (s *Store) ApplyDeductions(ctx context.Context, deltas []models.MaterialDelta) error {
	if len(deltas) == 0 {
		return nil
	}
	return s.apply(ctx, &models.Command{Type: models.DeductStock, Deltas: deltas})
}

// AddPrintJob queues a customer document
func (s *Store) AddPrintJob(ctx context.Context, job *models.PrintJob) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = s.now().UTC()
	}
	job.Status = models.JobPending
	return s.apply(ctx, &models.Command{Type: models.AddPrintJob, PrintJob: job})
}

// UpdatePrintJobStatus moves a job through its workflow
func (s *Store) UpdatePrintJobStatus(ctx context.Context, jobID, status string) error {
	return s.apply(ctx, &models.Command{
		Type:      models.UpdatePrintJob,
		JobID:     jobID,
		NewStatus: status,
	})
}

// AddProduct adds a retail product
func (s *Store) AddProduct(ctx context.Context, product *models.Product) error {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	return s.apply(ctx, &models.Command{Type: models.AddProduct, Product: product})
}

// AuditProduct records the counted shelf quantity of a product
func (s *Store) AuditProduct(ctx context.Context, barcode string, actualQty int) error {
	return s.apply(ctx, &models.Command{
		Type:     models.AuditProduct,
		Barcode:  barcode,
		Quantity: actualQty,
	})
}

// Checkout commits an order, its stock decrements and collected jobs at once
func (s *Store) Checkout(ctx context.Context, checkout *models.Checkout) error {
	if checkout.Order.ID == "" {
		checkout.Order.ID = uuid.New().String()
	}
	if checkout.Order.CreatedAt.IsZero() {
		checkout.Order.CreatedAt = s.now().UTC()
	}
	return s.apply(ctx, &models.Command{Type: models.CheckoutCart, Checkout: checkout})
}

// SetSetting creates or replaces a system setting
func (s *Store) SetSetting(ctx context.Context, setting *models.Setting) error {
	return s.apply(ctx, &models.Command{Type: models.SetSetting, Setting: setting})
}

// FloatSetting reads a numeric setting, falling back to def when it is
// missing or not a number.
func (s *Store) FloatSetting(key string, def float64) float64 {
	setting, ok := s.FSM().GetSetting(key)
	if !ok {
		return def
	}
	v, err := strconv.ParseFloat(setting.Value, 64)
	if err != nil {
		return def
	}
	return v
}
