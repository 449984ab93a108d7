package raft

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/devadigapratham/printsync/api/models"
	"github.com/hashicorp/raft"
)

var (
	// ErrNotFound is returned when a command references a missing record
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists is returned when a unique key is reused
	ErrAlreadyExists = errors.New("record already exists")
	// ErrStaleCounter is returned when a counter reading does not advance the stored counter
	ErrStaleCounter = errors.New("counter reading does not advance stored counter")
	// ErrInsufficientStock is returned when a retail sale exceeds the shelf quantity
	ErrInsufficientStock = errors.New("not enough stock")
)

// FSM implements the raft.FSM interface for the print shop
type FSM struct {
	mu sync.RWMutex

	printers    map[string]*models.Printer
	printerLogs map[string][]*models.PrinterLog
	materials   map[string]*models.RawMaterial
	// materialOrder keeps registration order so "first PAPER" is stable
	materialOrder []string
	recipes       []*models.ProductionRecipe
	printJobs     map[string]*models.PrintJob
	products      map[string]*models.Product
	orders        []*models.Order
	settings      map[string]*models.Setting
}

// NewFSM creates a new Finite State Machine for the Raft cluster
func NewFSM() *FSM {
	return &FSM{
		printers:    make(map[string]*models.Printer),
		printerLogs: make(map[string][]*models.PrinterLog),
		materials:   make(map[string]*models.RawMaterial),
		printJobs:   make(map[string]*models.PrintJob),
		products:    make(map[string]*models.Product),
		settings:    make(map[string]*models.Setting),
	}
}

// Apply applies a Raft log entry to the FSM
func (f *FSM) Apply(log *raft.Log) interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()

	var cmd models.Command
	if err := json.Unmarshal(log.Data, &cmd); err != nil {
		return fmt.Errorf("failed to unmarshal command: %v", err)
	}

	switch cmd.Type {
	case models.AddPrinter:
		return f.applyAddPrinter(&cmd)
	case models.RecordCounter:
		return f.applyRecordCounter(&cmd)
	case models.AddMaterial:
		if cmd.Material == nil {
			return fmt.Errorf("material is nil")
		}
		if _, ok := f.materials[cmd.Material.ID]; ok {
			return fmt.Errorf("%w: material %s", ErrAlreadyExists, cmd.Material.ID)
		}
		f.materials[cmd.Material.ID] = cmd.Material
		f.materialOrder = append(f.materialOrder, cmd.Material.ID)
		return nil
	case models.AdjustMaterial:
		material, ok := f.materials[cmd.MaterialID]
		if !ok {
			return fmt.Errorf("%w: material %s", ErrNotFound, cmd.MaterialID)
		}
		material.CurrentLevel = cmd.Level
		return nil
	case models.AddRecipe:
		if cmd.Recipe == nil {
			return fmt.Errorf("recipe is nil")
		}
		if _, ok := f.materials[cmd.Recipe.RawMaterialID]; !ok {
			return fmt.Errorf("%w: material %s", ErrNotFound, cmd.Recipe.RawMaterialID)
		}
		f.recipes = append(f.recipes, cmd.Recipe)
		return nil
	case models.DeductStock:
		// Missing materials are skipped and levels are allowed to go negative.
		for _, d := range cmd.Deltas {
			if material, ok := f.materials[d.MaterialID]; ok {
				material.CurrentLevel -= d.Amount
			}
		}
		return nil
	case models.AddPrintJob:
		if cmd.PrintJob == nil {
			return fmt.Errorf("print job is nil")
		}
		for _, job := range f.printJobs {
			if job.JobCode == cmd.PrintJob.JobCode {
				return fmt.Errorf("%w: job code %s", ErrAlreadyExists, job.JobCode)
			}
		}
		cmd.PrintJob.Status = models.JobPending
		f.printJobs[cmd.PrintJob.ID] = cmd.PrintJob
		return nil
	case models.UpdatePrintJob:
		job, ok := f.printJobs[cmd.JobID]
		if !ok {
			return fmt.Errorf("%w: print job %s", ErrNotFound, cmd.JobID)
		}
		if err := models.ValidateStatusChange(job.Status, cmd.NewStatus); err != nil {
			return err
		}
		job.Status = cmd.NewStatus
		return nil
	case models.AddProduct:
		if cmd.Product == nil {
			return fmt.Errorf("product is nil")
		}
		if f.productByBarcode(cmd.Product.Barcode) != nil {
			return fmt.Errorf("%w: barcode %s", ErrAlreadyExists, cmd.Product.Barcode)
		}
		f.products[cmd.Product.ID] = cmd.Product
		return nil
	case models.AuditProduct:
		product := f.productByBarcode(cmd.Barcode)
		if product == nil {
			return fmt.Errorf("%w: barcode %s", ErrNotFound, cmd.Barcode)
		}
		product.StockQuantity = cmd.Quantity
		return nil
	case models.CheckoutCart:
		return f.applyCheckout(&cmd)
	case models.SetSetting:
		if cmd.Setting == nil {
			return fmt.Errorf("setting is nil")
		}
		f.settings[cmd.Setting.Key] = cmd.Setting
		return nil
	default:
		return fmt.Errorf("unknown command type: %s", cmd.Type)
	}
}

func (f *FSM) applyAddPrinter(cmd *models.Command) interface{} {
	if cmd.Printer == nil {
		return fmt.Errorf("printer is nil")
	}
	if _, ok := f.printers[cmd.Printer.ID]; ok {
		return fmt.Errorf("%w: printer %s", ErrAlreadyExists, cmd.Printer.ID)
	}
	f.printers[cmd.Printer.ID] = cmd.Printer
	f.printerLogs[cmd.Printer.ID] = append(f.printerLogs[cmd.Printer.ID], &models.PrinterLog{
		ID:        cmd.LogID,
		PrinterID: cmd.Printer.ID,
		PageCount: cmd.Printer.TotalPageCounter,
		Notes:     "Printer registered",
		CreatedAt: cmd.At,
	})
	return nil
}

// applyRecordCounter advances a printer counter and appends its log row in one step.
func (f *FSM) applyRecordCounter(cmd *models.Command) interface{} {
	printer, ok := f.printers[cmd.PrinterID]
	if !ok {
		return fmt.Errorf("%w: printer %s", ErrNotFound, cmd.PrinterID)
	}
	if cmd.Count <= printer.TotalPageCounter {
		return fmt.Errorf("%w: printer %s stored %d, reading %d",
			ErrStaleCounter, printer.ID, printer.TotalPageCounter, cmd.Count)
	}

	delta := cmd.Count - printer.TotalPageCounter
	printer.TotalPageCounter = cmd.Count
	f.printerLogs[printer.ID] = append(f.printerLogs[printer.ID], &models.PrinterLog{
		ID:        cmd.LogID,
		PrinterID: printer.ID,
		PageCount: cmd.Count,
		Notes:     fmt.Sprintf("Pages printed: %d | Total: %d", delta, cmd.Count),
		CreatedAt: cmd.At,
	})
	return nil
}

// applyCheckout validates the whole cart before mutating anything.
func (f *FSM) applyCheckout(cmd *models.Command) interface{} {
	co := cmd.Checkout
	if co == nil || co.Order == nil {
		return fmt.Errorf("checkout is nil")
	}

	for productID, qty := range co.ProductCounts {
		product, ok := f.products[productID]
		if !ok {
			return fmt.Errorf("%w: product %s", ErrNotFound, productID)
		}
		if product.StockQuantity < qty {
			return fmt.Errorf("%w for %s", ErrInsufficientStock, product.Name)
		}
	}
	for _, jobID := range co.CollectedJobs {
		job, ok := f.printJobs[jobID]
		if !ok {
			return fmt.Errorf("%w: print job %s", ErrNotFound, jobID)
		}
		if err := models.ValidateStatusChange(job.Status, models.JobCollected); err != nil {
			return fmt.Errorf("print job %s: %w", job.JobCode, err)
		}
	}

	for productID, qty := range co.ProductCounts {
		f.products[productID].StockQuantity -= qty
	}
	for _, jobID := range co.CollectedJobs {
		f.printJobs[jobID].Status = models.JobCollected
	}
	f.orders = append(f.orders, co.Order)
	return nil
}

func (f *FSM) productByBarcode(barcode string) *models.Product {
	for _, product := range f.products {
		if product.Barcode == barcode {
			return product
		}
	}
	return nil
}

// Snapshot returns a snapshot of the FSM state
func (f *FSM) Snapshot() (raft.FSMSnapshot, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	// Encode under the read lock so the snapshot is a deep copy
	data, err := json.Marshal(fsmState{
		Printers:      f.printers,
		PrinterLogs:   f.printerLogs,
		Materials:     f.materials,
		MaterialOrder: f.materialOrder,
		Recipes:       f.recipes,
		PrintJobs:     f.printJobs,
		Products:      f.products,
		Orders:        f.orders,
		Settings:      f.settings,
	})
	if err != nil {
		return nil, err
	}

	return &fsmSnapshot{data: data}, nil
}

// Restore restores the FSM from a snapshot
func (f *FSM) Restore(rc io.ReadCloser) error {
	defer rc.Close()

	var state fsmState
	if err := json.NewDecoder(rc).Decode(&state); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	restored := NewFSM()
	for k, v := range state.Printers {
		restored.printers[k] = v
	}
	for k, v := range state.PrinterLogs {
		restored.printerLogs[k] = v
	}
	for k, v := range state.Materials {
		restored.materials[k] = v
	}
	for k, v := range state.PrintJobs {
		restored.printJobs[k] = v
	}
	for k, v := range state.Products {
		restored.products[k] = v
	}
	for k, v := range state.Settings {
		restored.settings[k] = v
	}

	f.printers = restored.printers
	f.printerLogs = restored.printerLogs
	f.materials = restored.materials
	f.materialOrder = state.MaterialOrder
	f.recipes = state.Recipes
	f.printJobs = restored.printJobs
	f.products = restored.products
	f.orders = state.Orders
	f.settings = restored.settings

	return nil
}

// GetPrinters returns copies of all printers ordered by ID
func (f *FSM) GetPrinters() []*models.Printer {
	f.mu.RLock()
	defer f.mu.RUnlock()

	printers := make([]*models.Printer, 0, len(f.printers))
	for _, printer := range f.printers {
		p := *printer
		printers = append(printers, &p)
	}
	sort.Slice(printers, func(i, j int) bool { return printers[i].ID < printers[j].ID })
	return printers
}

// GetPrinter returns a copy of a printer by ID
func (f *FSM) GetPrinter(id string) (*models.Printer, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	printer, ok := f.printers[id]
	if !ok {
		return nil, false
	}
	p := *printer
	return &p, true
}

// GetPrinterLogs returns the counter history of a printer, oldest first
func (f *FSM) GetPrinterLogs(printerID string) []*models.PrinterLog {
	f.mu.RLock()
	defer f.mu.RUnlock()

	logs := make([]*models.PrinterLog, 0, len(f.printerLogs[printerID]))
	for _, entry := range f.printerLogs[printerID] {
		e := *entry
		logs = append(logs, &e)
	}
	return logs
}

// GetPrinterLog returns one history entry of a printer
func (f *FSM) GetPrinterLog(printerID, logID string) (*models.PrinterLog, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, entry := range f.printerLogs[printerID] {
		if entry.ID == logID {
			e := *entry
			return &e, true
		}
	}
	return nil, false
}

// GetMaterials returns copies of all raw materials in registration order
func (f *FSM) GetMaterials() []*models.RawMaterial {
	f.mu.RLock()
	defer f.mu.RUnlock()

	materials := make([]*models.RawMaterial, 0, len(f.materialOrder))
	for _, id := range f.materialOrder {
		m := *f.materials[id]
		materials = append(materials, &m)
	}
	return materials
}

// GetMaterial returns a copy of a raw material by ID
func (f *FSM) GetMaterial(id string) (*models.RawMaterial, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	material, ok := f.materials[id]
	if !ok {
		return nil, false
	}
	m := *material
	return &m, true
}

// FindMaterialByType returns the first registered material of a category
func (f *FSM) FindMaterialByType(materialType string) (*models.RawMaterial, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, id := range f.materialOrder {
		if material := f.materials[id]; material.Type == materialType {
			m := *material
			return &m, true
		}
	}
	return nil, false
}

// GetRecipes returns recipe rules, filtered by service type when one is given
func (f *FSM) GetRecipes(serviceType string) []*models.ProductionRecipe {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var recipes []*models.ProductionRecipe
	for _, recipe := range f.recipes {
		if serviceType == "" || recipe.ServiceType == serviceType {
			r := *recipe
			recipes = append(recipes, &r)
		}
	}
	return recipes
}

// GetPrintJobs returns all print jobs, oldest first
func (f *FSM) GetPrintJobs() []*models.PrintJob {
	return f.GetPrintJobsByStatus("")
}

// GetPrintJobsByStatus returns print jobs filtered by status, oldest first
func (f *FSM) GetPrintJobsByStatus(status string) []*models.PrintJob {
	f.mu.RLock()
	defer f.mu.RUnlock()

	jobs := make([]*models.PrintJob, 0)
	for _, job := range f.printJobs {
		if status == "" || job.Status == status {
			j := *job
			jobs = append(jobs, &j)
		}
	}
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].ID < jobs[j].ID
		}
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})
	return jobs
}

// GetPrintJobByCode returns a print job by its customer-facing code
func (f *FSM) GetPrintJobByCode(code string) (*models.PrintJob, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, job := range f.printJobs {
		if job.JobCode == code {
			j := *job
			return &j, true
		}
	}
	return nil, false
}

// GetProducts returns copies of all products ordered by name
func (f *FSM) GetProducts() []*models.Product {
	f.mu.RLock()
	defer f.mu.RUnlock()

	products := make([]*models.Product, 0, len(f.products))
	for _, product := range f.products {
		p := *product
		products = append(products, &p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Name < products[j].Name })
	return products
}

// GetProductByBarcode returns a product by barcode
func (f *FSM) GetProductByBarcode(barcode string) (*models.Product, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	product := f.productByBarcode(barcode)
	if product == nil {
		return nil, false
	}
	p := *product
	return &p, true
}

// GetOrders returns all orders, newest first
func (f *FSM) GetOrders() []*models.Order {
	f.mu.RLock()
	defer f.mu.RUnlock()

	orders := make([]*models.Order, 0, len(f.orders))
	for i := len(f.orders) - 1; i >= 0; i-- {
		o := *f.orders[i]
		o.Items = append([]models.OrderItem(nil), o.Items...)
		orders = append(orders, &o)
	}
	return orders
}

// GetSetting returns a system setting by key
func (f *FSM) GetSetting(key string) (*models.Setting, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	setting, ok := f.settings[key]
	if !ok {
		return nil, false
	}
	s := *setting
	return &s, true
}

// GetSettings returns all settings ordered by key
func (f *FSM) GetSettings() []*models.Setting {
	f.mu.RLock()
	defer f.mu.RUnlock()

	settings := make([]*models.Setting, 0, len(f.settings))
	for _, setting := range f.settings {
		s := *setting
		settings = append(settings, &s)
	}
	sort.Slice(settings, func(i, j int) bool { return settings[i].Key < settings[j].Key })
	return settings
}

// fsmState is the serialized form of the FSM
type fsmState struct {
	Printers      map[string]*models.Printer      `json:"printers"`
	PrinterLogs   map[string][]*models.PrinterLog `json:"printer_logs"`
	Materials     map[string]*models.RawMaterial  `json:"materials"`
	MaterialOrder []string                        `json:"material_order"`
	Recipes       []*models.ProductionRecipe      `json:"recipes"`
	PrintJobs     map[string]*models.PrintJob     `json:"print_jobs"`
	Products      map[string]*models.Product      `json:"products"`
	Orders        []*models.Order                 `json:"orders"`
	Settings      map[string]*models.Setting      `json:"settings"`
}

// fsmSnapshot implements the raft.FSMSnapshot interface
type fsmSnapshot struct {
	data []byte
}

// Persist saves the snapshot to the provided sink
func (s *fsmSnapshot) Persist(sink raft.SnapshotSink) error {
	err := func() error {
		if _, err := sink.Write(s.data); err != nil {
			return err
		}
		return sink.Close()
	}()

	if err != nil {
		sink.Cancel()
		return err
	}

	return nil
}

// Release is a no-op
func (s *fsmSnapshot) Release() {}
