package raft

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/devadigapratham/printsync/api/models"
	"github.com/hashicorp/raft"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func applyCmd(t *testing.T, f *FSM, cmd *models.Command) error {
	t.Helper()
	data, err := cmd.Marshal()
	require.NoError(t, err)
	if resp := f.Apply(&raft.Log{Data: data}); resp != nil {
		return resp.(error)
	}
	return nil
}

func newPrinterFSM(t *testing.T) *FSM {
	t.Helper()
	f := NewFSM()
	require.NoError(t, applyCmd(t, f, &models.Command{
		Type:    models.AddPrinter,
		Printer: &models.Printer{ID: "p1", Name: "Front Desk", IPAddress: "10.0.0.5"},
		LogID:   "log-0",
		At:      time.Now().UTC(),
	}))
	return f
}

func TestAddPrinterWritesInitialLog(t *testing.T) {
	f := newPrinterFSM(t)

	logs := f.GetPrinterLogs("p1")
	require.Len(t, logs, 1)
	assert.Equal(t, int64(0), logs[0].PageCount)
	assert.Equal(t, "Printer registered", logs[0].Notes)

	err := applyCmd(t, f, &models.Command{Type: models.AddPrinter, Printer: &models.Printer{ID: "p1"}})
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestRecordCounterAdvancesAndLogs(t *testing.T) {
	f := newPrinterFSM(t)

	require.NoError(t, applyCmd(t, f, &models.Command{
		Type: models.RecordCounter, PrinterID: "p1", Count: 1250, LogID: "log-1",
	}))
	require.NoError(t, applyCmd(t, f, &models.Command{
		Type: models.RecordCounter, PrinterID: "p1", Count: 1300, LogID: "log-2",
	}))

	printer, ok := f.GetPrinter("p1")
	require.True(t, ok)
	assert.Equal(t, int64(1300), printer.TotalPageCounter)

	entry, ok := f.GetPrinterLog("p1", "log-2")
	require.True(t, ok)
	assert.Equal(t, int64(1300), entry.PageCount)
	assert.Equal(t, "Pages printed: 50 | Total: 1300", entry.Notes)
	assert.Len(t, f.GetPrinterLogs("p1"), 3)
}

func TestRecordCounterRejectsStaleReading(t *testing.T) {
	f := newPrinterFSM(t)
	require.NoError(t, applyCmd(t, f, &models.Command{
		Type: models.RecordCounter, PrinterID: "p1", Count: 500, LogID: "log-1",
	}))

	for _, count := range []int64{500, 20} {
		err := applyCmd(t, f, &models.Command{
			Type: models.RecordCounter, PrinterID: "p1", Count: count, LogID: "stale",
		})
		assert.ErrorIs(t, err, ErrStaleCounter)
	}

	printer, _ := f.GetPrinter("p1")
	assert.Equal(t, int64(500), printer.TotalPageCounter)
	assert.Len(t, f.GetPrinterLogs("p1"), 2)

	err := applyCmd(t, f, &models.Command{Type: models.RecordCounter, PrinterID: "missing", Count: 1})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeductStockAllowsNegativeLevels(t *testing.T) {
	f := NewFSM()
	require.NoError(t, applyCmd(t, f, &models.Command{
		Type:     models.AddMaterial,
		Material: &models.RawMaterial{ID: "ink", Name: "Black Ink", Type: models.MaterialInk, CurrentLevel: 0.02},
	}))

	require.NoError(t, applyCmd(t, f, &models.Command{
		Type: models.DeductStock,
		Deltas: []models.MaterialDelta{
			{MaterialID: "ink", Amount: 0.05},
			{MaterialID: "gone", Amount: 3},
		},
	}))

	ink, ok := f.GetMaterial("ink")
	require.True(t, ok)
	assert.InDelta(t, -0.03, ink.CurrentLevel, 1e-9)
}

func TestFindMaterialByTypeUsesRegistrationOrder(t *testing.T) {
	f := NewFSM()
	for _, id := range []string{"zz-paper", "aa-paper"} {
		require.NoError(t, applyCmd(t, f, &models.Command{
			Type:     models.AddMaterial,
			Material: &models.RawMaterial{ID: id, Name: id, Type: models.MaterialPaper, CurrentLevel: 10},
		}))
	}

	material, ok := f.FindMaterialByType(models.MaterialPaper)
	require.True(t, ok)
	assert.Equal(t, "zz-paper", material.ID)

	_, ok = f.FindMaterialByType(models.MaterialInk)
	assert.False(t, ok)
}

func checkoutFSM(t *testing.T) *FSM {
	t.Helper()
	f := NewFSM()
	require.NoError(t, applyCmd(t, f, &models.Command{
		Type:    models.AddProduct,
		Product: &models.Product{ID: "pen", Name: "Pen", Barcode: "111", Price: 1.5, StockQuantity: 2},
	}))
	require.NoError(t, applyCmd(t, f, &models.Command{
		Type:     models.AddPrintJob,
		PrintJob: &models.PrintJob{ID: "job", JobCode: "4321", TotalPages: 3},
	}))
	return f
}

func TestCheckoutCommitsAllChanges(t *testing.T) {
	f := checkoutFSM(t)

	err := applyCmd(t, f, &models.Command{
		Type: models.CheckoutCart,
		Checkout: &models.Checkout{
			Order:         &models.Order{ID: "o1", TotalAmount: 3.3},
			ProductCounts: map[string]int{"pen": 2},
			CollectedJobs: []string{"job"},
		},
	})
	require.NoError(t, err)

	product, _ := f.GetProductByBarcode("111")
	assert.Equal(t, 0, product.StockQuantity)
	job, _ := f.GetPrintJobByCode("4321")
	assert.Equal(t, models.JobCollected, job.Status)
	assert.Len(t, f.GetOrders(), 1)
}

func TestCheckoutIsAllOrNothing(t *testing.T) {
	f := checkoutFSM(t)

	err := applyCmd(t, f, &models.Command{
		Type: models.CheckoutCart,
		Checkout: &models.Checkout{
			Order:         &models.Order{ID: "o1"},
			ProductCounts: map[string]int{"pen": 3},
			CollectedJobs: []string{"job"},
		},
	})
	assert.ErrorIs(t, err, ErrInsufficientStock)

	product, _ := f.GetProductByBarcode("111")
	assert.Equal(t, 2, product.StockQuantity)
	job, _ := f.GetPrintJobByCode("4321")
	assert.Equal(t, models.JobPending, job.Status)
	assert.Empty(t, f.GetOrders())
}

func TestUpdatePrintJobRejectsInvalidTransition(t *testing.T) {
	f := checkoutFSM(t)
	require.NoError(t, applyCmd(t, f, &models.Command{Type: models.UpdatePrintJob, JobID: "job", NewStatus: models.JobPrinted}))

	err := applyCmd(t, f, &models.Command{Type: models.UpdatePrintJob, JobID: "job", NewStatus: models.JobPrinting})
	assert.True(t, errors.Is(err, models.ErrInvalidTransition))

	err = applyCmd(t, f, &models.Command{
		Type:     models.AddPrintJob,
		PrintJob: &models.PrintJob{ID: "other", JobCode: "4321"},
	})
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestUnknownCommand(t *testing.T) {
	err := applyCmd(t, NewFSM(), &models.Command{Type: "BOGUS"})
	assert.Error(t, err)
}

type bufferSink struct {
	bytes.Buffer
	cancelled bool
}

func (s *bufferSink) ID() string    { return "test" }
func (s *bufferSink) Close() error  { return nil }
func (s *bufferSink) Cancel() error { s.cancelled = true; return nil }

func TestSnapshotRestore(t *testing.T) {
	f := newPrinterFSM(t)
	require.NoError(t, applyCmd(t, f, &models.Command{
		Type: models.RecordCounter, PrinterID: "p1", Count: 77, LogID: "log-1",
	}))
	require.NoError(t, applyCmd(t, f, &models.Command{
		Type:     models.AddMaterial,
		Material: &models.RawMaterial{ID: "paper", Name: "A4", Type: models.MaterialPaper, CurrentLevel: 400},
	}))
	require.NoError(t, applyCmd(t, f, &models.Command{
		Type:   models.AddRecipe,
		Recipe: &models.ProductionRecipe{ID: "r1", ServiceType: "PRINT_BW_A4", RawMaterialID: "paper", QuantityRequired: 1},
	}))
	require.NoError(t, applyCmd(t, f, &models.Command{
		Type:    models.SetSetting,
		Setting: &models.Setting{Key: "price_bw_a4", Value: "0.15"},
	}))

	snap, err := f.Snapshot()
	require.NoError(t, err)
	sink := &bufferSink{}
	require.NoError(t, snap.Persist(sink))
	assert.False(t, sink.cancelled)

	restored := NewFSM()
	require.NoError(t, restored.Restore(io.NopCloser(&sink.Buffer)))

	printer, ok := restored.GetPrinter("p1")
	require.True(t, ok)
	assert.Equal(t, int64(77), printer.TotalPageCounter)
	assert.Len(t, restored.GetPrinterLogs("p1"), 2)
	assert.Len(t, restored.GetRecipes("PRINT_BW_A4"), 1)
	material, ok := restored.FindMaterialByType(models.MaterialPaper)
	require.True(t, ok)
	assert.Equal(t, "paper", material.ID)
	setting, ok := restored.GetSetting("price_bw_a4")
	require.True(t, ok)
	assert.Equal(t, "0.15", setting.Value)
}

func TestGettersReturnCopies(t *testing.T) {
	f := newPrinterFSM(t)

	printers := f.GetPrinters()
	require.Len(t, printers, 1)
	printers[0].TotalPageCounter = 999

	printer, _ := f.GetPrinter("p1")
	assert.Equal(t, int64(0), printer.TotalPageCounter)
}
