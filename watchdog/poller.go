package watchdog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/devadigapratham/printsync/api/models"
	"github.com/devadigapratham/printsync/metrics"
	"github.com/devadigapratham/printsync/raft"
	"github.com/sirupsen/logrus"
)

// DefaultInterval is the pause between two poll ticks
const DefaultInterval = 60 * time.Second

// PrinterStore is the persistence the poll loop needs
type PrinterStore interface {
	// Printers returns a fresh view of all registered printers
	Printers(ctx context.Context) ([]*models.Printer, error)
	// RecordCounter advances the stored counter and appends a log row atomically
	RecordCounter(ctx context.Context, printerID string, count int64) (*models.PrinterLog, error)
}

// CounterReader queries a device for its lifetime page counter.
// Failures are reported as ok=false.
type CounterReader interface {
	ReadCounter(ctx context.Context, address string) (int64, bool)
}

// TickReport summarises one pass over the printers
type TickReport struct {
	Checked   int
	Updated   int
	Unchanged int
	Failed    int
}

// Poller reconciles stored printer counters with live hardware readings
type Poller struct {
	store    PrinterStore
	reader   CounterReader
	interval time.Duration
	log      logrus.FieldLogger
}

// NewPoller creates a new Poller; a non-positive interval means DefaultInterval
func NewPoller(store PrinterStore, reader CounterReader, interval time.Duration, log logrus.FieldLogger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		store:    store,
		reader:   reader,
		interval: interval,
		log:      log.WithField("component", "watchdog"),
	}
}

// Run ticks immediately and then once per interval until ctx is cancelled.
// Tick failures never end the loop.
func (p *Poller) Run(ctx context.Context) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		p.safeTick(ctx)
		timer.Reset(p.interval)
	}
}

func (p *Poller) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordTick("error")
			p.log.WithField("panic", r).Error("poll tick aborted")
		}
	}()

	report, err := p.Tick(ctx)
	if err != nil {
		metrics.RecordTick("error")
		if !errors.Is(err, context.Canceled) {
			p.log.WithError(err).Error("poll tick failed")
		}
		return
	}

	metrics.RecordTick("ok")
	p.log.WithFields(logrus.Fields{
		"checked":   report.Checked,
		"updated":   report.Updated,
		"unchanged": report.Unchanged,
		"failed":    report.Failed,
	}).Debug("poll tick finished")
}

// Tick checks every printer once. A failing printer is skipped; only a failure
// to list printers is returned as an error.
func (p *Poller) Tick(ctx context.Context) (TickReport, error) {
	var report TickReport

	printers, err := p.store.Printers(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list printers: %w", err)
	}

	for _, printer := range printers {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Checked++

		log := p.log.WithFields(logrus.Fields{
			"printer_id": printer.ID,
			"printer":    printer.Name,
			"address":    printer.IPAddress,
		})
		log.Debug("checking printer")

		count, ok := p.reader.ReadCounter(ctx, printer.IPAddress)
		if !ok {
			report.Failed++
			metrics.RecordQueryFailure(printer.ID)
			log.Warn("failed to fetch counter")
			continue
		}

		if count <= printer.TotalPageCounter {
			report.Unchanged++
			if count < printer.TotalPageCounter {
				// Only a replaced or reset device reports less; the stored value is kept.
				log.WithFields(logrus.Fields{
					"stored":  printer.TotalPageCounter,
					"reading": count,
				}).Warn("counter went backwards, keeping stored value")
				continue
			}
			log.WithField("total", count).Debug("total count (no change)")
			continue
		}

		entry, err := p.store.RecordCounter(ctx, printer.ID, count)
		if errors.Is(err, raft.ErrStaleCounter) {
			report.Unchanged++
			continue
		}
		if err != nil {
			report.Failed++
			log.WithError(err).Error("failed to record counter")
			continue
		}

		report.Updated++
		metrics.RecordPages(printer.ID, count-printer.TotalPageCounter)
		log.WithFields(logrus.Fields{
			"total": entry.PageCount,
			"notes": entry.Notes,
		}).Info("total count updated")
	}

	return report, nil
}
