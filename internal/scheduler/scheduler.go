// Package scheduler runs periodic background jobs: refreshing the inventory
// status gauges and housekeeping such as pruning idle rate limit buckets.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"pharmapos/m/domain"
	"pharmapos/m/internal/logging"
	"pharmapos/m/internal/metrics"
	"pharmapos/m/internal/repository"
)

// InventoryReader is the subset of the repository the stock monitor needs.
type InventoryReader interface {
	CountInventoryByStatus(ctx context.Context) (map[domain.InventoryStatus]int64, error)
	ListInventory(ctx context.Context, f repository.InventoryFilter, p repository.Page) ([]domain.InventoryItem, error)
}

type StockMonitor struct {
	inventory InventoryReader
	interval  time.Duration
	timeout   time.Duration
	scheduler *gocron.Scheduler
}

func NewStockMonitor(inventory InventoryReader, interval time.Duration) *StockMonitor {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &StockMonitor{
		inventory: inventory,
		interval:  interval,
		timeout:   30 * time.Second,
		scheduler: gocron.NewScheduler(time.UTC),
	}
}

// Start refreshes the gauges once and then on every interval.
func (m *StockMonitor) Start() error {
	if err := m.refresh(); err != nil {
		logging.Error("Failed initial stock refresh", "error", err)
	}

	if _, err := m.scheduler.Every(m.interval).Do(func() {
		if err := m.refresh(); err != nil {
			logging.Error("Failed to refresh stock levels", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule stock refresh: %w", err)
	}

	m.scheduler.StartAsync()
	return nil
}

// Every registers an additional job. Jobs added after Start run on the
// already started scheduler.
func (m *StockMonitor) Every(interval time.Duration, name string, job func()) error {
	if _, err := m.scheduler.Every(interval).Do(job); err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	return nil
}

func (m *StockMonitor) Stop() {
	m.scheduler.Stop()
}

func (m *StockMonitor) refresh() error {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	return m.Refresh(ctx)
}

// Refresh updates the inventory_items gauge and warns about every item that
// is out of stock or running low.
func (m *StockMonitor) Refresh(ctx context.Context) error {
	counts, err := m.inventory.CountInventoryByStatus(ctx)
	if err != nil {
		return err
	}
	for _, status := range []domain.InventoryStatus{domain.InventoryInStock, domain.InventoryLowStock, domain.InventoryOutOfStock} {
		metrics.InventoryItems.WithLabelValues(string(status)).Set(float64(counts[status]))
	}

	for _, status := range []domain.InventoryStatus{domain.InventoryOutOfStock, domain.InventoryLowStock} {
		if counts[status] == 0 {
			continue
		}
		items, err := m.inventory.ListInventory(ctx, repository.InventoryFilter{Status: status}, repository.Page{Limit: 200})
		if err != nil {
			return err
		}
		for _, item := range items {
			logging.Warn("Stock level alert",
				"status", status,
				"drug_id", item.DrugID,
				"store_id", item.StoreID,
				"quantity", item.Quantity)
		}
	}

	logging.Debug("Refreshed stock levels",
		"in_stock", counts[domain.InventoryInStock],
		"low_stock", counts[domain.InventoryLowStock],
		"out_of_stock", counts[domain.InventoryOutOfStock])
	return nil
}
