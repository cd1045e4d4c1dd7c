// Package sales coordinates the read-check-write of a sale against a single
// inventory row, and the reverse for refunds and cancellations.
package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"pharmapos/m/domain"
	"pharmapos/m/internal/logging"
	"pharmapos/m/internal/metrics"
	"pharmapos/m/internal/pricing"
	"pharmapos/m/internal/repository"
)

// Repository is the data access the coordinator needs. *repository.Repository
// satisfies it.
type Repository interface {
	DB() sqlx.ExtContext
	BeginTx(ctx context.Context) (repository.Tx, error)
	GetInventory(ctx context.Context, q sqlx.ExtContext, drugID, storeID int64) (*domain.InventoryItem, error)
	GetInventoryByID(ctx context.Context, q sqlx.ExtContext, id int64) (*domain.InventoryItem, error)
	EnsureSellable(ctx context.Context, q sqlx.ExtContext, drugID, storeID int64) error
	AdjustInventory(ctx context.Context, q sqlx.ExtContext, item *domain.InventoryItem, delta int64, at time.Time) error
	CustomerExists(ctx context.Context, q sqlx.ExtContext, id int64) (bool, error)
	InsertSale(ctx context.Context, q sqlx.ExtContext, sale *domain.Sale) error
	GetSale(ctx context.Context, q sqlx.ExtContext, id int64) (*domain.Sale, error)
	FindSaleByIdempotencyKey(ctx context.Context, q sqlx.ExtContext, key string) (*domain.Sale, error)
	TransitionSale(ctx context.Context, q sqlx.ExtContext, id int64, from, to domain.SaleStatus, at time.Time) error
}

// Options tunes a Coordinator. Zero values take the defaults.
type Options struct {
	// MaxAttempts bounds how often a transaction is retried after a
	// version conflict.
	MaxAttempts int
	// Timeout is the deadline for a whole operation, across all attempts.
	Timeout time.Duration
	// Now stamps inventory updates and sales. Defaults to the UTC wall clock.
	Now func() time.Time
}

const (
	opCreate = "create"
	opRefund = "refund"
	opCancel = "cancel"
)

// Coordinator runs sale, refund and cancel operations, each in its own
// retried transaction.
type Coordinator struct {
	repo Repository
	opts Options
}

// NewCoordinator constructs a Coordinator over repo.
func NewCoordinator(repo Repository, opts Options) *Coordinator {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Coordinator{repo: repo, opts: opts}
}

// CreateSale decrements stock and records a completed sale atomically. Either
// both happen or neither does.
func (c *Coordinator) CreateSale(ctx context.Context, req CreateSaleRequest) (*Receipt, error) {
	if err := req.Validate(); err != nil {
		c.record(opCreate, nil, err)
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	var receipt *Receipt
	err := c.inTx(ctx, opCreate, func(tx repository.Tx) error {
		var err error
		receipt, err = c.createOnce(ctx, tx, req)
		return err
	})
	if errors.Is(err, domain.ErrAlreadyExists) && req.IdempotencyKey != "" {
		// Lost the race to another request carrying the same key.
		var existing *domain.Sale
		existing, err = c.repo.FindSaleByIdempotencyKey(ctx, c.repo.DB(), req.IdempotencyKey)
		if err == nil {
			receipt, err = c.replay(ctx, c.repo.DB(), req, existing)
		}
	}
	err = timeoutAware(ctx, err)
	c.record(opCreate, receipt, err)
	if err != nil {
		return nil, err
	}

	if !receipt.Replayed {
		logging.Info("sale completed",
			"sale_id", receipt.Sale.ID,
			"drug_id", receipt.Sale.DrugID,
			"store_id", receipt.Sale.StoreID,
			"quantity", receipt.Sale.Quantity,
			"total", receipt.Sale.TotalAmount.StringFixed(2),
			"remaining", receipt.Inventory.Quantity,
		)
	}
	return receipt, nil
}

func (c *Coordinator) createOnce(ctx context.Context, tx repository.Tx, req CreateSaleRequest) (*Receipt, error) {
	if req.IdempotencyKey != "" {
		existing, err := c.repo.FindSaleByIdempotencyKey(ctx, tx, req.IdempotencyKey)
		if err == nil {
			return c.replay(ctx, tx, req, existing)
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}

	item, err := c.repo.GetInventory(ctx, tx, req.DrugID, req.StoreID)
	if err != nil {
		return nil, err
	}
	if err := c.repo.EnsureSellable(ctx, tx, req.DrugID, req.StoreID); err != nil {
		return nil, err
	}
	if req.CustomerID != nil {
		ok, err := c.repo.CustomerExists(ctx, tx, *req.CustomerID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.NotFoundf("customer %d", *req.CustomerID)
		}
	}
	if item.Quantity < req.Quantity {
		return nil, fmt.Errorf("%w: requested %d, %d in stock", domain.ErrInsufficientStock, req.Quantity, item.Quantity)
	}

	unitPrice := item.SellingPrice
	if req.UnitPrice != nil {
		unitPrice = *req.UnitPrice
	}
	totals, err := pricing.ComputeTotals(req.Quantity, unitPrice, req.Discount)
	if err != nil {
		return nil, err
	}

	now := c.opts.Now()
	if err := c.repo.AdjustInventory(ctx, tx, item, -req.Quantity, now); err != nil {
		return nil, err
	}

	sale := domain.Sale{
		DrugID:         req.DrugID,
		StoreID:        req.StoreID,
		InventoryID:    item.ID,
		CustomerID:     req.CustomerID,
		CashierID:      req.CashierID,
		Quantity:       req.Quantity,
		UnitPrice:      unitPrice,
		Discount:       req.Discount,
		Subtotal:       totals.Subtotal,
		DiscountAmount: totals.DiscountAmount,
		TotalAmount:    totals.TotalAmount,
		PaymentMethod:  req.PaymentMethod,
		Status:         domain.SaleCompleted,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		sale.IdempotencyKey = &key
	}
	if err := c.repo.InsertSale(ctx, tx, &sale); err != nil {
		return nil, err
	}
	return &Receipt{Sale: sale, Inventory: *item}, nil
}

func (c *Coordinator) replay(ctx context.Context, q sqlx.ExtContext, req CreateSaleRequest, existing *domain.Sale) (*Receipt, error) {
	if !req.matches(existing) {
		return nil, domain.Invalidf("idempotency key was already used for a different sale")
	}
	item, err := c.repo.GetInventoryByID(ctx, q, existing.InventoryID)
	if err != nil {
		return nil, err
	}
	return &Receipt{Sale: *existing, Inventory: *item, Replayed: true}, nil
}

// RefundSale marks a completed sale refunded and returns its quantity to stock.
func (c *Coordinator) RefundSale(ctx context.Context, id int64) (*Receipt, error) {
	return c.reverse(ctx, opRefund, id, domain.SaleRefunded)
}

// CancelSale marks a completed sale cancelled and returns its quantity to stock.
func (c *Coordinator) CancelSale(ctx context.Context, id int64) (*Receipt, error) {
	return c.reverse(ctx, opCancel, id, domain.SaleCancelled)
}

func (c *Coordinator) reverse(ctx context.Context, op string, id int64, to domain.SaleStatus) (*Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	var receipt *Receipt
	err := c.inTx(ctx, op, func(tx repository.Tx) error {
		sale, err := c.repo.GetSale(ctx, tx, id)
		if err != nil {
			return err
		}
		if sale.Status != domain.SaleCompleted || !sale.Status.CanTransition(to) {
			return fmt.Errorf("%w: sale %d is %s", domain.ErrInvalidState, id, sale.Status)
		}
		item, err := c.repo.GetInventoryByID(ctx, tx, sale.InventoryID)
		if err != nil {
			return err
		}

		now := c.opts.Now()
		if err := c.repo.AdjustInventory(ctx, tx, item, sale.Quantity, now); err != nil {
			return err
		}
		if err := c.repo.TransitionSale(ctx, tx, id, domain.SaleCompleted, to, now); err != nil {
			return err
		}
		sale.Status = to
		sale.UpdatedAt = now
		receipt = &Receipt{Sale: *sale, Inventory: *item}
		return nil
	})
	err = timeoutAware(ctx, err)
	c.record(op, receipt, err)
	if err != nil {
		return nil, err
	}

	logging.Info("sale reversed",
		"sale_id", id,
		"status", to,
		"restored", receipt.Sale.Quantity,
		"remaining", receipt.Inventory.Quantity,
	)
	return receipt, nil
}

// inTx runs fn in a fresh transaction, retrying the whole transaction while
// fn reports a version conflict.
func (c *Coordinator) inTx(ctx context.Context, op string, fn func(tx repository.Tx) error) error {
	for attempt := 1; ; attempt++ {
		err := c.attempt(ctx, fn)
		if !errors.Is(err, repository.ErrVersionConflict) {
			return err
		}
		if attempt >= c.opts.MaxAttempts {
			logging.Warn("giving up after inventory version conflicts", "operation", op, "attempts", attempt)
			return fmt.Errorf("%w: %s gave up after %d attempts", domain.ErrConflict, op, attempt)
		}
		metrics.SaleRetries.Inc()
		logging.Debug("inventory version conflict, retrying", "operation", op, "attempt", attempt)
	}
}

func (c *Coordinator) attempt(ctx context.Context, fn func(tx repository.Tx) error) (err error) {
	tx, err := c.repo.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// timeoutAware reports a missed deadline as ErrTimeout whatever layer
// noticed it first.
func timeoutAware(ctx context.Context, err error) error {
	if err == nil || errors.Is(err, domain.ErrTimeout) {
		return err
	}
	outcome := outcomeOf(err)
	if errors.Is(err, context.DeadlineExceeded) ||
		((outcome == "error" || outcome == "canceled") && errors.Is(ctx.Err(), context.DeadlineExceeded)) {
		return fmt.Errorf("%w: %w", domain.ErrTimeout, err)
	}
	return err
}

func (c *Coordinator) record(op string, receipt *Receipt, err error) {
	outcome := outcomeOf(err)
	if receipt != nil && receipt.Replayed {
		outcome = "replayed"
	}
	metrics.SalesTotal.WithLabelValues(op, outcome).Inc()

	switch outcome {
	case "timeout", "conflict":
		logging.Warn("sale operation failed", "operation", op, "outcome", outcome, "error", err)
	case "canceled":
		logging.Debug("sale operation canceled by caller", "operation", op, "error", err)
	case "error":
		logging.Error("sale operation failed", "operation", op, "error", err)
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrTimeout):
		return "timeout"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	case errors.Is(err, domain.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}
	return "error"
}
