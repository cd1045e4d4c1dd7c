package sales

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmapos/m/domain"
	"pharmapos/m/internal/database"
	"pharmapos/m/internal/metrics"
	"pharmapos/m/internal/migrations"
	"pharmapos/m/internal/repository"
)

type env struct {
	repo      *repository.Repository
	coord     *Coordinator
	drug      domain.Drug
	store     domain.Store
	cashier   domain.User
	inventory domain.InventoryItem
}

func setup(t *testing.T, quantity int64, opts Options) *env {
	t.Helper()
	ctx := context.Background()
	db, err := database.Connect(ctx, database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.Run(ctx, db))

	e := &env{repo: repository.New(db, domain.DefaultLowStockThreshold)}
	e.store = domain.Store{Name: "Legon"}
	require.NoError(t, e.repo.CreateStore(ctx, &e.store))
	e.drug = domain.Drug{Name: "Ibuprofen", Strength: "200mg", Form: "tablet"}
	require.NoError(t, e.repo.CreateDrug(ctx, &e.drug))
	e.cashier = domain.User{Username: "yaw", Email: "yaw@example.com", Password: "x", Role: domain.RoleCashier}
	require.NoError(t, e.repo.CreateUser(ctx, &e.cashier))
	e.inventory = domain.InventoryItem{DrugID: e.drug.ID, StoreID: e.store.ID, Quantity: quantity, SellingPrice: decimal.RequireFromString("10.00")}
	require.NoError(t, e.repo.CreateInventory(ctx, &e.inventory))

	e.coord = NewCoordinator(e.repo, opts)
	return e
}

func (e *env) request(quantity int64) CreateSaleRequest {
	return CreateSaleRequest{
		DrugID: e.drug.ID, StoreID: e.store.ID, CashierID: e.cashier.ID,
		Quantity: quantity, PaymentMethod: domain.PaymentCash,
	}
}

func (e *env) stock(t *testing.T) int64 {
	t.Helper()
	item, err := e.repo.GetInventory(context.Background(), e.repo.DB(), e.drug.ID, e.store.ID)
	require.NoError(t, err)
	return item.Quantity
}

func (e *env) saleCount(t *testing.T) int {
	t.Helper()
	sales, err := e.repo.ListSales(context.Background(), repository.SaleFilter{}, repository.Page{Limit: 200})
	require.NoError(t, err)
	return len(sales)
}

func TestCreateSale_PricesAndDecrements(t *testing.T) {
	e := setup(t, 10, Options{})
	req := e.request(2)
	req.Discount = decimal.NewFromInt(10)

	receipt, err := e.coord.CreateSale(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "20.00", receipt.Sale.Subtotal.StringFixed(2))
	assert.Equal(t, "2.00", receipt.Sale.DiscountAmount.StringFixed(2))
	assert.Equal(t, "18.00", receipt.Sale.TotalAmount.StringFixed(2))
	assert.Equal(t, "10.00", receipt.Sale.UnitPrice.StringFixed(2))
	assert.Equal(t, int64(8), receipt.Inventory.Quantity)
	assert.Equal(t, domain.InventoryLowStock, receipt.Inventory.Status)
	assert.Equal(t, int64(8), e.stock(t))

	stored, err := e.repo.GetSale(context.Background(), e.repo.DB(), receipt.Sale.ID)
	require.NoError(t, err)
	assert.Equal(t, "18.00", stored.TotalAmount.StringFixed(2))
}

func TestCreateSale_FiveThenThreeThenThree(t *testing.T) {
	e := setup(t, 5, Options{})

	receipt, err := e.coord.CreateSale(context.Background(), e.request(3))
	require.NoError(t, err)
	assert.Equal(t, int64(2), receipt.Inventory.Quantity)
	assert.Equal(t, domain.InventoryLowStock, receipt.Inventory.Status)

	_, err = e.coord.CreateSale(context.Background(), e.request(3))
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, int64(2), e.stock(t))
	assert.Equal(t, 1, e.saleCount(t))
}

func TestCreateSale_OutOfStock(t *testing.T) {
	e := setup(t, 0, Options{})

	_, err := e.coord.CreateSale(context.Background(), e.request(1))
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, int64(0), e.stock(t))
	assert.Equal(t, 0, e.saleCount(t))
}

func TestCreateSale_UnknownInventoryAndCustomer(t *testing.T) {
	e := setup(t, 5, Options{})

	req := e.request(1)
	req.StoreID = 404
	_, err := e.coord.CreateSale(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	req = e.request(1)
	missing := int64(404)
	req.CustomerID = &missing
	_, err = e.coord.CreateSale(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, int64(5), e.stock(t))
	assert.Equal(t, 0, e.saleCount(t))
}

func TestCreateSale_RetiredDrugOrStore(t *testing.T) {
	ctx := context.Background()

	e := setup(t, 5, Options{})
	require.NoError(t, e.repo.DeleteDrug(ctx, e.drug.ID))
	_, err := e.coord.CreateSale(ctx, e.request(2))
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, int64(5), e.stock(t))
	assert.Equal(t, 0, e.saleCount(t))

	e = setup(t, 5, Options{})
	require.NoError(t, e.repo.DeactivateStore(ctx, e.store.ID))
	_, err = e.coord.CreateSale(ctx, e.request(2))
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, int64(5), e.stock(t))
	assert.Equal(t, 0, e.saleCount(t))
}

// staleOnce hands out the inventory row at an older version on its first
// read, as if another sale had committed in between.
type staleOnce struct {
	*repository.Repository
	served bool
}

func (s *staleOnce) GetInventory(ctx context.Context, q sqlx.ExtContext, drugID, storeID int64) (*domain.InventoryItem, error) {
	item, err := s.Repository.GetInventory(ctx, q, drugID, storeID)
	if err == nil && !s.served {
		s.served = true
		item.Version--
	}
	return item, err
}

func TestCreateSale_RetriesStaleVersionAgainstRealRow(t *testing.T) {
	e := setup(t, 5, Options{})
	c := NewCoordinator(&staleOnce{Repository: e.repo}, Options{})

	before := testutil.ToFloat64(metrics.SaleRetries)
	receipt, err := c.CreateSale(context.Background(), e.request(2))
	require.NoError(t, err)
	assert.Equal(t, int64(3), receipt.Inventory.Quantity)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.SaleRetries))
	assert.Equal(t, int64(3), e.stock(t))
	assert.Equal(t, 1, e.saleCount(t))
}

// SQLite runs on a single connection, so these buyers are serialised and
// exercise the stock check rather than the version retry. The retry path is
// covered by TestCreateSale_RetriesStaleVersionAgainstRealRow and the mock
// tests.
func TestCreateSale_ConcurrentBuyersNeverOversell(t *testing.T) {
	const stock, buyers = 5, 20
	e := setup(t, stock, Options{Timeout: 10 * time.Second})

	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		succeeded    int
		insufficient int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.coord.CreateSale(context.Background(), e.request(1))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case assert.ErrorIs(t, err, domain.ErrInsufficientStock):
				insufficient++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, stock, succeeded)
	assert.Equal(t, buyers-stock, insufficient)
	assert.Equal(t, int64(0), e.stock(t))
	assert.Equal(t, stock, e.saleCount(t))
}

func TestRefundRestoresStock(t *testing.T) {
	e := setup(t, 10, Options{})
	ctx := context.Background()

	receipt, err := e.coord.CreateSale(ctx, e.request(3))
	require.NoError(t, err)
	assert.Equal(t, int64(7), e.stock(t))

	refund, err := e.coord.RefundSale(ctx, receipt.Sale.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SaleRefunded, refund.Sale.Status)
	assert.Equal(t, int64(10), refund.Inventory.Quantity)
	assert.Equal(t, int64(10), e.stock(t))

	_, err = e.coord.RefundSale(ctx, receipt.Sale.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	_, err = e.coord.CancelSale(ctx, receipt.Sale.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	assert.Equal(t, int64(10), e.stock(t))

	_, err = e.coord.RefundSale(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCancelRestoresStock(t *testing.T) {
	e := setup(t, 4, Options{})
	ctx := context.Background()

	receipt, err := e.coord.CreateSale(ctx, e.request(4))
	require.NoError(t, err)
	assert.Equal(t, domain.InventoryOutOfStock, receipt.Inventory.Status)

	cancelled, err := e.coord.CancelSale(ctx, receipt.Sale.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SaleCancelled, cancelled.Sale.Status)
	assert.Equal(t, int64(4), e.stock(t))
}

func TestCreateSale_IdempotentReplay(t *testing.T) {
	e := setup(t, 10, Options{})
	ctx := context.Background()

	req := e.request(2)
	req.IdempotencyKey = "6F9619FF-8B86-D011-B42D-00C04FC964FF"

	first, err := e.coord.CreateSale(ctx, req)
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	second, err := e.coord.CreateSale(ctx, req)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Sale.ID, second.Sale.ID)
	assert.Equal(t, int64(8), second.Inventory.Quantity)
	assert.Equal(t, int64(8), e.stock(t))
	assert.Equal(t, 1, e.saleCount(t))

	changed := req
	changed.Quantity = 3
	_, err = e.coord.CreateSale(ctx, changed)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, int64(8), e.stock(t))
}

func TestCreateSale_TimeoutLeavesNoPartialWrite(t *testing.T) {
	e := setup(t, 10, Options{Timeout: 50 * time.Millisecond})
	ctx := context.Background()

	// Hold the only connection so the sale cannot start its transaction.
	blocker, err := e.repo.BeginTx(ctx)
	require.NoError(t, err)

	_, err = e.coord.CreateSale(ctx, e.request(1))
	assert.ErrorIs(t, err, domain.ErrTimeout)

	require.NoError(t, blocker.Rollback())
	assert.Equal(t, int64(10), e.stock(t))
	assert.Equal(t, 0, e.saleCount(t))
}
