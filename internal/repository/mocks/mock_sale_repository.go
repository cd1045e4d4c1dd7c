package mocks

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"

	"pharmapos/m/domain"
	"pharmapos/m/internal/repository"
)

type MockSaleRepository struct {
	mock.Mock
}

func (m *MockSaleRepository) DB() sqlx.ExtContext {
	args := m.Called()
	if q := args.Get(0); q != nil {
		return q.(sqlx.ExtContext)
	}
	return nil
}

func (m *MockSaleRepository) BeginTx(ctx context.Context) (repository.Tx, error) {
	args := m.Called(ctx)
	if tx := args.Get(0); tx != nil {
		return tx.(repository.Tx), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSaleRepository) GetInventory(ctx context.Context, q sqlx.ExtContext, drugID, storeID int64) (*domain.InventoryItem, error) {
	args := m.Called(ctx, q, drugID, storeID)
	if item := args.Get(0); item != nil {
		// Hand out a copy so one stubbed row can be read by several attempts.
		copied := *item.(*domain.InventoryItem)
		return &copied, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSaleRepository) GetInventoryByID(ctx context.Context, q sqlx.ExtContext, id int64) (*domain.InventoryItem, error) {
	args := m.Called(ctx, q, id)
	if item := args.Get(0); item != nil {
		copied := *item.(*domain.InventoryItem)
		return &copied, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSaleRepository) EnsureSellable(ctx context.Context, q sqlx.ExtContext, drugID, storeID int64) error {
	args := m.Called(ctx, q, drugID, storeID)
	return args.Error(0)
}

func (m *MockSaleRepository) AdjustInventory(ctx context.Context, q sqlx.ExtContext, item *domain.InventoryItem, delta int64, at time.Time) error {
	args := m.Called(ctx, q, item, delta, at)
	if args.Error(0) == nil {
		item.Quantity += delta
		item.Version++
	}
	return args.Error(0)
}

func (m *MockSaleRepository) CustomerExists(ctx context.Context, q sqlx.ExtContext, id int64) (bool, error) {
	args := m.Called(ctx, q, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockSaleRepository) InsertSale(ctx context.Context, q sqlx.ExtContext, sale *domain.Sale) error {
	args := m.Called(ctx, q, sale)
	if sale != nil && args.Error(0) == nil {
		sale.ID = 1
	}
	return args.Error(0)
}

func (m *MockSaleRepository) GetSale(ctx context.Context, q sqlx.ExtContext, id int64) (*domain.Sale, error) {
	args := m.Called(ctx, q, id)
	if sale := args.Get(0); sale != nil {
		copied := *sale.(*domain.Sale)
		return &copied, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSaleRepository) FindSaleByIdempotencyKey(ctx context.Context, q sqlx.ExtContext, key string) (*domain.Sale, error) {
	args := m.Called(ctx, q, key)
	if sale := args.Get(0); sale != nil {
		return sale.(*domain.Sale), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSaleRepository) TransitionSale(ctx context.Context, q sqlx.ExtContext, id int64, from, to domain.SaleStatus, at time.Time) error {
	args := m.Called(ctx, q, id, from, to, at)
	return args.Error(0)
}
