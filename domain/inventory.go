package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultLowStockThreshold is the quantity at or below which an item is low on stock.
const DefaultLowStockThreshold = 10

type InventoryStatus string

const (
	InventoryOutOfStock InventoryStatus = "out_of_stock"
	InventoryLowStock   InventoryStatus = "low_stock"
	InventoryInStock    InventoryStatus = "in_stock"
)

func (s InventoryStatus) Valid() bool {
	switch s {
	case InventoryOutOfStock, InventoryLowStock, InventoryInStock:
		return true
	}
	return false
}

// InventoryItem is the stock of one drug at one store. Status is derived from
// Quantity when the row is read and is never persisted.
type InventoryItem struct {
	ID           int64           `db:"id" json:"id"`
	DrugID       int64           `db:"drug_id" json:"drugId"`
	StoreID      int64           `db:"store_id" json:"storeId"`
	Quantity     int64           `db:"quantity" json:"quantity"`
	SellingPrice decimal.Decimal `db:"selling_price" json:"sellingPrice"`
	Version      int64           `db:"version" json:"version"`
	Status       InventoryStatus `db:"-" json:"status"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updatedAt"`
}

// Evaluate fills in the derived status.
func (i *InventoryItem) Evaluate(lowStockThreshold int64) {
	i.Status = InventoryStatusFor(i.Quantity, lowStockThreshold)
}

func (i InventoryItem) Validate() error {
	if i.DrugID <= 0 || i.StoreID <= 0 {
		return Invalidf("drugId and storeId are required")
	}
	if i.Quantity < 0 {
		return Invalidf("quantity must not be negative")
	}
	if i.SellingPrice.IsNegative() {
		return Invalidf("sellingPrice must not be negative")
	}
	return nil
}
