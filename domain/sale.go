package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCash        PaymentMethod = "cash"
	PaymentCard        PaymentMethod = "card"
	PaymentMobileMoney PaymentMethod = "mobile_money"
	PaymentInsurance   PaymentMethod = "insurance"
)

func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCash, PaymentCard, PaymentMobileMoney, PaymentInsurance:
		return true
	}
	return false
}

type SaleStatus string

const (
	SalePending   SaleStatus = "pending"
	SaleCompleted SaleStatus = "completed"
	SaleCancelled SaleStatus = "cancelled"
	SaleRefunded  SaleStatus = "refunded"
)

func (s SaleStatus) Valid() bool {
	switch s {
	case SalePending, SaleCompleted, SaleCancelled, SaleRefunded:
		return true
	}
	return false
}

// CanTransition reports whether a sale may move from s to next.
func (s SaleStatus) CanTransition(next SaleStatus) bool {
	switch s {
	case SalePending:
		return next == SaleCompleted || next == SaleCancelled
	case SaleCompleted:
		return next == SaleRefunded || next == SaleCancelled
	}
	return false
}

// Sale is a single-line sale of one drug from one store's inventory.
// Discount is a percentage in [0, 100]; the amounts are derived from it.
type Sale struct {
	ID             int64           `db:"id" json:"id"`
	DrugID         int64           `db:"drug_id" json:"drugId"`
	StoreID        int64           `db:"store_id" json:"storeId"`
	InventoryID    int64           `db:"inventory_id" json:"inventoryId"`
	CustomerID     *int64          `db:"customer_id" json:"customerId,omitempty"`
	CashierID      int64           `db:"cashier_id" json:"cashierId"`
	Quantity       int64           `db:"quantity" json:"quantity"`
	UnitPrice      decimal.Decimal `db:"unit_price" json:"unitPrice"`
	Discount       decimal.Decimal `db:"discount" json:"discount"`
	Subtotal       decimal.Decimal `db:"subtotal" json:"subtotal"`
	DiscountAmount decimal.Decimal `db:"discount_amount" json:"discountAmount"`
	TotalAmount    decimal.Decimal `db:"total_amount" json:"totalAmount"`
	PaymentMethod  PaymentMethod   `db:"payment_method" json:"paymentMethod"`
	Status         SaleStatus      `db:"status" json:"status"`
	IdempotencyKey *string         `db:"idempotency_key" json:"-"`
	CreatedAt      time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updatedAt"`
}
