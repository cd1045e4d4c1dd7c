package sales

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"pharmapos/m/domain"
)

// CreateSaleRequest is a single-line sale. UnitPrice defaults to the
// inventory selling price; CustomerID may be nil for walk-in sales.
type CreateSaleRequest struct {
	DrugID         int64                `json:"drugId"`
	StoreID        int64                `json:"storeId"`
	CustomerID     *int64               `json:"customerId,omitempty"`
	CashierID      int64                `json:"-"`
	Quantity       int64                `json:"quantity"`
	UnitPrice      *decimal.Decimal     `json:"unitPrice,omitempty"`
	Discount       decimal.Decimal      `json:"discount"`
	PaymentMethod  domain.PaymentMethod `json:"paymentMethod"`
	IdempotencyKey string               `json:"-"`
}

var hundred = decimal.NewFromInt(100)

// Validate checks the request and normalizes the idempotency key.
func (r *CreateSaleRequest) Validate() error {
	if r.DrugID <= 0 || r.StoreID <= 0 {
		return domain.Invalidf("drugId and storeId are required")
	}
	if r.CashierID <= 0 {
		return domain.Invalidf("cashier is required")
	}
	if r.CustomerID != nil && *r.CustomerID <= 0 {
		return domain.Invalidf("customerId must be positive")
	}
	if r.Quantity <= 0 {
		return domain.Invalidf("quantity must be positive")
	}
	if r.UnitPrice != nil && r.UnitPrice.IsNegative() {
		return domain.Invalidf("unitPrice must not be negative")
	}
	if r.Discount.IsNegative() || r.Discount.GreaterThan(hundred) {
		return domain.Invalidf("discount must be between 0 and 100")
	}
	if !r.PaymentMethod.Valid() {
		return domain.Invalidf("paymentMethod %q is not supported", r.PaymentMethod)
	}
	if r.IdempotencyKey != "" {
		key, err := uuid.Parse(r.IdempotencyKey)
		if err != nil {
			return domain.Invalidf("idempotency key must be a UUID")
		}
		r.IdempotencyKey = key.String()
	}
	return nil
}

// matches reports whether sale was created from an equivalent request.
func (r CreateSaleRequest) matches(sale *domain.Sale) bool {
	if r.DrugID != sale.DrugID || r.StoreID != sale.StoreID || r.Quantity != sale.Quantity {
		return false
	}
	if r.PaymentMethod != sale.PaymentMethod || !r.Discount.Equal(sale.Discount) {
		return false
	}
	if (r.CustomerID == nil) != (sale.CustomerID == nil) {
		return false
	}
	if r.CustomerID != nil && *r.CustomerID != *sale.CustomerID {
		return false
	}
	return r.UnitPrice == nil || r.UnitPrice.Equal(sale.UnitPrice)
}

// Receipt is the result of a sale operation: the sale and the inventory row
// as it stood when the operation committed.
type Receipt struct {
	Sale      domain.Sale          `json:"sale"`
	Inventory domain.InventoryItem `json:"inventory"`
	Replayed  bool                 `json:"replayed"`
}
