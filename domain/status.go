package domain

import "time"

// InventoryStatusFor maps a stock quantity to its status. The threshold is
// inclusive: a quantity equal to it is still low stock.
func InventoryStatusFor(quantity, lowStockThreshold int64) InventoryStatus {
	switch {
	case quantity <= 0:
		return InventoryOutOfStock
	case quantity <= lowStockThreshold:
		return InventoryLowStock
	default:
		return InventoryInStock
	}
}

// PrescriptionStatusAt returns the status a prescription has at now. Completed
// and cancelled are terminal; anything else becomes expired once now is past
// the expiry date.
func PrescriptionStatusAt(expiry time.Time, current PrescriptionStatus, now time.Time) PrescriptionStatus {
	if current == PrescriptionCompleted || current == PrescriptionCancelled {
		return current
	}
	if now.After(expiry) {
		return PrescriptionExpired
	}
	return current
}
