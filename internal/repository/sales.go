package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"pharmapos/m/domain"
)

const saleColumns = `id, drug_id, store_id, inventory_id, customer_id, cashier_id, quantity, unit_price, discount,
                subtotal, discount_amount, total_amount, payment_method, status, idempotency_key, created_at, updated_at`

// SaleFilter narrows ListSales. From is inclusive and To exclusive.
type SaleFilter struct {
	StoreID int64
	Status  domain.SaleStatus
	From    *time.Time
	To      *time.Time
}

func (r *Repository) InsertSale(ctx context.Context, q sqlx.ExtContext, sale *domain.Sale) error {
	query := q.Rebind(`INSERT INTO sales (drug_id, store_id, inventory_id, customer_id, cashier_id, quantity, unit_price, discount,
                subtotal, discount_amount, total_amount, payment_method, status, idempotency_key, created_at, updated_at)
                VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	err := q.QueryRowxContext(ctx, query,
		sale.DrugID, sale.StoreID, sale.InventoryID, sale.CustomerID, sale.CashierID, sale.Quantity,
		sale.UnitPrice, sale.Discount, sale.Subtotal, sale.DiscountAmount, sale.TotalAmount,
		sale.PaymentMethod, sale.Status, sale.IdempotencyKey, sale.CreatedAt, sale.UpdatedAt,
	).Scan(&sale.ID)
	if err != nil {
		return mapErr(ctx, err, "insert sale")
	}
	return nil
}

func (r *Repository) GetSale(ctx context.Context, q sqlx.ExtContext, id int64) (*domain.Sale, error) {
	var sale domain.Sale
	query := q.Rebind(`SELECT ` + saleColumns + ` FROM sales WHERE id = ?`)
	if err := sqlx.GetContext(ctx, q, &sale, query, id); err != nil {
		return nil, mapErr(ctx, err, fmt.Sprintf("sale %d", id))
	}
	return &sale, nil
}

func (r *Repository) FindSaleByIdempotencyKey(ctx context.Context, q sqlx.ExtContext, key string) (*domain.Sale, error) {
	var sale domain.Sale
	query := q.Rebind(`SELECT ` + saleColumns + ` FROM sales WHERE idempotency_key = ?`)
	if err := sqlx.GetContext(ctx, q, &sale, query, key); err != nil {
		return nil, mapErr(ctx, err, "sale for idempotency key")
	}
	return &sale, nil
}

// TransitionSale moves a sale from one status to another. It matches no row,
// and returns ErrVersionConflict, if the sale left the from status meanwhile.
func (r *Repository) TransitionSale(ctx context.Context, q sqlx.ExtContext, id int64, from, to domain.SaleStatus, at time.Time) error {
	query := q.Rebind(`UPDATE sales SET status = ?, updated_at = ? WHERE id = ? AND status = ?`)
	res, err := q.ExecContext(ctx, query, to, at, id, from)
	if err != nil {
		return mapErr(ctx, err, "transition sale")
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return mapErr(ctx, err, "transition sale")
	}
	if rows == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (r *Repository) ListSales(ctx context.Context, f SaleFilter, p Page) ([]domain.Sale, error) {
	clauses, args := f.clauses()
	limit, offset := limitOffset(p)
	query := `SELECT ` + saleColumns + ` FROM sales` + where(clauses) + ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	sales := []domain.Sale{}
	if err := r.db.SelectContext(ctx, &sales, r.db.Rebind(query), args...); err != nil {
		return nil, mapErr(ctx, err, "list sales")
	}
	return sales, nil
}

func (f SaleFilter) clauses() ([]string, []any) {
	var (
		clauses []string
		args    []any
	)
	if f.StoreID > 0 {
		clauses = append(clauses, "store_id = ?")
		args = append(args, f.StoreID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, f.Status)
	}
	if f.From != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, f.From.UTC())
	}
	if f.To != nil {
		clauses = append(clauses, "created_at < ?")
		args = append(args, f.To.UTC())
	}
	return clauses, args
}
