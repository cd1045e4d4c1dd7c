package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"pharmapos/m/domain"
)

const inventoryColumns = `id, drug_id, store_id, quantity, selling_price, version, created_at, updated_at`

// InventoryFilter narrows ListInventory. Status is applied after the derived
// status is computed.
type InventoryFilter struct {
	StoreID int64
	DrugID  int64
	Status  domain.InventoryStatus
}

func (r *Repository) GetInventory(ctx context.Context, q sqlx.ExtContext, drugID, storeID int64) (*domain.InventoryItem, error) {
	var item domain.InventoryItem
	query := q.Rebind(`SELECT ` + inventoryColumns + ` FROM inventory WHERE drug_id = ? AND store_id = ?`)
	if err := sqlx.GetContext(ctx, q, &item, query, drugID, storeID); err != nil {
		return nil, mapErr(ctx, err, fmt.Sprintf("inventory for drug %d at store %d", drugID, storeID))
	}
	item.Evaluate(r.lowStockThreshold)
	return &item, nil
}

func (r *Repository) GetInventoryByID(ctx context.Context, q sqlx.ExtContext, id int64) (*domain.InventoryItem, error) {
	var item domain.InventoryItem
	query := q.Rebind(`SELECT ` + inventoryColumns + ` FROM inventory WHERE id = ?`)
	if err := sqlx.GetContext(ctx, q, &item, query, id); err != nil {
		return nil, mapErr(ctx, err, fmt.Sprintf("inventory %d", id))
	}
	item.Evaluate(r.lowStockThreshold)
	return &item, nil
}

// EnsureSellable fails unless the drug is live and the store exists and is
// active. A deleted drug or missing store is ErrNotFound, an inactive store
// ErrValidation.
func (r *Repository) EnsureSellable(ctx context.Context, q sqlx.ExtContext, drugID, storeID int64) error {
	var state struct {
		Drugs        int64 `db:"drugs"`
		Stores       int64 `db:"stores"`
		ActiveStores int64 `db:"active_stores"`
	}
	query := q.Rebind(`SELECT
                (SELECT COUNT(*) FROM drugs WHERE id = ? AND deleted_at IS NULL) AS drugs,
                (SELECT COUNT(*) FROM stores WHERE id = ?) AS stores,
                (SELECT COUNT(*) FROM stores WHERE id = ? AND active = ?) AS active_stores`)
	if err := sqlx.GetContext(ctx, q, &state, query, drugID, storeID, storeID, true); err != nil {
		return mapErr(ctx, err, "check drug and store")
	}
	switch {
	case state.Drugs == 0:
		return domain.NotFoundf("drug %d", drugID)
	case state.Stores == 0:
		return domain.NotFoundf("store %d", storeID)
	case state.ActiveStores == 0:
		return domain.Invalidf("store %d is inactive", storeID)
	}
	return nil
}

// AdjustInventory applies delta to the row only if it still carries the
// version item was read at and the result stays non-negative. On success item
// is updated to the new quantity, version and status.
func (r *Repository) AdjustInventory(ctx context.Context, q sqlx.ExtContext, item *domain.InventoryItem, delta int64, at time.Time) error {
	query := q.Rebind(`UPDATE inventory
                SET quantity = quantity + ?, version = version + 1, updated_at = ?
                WHERE id = ? AND version = ? AND quantity + ? >= 0`)
	res, err := q.ExecContext(ctx, query, delta, at, item.ID, item.Version, delta)
	if err != nil {
		return mapErr(ctx, err, "adjust inventory")
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return mapErr(ctx, err, "adjust inventory")
	}
	if rows == 0 {
		return ErrVersionConflict
	}
	item.Quantity += delta
	item.Version++
	item.UpdatedAt = at
	item.Evaluate(r.lowStockThreshold)
	return nil
}

// Restock adds delta to the stock of a (drug, store) pair in one statement.
// The version is bumped so in-flight sales re-read the row.
func (r *Repository) Restock(ctx context.Context, drugID, storeID, delta int64, at time.Time) (*domain.InventoryItem, error) {
	if err := r.EnsureSellable(ctx, r.db, drugID, storeID); err != nil {
		return nil, err
	}
	query := r.db.Rebind(`UPDATE inventory
                SET quantity = quantity + ?, version = version + 1, updated_at = ?
                WHERE drug_id = ? AND store_id = ? AND quantity + ? >= 0`)
	res, err := r.db.ExecContext(ctx, query, delta, at, drugID, storeID, delta)
	if err != nil {
		return nil, mapErr(ctx, err, "restock inventory")
	}
	if rows, err := res.RowsAffected(); err != nil {
		return nil, mapErr(ctx, err, "restock inventory")
	} else if rows == 0 {
		item, err := r.GetInventory(ctx, r.db, drugID, storeID)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %d in stock, adjustment %d", domain.ErrInsufficientStock, item.Quantity, delta)
	}
	return r.GetInventory(ctx, r.db, drugID, storeID)
}

func (r *Repository) CreateInventory(ctx context.Context, item *domain.InventoryItem) error {
	if err := r.EnsureSellable(ctx, r.db, item.DrugID, item.StoreID); err != nil {
		return err
	}
	now := time.Now().UTC()
	query := r.db.Rebind(`INSERT INTO inventory (drug_id, store_id, quantity, selling_price, version, created_at, updated_at)
                VALUES (?, ?, ?, ?, 0, ?, ?) RETURNING id`)
	if err := r.db.QueryRowxContext(ctx, query, item.DrugID, item.StoreID, item.Quantity, item.SellingPrice, now, now).Scan(&item.ID); err != nil {
		return mapErr(ctx, err, "create inventory")
	}
	item.Version = 0
	item.CreatedAt = now
	item.UpdatedAt = now
	item.Evaluate(r.lowStockThreshold)
	return nil
}

// UpdateInventory overwrites quantity and price for a (drug, store) pair.
func (r *Repository) UpdateInventory(ctx context.Context, item *domain.InventoryItem) error {
	now := time.Now().UTC()
	query := r.db.Rebind(`UPDATE inventory
                SET quantity = ?, selling_price = ?, version = version + 1, updated_at = ?
                WHERE drug_id = ? AND store_id = ?`)
	res, err := r.db.ExecContext(ctx, query, item.Quantity, item.SellingPrice, now, item.DrugID, item.StoreID)
	if err != nil {
		return mapErr(ctx, err, "update inventory")
	}
	if rows, err := res.RowsAffected(); err != nil {
		return mapErr(ctx, err, "update inventory")
	} else if rows == 0 {
		return domain.NotFoundf("inventory for drug %d at store %d", item.DrugID, item.StoreID)
	}
	updated, err := r.GetInventory(ctx, r.db, item.DrugID, item.StoreID)
	if err != nil {
		return err
	}
	*item = *updated
	return nil
}

func (r *Repository) ListInventory(ctx context.Context, f InventoryFilter, p Page) ([]domain.InventoryItem, error) {
	var (
		clauses []string
		args    []any
	)
	if f.StoreID > 0 {
		clauses = append(clauses, "store_id = ?")
		args = append(args, f.StoreID)
	}
	if f.DrugID > 0 {
		clauses = append(clauses, "drug_id = ?")
		args = append(args, f.DrugID)
	}
	switch f.Status {
	case domain.InventoryOutOfStock:
		clauses = append(clauses, "quantity <= 0")
	case domain.InventoryLowStock:
		clauses = append(clauses, "quantity > 0 AND quantity <= ?")
		args = append(args, r.lowStockThreshold)
	case domain.InventoryInStock:
		clauses = append(clauses, "quantity > ?")
		args = append(args, r.lowStockThreshold)
	}

	limit, offset := limitOffset(p)
	query := `SELECT ` + inventoryColumns + ` FROM inventory` + where(clauses) + ` ORDER BY id LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	items := []domain.InventoryItem{}
	if err := r.db.SelectContext(ctx, &items, r.db.Rebind(query), args...); err != nil {
		return nil, mapErr(ctx, err, "list inventory")
	}
	for i := range items {
		items[i].Evaluate(r.lowStockThreshold)
	}
	return items, nil
}

// CountInventoryByStatus returns the number of inventory rows per derived status.
func (r *Repository) CountInventoryByStatus(ctx context.Context) (map[domain.InventoryStatus]int64, error) {
	var row struct {
		Out int64 `db:"out_of_stock"`
		Low int64 `db:"low_stock"`
		In  int64 `db:"in_stock"`
	}
	query := r.db.Rebind(`SELECT
                COALESCE(SUM(CASE WHEN quantity <= 0 THEN 1 ELSE 0 END), 0) AS out_of_stock,
                COALESCE(SUM(CASE WHEN quantity > 0 AND quantity <= ? THEN 1 ELSE 0 END), 0) AS low_stock,
                COALESCE(SUM(CASE WHEN quantity > ? THEN 1 ELSE 0 END), 0) AS in_stock
                FROM inventory`)
	if err := r.db.GetContext(ctx, &row, query, r.lowStockThreshold, r.lowStockThreshold); err != nil {
		return nil, mapErr(ctx, err, "count inventory")
	}
	return map[domain.InventoryStatus]int64{
		domain.InventoryOutOfStock: row.Out,
		domain.InventoryLowStock:   row.Low,
		domain.InventoryInStock:    row.In,
	}, nil
}

func where(clauses []string) string {
	if len(clauses) == 0 {
		return ""
	}
	out := " WHERE " + clauses[0]
	for _, c := range clauses[1:] {
		out += " AND " + c
	}
	return out
}
