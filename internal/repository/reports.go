package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"pharmapos/m/domain"
)

// SalesSummary aggregates completed sales over a window.
type SalesSummary struct {
	Revenue    decimal.Decimal `json:"revenue"`
	Discounts  decimal.Decimal `json:"discounts"`
	Units      int64           `json:"units"`
	SalesCount int64           `json:"salesCount"`
}

// SummarizeSales totals completed sales matching f. Refunded and cancelled
// sales are excluded whatever status f names.
func (r *Repository) SummarizeSales(ctx context.Context, f SaleFilter) (SalesSummary, error) {
	f.Status = domain.SaleCompleted
	clauses, args := f.clauses()

	var row struct {
		Revenue   decimal.NullDecimal `db:"revenue"`
		Discounts decimal.NullDecimal `db:"discounts"`
		Units     int64               `db:"units"`
		Count     int64               `db:"sales_count"`
	}
	query := `SELECT SUM(total_amount) AS revenue, SUM(discount_amount) AS discounts,
                COALESCE(SUM(quantity), 0) AS units, COUNT(*) AS sales_count
                FROM sales` + where(clauses)
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(query), args...); err != nil {
		return SalesSummary{}, mapErr(ctx, err, "summarize sales")
	}

	summary := SalesSummary{Units: row.Units, SalesCount: row.Count, Revenue: decimal.Zero, Discounts: decimal.Zero}
	if row.Revenue.Valid {
		summary.Revenue = row.Revenue.Decimal.Round(2)
	}
	if row.Discounts.Valid {
		summary.Discounts = row.Discounts.Decimal.Round(2)
	}
	return summary, nil
}
