package migrations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmapos/m/internal/database"
)

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := database.Connect(ctx, database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Run(ctx, db))
	require.NoError(t, Run(ctx, db))

	var tables []string
	require.NoError(t, db.Select(&tables, `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`))
	assert.Equal(t, []string{"customers", "drugs", "inventory", "prescription_items", "prescriptions", "sales", "stores", "users"}, tables)
}

func TestInventoryQuantityCannotGoNegative(t *testing.T) {
	ctx := context.Background()
	db, err := database.Connect(ctx, database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, Run(ctx, db))

	_, err = db.Exec(`INSERT INTO stores (name, created_at, updated_at) VALUES ('Main', '2026-01-01', '2026-01-01')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO drugs (name, form, created_at, updated_at) VALUES ('Paracetamol', 'tablet', '2026-01-01', '2026-01-01')`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO inventory (drug_id, store_id, quantity, selling_price, created_at, updated_at) VALUES (1, 1, -1, 1, '2026-01-01', '2026-01-01')`)
	assert.Error(t, err)
}
