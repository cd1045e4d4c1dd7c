package migrations

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Column types that differ between SQLite and PostgreSQL.
var dialects = map[string]*strings.Replacer{
	"sqlite": strings.NewReplacer(
		"{{pk}}", "INTEGER PRIMARY KEY AUTOINCREMENT",
		"{{ts}}", "TIMESTAMP",
	),
	"pgx": strings.NewReplacer(
		"{{pk}}", "BIGSERIAL PRIMARY KEY",
		"{{ts}}", "TIMESTAMPTZ",
	),
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS stores (
            id {{pk}},
            name TEXT NOT NULL,
            location TEXT NOT NULL DEFAULT '',
            address TEXT NOT NULL DEFAULT '',
            phone TEXT NOT NULL DEFAULT '',
            email TEXT NOT NULL DEFAULT '',
            active BOOLEAN NOT NULL DEFAULT TRUE,
            created_at {{ts}} NOT NULL,
            updated_at {{ts}} NOT NULL
        );`,
	`CREATE TABLE IF NOT EXISTS users (
            id {{pk}},
            username TEXT NOT NULL,
            email TEXT NOT NULL UNIQUE,
            password TEXT NOT NULL,
            role TEXT NOT NULL,
            store_id INTEGER REFERENCES stores(id),
            active BOOLEAN NOT NULL DEFAULT TRUE,
            created_at {{ts}} NOT NULL
        );`,
	`CREATE TABLE IF NOT EXISTS drugs (
            id {{pk}},
            name TEXT NOT NULL,
            generic_name TEXT NOT NULL DEFAULT '',
            category TEXT NOT NULL DEFAULT '',
            strength TEXT NOT NULL DEFAULT '',
            form TEXT NOT NULL,
            created_at {{ts}} NOT NULL,
            updated_at {{ts}} NOT NULL,
            deleted_at {{ts}},
            UNIQUE(name, strength, form)
        );`,
	`CREATE TABLE IF NOT EXISTS inventory (
            id {{pk}},
            drug_id INTEGER NOT NULL REFERENCES drugs(id),
            store_id INTEGER NOT NULL REFERENCES stores(id),
            quantity INTEGER NOT NULL CHECK (quantity >= 0),
            selling_price NUMERIC(12,2) NOT NULL CHECK (selling_price >= 0),
            version INTEGER NOT NULL DEFAULT 0,
            created_at {{ts}} NOT NULL,
            updated_at {{ts}} NOT NULL,
            UNIQUE(drug_id, store_id)
        );`,
	`CREATE TABLE IF NOT EXISTS customers (
            id {{pk}},
            name TEXT NOT NULL,
            phone TEXT NOT NULL UNIQUE,
            email TEXT,
            address TEXT,
            date_of_birth {{ts}},
            created_at {{ts}} NOT NULL,
            updated_at {{ts}} NOT NULL,
            deleted_at {{ts}}
        );`,
	`CREATE TABLE IF NOT EXISTS sales (
            id {{pk}},
            drug_id INTEGER NOT NULL REFERENCES drugs(id),
            store_id INTEGER NOT NULL REFERENCES stores(id),
            inventory_id INTEGER NOT NULL REFERENCES inventory(id),
            customer_id INTEGER REFERENCES customers(id),
            cashier_id INTEGER NOT NULL REFERENCES users(id),
            quantity INTEGER NOT NULL CHECK (quantity > 0),
            unit_price NUMERIC(12,2) NOT NULL,
            discount NUMERIC(5,2) NOT NULL DEFAULT 0,
            subtotal NUMERIC(12,2) NOT NULL,
            discount_amount NUMERIC(12,2) NOT NULL,
            total_amount NUMERIC(12,2) NOT NULL,
            payment_method TEXT NOT NULL,
            status TEXT NOT NULL,
            idempotency_key TEXT UNIQUE,
            created_at {{ts}} NOT NULL,
            updated_at {{ts}} NOT NULL
        );`,
	`CREATE INDEX IF NOT EXISTS idx_sales_store_created ON sales (store_id, created_at);`,
	`CREATE TABLE IF NOT EXISTS prescriptions (
            id {{pk}},
            patient_id INTEGER NOT NULL REFERENCES customers(id),
            doctor_id INTEGER NOT NULL REFERENCES users(id),
            store_id INTEGER NOT NULL REFERENCES stores(id),
            diagnosis TEXT NOT NULL DEFAULT '',
            prescribed_date {{ts}} NOT NULL,
            expiry_date {{ts}} NOT NULL,
            refills INTEGER NOT NULL DEFAULT 0 CHECK (refills >= 0),
            status TEXT NOT NULL,
            created_at {{ts}} NOT NULL,
            updated_at {{ts}} NOT NULL,
            CHECK (expiry_date > prescribed_date)
        );`,
	`CREATE TABLE IF NOT EXISTS prescription_items (
            id {{pk}},
            prescription_id INTEGER NOT NULL REFERENCES prescriptions(id),
            position INTEGER NOT NULL,
            drug_id INTEGER NOT NULL REFERENCES drugs(id),
            dosage TEXT NOT NULL,
            frequency TEXT NOT NULL DEFAULT '',
            duration TEXT NOT NULL DEFAULT '',
            quantity INTEGER NOT NULL CHECK (quantity > 0),
            instructions TEXT NOT NULL DEFAULT '',
            UNIQUE(prescription_id, position)
        );`,
}

// Run creates the database schema for the driver db was opened with.
func Run(ctx context.Context, db *sqlx.DB) error {
	dialect, ok := dialects[db.DriverName()]
	if !ok {
		return fmt.Errorf("no schema for driver %q", db.DriverName())
	}

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, dialect.Replace(stmt)); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
