package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/text/encoding/charmap"

	"pharmapos/m/domain"
	"pharmapos/m/internal/logging"
)

// LoadDrugs ingests the catalogue CSV into the drugs table, ignoring
// duplicates. A missing file is not an error.
func LoadDrugs(ctx context.Context, db *sqlx.DB, csvPath, encoding string) (int, error) {
	file, err := os.Open(csvPath)
	if errors.Is(err, os.ErrNotExist) {
		logging.Info("no drug catalogue to seed", "path", csvPath)
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("open drug catalogue %s: %w", csvPath, err)
	}
	defer file.Close()

	rows, err := LoadDrugsFrom(ctx, db, file, encoding)
	if err != nil {
		return rows, err
	}
	logging.Info("seeded drug catalogue", "path", csvPath, "rows", rows)
	return rows, nil
}

// LoadDrugsFrom reads rows of name,generic_name,category,strength,form after a
// header line. Rows without a name or form are skipped.
func LoadDrugsFrom(ctx context.Context, db *sqlx.DB, r io.Reader, encoding string) (int, error) {
	switch strings.ToLower(encoding) {
	case "", "utf-8", "utf8":
	case "windows-1252", "cp1252":
		r = charmap.Windows1252.NewDecoder().Reader(r)
	default:
		return 0, fmt.Errorf("unsupported catalogue encoding %q", encoding)
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	if _, err := reader.Read(); err != nil {
		return 0, fmt.Errorf("read drug catalogue header: %w", err)
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("start drug catalogue transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, tx.Rebind(`INSERT INTO drugs (name, generic_name, category, strength, form, created_at, updated_at)
                VALUES (?, ?, ?, ?, ?, ?, ?) ON CONFLICT (name, strength, form) DO NOTHING`))
	if err != nil {
		return 0, fmt.Errorf("prepare drug insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	rows := 0
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			logging.Warn("unable to read drug row", "line", line, "error", err)
			continue
		}
		if len(record) < 5 {
			continue
		}
		d := domain.Drug{Name: record[0], GenericName: record[1], Category: record[2], Strength: record[3], Form: record[4]}
		d.Normalize()
		if d.Validate() != nil {
			continue
		}

		res, err := stmt.ExecContext(ctx, d.Name, d.GenericName, d.Category, d.Strength, d.Form, now, now)
		if err != nil {
			return rows, fmt.Errorf("insert drug %s: %w", d.Name, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			rows += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit drug catalogue: %w", err)
	}
	return rows, nil
}
