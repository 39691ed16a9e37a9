package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

func init() {
	goose.AddMigrationContext(upStageFiberLoss, downStageFiberLoss)
}

// upStageFiberLoss stores the per-stage fiber attenuation and rewrites ratio labels imported
// with ':' separators ("10:90") into the catalog's '/' form. Reversed labels are left alone;
// they are resolved, with a warning, when read.
func upStageFiberLoss(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `ALTER TABLE coupler_stage ADD COLUMN fiber_loss_db_per_km REAL NOT NULL DEFAULT 0.2`)
	if err != nil {
		return fmt.Errorf("adding fiber loss column : %w", err)
	}

	rows, err := tx.QueryContext(ctx, `SELECT id, coupler_ratio FROM coupler_stage WHERE coupler_ratio LIKE '%:%'`)
	if err != nil {
		return fmt.Errorf("getting colon separated ratios: %w", err)
	}
	defer rows.Close()

	updates := make(map[int64]string)
	for rows.Next() {
		var id int64
		var ratio string
		if err := rows.Scan(&id, &ratio); err != nil {
			return fmt.Errorf("scanning row: %w", err)
		}
		updates[id] = strings.ReplaceAll(strings.TrimSpace(ratio), ":", "/")
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating rows: %w", err)
	}

	for id, ratio := range updates {
		if _, err := tx.ExecContext(ctx, `UPDATE coupler_stage SET coupler_ratio = ? WHERE id = ?`, ratio, id); err != nil {
			return fmt.Errorf("updating row %d : %w", id, err)
		}
	}
	return nil
}

func downStageFiberLoss(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `ALTER TABLE coupler_stage DROP COLUMN fiber_loss_db_per_km`); err != nil {
		return fmt.Errorf("dropping fiber loss column for rollback: %w", err)
	}
	return nil
}
