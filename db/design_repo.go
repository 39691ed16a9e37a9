package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/fiberonix/netdesign/codec"
	"github.com/fiberonix/netdesign/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var _ domain.DesignRepository = (*Repository)(nil)

// dbDesign represents a design as stored in the database.
type dbDesign struct {
	ID          string    `db:"id"`          // UUIDv7 assigned on creation.
	Name        string    `db:"name"`        // Design name.
	Description string    `db:"description"` // Free-form notes.
	InputPower  float64   `db:"input_power"` // Launch power in dBm.
	Status      string    `db:"status"`      // Active, Completed or Draft.
	CreatedAt   time.Time `db:"created_at"`  // Creation time.
	UpdatedAt   time.Time `db:"updated_at"`  // Last update time.
}

// dbStage represents one coupler stage row. Position orders stages within a design.
type dbStage struct {
	ID               int64   `db:"id"`
	DesignID         string  `db:"design_id"`
	Position         int     `db:"position"`
	CouplerRatio     string  `db:"coupler_ratio"`
	TapKm            float64 `db:"tap_km"`
	TapOutputDBm     float64 `db:"tap_output_dbm"`
	ThroughputKm     float64 `db:"throughput_km"`
	ThroughOutputDBm float64 `db:"through_output_dbm"`
	FiberLossDBPerKm float64 `db:"fiber_loss_db_per_km"`
}

// toDomainChain converts a design row and its ordered stage rows to a domain.Chain.
func (repo *Repository) toDomainChain(d *dbDesign, rows []*dbStage) *domain.Chain {
	stages := make([]*domain.Stage, len(rows))
	for i, row := range rows {
		s := repo.decoder.DecodeStage(codec.StageRecord{
			ID:           codec.ID(strconv.FormatInt(row.ID, 10)),
			CouplerRatio: row.CouplerRatio,
			TapKm:        codec.Number(row.TapKm),
			ThroughputKm: codec.Number(row.ThroughputKm),
		})
		s.FiberLossDBPerKm = row.FiberLossDBPerKm
		stages[i] = s
	}
	c := domain.RestoreChain(d.ID, d.Name, d.CreatedAt, d.InputPower, domain.ParseStatus(d.Status), stages)
	c.Description = d.Description
	return c
}

// ListDesigns retrieves all designs, oldest first.
func (repo *Repository) ListDesigns(ctx context.Context) ([]*domain.Chain, error) {
	var designs []*dbDesign
	err := repo.dbConn.SelectContext(ctx, &designs, `SELECT * FROM design ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("retrieving designs: %w", err)
	}

	var stages []*dbStage
	err = repo.dbConn.SelectContext(ctx, &stages, `SELECT * FROM coupler_stage ORDER BY design_id, position`)
	if err != nil {
		return nil, fmt.Errorf("retrieving stages: %w", err)
	}

	byDesign := make(map[string][]*dbStage, len(designs))
	for _, s := range stages {
		byDesign[s.DesignID] = append(byDesign[s.DesignID], s)
	}

	chains := make([]*domain.Chain, len(designs))
	for i, d := range designs {
		chains[i] = repo.toDomainChain(d, byDesign[d.ID])
	}
	return chains, nil
}

// GetDesign retrieves a design and its stages.
func (repo *Repository) GetDesign(ctx context.Context, id string) (*domain.Chain, error) {
	var design dbDesign
	err := repo.dbConn.GetContext(ctx, &design, `SELECT * FROM design WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrDesignNotFound
		}
		return nil, fmt.Errorf("getting design %s: %w", id, err)
	}

	var stages []*dbStage
	err = repo.dbConn.SelectContext(ctx, &stages, `SELECT * FROM coupler_stage WHERE design_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("getting stages of design %s: %w", id, err)
	}

	return repo.toDomainChain(&design, stages), nil
}

// CreateDesign stores a new design and returns its generated id. Stage ids are assigned by the database.
func (repo *Repository) CreateDesign(ctx context.Context, chain *domain.Chain) (string, error) {
	designUUID, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generating uuid: %w", err)
	}
	id := designUUID.String()
	now := time.Now().UTC()

	err = repo.withTx(ctx, func(tx *sqlx.Tx) error {
		query := `INSERT INTO design(id, name, description, input_power, status, created_at, updated_at)
		          VALUES (?, ?, ?, ?, ?, ?, ?)`
		_, err := tx.ExecContext(ctx, query, id, chain.Name, chain.Description, chain.InitialInputPowerDBm(), string(chain.Status), now, now)
		if err != nil {
			return fmt.Errorf("creating new design %s: %w", chain.Name, err)
		}
		return insertStages(ctx, tx, id, chain.Stages(), false)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// UpdateDesign replaces the stored fields and stages of chain.ID. Stage ids are kept when present.
func (repo *Repository) UpdateDesign(ctx context.Context, chain *domain.Chain) error {
	if chain.ID == "" {
		return fmt.Errorf("updating design %s: %w", chain.Name, domain.ErrMissingDesignID)
	}

	return repo.withTx(ctx, func(tx *sqlx.Tx) error {
		query := `UPDATE design SET name = ?, description = ?, input_power = ?, status = ?, updated_at = ? WHERE id = ?`
		result, err := tx.ExecContext(ctx, query, chain.Name, chain.Description, chain.InitialInputPowerDBm(), string(chain.Status), time.Now().UTC(), chain.ID)
		if err != nil {
			return fmt.Errorf("updating design %s: %w", chain.ID, err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("fetching rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return domain.ErrDesignNotFound
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM coupler_stage WHERE design_id = ?`, chain.ID); err != nil {
			return fmt.Errorf("clearing stages of design %s: %w", chain.ID, err)
		}
		return insertStages(ctx, tx, chain.ID, chain.Stages(), true)
	})
}

// DeleteDesign removes a design; its stages are removed by the foreign key cascade.
func (repo *Repository) DeleteDesign(ctx context.Context, id string) error {
	result, err := repo.dbConn.ExecContext(ctx, `DELETE FROM design WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting design %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking deletion rows affected for %s: %w", id, err)
	}

	if rowsAffected == 0 {
		return domain.ErrDesignNotFound
	}
	return nil
}

// insertStages writes stages in propagation order. Computed outputs are stored as reported
// values only; reads always recompute them.
func insertStages(ctx context.Context, tx *sqlx.Tx, designID string, stages []*domain.Stage, keepIDs bool) error {
	query := `INSERT INTO coupler_stage(id, design_id, position, coupler_ratio, tap_km, tap_output_dbm, throughput_km, through_output_dbm, fiber_loss_db_per_km)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for i, s := range stages {
		var id sql.NullInt64
		if keepIDs && s.ID != nil {
			id = sql.NullInt64{Int64: *s.ID, Valid: true}
		}
		_, err := tx.ExecContext(ctx, query, id, designID, i, s.Ratio, s.TapDistanceKm, s.TapOutput(), s.ThroughDistanceKm, s.ThroughOutput(), s.FiberLossDBPerKm)
		if err != nil {
			return fmt.Errorf("inserting stage %d of design %s: %w", i, designID, err)
		}
	}
	return nil
}

func (repo *Repository) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := repo.dbConn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
