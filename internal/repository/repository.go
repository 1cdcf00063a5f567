// Package repository implements the departure history journal on PostgreSQL.
// It uses pgx directly (no ORM) for transparency.
package repository

import (
	"context"
	"fmt"

	"github.com/Shivanand-hulikatti/trainbot/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultListLimit bounds History queries that do not ask for a size.
const DefaultListLimit = 50

const schema = `
CREATE TABLE IF NOT EXISTS departures (
	id           UUID PRIMARY KEY,
	departure_id UUID        NOT NULL,
	destination  TEXT        NOT NULL,
	category     TEXT        NOT NULL,
	conductor    TEXT        NOT NULL,
	passengers   TEXT[]      NOT NULL,
	outcome      TEXT        NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL,
	closed_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS departures_closed_at_idx ON departures (closed_at DESC);`

// HistoryRepository records trains once they have left or been abandoned.
// Nothing here is ever read back into the station.
type HistoryRepository struct {
	db *pgxpool.Pool
}

// NewHistoryRepository constructs a HistoryRepository.
func NewHistoryRepository(db *pgxpool.Pool) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// EnsureSchema creates the departures table if it does not exist.
func (r *HistoryRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create departures schema: %w", err)
	}
	return nil
}

// Record inserts one closed train.
func (r *HistoryRepository) Record(ctx context.Context, rec model.HistoryRecord) error {
	passengers := rec.Passengers
	if passengers == nil {
		passengers = []string{}
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO departures (id, departure_id, destination, category, conductor, passengers, outcome, created_at, closed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.DepartureID, rec.Destination, rec.Category, rec.Conductor,
		passengers, rec.Outcome, rec.CreatedAt, rec.ClosedAt,
	)
	if err != nil {
		return fmt.Errorf("insert departure: %w", err)
	}
	return nil
}

// List returns the most recently closed trains, newest first.
func (r *HistoryRepository) List(ctx context.Context, limit int) ([]model.HistoryRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, departure_id, destination, category, conductor, passengers, outcome, created_at, closed_at
		 FROM departures
		 ORDER BY closed_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list departures: %w", err)
	}
	defer rows.Close()

	var records []model.HistoryRecord
	for rows.Next() {
		var rec model.HistoryRecord
		if err := rows.Scan(&rec.ID, &rec.DepartureID, &rec.Destination, &rec.Category, &rec.Conductor,
			&rec.Passengers, &rec.Outcome, &rec.CreatedAt, &rec.ClosedAt); err != nil {
			return nil, fmt.Errorf("scan departure: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
