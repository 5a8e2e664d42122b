package history

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/aristath/riskdash/internal/database"
	"github.com/aristath/riskdash/internal/domain"
)

// Store persists the last fetched series per instrument in the history database.
// It is read only when every upstream and cache layer has failed.
type Store struct {
	db *sql.DB
}

// NewStore creates a store over the history database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Save replaces the stored series for an instrument.
// Dates are stored as unix seconds at UTC midnight. Missing values are stored as NULL.
func (s *Store) Save(ctx context.Context, class domain.AssetClass, identifier string, obs []domain.PriceObservation) error {
	return database.WithTransaction(s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM observations WHERE asset_class = ? AND identifier = ?",
			string(class), identifier,
		); err != nil {
			return fmt.Errorf("failed to clear observations: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx,
			"INSERT OR REPLACE INTO observations (asset_class, identifier, date, value) VALUES (?, ?, ?, ?)",
		)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, o := range obs {
			var value sql.NullFloat64
			if !math.IsNaN(o.Value) && !math.IsInf(o.Value, 0) {
				value = sql.NullFloat64{Float64: o.Value, Valid: true}
			}
			if _, err := stmt.ExecContext(ctx, string(class), identifier, dayUnix(o.Date), value); err != nil {
				return fmt.Errorf("failed to insert observation: %w", err)
			}
		}
		return nil
	})
}

// Load returns the last limit observations for an instrument in ascending date order.
// A limit <= 0 returns everything stored.
func (s *Store) Load(ctx context.Context, class domain.AssetClass, identifier string, limit int) ([]domain.PriceObservation, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT date, value FROM (
			SELECT date, value FROM observations
			WHERE asset_class = ? AND identifier = ?
			ORDER BY date DESC
			LIMIT ?
		) ORDER BY date ASC`,
		string(class), identifier, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}
	defer rows.Close()

	obs := []domain.PriceObservation{}
	for rows.Next() {
		var (
			date  int64
			value sql.NullFloat64
		)
		if err := rows.Scan(&date, &value); err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}
		o := domain.PriceObservation{Date: time.Unix(date, 0).UTC(), Value: math.NaN()}
		if value.Valid {
			o.Value = value.Float64
		}
		obs = append(obs, o)
	}

	return obs, rows.Err()
}

func dayUnix(t time.Time) int64 {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).Unix()
}
