// Package portfolio stores user holdings and prices them into risk positions.
package portfolio

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/aristath/riskdash/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrHoldingNotFound is returned when a holding does not exist for the user.
var ErrHoldingNotFound = errors.New("holding not found")

// Holding is a user's position in one instrument, priced at its last known unit price.
type Holding struct {
	ID               string            `json:"id"`
	UserID           string            `json:"user_id"`
	AssetClass       domain.AssetClass `json:"asset_class"`
	Identifier       string            `json:"identifier"`
	Quantity         float64           `json:"quantity"`
	LastPrice        float64           `json:"last_price"`
	ModifiedDuration *float64          `json:"modified_duration,omitempty"`
	Convexity        *float64          `json:"convexity,omitempty"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// CurrentValue is quantity times last price.
func (h Holding) CurrentValue() float64 {
	return h.Quantity * h.LastPrice
}

// Validate checks the fields a caller can supply.
func (h Holding) Validate() error {
	if h.UserID == "" {
		return &domain.ValidationError{Field: "user_id", Reason: "must not be empty"}
	}
	if !h.AssetClass.Valid() {
		return &domain.ValidationError{Field: "asset_class", Reason: fmt.Sprintf("unknown asset class %q", h.AssetClass)}
	}
	if h.Identifier == "" {
		return &domain.ValidationError{Field: "identifier", Reason: "must not be empty"}
	}
	if math.IsNaN(h.Quantity) || math.IsInf(h.Quantity, 0) || h.Quantity < 0 {
		return &domain.ValidationError{Field: "quantity", Reason: "must be a non-negative number"}
	}
	if math.IsNaN(h.LastPrice) || math.IsInf(h.LastPrice, 0) || h.LastPrice < 0 {
		return &domain.ValidationError{Field: "last_price", Reason: "must be a non-negative number"}
	}
	return nil
}

// ToPositions prices holdings into positions for risk evaluation.
func ToPositions(holdings []Holding) []domain.Position {
	positions := make([]domain.Position, 0, len(holdings))
	for _, h := range holdings {
		positions = append(positions, domain.Position{
			AssetClass:       h.AssetClass,
			Identifier:       h.Identifier,
			Quantity:         h.Quantity,
			CurrentValue:     h.CurrentValue(),
			ModifiedDuration: h.ModifiedDuration,
			Convexity:        h.Convexity,
		})
	}
	return positions
}

// RepositoryInterface is the holdings contract used by handlers and jobs.
type RepositoryInterface interface {
	GetAll(userID string) ([]Holding, error)
	Upsert(h Holding) (Holding, error)
	Delete(userID, id string) error
	UserIDs() ([]string, error)
}

// Repository handles holdings in portfolio.db
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new holdings repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "holdings").Logger(),
	}
}

// GetAll returns the user's holdings ordered by asset class and identifier.
func (r *Repository) GetAll(userID string) ([]Holding, error) {
	rows, err := r.db.Query(`SELECT id, user_id, asset_class, identifier, quantity, last_price,
		modified_duration, convexity, updated_at
		FROM holdings WHERE user_id = ?
		ORDER BY asset_class, identifier`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	holdings := []Holding{}
	for rows.Next() {
		var (
			h         Holding
			class     string
			duration  sql.NullFloat64
			convexity sql.NullFloat64
			updatedAt int64
		)
		if err := rows.Scan(&h.ID, &h.UserID, &class, &h.Identifier, &h.Quantity, &h.LastPrice,
			&duration, &convexity, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		h.AssetClass = domain.AssetClass(class)
		if duration.Valid {
			h.ModifiedDuration = &duration.Float64
		}
		if convexity.Valid {
			h.Convexity = &convexity.Float64
		}
		h.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		holdings = append(holdings, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings: %w", err)
	}

	return holdings, nil
}

// Upsert inserts a holding or updates the existing one for the same
// user, asset class and identifier. The stored holding is returned.
func (r *Repository) Upsert(h Holding) (Holding, error) {
	if err := h.Validate(); err != nil {
		return Holding{}, err
	}
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	h.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	_, err := r.db.Exec(`INSERT INTO holdings
		(id, user_id, asset_class, identifier, quantity, last_price, modified_duration, convexity, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, asset_class, identifier) DO UPDATE SET
			quantity = excluded.quantity,
			last_price = excluded.last_price,
			modified_duration = excluded.modified_duration,
			convexity = excluded.convexity,
			updated_at = excluded.updated_at`,
		h.ID, h.UserID, string(h.AssetClass), h.Identifier, h.Quantity, h.LastPrice,
		nullable(h.ModifiedDuration), nullable(h.Convexity), h.UpdatedAt.Unix(),
	)
	if err != nil {
		return Holding{}, fmt.Errorf("failed to upsert holding: %w", err)
	}

	// The id of an existing row wins over a freshly generated one
	err = r.db.QueryRow(`SELECT id FROM holdings WHERE user_id = ? AND asset_class = ? AND identifier = ?`,
		h.UserID, string(h.AssetClass), h.Identifier).Scan(&h.ID)
	if err != nil {
		return Holding{}, fmt.Errorf("failed to read holding id: %w", err)
	}

	r.log.Debug().
		Str("user_id", h.UserID).
		Str("identifier", h.Identifier).
		Msg("Holding upserted")

	return h, nil
}

// Delete removes one of the user's holdings.
func (r *Repository) Delete(userID, id string) error {
	result, err := r.db.Exec("DELETE FROM holdings WHERE user_id = ? AND id = ?", userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete holding: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrHoldingNotFound
	}
	return nil
}

// UserIDs lists every user with at least one holding.
func (r *Repository) UserIDs() ([]string, error) {
	rows, err := r.db.Query("SELECT DISTINCT user_id FROM holdings ORDER BY user_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func nullable(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
