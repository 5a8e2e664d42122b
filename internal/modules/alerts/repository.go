// Package alerts keeps the history of risk alerts raised for each user.
package alerts

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/aristath/riskdash/internal/database"
	"github.com/aristath/riskdash/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultListLimit caps List when the caller passes no limit.
const DefaultListLimit = 100

// Entry is one stored alert message.
type Entry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// RepositoryInterface is the alert history contract used by handlers and jobs.
type RepositoryInterface interface {
	Add(userID, message string) (Entry, error)
	AddAll(userID string, messages []string) error
	List(userID string, limit int) ([]Entry, error)
}

// Repository stores alerts in the alert_history table of portfolio.db
type Repository struct {
	db  *sql.DB
	now func() time.Time
	log zerolog.Logger
}

// NewRepository creates a new alert history repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		now: time.Now,
		log: log.With().Str("repo", "alert_history").Logger(),
	}
}

// Add stores a single alert.
func (r *Repository) Add(userID, message string) (Entry, error) {
	if err := validate(userID, message); err != nil {
		return Entry{}, err
	}

	e := Entry{
		ID:        uuid.New().String(),
		UserID:    userID,
		Message:   message,
		CreatedAt: r.now().UTC(),
	}

	if _, err := r.db.Exec(
		"INSERT INTO alert_history (id, user_id, message, created_at) VALUES (?, ?, ?, ?)",
		e.ID, e.UserID, e.Message, e.CreatedAt.UnixNano(),
	); err != nil {
		return Entry{}, fmt.Errorf("failed to insert alert: %w", err)
	}

	return e, nil
}

// AddAll stores every message from one evaluation in a single transaction.
func (r *Repository) AddAll(userID string, messages []string) error {
	if len(messages) == 0 {
		return nil
	}
	for _, m := range messages {
		if err := validate(userID, m); err != nil {
			return err
		}
	}

	createdAt := r.now().UTC().UnixNano()
	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare("INSERT INTO alert_history (id, user_id, message, created_at) VALUES (?, ?, ?, ?)")
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, m := range messages {
			if _, err := stmt.Exec(uuid.New().String(), userID, m, createdAt); err != nil {
				return fmt.Errorf("failed to insert alert: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.log.Info().
		Str("user_id", userID).
		Int("count", len(messages)).
		Msg("Stored risk alerts")

	return nil
}

// List returns the user's alerts newest first.
func (r *Repository) List(userID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := r.db.Query(`SELECT id, user_id, message, created_at FROM alert_history
		WHERE user_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e         Entry
			createdAt int64
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Message, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		e.CreatedAt = time.Unix(0, createdAt).UTC()
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

func validate(userID, message string) error {
	if userID == "" {
		return &domain.ValidationError{Field: "user_id", Reason: "must not be empty"}
	}
	if message == "" {
		return &domain.ValidationError{Field: "message", Reason: "must not be empty"}
	}
	return nil
}
