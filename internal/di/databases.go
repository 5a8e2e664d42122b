package di

import (
	"fmt"
	"path/filepath"

	"github.com/aristath/riskdash/internal/config"
	"github.com/aristath/riskdash/internal/database"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens the three databases and applies their schemas
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	databases := []struct {
		name    string
		profile database.DatabaseProfile
		target  **database.DB
	}{
		// User-entered holdings and alert history need maximum durability
		{database.NamePortfolio, database.ProfileLedger, &container.PortfolioDB},
		{database.NameHistory, database.ProfileStandard, &container.HistoryDB},
		{database.NameCache, database.ProfileCache, &container.CacheDB},
	}

	for _, d := range databases {
		db, err := database.New(database.Config{
			Path:    filepath.Join(cfg.DataDir, d.name+".db"),
			Profile: d.profile,
			Name:    d.name,
		})
		if err != nil {
			_ = container.Close()
			return nil, fmt.Errorf("failed to initialize %s database: %w", d.name, err)
		}
		*d.target = db

		if err := db.Migrate(); err != nil {
			_ = container.Close()
			return nil, fmt.Errorf("failed to migrate %s database: %w", d.name, err)
		}
	}

	log.Info().Str("data_dir", cfg.DataDir).Msg("Databases initialized")
	return container, nil
}
