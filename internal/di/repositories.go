package di

import (
	"github.com/aristath/riskdash/internal/clientdata"
	"github.com/aristath/riskdash/internal/modules/alerts"
	"github.com/aristath/riskdash/internal/modules/history"
	"github.com/aristath/riskdash/internal/modules/portfolio"
	"github.com/rs/zerolog"
)

// InitializeRepositories creates every repository on top of the open databases
func InitializeRepositories(container *Container, log zerolog.Logger) {
	container.ClientDataRepo = clientdata.NewRepository(container.CacheDB.Conn())
	container.HoldingsRepo = portfolio.NewRepository(container.PortfolioDB.Conn(), log)
	container.AlertsRepo = alerts.NewRepository(container.PortfolioDB.Conn(), log)
	container.HistoryStore = history.NewStore(container.HistoryDB.Conn())
}
