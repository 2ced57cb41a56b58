package main

import (
	"fmt"

	"raindrop-charts/src/analysis"
	"raindrop-charts/src/config"
	datasource "raindrop-charts/src/data_source"
	"raindrop-charts/src/interfaces"
	"raindrop-charts/src/logger"
	"raindrop-charts/src/models"
	"raindrop-charts/src/network"
	"raindrop-charts/src/utils"
)

// -----------------------------------------------------------------------------

// setupNetwork initializes the network manager
func setupNetwork(cfg *models.MConfig) interfaces.INetworkManager {
	return network.NewAsyncNetworkManager(cfg.Network, logger.NewLogger("NetworkManager"))
}

// -----------------------------------------------------------------------------

// setupDataSources builds every configured source and wraps them in a
// fallback manager
func setupDataSources(cfg *models.MConfig, scheduler *utils.MarketScheduler, netMgr interfaces.INetworkManager, appLogger *logger.Logger) (*datasource.MultiSourceManager, error) {
	appLogger.Info("Initializing data sources...")

	var sources []interfaces.IDataSource
	for _, srcCfg := range cfg.DataSource.Sources {
		src, err := datasource.NewSource(srcCfg, netMgr, scheduler)
		if err != nil {
			appLogger.Warning("Skipping source %s: %v", srcCfg.Name, err)
			continue
		}
		sources = append(sources, src)
		appLogger.Info("Added source: %s (%s)", srcCfg.Name, srcCfg.Type)
	}

	if len(sources) == 0 {
		appLogger.Critical("No valid data sources initialized.")
		return nil, fmt.Errorf("no valid data sources")
	}

	appLogger.Info("Initializing MultiSourceManager for %d sources.", len(sources))
	return datasource.NewMultiSourceManager(sources, logger.NewLogger("MultiSourceManager")), nil
}

// -----------------------------------------------------------------------------

// setupAnalysis initializes the raindrop facade
func setupAnalysis(cfg *models.MConfig, source interfaces.IDataSource, scheduler *utils.MarketScheduler) *analysis.RaindropFacade {
	return analysis.NewRaindropFacade(cfg.Chart, source, scheduler, logger.NewLogger("Analysis"))
}

// -----------------------------------------------------------------------------

// setupCatalog loads the company list offered by the dashboard. A broken
// tickers file leaves the dashboard with the inline entries only.
func setupCatalog(cfg *config.Config, appLogger *logger.Logger) []models.MTicker {
	catalog, err := cfg.Catalog()
	if err != nil {
		appLogger.Warning("Failed to load tickers: %v", err)
	}
	appLogger.Info("Loaded %d tickers", len(catalog))
	return catalog
}
