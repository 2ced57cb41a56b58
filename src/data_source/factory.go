package datasource

import (
	"raindrop-charts/src/data_source/file"
	"raindrop-charts/src/data_source/yahoo"
	"raindrop-charts/src/helpers"
	"raindrop-charts/src/interfaces"
	"raindrop-charts/src/models"
	"raindrop-charts/src/utils"
)

// NewSource builds the acquisition collaborator described by cfg.
func NewSource(cfg models.MSourceConfig, netMgr interfaces.INetworkManager, scheduler *utils.MarketScheduler) (interfaces.IDataSource, error) {
	switch cfg.Type {
	case "yahoo":
		if netMgr == nil {
			return nil, helpers.NewConfigurationError("source '%s' needs a network manager", cfg.Name)
		}
		return yahoo.NewYahooFinanceSource(cfg, netMgr), nil
	case "file":
		if cfg.Dir == "" {
			return nil, helpers.NewConfigurationError("file source '%s' must have a dir", cfg.Name)
		}
		return file.NewFileSource(cfg, scheduler), nil
	default:
		return nil, helpers.NewConfigurationError("unsupported source type '%s'", cfg.Type)
	}
}

// -----------------------------------------------------------------------------

// SourceType names the kind of a source for status listings.
func SourceType(src interfaces.IDataSource) string {
	switch src.(type) {
	case *yahoo.YahooFinanceSource:
		return "yahoo"
	case *file.FileSource:
		return "file"
	default:
		return "unknown"
	}
}
