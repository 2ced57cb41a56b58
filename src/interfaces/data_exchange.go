package interfaces

import (
	"context"

	"raindrop-charts/src/models"
)

// -----------------------------------------------------------------------------
// IChartService builds raindrop charts for the outer surfaces (HTTP, websocket, gRPC).
// -----------------------------------------------------------------------------

type IChartService interface {
	// -----------------------------------------------------------------------------
	// BuildChart fetches, aggregates and renders one chart.
	BuildChart(ctx context.Context, req models.MChartRequest) (*models.MChartResponse, error)

	// -----------------------------------------------------------------------------
	// Sources lists the acquisition sources in fallback order.
	Sources() []string
}

// -----------------------------------------------------------------------------
// IDataExchanger pushes chart updates to connected listeners.
// -----------------------------------------------------------------------------

type IDataExchanger interface {
	// -----------------------------------------------------------------------------
	// Start the server
	Start() error

	// -----------------------------------------------------------------------------
	// Stop the server gracefully
	Stop(ctx context.Context) error
}
