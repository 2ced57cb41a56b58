package interfaces

import (
	"context"

	"raindrop-charts/src/models"
)

// -----------------------------------------------------------------------------
// IDataSource interface for fetching intraday bars from external sources.
// -----------------------------------------------------------------------------

type IDataSource interface {

	// Name returns the unique identifier of the source
	Name() string

	// -----------------------------------------------------------------------------

	// FetchBars retrieves the bars of req.Symbol with timestamps in
	// [req.Start, req.End) at req.Interval. An empty result is not an error.
	FetchBars(ctx context.Context, req models.MBarRequest) ([]models.MBar, error)
}
