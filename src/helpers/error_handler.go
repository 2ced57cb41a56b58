package helpers

import (
	"errors"
	"fmt"
	"time"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type RaindropError struct {
	Message string
	Cause   error
}

func (e *RaindropError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *RaindropError) Unwrap() error {
	return e.Cause
}

// Distinct error types so callers can classify with errors.As
type ConfigurationError struct{ RaindropError }
type NetworkError struct{ RaindropError }
type DataSourceError struct{ RaindropError }
type ValidationError struct{ RaindropError }
type MissingParameterError struct{ RaindropError }
type NoDataError struct{ RaindropError }
type AggregationEmptyError struct{ RaindropError }
type IncompleteBinError struct{ RaindropError }

// -----------------------------------------------------------------------------
// Constructors
// -----------------------------------------------------------------------------

func NewMissingParameterError(name string) error {
	return &MissingParameterError{RaindropError{Message: fmt.Sprintf("invalid parameters: %s is required", name)}}
}

func NewValidationError(format string, args ...interface{}) error {
	return &ValidationError{RaindropError{Message: "invalid parameters: " + fmt.Sprintf(format, args...)}}
}

func NewNoDataError(symbol string, start, end time.Time, cause error) error {
	return &NoDataError{RaindropError{
		Message: fmt.Sprintf("no data for %s between %s and %s",
			symbol, start.Format(time.DateOnly), end.Format(time.DateOnly)),
		Cause: cause,
	}}
}

func NewAggregationEmptyError(symbol string, binWidth time.Duration) error {
	return &AggregationEmptyError{RaindropError{
		Message: fmt.Sprintf("no bin with positive volume for %s at bin width %s, try a different bin width or date range",
			symbol, binWidth),
	}}
}

func NewIncompleteBinError(start time.Time) error {
	return &IncompleteBinError{RaindropError{
		Message: fmt.Sprintf("bin starting %s has fewer than two traded halves", start.Format(time.DateTime)),
	}}
}

func NewDataSourceError(source string, cause error) error {
	return &DataSourceError{RaindropError{Message: fmt.Sprintf("source %s failed", source), Cause: cause}}
}

func NewNetworkError(message string, cause error) error {
	return &NetworkError{RaindropError{Message: message, Cause: cause}}
}

func NewConfigurationError(format string, args ...interface{}) error {
	return &ConfigurationError{RaindropError{Message: fmt.Sprintf(format, args...)}}
}

// -----------------------------------------------------------------------------
// Classification
// -----------------------------------------------------------------------------

// Error kinds reported by transport surfaces
const (
	KindMissingParameter = "missing_parameter"
	KindValidation       = "invalid_parameter"
	KindNoData           = "no_data"
	KindAggregationEmpty = "aggregation_empty"
	KindIncompleteBin    = "incomplete_bin"
	KindDataSource       = "data_source"
	KindNetwork          = "network"
	KindConfiguration    = "configuration"
	KindInternal         = "internal"
)

// ErrorKind returns a stable short name for err.
func ErrorKind(err error) string {
	var (
		missing    *MissingParameterError
		validation *ValidationError
		noData     *NoDataError
		empty      *AggregationEmptyError
		incomplete *IncompleteBinError
		network    *NetworkError
		source     *DataSourceError
		cfg        *ConfigurationError
	)

	// Most specific first: a DataSourceError may wrap a NetworkError.
	switch {
	case errors.As(err, &missing):
		return KindMissingParameter
	case errors.As(err, &validation):
		return KindValidation
	case errors.As(err, &noData):
		return KindNoData
	case errors.As(err, &empty):
		return KindAggregationEmpty
	case errors.As(err, &incomplete):
		return KindIncompleteBin
	case errors.As(err, &network):
		return KindNetwork
	case errors.As(err, &source):
		return KindDataSource
	case errors.As(err, &cfg):
		return KindConfiguration
	default:
		return KindInternal
	}
}

// IsParameterError reports whether err was caused by caller input.
func IsParameterError(err error) bool {
	kind := ErrorKind(err)
	return kind == KindMissingParameter || kind == KindValidation
}

// IsNotFound reports whether err means "nothing to chart".
func IsNotFound(err error) bool {
	kind := ErrorKind(err)
	return kind == KindNoData || kind == KindAggregationEmpty
}
