package datasource

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"raindrop-charts/src/helpers"
	"raindrop-charts/src/interfaces"
	"raindrop-charts/src/logger"
	"raindrop-charts/src/models"
)

// MultiSourceManager tries its sources in registration order and returns the
// first non-empty bar set.
type MultiSourceManager struct {
	Sources map[string]interfaces.IDataSource
	Order   []string
	Logger  *logger.Logger
	mu      sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewMultiSourceManager(sources []interfaces.IDataSource, log *logger.Logger) *MultiSourceManager {
	m := &MultiSourceManager{
		Sources: make(map[string]interfaces.IDataSource),
		Logger:  log,
	}

	for _, s := range sources {
		if _, exists := m.Sources[s.Name()]; exists {
			log.Warning("Duplicate source name %s ignored", s.Name())
			continue
		}
		m.Sources[s.Name()] = s
		m.Order = append(m.Order, s.Name())
	}

	return m
}

// -----------------------------------------------------------------------------

// AddSource appends a source at the end of the fallback order
func (m *MultiSourceManager) AddSource(source interfaces.IDataSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := source.Name()
	if _, exists := m.Sources[name]; exists {
		return fmt.Errorf("source %s already exists", name)
	}

	m.Sources[name] = source
	m.Order = append(m.Order, name)
	m.Logger.Info("Added source: %s", name)
	return nil
}

// -----------------------------------------------------------------------------

// RemoveSource removes a source from the fallback order
func (m *MultiSourceManager) RemoveSource(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.Sources[name]; !exists {
		return fmt.Errorf("source %s not found", name)
	}

	delete(m.Sources, name)
	for i, n := range m.Order {
		if n == name {
			m.Order = append(m.Order[:i:i], m.Order[i+1:]...)
			break
		}
	}
	m.Logger.Info("Removed source: %s", name)
	return nil
}

// -----------------------------------------------------------------------------

// GetSource retrieves a source by name
func (m *MultiSourceManager) GetSource(name string) (interfaces.IDataSource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	source, exists := m.Sources[name]
	if !exists {
		return nil, fmt.Errorf("source %s not found", name)
	}
	return source, nil
}

// -----------------------------------------------------------------------------

// GetAllSources returns the sources in fallback order
func (m *MultiSourceManager) GetAllSources() []interfaces.IDataSource {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]interfaces.IDataSource, 0, len(m.Order))
	for _, name := range m.Order {
		list = append(list, m.Sources[name])
	}
	return list
}

// -----------------------------------------------------------------------------

// Names returns the source names in fallback order
func (m *MultiSourceManager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.Order...)
}

// -----------------------------------------------------------------------------

// Name returns "MultiSourceManager"
func (m *MultiSourceManager) Name() string {
	return "MultiSourceManager"
}

// -----------------------------------------------------------------------------

// FetchBars asks each source in turn. A source that fails or has no bars
// hands over to the next one. The joined errors are returned only when no
// source produced bars and at least one failed.
func (m *MultiSourceManager) FetchBars(ctx context.Context, req models.MBarRequest) ([]models.MBar, error) {
	sources := m.GetAllSources()
	if len(sources) == 0 {
		return nil, helpers.NewConfigurationError("no data sources configured")
	}

	var errs []error
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		bars, err := src.FetchBars(ctx, req)
		if err != nil {
			m.Logger.Error("Source %s failed for %s: %v", src.Name(), req.Symbol, err)
			errs = append(errs, err)
			continue
		}
		if len(bars) == 0 {
			m.Logger.Debug("Source %s has no bars for %s", src.Name(), req.Symbol)
			continue
		}
		return bars, nil
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return nil, nil
}
