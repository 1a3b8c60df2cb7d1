package model

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Factory caches at most one live Service per provider id. It is explicit
// process-scoped state, passed to request handlers, never a package-level
// singleton.
//
// Factory is safe for concurrent use: the create path is serialized so two
// concurrent first calls for the same id cannot produce divergent handles.
// A cache hit returns the existing handle without re-checking that its
// configuration still matches the arguments; drift is ignored until the
// entry is evicted.
type Factory struct {
	mu           sync.Mutex
	services     map[int64]Service
	constructors map[Family]Constructor
	logger       *slog.Logger
}

// NewFactory creates a Factory with the built-in provider families
// registered. logger may be nil.
func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{
		services:     make(map[int64]Service),
		constructors: defaultConstructors(),
		logger:       logger,
	}
}

// RegisterFamily adds or replaces the constructor for a family. This is the
// single extensibility seam for new provider families.
func (f *Factory) RegisterFamily(family Family, ctor Constructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.constructors[Family(strings.ToLower(family.String()))] = ctor
}

// Get returns the cached Service for providerID, constructing and
// initializing one on first use. The family name is matched
// case-insensitively; unknown families fail with ErrUnknownFamily before
// any handle is constructed.
func (f *Factory) Get(ctx context.Context, providerID int64, family, apiKey string, config map[string]any) (Service, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if svc, ok := f.services[providerID]; ok {
		return svc, nil
	}

	svc, err := f.buildLocked(ctx, family, apiKey, config)
	if err != nil {
		return nil, err
	}

	f.services[providerID] = svc
	f.logger.Debug("model service created", "provider_id", providerID, "family", family)
	return svc, nil
}

// Probe constructs and initializes a Service without caching it. Provider
// registration uses it as a validation side effect before persisting the
// record.
func (f *Factory) Probe(ctx context.Context, family, apiKey string, config map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, err := f.buildLocked(ctx, family, apiKey, config)
	return err
}

// buildLocked resolves the family, constructs the service, and runs Init.
// Callers must hold f.mu.
func (f *Factory) buildLocked(ctx context.Context, family, apiKey string, config map[string]any) (Service, error) {
	ctor, ok := f.constructors[Family(strings.ToLower(family))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFamily, family)
	}

	svc := ctor(apiKey, config)
	if err := svc.Init(ctx); err != nil {
		return nil, fmt.Errorf("initializing %s service: %w", family, err)
	}
	return svc, nil
}

// Remove evicts the cached handle for providerID. It is a no-op when absent
// and must be called whenever the owning provider record is deleted, so a
// reused id cannot be served a stale credential/config pairing.
func (f *Factory) Remove(providerID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.services[providerID]; ok {
		delete(f.services, providerID)
		f.logger.Debug("model service evicted", "provider_id", providerID)
	}
}
