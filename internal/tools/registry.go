package tools

import (
	"context"
	"fmt"
	"sync"
)

// instanceKey identifies one live tool instance.
type instanceKey struct {
	providerID int64
	toolID     string
}

// Registry is the process-scoped tool catalog. It maps tool ids to
// constructors and maintains at most one live instance per
// (provider, tool) pair, created lazily.
//
// Registry is safe for concurrent use; the create path is serialized so two
// concurrent first calls for the same pair share one instance.
type Registry struct {
	mu           sync.Mutex
	constructors map[string]Constructor
	instances    map[instanceKey]Tool
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		constructors: make(map[string]Constructor),
		instances:    make(map[instanceKey]Tool),
	}
}

// Register adds a tool constructor to the catalog, keyed by the id its
// definition reports. Ids collide case-sensitively; registering a taken id
// fails rather than silently replacing the earlier tool.
func (r *Registry) Register(ctor Constructor) error {
	// A throwaway instance yields the class-level definition.
	id := ctor(0).Definition().ID

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.constructors[id]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateID, id)
	}
	r.constructors[id] = ctor
	return nil
}

// Definitions returns the class-level definitions of all registered tools.
func (r *Registry) Definitions() []Definition {
	r.mu.Lock()
	defer r.mu.Unlock()

	defs := make([]Definition, 0, len(r.constructors))
	for _, ctor := range r.constructors {
		defs = append(defs, ctor(0).Definition())
	}
	return defs
}

// Instance returns the live tool instance for the (provider, tool) pair,
// creating it on first use. Fails with ErrNotFound for unregistered ids.
func (r *Registry) Instance(toolID string, providerID int64) (Tool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := instanceKey{providerID: providerID, toolID: toolID}
	if tool, ok := r.instances[key]; ok {
		return tool, nil
	}

	ctor, ok := r.constructors[toolID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, toolID)
	}

	tool := ctor(providerID)
	r.instances[key] = tool
	return tool, nil
}

// Execute runs the tool for the given provider. The caller is responsible
// for checking the tool appears in the provider's enabled set; the registry
// performs no authorization.
func (r *Registry) Execute(ctx context.Context, toolID string, providerID int64, params map[string]any) (any, error) {
	tool, err := r.Instance(toolID, providerID)
	if err != nil {
		return nil, err
	}
	return tool.Execute(ctx, params)
}

// ProviderDefinitions returns the definitions of the given tool ids bound
// to a provider. Unregistered ids are skipped.
func (r *Registry) ProviderDefinitions(providerID int64, toolIDs []string) []Definition {
	r.mu.Lock()
	defer r.mu.Unlock()

	defs := make([]Definition, 0, len(toolIDs))
	for _, id := range toolIDs {
		ctor, ok := r.constructors[id]
		if !ok {
			continue
		}
		defs = append(defs, ctor(providerID).Definition())
	}
	return defs
}

// RemoveProvider drops all live instances of one provider. Must be called
// when the provider record is deleted.
func (r *Registry) RemoveProvider(providerID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key := range r.instances {
		if key.providerID == providerID {
			delete(r.instances, key)
		}
	}
}
