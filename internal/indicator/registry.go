package indicator

import (
	"fmt"
	"sync"

	"github.com/rxtech-lab/argo-analytics/internal/types"
)

// Registry manages all available indicators.
type Registry interface {
	Register(descriptor Descriptor) error
	Get(name types.IndicatorType) (Descriptor, error)
	List() []types.IndicatorType
	Remove(name types.IndicatorType) error
}

// RegistryV1 manages all available indicators.
type RegistryV1 struct {
	descriptors map[types.IndicatorType]Descriptor
	mu          sync.RWMutex
}

// NewRegistry creates an empty indicator registry.
func NewRegistry() Registry {
	return &RegistryV1{
		descriptors: make(map[types.IndicatorType]Descriptor),
	}
}

// NewDefaultRegistry creates a registry with every built-in indicator.
func NewDefaultRegistry() Registry {
	registry := NewRegistry()

	builtins := []Descriptor{
		{Type: types.IndicatorTypeSMA, Compute: ComputeSMA},
		{Type: types.IndicatorTypeEMA, Compute: ComputeEMA},
		{Type: types.IndicatorTypeRSI, Compute: ComputeRSI},
		{Type: types.IndicatorTypeMACD, Compute: ComputeMACD},
		{Type: types.IndicatorTypeBollinger, Compute: ComputeBollingerBands},
		{Type: types.IndicatorTypeATR, Compute: ComputeATR},
		{Type: types.IndicatorTypeADX, Compute: ComputeADX},
		{Type: types.IndicatorTypeStochastic, Compute: ComputeStochastic},
		{Type: types.IndicatorTypeIchimoku, Compute: ComputeIchimoku},
		{Type: types.IndicatorTypeSupertrend, Compute: ComputeSupertrend},
		{Type: types.IndicatorTypeVWAP, Compute: ComputeVWAP},
		{Type: types.IndicatorTypeOBV, Compute: ComputeOBV},
		{Type: types.IndicatorTypeFootprint, NeedsTickTrades: true, Compute: ComputeFootprint},
	}

	for _, descriptor := range builtins {
		// registry is empty, Register cannot fail here
		_ = registry.Register(descriptor)
	}

	return registry
}

// Register adds an indicator to the registry.
func (r *RegistryV1) Register(descriptor Descriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.descriptors[descriptor.Type]; exists {
		return fmt.Errorf("Register: indicator with name %s already registered", descriptor.Type)
	}

	if descriptor.Compute == nil {
		return fmt.Errorf("Register: indicator %s has no compute function", descriptor.Type)
	}

	r.descriptors[descriptor.Type] = descriptor

	return nil
}

// Get retrieves an indicator descriptor by name.
func (r *RegistryV1) Get(name types.IndicatorType) (Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	descriptor, exists := r.descriptors[name]
	if !exists {
		return Descriptor{}, fmt.Errorf("Get: indicator with name %s not found", name)
	}

	return descriptor, nil
}

// List returns all registered indicator names.
func (r *RegistryV1) List() []types.IndicatorType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]types.IndicatorType, 0, len(r.descriptors))
	for name := range r.descriptors {
		names = append(names, name)
	}

	return names
}

// Remove removes an indicator from the registry.
func (r *RegistryV1) Remove(name types.IndicatorType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.descriptors[name]; !exists {
		return fmt.Errorf("Remove: indicator with name %s not found", name)
	}

	delete(r.descriptors, name)

	return nil
}
