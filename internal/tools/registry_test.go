package tools

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterAndDefinitions(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.Register(NewCalculator))

	defs := r.Definitions()
	require.Len(t, defs, 1)
	assert.Equal(t, CalculatorID, defs[0].ID)
	assert.Len(t, defs[0].Parameters, 3)
}

func TestRegistry_DuplicateIDRejected(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.Register(NewCalculator))
	assert.ErrorIs(t, r.Register(NewCalculator), ErrDuplicateID)
}

func TestRegistry_InstancePerProviderToolPair(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.Register(NewCalculator))

	a1, err := r.Instance(CalculatorID, 1)
	require.NoError(t, err)
	a2, err := r.Instance(CalculatorID, 1)
	require.NoError(t, err)
	b, err := r.Instance(CalculatorID, 2)
	require.NoError(t, err)

	assert.Same(t, a1, a2, "same pair must share one instance")
	assert.NotSame(t, a1, b, "different providers get distinct instances")
	assert.Equal(t, int64(1), a1.Definition().ProviderID)
	assert.Equal(t, int64(2), b.Definition().ProviderID)
}

func TestRegistry_InstanceUnknownTool(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	_, err := r.Instance("nope", 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry_ExecuteUnknownTool(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	_, err := r.Execute(context.Background(), "nope", 1, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry_RemoveProvider(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.Register(NewCalculator))

	before, err := r.Instance(CalculatorID, 1)
	require.NoError(t, err)

	r.RemoveProvider(1)

	after, err := r.Instance(CalculatorID, 1)
	require.NoError(t, err)
	assert.NotSame(t, before, after, "eviction must force a fresh instance")
}

func TestRegistry_ProviderDefinitions(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.Register(NewCalculator))

	defs := r.ProviderDefinitions(7, []string{CalculatorID, "unregistered"})
	require.Len(t, defs, 1)
	assert.Equal(t, int64(7), defs[0].ProviderID)

	assert.Empty(t, r.ProviderDefinitions(7, nil))
}

func TestRegistry_ConcurrentInstanceCreation(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.Register(NewCalculator))

	const workers = 16
	instances := make([]Tool, workers)

	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tool, err := r.Instance(CalculatorID, 9)
			assert.NoError(t, err)
			instances[i] = tool
		}()
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		assert.Same(t, instances[0], instances[i])
	}
}

func TestCalculator_Execute(t *testing.T) {
	t.Parallel()

	calc := NewCalculator(1)
	ctx := context.Background()

	tests := []struct {
		name      string
		params    map[string]any
		want      float64
		wantError bool
	}{
		{"add", map[string]any{"operation": "add", "x": 2.0, "y": 3.0}, 5, false},
		{"subtract", map[string]any{"operation": "subtract", "x": 2.0, "y": 3.0}, -1, false},
		{"multiply", map[string]any{"operation": "multiply", "x": 2.0, "y": 3.0}, 6, false},
		{"divide", map[string]any{"operation": "divide", "x": 6.0, "y": 3.0}, 2, false},
		{"int operands accepted", map[string]any{"operation": "add", "x": 2, "y": 3}, 5, false},
		{"divide by zero", map[string]any{"operation": "divide", "x": 1.0, "y": 0.0}, 0, true},
		{"unknown operation", map[string]any{"operation": "modulo", "x": 1.0, "y": 2.0}, 0, true},
		{"missing operand", map[string]any{"operation": "add", "x": 1.0}, 0, true},
		{"non-numeric operand", map[string]any{"operation": "add", "x": "one", "y": 2.0}, 0, true},
		{"missing operation", map[string]any{"x": 1.0, "y": 2.0}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result, err := calc.Execute(ctx, tt.params)
			if tt.wantError {
				assert.ErrorIs(t, err, ErrInvalidParams)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, result)
		})
	}
}

func TestNewDefaultRegistry(t *testing.T) {
	t.Parallel()

	r, err := NewDefaultRegistry()
	require.NoError(t, err)
	assert.Len(t, r.Definitions(), 1)
}
