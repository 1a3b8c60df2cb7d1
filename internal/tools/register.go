package tools

// NewDefaultRegistry creates a Registry with all built-in tools registered.
func NewDefaultRegistry() (*Registry, error) {
	r := NewRegistry()
	if err := r.Register(NewCalculator); err != nil {
		return nil, err
	}
	return r, nil
}
