package tools

import (
	"context"
	"fmt"
)

// CalculatorID is the stable identifier of the calculator tool.
const CalculatorID = "calculator"

// Calculator performs basic arithmetic over two operands.
type Calculator struct {
	providerID int64
}

// NewCalculator constructs a Calculator bound to the given provider.
func NewCalculator(providerID int64) Tool {
	return &Calculator{providerID: providerID}
}

func (c *Calculator) Definition() Definition {
	return Definition{
		ID:          CalculatorID,
		Name:        "Calculator",
		Description: "Perform basic arithmetic calculations",
		ProviderID:  c.providerID,
		Parameters: []Parameter{
			{
				Name:        "operation",
				Type:        "string",
				Description: "The arithmetic operation to perform (add, subtract, multiply, divide)",
				Required:    true,
			},
			{
				Name:        "x",
				Type:        "number",
				Description: "First number",
				Required:    true,
			},
			{
				Name:        "y",
				Type:        "number",
				Description: "Second number",
				Required:    true,
			},
		},
	}
}

// Execute performs the requested operation. Division by zero is the one
// documented domain error; it fails with ErrInvalidParams rather than
// producing Inf or NaN.
func (c *Calculator) Execute(_ context.Context, params map[string]any) (any, error) {
	operation, ok := params["operation"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: operation must be a string", ErrInvalidParams)
	}

	x, err := numberParam(params, "x")
	if err != nil {
		return nil, err
	}
	y, err := numberParam(params, "y")
	if err != nil {
		return nil, err
	}

	switch operation {
	case "add":
		return x + y, nil
	case "subtract":
		return x - y, nil
	case "multiply":
		return x * y, nil
	case "divide":
		if y == 0 {
			return nil, fmt.Errorf("%w: cannot divide by zero", ErrInvalidParams)
		}
		return x / y, nil
	default:
		return nil, fmt.Errorf("%w: unknown operation %q", ErrInvalidParams, operation)
	}
}

// numberParam extracts a required numeric parameter. JSON numbers arrive as
// float64; literal Go ints are accepted for convenience in tests.
func numberParam(params map[string]any, name string) (float64, error) {
	switch v := params[name].(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case nil:
		return 0, fmt.Errorf("%w: missing required parameter %q", ErrInvalidParams, name)
	default:
		return 0, fmt.Errorf("%w: parameter %q must be a number", ErrInvalidParams, name)
	}
}
