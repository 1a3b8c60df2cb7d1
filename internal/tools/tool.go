// Package tools provides the tool capability registry: named, parameterized
// units of computation a provider may invoke.
//
// The registry is a pure capability catalog. Whether a provider is allowed
// to execute a given tool (the enabled-tool set on the provider record) is
// checked by the calling layer, never here.
package tools

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates the tool id is not registered.
	ErrNotFound = errors.New("tool not found")

	// ErrInvalidParams indicates the parameters fail the tool's validation.
	ErrInvalidParams = errors.New("invalid tool parameters")

	// ErrDuplicateID indicates a registration collision on a tool id.
	ErrDuplicateID = errors.New("tool id already registered")
)

// Parameter describes one named parameter of a tool.
type Parameter struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // "string", "number", "boolean", "array", "object"
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Default     any    `json:"default,omitempty"`
}

// Definition describes a tool: its stable id, human-readable name and
// description, ordered parameter list, and the provider instance it is
// bound to (0 for the class-level definition in the catalog).
type Definition struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []Parameter `json:"parameters"`
	ProviderID  int64       `json:"provider_id"`
}

// Tool is a stateless, synchronously-invoked capability.
type Tool interface {
	// Definition returns the tool's definition, carrying the provider id
	// the instance is bound to.
	Definition() Definition

	// Execute runs the tool with the given key/value arguments and returns
	// a single result, or an error wrapping ErrInvalidParams for malformed
	// or out-of-domain arguments.
	Execute(ctx context.Context, params map[string]any) (any, error)
}

// Constructor builds a tool instance bound to one provider.
type Constructor func(providerID int64) Tool
