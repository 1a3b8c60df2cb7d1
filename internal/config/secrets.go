package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

var (
	// ErrUnknownSecretFamily indicates no credential variable is defined for
	// the provider family.
	ErrUnknownSecretFamily = errors.New("unknown provider family for API key")

	// ErrSecretNotSet indicates the credential variable exists but is empty.
	ErrSecretNotSet = errors.New("API key not set in environment")
)

// secretEnvVars maps a lowercase provider family name to the canonical
// environment variable carrying its API key. Credentials are sourced from
// the environment only; they are never stored on the provider record.
var secretEnvVars = map[string]string{
	"openai":     "OPENAI_API_KEY",
	"anthropic":  "ANTHROPIC_API_KEY",
	"perplexity": "PERPLEXITY_API_KEY",
}

// Secrets resolves provider credentials by family name.
// The zero value is not usable; use NewSecrets or NewSecretsFromMap.
type Secrets struct {
	lookup func(string) string
}

// NewSecrets returns a Secrets backed by the process environment.
func NewSecrets() *Secrets {
	return &Secrets{lookup: os.Getenv}
}

// NewSecretsFromMap returns a Secrets backed by a fixed map. Tests only.
func NewSecretsFromMap(m map[string]string) *Secrets {
	return &Secrets{lookup: func(key string) string { return m[key] }}
}

// APIKey returns the credential for the given provider family
// (case-insensitive). It returns ErrUnknownSecretFamily for families without
// a known credential variable and ErrSecretNotSet when the variable is empty.
func (s *Secrets) APIKey(family string) (string, error) {
	envVar, ok := secretEnvVars[strings.ToLower(family)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownSecretFamily, family)
	}
	key := s.lookup(envVar)
	if key == "" {
		return "", fmt.Errorf("%w: %s", ErrSecretNotSet, envVar)
	}
	return key, nil
}
