package model

import (
	"fmt"
	"strings"
)

// Family identifies one upstream provider family. The set of known families
// is closed; RegisterFamily on a Factory is the single extensibility seam.
type Family string

const (
	FamilyOpenAI     Family = "openai"
	FamilyAnthropic  Family = "anthropic"
	FamilyPerplexity Family = "perplexity"
)

func (f Family) String() string { return string(f) }

// ParseFamily resolves a family name case-insensitively.
// Unknown names fail with ErrUnknownFamily.
func ParseFamily(name string) (Family, error) {
	switch Family(strings.ToLower(name)) {
	case FamilyOpenAI:
		return FamilyOpenAI, nil
	case FamilyAnthropic:
		return FamilyAnthropic, nil
	case FamilyPerplexity:
		return FamilyPerplexity, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFamily, name)
	}
}

// Constructor builds an uninitialized Service bound to one credential and
// configuration.
type Constructor func(apiKey string, config map[string]any) Service

// defaultConstructors maps each known family to its service constructor.
func defaultConstructors() map[Family]Constructor {
	return map[Family]Constructor{
		FamilyOpenAI:     NewOpenAI,
		FamilyAnthropic:  NewAnthropic,
		FamilyPerplexity: NewPerplexity,
	}
}
