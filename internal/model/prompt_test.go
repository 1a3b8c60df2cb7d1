package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPrompt_Order(t *testing.T) {
	t.Parallel()

	history := []Message{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
	}

	prompt := buildPrompt(Settings{}, "default persona", "how are you", history)

	require.Len(t, prompt, 4)
	assert.Equal(t, Message{Role: RoleSystem, Content: "default persona"}, prompt[0])
	assert.Equal(t, history[0], prompt[1])
	assert.Equal(t, history[1], prompt[2])
	assert.Equal(t, Message{Role: RoleUser, Content: "how are you"}, prompt[3])
}

func TestBuildPrompt_ConfiguredSystemMessageWins(t *testing.T) {
	t.Parallel()

	prompt := buildPrompt(Settings{SystemMessage: "be terse"}, "default persona", "q", nil)

	require.NotEmpty(t, prompt)
	assert.Equal(t, "be terse", prompt[0].Content)
}

func TestBuildPrompt_SkipsUnknownRoles(t *testing.T) {
	t.Parallel()

	history := []Message{
		{Role: RoleUser, Content: "kept"},
		{Role: "tool", Content: "dropped"},
		{Role: RoleSystem, Content: "dropped too"},
		{Role: RoleAssistant, Content: "kept"},
	}

	prompt := buildPrompt(Settings{}, "persona", "q", history)

	require.Len(t, prompt, 4)
	assert.Equal(t, "kept", prompt[1].Content)
	assert.Equal(t, "kept", prompt[2].Content)
}

func TestSettingsFromConfig_Defaults(t *testing.T) {
	t.Parallel()

	s := settingsFromConfig(nil, "gpt-3.5-turbo", 0)

	assert.Equal(t, "gpt-3.5-turbo", s.ModelName)
	assert.InDelta(t, 0.7, s.Temperature, 1e-9)
	assert.Zero(t, s.MaxTokens)
	assert.Empty(t, s.SystemMessage)
	assert.False(t, s.Streaming)
}

func TestSettingsFromConfig_Overrides(t *testing.T) {
	t.Parallel()

	config := map[string]any{
		"model_name":     "claude-2.1",
		"temperature":    0.2,
		"max_tokens":     float64(2048), // JSONB numbers decode as float64
		"system_message": "persona",
		"streaming":      true,
		"base_url":       "http://localhost:9999",
	}

	s := settingsFromConfig(config, "default-model", 1024)

	assert.Equal(t, "claude-2.1", s.ModelName)
	assert.InDelta(t, 0.2, s.Temperature, 1e-9)
	assert.Equal(t, 2048, s.MaxTokens)
	assert.Equal(t, "persona", s.SystemMessage)
	assert.True(t, s.Streaming)
	assert.Equal(t, "http://localhost:9999", s.BaseURL)
}

func TestSettingsFromConfig_IntTemperature(t *testing.T) {
	t.Parallel()

	s := settingsFromConfig(map[string]any{"temperature": 1}, "m", 0)
	assert.InDelta(t, 1.0, s.Temperature, 1e-9)
}

func TestParseFamily(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"openai", "OpenAI", "ANTHROPIC", "Perplexity"} {
		_, err := ParseFamily(name)
		assert.NoError(t, err, "family %q", name)
	}

	_, err := ParseFamily("gemini")
	assert.ErrorIs(t, err, ErrUnknownFamily)
}
