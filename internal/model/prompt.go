package model

// buildPrompt assembles the ordered prompt for one generation call:
// system directive first (the configured system_message, or the family's
// default persona when absent), then the prior turns, then the new user
// message last. History entries whose role is neither user nor assistant
// are skipped.
func buildPrompt(settings Settings, defaultPersona, message string, history []Message) []Message {
	system := settings.SystemMessage
	if system == "" {
		system = defaultPersona
	}

	prompt := make([]Message, 0, len(history)+2)
	prompt = append(prompt, Message{Role: RoleSystem, Content: system})

	for _, m := range history {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			continue
		}
		prompt = append(prompt, m)
	}

	prompt = append(prompt, Message{Role: RoleUser, Content: message})
	return prompt
}
