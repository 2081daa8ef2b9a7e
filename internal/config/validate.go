package config

import (
	"fmt"
	"strings"
)

// Validate normalizes cfg in place and returns non-fatal warnings for
// values it had to repair. Wake phrases are lowercased because the
// recognizer emits lowercase text.
func Validate(cfg *Config) []Warning {
	var warnings []Warning

	phrases := make([]string, 0, len(cfg.WakeWords))
	for _, w := range cfg.WakeWords {
		trimmed := strings.ToLower(strings.TrimSpace(w))
		if trimmed == "" {
			continue
		}
		phrases = append(phrases, trimmed)
	}
	if len(phrases) == 0 {
		warnings = append(warnings, Warning{Message: "wake_words is empty; restoring default wake phrases"})
		phrases = Default().WakeWords
	}
	cfg.WakeWords = phrases

	if cfg.PollInterval <= 0 {
		warnings = append(warnings, Warning{
			Message: fmt.Sprintf("poll_interval_seconds %d is not positive; using 30", cfg.PollInterval),
		})
		cfg.PollInterval = 30
	}

	if strings.TrimSpace(cfg.ASR.Endpoint) == "" {
		warnings = append(warnings, Warning{Message: "asr.endpoint is empty; using default"})
		cfg.ASR.Endpoint = Default().ASR.Endpoint
	}
	if strings.TrimSpace(cfg.ASR.LanguageCode) == "" {
		cfg.ASR.LanguageCode = Default().ASR.LanguageCode
	}

	if strings.TrimSpace(cfg.Ollama.Host) == "" {
		warnings = append(warnings, Warning{Message: "ollama.host is empty; using default"})
		cfg.Ollama.Host = Default().Ollama.Host
	}
	if strings.TrimSpace(cfg.Ollama.Model) == "" {
		warnings = append(warnings, Warning{Message: "ollama.model is empty; using default"})
		cfg.Ollama.Model = Default().Ollama.Model
	}

	if strings.TrimSpace(cfg.TTS.PiperPath) == "" {
		cfg.TTS.PiperPath = Default().TTS.PiperPath
	}

	if cfg.Services.Email.Enabled {
		email := cfg.Services.Email
		if email.SMTPServer == "" || email.SMTPPort == 0 || email.Address == "" || email.AppPassword == "" {
			warnings = append(warnings, Warning{Message: "services.email is enabled but incomplete; email sending will fail"})
		}
	}

	return warnings
}
