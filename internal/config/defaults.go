package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		WakeWords:    []string{"hark"},
		PollInterval: 30,
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
		},
		ASR: ASRConfig{
			Endpoint:     "127.0.0.1:2700",
			LanguageCode: "en-US",
		},
		TTS: TTSConfig{
			PiperPath: "piper",
			VoicePath: "",
		},
		Ollama: OllamaConfig{
			Host:  "http://127.0.0.1:11434",
			Model: "llama3.1",
		},
		Notify: NotifyConfig{
			Enable:  true,
			AppName: "hark",
		},
		Store:    StoreConfig{},
		Services: ServicesConfig{},
	}
}
