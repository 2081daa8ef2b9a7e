// Package config resolves, parses, validates, and defaults hark configuration.
package config

// Config is the fully materialized runtime configuration used by hark.
type Config struct {
	WakeWords    []string       `yaml:"wake_words"`
	PollInterval int            `yaml:"poll_interval_seconds"`
	Audio        AudioConfig    `yaml:"audio"`
	ASR          ASRConfig      `yaml:"asr"`
	TTS          TTSConfig      `yaml:"tts"`
	Ollama       OllamaConfig   `yaml:"ollama"`
	Notify       NotifyConfig   `yaml:"notify"`
	Store        StoreConfig    `yaml:"store"`
	Services     ServicesConfig `yaml:"services"`
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input    string `yaml:"input"`
	Fallback string `yaml:"fallback"`
}

// ASRConfig points at the local streaming recognizer daemon.
type ASRConfig struct {
	Endpoint     string `yaml:"endpoint"`
	LanguageCode string `yaml:"language_code"`
}

// TTSConfig controls the Piper speech synthesis subprocess.
type TTSConfig struct {
	PiperPath string `yaml:"piper_path"`
	VoicePath string `yaml:"voice_path"`
}

// OllamaConfig points at the local model server used for intent resolution.
type OllamaConfig struct {
	Host  string `yaml:"host"`
	Model string `yaml:"model"`
}

// NotifyConfig controls desktop notification output.
type NotifyConfig struct {
	Enable  bool   `yaml:"enable"`
	AppName string `yaml:"app_name"`
}

// StoreConfig controls the persistent memory database location.
// An empty path resolves to $XDG_DATA_HOME/hark/memory.db at open time.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// ServicesConfig gates the externally keyed tool integrations.
type ServicesConfig struct {
	Weather  KeyedService `yaml:"weather"`
	Location KeyedService `yaml:"location"`
	Currency KeyedService `yaml:"currency_conversion"`
	Email    EmailService `yaml:"email"`
}

// KeyedService is one API-key-backed integration toggle.
type KeyedService struct {
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"api_key"`
}

// EmailService holds SMTP delivery settings for the email tools.
type EmailService struct {
	Enabled     bool   `yaml:"enabled"`
	SMTPServer  string `yaml:"smtp_server"`
	SMTPPort    int    `yaml:"smtp_port"`
	Address     string `yaml:"email_address"`
	AppPassword string `yaml:"app_password"`
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Message string
}
