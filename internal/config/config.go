// Package config provides the configuration schema and loader for the
// docviet grading and narration server.
package config

import "strings"

// LogLevel controls log verbosity for the server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// ChatBackend selects the chat tutor's model backend.
type ChatBackend string

const (
	ChatGemini ChatBackend = "gemini"
	ChatOpenAI ChatBackend = "openai"
	ChatOllama ChatBackend = "ollama"
)

// IsValid reports whether b is a recognised chat backend.
func (b ChatBackend) IsValid() bool {
	switch b {
	case ChatGemini, ChatOpenAI, ChatOllama:
		return true
	}
	return false
}

// Config is the root configuration structure for the server.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
// API keys never appear here; they come from the environment.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Grading   GradingConfig   `yaml:"grading"`
	Narration NarrationConfig `yaml:"narration"`
	Chat      ChatConfig      `yaml:"chat"`
	Creative  CreativeConfig  `yaml:"creative"`
	Progress  ProgressConfig  `yaml:"progress"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the HTTP API listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// GradingConfig selects the generative models used per grading kind.
// Handwriting assessment benefits from a stronger vision model than the
// audio paths need, so the two are configured separately.
type GradingConfig struct {
	// AudioModel grades reading and spoken-exercise recordings.
	// Default: "gemini-2.0-flash".
	AudioModel string `yaml:"audio_model"`

	// HandwritingModel grades handwriting captures.
	// Default: "gemini-2.0-pro".
	HandwritingModel string `yaml:"handwriting_model"`
}

// NarrationConfig configures the two narration channels.
type NarrationConfig struct {
	// LiveModel is the Gemini Live model for generative narration audio.
	// Default: "gemini-2.0-flash-live-001".
	LiveModel string `yaml:"live_model"`

	// Voice is the prebuilt Live API voice name. Default: "Kore".
	Voice string `yaml:"voice"`

	// LocalEngineURL is the base URL of the self-hosted fallback TTS engine
	// (e.g., "http://localhost:5002"). Empty disables the fallback channel.
	LocalEngineURL string `yaml:"local_engine_url"`

	// Language is the BCP-47 tag narration targets. Default: "vi-VN".
	Language string `yaml:"language"`
}

// ChatConfig configures the chat tutor's model backends. Fallbacks are tried
// in order when the primary fails.
type ChatConfig struct {
	Primary   ChatModel   `yaml:"primary"`
	Fallbacks []ChatModel `yaml:"fallbacks"`
}

// ChatModel names one backend/model pair for the chat tutor.
type ChatModel struct {
	// Backend selects the provider implementation.
	Backend ChatBackend `yaml:"backend"`

	// Model is the model name within the backend (e.g., "gemini-2.0-flash").
	Model string `yaml:"model"`
}

// CreativeConfig configures the reward-illustration generator.
type CreativeConfig struct {
	// ImageModel is the image-capable model behind POST /api/creative/image.
	// Default: "gemini-2.0-flash-exp-image-generation".
	ImageModel string `yaml:"image_model"`
}

// ProgressConfig configures the progress record store.
type ProgressConfig struct {
	// PostgresDSN is the connection string for the progress database.
	// Empty selects the in-memory store (records lost on restart).
	PostgresDSN string `yaml:"postgres_dsn"`
}

// placeholderKeys are values people paste from setup guides instead of a
// real credential. Matching is case-insensitive.
var placeholderKeys = []string{
	"your_api_key",
	"your-api-key",
	"changeme",
	"placeholder",
	"xxx",
}

// minKeyLength is the shortest credential worth sending over the wire.
// Real Gemini keys are ~39 characters.
const minKeyLength = 20

// KeyUsable reports whether key looks like a real model API credential.
// This is the cheap local check run before any network attempt so that a
// known-broken configuration skips straight to degraded-mode behaviour
// instead of paying a round-trip to fail.
func KeyUsable(key string) bool {
	key = strings.TrimSpace(key)
	if len(key) < minKeyLength {
		return false
	}
	lower := strings.ToLower(key)
	for _, p := range placeholderKeys {
		if strings.Contains(lower, p) {
			return false
		}
	}
	return true
}
