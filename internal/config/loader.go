package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults applied by [Validate] when the corresponding field is empty.
const (
	DefaultListenAddr       = ":8080"
	DefaultAudioModel       = "gemini-2.0-flash"
	DefaultHandwritingModel = "gemini-2.0-pro"
	DefaultLiveModel        = "gemini-2.0-flash-live-001"
	DefaultImageModel       = "gemini-2.0-flash-exp-image-generation"
	DefaultVoice            = "Kore"
	DefaultLanguage         = "vi-VN"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values, fills in
// defaults for empty fields, and returns a joined error listing all
// validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Grading.AudioModel == "" {
		cfg.Grading.AudioModel = DefaultAudioModel
	}
	if cfg.Grading.HandwritingModel == "" {
		cfg.Grading.HandwritingModel = DefaultHandwritingModel
	}

	if cfg.Narration.LiveModel == "" {
		cfg.Narration.LiveModel = DefaultLiveModel
	}
	if cfg.Narration.Voice == "" {
		cfg.Narration.Voice = DefaultVoice
	}
	if cfg.Narration.Language == "" {
		cfg.Narration.Language = DefaultLanguage
	}
	if cfg.Narration.LocalEngineURL == "" {
		slog.Warn("narration.local_engine_url is empty; narration has no local fallback channel")
	}

	if cfg.Chat.Primary.Backend != "" {
		if !cfg.Chat.Primary.Backend.IsValid() {
			errs = append(errs, fmt.Errorf("chat.primary.backend %q is invalid; valid values: gemini, openai, ollama", cfg.Chat.Primary.Backend))
		}
		if cfg.Chat.Primary.Model == "" {
			errs = append(errs, errors.New("chat.primary.model must be set when chat.primary.backend is set"))
		}
	}
	for i, fb := range cfg.Chat.Fallbacks {
		if !fb.Backend.IsValid() {
			errs = append(errs, fmt.Errorf("chat.fallbacks[%d].backend %q is invalid", i, fb.Backend))
		}
		if fb.Model == "" {
			errs = append(errs, fmt.Errorf("chat.fallbacks[%d].model must be set", i))
		}
	}

	if cfg.Creative.ImageModel == "" {
		cfg.Creative.ImageModel = DefaultImageModel
	}

	if cfg.Progress.PostgresDSN == "" {
		slog.Warn("progress.postgres_dsn is empty; progress records will not survive restarts")
	}

	return errors.Join(errs...)
}
