// Package cfg loads the service settings from a YAML file or the environment.
package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"exam-score/internal/common"
	"exam-score/internal/features"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type Settings struct {
	ArtifactDir        string // bundle directory used when the registry has no active version
	DataPath           string // registry directory; empty disables the registry
	RemoteModelURL     string
	RemoteModelTimeout time.Duration
	HTTPPort           int
	MaxUploadMB        int
	PredictionColumn   string
	KeepDerived        bool
	DefaultLanguage    string
	LogLevel           string
	AllowedOrigins     []string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	RequestTimeout     time.Duration
}

type ConfigFile struct {
	Model struct {
		ArtifactDir   string `yaml:"artifactDir"`
		RemoteURL     string `yaml:"remoteURL"`
		RemoteTimeout string `yaml:"remoteTimeout"`
	} `yaml:"model"`

	Storage struct {
		DataPath string `yaml:"dataPath"`
	} `yaml:"storage"`

	Server struct {
		Port           int      `yaml:"port"`
		MaxUploadMB    int      `yaml:"maxUploadMB"`
		ReadTimeout    string   `yaml:"readTimeout"`
		WriteTimeout   string   `yaml:"writeTimeout"`
		RequestTimeout string   `yaml:"requestTimeout"`
		AllowedOrigins []string `yaml:"allowedOrigins"`
	} `yaml:"server"`

	Batch struct {
		PredictionColumn string `yaml:"predictionColumn"`
		KeepDerived      bool   `yaml:"keepDerived"`
	} `yaml:"batch"`

	UI struct {
		DefaultLanguage string `yaml:"defaultLanguage"`
	} `yaml:"ui"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

func Load() (Settings, error) {
	// Try to load from YAML file first
	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}

	// Fallback to environment variables
	return loadFromEnv()
}

// LoadFile loads settings from the YAML file at path, still honouring environment overrides.
func LoadFile(path string) (Settings, error) {
	return loadFromYAML(path)
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	settings := Settings{
		ArtifactDir:        getEnvOrDefault(common.EnvArtifactDir, orDefault(config.Model.ArtifactDir, common.DefaultArtifactDir)),
		DataPath:           getEnvOrDefault(common.EnvDataPath, config.Storage.DataPath),
		RemoteModelURL:     getEnvOrDefault(common.EnvRemoteModelURL, config.Model.RemoteURL),
		RemoteModelTimeout: getDurationFromEnvOrConfig(common.EnvRemoteModelTimeout, config.Model.RemoteTimeout, common.DefaultRemoteModelTimeout),
		HTTPPort:           getIntFromEnvOrConfig(common.EnvHTTPPort, config.Server.Port, common.DefaultHTTPPort),
		MaxUploadMB:        getIntFromEnvOrConfig(common.EnvMaxUploadMB, config.Server.MaxUploadMB, common.DefaultMaxUploadMB),
		PredictionColumn:   getEnvOrDefault(common.EnvPredictionColumn, orDefault(config.Batch.PredictionColumn, common.DefaultPredictionColumn)),
		KeepDerived:        getBoolFromEnvOrConfig(common.EnvKeepDerived, config.Batch.KeepDerived),
		DefaultLanguage:    getEnvOrDefault(common.EnvDefaultLanguage, orDefault(config.UI.DefaultLanguage, common.DefaultLanguage)),
		LogLevel:           getEnvOrDefault(common.EnvLogLevel, orDefault(config.Log.Level, common.DefaultLogLevel)),
		AllowedOrigins:     getOriginsFromEnvOrConfig(config.Server.AllowedOrigins),
		ReadTimeout:        getDurationFromEnvOrConfig(common.EnvReadTimeout, config.Server.ReadTimeout, common.DefaultReadTimeout),
		WriteTimeout:       getDurationFromEnvOrConfig(common.EnvWriteTimeout, config.Server.WriteTimeout, common.DefaultWriteTimeout),
		RequestTimeout:     getDurationFromEnvOrConfig(common.EnvRequestTimeout, config.Server.RequestTimeout, common.DefaultRequestTimeout),
	}

	// Validate configuration
	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		ArtifactDir:        getEnvOrDefault(common.EnvArtifactDir, common.DefaultArtifactDir),
		DataPath:           os.Getenv(common.EnvDataPath), // optional
		RemoteModelURL:     os.Getenv(common.EnvRemoteModelURL),
		RemoteModelTimeout: getDurationOrDefault(common.EnvRemoteModelTimeout, common.DefaultRemoteModelTimeout),
		HTTPPort:           getIntOrDefault(common.EnvHTTPPort, common.DefaultHTTPPort),
		MaxUploadMB:        getIntOrDefault(common.EnvMaxUploadMB, common.DefaultMaxUploadMB),
		PredictionColumn:   getEnvOrDefault(common.EnvPredictionColumn, common.DefaultPredictionColumn),
		KeepDerived:        getBoolOrDefault(common.EnvKeepDerived, false),
		DefaultLanguage:    getEnvOrDefault(common.EnvDefaultLanguage, common.DefaultLanguage),
		LogLevel:           getEnvOrDefault(common.EnvLogLevel, common.DefaultLogLevel),
		AllowedOrigins:     splitOrDefault(os.Getenv(common.EnvAllowedOrigins), []string{"*"}),
		ReadTimeout:        getDurationOrDefault(common.EnvReadTimeout, common.DefaultReadTimeout),
		WriteTimeout:       getDurationOrDefault(common.EnvWriteTimeout, common.DefaultWriteTimeout),
		RequestTimeout:     getDurationOrDefault(common.EnvRequestTimeout, common.DefaultRequestTimeout),
	}

	// Validate configuration
	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

// MaxUploadBytes returns the upload limit in bytes.
func (s *Settings) MaxUploadBytes() int64 {
	return int64(s.MaxUploadMB) << 20
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func splitOrDefault(v string, def []string) []string {
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func getOriginsFromEnvOrConfig(configOrigins []string) []string {
	if env := os.Getenv(common.EnvAllowedOrigins); env != "" {
		return splitOrDefault(env, nil)
	}
	if len(configOrigins) > 0 {
		return configOrigins
	}
	return []string{"*"}
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func getDurationFromEnvOrConfig(key, configValue string, defaultValue time.Duration) time.Duration {
	if env := os.Getenv(key); env != "" {
		if d, err := time.ParseDuration(env); err == nil {
			return d
		}
	}
	if d, err := time.ParseDuration(configValue); err == nil {
		return d
	}
	return defaultValue
}

func getBoolFromEnvOrConfig(key string, configValue bool) bool {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseBool(env); err == nil {
			return val
		}
	}
	return configValue
}

// validateSettings performs comprehensive validation of configuration values
func validateSettings(settings *Settings) error {
	if settings.ArtifactDir == "" && settings.DataPath == "" {
		return fmt.Errorf("either an artifact directory or a data path is required")
	}

	if settings.HTTPPort < 1024 || settings.HTTPPort > 65535 {
		return fmt.Errorf("HTTP port must be between 1024 and 65535, got %d", settings.HTTPPort)
	}
	if settings.MaxUploadMB <= 0 || settings.MaxUploadMB > 512 {
		return fmt.Errorf("max upload size must be between 1 and 512 MB, got %d", settings.MaxUploadMB)
	}

	// Validate time durations
	if settings.RemoteModelTimeout < 100*time.Millisecond || settings.RemoteModelTimeout > time.Minute {
		return fmt.Errorf("remote model timeout must be between 100ms and 1m, got %v", settings.RemoteModelTimeout)
	}
	if settings.ReadTimeout < time.Second || settings.ReadTimeout > 10*time.Minute {
		return fmt.Errorf("read timeout must be between 1s and 10m, got %v", settings.ReadTimeout)
	}
	if settings.WriteTimeout < time.Second || settings.WriteTimeout > 10*time.Minute {
		return fmt.Errorf("write timeout must be between 1s and 10m, got %v", settings.WriteTimeout)
	}
	if settings.RequestTimeout < time.Second || settings.RequestTimeout > settings.WriteTimeout {
		return fmt.Errorf("request timeout must be between 1s and the write timeout (%v), got %v", settings.WriteTimeout, settings.RequestTimeout)
	}

	if strings.TrimSpace(settings.PredictionColumn) == "" {
		return fmt.Errorf("prediction column name cannot be empty")
	}
	if _, ok := features.LookupLanguage(settings.DefaultLanguage); !ok {
		return fmt.Errorf("unknown default language %q, expected one of %v", settings.DefaultLanguage, features.Languages())
	}
	if _, err := zerolog.ParseLevel(settings.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", settings.LogLevel, err)
	}
	if len(settings.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	return nil
}
