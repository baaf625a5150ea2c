package cfg

import (
	"strings"
	"testing"
	"time"
)

// createValidSettings creates a valid Settings struct for testing
func createValidSettings() *Settings {
	return &Settings{
		ArtifactDir:        "artifacts",
		RemoteModelTimeout: 5 * time.Second,
		HTTPPort:           8080,
		MaxUploadMB:        10,
		PredictionColumn:   "Predicted_Exam_Score",
		DefaultLanguage:    "Indonesia",
		LogLevel:           "info",
		AllowedOrigins:     []string{"*"},
		ReadTimeout:        15 * time.Second,
		WriteTimeout:       60 * time.Second,
		RequestTimeout:     30 * time.Second,
	}
}

func TestValidateSettings_ValidConfig(t *testing.T) {
	if err := validateSettings(createValidSettings()); err != nil {
		t.Errorf("Expected valid config to pass, got error: %v", err)
	}
}

func TestValidateSettings_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *Settings)
		wantMsg string
	}{
		{"no artifact source", func(s *Settings) { s.ArtifactDir = "" }, "artifact directory"},
		{"port too low", func(s *Settings) { s.HTTPPort = 443 }, "HTTP port"},
		{"port too high", func(s *Settings) { s.HTTPPort = 70000 }, "HTTP port"},
		{"zero upload", func(s *Settings) { s.MaxUploadMB = 0 }, "max upload"},
		{"remote timeout", func(s *Settings) { s.RemoteModelTimeout = 10 * time.Millisecond }, "remote model timeout"},
		{"read timeout", func(s *Settings) { s.ReadTimeout = 0 }, "read timeout"},
		{"write timeout", func(s *Settings) { s.WriteTimeout = time.Hour }, "write timeout"},
		{"request exceeds write", func(s *Settings) { s.RequestTimeout = 2 * time.Minute }, "request timeout"},
		{"blank prediction column", func(s *Settings) { s.PredictionColumn = "  " }, "prediction column"},
		{"unknown language", func(s *Settings) { s.DefaultLanguage = "Deutsch" }, "default language"},
		{"bad log level", func(s *Settings) { s.LogLevel = "chatty" }, "log level"},
		{"no origins", func(s *Settings) { s.AllowedOrigins = nil }, "allowed origin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := createValidSettings()
			tt.mutate(s)
			err := validateSettings(s)
			if err == nil {
				t.Fatal("Expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Expected error containing %q, got %v", tt.wantMsg, err)
			}
		})
	}
}

func TestValidateSettings_RegistryOnly(t *testing.T) {
	s := createValidSettings()
	s.ArtifactDir = ""
	s.DataPath = "/var/lib/exam-score"
	if err := validateSettings(s); err != nil {
		t.Errorf("Expected registry-only config to pass, got %v", err)
	}
}
