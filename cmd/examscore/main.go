package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"exam-score/internal/cfg"
	"exam-score/internal/common"
	"exam-score/internal/features"
	"exam-score/internal/ml"
	"exam-score/internal/pipeline"
	"exam-score/internal/storage"
	"exam-score/internal/table"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app carries the state shared by every subcommand.
type app struct {
	configPath string
	jsonLogs   bool
	settings   cfg.Settings
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "examscore",
		Short:        "Predict student exam scores with a trained model bundle",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML config file (default $"+common.EnvConfigFile+")")
	root.PersistentFlags().BoolVar(&a.jsonLogs, "json-logs", false, "write JSON logs instead of console output")

	root.AddCommand(
		serveCmd(a),
		scoreCmd(a),
		predictCmd(a),
		templateCmd(a),
		artifactsCmd(a),
	)
	return root
}

// load reads .env, the settings and sets up logging.
func (a *app) load() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	var err error
	if a.configPath != "" {
		a.settings, err = cfg.LoadFile(a.configPath)
	} else {
		a.settings, err = cfg.Load()
	}
	if err != nil {
		return err
	}

	setupLogging(a.settings.LogLevel, a.jsonLogs)
	return nil
}

func setupLogging(level string, jsonLogs bool) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	if !jsonLogs {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

func (a *app) modelOptions() ml.ModelOptions {
	return ml.ModelOptions{
		RemoteURL:     a.settings.RemoteModelURL,
		RemoteTimeout: a.settings.RemoteModelTimeout,
	}
}

// loadArtifacts prefers the active registry bundle and falls back to the artifact directory.
func (a *app) loadArtifacts() (*ml.Artifacts, error) {
	s := a.settings
	if s.DataPath != "" {
		var b ml.Bundle
		err := a.withRegistry(func(mm *ml.ModelManager) error {
			var err error
			b, err = mm.Active()
			return err
		})
		if err == nil {
			return ml.LoadBundle(b, a.modelOptions())
		}
		if s.ArtifactDir == "" {
			return nil, err
		}
		log.Warn().Err(err).Str("dir", s.ArtifactDir).Msg("No usable registry bundle, loading artifact directory")
	}
	return ml.LoadDir(s.ArtifactDir, a.modelOptions())
}

func (a *app) newPipeline(m pipeline.MetricsInterface) (*pipeline.Pipeline, error) {
	artifacts, err := a.loadArtifacts()
	if err != nil {
		return nil, fmt.Errorf("load artifacts: %w", err)
	}
	return pipeline.New(artifacts, m)
}

// withRegistry opens the bundle registry for the duration of fn.
func (a *app) withRegistry(fn func(mm *ml.ModelManager) error) error {
	if a.settings.DataPath == "" {
		return fmt.Errorf("no registry configured, set %s", common.EnvDataPath)
	}
	if err := os.MkdirAll(a.settings.DataPath, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", a.settings.DataPath, err)
	}
	store, err := storage.New(a.settings.DataPath)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(ml.NewModelManager(store))
}

// labels returns the labels of lang, or of the configured default language.
func (a *app) labels(lang string) (*features.Labels, error) {
	if lang == "" {
		lang = a.settings.DefaultLanguage
	}
	l, ok := features.LookupLanguage(lang)
	if !ok {
		return nil, fmt.Errorf("unknown language %q, expected one of %v", lang, features.Languages())
	}
	return l, nil
}

func (a *app) batchOptions() pipeline.BatchOptions {
	return pipeline.BatchOptions{
		PredictionColumn: a.settings.PredictionColumn,
		KeepDerived:      a.settings.KeepDerived,
	}
}

// localize prefixes err with the message a user of labels expects.
func localize(err error, labels *features.Labels) error {
	var (
		ve  *features.ValidationError
		pe  *features.PipelineError
		tpe *table.ParseError
	)
	switch {
	case errors.As(err, &ve) && ve.Kind == features.KindMissingColumns:
		return fmt.Errorf("%s %s", labels.Message(features.MsgMissingColumns), strings.Join(ve.Columns, ", "))
	case errors.As(err, &ve):
		return fmt.Errorf("%s %w", labels.Message(features.MsgInvalidInput), err)
	case errors.As(err, &tpe):
		return fmt.Errorf("%s %w", labels.Message(features.MsgFileError), err)
	case errors.As(err, &pe):
		return fmt.Errorf("%s %w", labels.Message(features.MsgPredictFailed), err)
	default:
		return err
	}
}
