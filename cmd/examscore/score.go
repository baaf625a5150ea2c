package main

import (
	"fmt"
	"io"
	"os"

	"exam-score/internal/common"
	"exam-score/internal/features"
	"exam-score/internal/pipeline"
	"exam-score/internal/table"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func scoreCmd(a *app) *cobra.Command {
	var (
		out         string
		column      string
		keepDerived bool
		lang        string
	)

	cmd := &cobra.Command{
		Use:   "score FILE",
		Short: "Score a CSV or XLSX batch file offline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			labels, err := a.labels(lang)
			if err != nil {
				return err
			}

			in, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer in.Close()

			t, err := table.Read(args[0], in)
			if err != nil {
				return localize(err, labels)
			}

			p, err := a.newPipeline(nil)
			if err != nil {
				return err
			}
			opts := a.batchOptions()
			if cmd.Flags().Changed("column") {
				opts.PredictionColumn = column
			}
			if cmd.Flags().Changed("keep-derived") {
				opts.KeepDerived = keepDerived
			}

			res, err := pipeline.NewBatchRunner(p, opts).Run(cmd.Context(), t)
			if err != nil {
				return localize(err, labels)
			}

			if err := writeOutput(cmd.OutOrStdout(), out, func(w io.Writer) error {
				return table.WriteCSV(w, res.Table)
			}); err != nil {
				return err
			}

			log.Info().
				Str("input", args[0]).
				Str("output", out).
				Int("rows", res.Summary.Count).
				Float64("mean", res.Summary.Mean).
				Float64("min", res.Summary.Min).
				Float64("max", res.Summary.Max).
				Float64("p90", res.Summary.P90).
				Msg(labels.Message(features.MsgBatchSuccess))
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "output", "o", common.BatchResultFilename, "output CSV file, - for stdout")
	cmd.Flags().StringVar(&column, "column", common.DefaultPredictionColumn, "name of the appended prediction column")
	cmd.Flags().BoolVar(&keepDerived, "keep-derived", false, "also append the dimension and scaled columns")
	cmd.Flags().StringVar(&lang, "lang", "", "language of the messages (default from config)")
	return cmd
}

func templateCmd(a *app) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "template",
		Short: "Write a batch file template with one example row",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeOutput(cmd.OutOrStdout(), out, func(w io.Writer) error {
				return pipeline.WriteTemplate(w, pipeline.ExampleRecord())
			})
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", common.TemplateFilename, "output CSV file, - for stdout")
	return cmd
}

// writeOutput runs write against path, or against stdout when path is "-".
func writeOutput(stdout io.Writer, path string, write func(io.Writer) error) error {
	if path == "-" {
		return write(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
