package pipeline

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"exam-score/internal/features"
	"exam-score/internal/table"
)

// DefaultPredictionColumn is the name of the appended prediction column.
const DefaultPredictionColumn = "Predicted_Exam_Score"

// Names of the intermediate columns appended when BatchOptions.KeepDerived is set.
const (
	DerivedDimensionColumn       = features.ColDimension
	DerivedScaledPreviousColumn  = "Previous_Scores_scaled"
	DerivedScaledDimensionColumn = "dimension_scaled"
)

// BatchOptions controls the shape of a batch result.
type BatchOptions struct {
	PredictionColumn string
	KeepDerived      bool
}

// BatchResult is the input table with the predictions appended.
type BatchResult struct {
	Table       *table.Table
	Predictions []float64
	Summary     Summary
}

// BatchRunner applies the pipeline to a whole table at once.
type BatchRunner struct {
	pipeline *Pipeline
	opts     BatchOptions
}

// NewBatchRunner creates a runner over p.
func NewBatchRunner(p *Pipeline, opts BatchOptions) *BatchRunner {
	if opts.PredictionColumn == "" {
		opts.PredictionColumn = DefaultPredictionColumn
	}
	return &BatchRunner{pipeline: p, opts: opts}
}

// Run validates t, predicts every row and returns a copy of t with the prediction
// column appended. A column of t with the same name is overwritten instead, so a
// scored file can be scored again. Any invalid row rejects the whole batch; the
// error names the first offending row (1-based, header excluded) and field.
func (b *BatchRunner) Run(ctx context.Context, t *table.Table) (*BatchResult, error) {
	start := time.Now()
	res, err := b.run(ctx, t)
	b.pipeline.observe(ModeBatch, t.Len(), start, err)
	if err != nil {
		return nil, err
	}
	b.pipeline.metrics.BatchRowsObserve(t.Len())
	return res, nil
}

func (b *BatchRunner) run(ctx context.Context, t *table.Table) (*BatchResult, error) {
	layout, err := resolveLayout(t)
	if err != nil {
		return nil, err
	}
	if t.Len() == 0 {
		return nil, &features.ValidationError{Kind: features.KindEmptyTable}
	}

	raw, err := layout.parse(t)
	if err != nil {
		return nil, err
	}

	scores, d, err := b.pipeline.run(ctx, raw, t.Len())
	if err != nil {
		return nil, err
	}

	out := t
	if b.opts.KeepDerived {
		for _, c := range []struct {
			name   string
			values []float64
		}{
			{DerivedDimensionColumn, d.dimension},
			{DerivedScaledPreviousColumn, d.scaledPrevious},
			{DerivedScaledDimensionColumn, d.scaledDimension},
		} {
			if out, err = out.WithColumn(c.name, formatColumn(c.values)); err != nil {
				return nil, err
			}
		}
	}
	if out, err = out.WithColumn(b.opts.PredictionColumn, formatColumn(scores)); err != nil {
		return nil, err
	}

	summary, err := Summarize(scores)
	if err != nil {
		return nil, err
	}
	return &BatchResult{Table: out, Predictions: scores, Summary: summary}, nil
}

// RequiredColumns returns the header of a batch file in its documented layout.
func RequiredColumns() []string {
	return features.BatchColumns()
}

// groupSource tells where a boolean group is read from.
type groupSource struct {
	group   features.Group
	encoded []int // indexes of the encoded columns, in group value order
	raw     int   // index of the raw categorical column, -1 when encoded
}

type numericSource struct {
	column string
	index  int
}

type layout struct {
	numeric []numericSource // in numericBatchColumns order
	edu     int
	groups  []groupSource
}

var numericBatchColumns = []string{
	features.ColParentalInvolvement,
	features.ColAccessToResources,
	features.ColPreviousScores,
	features.ColTutoringSessions,
	features.ColAttendance,
	features.ColHoursStudied,
}

// resolveLayout locates every required column, reporting all missing names at once.
// A boolean group may be given as its encoded columns or as one raw column holding
// the canonical value.
func resolveLayout(t *table.Table) (*layout, error) {
	l := &layout{edu: t.Index(features.ColParentalEducationLevel)}
	absent := make(map[string]bool)

	for _, c := range numericBatchColumns {
		if i := t.Index(c); i >= 0 {
			l.numeric = append(l.numeric, numericSource{column: c, index: i})
		} else {
			absent[c] = true
		}
	}
	if l.edu < 0 {
		absent[features.ColParentalEducationLevel] = true
	}

	for _, g := range features.Groups {
		src := groupSource{group: g, raw: -1}
		complete := true
		for _, c := range g.Columns() {
			i := t.Index(c)
			if i < 0 {
				complete = false
			}
			src.encoded = append(src.encoded, i)
		}
		if !complete {
			if i := t.Index(g.Column); i >= 0 {
				src.raw = i
			} else {
				for _, c := range g.Columns() {
					if t.Index(c) < 0 {
						absent[c] = true
					}
				}
			}
		}
		l.groups = append(l.groups, src)
	}

	if len(absent) > 0 {
		var missing []string
		for _, c := range features.BatchColumns() {
			if absent[c] {
				missing = append(missing, c)
			}
		}
		return nil, &features.ValidationError{Kind: features.KindMissingColumns, Columns: missing}
	}
	return l, nil
}

func (l *layout) parse(t *table.Table) (map[string][]float64, error) {
	raw := newRawColumns(t.Len())
	for i, row := range t.Rows {
		rowNum := i + 1

		for _, src := range l.numeric {
			v, err := parseNumber(row[src.index])
			if err != nil {
				return nil, &features.ValidationError{
					Kind:  features.KindInvalidValue,
					Field: src.column,
					Value: row[src.index],
					Row:   rowNum,
				}
			}
			raw[src.column][i] = v
		}

		level, err := features.EducationLevelFromLabel(strings.TrimSpace(row[l.edu]))
		if err != nil {
			return nil, &features.ValidationError{
				Kind:  features.KindInvalidCategory,
				Field: features.ColParentalEducationLevel,
				Value: row[l.edu],
				Row:   rowNum,
			}
		}
		raw[features.ColParentalEducationLevel][i] = float64(level)

		for _, src := range l.groups {
			flags, err := src.read(row, rowNum)
			if err != nil {
				return nil, err
			}
			for col, v := range flags {
				raw[col][i] = boolToFloat(v)
			}
		}
	}
	return raw, nil
}

func (s groupSource) read(row []string, rowNum int) (map[string]bool, error) {
	g := s.group
	if s.raw >= 0 {
		flags, err := features.EncodeCategory(g, strings.TrimSpace(row[s.raw]))
		if err != nil {
			return nil, &features.ValidationError{
				Kind:  features.KindInvalidCategory,
				Field: g.Column,
				Value: row[s.raw],
				Row:   rowNum,
			}
		}
		return flags, nil
	}

	flags := make(map[string]bool, len(g.Values))
	trues := 0
	for k, idx := range s.encoded {
		col := g.ColumnFor(g.Values[k])
		v, err := parseBool(row[idx])
		if err != nil {
			return nil, &features.ValidationError{
				Kind:  features.KindInvalidValue,
				Field: col,
				Value: row[idx],
				Row:   rowNum,
			}
		}
		if v {
			trues++
		}
		flags[col] = v
	}
	if trues != 1 {
		return nil, &features.ValidationError{Kind: features.KindInvalidGroup, Field: g.Column, Row: rowNum}
	}
	return flags, nil
}

func parseNumber(cell string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, strconv.ErrSyntax
	}
	return v, nil
}

// parseBool accepts true/false and 1/0 in any letter case.
func parseBool(cell string) (bool, error) {
	return strconv.ParseBool(strings.ToLower(strings.TrimSpace(cell)))
}

func formatColumn(values []float64) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return out
}
