package features

import (
	"fmt"
	"strings"
)

// ValidationKind classifies a ValidationError.
type ValidationKind string

const (
	KindInvalidCategory ValidationKind = "invalid_category"
	KindInvalidValue    ValidationKind = "invalid_value"
	KindInvalidGroup    ValidationKind = "invalid_group"
	KindMissingColumns  ValidationKind = "missing_columns"
	KindSchemaMismatch  ValidationKind = "schema_mismatch"
	KindEmptyTable      ValidationKind = "empty_table"
)

// ValidationError reports input that was rejected before any prediction was attempted.
// Row is 1-based and only set for batch input.
type ValidationError struct {
	Kind    ValidationKind
	Field   string
	Value   string
	Row     int
	Columns []string
	Detail  string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	switch e.Kind {
	case KindInvalidCategory:
		fmt.Fprintf(&b, "invalid category %q for %s", e.Value, e.Field)
	case KindInvalidValue:
		fmt.Fprintf(&b, "invalid value %q for %s", e.Value, e.Field)
	case KindInvalidGroup:
		fmt.Fprintf(&b, "column group %s must have exactly one true value", e.Field)
	case KindMissingColumns:
		fmt.Fprintf(&b, "missing columns: %s", strings.Join(e.Columns, ", "))
	case KindSchemaMismatch:
		b.WriteString("feature columns do not match the model")
		if len(e.Columns) > 0 {
			fmt.Fprintf(&b, ": %s", strings.Join(e.Columns, ", "))
		}
	case KindEmptyTable:
		b.WriteString("input table has no rows")
	default:
		fmt.Fprintf(&b, "validation failed: %s", e.Kind)
	}
	if e.Row > 0 {
		fmt.Fprintf(&b, " (row %d)", e.Row)
	}
	if e.Detail != "" {
		fmt.Fprintf(&b, ": %s", e.Detail)
	}
	return b.String()
}

// PipelineKind classifies a PipelineError.
type PipelineKind string

const (
	KindTransformFailure  PipelineKind = "transform_failure"
	KindPredictionFailure PipelineKind = "prediction_failure"
)

// PipelineError is a failure inside an opaque transformer or the model.
// It is never retried.
type PipelineError struct {
	Kind  PipelineKind
	Stage string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s in %s: %v", e.Kind, e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}
