package pipeline

import (
	"fmt"
	"strings"

	"exam-score/internal/features"

	"gonum.org/v1/gonum/mat"
)

// FeatureTable is a numeric table whose columns are in model order.
type FeatureTable struct {
	Columns []string
	X       *mat.Dense
}

// Rows returns the number of rows.
func (t *FeatureTable) Rows() int {
	if t.X == nil {
		return 0
	}
	r, _ := t.X.Dims()
	return r
}

// Assembler orders the produced columns as the model declares them.
type Assembler struct {
	columns []string
}

// NewAssembler fails unless modelColumns is exactly the set of columns the pipeline
// produces, so a model fitted on other features is rejected at startup.
func NewAssembler(modelColumns []string) (*Assembler, error) {
	seen := make(map[string]bool, len(modelColumns))
	for _, c := range modelColumns {
		if seen[c] {
			return nil, &features.ValidationError{
				Kind:    features.KindSchemaMismatch,
				Columns: []string{c},
				Detail:  "declared twice",
			}
		}
		seen[c] = true
	}

	missing, extra := diffColumns(features.ModelColumns(), modelColumns)
	if len(missing) > 0 || len(extra) > 0 {
		return nil, schemaMismatch(missing, extra)
	}
	return &Assembler{columns: append([]string(nil), modelColumns...)}, nil
}

// Columns returns the model's column order.
func (a *Assembler) Columns() []string {
	return a.columns
}

// Assemble builds the feature table from named columns of equal length.
func (a *Assembler) Assemble(cols map[string][]float64) (*FeatureTable, error) {
	names := make([]string, 0, len(cols))
	for name := range cols {
		names = append(names, name)
	}
	// missing: required by the model; extra: supplied but unknown to it
	missing, extra := diffColumns(names, a.columns)
	if len(missing) > 0 || len(extra) > 0 {
		return nil, schemaMismatch(missing, extra)
	}

	n := len(cols[a.columns[0]])
	if n == 0 {
		return nil, transformFailure("assembler", errNoRows)
	}
	X := mat.NewDense(n, len(a.columns), nil)
	for j, name := range a.columns {
		if len(cols[name]) != n {
			return nil, &features.ValidationError{
				Kind:    features.KindSchemaMismatch,
				Columns: []string{name},
				Detail:  fmt.Sprintf("column has %d rows, expected %d", len(cols[name]), n),
			}
		}
		X.SetCol(j, cols[name])
	}
	return &FeatureTable{Columns: a.columns, X: X}, nil
}

// diffColumns returns the names of want absent from have, and the names of have
// absent from want, each in their original order.
func diffColumns(have, want []string) (missing, extra []string) {
	inHave := make(map[string]bool, len(have))
	for _, c := range have {
		inHave[c] = true
	}
	inWant := make(map[string]bool, len(want))
	for _, c := range want {
		inWant[c] = true
		if !inHave[c] {
			missing = append(missing, c)
		}
	}
	for _, c := range have {
		if !inWant[c] {
			extra = append(extra, c)
		}
	}
	return missing, extra
}

func schemaMismatch(missing, extra []string) *features.ValidationError {
	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing "+strings.Join(missing, ", "))
	}
	if len(extra) > 0 {
		parts = append(parts, "unexpected "+strings.Join(extra, ", "))
	}
	return &features.ValidationError{
		Kind:    features.KindSchemaMismatch,
		Columns: append(append([]string{}, missing...), extra...),
		Detail:  strings.Join(parts, "; "),
	}
}
