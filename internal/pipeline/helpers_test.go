package pipeline

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"exam-score/internal/features"
	"exam-score/internal/ml"
	"exam-score/internal/table"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// mockMetrics implements MetricsInterface for testing
type mockMetrics struct {
	mu          sync.Mutex
	predictions map[string]int
	failures    map[string]int
	validation  map[string]int
	latencies   int
	batchRows   []int
	scores      []float64
	trainedAt   float64
}

func newMockMetrics() *mockMetrics {
	return &mockMetrics{
		predictions: map[string]int{},
		failures:    map[string]int{},
		validation:  map[string]int{},
	}
}

func (m *mockMetrics) PredictionsAdd(mode string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictions[mode] += n
}

func (m *mockMetrics) FailuresInc(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[kind]++
}

func (m *mockMetrics) ValidationErrorsInc(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.validation[kind]++
}

func (m *mockMetrics) LatencyObserve(string, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencies++
}

func (m *mockMetrics) BatchRowsObserve(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchRows = append(m.batchRows, n)
}

func (m *mockMetrics) ScoreObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scores = append(m.scores, v)
}

func (m *mockMetrics) ModelTrainedAtSet(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trainedAt = v
}

// recordingTransformer applies fn and keeps a copy of every input.
type recordingTransformer struct {
	cols   []string
	fn     func(X mat.Matrix) (*mat.Dense, error)
	inputs []*mat.Dense
}

func (t *recordingTransformer) Columns() []string {
	return t.cols
}

func (t *recordingTransformer) Transform(X mat.Matrix) (*mat.Dense, error) {
	t.inputs = append(t.inputs, mat.DenseCopyOf(X))
	return t.fn(X)
}

// sumReducer outputs [a+h, a-h] for each [attendance, hours] row.
func sumReducer() *recordingTransformer {
	return &recordingTransformer{
		cols: features.ReducerColumns,
		fn: func(X mat.Matrix) (*mat.Dense, error) {
			r, _ := X.Dims()
			out := mat.NewDense(r, 2, nil)
			for i := 0; i < r; i++ {
				out.Set(i, 0, X.At(i, 0)+X.At(i, 1))
				out.Set(i, 1, X.At(i, 0)-X.At(i, 1))
			}
			return out, nil
		},
	}
}

// divScaler outputs [previous/100, dimension/10].
func divScaler() *recordingTransformer {
	return &recordingTransformer{
		cols: features.ScalerColumns,
		fn: func(X mat.Matrix) (*mat.Dense, error) {
			r, _ := X.Dims()
			out := mat.NewDense(r, 2, nil)
			for i := 0; i < r; i++ {
				out.Set(i, 0, X.At(i, 0)/100)
				out.Set(i, 1, X.At(i, 1)/10)
			}
			return out, nil
		},
	}
}

func failingTransformer(cols []string) *recordingTransformer {
	return &recordingTransformer{
		cols: cols,
		fn: func(mat.Matrix) (*mat.Dense, error) {
			return nil, errors.New("singular input")
		},
	}
}

// fakeModel sums each row unless fn is set.
type fakeModel struct {
	names []string
	fn    func(X mat.Matrix) ([]float64, error)
	calls int
	last  *mat.Dense
}

func (m *fakeModel) FeatureNames() []string {
	return m.names
}

func (m *fakeModel) Predict(_ context.Context, X mat.Matrix) ([]float64, error) {
	m.calls++
	m.last = mat.DenseCopyOf(X)
	if m.fn != nil {
		return m.fn(X)
	}
	r, c := X.Dims()
	out := make([]float64, r)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out[i] += X.At(i, j)
		}
	}
	return out, nil
}

type fixture struct {
	reducer *recordingTransformer
	scaler  *recordingTransformer
	model   *fakeModel
	metrics *mockMetrics
	p       *Pipeline
}

var fixtureTrainedAt = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		reducer: sumReducer(),
		scaler:  divScaler(),
		model:   &fakeModel{names: features.ModelColumns()},
		metrics: newMockMetrics(),
	}
	p, err := New(&ml.Artifacts{
		Version:  "test",
		Metadata: ml.ModelMetadata{TrainedAt: fixtureTrainedAt},
		Model:    f.model,
		Reducer:  f.reducer,
		Scaler:   f.scaler,
	}, f.metrics)
	require.NoError(t, err)
	f.p = p
	return f
}

// firstOptions is the record built from the first option of every form field.
func firstOptions() features.StudentRecord {
	return features.StudentRecord{
		PreviousScores:         70,
		Attendance:             50,
		HoursStudied:           15,
		TutoringSessions:       2,
		ParentalInvolvement:    2,
		AccessToResources:      3,
		ParentalEducationLevel: features.HighSchool,
		Extracurricular:        features.Yes,
		InternetAccess:         features.Yes,
		SchoolType:             features.Private,
		PeerInfluence:          features.Negative,
		LearningDisabilities:   features.Yes,
		Gender:                 features.Male,
	}
}

func sampleRecords() []features.StudentRecord {
	a := firstOptions()

	b := firstOptions()
	b.PreviousScores, b.Attendance, b.HoursStudied = 88, 95, 30
	b.ParentalEducationLevel = features.Postgraduate
	b.Extracurricular = features.No
	b.SchoolType = features.Public
	b.PeerInfluence = features.Positive
	b.LearningDisabilities = features.No
	b.Gender = features.Female

	c := firstOptions()
	c.PreviousScores, c.Attendance, c.HoursStudied = 55, 65, 8
	c.ParentalEducationLevel = features.College
	c.InternetAccess = features.No
	c.PeerInfluence = features.Neutral

	return []features.StudentRecord{a, b, c}
}

// batchTable renders records in the documented batch layout.
func batchTable(t *testing.T, rs ...features.StudentRecord) *table.Table {
	t.Helper()
	tbl := &table.Table{Header: RequiredColumns()}
	for _, r := range rs {
		enc, err := features.Encode(r)
		require.NoError(t, err)

		num := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
		row := []string{
			num(r.ParentalInvolvement),
			num(r.AccessToResources),
			num(r.PreviousScores),
			num(r.TutoringSessions),
			r.ParentalEducationLevel,
		}
		for _, c := range features.EncodedColumns() {
			if enc.Flags[c] {
				row = append(row, "True")
			} else {
				row = append(row, "False")
			}
		}
		row = append(row, num(r.Attendance), num(r.HoursStudied))
		tbl.Rows = append(tbl.Rows, row)
	}
	return tbl
}

// withoutColumns returns a copy of tbl lacking the named columns.
func withoutColumns(tbl *table.Table, names ...string) *table.Table {
	drop := map[string]bool{}
	for _, n := range names {
		drop[n] = true
	}
	out := &table.Table{Rows: make([][]string, len(tbl.Rows))}
	for j, h := range tbl.Header {
		if drop[h] {
			continue
		}
		out.Header = append(out.Header, h)
		for i := range tbl.Rows {
			out.Rows[i] = append(out.Rows[i], tbl.Rows[i][j])
		}
	}
	return out
}

func setCell(tbl *table.Table, row int, column, value string) {
	tbl.Rows[row][tbl.Index(column)] = value
}
