package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"exam-score/internal/features"
	"exam-score/internal/metrics"
	"exam-score/internal/ml"
	"exam-score/internal/pipeline"
	"exam-score/internal/table"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type testEnv struct {
	srv     *Server
	p       *pipeline.Pipeline
	metrics *metrics.Metrics
}

func newTestEnv(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()
	a, err := ml.LoadBundle(ml.SampleBundle(), ml.ModelOptions{})
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)
	wrapper := metrics.NewWrapper(m)

	p, err := pipeline.New(a, wrapper)
	require.NoError(t, err)

	cfg := Config{
		Port:            8080,
		MaxUploadBytes:  1 << 20,
		DefaultLanguage: "English",
		AllowedOrigins:  []string{"*"},
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    15 * time.Second,
		RequestTimeout:  5 * time.Second,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	srv, err := New(p, cfg, wrapper, reg)
	require.NoError(t, err)
	return &testEnv{srv: srv, p: p, metrics: m}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) postJSON(t *testing.T, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return e.do(req)
}

func (e *testEnv) upload(t *testing.T, path, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return e.do(req)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

// englishRequest is the pipeline's first-options record in English labels.
func englishRequest() map[string]interface{} {
	return map[string]interface{}{
		"previous_scores":          70,
		"attendance":               50,
		"hours_studied":            15,
		"tutoring_sessions":        2,
		"parental_involvement":     2,
		"access_to_resources":      3,
		"parental_education_level": "High School",
		"extracurricular":          "Yes",
		"internet_access":          "Yes",
		"school_type":              "Private",
		"peer_influence":           "Negative",
		"learning_disabilities":    "Yes",
		"gender":                   "Male",
	}
}

func englishRecord() features.StudentRecord {
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

func TestNew_Validation(t *testing.T) {
	a, err := ml.LoadBundle(ml.SampleBundle(), ml.ModelOptions{})
	require.NoError(t, err)
	p, err := pipeline.New(a, nil)
	require.NoError(t, err)

	_, err = New(p, Config{DefaultLanguage: "Klingon", MaxUploadBytes: 1}, nil, nil)
	assert.ErrorContains(t, err, "Klingon")

	_, err = New(p, Config{DefaultLanguage: "English"}, nil, nil)
	assert.Error(t, err)

	srv, err := New(p, Config{DefaultLanguage: "English", MaxUploadBytes: 1}, nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, srv.Handler())
}

func TestPredict(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.postJSON(t, "/api/v1/predict", englishRequest())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp PredictResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	want, err := env.p.PredictOne(context.Background(), englishRecord())
	require.NoError(t, err)
	assert.InDelta(t, want, resp.Score, 1e-9)
	assert.Equal(t, strings.TrimSpace(resp.Display), resp.Display)
	assert.Regexp(t, `^\d+\.\d{2}$`, resp.Display)
	assert.Equal(t, "sample", resp.ModelVersion)
	assert.Equal(t, "Prediction successful!", resp.Message)
	assert.NotEmpty(t, resp.RequestID)
	assert.Equal(t, resp.RequestID, rec.Header().Get("X-Request-Id"))
	assert.False(t, resp.Timestamp.IsZero())
}

func TestPredict_IndonesianLabels(t *testing.T) {
	env := newTestEnv(t, nil)

	en := env.postJSON(t, "/api/v1/predict", englishRequest())
	require.Equal(t, http.StatusOK, en.Code)
	var want PredictResponse
	require.NoError(t, json.NewDecoder(en.Body).Decode(&want))

	req := englishRequest()
	req["lang"] = "Indonesia"
	req["parental_education_level"] = "SMA"
	req["extracurricular"] = "Ya"
	req["internet_access"] = "Ya"
	req["school_type"] = "Swasta"
	req["peer_influence"] = "Negatif"
	req["learning_disabilities"] = "Ya"
	req["gender"] = "Laki-laki"

	rec := env.postJSON(t, "/api/v1/predict", req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got PredictResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))

	assert.Equal(t, want.Score, got.Score)
	assert.Equal(t, "Prediksi berhasil!", got.Message)
}

func TestPredict_ClientRequestID(t *testing.T) {
	env := newTestEnv(t, nil)

	data, err := json.Marshal(englishRequest())
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/predict", bytes.NewReader(data))
	req.Header.Set("X-Request-Id", "client-42")

	rec := env.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp PredictResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "client-42", resp.RequestID)
}

func TestPredict_Errors(t *testing.T) {
	tests := []struct {
		name   string
		edit   func(req map[string]interface{})
		raw    string
		status int
		kind   string
		field  string
		prefix string
	}{
		{
			name:   "unknown gender",
			edit:   func(req map[string]interface{}) { req["gender"] = "Robot" },
			status: http.StatusUnprocessableEntity,
			kind:   string(features.KindInvalidCategory),
			field:  features.FieldGender,
			prefix: "Invalid input:",
		},
		{
			name:   "label of another language",
			edit:   func(req map[string]interface{}) { req["school_type"] = "Negeri" },
			status: http.StatusUnprocessableEntity,
			kind:   string(features.KindInvalidCategory),
			field:  features.FieldSchoolType,
		},
		{
			name:   "missing number",
			edit:   func(req map[string]interface{}) { delete(req, "previous_scores") },
			status: http.StatusUnprocessableEntity,
			kind:   string(features.KindInvalidValue),
			field:  features.ColPreviousScores,
		},
		{
			name:   "unknown language",
			edit:   func(req map[string]interface{}) { req["lang"] = "Klingon" },
			status: http.StatusUnprocessableEntity,
			kind:   string(features.KindInvalidValue),
			field:  "lang",
		},
		{
			name:   "malformed json",
			raw:    `{"previous_scores": `,
			status: http.StatusBadRequest,
			kind:   KindBadRequest,
			prefix: "Invalid input:",
		},
		{
			name:   "wrong type",
			raw:    `{"previous_scores": "seventy"}`,
			status: http.StatusBadRequest,
			kind:   KindBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)

			var rec *httptest.ResponseRecorder
			if tt.raw != "" {
				rec = env.do(httptest.NewRequest(http.MethodPost, "/api/v1/predict", strings.NewReader(tt.raw)))
			} else {
				req := englishRequest()
				tt.edit(req)
				rec = env.postJSON(t, "/api/v1/predict", req)
			}

			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			body := decodeError(t, rec)
			assert.Equal(t, tt.kind, body.Kind)
			assert.Equal(t, tt.field, body.Field)
			assert.NotEmpty(t, body.RequestID)
			if tt.prefix != "" {
				assert.True(t, strings.HasPrefix(body.Error, tt.prefix), body.Error)
			}
		})
	}
}

func templateCSV(t *testing.T, rs ...features.StudentRecord) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, pipeline.WriteTemplate(&buf, rs...))
	return buf.Bytes()
}

func batchRecords() []features.StudentRecord {
	a := englishRecord()
	b := pipeline.ExampleRecord()
	return []features.StudentRecord{a, b}
}

func TestBatch_CSV(t *testing.T) {
	env := newTestEnv(t, nil)
	rs := batchRecords()

	rec := env.upload(t, "/api/v1/predict/batch", "siswa.csv", templateCSV(t, rs...))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "hasil_prediksi.csv")

	out, err := table.ReadCSV(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, append(pipeline.RequiredColumns(), pipeline.DefaultPredictionColumn), out.Header)
	require.Equal(t, len(rs), out.Len())

	want, err := env.p.PredictRecords(context.Background(), rs)
	require.NoError(t, err)
	for i, row := range out.Rows {
		got, err := strconv.ParseFloat(row[len(row)-1], 64)
		require.NoError(t, err)
		assert.InDelta(t, want[i], got, 1e-9, "row %d", i)
	}
}

func TestBatch_JSON(t *testing.T) {
	env := newTestEnv(t, func(c *Config) {
		c.Batch = pipeline.BatchOptions{PredictionColumn: "Nilai"}
	})
	rs := batchRecords()

	rec := env.upload(t, "/api/v1/predict/batch?format=json&lang=Indonesia", "siswa.csv", templateCSV(t, rs...))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp BatchResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, len(rs), resp.Rows)
	assert.Equal(t, "Nilai", resp.PredictionColumn)
	assert.Equal(t, "Prediksi berhasil untuk semua siswa!", resp.Message)

	want, err := env.p.PredictRecords(context.Background(), rs)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want, resp.Predictions, 1e-9)
	assert.Equal(t, len(rs), resp.Summary.Count)
}

func TestBatch_XLSX(t *testing.T) {
	env := newTestEnv(t, nil)
	rs := batchRecords()

	tbl, err := table.ReadCSV(bytes.NewReader(templateCSV(t, rs...)))
	require.NoError(t, err)

	f := excelize.NewFile()
	defer f.Close()
	for i, row := range append([][]string{tbl.Header}, tbl.Rows...) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	rec := env.upload(t, "/api/v1/predict/batch?format=json", "siswa.xlsx", buf.Bytes())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp BatchResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	want, err := env.p.PredictRecords(context.Background(), rs)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want, resp.Predictions, 1e-9)
}

func TestBatch_MissingColumns(t *testing.T) {
	env := newTestEnv(t, nil)

	tbl, err := table.ReadCSV(bytes.NewReader(templateCSV(t, batchRecords()...)))
	require.NoError(t, err)
	keep := &table.Table{Rows: make([][]string, tbl.Len())}
	for j, h := range tbl.Header {
		if strings.HasPrefix(h, features.ColGender+"_") {
			continue
		}
		keep.Header = append(keep.Header, h)
		for i := range tbl.Rows {
			keep.Rows[i] = append(keep.Rows[i], tbl.Rows[i][j])
		}
	}
	var buf bytes.Buffer
	require.NoError(t, table.WriteCSV(&buf, keep))

	rec := env.upload(t, "/api/v1/predict/batch", "siswa.csv", buf.Bytes())
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	body := decodeError(t, rec)
	assert.Equal(t, string(features.KindMissingColumns), body.Kind)
	assert.Equal(t, []string{"Gender_Female", "Gender_Male"}, body.Columns)
	assert.Equal(t, "Missing columns in file: Gender_Female, Gender_Male", body.Error)
}

func TestBatch_InvalidRow(t *testing.T) {
	env := newTestEnv(t, nil)

	csv := strings.Replace(string(templateCSV(t, batchRecords()...)), "High School", "PhD", 1)
	rec := env.upload(t, "/api/v1/predict/batch", "siswa.csv", []byte(csv))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	body := decodeError(t, rec)
	assert.Equal(t, string(features.KindInvalidCategory), body.Kind)
	assert.Equal(t, features.ColParentalEducationLevel, body.Field)
	assert.Equal(t, 1, body.Row)
}

func TestBatch_RequestErrors(t *testing.T) {
	t.Run("no file field", func(t *testing.T) {
		env := newTestEnv(t, nil)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/predict/batch", strings.NewReader("a=b"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		rec := env.do(req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, KindBadRequest, decodeError(t, rec).Kind)
	})

	t.Run("unsupported file type", func(t *testing.T) {
		env := newTestEnv(t, nil)
		rec := env.upload(t, "/api/v1/predict/batch", "siswa.txt", []byte("a,b\n1,2\n"))
		require.Equal(t, http.StatusBadRequest, rec.Code)

		body := decodeError(t, rec)
		assert.Equal(t, KindParseError, body.Kind)
		assert.True(t, strings.HasPrefix(body.Error, "Error processing file:"), body.Error)
	})

	t.Run("header only", func(t *testing.T) {
		env := newTestEnv(t, nil)
		rec := env.upload(t, "/api/v1/predict/batch", "siswa.csv", templateCSV(t))
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, string(features.KindEmptyTable), decodeError(t, rec).Kind)
	})

	t.Run("too large", func(t *testing.T) {
		env := newTestEnv(t, func(c *Config) { c.MaxUploadBytes = 64 })
		rec := env.upload(t, "/api/v1/predict/batch", "siswa.csv", templateCSV(t, batchRecords()...))
		require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Equal(t, KindTooLarge, decodeError(t, rec).Kind)
	})
}

func TestOptions(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/options?lang=Indonesia", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Language  string                       `json:"language"`
		Title     string                       `json:"title"`
		Options   map[string][]features.Option `json:"options"`
		Languages []string                     `json:"languages"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "Indonesia", resp.Language)
	assert.Equal(t, features.Languages(), resp.Languages)
	assert.Equal(t, []features.Option{
		{Label: "Laki-laki", Value: features.Male},
		{Label: "Perempuan", Value: features.Female},
	}, resp.Options[features.FieldGender])

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/v1/options", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "English", resp.Language)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/v1/options?lang=Klingon", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestTemplate(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/template", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "template_prediksi.csv")

	tbl, err := table.ReadCSV(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, pipeline.RequiredColumns(), tbl.Header)
	assert.Equal(t, 1, tbl.Len())
}

func TestHealthAndModelInfo(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var health HealthStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "sample", health.ModelVersion)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/model/info", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var info map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&info))
	assert.Equal(t, "sample", info["version"])
	assert.Len(t, info["features"], len(features.ModelColumns()))
	assert.Len(t, info["batch_columns"], len(pipeline.RequiredColumns()))
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	require.Equal(t, http.StatusOK, env.postJSON(t, "/api/v1/predict", englishRequest()).Code)
	bad := englishRequest()
	bad["gender"] = "Robot"
	require.Equal(t, http.StatusUnprocessableEntity, env.postJSON(t, "/api/v1/predict", bad).Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.HTTPRequests.WithLabelValues("/api/v1/predict", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.HTTPRequests.WithLabelValues("/api/v1/predict", "422")))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.Predictions.WithLabelValues(pipeline.ModeSingle)))

	rec := env.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	text := rec.Body.String()
	assert.Contains(t, text, "exam_predictions_total")
	assert.Contains(t, text, "exam_http_requests_total")
	assert.Contains(t, text, `exam_validation_errors_total{kind="invalid_category"} 1`)
}

func TestNotFound(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.HTTPRequests.WithLabelValues("unmatched", "404")))
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/predict"
}

func TestWebSocket(t *testing.T) {
	env := newTestEnv(t, nil)
	ts := httptest.NewServer(env.srv.Handler())
	defer ts.Close()

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	// prediction
	require.NoError(t, conn.WriteJSON(englishRequest()))
	var pred PredictResponse
	require.NoError(t, conn.ReadJSON(&pred))
	want, err := env.p.PredictOne(context.Background(), englishRecord())
	require.NoError(t, err)
	assert.InDelta(t, want, pred.Score, 1e-9)
	assert.NotEmpty(t, pred.RequestID)

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.WSConnections))

	// invalid input keeps the connection open
	bad := englishRequest()
	bad["lang"] = "Indonesia"
	bad["gender"] = "Male"
	bad["school_type"] = "Robot"
	require.NoError(t, conn.WriteJSON(bad))
	var failed ErrorResponse
	require.NoError(t, conn.ReadJSON(&failed))
	assert.Equal(t, string(features.KindInvalidCategory), failed.Kind)
	assert.True(t, strings.HasPrefix(failed.Error, "Input tidak valid:"), failed.Error)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	failed = ErrorResponse{}
	require.NoError(t, conn.ReadJSON(&failed))
	assert.Equal(t, KindBadRequest, failed.Kind)

	require.NoError(t, conn.WriteJSON(englishRequest()))
	pred = PredictResponse{}
	require.NoError(t, conn.ReadJSON(&pred))
	assert.InDelta(t, want, pred.Score, 1e-9)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(env.metrics.WSConnections) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocket_RejectsOrigin(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.AllowedOrigins = []string{"https://sekolah.example"} })
	ts := httptest.NewServer(env.srv.Handler())
	defer ts.Close()

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts), http.Header{"Origin": {"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	_, _ = io.Copy(io.Discard, resp.Body)

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(ts), http.Header{"Origin": {"https://sekolah.example"}})
	require.NoError(t, err)
	defer resp.Body.Close()
	conn.Close()
}
