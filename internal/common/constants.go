package common

import "time"

// Environment variable keys
const (
	EnvConfigFile         = "CONFIG_FILE"
	EnvArtifactDir        = "ARTIFACT_DIR"
	EnvDataPath           = "DATA_PATH"
	EnvRemoteModelURL     = "REMOTE_MODEL_URL"
	EnvRemoteModelTimeout = "REMOTE_MODEL_TIMEOUT"
	EnvHTTPPort           = "HTTP_PORT"
	EnvMaxUploadMB        = "MAX_UPLOAD_MB"
	EnvPredictionColumn   = "PREDICTION_COLUMN"
	EnvKeepDerived        = "KEEP_DERIVED"
	EnvDefaultLanguage    = "DEFAULT_LANGUAGE"
	EnvLogLevel           = "LOG_LEVEL"
	EnvAllowedOrigins     = "ALLOWED_ORIGINS"
	EnvReadTimeout        = "READ_TIMEOUT"
	EnvWriteTimeout       = "WRITE_TIMEOUT"
	EnvRequestTimeout     = "REQUEST_TIMEOUT"
)

// Configuration defaults
const (
	DefaultArtifactDir        = "artifacts"
	DefaultHTTPPort           = 8080
	DefaultMaxUploadMB        = 10
	DefaultPredictionColumn   = "Predicted_Exam_Score"
	DefaultLanguage           = "Indonesia"
	DefaultLogLevel           = "info"
	DefaultRemoteModelTimeout = 5 * time.Second
	DefaultReadTimeout        = 15 * time.Second
	DefaultWriteTimeout       = 60 * time.Second
	DefaultRequestTimeout     = 30 * time.Second
)

// Output conventions
const (
	BatchResultFilename = "hasil_prediksi.csv"
	TemplateFilename    = "template_prediksi.csv"
	VersionLayout       = "20060102-150405"
)
