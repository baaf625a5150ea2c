package server

import (
	"errors"
	"net/http"
	"strings"

	"exam-score/internal/features"
	"exam-score/internal/table"
)

// Error kinds produced at the HTTP boundary.
const (
	KindBadRequest = "bad_request"
	KindParseError = "parse_error"
	KindTooLarge   = "too_large"
	KindInternal   = "internal"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error     string   `json:"error"`
	Kind      string   `json:"kind"`
	Field     string   `json:"field,omitempty"`
	Row       int      `json:"row,omitempty"`
	Columns   []string `json:"columns,omitempty"`
	RequestID string   `json:"request_id,omitempty"`
}

// requestError is a malformed request that never reached the pipeline.
type requestError struct {
	err error
}

func (e *requestError) Error() string {
	return e.err.Error()
}

func (e *requestError) Unwrap() error {
	return e.err
}

func badRequest(err error) error {
	return &requestError{err: err}
}

// errorResponse maps err to a status code and a body prefixed with the localized message.
func errorResponse(err error, labels *features.Labels) (int, ErrorResponse) {
	var (
		ve  *features.ValidationError
		pe  *features.PipelineError
		tpe *table.ParseError
		mbe *http.MaxBytesError
		re  *requestError
	)
	localized := func(key string) string {
		return labels.Message(key) + " " + err.Error()
	}

	switch {
	case errors.As(err, &ve):
		resp := ErrorResponse{
			Error:   localized(features.MsgInvalidInput),
			Kind:    string(ve.Kind),
			Field:   ve.Field,
			Row:     ve.Row,
			Columns: ve.Columns,
		}
		if ve.Kind == features.KindMissingColumns {
			resp.Error = labels.Message(features.MsgMissingColumns) + " " + strings.Join(ve.Columns, ", ")
		}
		return http.StatusUnprocessableEntity, resp
	case errors.As(err, &mbe):
		return http.StatusRequestEntityTooLarge, ErrorResponse{Error: localized(features.MsgFileError), Kind: KindTooLarge}
	case errors.As(err, &tpe):
		return http.StatusBadRequest, ErrorResponse{Error: localized(features.MsgFileError), Kind: KindParseError}
	case errors.As(err, &re):
		return http.StatusBadRequest, ErrorResponse{Error: localized(features.MsgInvalidInput), Kind: KindBadRequest}
	case errors.As(err, &pe):
		return http.StatusInternalServerError, ErrorResponse{Error: localized(features.MsgPredictFailed), Kind: string(pe.Kind)}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: localized(features.MsgPredictFailed), Kind: KindInternal}
	}
}
