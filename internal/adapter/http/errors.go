package http

import (
	"errors"
	"net/http"

	"github.com/couchcryptid/agalert-service/internal/domain"
	"github.com/couchcryptid/agalert-service/internal/pipeline"
)

type errorBody struct {
	Error string   `json:"error"`
	Value string   `json:"value,omitempty"`
	Valid []string `json:"valid,omitempty"`
}

// statusFor maps a service error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnknownDistrict), errors.Is(err, domain.ErrUnknownCrop):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidCropForDistrict),
		errors.Is(err, domain.ErrInvalidForecastHorizon),
		errors.Is(err, domain.ErrUnsupportedChannel),
		errors.Is(err, domain.ErrInvalidDate):
		return http.StatusUnprocessableEntity
	case errors.Is(err, pipeline.ErrForecastUnavailable), errors.Is(err, domain.ErrIncompleteForecastData):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error()}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		body.Value = verr.Value
		body.Valid = verr.Valid
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
		if status == http.StatusInternalServerError {
			body.Error = "internal error"
		}
	} else {
		s.logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, body)
}
