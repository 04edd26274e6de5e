package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/couchcryptid/agalert-service/internal/domain"
	"github.com/couchcryptid/agalert-service/internal/pipeline"
	"github.com/couchcryptid/agalert-service/internal/render"
)

const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("bad request")

type messagesRequest struct {
	Alert    domain.Alert `json:"alert"`
	Channels []string     `json:"channels"`
}

type messagesResponse struct {
	Messages map[render.Channel]render.ChannelMessage `json:"messages"`
}

func (s *Server) handleListDistricts(w http.ResponseWriter, _ *http.Request) {
	districts := s.svc.ListDistricts()
	writeJSON(w, http.StatusOK, map[string]any{"districts": districts, "count": len(districts)})
}

func (s *Server) handleDistrictCrops(w http.ResponseWriter, r *http.Request) {
	crops, err := s.svc.DistrictCrops(chi.URLParam(r, "district"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, crops)
}

func (s *Server) handleCropCalendar(w http.ResponseWriter, r *http.Request) {
	var planting time.Time
	if v := r.URL.Query().Get("planted"); v != "" {
		d, err := domain.ParseDate(v)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		planting = d
	}
	on := domain.DateOnly(s.clock.Now())
	if v := r.URL.Query().Get("on"); v != "" {
		d, err := domain.ParseDate(v)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		on = d
	}

	cal, err := s.svc.CropCalendar(chi.URLParam(r, "crop"), planting, on)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cal)
}

func (s *Server) handleGenerateAlert(w http.ResponseWriter, r *http.Request) {
	var req pipeline.AlertRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format != "" && format != "json" && format != "csv" {
		s.writeError(w, r, domain.NewValidationError(errBadRequest, format, []string{"json", "csv"}))
		return
	}

	res, err := s.svc.GenerateAlert(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if format == "csv" {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "alert-"+res.Alert.ID+".csv"))
		w.WriteHeader(http.StatusOK)
		if err := render.ExportCSV(w, res.Alert); err != nil {
			s.logger.Warn("csv export failed", "alert_id", res.Alert.ID, "error", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleRenderMessages(w http.ResponseWriter, r *http.Request) {
	var req messagesRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Alert.District) == "" {
		s.writeError(w, r, fmt.Errorf("%w: alert.district is required", errBadRequest))
		return
	}
	if len(req.Channels) == 0 {
		req.Channels = render.ChannelNames()
	}

	msgs, err := s.svc.RenderMessages(r.Context(), req.Alert, req.Channels)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messagesResponse{Messages: msgs})
}

func (s *Server) handleHelp(w http.ResponseWriter, r *http.Request) {
	topics := s.svc.HelpTopics()
	name := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("topic")))
	if name == "" {
		writeJSON(w, http.StatusOK, map[string]any{"topics": topics})
		return
	}
	body, ok := topics[name]
	if !ok {
		valid := make([]string, 0, len(topics))
		for k := range topics {
			valid = append(valid, k)
		}
		sort.Strings(valid)
		writeJSON(w, http.StatusNotFound, errorBody{Error: "unknown help topic", Value: name, Valid: valid})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"topic": name, "body": body})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %w", errBadRequest, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: body must hold a single JSON object", errBadRequest)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}
