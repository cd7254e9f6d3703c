package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/scout-pos/geo-analytics/internal/analytics"
	"github.com/scout-pos/geo-analytics/internal/model"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("encode response", zap.Error(err))
	}
}

// writeError maps error kinds to statuses: validation 400, consistency 409,
// store dependency 502, anything else 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case eris.Is(err, model.ErrValidation):
		status = http.StatusBadRequest
	case eris.Is(err, model.ErrConsistency):
		status = http.StatusConflict
	case eris.Is(err, model.ErrDependency):
		status = http.StatusBadGateway
	}
	s.log.Warn("request failed", zap.Int("status", status), zap.Error(err))
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.writeError(w, model.Dependency(err, "store unreachable"))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var data []byte
	if key := r.URL.Query().Get("key"); key != "" {
		var err error
		data, err = s.readDataFile(key)
		if err != nil {
			s.writeError(w, err)
			return
		}
	} else {
		var err error
		data, err = io.ReadAll(r.Body)
		if err != nil {
			s.writeError(w, model.Validationf("read request body: %s", err.Error()))
			return
		}
	}

	report, err := s.ingestor.IngestGeoJSON(r.Context(), data)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   fmt.Sprintf("Ingested %d admin2 boundaries", report.Inserted),
		"regions":   report.Regions,
		"provinces": report.Provinces,
	})
}

// readDataFile resolves a storage key inside the configured data directory.
func (s *Server) readDataFile(key string) ([]byte, error) {
	clean := filepath.Clean(key)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return nil, model.Validationf("invalid storage key %q", key)
	}
	data, err := os.ReadFile(filepath.Join(s.dataDir, clean))
	if err != nil {
		return nil, model.Validationf("storage key %q: %s", key, err.Error())
	}
	return data, nil
}

func (s *Server) handleChoropleth(w http.ResponseWriter, r *http.Request) {
	dr, metric, err := s.queryParams(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp, err := s.classifier.Choropleth(r.Context(), dr, metric)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDotstrip(w http.ResponseWriter, r *http.Request) {
	dr, metric, err := s.queryParams(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	limit := analytics.DefaultRankLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			s.writeError(w, model.Validationf("invalid limit %q", raw))
			return
		}
	}
	resp, err := s.classifier.Dotstrip(r.Context(), dr, metric, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if !s.refreshLimiter.Allow() {
		s.writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "refresh rate limit exceeded"})
		return
	}
	report, err := s.orchestrator.Run(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

// queryParams reads from/to/metric with the documented defaults: the last
// 30 days and the sales metric.
func (s *Server) queryParams(r *http.Request) (model.DateRange, model.Metric, error) {
	q := r.URL.Query()
	now := s.now().UTC()

	from := q.Get("from")
	if from == "" {
		from = now.AddDate(0, 0, -30).Format(model.DateLayout)
	}
	to := q.Get("to")
	if to == "" {
		to = now.Format(model.DateLayout)
	}
	dr := model.DateRange{From: from, To: to}
	if err := dr.Validate(); err != nil {
		return model.DateRange{}, "", err
	}

	name := q.Get("metric")
	if name == "" {
		name = string(model.MetricSales)
	}
	metric, err := model.ParseMetric(name)
	if err != nil {
		return model.DateRange{}, "", err
	}
	return dr, metric, nil
}
