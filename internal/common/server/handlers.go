package server

import (
	"encoding/json"
	"net/http"
	"time"

	apperrors "clientatech-agent/internal/common/errors"
	"clientatech-agent/internal/models"
)

type queryRequest struct {
	Question string `json:"question"`
}

type errorBody struct {
	Code    apperrors.ErrorCode `json:"code"`
	Message string              `json:"message"`
}

var faultStatus = map[apperrors.ErrorCode]int{
	apperrors.ErrCodeInvalidQuery:       http.StatusBadRequest,
	apperrors.ErrCodeGenerationFault:    http.StatusUnprocessableEntity,
	apperrors.ErrCodeExecutionFault:     http.StatusBadGateway,
	apperrors.ErrCodeBackendUnavailable: http.StatusServiceUnavailable,
	apperrors.ErrCodeRequestCancelled:   http.StatusRequestTimeout,
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondFault(w, apperrors.NewInvalidQueryError("invalid request body"))
		return
	}

	resp, err := s.queries.Handle(r.Context(), models.NewQuery(req.Question, time.Now()))
	if err != nil {
		s.respondFault(w, apperrors.Normalize(err))
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePurge(w http.ResponseWriter, r *http.Request) {
	purged, err := s.store.Purge(r.Context())
	if err != nil {
		s.respondFault(w, apperrors.NewCacheFault("purge", err))
		return
	}
	s.logger.Info("cache invalidated", map[string]interface{}{"purged": purged, "source": "http"})
	s.respondJSON(w, http.StatusOK, map[string]int{"purged": purged})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	results := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(r.Context()); err != nil {
			status = http.StatusServiceUnavailable
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}
	s.respondJSON(w, status, map[string]interface{}{"ready": status == http.StatusOK, "checks": results})
}

// respondFault writes only the code and the user-safe message. Details stay
// in the logs.
func (s *Server) respondFault(w http.ResponseWriter, fault *apperrors.StandardError) {
	status, ok := faultStatus[fault.Code]
	if !ok {
		status = http.StatusInternalServerError
	}
	s.respondJSON(w, status, map[string]errorBody{
		"error": {Code: fault.Code, Message: fault.Message},
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("encode response failed", map[string]interface{}{"error": err.Error()})
	}
}
