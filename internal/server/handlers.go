package server

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/bizclone/internal/fault"
)

type createAnalysisRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleCreateAnalysis(w http.ResponseWriter, r *http.Request) {
	var req createAnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondFault(w, fault.Wrap(err, fault.KindValidation, "invalid request body"))
		return
	}
	out, err := s.svc.CreateAnalysis(r.Context(), ownerFrom(r.Context()), req.URL)
	if err != nil {
		respondFault(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, out)
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	rec, err := s.svc.GetAnalysis(r.Context(), ownerFrom(r.Context()), chi.URLParam(r, "analysisID"))
	if err != nil {
		respondFault(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)
	recs, err := s.svc.ListAnalyses(r.Context(), ownerFrom(r.Context()), limit, offset)
	if err != nil {
		respondFault(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"analyses": recs, "count": len(recs)})
}

func (s *Server) handleDeleteAnalysis(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteAnalysis(r.Context(), ownerFrom(r.Context()), chi.URLParam(r, "analysisID")); err != nil {
		respondFault(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGenerateStage(w http.ResponseWriter, r *http.Request) {
	stage, err := strconv.Atoi(chi.URLParam(r, "stage"))
	if err != nil {
		respondFault(w, fault.Newf(fault.KindValidation, "invalid stage: %q", chi.URLParam(r, "stage")))
		return
	}
	regenerate := r.URL.Query().Get("regenerate") == "true" || r.URL.Query().Get("regenerate") == "1"
	out, err := s.svc.GenerateStage(r.Context(), ownerFrom(r.Context()), chi.URLParam(r, "analysisID"), stage, regenerate)
	if err != nil {
		respondFault(w, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleGenerateImprovement(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.GenerateImprovement(r.Context(), ownerFrom(r.Context()), chi.URLParam(r, "analysisID"))
	if err != nil {
		respondFault(w, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			zap.L().Error("encode response", zap.Error(err))
		}
	}
}

type errorResponse struct {
	Error       string         `json:"error"`
	Kind        string         `json:"kind"`
	Retryable   bool           `json:"retryable"`
	RetryAfter  string         `json:"retry_after,omitempty"`
	Diagnostics map[string]any `json:"diagnostics,omitempty"`
}

// respondFault maps a fault kind to its HTTP status and renders the
// structured error body. Unclassified errors surface as 500 INTERNAL.
func respondFault(w http.ResponseWriter, err error) {
	f := fault.As(err)
	status := statusForKind(f.Kind)
	if status >= http.StatusInternalServerError {
		zap.L().Error("request failed", zap.String("kind", string(f.Kind)), zap.Error(err))
	}

	body := errorResponse{
		Error:       f.Message,
		Kind:        string(f.Kind),
		Retryable:   f.Retryable,
		Diagnostics: f.Diagnostics,
	}
	if f.RetryAfter > 0 {
		body.RetryAfter = f.RetryAfter.String()
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(f.RetryAfter.Seconds()))))
	}
	respondJSON(w, status, body)
}

func statusForKind(kind fault.Kind) int {
	switch kind {
	case fault.KindValidation:
		return http.StatusBadRequest
	case fault.KindNotFound:
		return http.StatusNotFound
	case fault.KindRateLimited:
		return http.StatusTooManyRequests
	case fault.KindProgressionViolation:
		return http.StatusConflict
	case fault.KindProviderTimeout:
		return http.StatusGatewayTimeout
	case fault.KindProviderDown, fault.KindQualityFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
