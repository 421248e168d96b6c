package httpadapter

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/kirillkom/resume-fraud-screener/internal/config"
	"github.com/kirillkom/resume-fraud-screener/internal/core/ports"
	"github.com/kirillkom/resume-fraud-screener/internal/observability/metrics"
)

type Router struct {
	cfg      config.Config
	ingestUC ports.ResumeIngestor
	analyzer ports.FraudAnalyzer
	resumes  ports.ResumeReader
	metrics  *metrics.HTTPServerMetrics
	openapi  *requestValidator
}

type RouterOption func(*Router)

// WithMetrics instruments every request and serves /metrics from m's registry.
func WithMetrics(m *metrics.HTTPServerMetrics) RouterOption {
	return func(rt *Router) { rt.metrics = m }
}

func NewRouter(
	cfg config.Config,
	ingestUC ports.ResumeIngestor,
	analyzer ports.FraudAnalyzer,
	resumes ports.ResumeReader,
	opts ...RouterOption,
) *Router {
	rt := &Router{
		cfg:      cfg,
		ingestUC: ingestUC,
		analyzer: analyzer,
		resumes:  resumes,
	}
	for _, opt := range opts {
		opt(rt)
	}
	if cfg.OpenAPIValidation {
		validator, err := newRequestValidator()
		if err != nil {
			// The document is embedded, so this only fires on a broken build.
			panic(err)
		}
		rt.openapi = validator
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/resumes", rt.uploadResume)
	mux.HandleFunc("/v1/resumes/", rt.getResumeByID)
	mux.HandleFunc("/v1/fraud/analyze", rt.analyzePDF)
	mux.HandleFunc("/v1/fraud/analyze-text", rt.analyzeText)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, rt.cfg.APIBackpressureWait, rt.onReject)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst, rt.onReject)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) onReject(reason string) {
	if rt.metrics != nil {
		rt.metrics.RecordRejected(reason)
	}
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadResume(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	file, filename, mimeType, ok := rt.readUpload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	resume, err := rt.ingestUC.Upload(r.Context(), filename, mimeType, file)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, resume)
}

func (rt *Router) getResumeByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/resumes/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "resume id is required"})
		return
	}

	resume, err := rt.resumes.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resume)
}

func (rt *Router) analyzePDF(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	file, _, _, ok := rt.readUpload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	report, err := rt.analyzer.AnalyzePDF(r.Context(), file)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type analyzeTextRequest struct {
	Text string `json:"text"`
}

func (rt *Router) analyzeText(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if rt.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.MaxUploadBytes)
	}
	if rt.openapi != nil {
		if err := rt.openapi.validate(r); err != nil {
			if isBodyTooLarge(err) {
				writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "request body too large"})
				return
			}
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
	}

	var req analyzeTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if isBodyTooLarge(err) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "request body too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text is required"})
		return
	}

	report, err := rt.analyzer.AnalyzeText(r.Context(), req.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// readUpload pulls the multipart "file" field, writing the error response
// itself when the request is unusable.
func (rt *Router) readUpload(w http.ResponseWriter, r *http.Request) (multipart.File, string, string, bool) {
	if rt.cfg.MaxUploadBytes > 0 {
		// Multipart framing adds a little on top of the file itself.
		r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.MaxUploadBytes+64*1024)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		if isBodyTooLarge(err) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "upload too large"})
			return nil, "", "", false
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return nil, "", "", false
	}
	if rt.cfg.MaxUploadBytes > 0 && header.Size > rt.cfg.MaxUploadBytes {
		_ = file.Close()
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "upload too large"})
		return nil, "", "", false
	}
	if rt.metrics != nil {
		rt.metrics.RecordUpload(r.URL.Path, header.Size)
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/pdf"
	}
	return file, header.Filename, mimeType, true
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		slog.Error("request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
		if status == http.StatusInternalServerError {
			message = "internal error"
		}
	}
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
