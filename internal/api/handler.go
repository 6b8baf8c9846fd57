// Package api serves the JSON HTTP API behind the sentiment dashboard.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/sentiment-dashboard/internal/core/domain"
	apperrors "github.com/lueurxax/sentiment-dashboard/internal/core/errors"
	"github.com/lueurxax/sentiment-dashboard/internal/dashboard"
	"github.com/lueurxax/sentiment-dashboard/internal/ingest/upload"
	"github.com/lueurxax/sentiment-dashboard/internal/output/export"
	"github.com/lueurxax/sentiment-dashboard/internal/platform/config"
	"github.com/lueurxax/sentiment-dashboard/internal/platform/observability"
	"github.com/lueurxax/sentiment-dashboard/internal/process/aggregate"
	db "github.com/lueurxax/sentiment-dashboard/internal/storage"
)

const (
	// PathPrefix is where the handler is mounted.
	PathPrefix = "/api/"

	sessionCookieName   = "sid"
	sessionCookieMaxAge = 30 * 24 * 60 * 60
	uploadFormField     = "file"
	multipartOverhead   = 1 << 20
	defaultUsageDays    = 1
	maxUsageDays        = 90

	// Route path constants.
	routeAnalyze  = "analyze"
	routeUpload   = "upload"
	routeResults  = "results"
	routeStats    = "stats"
	routeProgress = "progress"
	routeExport   = "export"
	routeEvents   = "events"
	routeUsage    = "usage"

	// Content type constants.
	contentTypeHeader = "Content-Type"
	contentTypeJSON   = "application/json; charset=utf-8"

	// Log field names.
	logFieldRoute  = "route"
	logFieldStatus = "status"

	// Error message constants.
	errMsgInternal        = "Something went wrong. Please try again."
	errMsgInProgress      = "An analysis is already running for this session."
	errMsgNothingToExport = "No data to export."
	errMsgUpstream        = "The sentiment classifier is unavailable. Please try again."
	errMsgUpstreamFormat  = "The sentiment classifier returned an unexpected response."
	errMsgUpstreamTimeout = "The sentiment classifier timed out. Please try again."
	errMsgPersistence     = "Results could not be saved. Please try again."
	errMsgCancelled       = "The request was cancelled."
	errMsgUnauthorized    = "Login token is invalid or expired."
	errMsgNotFound        = "Unknown API endpoint."
	errMsgUsageDisabled   = "Usage tracking is not enabled."
	errMsgNoText          = "Provide \"text\" or \"texts\"."
)

// UsageReader reports classifier token usage. It is satisfied by *db.DB.
type UsageReader interface {
	GetLLMUsageSince(ctx context.Context, since time.Time) (*db.LLMUsageSummary, error)
}

// Handler serves the dashboard API.
type Handler struct {
	sessions       *dashboard.Manager
	tokenService   *AuthTokenService
	usage          UsageReader
	uploadMaxBytes int64
	corsOrigin     string
	logger         *zerolog.Logger
	now            func() time.Time
}

// NewHandler creates the API handler. tokenService and usage may be nil:
// without a token service every caller is anonymous.
func NewHandler(cfg *config.Config, sessions *dashboard.Manager, tokenService *AuthTokenService, usage UsageReader, logger *zerolog.Logger) *Handler {
	if logger == nil {
		nopLogger := zerolog.Nop()
		logger = &nopLogger
	}

	maxBytes := cfg.UploadMaxBytes
	if maxBytes <= 0 {
		maxBytes = upload.DefaultMaxBytes
	}

	return &Handler{
		sessions:       sessions,
		tokenService:   tokenService,
		usage:          usage,
		uploadMaxBytes: maxBytes,
		corsOrigin:     cfg.CORSAllowedOrigin,
		logger:         logger,
		now:            time.Now,
	}
}

// ServeHTTP routes requests to API endpoints.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	h.setCORSHeaders(w)

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	route, status := h.dispatch(w, r)

	h.recordMetrics(route, status, start)
}

func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request) (route string, status int) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, PathPrefix), "/")

	switch path {
	case routeAnalyze:
		return routeAnalyze, h.withMethod(w, r, http.MethodPost, h.handleAnalyze)
	case routeUpload:
		return routeUpload, h.withMethod(w, r, http.MethodPost, h.handleUpload)
	case routeResults:
		return routeResults, h.withMethod(w, r, http.MethodGet, h.handleResults)
	case routeStats:
		return routeStats, h.withMethod(w, r, http.MethodGet, h.handleStats)
	case routeProgress:
		return routeProgress, h.withMethod(w, r, http.MethodGet, h.handleProgress)
	case routeExport:
		return routeExport, h.withMethod(w, r, http.MethodGet, h.handleExport)
	case routeEvents:
		return routeEvents, h.withMethod(w, r, http.MethodGet, h.handleEvents)
	case routeUsage:
		return routeUsage, h.withMethod(w, r, http.MethodGet, h.handleUsage)
	default:
		return "not_found", h.writeError(w, http.StatusNotFound, errMsgNotFound)
	}
}

func (h *Handler) withMethod(w http.ResponseWriter, r *http.Request, method string, next func(http.ResponseWriter, *http.Request) int) int {
	if r.Method != method {
		w.Header().Set("Allow", method+", "+http.MethodOptions)
		return h.writeError(w, http.StatusMethodNotAllowed, fmt.Sprintf("Use %s.", method))
	}

	return next(w, r)
}

// recordMetrics records request metrics.
func (h *Handler) recordMetrics(route string, status int, start time.Time) {
	observability.APILatency.WithLabelValues(route).Observe(time.Since(start).Seconds())
	observability.APIRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

func (h *Handler) setCORSHeaders(w http.ResponseWriter) {
	if h.corsOrigin == "" {
		return
	}

	hdr := w.Header()
	hdr.Set("Access-Control-Allow-Origin", h.corsOrigin)
	hdr.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
	hdr.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	hdr.Set("Access-Control-Expose-Headers", "Content-Disposition")

	if h.corsOrigin != "*" {
		hdr.Add("Vary", "Origin")
		hdr.Set("Access-Control-Allow-Credentials", "true")
	}
}

// session resolves the caller's session. On failure the error response has
// already been written and the status is returned.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*dashboard.Session, int) {
	id, status := h.identity(w, r)
	if status != 0 {
		return nil, status
	}

	s, err := h.sessions.Session(r.Context(), id)
	if err != nil {
		return nil, h.writeFailure(w, r, err)
	}

	return s, 0
}

func (h *Handler) identity(w http.ResponseWriter, r *http.Request) (dashboard.Identity, int) {
	if auth := r.Header.Get("Authorization"); auth != "" {
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || h.tokenService == nil {
			return dashboard.Identity{}, h.writeError(w, http.StatusUnauthorized, errMsgUnauthorized)
		}

		payload, err := h.tokenService.Verify(strings.TrimSpace(token))
		if err != nil {
			return dashboard.Identity{}, h.writeError(w, http.StatusUnauthorized, errMsgUnauthorized)
		}

		return dashboard.UserIdentity(payload.UserID), 0
	}

	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		return dashboard.AnonymousIdentity(cookie.Value), 0
	}

	sid, err := GenerateSessionToken()
	if err != nil {
		h.logger.Error().Err(err).Msg("generate session id failed")
		return dashboard.Identity{}, h.writeError(w, http.StatusInternalServerError, errMsgInternal)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sid,
		Path:     "/",
		MaxAge:   sessionCookieMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})

	return dashboard.AnonymousIdentity(sid), 0
}

type analyzeRequest struct {
	Text  *string  `json:"text"`
	Texts []string `json:"texts"`
}

type failureView struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
	Error string `json:"error"`
}

// AnalyzeResponse is the JSON payload for a completed run.
type AnalyzeResponse struct {
	Results  []domain.SentimentResult `json:"results"`
	Failures []failureView            `json:"failures"`
	Stats    domain.RunningStats      `json:"stats"`
	Badges   []domain.Badge           `json:"badges"`
}

func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) int {
	r.Body = http.MaxBytesReader(w, r.Body, h.uploadMaxBytes)

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return h.writeError(w, http.StatusBadRequest, "Request body must be JSON.")
	}

	var (
		texts []string
		err   error
	)

	switch {
	case len(req.Texts) > 0:
		texts, err = upload.Clean(req.Texts)
	case req.Text != nil:
		texts, err = upload.FreeText(*req.Text)
	default:
		return h.writeError(w, http.StatusBadRequest, errMsgNoText)
	}

	if err != nil {
		return h.writeFailure(w, r, err)
	}

	return h.analyze(w, r, texts)
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) int {
	r.Body = http.MaxBytesReader(w, r.Body, h.uploadMaxBytes+multipartOverhead)

	file, header, err := r.FormFile(uploadFormField)
	if err != nil {
		return h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Attach a .csv, .json or .txt file as %q.", uploadFormField))
	}
	defer file.Close()

	data, err := upload.ReadLimited(file, h.uploadMaxBytes)
	if err != nil {
		return h.writeFailure(w, r, err)
	}

	texts, err := upload.ParseFile(header.Filename, data)
	if err != nil {
		return h.writeFailure(w, r, err)
	}

	h.logger.Debug().Str("filename", header.Filename).Int("texts", len(texts)).Msg("upload parsed")

	return h.analyze(w, r, texts)
}

func (h *Handler) analyze(w http.ResponseWriter, r *http.Request, texts []string) int {
	s, status := h.session(w, r)
	if status != 0 {
		return status
	}

	out, err := s.Analyze(r.Context(), texts)
	if err != nil {
		return h.writeFailure(w, r, err)
	}

	failures := make([]failureView, 0, len(out.Failures))
	for _, f := range out.Failures {
		failures = append(failures, failureView{Index: f.Index, Text: f.Text, Error: publicMessage(f.Err)})
	}

	return h.writeJSON(w, http.StatusOK, AnalyzeResponse{
		Results:  out.Results,
		Failures: failures,
		Stats:    out.Stats,
		Badges:   out.Badges,
	})
}

func (h *Handler) handleResults(w http.ResponseWriter, r *http.Request) int {
	s, status := h.session(w, r)
	if status != 0 {
		return status
	}

	limit := parseLimit(r, db.DefaultResultsLimit)
	offset := parseOffset(r)

	results, err := s.Results(r.Context(), limit, offset)
	if err != nil {
		return h.writeFailure(w, r, err)
	}

	return h.writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"limit":   limit,
		"offset":  offset,
	})
}

// StatsResponse is the JSON payload for the stats endpoint.
type StatsResponse struct {
	Stats   domain.RunningStats      `json:"stats"`
	Badges  []domain.Badge           `json:"badges"`
	Summary []aggregate.LabelSummary `json:"summary"`
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) int {
	s, status := h.session(w, r)
	if status != 0 {
		return status
	}

	snap := s.Snapshot()

	return h.writeJSON(w, http.StatusOK, StatsResponse{
		Stats:   snap.Stats,
		Badges:  snap.Badges,
		Summary: snap.Summary,
	})
}

func (h *Handler) handleProgress(w http.ResponseWriter, r *http.Request) int {
	s, status := h.session(w, r)
	if status != 0 {
		return status
	}

	progress, analyzing := s.Progress()

	return h.writeJSON(w, http.StatusOK, map[string]any{
		"progress":  progress,
		"analyzing": analyzing,
	})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) int {
	format := export.FormatCSV

	if raw := r.URL.Query().Get("format"); raw != "" {
		f, err := export.ParseFormat(raw)
		if err != nil {
			return h.writeFailure(w, r, err)
		}

		format = f
	}

	s, status := h.session(w, r)
	if status != 0 {
		return status
	}

	art, err := export.Export(s.History(), format, h.now())
	if err != nil {
		return h.writeFailure(w, r, err)
	}

	w.Header().Set(contentTypeHeader, art.MimeType+"; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.Filename))
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(art.Content); err != nil {
		h.logger.Warn().Err(err).Msg("write export failed")
	}

	return http.StatusOK
}

func (h *Handler) handleUsage(w http.ResponseWriter, r *http.Request) int {
	if h.usage == nil {
		return h.writeError(w, http.StatusNotFound, errMsgUsageDisabled)
	}

	days := defaultUsageDays
	if raw := strings.TrimSpace(r.URL.Query().Get("days")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return h.writeError(w, http.StatusBadRequest, "days must be a positive integer.")
		}

		days = min(n, maxUsageDays)
	}

	since := h.now().AddDate(0, 0, -(days - 1))

	summary, err := h.usage.GetLLMUsageSince(r.Context(), since)
	if err != nil {
		h.logger.Error().Err(err).Msg("get llm usage failed")
		return h.writeError(w, http.StatusServiceUnavailable, errMsgPersistence)
	}

	return h.writeJSON(w, http.StatusOK, summary)
}

// statusFor maps an error to its HTTP status and user-facing message.
func statusFor(err error) (int, string) {
	switch {
	case apperrors.Is(err, apperrors.ErrInvalidInput):
		return http.StatusBadRequest, userMessage(err)
	case apperrors.Is(err, apperrors.ErrAnalysisInProgress):
		return http.StatusConflict, errMsgInProgress
	case apperrors.Is(err, apperrors.ErrNothingToExport):
		return http.StatusNotFound, errMsgNothingToExport
	case apperrors.Is(err, apperrors.ErrUpstreamTransport) && apperrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, errMsgUpstreamTimeout
	case apperrors.Is(err, apperrors.ErrUpstreamTransport):
		return http.StatusBadGateway, errMsgUpstream
	case apperrors.Is(err, apperrors.ErrUpstreamFormat):
		return http.StatusBadGateway, errMsgUpstreamFormat
	case apperrors.Is(err, apperrors.ErrPersistence):
		return http.StatusServiceUnavailable, errMsgPersistence
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout, errMsgCancelled
	default:
		return http.StatusInternalServerError, errMsgInternal
	}
}

// publicMessage is the message shown for err.
func publicMessage(err error) string {
	_, msg := statusFor(err)
	return msg
}

// userMessage renders an input validation error as a sentence.
func userMessage(err error) string {
	msg := strings.TrimPrefix(err.Error(), apperrors.ErrInvalidInput.Error()+": ")
	if msg == "" || msg == apperrors.ErrInvalidInput.Error() {
		return "Invalid input."
	}

	return strings.ToUpper(msg[:1]) + msg[1:] + "."
}

func (h *Handler) writeFailure(w http.ResponseWriter, r *http.Request, err error) int {
	status, msg := statusFor(err)

	event := h.logger.Warn()
	if status >= http.StatusInternalServerError {
		event = h.logger.Error()
	}

	event.Err(err).Str(logFieldRoute, r.URL.Path).Int(logFieldStatus, status).Msg("api request failed")

	return h.writeError(w, status, msg)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) int {
	w.Header().Set(contentTypeHeader, contentTypeJSON)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error().Err(err).Msg("write json failed")
	}

	return status
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) int {
	return h.writeJSON(w, status, map[string]string{"error": message})
}

func parseLimit(r *http.Request, fallback int) int {
	val := strings.TrimSpace(r.URL.Query().Get("limit"))
	if val == "" {
		return fallback
	}

	num, err := strconv.Atoi(val)
	if err != nil || num <= 0 {
		return fallback
	}

	if num > db.MaxResultsLimit {
		return db.MaxResultsLimit
	}

	return num
}

func parseOffset(r *http.Request) int {
	val := strings.TrimSpace(r.URL.Query().Get("offset"))
	if val == "" {
		return 0
	}

	num, err := strconv.Atoi(val)
	if err != nil || num < 0 {
		return 0
	}

	return num
}
