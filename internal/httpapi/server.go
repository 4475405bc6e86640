// Package httpapi exposes the progression engine over HTTP and websockets.
package httpapi

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/xzeeeeen/HM/internal/catalog"
	"github.com/xzeeeeen/HM/internal/engine"
	"github.com/xzeeeeen/HM/internal/notify"
	"github.com/xzeeeeen/HM/internal/progress"
	"github.com/xzeeeeen/HM/internal/report"
	"github.com/xzeeeeen/HM/internal/unlock"
)

const (
	healthTimeout  = 2 * time.Second
	maxRequestBody = 1 << 20
	xlsxType       = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Catalog is the course lookup the API serves from.
type Catalog interface {
	Course(id string) (catalog.Course, bool)
	Published(category string) []catalog.Course
}

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Config holds dependencies for the HTTP API.
type Config struct {
	Engine  *engine.Engine
	Catalog Catalog
	// Hub serves the notification websocket. Without it the endpoint
	// responds 404.
	Hub     *notify.Hub
	Checks  map[string]HealthChecker
}

// Server routes HTTP requests to the engine.
type Server struct {
	engine  *engine.Engine
	catalog Catalog
	hub     *notify.Hub
	checks  map[string]HealthChecker
}

// NewServer creates the API server.
func NewServer(cfg Config) *Server {
	return &Server{
		engine:  cfg.Engine,
		catalog: cfg.Catalog,
		hub:     cfg.Hub,
		checks:  cfg.Checks,
	}
}

// Handler returns the HTTP router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	mux.HandleFunc("GET /courses", s.handleListCourses)
	mux.HandleFunc("GET /courses/{courseID}", s.handleGetCourse)

	mux.HandleFunc("GET /learners/{learnerID}/progress", s.handleGetProgress)
	mux.HandleFunc("GET /learners/{learnerID}/courses/{courseID}/view", s.handleGetView)
	mux.HandleFunc("POST /learners/{learnerID}/courses/{courseID}/lessons/{lessonID}/complete", s.handleCompleteLesson)
	mux.HandleFunc("POST /learners/{learnerID}/courses/{courseID}/modules/{moduleID}/quizzes/{quizID}/submissions", s.handleSubmitQuiz)
	mux.HandleFunc("GET /learners/{learnerID}/report.xlsx", s.handleReport)
	mux.HandleFunc("GET /learners/{learnerID}/notifications", s.handleNotifications)
	return mux
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	failed := map[string]string{}
	for name, check := range s.checks {
		if err := check.HealthCheck(ctx); err != nil {
			slog.Warn("readiness check failed", "check", name, "error", err)
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "unavailable",
			"checks": failed,
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

type courseSummary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Category    string `json:"category"`
	Description string `json:"description,omitempty"`
	Modules     int    `json:"modules"`
}

func (s *Server) handleListCourses(w http.ResponseWriter, r *http.Request) {
	courses := s.catalog.Published(r.URL.Query().Get("category"))
	out := make([]courseSummary, 0, len(courses))
	for _, c := range courses {
		out = append(out, courseSummary{
			ID:          c.ID,
			Title:       c.Title,
			Category:    c.Category,
			Description: c.Description,
			Modules:     len(c.Modules),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	course, ok := s.catalog.Course(r.PathValue("courseID"))
	if !ok || !course.Published() {
		writeError(w, http.StatusNotFound, "course not found")
		return
	}
	writeJSON(w, http.StatusOK, course.WithoutAnswers())
}

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	p, err := s.engine.Progress(r.Context(), r.PathValue("learnerID"))
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleGetView serves the unlock view with a content ETag so clients can
// poll it on every render.
func (s *Server) handleGetView(w http.ResponseWriter, r *http.Request) {
	view, err := s.engine.View(r.Context(), r.PathValue("learnerID"), r.PathValue("courseID"))
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}

	body, err := json.Marshal(view)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	etag := etagOf(body)
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

type snapshotResponse struct {
	Progress *progress.Progress `json:"progress"`
	View     unlock.CourseView  `json:"view"`
}

func (s *Server) handleCompleteLesson(w http.ResponseWriter, r *http.Request) {
	courseID := r.PathValue("courseID")
	p, err := s.engine.CompleteLesson(r.Context(), r.PathValue("learnerID"), courseID, r.PathValue("lessonID"))
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.snapshot(courseID, p))
}

type submissionRequest struct {
	Answers map[string]string `json:"answers"`
}

type submissionResponse struct {
	Result engine.Result `json:"result"`
	snapshotResponse
}

func (s *Server) handleSubmitQuiz(w http.ResponseWriter, r *http.Request) {
	var req submissionRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	courseID := r.PathValue("courseID")
	res, p, err := s.engine.SubmitQuiz(r.Context(),
		r.PathValue("learnerID"),
		courseID,
		r.PathValue("moduleID"),
		r.PathValue("quizID"),
		req.Answers,
	)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, submissionResponse{
		Result:           res,
		snapshotResponse: s.snapshot(courseID, p),
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	learnerID := r.PathValue("learnerID")
	p, err := s.engine.Progress(r.Context(), learnerID)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxType)
	w.Header().Set("Content-Disposition", `attachment; filename="progress-`+learnerID+`.xlsx"`)
	if err := report.Write(w, s.catalog.Published(""), p); err != nil {
		slog.Error("failed to write report", "learner_id", learnerID, "error", err)
	}
}

func (s *Server) snapshot(courseID string, p *progress.Progress) snapshotResponse {
	resp := snapshotResponse{Progress: p}
	if course, ok := s.catalog.Course(courseID); ok {
		resp.View = unlock.Compute(course, p)
	}
	return resp
}

func (s *Server) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, engine.ErrLookup):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrPolicyViolation):
		writeError(w, http.StatusConflict, err.Error())
	default:
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

func etagOf(body []byte) string {
	sum := blake2b.Sum256(body)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}
