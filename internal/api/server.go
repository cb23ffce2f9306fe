// Package api exposes the shopping workflow over HTTP.
package api

import (
	"context"
	"net/http"

	"meal-shopper/internal/metrics"
	"meal-shopper/internal/pricing"
	"meal-shopper/internal/session"
	"meal-shopper/internal/workflow"
)

// Workflow is the part of workflow.Controller the handlers use.
type Workflow interface {
	Create(ctx context.Context, preferences string, days *int) (workflow.Created, error)
	ReportPrices(ctx context.Context, id string, prices []pricing.Observation) (*pricing.Decision, error)
	Inspect(ctx context.Context, id string) (*session.Session, error)
	Delete(ctx context.Context, id string) error
	ActiveSessions(ctx context.Context) (int, error)
}

// Options configures a Server. Zero values disable the optional parts.
type Options struct {
	CORSOrigins []string
	MaxPlanDays int
	Collectors  *metrics.Collectors
	Usage       *metrics.Store
	DataPath    string
}

// Server routes HTTP requests to the workflow.
type Server struct {
	wf   Workflow
	opts Options
	mux  *http.ServeMux
}

// NewServer creates a Server and registers all routes.
func NewServer(wf Workflow, opts Options) *Server {
	s := &Server{wf: wf, opts: opts, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	for _, prefix := range []string{"", "/api"} {
		s.mux.HandleFunc("POST "+prefix+"/price-report", s.handlePriceReport)
		s.mux.HandleFunc("GET "+prefix+"/session/{id}", s.handleGetSession)
		s.mux.HandleFunc("DELETE "+prefix+"/session/{id}", s.handleDeleteSession)
	}
	s.mux.HandleFunc("POST /plan", s.handlePlan)
	s.mux.HandleFunc("POST /api/generate-plan", s.handlePlan)
	s.mux.HandleFunc("GET /health", s.handleHealth)

	if s.opts.Collectors != nil {
		s.mux.Handle("GET /metrics", s.opts.Collectors.Handler())
	}
	if s.opts.Usage != nil {
		s.mux.HandleFunc("GET /admin/usage", s.handleUsage)
	}
}

// Handle mounts an extra handler, e.g. the Telegram webhook.
func (s *Server) Handle(pattern string, h http.Handler) {
	s.mux.Handle(pattern, h)
}

// Handler returns the routes wrapped in the middleware stack.
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		withInstrumentation(s.opts.Collectors),
		withCORS(s.opts.CORSOrigins),
		withRecover,
	)
}
