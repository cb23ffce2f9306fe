package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"meal-shopper/internal/metrics"
	"meal-shopper/internal/planner"
	"meal-shopper/internal/pricing"
)

const (
	maxBodyBytes       = 1 << 20
	defaultPreferences = "a standard 3-day meal plan"
	defaultUsageDays   = 7
)

type planRequest struct {
	Preferences string `json:"preferences"`
	Days        *int   `json:"days"`
}

type planResponse struct {
	SessionID string       `json:"session_id"`
	MealPlan  planner.Plan `json:"meal_plan"`
	Message   string       `json:"message"`
}

type priceReportRequest struct {
	SessionID string       `json:"session_id"`
	Prices    []priceInput `json:"prices"`
}

// priceInput is an observation as submitted. Pointers distinguish omitted
// fields from zero values.
type priceInput struct {
	Ingredient string           `json:"ingredient"`
	Store      string           `json:"store"`
	Price      *decimal.Decimal `json:"price"`
	UnitPrice  *decimal.Decimal `json:"unit_price"`
	Unit       string           `json:"unit"`
	URL        string           `json:"url"`
	Available  *bool            `json:"available"`
}

func (p priceInput) available() bool {
	return p.Available == nil || *p.Available
}

func (p priceInput) observation() pricing.Observation {
	o := pricing.Observation{
		Ingredient: p.Ingredient,
		Store:      p.Store,
		Unit:       p.Unit,
		URL:        p.URL,
		Available:  p.available(),
	}
	if p.Price != nil {
		o.Price = *p.Price
	}
	if p.UnitPrice != nil {
		o.UnitPrice = *p.UnitPrice
	}
	return o
}

type messageResponse struct {
	Message string `json:"message"`
}

type healthResponse struct {
	Status         string `json:"status"`
	ActiveSessions int    `json:"active_sessions"`
	Timestamp      string `json:"timestamp"`
}

type usageResponse struct {
	Days       int                  `json:"days"`
	DailyUsage []metrics.DailyUsage `json:"daily_usage"`
	System     metrics.SysHealth    `json:"system"`
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.validatePlan(&req); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.wf.Create(r.Context(), req.Preferences, req.Days)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, planResponse{
		SessionID: created.SessionID,
		MealPlan:  created.MealPlan,
		Message:   created.Message,
	})
}

func (s *Server) validatePlan(req *planRequest) error {
	req.Preferences = strings.TrimSpace(req.Preferences)
	if req.Preferences == "" {
		req.Preferences = defaultPreferences
	}
	if req.Days == nil {
		return nil
	}
	if *req.Days < 1 {
		return invalid("days", "must be a positive integer")
	}
	if s.opts.MaxPlanDays > 0 && *req.Days > s.opts.MaxPlanDays {
		return invalid("days", "must not exceed %d", s.opts.MaxPlanDays)
	}
	return nil
}

func (s *Server) handlePriceReport(w http.ResponseWriter, r *http.Request) {
	var req priceReportRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validatePriceReport(req); err != nil {
		writeError(w, r, err)
		return
	}

	prices := make([]pricing.Observation, 0, len(req.Prices))
	for _, p := range req.Prices {
		prices = append(prices, p.observation())
	}

	decision, err := s.wf.ReportPrices(r.Context(), req.SessionID, prices)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, decision)
}

func validatePriceReport(req priceReportRequest) error {
	if strings.TrimSpace(req.SessionID) == "" {
		return invalid("session_id", "is required")
	}
	if req.Prices == nil {
		return invalid("prices", "is required")
	}
	for i, p := range req.Prices {
		if strings.TrimSpace(p.Store) == "" {
			return invalid(fmt.Sprintf("prices[%d].store", i), "is required")
		}
		if strings.TrimSpace(p.Ingredient) == "" {
			return invalid(fmt.Sprintf("prices[%d].ingredient", i), "is required")
		}
		// Unavailable items carry no price; available ones must state both.
		if p.available() {
			if p.Price == nil {
				return invalid(fmt.Sprintf("prices[%d].price", i), "is required")
			}
			if p.UnitPrice == nil {
				return invalid(fmt.Sprintf("prices[%d].unit_price", i), "is required")
			}
		}
		if (p.Price != nil && p.Price.IsNegative()) || (p.UnitPrice != nil && p.UnitPrice.IsNegative()) {
			return invalid(fmt.Sprintf("prices[%d].price", i), "must not be negative")
		}
	}
	return nil
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.wf.Inspect(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.wf.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: fmt.Sprintf("Session %s deleted", id)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "healthy", Timestamp: time.Now().UTC().Format(time.RFC3339)}
	n, err := s.wf.ActiveSessions(r.Context())
	if err != nil {
		resp.Status = "degraded"
	}
	resp.ActiveSessions = n
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	days := defaultUsageDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, r, invalid("days", "must be a positive integer"))
			return
		}
		days = n
	}

	usage, err := s.opts.Usage.GetDailyUsage(r.Context(), days)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, usageResponse{
		Days:       days,
		DailyUsage: usage,
		System:     metrics.GetSysHealth(s.opts.DataPath),
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return invalid("", "request body is required")
		case errors.As(err, &maxErr):
			return invalid("", "request body too large")
		default:
			return invalid("", "invalid JSON body: %v", err)
		}
	}
	return nil
}
