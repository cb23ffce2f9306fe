package session

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"meal-shopper/internal/planner"
	"meal-shopper/internal/pricing"
)

// PriceReport holds the observations submitted for a session.
type PriceReport struct {
	Prices     []pricing.Observation `json:"prices"`
	ReceivedAt time.Time             `json:"received_at"`
}

// Session is the workflow state of one shopping request.
type Session struct {
	ID           string            `json:"session_id"`
	Preferences  string            `json:"preferences"`
	MealPlan     planner.Plan      `json:"meal_plan"`
	ShoppingList []string          `json:"shopping_list"`
	Status       Status            `json:"status"`
	PriceReport  *PriceReport      `json:"price_report,omitempty"`
	Decision     *pricing.Decision `json:"decision,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// NewID returns a fresh random session id.
func NewID() string {
	return uuid.NewString()
}

// New creates a session in the plan-ready stage.
func New(preferences string, plan planner.Plan, now time.Time) *Session {
	plan = plan.Clone()
	return &Session{
		ID:           NewID(),
		Preferences:  preferences,
		MealPlan:     plan,
		ShoppingList: append([]string(nil), plan.ShoppingList...),
		Status:       StatusPlanReady,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Advance moves the session to the given status if the transition table
// allows it.
func (s *Session) Advance(to Status, now time.Time) error {
	if !CanTransition(s.Status, to) {
		return &InvalidTransitionError{From: s.Status, To: to}
	}
	s.Status = to
	s.UpdatedAt = now
	return nil
}

// Validate checks that the optional parts of the session match its status.
func (s *Session) Validate() error {
	if s.Status.Rank() == 0 {
		return fmt.Errorf("unknown session status %q", s.Status)
	}
	if s.PriceReport != nil && s.Status.Rank() < StatusPricesReceived.Rank() {
		return fmt.Errorf("session %s has a price report in status %q", s.ID, s.Status)
	}
	if s.Decision != nil && s.Status != StatusDecisionMade {
		return fmt.Errorf("session %s has a decision in status %q", s.ID, s.Status)
	}
	return nil
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.MealPlan = s.MealPlan.Clone()
	out.ShoppingList = append([]string(nil), s.ShoppingList...)
	if s.PriceReport != nil {
		report := *s.PriceReport
		report.Prices = append([]pricing.Observation(nil), s.PriceReport.Prices...)
		out.PriceReport = &report
	}
	out.Decision = s.Decision.Clone()
	return &out
}
