package session

import "fmt"

// Status is the workflow stage a session is in.
type Status string

const (
	StatusPlanReady      Status = "meal_plan_ready"
	StatusPricesReceived Status = "prices_received"
	StatusDecisionMade   Status = "decision_made"
)

// Rank orders statuses along the workflow. Unknown statuses rank 0.
func (s Status) Rank() int {
	switch s {
	case StatusPlanReady:
		return 1
	case StatusPricesReceived:
		return 2
	case StatusDecisionMade:
		return 3
	}
	return 0
}

// transitions lists the allowed moves. A decided session may receive a new
// price report, which recomputes the decision.
var transitions = map[Status][]Status{
	StatusPlanReady:      {StatusPricesReceived},
	StatusPricesReceived: {StatusDecisionMade},
	StatusDecisionMade:   {StatusPricesReceived},
}

// CanTransition reports whether a session may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// InvalidTransitionError is returned when a status change is not allowed.
type InvalidTransitionError struct {
	From, To Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid session transition from %q to %q", e.From, e.To)
}
