package simulation

import (
	"context"

	"github.com/gglang/the-voices-sub000/logging"
)

const (
	// EventTickBudgetOverrun is emitted when the simulation loop exceeds the allotted tick budget.
	EventTickBudgetOverrun logging.EventType = "simulation.tick_budget_overrun"
	// EventPlanningExhausted is emitted when a step's path searches hit the expansion cap.
	EventPlanningExhausted logging.EventType = "simulation.planning_exhausted"
)

// TickBudgetOverrunPayload captures timing details for a tick budget breach.
type TickBudgetOverrunPayload struct {
	DurationMillis int64   `json:"durationMillis"`
	BudgetMillis   int64   `json:"budgetMillis"`
	Ratio          float64 `json:"ratio"`
	Streak         uint64  `json:"streak"`
	Agents         int     `json:"agents"`
}

// TickBudgetOverrun publishes a warning when the simulation exceeds the configured tick budget.
func TickBudgetOverrun(ctx context.Context, pub logging.Publisher, tick uint64, payload TickBudgetOverrunPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventTickBudgetOverrun,
		Tick:     tick,
		Actor:    logging.WorldRef(),
		Severity: logging.SeverityWarn,
		Category: logging.CategorySystem,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// PlanningExhaustedPayload counts empty plans in one step.
type PlanningExhaustedPayload struct {
	Failed int `json:"failed"`
	Total  int `json:"total"`
}

// PlanningExhausted publishes a debug summary of failed path searches.
func PlanningExhausted(ctx context.Context, pub logging.Publisher, tick uint64, payload PlanningExhaustedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventPlanningExhausted,
		Tick:     tick,
		Actor:    logging.WorldRef(),
		Severity: logging.SeverityDebug,
		Category: logging.CategorySystem,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}
