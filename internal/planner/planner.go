package planner

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"text/template"
	"time"

	"meal-shopper/internal/llm"
	"meal-shopper/internal/shared"
	"meal-shopper/internal/shopping"
)

//go:embed planner_prompt.md
var plannerPrompt string

var promptTemplate = template.Must(template.New("Planner").Parse(plannerPrompt))

// ErrEmptyPlan is returned when the model answers with a plan without meals.
var ErrEmptyPlan = errors.New("meal plan contains no meals")

// Generator produces a meal plan for free-text preferences. days is nil when
// the caller leaves the number of meals to the model.
type Generator interface {
	Generate(ctx context.Context, preferences string, days *int) (Plan, shared.AgentMeta, error)
}

// Planner generates meal plans with a text generation model.
type Planner struct {
	textGen     llm.TextGenerator
	defaultDays int
}

// NewPlanner creates a new Planner instance. defaultDays is the meal count
// suggested to the model when the caller does not ask for one.
func NewPlanner(textGen llm.TextGenerator, defaultDays int) *Planner {
	if defaultDays <= 0 {
		defaultDays = 3
	}
	return &Planner{textGen: textGen, defaultDays: defaultDays}
}

type promptData struct {
	Preferences string
	Days        int
	DefaultDays int
}

// Generate asks the model for a plan and normalizes the answer: Markdown
// fences are tolerated, a missing shopping list is rebuilt from the meals'
// ingredients and the list is deduplicated.
func (p *Planner) Generate(ctx context.Context, preferences string, days *int) (Plan, shared.AgentMeta, error) {
	start := time.Now()
	meta := shared.AgentMeta{AgentName: "Planner"}

	data := promptData{Preferences: preferences, DefaultDays: p.defaultDays}
	if days != nil {
		data.Days = *days
	}
	prompt, err := buildPrompt(data)
	if err != nil {
		return Plan{}, meta, fmt.Errorf("failed to build planner prompt: %w", err)
	}

	resp, err := p.textGen.GenerateContent(ctx, prompt)
	meta.Usage = resp.Usage
	meta.Latency = time.Since(start)
	if err != nil {
		return Plan{}, meta, fmt.Errorf("failed to generate meal plan from LLM: %w", err)
	}

	plan, err := parsePlan(resp.Content)
	if err != nil {
		return Plan{}, meta, err
	}
	return plan, meta, nil
}

func buildPrompt(data promptData) (string, error) {
	var buf bytes.Buffer
	if err := promptTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func parsePlan(content string) (Plan, error) {
	var resp modelResponse
	if err := json.Unmarshal([]byte(llm.ExtractJSON(content)), &resp); err != nil {
		return Plan{}, fmt.Errorf("failed to parse meal plan JSON: %w", err)
	}

	meals := resp.meals()
	if len(meals) == 0 {
		return Plan{}, ErrEmptyPlan
	}

	list := resp.ShoppingList
	if len(list) == 0 {
		for _, m := range meals {
			list = append(list, m.Ingredients...)
		}
	}

	return Plan{Meals: meals, ShoppingList: shopping.Dedupe(list)}, nil
}
