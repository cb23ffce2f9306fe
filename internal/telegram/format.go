package telegram

import (
	"fmt"
	"path/filepath"
	"strings"

	"meal-shopper/internal/metrics"
	"meal-shopper/internal/session"
	"meal-shopper/internal/workflow"
)

func formatPlan(created workflow.Created) (string, string) {
	var pb strings.Builder
	pb.WriteString("📅 *Meal Plan*\n\n")
	for i, m := range created.MealPlan.Meals {
		fmt.Fprintf(&pb, "*%d. %s*\n", i+1, m.Title)
		if m.Description != "" {
			fmt.Fprintf(&pb, "_%s_\n", m.Description)
		}
		if m.KeyProtein != "" {
			fmt.Fprintf(&pb, "Protein: %s\n", m.KeyProtein)
		}
		pb.WriteString("\n")
	}
	fmt.Fprintf(&pb, "🆔 `%s`", created.SessionID)

	var sb strings.Builder
	sb.WriteString("🛒 *Shopping List*\n\n")
	for _, item := range created.MealPlan.ShoppingList {
		fmt.Fprintf(&sb, "• %s\n", item)
	}
	fmt.Fprintf(&sb, "\nCompare store prices with `meal-shopper price-check --session %s`", created.SessionID)

	return pb.String(), sb.String()
}

func formatSession(s *session.Session) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🆔 `%s`\n", s.ID)
	fmt.Fprintf(&sb, "*Status:* %s\n", s.Status)
	fmt.Fprintf(&sb, "*Meals:* %d, *Items:* %d\n", len(s.MealPlan.Meals), len(s.ShoppingList))

	d := s.Decision
	if d == nil {
		sb.WriteString("\n_Waiting for price data._")
		return sb.String()
	}

	fmt.Fprintf(&sb, "\n🏆 *%s* for €%s\n%s\n\n", d.RecommendedStore, d.TotalCost.StringFixed(2), d.Reason)
	for _, c := range d.Comparisons {
		fmt.Fprintf(&sb, "• %s: €%s (%d found, %d missing)", c.Store, c.TotalCost.StringFixed(2), c.ItemsAvailable, c.ItemsMissing)
		if c.Savings.IsPositive() {
			fmt.Fprintf(&sb, " +€%s", c.Savings.StringFixed(2))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatUsage(usage []metrics.DailyUsage, health metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent LLM Activity*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		fmt.Fprintf(&sb, "• *%s*: %d tokens (%d execs)\n", d.Date, d.TotalPrompt+d.TotalCompletion, d.TotalExecution)
	}

	sb.WriteString("\n🧠 *System Health*\n")
	fmt.Fprintf(&sb, "• RAM: %dMB (Heap) / %dMB (Sys)\n", health.HeapMB, health.SysMB)
	fmt.Fprintf(&sb, "• Uptime: %s\n", health.Uptime)
	fmt.Fprintf(&sb, "• Goroutines: %d\n", health.Goroutines)
	fmt.Fprintf(&sb, "• Disk Data: %s\n", health.DataDiskSize)
	return sb.String()
}

func dataDir(databasePath string) string {
	return filepath.Dir(databasePath)
}
