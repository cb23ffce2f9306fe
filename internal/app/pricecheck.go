package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"meal-shopper/internal/config"
	"meal-shopper/internal/pricing"
	"meal-shopper/internal/scraper"
)

// PriceCheck scrapes the configured stores for the session's shopping list,
// submits the prices to the API and prints the decision.
func PriceCheck(ctx context.Context, cfg *config.Config, sessionID string, delay time.Duration, w io.Writer) error {
	profiles, err := scraper.LoadProfiles(cfg.StoreProfilesPath)
	if err != nil {
		return err
	}

	worker := scraper.NewWorker(scraper.NewScraper(), scraper.NewAPIClient(cfg.APIBaseURL), profiles, delay)
	decision, err := worker.Run(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("price check failed: %w", err)
	}

	printDecision(w, decision)
	return nil
}

func printDecision(w io.Writer, d *pricing.Decision) {
	fmt.Fprintf(w, "Recommended store: %s (€%s)\n", d.RecommendedStore, d.TotalCost.StringFixed(2))
	fmt.Fprintf(w, "%s\n\n", d.Reason)

	fmt.Fprintln(w, "=== COMPARISON ===")
	for _, c := range d.Comparisons {
		fmt.Fprintf(w, "%-12s €%8s  %d found, %d missing", c.Store, c.TotalCost.StringFixed(2), c.ItemsAvailable, c.ItemsMissing)
		if c.Savings.IsPositive() {
			fmt.Fprintf(w, "  (+€%s)", c.Savings.StringFixed(2))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "\n=== BASKET ===")
	for _, it := range d.Items {
		if !it.Available {
			fmt.Fprintf(w, "- %s: not available\n", it.Ingredient)
			continue
		}
		fmt.Fprintf(w, "- %s x%d: €%s (€%s/%s)\n", it.Ingredient, it.Quantity, it.Price.StringFixed(2), it.UnitPrice.StringFixed(2), it.Unit)
	}
}
