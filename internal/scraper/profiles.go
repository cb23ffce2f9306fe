package scraper

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile describes how to search one online store and where the price data
// sits in its result page.
type Profile struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	// SearchURL contains a {query} placeholder for the escaped search term.
	SearchURL         string `yaml:"search_url"`
	ProductSelector   string `yaml:"product_selector"`
	NameSelector      string `yaml:"name_selector"`
	PriceSelector     string `yaml:"price_selector"`
	UnitPriceSelector string `yaml:"unit_price_selector"`
	LinkSelector      string `yaml:"link_selector"`
	// NotFoundSelector marks an explicit "nothing found" page.
	NotFoundSelector string `yaml:"not_found_selector"`
}

type profileFile struct {
	Stores []Profile `yaml:"stores"`
}

// LoadProfiles reads store profiles from a YAML file.
func LoadProfiles(path string) ([]Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read store profiles: %w", err)
	}
	return ParseProfiles(raw)
}

// ParseProfiles decodes and validates a YAML profile document.
func ParseProfiles(raw []byte) ([]Profile, error) {
	var f profileFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse store profiles: %w", err)
	}
	if len(f.Stores) == 0 {
		return nil, fmt.Errorf("no stores defined in store profiles")
	}

	seen := make(map[string]bool, len(f.Stores))
	for i, p := range f.Stores {
		if err := p.validate(); err != nil {
			return nil, fmt.Errorf("store profile %d: %w", i, err)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("duplicate store id %q", p.ID)
		}
		seen[p.ID] = true
	}
	return f.Stores, nil
}

func (p Profile) validate() error {
	switch {
	case p.ID == "":
		return fmt.Errorf("id is required")
	case !strings.Contains(p.SearchURL, "{query}"):
		return fmt.Errorf("%s: search_url must contain {query}", p.ID)
	case p.ProductSelector == "":
		return fmt.Errorf("%s: product_selector is required", p.ID)
	case p.PriceSelector == "" && p.UnitPriceSelector == "":
		return fmt.Errorf("%s: price_selector or unit_price_selector is required", p.ID)
	}
	return nil
}
