package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
)

// ErrBlocked is returned when a store refuses to serve the search page.
var ErrBlocked = errors.New("store refused the request")

// Product is one search result of a store.
type Product struct {
	Name      string
	Price     decimal.Decimal
	UnitPrice decimal.Decimal
	Unit      string
	URL       string
}

// Scraper fetches store search pages and extracts products from them.
type Scraper struct {
	client    *http.Client
	userAgent string
}

// NewScraper creates a Scraper with a bounded per-request timeout.
func NewScraper() *Scraper {
	return &Scraper{
		client:    &http.Client{Timeout: 15 * time.Second},
		userAgent: "Mozilla/5.0 (compatible; meal-shopper/1.0)",
	}
}

// Search queries the store for a term and returns the products it lists.
// An empty result is not an error.
func (s *Scraper) Search(ctx context.Context, p Profile, query string) ([]Product, error) {
	searchURL := strings.ReplaceAll(p.SearchURL, "{query}", url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept-Language", "lt,en;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", searchURL, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden, resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: status %d", ErrBlocked, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("failed to fetch %s: status %d", searchURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search page: %w", err)
	}
	return extractProducts(doc, p, resp.Request.URL), nil
}

func extractProducts(doc *goquery.Document, p Profile, base *url.URL) []Product {
	if p.NotFoundSelector != "" && doc.Find(p.NotFoundSelector).Length() > 0 {
		return nil
	}

	var products []Product
	doc.Find(p.ProductSelector).Each(func(_ int, card *goquery.Selection) {
		product, ok := parseCard(card, p, base)
		if ok {
			products = append(products, product)
		}
	})
	return products
}

// parseCard reads one product card. Cards without any parseable price are
// skipped; a missing shelf or unit price falls back to the other one.
func parseCard(card *goquery.Selection, p Profile, base *url.URL) (Product, bool) {
	product := Product{Name: text(card, p.NameSelector)}

	var priceOK, unitOK bool
	if p.PriceSelector != "" {
		if price, _, err := ParsePrice(text(card, p.PriceSelector)); err == nil {
			product.Price, priceOK = price, true
		}
	}
	if p.UnitPriceSelector != "" {
		if unitPrice, unit, err := ParsePrice(text(card, p.UnitPriceSelector)); err == nil {
			product.UnitPrice, product.Unit, unitOK = unitPrice, unit, true
		}
	}

	switch {
	case !priceOK && !unitOK:
		return Product{}, false
	case !priceOK:
		product.Price = product.UnitPrice
	case !unitOK:
		product.UnitPrice = product.Price
	}
	if product.Unit == "" {
		product.Unit = "vnt"
	}

	if p.LinkSelector != "" {
		if href, ok := card.Find(p.LinkSelector).First().Attr("href"); ok {
			if ref, err := url.Parse(href); err == nil && base != nil {
				product.URL = base.ResolveReference(ref).String()
			}
		}
	}
	return product, true
}

func text(card *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.TrimSpace(card.Find(selector).First().Text())
}

// BestValue returns the product with the lowest unit price. Ties keep the
// first listed product.
func BestValue(products []Product) (Product, bool) {
	if len(products) == 0 {
		return Product{}, false
	}
	best := products[0]
	for _, p := range products[1:] {
		if p.UnitPrice.LessThan(best.UnitPrice) {
			best = p
		}
	}
	return best, true
}
