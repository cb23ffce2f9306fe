package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"meal-shopper/internal/pricing"
)

// APIClient talks to the meal-shopper HTTP API.
type APIClient struct {
	baseURL string
	http    *http.Client
}

// NewAPIClient creates a client for the API at baseURL.
func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// SessionView is the subset of a session the worker needs.
type SessionView struct {
	ID           string   `json:"session_id"`
	Status       string   `json:"status"`
	ShoppingList []string `json:"shopping_list"`
}

// APIError is a non-2xx answer of the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api returned %d: %s", e.StatusCode, e.Message)
}

// GetSession loads a session by id.
func (c *APIClient) GetSession(ctx context.Context, id string) (*SessionView, error) {
	var s SessionView
	if err := c.do(ctx, http.MethodGet, "/session/"+url.PathEscape(id), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ReportPrices submits observations and returns the resulting decision.
func (c *APIClient) ReportPrices(ctx context.Context, id string, prices []pricing.Observation) (*pricing.Decision, error) {
	body := struct {
		SessionID string                `json:"session_id"`
		Prices    []pricing.Observation `json:"prices"`
	}{SessionID: id, Prices: prices}

	var d pricing.Decision
	if err := c.do(ctx, http.MethodPost, "/price-report", body, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, in, out any) error {
	var body bytes.Buffer
	if in != nil {
		if err := json.NewEncoder(&body).Encode(in); err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &APIError{StatusCode: resp.StatusCode, Message: e.Error}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
