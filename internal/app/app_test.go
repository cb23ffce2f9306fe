package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meal-shopper/internal/config"
	"meal-shopper/internal/llm"
	"meal-shopper/internal/session"
	"meal-shopper/internal/shared"
)

type MockTextGenerator struct {
	Content string
}

func (m *MockTextGenerator) GenerateContent(ctx context.Context, prompt string) (llm.ContentResponse, error) {
	return llm.ContentResponse{
		Content: m.Content,
		Usage:   shared.TokenUsage{PromptTokens: 50, CompletionTokens: 25, TotalTokens: 75, Model: "mock"},
	}, nil
}

const planJSON = "```json\n" + `{
  "meal_plan": [
    {"title": "Varškėčiai", "description": "Pusryčiai", "recipe": ["Sumaišyti", "Kepti"], "ingredients": ["varškė 500g", "pienas 1l"]}
  ],
  "shopping_list": ["pienas 1l", "duona"]
}` + "\n```"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Environment:       config.Development,
		Port:              "0",
		DefaultPlanDays:   3,
		MaxPlanDays:       14,
		GenerationTimeout: 5 * time.Second,
		SessionBackend:    config.SessionBackendMemory,
		DatabasePath:      filepath.Join(t.TempDir(), "data", "test.db"),
	}
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	a, err := NewWithGenerator(context.Background(), testConfig(t), &MockTextGenerator{Content: planJSON})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestGenerateMealPlan(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, a.GenerateMealPlan(ctx, "lietuviški pusryčiai", nil, &out))

	assert.Contains(t, out.String(), "1. Varškėčiai")
	assert.Contains(t, out.String(), "   2) Kepti")
	assert.Contains(t, out.String(), "- pienas 1l")

	usage, err := a.metricsStore.GetDailyUsage(ctx, 1)
	require.NoError(t, err)
	require.Len(t, usage, 1)
	assert.Equal(t, 50, usage[0].TotalPrompt)

	removed, err := a.CleanupMetrics(ctx, 30)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestHandlerServesWorkflow(t *testing.T) {
	a := newTestApp(t)
	ts := httptest.NewServer(a.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/plan", "application/json", bytes.NewBufferString(`{"preferences": "pusryčiai"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var created struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NotEmpty(t, created.SessionID)

	assert.Equal(t, float64(1), a.activeSessions())

	metricsResp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer metricsResp.Body.Close()
	assert.Equal(t, http.StatusOK, metricsResp.StatusCode)
}

func TestPriceCheck(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	api := httptest.NewServer(a.Handler())
	defer api.Close()

	store := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "pienas" {
			fmt.Fprint(w, `<ul><li class="product"><a href="/p/1"><span class="title">Pienas 1 l</span></a><span class="price">1,19 €</span><span class="unit">1,19 €/l</span></li></ul>`)
			return
		}
		fmt.Fprint(w, `<div class="empty">Nerasta</div>`)
	}))
	defer store.Close()

	profiles := fmt.Sprintf(`stores:
  - id: iki
    name: IKI
    search_url: "%s/search?q={query}"
    product_selector: "li.product"
    name_selector: ".title"
    price_selector: ".price"
    unit_price_selector: ".unit"
    link_selector: "a"
    not_found_selector: ".empty"
`, store.URL)
	profilesPath := filepath.Join(t.TempDir(), "stores.yaml")
	require.NoError(t, os.WriteFile(profilesPath, []byte(profiles), 0o644))

	created, err := a.Controller().Create(ctx, "pusryčiai", nil)
	require.NoError(t, err)

	cfg := &config.Config{StoreProfilesPath: profilesPath, APIBaseURL: api.URL}
	var out bytes.Buffer
	require.NoError(t, PriceCheck(ctx, cfg, created.SessionID, 0, &out))

	assert.Contains(t, out.String(), "Recommended store: iki (€1.19)")
	assert.Contains(t, out.String(), "- pienas 1l x1: €1.19 (€1.19/l)")
	assert.Contains(t, out.String(), "- duona: not available")

	s, err := a.Controller().Inspect(ctx, created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusDecisionMade, s.Status)
	require.NotNil(t, s.PriceReport)
	assert.Len(t, s.PriceReport.Prices, 2)
}

func TestPriceCheckUnknownSession(t *testing.T) {
	a := newTestApp(t)
	api := httptest.NewServer(a.Handler())
	defer api.Close()

	profilesPath := filepath.Join(t.TempDir(), "stores.yaml")
	require.NoError(t, os.WriteFile(profilesPath, []byte(`stores: [{id: a, search_url: "http://127.0.0.1/?q={query}", product_selector: li, price_selector: p}]`), 0o644))

	cfg := &config.Config{StoreProfilesPath: profilesPath, APIBaseURL: api.URL}
	err := PriceCheck(context.Background(), cfg, "missing", 0, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestCloseIsIdempotent(t *testing.T) {
	a, err := NewWithGenerator(context.Background(), testConfig(t), &MockTextGenerator{Content: planJSON})
	require.NoError(t, err)
	require.NoError(t, a.Close())
	assert.NoError(t, a.Close())
}

func TestKnownStores(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stores.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`stores:
  - {id: iki, search_url: "http://iki.test/?q={query}", product_selector: li, price_selector: p}
  - {id: rimi, search_url: "http://rimi.test/?q={query}", product_selector: li, price_selector: p}
`), 0o644))

	assert.Equal(t, []string{"iki", "rimi"}, knownStores(path))
	assert.Nil(t, knownStores(filepath.Join(t.TempDir(), "missing.yaml")))
	assert.Nil(t, knownStores(""))
}
