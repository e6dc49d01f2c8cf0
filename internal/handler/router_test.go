package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/boddenberg/datapay-bfa-go/internal/domain"
	"github.com/boddenberg/datapay-bfa-go/internal/handler"
	"github.com/boddenberg/datapay-bfa-go/internal/infra/cache"
	"github.com/boddenberg/datapay-bfa-go/internal/infra/observability"
	"github.com/boddenberg/datapay-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/datapay-bfa-go/internal/infra/store"
	"github.com/boddenberg/datapay-bfa-go/internal/service"
	"github.com/boddenberg/datapay-bfa-go/internal/valuation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// --- Fake backend ---

type stubBackend struct{}

func (stubBackend) Start(context.Context, domain.Profile) (*domain.SessionHandle, error) {
	return &domain.SessionHandle{SessionID: "sess-1", CalculationID: "calc-1"}, nil
}

func (stubBackend) Update(context.Context, string, domain.Profile) error { return nil }

func (stubBackend) Calculate(context.Context, string) (*domain.ValuationResult, error) {
	return &domain.ValuationResult{
		Total:     336,
		Breakdown: domain.CategoryValues{Demographics: 75, DigitalHabits: 95, Consumption: 61, Advanced: 105},
	}, nil
}

func (stubBackend) Get(_ context.Context, id string) (*domain.ValuationResult, error) {
	if id != "calc-1" {
		return nil, &domain.ErrNotFound{Resource: "calculation", ID: id}
	}
	return &domain.ValuationResult{Total: 336, Source: domain.SourceBackend}, nil
}

// --- Helpers ---

func newTestRouter(t *testing.T, opts handler.Options) http.Handler {
	t.Helper()
	metrics := observability.NewMetrics()
	engine := valuation.NewEngine(nil)
	bulkhead := resilience.NewBulkhead(4)

	registry, err := service.NewRegistry(stubBackend{}, store.NewMemory(), engine, bulkhead, metrics, zap.NewNop(), service.RegistryOptions{
		Secret:      []byte("test-secret"),
		SyncTimeout: time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(registry.Close)
	t.Cleanup(registry.WaitForSync)

	resultCache := cache.New[*domain.ValuationResult](time.Minute)
	t.Cleanup(resultCache.Close)
	results := service.NewResults(stubBackend{}, resultCache, metrics, zap.NewNop())

	return handler.NewRouter(registry, results, engine, metrics, zap.NewNop(), opts)
}

func do(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

// --- Operational endpoints ---

func TestHealthz(t *testing.T) {
	router := handler.NewRouter(nil, nil, nil, observability.NewMetrics(), zap.NewNop(), handler.Options{})

	rec := do(t, router, http.MethodGet, "/healthz", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	health := decode[domain.HealthStatus](t, rec)
	assert.Equal(t, "healthy", health.Status)
}

func TestHealthz_DegradedDependency(t *testing.T) {
	router := handler.NewRouter(nil, nil, nil, observability.NewMetrics(), zap.NewNop(), handler.Options{
		HealthChecks: []handler.HealthCheck{{Name: "redis", Check: func(context.Context) error { return errors.New("connection refused") }}},
	})

	rec := do(t, router, http.MethodGet, "/healthz", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	health := decode[domain.HealthStatus](t, rec)
	assert.Equal(t, "degraded", health.Status)
	require.Len(t, health.Services, 2)
	assert.Equal(t, "connection refused", health.Services[1].Detail)
}

func TestReadyz(t *testing.T) {
	router := handler.NewRouter(nil, nil, nil, observability.NewMetrics(), zap.NewNop(), handler.Options{})

	rec := do(t, router, http.MethodGet, "/readyz", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyz_FailingDependency(t *testing.T) {
	router := handler.NewRouter(nil, nil, nil, observability.NewMetrics(), zap.NewNop(), handler.Options{
		HealthChecks: []handler.HealthCheck{{Name: "datapay", Check: func(context.Context) error { return errors.New("circuit open") }}},
	})

	rec := do(t, router, http.MethodGet, "/readyz", "", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetrics(t *testing.T) {
	router := handler.NewRouter(nil, nil, nil, observability.NewMetrics(), zap.NewNop(), handler.Options{})

	rec := do(t, router, http.MethodGet, "/metrics", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWizardsUnavailableWithoutRegistry(t *testing.T) {
	router := handler.NewRouter(nil, nil, nil, observability.NewMetrics(), zap.NewNop(), handler.Options{})

	assert.Equal(t, http.StatusServiceUnavailable, do(t, router, http.MethodPost, "/v1/wizards", "", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, router, http.MethodGet, "/v1/calculations/calc-1", "", nil).Code)
}

// --- Catalog & estimate ---

func TestOptions(t *testing.T) {
	router := newTestRouter(t, handler.Options{})

	rec := do(t, router, http.MethodGet, "/v1/options", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	catalog := decode[domain.Catalog](t, rec)
	assert.Len(t, catalog.SocialNetworks, 6)
}

func TestEstimate(t *testing.T) {
	router := newTestRouter(t, handler.Options{})

	rec := do(t, router, http.MethodPost, "/v1/valuation/estimate", "", map[string]any{
		"personalInfo":  map[string]any{"age": 30, "gender": "masculino", "location": "São Paulo"},
		"digitalHabits": map[string]any{"socialNetworks": []string{"instagram", "tiktok"}, "usageFrequency": 8},
		"consumption":   map[string]any{"shoppingChannels": []string{"ecommerce"}, "favoriteCategories": []string{"eletronicos"}},
		"health":        map[string]any{},
		"advanced":      map[string]any{"incomeRange": "3000_8000", "professionalArea": "tecnologia"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	result := decode[domain.ValuationResult](t, rec)
	assert.Equal(t, 336.0, result.Total)
	assert.Equal(t, domain.SourceLocal, result.Source)
}

func TestEstimate_RejectsUnknownOption(t *testing.T) {
	router := newTestRouter(t, handler.Options{})

	rec := do(t, router, http.MethodPost, "/v1/valuation/estimate", "", map[string]any{
		"digitalHabits": map[string]any{"socialNetworks": []string{"myspace"}},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEstimate_RateLimited(t *testing.T) {
	router := newTestRouter(t, handler.Options{RateLimitRPS: 0.001, RateLimitBurst: 1})

	first := do(t, router, http.MethodPost, "/v1/valuation/estimate", "", map[string]any{})
	second := do(t, router, http.MethodPost, "/v1/valuation/estimate", "", map[string]any{})

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

// --- Wizard ---

func TestWizard_RequiresToken(t *testing.T) {
	router := newTestRouter(t, handler.Options{})

	assert.Equal(t, http.StatusUnauthorized, do(t, router, http.MethodGet, "/v1/wizards/current", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, router, http.MethodGet, "/v1/wizards/current", "garbage", nil).Code)
}

func TestWizard_Flow(t *testing.T) {
	router := newTestRouter(t, handler.Options{})

	rec := do(t, router, http.MethodPost, "/v1/wizards", "", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[domain.WizardCreated](t, rec)
	require.NotEmpty(t, created.Token)
	assert.Equal(t, domain.WizardLanding, created.Wizard.State)
	token := created.Token

	rec = do(t, router, http.MethodPost, "/v1/wizards/current/start", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.WizardStep1, decode[domain.WizardSnapshot](t, rec).State)

	// Step 1 needs a gender before moving on.
	rec = do(t, router, http.MethodPatch, "/v1/wizards/current/sections/personalInfo", token, map[string]any{"age": 30, "location": "São Paulo"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, router, http.MethodPost, "/v1/wizards/current/next", token, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"step":1`)

	sections := []struct {
		name string
		body map[string]any
	}{
		{"personalInfo", map[string]any{"gender": "masculino"}},
		{"digitalHabits", map[string]any{"socialNetworks": []string{"instagram", "tiktok"}, "usageFrequency": 8}},
		{"consumption", map[string]any{"shoppingChannels": []string{"ecommerce"}, "favoriteCategories": []string{"eletronicos"}}},
		{"health", map[string]any{}},
		{"advanced", map[string]any{"incomeRange": "3000_8000", "professionalArea": "tecnologia"}},
	}
	for _, s := range sections {
		rec = do(t, router, http.MethodPatch, "/v1/wizards/current/sections/"+s.name, token, s.body)
		require.Equal(t, http.StatusOK, rec.Code, s.name)
		rec = do(t, router, http.MethodPost, "/v1/wizards/current/next", token, nil)
		require.Equal(t, http.StatusOK, rec.Code, s.name)
	}

	snap := decode[domain.WizardSnapshot](t, rec)
	assert.Equal(t, domain.WizardResult, snap.State)
	assert.Equal(t, 100, snap.Progress)
	require.NotNil(t, snap.Result)
	assert.Equal(t, 336.0, snap.Result.Total)

	rec = do(t, router, http.MethodGet, "/v1/wizards/current", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.WizardResult, decode[domain.WizardSnapshot](t, rec).State)

	rec = do(t, router, http.MethodPost, "/v1/wizards/current/goto/2", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.WizardStep2, decode[domain.WizardSnapshot](t, rec).State)

	rec = do(t, router, http.MethodPost, "/v1/wizards/current/restart", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.WizardLanding, decode[domain.WizardSnapshot](t, rec).State)
}

func TestWizard_PatchValidation(t *testing.T) {
	router := newTestRouter(t, handler.Options{})
	created := decode[domain.WizardCreated](t, do(t, router, http.MethodPost, "/v1/wizards", "", nil))
	token := created.Token
	require.Equal(t, http.StatusOK, do(t, router, http.MethodPost, "/v1/wizards/current/start", token, nil).Code)

	tests := []struct {
		name    string
		section string
		body    any
		want    int
	}{
		{"unknown section", "hobbies", map[string]any{}, http.StatusBadRequest},
		{"unknown field", "personalInfo", map[string]any{"nickname": "x"}, http.StatusBadRequest},
		{"age below minimum", "personalInfo", map[string]any{"age": 12}, http.StatusBadRequest},
		{"unknown network", "digitalHabits", map[string]any{"socialNetworks": []string{"orkut"}}, http.StatusBadRequest},
		{"valid", "health", map[string]any{"healthInterests": []string{"academia_exercicios"}}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPatch, "/v1/wizards/current/sections/"+tt.section, token, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestWizard_InvalidTransitions(t *testing.T) {
	router := newTestRouter(t, handler.Options{})
	token := decode[domain.WizardCreated](t, do(t, router, http.MethodPost, "/v1/wizards", "", nil)).Token

	assert.Equal(t, http.StatusConflict, do(t, router, http.MethodPost, "/v1/wizards/current/next", token, nil).Code)
	assert.Equal(t, http.StatusConflict, do(t, router, http.MethodPost, "/v1/wizards/current/restart", token, nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodPost, "/v1/wizards/current/goto/abc", token, nil).Code)
	assert.Equal(t, http.StatusConflict, do(t, router, http.MethodPatch, "/v1/wizards/current/sections/health", token, map[string]any{}).Code)
}

// --- Calculations ---

func TestGetCalculation(t *testing.T) {
	router := newTestRouter(t, handler.Options{})

	rec := do(t, router, http.MethodGet, "/v1/calculations/calc-1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 336.0, decode[domain.ValuationResult](t, rec).Total)

	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/v1/calculations/unknown", "", nil).Code)
}

func TestValuationMetrics(t *testing.T) {
	router := newTestRouter(t, handler.Options{})
	do(t, router, http.MethodPost, "/v1/wizards", "", nil)

	rec := do(t, router, http.MethodGet, "/v1/metrics/valuation", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), decode[domain.ValuationMetrics](t, rec).WizardsCreated)
}
