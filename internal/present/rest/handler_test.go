package rest

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/aionios/aionios/internal/domain"
	"github.com/aionios/aionios/internal/infra/gateway"
	"github.com/aionios/aionios/internal/service"
	"github.com/aionios/aionios/internal/usecase"
)

type memoryRepo struct {
	mu       sync.Mutex
	nextID   int64
	capsules map[int64]domain.Capsule
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{capsules: map[int64]domain.Capsule{}}
}

func (r *memoryRepo) Create(ctx context.Context, c domain.Capsule) (domain.Capsule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	c.ID = r.nextID
	r.capsules[c.ID] = c
	return c, nil
}

func (r *memoryRepo) GetByID(ctx context.Context, id int64) (domain.Capsule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.capsules[id]
	if !ok {
		return domain.Capsule{}, domain.NotFoundError{Resource: "capsule"}
	}
	return c, nil
}

func (r *memoryRepo) GetByBlockchainID(ctx context.Context, blockchainID string) (domain.Capsule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.capsules {
		if c.BlockchainID == blockchainID {
			return c, nil
		}
	}
	return domain.Capsule{}, domain.NotFoundError{Resource: "capsule"}
}

func (r *memoryRepo) ListByCreator(ctx context.Context, addr string) ([]domain.Capsule, error) {
	return r.filter(func(c domain.Capsule) bool {
		return strings.EqualFold(c.CreatorAddress, addr)
	}), nil
}

func (r *memoryRepo) ListByRecipient(ctx context.Context, addr string) ([]domain.Capsule, error) {
	return r.filter(func(c domain.Capsule) bool {
		return strings.EqualFold(c.RecipientAddress, addr)
	}), nil
}

func (r *memoryRepo) ListByAddress(ctx context.Context, addr string) ([]domain.Capsule, error) {
	return r.filter(func(c domain.Capsule) bool {
		return strings.EqualFold(c.CreatorAddress, addr) || strings.EqualFold(c.RecipientAddress, addr)
	}), nil
}

func (r *memoryRepo) filter(match func(domain.Capsule) bool) []domain.Capsule {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Capsule
	for _, c := range r.capsules {
		if match(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *memoryRepo) UpdateAtomic(ctx context.Context, id int64, mutate func(*domain.Capsule) error) (domain.Capsule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.capsules[id]
	if !ok {
		return domain.Capsule{}, domain.NotFoundError{Resource: "capsule"}
	}
	if err := mutate(&c); err != nil {
		return domain.Capsule{}, err
	}
	r.capsules[id] = c
	return c, nil
}

func (r *memoryRepo) ListDueForOpening(ctx context.Context, now time.Time) ([]domain.Capsule, error) {
	return r.filter(func(c domain.Capsule) bool {
		return c.Status == domain.StatusSealed &&
			c.ConditionType == domain.ConditionTime &&
			c.OpenDate != nil && !now.Before(*c.OpenDate)
	}), nil
}

func (r *memoryRepo) ListPopular(ctx context.Context, limit int) ([]domain.Capsule, error) {
	out := r.filter(func(c domain.Capsule) bool {
		return c.Status == domain.StatusSealed || c.Status == domain.StatusOpened
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ViewCount > out[j].ViewCount })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryRepo) ListFeatured(ctx context.Context) ([]domain.Capsule, error) {
	return r.filter(func(c domain.Capsule) bool { return c.Featured }), nil
}

func (r *memoryRepo) ListRecentlyOpened(ctx context.Context, limit int) ([]domain.Capsule, error) {
	out := r.filter(func(c domain.Capsule) bool { return c.Status == domain.StatusOpened })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryRepo) ListMostSubscribed(ctx context.Context, limit int) ([]domain.Capsule, error) {
	out := r.filter(func(c domain.Capsule) bool { return c.Status == domain.StatusSealed })
	sort.Slice(out, func(i, j int) bool { return out[i].SubscriptionCount > out[j].SubscriptionCount })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type testEnv struct {
	handler *Handler
	echo    *echo.Echo
	repo    *memoryRepo
	now     time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo := newMemoryRepo()
	uc := usecase.NewCapsuleUsecase(repo, gateway.NewMemoryLedger(), gateway.NewMemoryContentStore(), nil)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	uc.Now = func() time.Time { return now }

	listing := service.NewListingService(uc, nil, time.Minute)

	e := echo.New()
	h := NewHandler(uc, listing, nil)
	h.RegisterRoutes(e)

	return &testEnv{handler: h, echo: e, repo: repo, now: now}
}

func (env *testEnv) request(t *testing.T, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) createCapsule(t *testing.T, openDate time.Time) domain.Capsule {
	t.Helper()

	body := fmt.Sprintf(`{
		"title": "graduation letter",
		"creatorAddress": "0xCREATOR",
		"recipientAddress": "0xRECIPIENT",
		"conditionType": "TIME",
		"openDate": %q,
		"content": %q
	}`, openDate.Format(time.RFC3339), base64.StdEncoding.EncodeToString([]byte("dear future me")))

	rec := env.request(t, http.MethodPost, "/api/capsules", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create returned %d: %s", rec.Code, rec.Body.String())
	}

	var capsule domain.Capsule
	if err := json.Unmarshal(rec.Body.Bytes(), &capsule); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	return capsule
}

func TestCreateCapsuleEndpoint(t *testing.T) {
	env := newTestEnv(t)

	capsule := env.createCapsule(t, env.now.Add(24*time.Hour))

	if capsule.Status != domain.StatusSealed {
		t.Fatalf("expected SEALED got %s", capsule.Status)
	}
	if capsule.BlockchainID == "" {
		t.Fatalf("expected a ledger id")
	}
	if capsule.ContentHash == "" {
		t.Fatalf("expected a content hash")
	}
}

func TestCreateCapsuleRejectsBadBase64(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodPost, "/api/capsules", `{
		"title": "x",
		"creatorAddress": "0xCREATOR",
		"conditionType": "TIME",
		"openDate": "2026-01-01T00:00:00Z",
		"content": "%%%not-base64%%%"
	}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestCreateCapsuleRejectsMissingOpenDate(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodPost, "/api/capsules", `{
		"title": "x",
		"creatorAddress": "0xCREATOR",
		"conditionType": "TIME"
	}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestGetCapsuleEndpoints(t *testing.T) {
	env := newTestEnv(t)
	created := env.createCapsule(t, env.now.Add(time.Hour))

	rec := env.request(t, http.MethodGet, fmt.Sprintf("/api/capsules/%d", created.ID), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get by id returned %d", rec.Code)
	}

	rec = env.request(t, http.MethodGet, "/api/capsules/blockchain/"+created.BlockchainID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get by blockchain id returned %d", rec.Code)
	}

	rec = env.request(t, http.MethodGet, "/api/capsules/999", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown capsule got %d", rec.Code)
	}

	rec = env.request(t, http.MethodGet, "/api/capsules/not-a-number", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id got %d", rec.Code)
	}
}

func TestListByAddressEndpoints(t *testing.T) {
	env := newTestEnv(t)
	env.createCapsule(t, env.now.Add(time.Hour))

	for _, path := range []string{
		"/api/capsules/creator/0xcreator",
		"/api/capsules/recipient/0xrecipient",
		"/api/capsules/address/0xCREATOR",
	} {
		rec := env.request(t, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s returned %d", path, rec.Code)
		}
		var capsules []domain.Capsule
		if err := json.Unmarshal(rec.Body.Bytes(), &capsules); err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if len(capsules) != 1 {
			t.Fatalf("%s returned %d capsules", path, len(capsules))
		}
	}
}

func TestOpenEndpoint(t *testing.T) {
	env := newTestEnv(t)
	created := env.createCapsule(t, env.now.Add(-time.Hour))

	// Wrong requester is indistinguishable from other open failures.
	rec := env.request(t, http.MethodPost,
		fmt.Sprintf("/api/capsules/%d/open?requesterAddress=0xSOMEONE", created.ID), "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for wrong requester got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "could not open capsule") {
		t.Fatalf("open failure must not leak the reason: %s", rec.Body.String())
	}

	rec = env.request(t, http.MethodPost,
		fmt.Sprintf("/api/capsules/%d/open?requesterAddress=0xrecipient", created.ID), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("open returned %d: %s", rec.Code, rec.Body.String())
	}

	var capsule domain.Capsule
	if err := json.Unmarshal(rec.Body.Bytes(), &capsule); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if capsule.Status != domain.StatusOpened || capsule.OpenedAt == nil {
		t.Fatalf("expected OPENED with timestamp, got %s", capsule.Status)
	}

	rec = env.request(t, http.MethodPost, "/api/capsules/999/open?requesterAddress=0xRECIPIENT", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown capsule got %d", rec.Code)
	}

	rec = env.request(t, http.MethodPost, fmt.Sprintf("/api/capsules/%d/open", created.ID), "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without requesterAddress got %d", rec.Code)
	}
}

func TestContentEndpoint(t *testing.T) {
	env := newTestEnv(t)
	created := env.createCapsule(t, env.now.Add(-time.Hour))

	rec := env.request(t, http.MethodGet, fmt.Sprintf("/api/capsules/%d/content", created.ID), "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("sealed capsule content must be refused, got %d", rec.Code)
	}

	env.request(t, http.MethodPost,
		fmt.Sprintf("/api/capsules/%d/open?requesterAddress=0xRECIPIENT", created.ID), "")

	rec = env.request(t, http.MethodGet, fmt.Sprintf("/api/capsules/%d/content", created.ID), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("content returned %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "dear future me" {
		t.Fatalf("unexpected content %q", rec.Body.String())
	}
}

func TestLedgerStateEndpoint(t *testing.T) {
	env := newTestEnv(t)
	created := env.createCapsule(t, env.now.Add(time.Hour))

	rec := env.request(t, http.MethodGet, fmt.Sprintf("/api/capsules/%d/ledger", created.ID), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("ledger state returned %d: %s", rec.Code, rec.Body.String())
	}

	var state usecase.LedgerState
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if state.BlockchainID != created.BlockchainID {
		t.Fatalf("unexpected ledger id %q", state.BlockchainID)
	}

	rec = env.request(t, http.MethodGet, "/api/capsules/999/ledger", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}

func TestUpdateStatusEndpoint(t *testing.T) {
	env := newTestEnv(t)
	created := env.createCapsule(t, env.now.Add(time.Hour))

	rec := env.request(t, http.MethodPatch,
		fmt.Sprintf("/api/capsules/%d/status?status=FAILED", created.ID), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("update status returned %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.request(t, http.MethodPatch,
		fmt.Sprintf("/api/capsules/%d/status?status=BOGUS", created.ID), "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status got %d", rec.Code)
	}

	rec = env.request(t, http.MethodPatch,
		fmt.Sprintf("/api/capsules/%d/status", created.ID), "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing status got %d", rec.Code)
	}
}

func TestSweepEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.createCapsule(t, env.now.Add(-time.Hour))
	env.createCapsule(t, env.now.Add(time.Hour))

	rec := env.request(t, http.MethodPost, "/api/capsules/sweep", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("sweep returned %d: %s", rec.Code, rec.Body.String())
	}

	var result map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if result["promoted"] != 1 {
		t.Fatalf("expected 1 promoted got %d", result["promoted"])
	}
}

func TestEngagementEndpoints(t *testing.T) {
	env := newTestEnv(t)
	created := env.createCapsule(t, env.now.Add(time.Hour))

	for _, action := range []string{"view", "share", "subscribe"} {
		rec := env.request(t, http.MethodPost,
			fmt.Sprintf("/api/capsules/%d/%s", created.ID, action), "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s returned %d: %s", action, rec.Code, rec.Body.String())
		}
	}

	capsule, err := env.repo.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if capsule.ViewCount != 1 || capsule.ShareCount != 1 || capsule.SubscriptionCount != 1 {
		t.Fatalf("unexpected counters: views=%d shares=%d subs=%d",
			capsule.ViewCount, capsule.ShareCount, capsule.SubscriptionCount)
	}

	rec := env.request(t, http.MethodPost, "/api/capsules/999/view", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown capsule got %d", rec.Code)
	}
}

func TestExploreEndpoints(t *testing.T) {
	env := newTestEnv(t)
	created := env.createCapsule(t, env.now.Add(time.Hour))
	env.request(t, http.MethodPost, fmt.Sprintf("/api/capsules/%d/view", created.ID), "")

	for _, path := range []string{
		"/api/capsules/explore/popular",
		"/api/capsules/explore/featured",
		"/api/capsules/explore/recent",
		"/api/capsules/explore/subscribed?limit=5",
	} {
		rec := env.request(t, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s returned %d: %s", path, rec.Code, rec.Body.String())
		}
	}

	rec := env.request(t, http.MethodGet, "/api/capsules/explore/popular", "")
	var capsules []domain.Capsule
	if err := json.Unmarshal(rec.Body.Bytes(), &capsules); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(capsules) != 1 {
		t.Fatalf("expected 1 popular capsule got %d", len(capsules))
	}
}
