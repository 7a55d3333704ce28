package aggregate

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proplink/crm-client/internal/apiclient"
	"github.com/proplink/crm-client/internal/domain"
	"github.com/proplink/crm-client/internal/ratelimit"
	"github.com/proplink/crm-client/internal/services"
	"github.com/proplink/crm-client/internal/session"
	"github.com/proplink/crm-client/pkg/testutil"
)

func testToken(exp time.Time) string {
	header, _ := json.Marshal(map[string]string{"alg": "none", "typ": "JWT"})
	payload, _ := json.Marshal(map[string]any{"exp": exp.Unix(), "userId": 1})
	enc := base64.RawURLEncoding
	return fmt.Sprintf("%s.%s.sig", enc.EncodeToString(header), enc.EncodeToString(payload))
}

type harness struct {
	backend  *testutil.CRMBackend
	sessions *session.Accessor
	svcs     *services.Services
}

func newHarness(t *testing.T, profile *domain.UserProfile) *harness {
	t.Helper()

	backend := testutil.NewCRMBackend()
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)

	sessions := session.NewAccessor(session.NewMemoryStore(), session.NewMemoryStore())
	if profile != nil {
		err := sessions.SetSession(context.Background(), testToken(time.Now().Add(time.Hour)), profile)
		require.NoError(t, err)
	}

	limiter := ratelimit.New(ratelimit.Config{MaxRequests: 1000, Window: time.Minute})
	api := apiclient.New(apiclient.Config{
		BaseURL:    server.URL,
		MaxRetries: 1,
		RetryBase:  time.Millisecond,
	}, limiter, sessions, nil)

	return &harness{
		backend:  backend,
		sessions: sessions,
		svcs:     services.New(api, nil),
	}
}

func TestDashboardLoader_UserRole_PartialFailure(t *testing.T) {
	h := newHarness(t, &domain.UserProfile{UserID: 1, CompanyID: 2, Role: domain.RoleUser})
	h.backend.LeadCounts[""] = 25
	h.backend.LeadCounts["NEW"] = 7
	h.backend.LeadCounts["CLOSED"] = 9
	h.backend.PendingTasks = 4
	h.backend.Overview = domain.PropertyOverview{Total: 12, Available: 5, Reserved: 4, Sold: 3}

	loader := NewDashboardLoader(h.svcs, h.sessions, nil)
	snap := loader.Load(context.Background())
	require.NoError(t, snap.Err)
	assert.Equal(t, 25, snap.Data.TotalLeads)
	assert.Equal(t, 9, snap.Data.ClosedLeads)

	// Fail only the lead counters; everything else must stay intact and
	// the failed field must default to zero.
	h.backend.FailPath("/leads/count", http.StatusInternalServerError)

	snap = loader.Load(context.Background())
	require.NoError(t, snap.Err, "sub-call failures are absorbed, never surfaced")
	assert.Zero(t, snap.Data.TotalLeads)
	assert.Zero(t, snap.Data.NewLeads)
	assert.Zero(t, snap.Data.ClosedLeads)
	assert.Equal(t, 4, snap.Data.PendingTasks)
	assert.Equal(t, 12, snap.Data.PropertyOverview.Total)
	assert.False(t, snap.Loading)
}

func TestDashboardLoader_SingleCounterFailure(t *testing.T) {
	h := newHarness(t, &domain.UserProfile{UserID: 1, CompanyID: 2, Role: domain.RoleUser})
	h.backend.LeadCounts[""] = 25
	h.backend.LeadCounts["NEW"] = 7
	h.backend.LeadCounts["CLOSED"] = 9
	h.backend.Overview = domain.PropertyOverview{Total: 12}
	h.backend.FailLeadCount("CLOSED", http.StatusInternalServerError)

	loader := NewDashboardLoader(h.svcs, h.sessions, nil)
	snap := loader.Load(context.Background())

	require.NoError(t, snap.Err)
	assert.Zero(t, snap.Data.ClosedLeads, "failed counter defaults to zero")
	assert.Equal(t, 25, snap.Data.TotalLeads)
	assert.Equal(t, 7, snap.Data.NewLeads)
	assert.Equal(t, 12, snap.Data.PropertyOverview.Total)
}

func TestDashboardLoader_AllSubCallsFail(t *testing.T) {
	h := newHarness(t, &domain.UserProfile{UserID: 1, CompanyID: 2, Role: domain.RoleAdmin})
	for _, path := range []string{
		"/leads/count", "/tasks/count", "/properties/overview",
		"/companies/count", "/users/count",
	} {
		h.backend.FailPath(path, http.StatusServiceUnavailable)
	}

	loader := NewDashboardLoader(h.svcs, h.sessions, nil)
	snap := loader.Load(context.Background())

	require.NoError(t, snap.Err)
	assert.Equal(t, domain.DashboardStats{}, snap.Data, "every field present at its default")
	assert.False(t, snap.Loading)
}

func TestDashboardLoader_MissingIdentifiers(t *testing.T) {
	h := newHarness(t, nil) // no session at all

	loader := NewDashboardLoader(h.svcs, h.sessions, nil)
	snap := loader.Load(context.Background())

	assert.ErrorIs(t, snap.Err, ErrNotAuthenticated)
	assert.Equal(t, domain.DashboardStats{}, snap.Data)
	assert.Zero(t, h.backend.Hits("/leads/count"), "no speculative calls without identifiers")
}

func TestDashboardLoader_CompanyRoleNeedsCompanyID(t *testing.T) {
	h := newHarness(t, &domain.UserProfile{UserID: 1, Role: domain.RoleDirector})

	loader := NewDashboardLoader(h.svcs, h.sessions, nil)
	snap := loader.Load(context.Background())

	assert.ErrorIs(t, snap.Err, ErrNotAuthenticated)
	assert.Zero(t, h.backend.Hits("/leads/count"))
}

func TestDashboardLoader_RoleBranching(t *testing.T) {
	t.Run("developer fetches cross-company totals", func(t *testing.T) {
		h := newHarness(t, &domain.UserProfile{UserID: 1, Role: domain.RoleDeveloper})
		h.backend.Companies = 11
		h.backend.Users = 120

		loader := NewDashboardLoader(h.svcs, h.sessions, nil)
		snap := loader.Load(context.Background())

		require.NoError(t, snap.Err)
		assert.Equal(t, 11, snap.Data.TotalCompanies)
		assert.Equal(t, 120, snap.Data.TotalUsers)
		assert.Equal(t, 1, h.backend.Hits("/companies/count"))
		assert.Equal(t, 1, h.backend.Hits("/users/count"))
	})

	t.Run("user never fetches cross-company totals", func(t *testing.T) {
		h := newHarness(t, &domain.UserProfile{UserID: 1, CompanyID: 2, Role: domain.RoleUser})

		loader := NewDashboardLoader(h.svcs, h.sessions, nil)
		snap := loader.Load(context.Background())

		require.NoError(t, snap.Err)
		assert.Zero(t, h.backend.Hits("/companies/count"))
		assert.Zero(t, h.backend.Hits("/users/count"))
	})

	t.Run("unknown role gets self-scoped behavior", func(t *testing.T) {
		h := newHarness(t, &domain.UserProfile{UserID: 1, CompanyID: 2, Role: domain.Role("WIZARD")})

		loader := NewDashboardLoader(h.svcs, h.sessions, nil)
		snap := loader.Load(context.Background())

		require.NoError(t, snap.Err)
		assert.Zero(t, h.backend.Hits("/companies/count"))
	})
}

func TestDashboardLoader_SupersededLoadDiscarded(t *testing.T) {
	h := newHarness(t, &domain.UserProfile{UserID: 1, CompanyID: 2, Role: domain.RoleUser})
	h.backend.LeadCounts[""] = 5

	loader := NewDashboardLoader(h.svcs, h.sessions, nil)
	loader.Load(context.Background())
	current := loader.State()
	require.Equal(t, 5, current.Data.TotalLeads)

	// Simulate a newer load starting, then a stale one finishing late.
	atomic.AddUint64(&loader.generation, 1)
	stale := Snapshot[domain.DashboardStats]{Data: domain.DashboardStats{TotalLeads: 999}}
	loader.commit(1, stale)

	assert.Equal(t, 5, loader.State().Data.TotalLeads, "stale commit must not overwrite state")
}

func TestEventsLoader_DerivedCounters(t *testing.T) {
	now := time.Now()
	h := newHarness(t, &domain.UserProfile{UserID: 1, CompanyID: 2, Role: domain.RoleUser})
	h.backend.TodayTasks = []domain.Task{
		{ID: 1, Title: "call Ana", DueAt: now.Add(-time.Hour)},
		{ID: 2, Title: "send contract", DueAt: now.Add(time.Hour)},
		{ID: 3, Title: "viewing", DueAt: now.Add(-2 * time.Hour), Done: true},
	}
	h.backend.Leads = []domain.Lead{{ID: 9, Name: "Bo", Status: "FOLLOW_UP"}}

	loader := NewEventsLoader(h.svcs, h.sessions, nil)
	snap := loader.Load(context.Background())

	require.NoError(t, snap.Err)
	assert.Len(t, snap.Data.Tasks, 3)
	assert.Len(t, snap.Data.DueLeads, 1)
	assert.Equal(t, 1, snap.Data.Overdue)
	assert.Equal(t, 1, snap.Data.Completed)
}

func TestEventsLoader_FallbacksOnFailure(t *testing.T) {
	h := newHarness(t, &domain.UserProfile{UserID: 1, CompanyID: 2, Role: domain.RoleUser})
	h.backend.FailPath("/followups/today", http.StatusInternalServerError)
	h.backend.Leads = []domain.Lead{{ID: 9, Name: "Bo", Status: "FOLLOW_UP"}}

	loader := NewEventsLoader(h.svcs, h.sessions, nil)
	snap := loader.Load(context.Background())

	require.NoError(t, snap.Err)
	assert.NotNil(t, snap.Data.Tasks)
	assert.Empty(t, snap.Data.Tasks)
	assert.Len(t, snap.Data.DueLeads, 1)
	assert.Zero(t, snap.Data.Overdue)
}

func TestEventsLoader_MissingIdentifiers(t *testing.T) {
	h := newHarness(t, nil)

	loader := NewEventsLoader(h.svcs, h.sessions, nil)
	snap := loader.Load(context.Background())

	assert.ErrorIs(t, snap.Err, ErrNotAuthenticated)
	assert.NotNil(t, snap.Data.Tasks, "shape stays structurally complete")
	assert.Zero(t, h.backend.Hits("/followups/today"))
}

func TestCallWithFallback(t *testing.T) {
	got := CallWithFallback(func() services.Result[int] {
		return services.Ok(7)
	}, -1)
	assert.Equal(t, 7, got)

	got = CallWithFallback(func() services.Result[int] {
		return services.FailLocal[int]("nope")
	}, -1)
	assert.Equal(t, -1, got)
}
