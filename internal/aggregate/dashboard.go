package aggregate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/proplink/crm-client/internal/domain"
	"github.com/proplink/crm-client/internal/services"
	"github.com/proplink/crm-client/internal/session"
	"github.com/proplink/crm-client/pkg/logger"
)

// ErrNotAuthenticated blocks a view when required identifiers are missing.
var ErrNotAuthenticated = errors.New("please log in again")

// DashboardLoader aggregates the dashboard statistics view model.
//
// Each Load builds a fresh DashboardStats and swaps it in atomically; a
// generation counter guards against a superseded load finishing late and
// overwriting newer state.
type DashboardLoader struct {
	svcs     *services.Services
	sessions *session.Accessor
	log      *logger.Logger

	generation uint64

	mu    sync.RWMutex
	state Snapshot[domain.DashboardStats]
}

// NewDashboardLoader creates a loader in the idle (not loading) state.
func NewDashboardLoader(svcs *services.Services, sessions *session.Accessor, log *logger.Logger) *DashboardLoader {
	if log == nil {
		log = logger.NewDefault("dashboard")
	}
	return &DashboardLoader{svcs: svcs, sessions: sessions, log: log}
}

// State returns the current snapshot.
func (l *DashboardLoader) State() Snapshot[domain.DashboardStats] {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Load refreshes the dashboard. Sub-calls run with settle-all semantics
// and per-field fallback defaults, so the returned view model is always
// structurally complete. Missing identifiers skip all network calls and
// surface the zero-valued shape with ErrNotAuthenticated.
func (l *DashboardLoader) Load(ctx context.Context) Snapshot[domain.DashboardStats] {
	gen := atomic.AddUint64(&l.generation, 1)
	l.setLoading(gen)

	profile, ok := l.sessions.User(ctx)
	if !ok || profile.UserID <= 0 {
		return l.commit(gen, Snapshot[domain.DashboardStats]{Err: ErrNotAuthenticated})
	}
	role := domain.ParseRole(string(profile.Role))
	if requiresCompany(role) && profile.CompanyID <= 0 {
		return l.commit(gen, Snapshot[domain.DashboardStats]{Err: ErrNotAuthenticated})
	}

	stats := l.loadForRole(ctx, role, profile)
	return l.commit(gen, Snapshot[domain.DashboardStats]{Data: stats})
}

// loadForRole is the static dispatch table: the role picks which sub-calls
// run and how they are scoped.
func (l *DashboardLoader) loadForRole(ctx context.Context, role domain.Role, profile *domain.UserProfile) domain.DashboardStats {
	switch role {
	case domain.RoleDeveloper:
		return l.loadCrossCompany(ctx, profile)
	case domain.RoleDirector, domain.RoleAdmin:
		return l.loadCompanyScoped(ctx, profile)
	default:
		return l.loadSelfScoped(ctx, profile)
	}
}

// loadCrossCompany fetches platform-wide totals plus the caller's own
// pending tasks.
func (l *DashboardLoader) loadCrossCompany(ctx context.Context, profile *domain.UserProfile) domain.DashboardStats {
	var stats domain.DashboardStats

	settleAll(
		func() {
			stats.TotalLeads = CallWithFallback(func() services.Result[int] {
				return l.svcs.Leads.Count(ctx, services.LeadFilter{})
			}, 0)
		},
		func() {
			stats.NewLeads = CallWithFallback(func() services.Result[int] {
				return l.svcs.Leads.Count(ctx, services.LeadFilter{Status: "NEW"})
			}, 0)
		},
		func() {
			stats.ClosedLeads = CallWithFallback(func() services.Result[int] {
				return l.svcs.Leads.Count(ctx, services.LeadFilter{Status: "CLOSED"})
			}, 0)
		},
		func() {
			stats.PendingTasks = CallWithFallback(func() services.Result[int] {
				return l.svcs.Tasks.PendingCount(ctx, profile.UserID)
			}, 0)
		},
		func() {
			stats.PropertyOverview = CallWithFallback(func() services.Result[domain.PropertyOverview] {
				return l.svcs.Properties.Overview(ctx, 0)
			}, domain.PropertyOverview{})
		},
		func() {
			stats.TotalCompanies = CallWithFallback(func() services.Result[int] {
				return l.svcs.Companies.Count(ctx)
			}, 0)
		},
		func() {
			stats.TotalUsers = CallWithFallback(func() services.Result[int] {
				return l.svcs.Users.Count(ctx)
			}, 0)
		},
	)
	return stats
}

// loadCompanyScoped fetches totals for the caller's company.
func (l *DashboardLoader) loadCompanyScoped(ctx context.Context, profile *domain.UserProfile) domain.DashboardStats {
	var stats domain.DashboardStats
	companyID := profile.CompanyID

	settleAll(
		func() {
			stats.TotalLeads = CallWithFallback(func() services.Result[int] {
				return l.svcs.Leads.Count(ctx, services.LeadFilter{CompanyID: companyID})
			}, 0)
		},
		func() {
			stats.NewLeads = CallWithFallback(func() services.Result[int] {
				return l.svcs.Leads.Count(ctx, services.LeadFilter{CompanyID: companyID, Status: "NEW"})
			}, 0)
		},
		func() {
			stats.ClosedLeads = CallWithFallback(func() services.Result[int] {
				return l.svcs.Leads.Count(ctx, services.LeadFilter{CompanyID: companyID, Status: "CLOSED"})
			}, 0)
		},
		func() {
			stats.PendingTasks = CallWithFallback(func() services.Result[int] {
				return l.svcs.Tasks.PendingCount(ctx, profile.UserID)
			}, 0)
		},
		func() {
			stats.PropertyOverview = CallWithFallback(func() services.Result[domain.PropertyOverview] {
				return l.svcs.Properties.Overview(ctx, companyID)
			}, domain.PropertyOverview{})
		},
	)
	return stats
}

// loadSelfScoped fetches only the caller's own counts. Unrecognized roles
// land here as well.
func (l *DashboardLoader) loadSelfScoped(ctx context.Context, profile *domain.UserProfile) domain.DashboardStats {
	var stats domain.DashboardStats
	userID := profile.UserID

	settleAll(
		func() {
			stats.TotalLeads = CallWithFallback(func() services.Result[int] {
				return l.svcs.Leads.Count(ctx, services.LeadFilter{AssigneeID: userID})
			}, 0)
		},
		func() {
			stats.NewLeads = CallWithFallback(func() services.Result[int] {
				return l.svcs.Leads.Count(ctx, services.LeadFilter{AssigneeID: userID, Status: "NEW"})
			}, 0)
		},
		func() {
			stats.ClosedLeads = CallWithFallback(func() services.Result[int] {
				return l.svcs.Leads.Count(ctx, services.LeadFilter{AssigneeID: userID, Status: "CLOSED"})
			}, 0)
		},
		func() {
			stats.PendingTasks = CallWithFallback(func() services.Result[int] {
				return l.svcs.Tasks.PendingCount(ctx, userID)
			}, 0)
		},
		func() {
			stats.PropertyOverview = CallWithFallback(func() services.Result[domain.PropertyOverview] {
				return l.svcs.Properties.Overview(ctx, profile.CompanyID)
			}, domain.PropertyOverview{})
		},
	)
	return stats
}

func requiresCompany(role domain.Role) bool {
	return role == domain.RoleDirector || role == domain.RoleAdmin
}

func (l *DashboardLoader) setLoading(gen uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if gen == atomic.LoadUint64(&l.generation) {
		l.state.Loading = true
	}
}

// commit installs the snapshot unless a newer load has started since.
func (l *DashboardLoader) commit(gen uint64, snap Snapshot[domain.DashboardStats]) Snapshot[domain.DashboardStats] {
	l.mu.Lock()
	defer l.mu.Unlock()
	if gen == atomic.LoadUint64(&l.generation) {
		l.state = snap
	} else {
		l.log.WithFields(map[string]interface{}{"generation": gen}).
			Debug("discarding superseded dashboard load")
	}
	return snap
}
