package aggregate

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/proplink/crm-client/internal/domain"
	"github.com/proplink/crm-client/internal/services"
	"github.com/proplink/crm-client/internal/session"
	"github.com/proplink/crm-client/pkg/logger"
)

// EventsLoader aggregates the "today" panel: due follow-up tasks and the
// leads awaiting contact, with derived overdue/completed counters.
type EventsLoader struct {
	svcs     *services.Services
	sessions *session.Accessor
	log      *logger.Logger
	now      func() time.Time

	generation uint64

	mu    sync.RWMutex
	state Snapshot[domain.TodayEvents]
}

// NewEventsLoader creates a loader in the idle state.
func NewEventsLoader(svcs *services.Services, sessions *session.Accessor, log *logger.Logger) *EventsLoader {
	if log == nil {
		log = logger.NewDefault("events")
	}
	return &EventsLoader{svcs: svcs, sessions: sessions, log: log, now: time.Now}
}

// State returns the current snapshot.
func (l *EventsLoader) State() Snapshot[domain.TodayEvents] {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Load refreshes today's events. The two fetches settle independently;
// the counters are derived locally from whatever settled, so a failed
// fetch degrades that field to its empty default without touching the
// other.
func (l *EventsLoader) Load(ctx context.Context) Snapshot[domain.TodayEvents] {
	gen := atomic.AddUint64(&l.generation, 1)

	profile, ok := l.sessions.User(ctx)
	if !ok || profile.UserID <= 0 {
		return l.commit(gen, Snapshot[domain.TodayEvents]{
			Data: emptyEvents(),
			Err:  ErrNotAuthenticated,
		})
	}

	events := emptyEvents()
	settleAll(
		func() {
			events.Tasks = CallWithFallback(func() services.Result[[]domain.Task] {
				return l.svcs.Tasks.Today(ctx, profile.UserID)
			}, []domain.Task{})
		},
		func() {
			events.DueLeads = CallWithFallback(func() services.Result[[]domain.Lead] {
				return l.svcs.Leads.List(ctx, services.LeadFilter{
					AssigneeID: profile.UserID,
					Status:     "FOLLOW_UP",
				})
			}, []domain.Lead{})
		},
	)

	now := l.now()
	for _, task := range events.Tasks {
		switch {
		case task.Done:
			events.Completed++
		case task.DueAt.Before(now):
			events.Overdue++
		}
	}

	return l.commit(gen, Snapshot[domain.TodayEvents]{Data: events})
}

func emptyEvents() domain.TodayEvents {
	return domain.TodayEvents{
		Tasks:    []domain.Task{},
		DueLeads: []domain.Lead{},
	}
}

func (l *EventsLoader) commit(gen uint64, snap Snapshot[domain.TodayEvents]) Snapshot[domain.TodayEvents] {
	l.mu.Lock()
	defer l.mu.Unlock()
	if gen == atomic.LoadUint64(&l.generation) {
		l.state = snap
	}
	return snap
}
