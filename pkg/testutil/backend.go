// Package testutil provides a fake CRM backend for integration-style
// tests. Handlers serve canned data that tests mutate directly; individual
// paths can be forced to fail, and an optional server-side throttle
// answers 429 once its burst is exhausted.
package testutil

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/proplink/crm-client/internal/domain"
)

// CRMBackend is a canned in-memory CRM API.
type CRMBackend struct {
	mu sync.Mutex

	router       *mux.Router
	failures     map[string]int
	leadFailures map[string]int
	hits         map[string]int
	throttle     *rate.Limiter

	// Canned data, mutable by tests before (not during) requests.
	LeadCounts   map[string]int // keyed by status filter, "" = all
	Overview     domain.PropertyOverview
	PendingTasks int
	Companies    int
	Users        int
	TodayTasks   []domain.Task
	Leads        []domain.Lead
	Notes        []domain.Note
}

// NewCRMBackend creates a backend with empty canned data.
func NewCRMBackend() *CRMBackend {
	b := &CRMBackend{
		failures:     make(map[string]int),
		leadFailures: make(map[string]int),
		hits:         make(map[string]int),
		LeadCounts:   make(map[string]int),
	}

	r := mux.NewRouter()
	r.HandleFunc("/leads/count", b.handleLeadCount).Methods(http.MethodGet)
	r.HandleFunc("/leads", b.handleLeads).Methods(http.MethodGet)
	r.HandleFunc("/properties/overview", b.handleOverview).Methods(http.MethodGet)
	r.HandleFunc("/tasks/count", b.handleTaskCount).Methods(http.MethodGet)
	r.HandleFunc("/companies/count", b.handleCompanyCount).Methods(http.MethodGet)
	r.HandleFunc("/users/count", b.handleUserCount).Methods(http.MethodGet)
	r.HandleFunc("/followups/today", b.handleToday).Methods(http.MethodGet)
	r.HandleFunc("/notes", b.handleNotes).Methods(http.MethodGet, http.MethodPost)
	b.router = r
	return b
}

// ServeHTTP implements http.Handler.
func (b *CRMBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.hits[r.URL.Path]++
	status := b.failures[r.URL.Path]
	throttle := b.throttle
	b.mu.Unlock()

	if throttle != nil && !throttle.Allow() {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"message": "slow down"})
		return
	}
	if status != 0 {
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]string{"message": http.StatusText(status)})
		return
	}
	b.router.ServeHTTP(w, r)
}

// FailPath forces a path to answer with the given status.
func (b *CRMBackend) FailPath(path string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[path] = status
}

// RestorePath clears a forced failure.
func (b *CRMBackend) RestorePath(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.failures, path)
}

// Hits returns how many requests reached a path.
func (b *CRMBackend) Hits(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[path]
}

// FailLeadCount forces the lead counter to fail only for the given status
// filter, leaving counts for other statuses intact.
func (b *CRMBackend) FailLeadCount(status string, code int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.leadFailures[status] = code
}

// Throttle enables server-side rate limiting with the given rate and burst.
func (b *CRMBackend) Throttle(limit rate.Limit, burst int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.throttle = rate.NewLimiter(limit, burst)
}

func (b *CRMBackend) handleLeadCount(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	b.mu.Lock()
	forced := b.leadFailures[status]
	count := b.LeadCounts[status]
	b.mu.Unlock()

	if forced != 0 {
		w.WriteHeader(forced)
		json.NewEncoder(w).Encode(map[string]string{"message": http.StatusText(forced)})
		return
	}
	json.NewEncoder(w).Encode(map[string]int{"count": count})
}

func (b *CRMBackend) handleLeads(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	leads := append([]domain.Lead(nil), b.Leads...)
	b.mu.Unlock()

	if status := r.URL.Query().Get("status"); status != "" {
		filtered := leads[:0]
		for _, l := range leads {
			if l.Status == status {
				filtered = append(filtered, l)
			}
		}
		leads = filtered
	}
	json.NewEncoder(w).Encode(leads)
}

func (b *CRMBackend) handleOverview(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	overview := b.Overview
	b.mu.Unlock()
	json.NewEncoder(w).Encode(overview)
}

func (b *CRMBackend) handleTaskCount(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	count := b.PendingTasks
	b.mu.Unlock()
	json.NewEncoder(w).Encode(map[string]int{"count": count})
}

func (b *CRMBackend) handleCompanyCount(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	count := b.Companies
	b.mu.Unlock()
	json.NewEncoder(w).Encode(map[string]int{"count": count})
}

func (b *CRMBackend) handleUserCount(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	count := b.Users
	b.mu.Unlock()
	json.NewEncoder(w).Encode(map[string]int{"count": count})
}

func (b *CRMBackend) handleToday(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	tasks := append([]domain.Task(nil), b.TodayTasks...)
	b.mu.Unlock()
	json.NewEncoder(w).Encode(tasks)
}

func (b *CRMBackend) handleNotes(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if r.Method == http.MethodPost {
		var note domain.Note
		if err := json.NewDecoder(r.Body).Decode(&note); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"message": "note body must be an object"})
			return
		}
		note.ID = int64(len(b.Notes) + 1)
		b.Notes = append(b.Notes, note)
		json.NewEncoder(w).Encode(note)
		return
	}

	leadID, _ := strconv.ParseInt(r.URL.Query().Get("leadId"), 10, 64)
	notes := []domain.Note{}
	for _, n := range b.Notes {
		if leadID == 0 || n.LeadID == leadID {
			notes = append(notes, n)
		}
	}
	json.NewEncoder(w).Encode(notes)
}
