package testutil

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/proplink/crm-client/internal/apiclient"
	"github.com/proplink/crm-client/internal/domain"
	"github.com/proplink/crm-client/internal/ratelimit"
	"github.com/proplink/crm-client/internal/session"
)

func seededClient(t *testing.T, backend *CRMBackend) *apiclient.Client {
	t.Helper()
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)

	header, _ := json.Marshal(map[string]string{"alg": "none", "typ": "JWT"})
	payload, _ := json.Marshal(map[string]any{"exp": time.Now().Add(time.Hour).Unix()})
	enc := base64.RawURLEncoding
	token := fmt.Sprintf("%s.%s.sig", enc.EncodeToString(header), enc.EncodeToString(payload))

	sessions := session.NewAccessor(session.NewMemoryStore(), session.NewMemoryStore())
	if err := sessions.SetSession(context.Background(), token, &domain.UserProfile{UserID: 1}); err != nil {
		t.Fatalf("SetSession: %v", err)
	}
	limiter := ratelimit.New(ratelimit.Config{MaxRequests: 1000, Window: time.Minute})
	return apiclient.New(apiclient.Config{
		BaseURL:    server.URL,
		MaxRetries: 2,
		RetryBase:  time.Millisecond,
	}, limiter, sessions, nil)
}

func TestCRMBackend_ServesCannedCounts(t *testing.T) {
	backend := NewCRMBackend()
	backend.LeadCounts["NEW"] = 4
	client := seededClient(t, backend)

	var resp struct {
		Count int `json:"count"`
	}
	if err := client.Get(context.Background(), "/leads/count?status=NEW", &resp); err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if resp.Count != 4 {
		t.Errorf("count = %d, want 4", resp.Count)
	}
	if backend.Hits("/leads/count") != 1 {
		t.Errorf("hits = %d, want 1", backend.Hits("/leads/count"))
	}
}

func TestCRMBackend_ForcedFailure(t *testing.T) {
	backend := NewCRMBackend()
	backend.FailPath("/users/count", http.StatusInternalServerError)
	client := seededClient(t, backend)

	err := client.Get(context.Background(), "/users/count", nil)
	if !apiclient.IsKind(err, apiclient.KindServer) {
		t.Fatalf("error = %v, want server kind", err)
	}

	backend.RestorePath("/users/count")
	backend.Users = 2
	if err := client.Get(context.Background(), "/users/count", nil); err != nil {
		t.Errorf("Get() after restore error: %v", err)
	}
}

func TestCRMBackend_ThrottleAnswers429(t *testing.T) {
	backend := NewCRMBackend()
	// One request allowed, then a long refill: the second request sees a
	// server-side 429 on every retry attempt.
	backend.Throttle(rate.Every(time.Hour), 1)
	client := seededClient(t, backend)

	if err := client.Get(context.Background(), "/companies/count", nil); err != nil {
		t.Fatalf("first Get() error: %v", err)
	}

	err := client.Get(context.Background(), "/companies/count", nil)
	if !apiclient.IsKind(err, apiclient.KindRateLimited) {
		t.Fatalf("error = %v, want rate_limited from server 429", err)
	}
	apiErr := apiclient.AsAPIError(err)
	if apiErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("StatusCode = %d, want 429", apiErr.StatusCode)
	}
}
