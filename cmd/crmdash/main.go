// Command crmdash loads the CRM dashboard view model from a live backend
// and prints it as JSON. It exercises the full stack: config, session
// stores, rate limiter, resilient client, entity services, aggregation.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/proplink/crm-client/internal/aggregate"
	"github.com/proplink/crm-client/internal/apiclient"
	"github.com/proplink/crm-client/internal/config"
	"github.com/proplink/crm-client/internal/domain"
	"github.com/proplink/crm-client/internal/ratelimit"
	"github.com/proplink/crm-client/internal/services"
	"github.com/proplink/crm-client/internal/session"
	"github.com/proplink/crm-client/pkg/logger"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to client.yaml (defaults to config/client.yaml)")
		events     = flag.Bool("events", false, "Load today's events instead of dashboard statistics")
		timeout    = flag.Duration("timeout", 30*time.Second, "Overall load timeout")
	)
	flag.Parse()

	var cfg *config.Config
	if *configPath != "" {
		loaded, err := config.LoadFromPath(*configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		cfg = loaded
	} else {
		cfg = config.LoadOrDefault()
	}
	if cfg.API.BaseURL == "" {
		log.Fatal("api.base_url (or CRM_API_URL) is required")
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	appLog := logger.New("crmdash", level)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	sessions, err := buildSessions(ctx, cfg)
	if err != nil {
		log.Fatalf("session store: %v", err)
	}

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequests: cfg.RateLimit.MaxRequests,
		Window:      cfg.RateLimit.Window,
	})
	api := apiclient.New(apiclient.Config{
		BaseURL:       cfg.API.BaseURL,
		ClientVersion: cfg.API.ClientVersion,
		Platform:      cfg.API.Platform,
		ForceHTTPS:    cfg.API.ForceHTTPS,
		Harden:        cfg.API.Harden,
		MaxRetries:    cfg.API.MaxRetries,
		RetryBase:     cfg.API.RetryBase,
		Timeout:       cfg.API.Timeout,
		OnRedirect: func() {
			appLog.Warn("session invalidated, re-authentication required")
		},
	}, limiter, sessions, appLog)

	svcs := services.New(api, appLog)

	var output any
	if *events {
		snap := aggregate.NewEventsLoader(svcs, sessions, appLog).Load(ctx)
		if snap.Err != nil {
			log.Fatalf("load events: %v", snap.Err)
		}
		output = snap.Data
	} else {
		snap := aggregate.NewDashboardLoader(svcs, sessions, appLog).Load(ctx)
		if snap.Err != nil {
			log.Fatalf("load dashboard: %v", snap.Err)
		}
		output = snap.Data
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(output); err != nil {
		log.Fatalf("encode output: %v", err)
	}

	appLog.WithFields(map[string]interface{}{
		"metrics": api.Metrics(),
	}).Debug("request counters")
}

// buildSessions assembles the dual-scope session accessor. The token and
// profile come from the environment; the durable scope is Redis when
// configured, in-memory otherwise.
func buildSessions(ctx context.Context, cfg *config.Config) (*session.Accessor, error) {
	sessionScope := session.NewMemoryStore()

	var durableScope session.Store = session.NewMemoryStore()
	if cfg.Redis.Enabled {
		store, err := session.NewRedisStore(ctx, session.RedisStoreConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		})
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		durableScope = store
	}

	accessor := session.NewAccessor(sessionScope, durableScope)

	token := os.Getenv("CRM_TOKEN")
	if token == "" {
		return accessor, nil
	}

	profile := &domain.UserProfile{Role: domain.ParseRole(os.Getenv("CRM_ROLE"))}
	if sub, ok := session.TokenSubject(token); ok {
		fmt.Sscan(sub, &profile.UserID)
	}
	if v := os.Getenv("CRM_USER_ID"); v != "" {
		fmt.Sscan(v, &profile.UserID)
	}
	if v := os.Getenv("CRM_COMPANY_ID"); v != "" {
		fmt.Sscan(v, &profile.CompanyID)
	}

	if err := accessor.SetSession(ctx, token, profile); err != nil {
		return nil, fmt.Errorf("seed session: %w", err)
	}
	return accessor, nil
}
