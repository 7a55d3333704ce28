package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/proplink/crm-client/internal/ratelimit"
	"github.com/proplink/crm-client/internal/session"
	"github.com/proplink/crm-client/pkg/logger"
)

const maxResponseBytes = 8 << 20

// Config configures the client.
type Config struct {
	// BaseURL is the backend root, e.g. "https://api.proplink.example".
	BaseURL string
	// ClientVersion and Platform are reported on every request.
	ClientVersion string
	Platform      string
	// ForceHTTPS rewrites absolute http:// URLs to https:// before
	// dispatch. Enabled in production deployments.
	ForceHTTPS bool
	// Harden enables the request timestamp header and body sanitization
	// for state-changing calls against sensitive namespaces.
	Harden bool
	// MaxRetries caps retry attempts for transient failures.
	MaxRetries int
	// RetryBase is the first backoff delay; attempt n waits
	// RetryBase * 2^(n-1).
	RetryBase time.Duration
	// Timeout bounds each HTTP attempt.
	Timeout time.Duration
	// HTTPClient overrides the underlying transport, mainly for tests.
	HTTPClient *http.Client
	// OnRedirect is invoked when a 401 on an auth-guarded path tears the
	// session down; the UI layer uses it to navigate to the entry route.
	OnRedirect func()
}

// DefaultConfig returns client defaults.
func DefaultConfig() Config {
	return Config{
		ClientVersion: "1.0.0",
		Platform:      "go-sdk",
		MaxRetries:    3,
		RetryBase:     200 * time.Millisecond,
		Timeout:       30 * time.Second,
	}
}

// Client dispatches authenticated requests with rate limiting, retry, and
// error classification. All outcomes surface as *APIError.
type Client struct {
	cfg      Config
	http     *http.Client
	limiter  *ratelimit.Limiter
	sessions *session.Accessor
	log      *logger.Logger
	metrics  *clientMetrics
}

// New creates a client. The limiter and session accessor are injected
// explicitly; the client never reaches for ambient global state.
func New(cfg Config, limiter *ratelimit.Limiter, sessions *session.Accessor, log *logger.Logger) *Client {
	def := DefaultConfig()
	if cfg.ClientVersion == "" {
		cfg.ClientVersion = def.ClientVersion
	}
	if cfg.Platform == "" {
		cfg.Platform = def.Platform
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = def.RetryBase
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if log == nil {
		log = logger.NewDefault("apiclient")
	}
	return &Client{
		cfg:      cfg,
		http:     httpClient,
		limiter:  limiter,
		sessions: sessions,
		log:      log,
		metrics:  newClientMetrics(),
	}
}

// Get issues a GET request and decodes the response into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

// Put issues a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, body, out)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodDelete, path, nil, out)
}

// Do runs the full request pipeline: admission, scheme normalization,
// token injection, hardening, dispatch, classification, retry. The attempt
// counter travels with the logical request, so repeated retries never
// reset it; once the ceiling is reached the last error is terminal.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	c.metrics.total.inc()

	if !c.limiter.Allow() {
		c.metrics.rateLimited.inc()
		c.log.WithFields(map[string]interface{}{"method": method, "path": path}).
			Warn("request refused by client-side rate limiter")
		return &APIError{Kind: KindRateLimited, Message: rateLimitedMessage}
	}

	fullURL, err := c.buildURL(path)
	if err != nil {
		return &APIError{Kind: KindBadInput, Message: "invalid request URL: " + path}
	}

	payload, apiErr := c.encodeBody(method, path, body)
	if apiErr != nil {
		return apiErr
	}

	if !isLoginPath(path) {
		if _, ok := c.sessions.Token(ctx); !ok {
			return &APIError{Kind: KindAuth, Message: reloginAdvisory}
		}
	}

	var lastErr *APIError
	redirected := false

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			c.metrics.retried.inc()
			delay := c.cfg.RetryBase * (1 << (attempt - 1))
			select {
			case <-ctx.Done():
				c.metrics.failed.inc()
				return &APIError{Kind: KindNetwork, Message: connectivityMessage}
			case <-time.After(delay):
			}
		}

		var retryable bool
		lastErr, retryable = c.dispatch(ctx, method, fullURL, path, payload, out, &redirected)
		if lastErr == nil {
			c.metrics.success.inc()
			return nil
		}
		if !retryable {
			break
		}
	}

	c.metrics.failed.inc()
	return lastErr
}

// dispatch performs one attempt and classifies its outcome. The second
// return value reports whether the failure is retryable.
func (c *Client) dispatch(ctx context.Context, method, fullURL, path string, payload []byte, out any, redirected *bool) (*APIError, bool) {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return &APIError{Kind: KindBadInput, Message: err.Error()}, false
	}
	c.setHeaders(ctx, req)

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return &APIError{Kind: KindNetwork, Message: connectivityMessage}, false
		}
		return &APIError{Kind: KindNetwork, Message: connectivityMessage}, true
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &APIError{Kind: KindNetwork, Message: connectivityMessage}, true
	}

	switch {
	case resp.StatusCode < 400:
		return c.decodeSuccess(raw, out), false

	case resp.StatusCode == http.StatusUnauthorized:
		return c.classify401(ctx, path, serverMessage(raw), redirected), false

	case resp.StatusCode == http.StatusBadRequest:
		// Passed through verbatim so entity services can surface
		// field-level messages.
		return &APIError{
			Kind:       KindValidation,
			Message:    messageOr(serverMessage(raw), genericServerFailure),
			StatusCode: resp.StatusCode,
		}, false

	case resp.StatusCode == http.StatusTooManyRequests:
		return &APIError{
			Kind:       KindRateLimited,
			Message:    messageOr(serverMessage(raw), rateLimitedMessage),
			StatusCode: resp.StatusCode,
		}, true

	case resp.StatusCode >= 500:
		return &APIError{
			Kind:       KindServer,
			Message:    messageOr(serverMessage(raw), genericServerFailure),
			StatusCode: resp.StatusCode,
		}, true

	default:
		return &APIError{
			Kind:       KindServer,
			Message:    messageOr(serverMessage(raw), genericServerFailure),
			StatusCode: resp.StatusCode,
		}, false
	}
}

// setHeaders applies the standing headers and injects the bearer token.
// The hardening extras run after the auth header is set and are
// best-effort: their failure can never remove it.
func (c *Client) setHeaders(ctx context.Context, req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("X-Client-Version", c.cfg.ClientVersion)
	req.Header.Set("X-Platform", c.cfg.Platform)
	req.Header.Set("X-Request-ID", uuid.NewString())

	if tok, ok := c.sessions.Token(ctx); ok {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	if c.cfg.Harden {
		c.hardenRequest(req)
	}
}

func (c *Client) hardenRequest(req *http.Request) {
	defer func() {
		if r := recover(); r != nil {
			c.log.WithField("panic", r).Warn("request hardening skipped")
		}
	}()
	req.Header.Set("X-Request-Timestamp", time.Now().UTC().Format(time.RFC3339))
}

// decodeSuccess strips password-like fields from object payloads before
// handing them to the caller, then unmarshals into out.
func (c *Client) decodeSuccess(raw []byte, out any) *APIError {
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return &APIError{Kind: KindServer, Message: "malformed response from server"}
	}
	cleaned, err := json.Marshal(stripSensitiveFields(decoded))
	if err != nil {
		cleaned = raw
	}
	if err := json.Unmarshal(cleaned, out); err != nil {
		return &APIError{Kind: KindServer, Message: "malformed response from server"}
	}
	return nil
}

// classify401 applies the endpoint-sensitivity rules for auth failures.
func (c *Client) classify401(ctx context.Context, path, serverMsg string, redirected *bool) *APIError {
	switch {
	case isLoginPath(path):
		// Credential error; stored session data is untouched.
		return &APIError{
			Kind:       KindAuth,
			Message:    messageOr(serverMsg, invalidCredentials),
			StatusCode: http.StatusUnauthorized,
		}

	case isSessionSensitivePath(path):
		// Never force a global logout for these namespaces; decode the
		// token locally to pick the right advisory. Local decode is a UX
		// hint only, the server already made the authorization decision.
		if tok, ok := c.sessions.Token(ctx); ok && session.TokenExpired(tok, time.Now()) {
			if err := c.sessions.Clear(ctx); err != nil {
				c.log.WithError(err).Warn("session clear incomplete")
			}
			return &APIError{
				Kind:       KindSessionExpired,
				Message:    sessionExpired,
				StatusCode: http.StatusUnauthorized,
			}
		}
		return &APIError{
			Kind:       KindAuth,
			Message:    reloginAdvisory,
			StatusCode: http.StatusUnauthorized,
		}

	default:
		if !*redirected {
			*redirected = true
			if err := c.sessions.Clear(ctx); err != nil {
				c.log.WithError(err).Warn("session clear incomplete")
			}
			if c.cfg.OnRedirect != nil {
				c.cfg.OnRedirect()
			}
		}
		return &APIError{
			Kind:       KindSessionExpired,
			Message:    sessionExpired,
			StatusCode: http.StatusUnauthorized,
		}
	}
}

// buildURL resolves path against the base URL and normalizes the scheme.
func (c *Client) buildURL(path string) (string, error) {
	full := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		full = strings.TrimSuffix(c.cfg.BaseURL, "/") + path
	}
	u, err := url.Parse(full)
	if err != nil {
		return "", err
	}
	if c.cfg.ForceHTTPS && u.Scheme == "http" {
		u.Scheme = "https"
	}
	return u.String(), nil
}

// encodeBody marshals the request body, sanitizing string fields for
// state-changing calls against sensitive namespaces when hardening is on.
// Sanitization is best-effort: if the round trip fails, the original
// payload is dispatched unchanged.
func (c *Client) encodeBody(method, path string, body any) ([]byte, *APIError) {
	if body == nil {
		return nil, nil
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &APIError{Kind: KindBadInput, Message: "request body is not serializable"}
	}

	if c.cfg.Harden && isStateChanging(method) && isSensitivePath(path) {
		var decoded any
		if err := json.Unmarshal(payload, &decoded); err == nil {
			if cleaned, err := json.Marshal(sanitizeValue(decoded)); err == nil {
				payload = cleaned
			}
		}
	}
	return payload, nil
}

func isStateChanging(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func isLoginPath(path string) bool {
	return strings.Contains(path, "/auth/login")
}

// Session-sensitive but non-fatal namespaces: a 401 here is reported to
// the caller but never unilaterally tears the session down.
func isSessionSensitivePath(path string) bool {
	return strings.HasPrefix(path, "/notes") || strings.HasPrefix(path, "/followups")
}

// serverMessage extracts the optional top-level "message" field from an
// error response body.
func serverMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	return strings.TrimSpace(body.Message)
}

func messageOr(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}
