package session

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/proplink/crm-client/internal/domain"
)

// Accessor reads and clears the cached session across two storage scopes.
// The session scope is consulted first; the durable scope is the fallback
// source of truth when the session scope is empty.
type Accessor struct {
	session Store
	durable Store
}

// NewAccessor creates an accessor over the two scopes. Either scope may be
// the same Store instance when a deployment has only one.
func NewAccessor(sessionScope, durableScope Store) *Accessor {
	return &Accessor{session: sessionScope, durable: durableScope}
}

// Token returns the bearer token, trimmed of surrounding whitespace.
// An empty-after-trim token is treated as absent.
func (a *Accessor) Token(ctx context.Context) (string, bool) {
	raw := a.read(ctx, KeyToken)
	tok := strings.TrimSpace(raw)
	if tok == "" {
		return "", false
	}
	return tok, true
}

// User returns the cached user profile, or false when absent or
// undecodable.
func (a *Accessor) User(ctx context.Context) (*domain.UserProfile, bool) {
	raw := a.read(ctx, KeyUser)
	if strings.TrimSpace(raw) == "" {
		return nil, false
	}
	var profile domain.UserProfile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		return nil, false
	}
	profile.Role = domain.ParseRole(string(profile.Role))
	return &profile, true
}

// SetSession writes the token and profile to both scopes.
func (a *Accessor) SetSession(ctx context.Context, token string, profile *domain.UserProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	var errs []error
	for _, store := range []Store{a.session, a.durable} {
		errs = append(errs,
			store.Set(ctx, KeyToken, token),
			store.Set(ctx, KeyUser, string(data)),
		)
	}
	return errors.Join(errs...)
}

// Clear removes the token, profile and company id from both scopes.
// Every deletion is attempted even when an earlier one fails; a partial
// clear is a defect.
func (a *Accessor) Clear(ctx context.Context) error {
	var errs []error
	for _, store := range []Store{a.session, a.durable} {
		for _, key := range []string{KeyToken, KeyUser, KeyCompanyID} {
			errs = append(errs, store.Delete(ctx, key))
		}
	}
	return errors.Join(errs...)
}

// read returns the first non-empty value across the scopes.
func (a *Accessor) read(ctx context.Context, key string) string {
	if val, err := a.session.Get(ctx, key); err == nil && val != "" {
		return val
	}
	val, err := a.durable.Get(ctx, key)
	if err != nil {
		return ""
	}
	return val
}
