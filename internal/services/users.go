package services

import (
	"context"
	"fmt"

	"github.com/proplink/crm-client/internal/apiclient"
	"github.com/proplink/crm-client/internal/domain"
	"github.com/proplink/crm-client/pkg/logger"
)

// UserService wraps the /users namespace.
type UserService struct {
	api *apiclient.Client
	log *logger.Logger
}

// Me fetches the authenticated user's own record.
func (s *UserService) Me(ctx context.Context) Result[domain.User] {
	var user domain.User
	if err := s.api.Get(ctx, "/users/me", &user); err != nil {
		return Fail[domain.User](err, "Failed to load profile")
	}
	return Ok(user)
}

// Get fetches a user by id.
func (s *UserService) Get(ctx context.Context, id int64) Result[domain.User] {
	var user domain.User
	if err := s.api.Get(ctx, fmt.Sprintf("/users/%d", id), &user); err != nil {
		return Fail[domain.User](err, "Failed to load user")
	}
	return Ok(user)
}

// List fetches all users visible to the caller.
func (s *UserService) List(ctx context.Context) Result[[]domain.User] {
	var users []domain.User
	if err := s.api.Get(ctx, "/users", &users); err != nil {
		return Fail[[]domain.User](err, "Failed to load users")
	}
	return Ok(users)
}

// Count returns the total number of users across companies. Only the
// DEVELOPER dashboard branch calls this.
func (s *UserService) Count(ctx context.Context) Result[int] {
	var resp countResponse
	if err := s.api.Get(ctx, "/users/count", &resp); err != nil {
		return Fail[int](err, "Failed to count users")
	}
	return Ok(resp.Count)
}
