package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/proplink/crm-client/internal/apiclient"
	"github.com/proplink/crm-client/internal/domain"
	"github.com/proplink/crm-client/pkg/logger"
)

// LeadService wraps the /leads namespace.
type LeadService struct {
	api *apiclient.Client
	log *logger.Logger
}

// LeadFilter narrows lead queries. Zero fields are omitted.
type LeadFilter struct {
	Status     string
	AssigneeID int64
	CompanyID  int64
}

func (f LeadFilter) query() string {
	params := url.Values{}
	if f.Status != "" {
		params.Set("status", f.Status)
	}
	if f.AssigneeID > 0 {
		params.Set("assigneeId", strconv.FormatInt(f.AssigneeID, 10))
	}
	if f.CompanyID > 0 {
		params.Set("companyId", strconv.FormatInt(f.CompanyID, 10))
	}
	if len(params) == 0 {
		return ""
	}
	return "?" + params.Encode()
}

// List fetches leads matching the filter.
func (s *LeadService) List(ctx context.Context, filter LeadFilter) Result[[]domain.Lead] {
	var leads []domain.Lead
	if err := s.api.Get(ctx, "/leads"+filter.query(), &leads); err != nil {
		return Fail[[]domain.Lead](err, "Failed to load leads")
	}
	return Ok(leads)
}

// Get fetches a single lead.
func (s *LeadService) Get(ctx context.Context, id int64) Result[domain.Lead] {
	var lead domain.Lead
	if err := s.api.Get(ctx, fmt.Sprintf("/leads/%d", id), &lead); err != nil {
		return Fail[domain.Lead](err, "Failed to load lead")
	}
	return Ok(lead)
}

// Create adds a lead. A lead needs at least a name; anything else is the
// backend's call (its 400 messages pass through verbatim).
func (s *LeadService) Create(ctx context.Context, lead domain.Lead) Result[domain.Lead] {
	if lead.Name == "" {
		return FailLocal[domain.Lead]("lead name is required")
	}
	var created domain.Lead
	if err := s.api.Post(ctx, "/leads", lead, &created); err != nil {
		return Fail[domain.Lead](err, "Failed to create lead")
	}
	return Ok(created)
}

// Update replaces a lead's mutable fields.
func (s *LeadService) Update(ctx context.Context, id int64, lead domain.Lead) Result[domain.Lead] {
	var updated domain.Lead
	if err := s.api.Put(ctx, fmt.Sprintf("/leads/%d", id), lead, &updated); err != nil {
		return Fail[domain.Lead](err, "Failed to update lead")
	}
	return Ok(updated)
}

// Delete removes a lead.
func (s *LeadService) Delete(ctx context.Context, id int64) Result[struct{}] {
	if err := s.api.Delete(ctx, fmt.Sprintf("/leads/%d", id), nil); err != nil {
		return Fail[struct{}](err, "Failed to delete lead")
	}
	return Ok(struct{}{})
}

// Count returns the number of leads matching the filter.
func (s *LeadService) Count(ctx context.Context, filter LeadFilter) Result[int] {
	var resp countResponse
	if err := s.api.Get(ctx, "/leads/count"+filter.query(), &resp); err != nil {
		return Fail[int](err, "Failed to count leads")
	}
	return Ok(resp.Count)
}
