package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/proplink/crm-client/internal/apiclient"
	"github.com/proplink/crm-client/internal/domain"
	"github.com/proplink/crm-client/pkg/logger"
)

// PropertyService wraps the /properties namespace.
type PropertyService struct {
	api *apiclient.Client
	log *logger.Logger
}

// List fetches properties, optionally scoped to a company.
func (s *PropertyService) List(ctx context.Context, companyID int64) Result[[]domain.Property] {
	path := "/properties"
	if companyID > 0 {
		path += "?companyId=" + strconv.FormatInt(companyID, 10)
	}
	var props []domain.Property
	if err := s.api.Get(ctx, path, &props); err != nil {
		return Fail[[]domain.Property](err, "Failed to load properties")
	}
	return Ok(props)
}

// Get fetches a single property.
func (s *PropertyService) Get(ctx context.Context, id int64) Result[domain.Property] {
	var prop domain.Property
	if err := s.api.Get(ctx, fmt.Sprintf("/properties/%d", id), &prop); err != nil {
		return Fail[domain.Property](err, "Failed to load property")
	}
	return Ok(prop)
}

// Create adds a property.
func (s *PropertyService) Create(ctx context.Context, prop domain.Property) Result[domain.Property] {
	if prop.Title == "" {
		return FailLocal[domain.Property]("property title is required")
	}
	var created domain.Property
	if err := s.api.Post(ctx, "/properties", prop, &created); err != nil {
		return Fail[domain.Property](err, "Failed to create property")
	}
	return Ok(created)
}

// Update replaces a property's mutable fields.
func (s *PropertyService) Update(ctx context.Context, id int64, prop domain.Property) Result[domain.Property] {
	var updated domain.Property
	if err := s.api.Put(ctx, fmt.Sprintf("/properties/%d", id), prop, &updated); err != nil {
		return Fail[domain.Property](err, "Failed to update property")
	}
	return Ok(updated)
}

// Delete removes a property.
func (s *PropertyService) Delete(ctx context.Context, id int64) Result[struct{}] {
	if err := s.api.Delete(ctx, fmt.Sprintf("/properties/%d", id), nil); err != nil {
		return Fail[struct{}](err, "Failed to delete property")
	}
	return Ok(struct{}{})
}

// Overview returns the per-status breakdown used on the dashboard.
func (s *PropertyService) Overview(ctx context.Context, companyID int64) Result[domain.PropertyOverview] {
	path := "/properties/overview"
	if companyID > 0 {
		path += "?companyId=" + strconv.FormatInt(companyID, 10)
	}
	var overview domain.PropertyOverview
	if err := s.api.Get(ctx, path, &overview); err != nil {
		return Fail[domain.PropertyOverview](err, "Failed to load property overview")
	}
	return Ok(overview)
}
