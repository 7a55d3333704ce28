package services

import (
	"context"
	"fmt"

	"github.com/proplink/crm-client/internal/apiclient"
	"github.com/proplink/crm-client/internal/domain"
	"github.com/proplink/crm-client/pkg/logger"
)

// CompanyService wraps the /companies namespace.
type CompanyService struct {
	api *apiclient.Client
	log *logger.Logger
}

// Get fetches a company by id.
func (s *CompanyService) Get(ctx context.Context, id int64) Result[domain.Company] {
	var company domain.Company
	if err := s.api.Get(ctx, fmt.Sprintf("/companies/%d", id), &company); err != nil {
		return Fail[domain.Company](err, "Failed to load company")
	}
	return Ok(company)
}

// List fetches all companies. Only cross-company roles may call this; the
// backend enforces it, the client just surfaces the result.
func (s *CompanyService) List(ctx context.Context) Result[[]domain.Company] {
	var companies []domain.Company
	if err := s.api.Get(ctx, "/companies", &companies); err != nil {
		return Fail[[]domain.Company](err, "Failed to load companies")
	}
	return Ok(companies)
}

// Count returns the total number of companies.
func (s *CompanyService) Count(ctx context.Context) Result[int] {
	var resp countResponse
	if err := s.api.Get(ctx, "/companies/count", &resp); err != nil {
		return Fail[int](err, "Failed to count companies")
	}
	return Ok(resp.Count)
}
