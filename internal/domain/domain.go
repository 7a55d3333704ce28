// Package domain holds the CRM entity types shared by the service façades
// and the aggregation layer.
package domain

import "time"

// Role classifies what an authenticated user may see and load.
type Role string

const (
	RoleDeveloper Role = "DEVELOPER"
	RoleDirector  Role = "DIRECTOR"
	RoleAdmin     Role = "ADMIN"
	RoleUser      Role = "USER"
)

// ParseRole maps a raw role string onto the closed role set. Unrecognized
// values fall back to RoleUser, the most restrictive behavior.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleDeveloper, RoleDirector, RoleAdmin, RoleUser:
		return Role(s)
	default:
		return RoleUser
	}
}

// UserProfile is the cached identity read on every authenticated request.
type UserProfile struct {
	UserID    int64 `json:"userId"`
	CompanyID int64 `json:"companyId,omitempty"`
	Role      Role  `json:"role"`
}

// Lead is a sales lead.
type Lead struct {
	ID         int64     `json:"id"`
	CompanyID  int64     `json:"companyId"`
	AssigneeID int64     `json:"assigneeId,omitempty"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone,omitempty"`
	Email      string    `json:"email,omitempty"`
	Source     string    `json:"source,omitempty"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Property is a real-estate listing tracked against leads.
type Property struct {
	ID        int64     `json:"id"`
	CompanyID int64     `json:"companyId"`
	Title     string    `json:"title"`
	Address   string    `json:"address,omitempty"`
	Price     float64   `json:"price,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// Note is a free-form annotation attached to a lead.
type Note struct {
	ID        int64     `json:"id"`
	LeadID    int64     `json:"leadId"`
	AuthorID  int64     `json:"authorId"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

// Task is a dated follow-up item assigned to a user.
type Task struct {
	ID         int64     `json:"id"`
	AssigneeID int64     `json:"assigneeId"`
	LeadID     int64     `json:"leadId,omitempty"`
	Title      string    `json:"title"`
	DueAt      time.Time `json:"dueAt"`
	Done       bool      `json:"done"`
}

// User is a CRM account.
type User struct {
	ID        int64     `json:"id"`
	CompanyID int64     `json:"companyId,omitempty"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// Company is a tenant.
type Company struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Plan      string    `json:"plan,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// PropertyOverview is the per-status breakdown shown on the dashboard.
// Every field has a meaningful zero value so a failed fetch can be
// substituted with PropertyOverview{}.
type PropertyOverview struct {
	Total     int `json:"total"`
	Available int `json:"available"`
	Reserved  int `json:"reserved"`
	Sold      int `json:"sold"`
}

// DashboardStats is the aggregated dashboard view model. It is built once
// per load and swapped in atomically; fields default to zero when their
// sub-call fails.
type DashboardStats struct {
	TotalLeads       int              `json:"totalLeads"`
	NewLeads         int              `json:"newLeads"`
	ClosedLeads      int              `json:"closedLeads"`
	PendingTasks     int              `json:"pendingTasks"`
	PropertyOverview PropertyOverview `json:"propertyOverview"`
	TotalCompanies   int              `json:"totalCompanies"`
	TotalUsers       int              `json:"totalUsers"`
}

// TodayEvents is the "today" panel view model.
type TodayEvents struct {
	Tasks     []Task `json:"tasks"`
	DueLeads  []Lead `json:"dueLeads"`
	Overdue   int    `json:"overdue"`
	Completed int    `json:"completed"`
}
