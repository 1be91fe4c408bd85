package models

import "time"

// AuditEntry is one append-only record of a status transition.
type AuditEntry struct {
	ID            string    `json:"id"`
	ApplicationID string    `json:"applicationId"`
	ActorID       string    `json:"actorId"`
	Role          Role      `json:"role"`
	Action        string    `json:"action"`
	FromStatus    Status    `json:"fromStatus"`
	ToStatus      Status    `json:"toStatus"`
	Reason        string    `json:"reason,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// ListFilter carries the dashboard query parameters explicitly per call.
type ListFilter struct {
	Search      string     `json:"search,omitempty"`
	ServiceType string     `json:"serviceType,omitempty"`
	UpdatedFrom *time.Time `json:"updatedFrom,omitempty"`
	UpdatedTo   *time.Time `json:"updatedTo,omitempty"`
	Page        int        `json:"page"`
	PageSize    int        `json:"pageSize"`
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Normalize clamps paging to sane bounds.
func (f ListFilter) Normalize() ListFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	return f
}

// Offset is the zero-based row offset of the page.
func (f ListFilter) Offset() int {
	return (f.Page - 1) * f.PageSize
}

// ListQuery is a ListFilter bound to a set of statuses.
type ListQuery struct {
	Statuses []Status
	ListFilter
}

// ApplicationPage is one page of dashboard rows.
type ApplicationPage struct {
	Items    []ApplicationSummary `json:"items"`
	Total    int                  `json:"total"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"pageSize"`
}
