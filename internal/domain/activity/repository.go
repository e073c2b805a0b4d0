package activity

import (
	"context"
	"time"
)

// Filter narrows record listings. Zero values mean "no constraint".
type Filter struct {
	FacilitatorID int64
	WeekNumber    int
	// Status matches when ANY of the six task fields equals it.
	Status   TaskStatus
	Semester string
	Year     int
}

// Matches evaluates the filter against a record; the offering is needed for
// the semester and year constraints.
func (f Filter) Matches(r *Record) bool {
	if f.FacilitatorID != 0 && r.FacilitatorID != f.FacilitatorID {
		return false
	}
	if f.WeekNumber != 0 && r.WeekNumber != f.WeekNumber {
		return false
	}
	if f.Status != "" {
		found := false
		for _, s := range r.Tasks() {
			if s == f.Status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Semester != "" || f.Year != 0 {
		if r.CourseOffering == nil {
			return false
		}
		if f.Semester != "" && r.CourseOffering.Semester != f.Semester {
			return false
		}
		if f.Year != 0 && r.CourseOffering.Year != f.Year {
			return false
		}
	}
	return true
}

// Page is a 1-based pagination request.
type Page struct {
	Page  int
	Limit int
}

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	return p
}

func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

// ListResult is one page of records plus the totals of the whole match.
type ListResult struct {
	Items      []*Record
	Page       int
	Limit      int
	Total      int
	TotalPages int
}

func NewListResult(items []*Record, p Page, total int) *ListResult {
	pages := 0
	if p.Limit > 0 {
		pages = (total + p.Limit - 1) / p.Limit
	}
	return &ListResult{Items: items, Page: p.Page, Limit: p.Limit, Total: total, TotalPages: pages}
}

// Repository persists weekly activity records.
type Repository interface {
	// Upsert creates the record for (allocationID, week) or merges fields
	// into the existing one. facilitatorID and lastUpdated are always
	// overwritten.
	Upsert(ctx context.Context, allocationID int64, week int, facilitatorID int64, fields Fields, now time.Time) (*Record, error)
	GetByID(ctx context.Context, id int64) (*Record, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter Filter, page Page) (*ListResult, error)
	ListAll(ctx context.Context, filter Filter) ([]*Record, error)
}
