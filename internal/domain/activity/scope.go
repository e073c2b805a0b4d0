package activity

import "activity_tracker/internal/domain/user"

// Scope is the row-level visibility of a caller. A zero Scope sees every
// record.
type Scope struct {
	FacilitatorID int64
}

// ScopeFor returns the scope of the caller: facilitators are pinned to their
// own records, managers and admins are unrestricted.
func ScopeFor(c user.Caller) Scope {
	if c.Privileged() {
		return Scope{}
	}
	return Scope{FacilitatorID: c.ID}
}

// Allows reports whether a record is visible within the scope.
func (s Scope) Allows(r *Record) bool {
	return s.FacilitatorID == 0 || r.FacilitatorID == s.FacilitatorID
}

// Restrict composes the scope with explicit filters. The scope always wins
// over a caller-supplied facilitator filter.
func (s Scope) Restrict(f Filter) Filter {
	if s.FacilitatorID != 0 {
		f.FacilitatorID = s.FacilitatorID
	}
	return f
}
