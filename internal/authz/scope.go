package authz

import (
	"fmt"
	"strings"
)

// Scope restricts a role assignment (or locates a resource) within the
// platform hierarchy. Dimensions are optional; an empty scope is global.
// Historically each dimension lived in its own nullable column on the role
// row and every call site compared them ad hoc; the single value object keeps
// the comparison in one place.
type Scope struct {
	SchoolID     *int64 `json:"school_id,omitempty"`
	CommunityID  *int64 `json:"community_id,omitempty"`
	NetworkID    *int64 `json:"network_id,omitempty"`
	GenerationID *int64 `json:"generation_id,omitempty"`
}

// GlobalScope returns the empty scope that matches every resource.
func GlobalScope() Scope { return Scope{} }

// SchoolScope scopes to a single school.
func SchoolScope(id int64) Scope { return Scope{SchoolID: &id} }

// CommunityScope scopes to a single community.
func CommunityScope(id int64) Scope { return Scope{CommunityID: &id} }

// NetworkScope scopes to a single network.
func NetworkScope(id int64) Scope { return Scope{NetworkID: &id} }

// GenerationScope scopes to a single generation.
func GenerationScope(id int64) Scope { return Scope{GenerationID: &id} }

// IsGlobal reports whether no dimension is populated.
func (s Scope) IsGlobal() bool {
	return s.SchoolID == nil && s.CommunityID == nil && s.NetworkID == nil && s.GenerationID == nil
}

// Dimensions returns the number of populated dimensions.
func (s Scope) Dimensions() int {
	n := 0
	for _, d := range []*int64{s.SchoolID, s.CommunityID, s.NetworkID, s.GenerationID} {
		if d != nil {
			n++
		}
	}
	return n
}

// Matches reports whether a role assignment carrying this scope applies to a
// resource located at target. A global scope matches everything. Otherwise
// every populated dimension must be present on the target with an equal
// value; a target that does not expose a required dimension never matches.
func (s Scope) Matches(target Scope) bool {
	if s.IsGlobal() {
		return true
	}
	return dimensionMatches(s.SchoolID, target.SchoolID) &&
		dimensionMatches(s.CommunityID, target.CommunityID) &&
		dimensionMatches(s.NetworkID, target.NetworkID) &&
		dimensionMatches(s.GenerationID, target.GenerationID)
}

func dimensionMatches(want, have *int64) bool {
	if want == nil {
		return true
	}
	return have != nil && *have == *want
}

// String renders the scope for logs and cache keys, e.g. "school:7".
func (s Scope) String() string {
	if s.IsGlobal() {
		return "global"
	}
	parts := make([]string, 0, 4)
	if s.SchoolID != nil {
		parts = append(parts, fmt.Sprintf("school:%d", *s.SchoolID))
	}
	if s.CommunityID != nil {
		parts = append(parts, fmt.Sprintf("community:%d", *s.CommunityID))
	}
	if s.NetworkID != nil {
		parts = append(parts, fmt.Sprintf("network:%d", *s.NetworkID))
	}
	if s.GenerationID != nil {
		parts = append(parts, fmt.Sprintf("generation:%d", *s.GenerationID))
	}
	return strings.Join(parts, ",")
}
