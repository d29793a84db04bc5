package authz

import (
	"errors"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrStoreUnavailable indicates the role store (or its cache) could not be
// reached. Authorization always fails closed when it is returned.
var ErrStoreUnavailable = errors.New("authz: role store unavailable")

// RoleKind identifies one of the platform role types.
type RoleKind string

const (
	RoleAdmin             RoleKind = "admin"
	RoleConsultant        RoleKind = "consultant"
	RoleSchoolLeadership  RoleKind = "school_leadership_team"
	RoleCommunityManager  RoleKind = "community_manager"
	RoleGenerationLeader  RoleKind = "generation_leader"
	RoleCommunityLeader   RoleKind = "community_leader"
	RoleNetworkSupervisor RoleKind = "network_supervisor"
	RoleTeacher           RoleKind = "teacher"
	RoleStudent           RoleKind = "student"
)

// AllRoleKinds lists every known role kind in priority order.
var AllRoleKinds = []RoleKind{
	RoleAdmin,
	RoleConsultant,
	RoleNetworkSupervisor,
	RoleSchoolLeadership,
	RoleGenerationLeader,
	RoleCommunityManager,
	RoleCommunityLeader,
	RoleTeacher,
	RoleStudent,
}

var roleKindPriorities = map[RoleKind]int{
	RoleAdmin:             90,
	RoleConsultant:        80,
	RoleNetworkSupervisor: 70,
	RoleSchoolLeadership:  60,
	RoleGenerationLeader:  50,
	RoleCommunityManager:  40,
	RoleCommunityLeader:   30,
	RoleTeacher:           20,
	RoleStudent:           10,
}

// Valid reports whether the kind belongs to the closed enumeration.
func (k RoleKind) Valid() bool {
	_, ok := roleKindPriorities[k]
	return ok
}

// Priority returns the ordering weight of the kind; unknown kinds sort last.
func (k RoleKind) Priority() int {
	return roleKindPriorities[k]
}

var labelCaser = cases.Title(language.English)

// Label renders a human readable name, e.g. "School Leadership Team".
func (k RoleKind) Label() string {
	return labelCaser.String(strings.ReplaceAll(string(k), "_", " "))
}

// Assignment is one active or revoked role grant for a user. A user may hold
// any number of assignments, including several of the same kind; all lookups
// operate on the full list, never on a single row.
type Assignment struct {
	ID         int64      `json:"id"`
	UserID     string     `json:"user_id"`
	Kind       RoleKind   `json:"kind"`
	Scope      Scope      `json:"scope"`
	IsActive   bool       `json:"is_active"`
	AssignedBy string     `json:"assigned_by,omitempty"`
	AssignedAt time.Time  `json:"assigned_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
}

// IsGlobalAdmin reports whether this assignment is an unscoped admin grant.
func (a Assignment) IsGlobalAdmin() bool {
	return a.Kind == RoleAdmin && a.Scope.IsGlobal() && a.IsActive
}

// SortAssignments orders assignments by kind priority (highest first) and ID.
// The order carries no authorization meaning; it exists so that role listings
// and snapshots are deterministic.
func SortAssignments(assignments []Assignment) {
	sort.SliceStable(assignments, func(i, j int) bool {
		pi, pj := assignments[i].Kind.Priority(), assignments[j].Kind.Priority()
		if pi != pj {
			return pi > pj
		}
		return assignments[i].ID < assignments[j].ID
	})
}

// Resource describes the object an action is evaluated against.
type Resource struct {
	Type  string `json:"type,omitempty"`
	ID    string `json:"id,omitempty"`
	Scope Scope  `json:"scope"`
}

// Decision is the outcome of evaluating (user, action, resource). It is never
// persisted and is always re-derivable from the assignment set.
type Decision struct {
	Allow  bool   `json:"allow"`
	Reason Reason `json:"reason"`
}

// Reason explains a decision. Deny reasons are not errors; infrastructure
// failures additionally surface as ErrStoreUnavailable.
type Reason string

const (
	ReasonGlobalAdmin      Reason = "global_admin"
	ReasonScopedRole       Reason = "scoped_role"
	ReasonNoRoles          Reason = "no_roles"
	ReasonNoCapability     Reason = "no_capability"
	ReasonScopeMismatch    Reason = "scope_mismatch"
	ReasonUnknownAction    Reason = "unknown_action"
	ReasonStoreUnavailable Reason = "store_unavailable"
)

func allow(reason Reason) Decision { return Decision{Allow: true, Reason: reason} }
func deny(reason Reason) Decision  { return Decision{Allow: false, Reason: reason} }
