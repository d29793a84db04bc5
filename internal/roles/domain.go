package roles

import "github.com/aulanet/aulanet/internal/authz"

// GrantInput describes a new role assignment to create. Exactly the scope
// dimension relevant to the kind may be set; admin and consultant grants may
// also be global.
type GrantInput struct {
	UserID       string `json:"user_id" validate:"required"`
	Kind         string `json:"kind" validate:"required"`
	SchoolID     *int64 `json:"school_id,omitempty"`
	CommunityID  *int64 `json:"community_id,omitempty"`
	NetworkID    *int64 `json:"network_id,omitempty"`
	GenerationID *int64 `json:"generation_id,omitempty"`
	AssignedBy   string `json:"-"`
}

// Scope assembles the scope value from the populated dimensions.
func (in GrantInput) Scope() authz.Scope {
	return authz.Scope{
		SchoolID:     in.SchoolID,
		CommunityID:  in.CommunityID,
		NetworkID:    in.NetworkID,
		GenerationID: in.GenerationID,
	}
}

// KindInfo pairs a role kind with its display label.
type KindInfo struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Kinds lists every grantable role kind.
func Kinds() []KindInfo {
	kinds := make([]KindInfo, 0, len(authz.AllRoleKinds))
	for _, k := range authz.AllRoleKinds {
		kinds = append(kinds, KindInfo{Value: string(k), Label: k.Label()})
	}
	return kinds
}
