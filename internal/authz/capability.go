package authz

// Action identifies an operation a caller wants to perform.
type Action string

const (
	ActionViewCourse       Action = "view_course"
	ActionManageCourses    Action = "manage_courses"
	ActionDeleteCourse     Action = "delete_course"
	ActionManageNews       Action = "manage_news"
	ActionManageEvents     Action = "manage_events"
	ActionManageMembers    Action = "manage_members"
	ActionManageFinancials Action = "manage_financials"
	ActionViewReports      Action = "view_reports"
	ActionViewCommunity    Action = "view_community"
	ActionManageRoles      Action = "manage_roles"
	ActionManageUsers      Action = "manage_users"
)

// AllActions lists every action known to the capability table.
var AllActions = []Action{
	ActionViewCourse,
	ActionManageCourses,
	ActionDeleteCourse,
	ActionManageNews,
	ActionManageEvents,
	ActionManageMembers,
	ActionManageFinancials,
	ActionViewReports,
	ActionViewCommunity,
	ActionManageRoles,
	ActionManageUsers,
}

// capabilities is the static table mapping role kinds to the actions they may
// perform. Scope matching is evaluated separately; an admin assignment with a
// scope is still confined to that scope.
var capabilities = map[RoleKind]map[Action]struct{}{
	RoleAdmin: actionSet(AllActions...),
	RoleConsultant: actionSet(
		ActionViewCourse,
		ActionViewReports,
		ActionViewCommunity,
	),
	RoleSchoolLeadership: actionSet(
		ActionViewCourse,
		ActionManageCourses,
		ActionDeleteCourse,
		ActionManageMembers,
		ActionManageFinancials,
		ActionViewReports,
	),
	RoleCommunityManager: actionSet(
		ActionManageNews,
		ActionManageEvents,
	),
	RoleGenerationLeader: actionSet(
		ActionViewCommunity,
		ActionManageMembers,
	),
	RoleCommunityLeader: actionSet(
		ActionManageNews,
		ActionManageEvents,
		ActionManageMembers,
		ActionViewCommunity,
	),
	RoleNetworkSupervisor: actionSet(
		ActionViewReports,
		ActionViewCommunity,
	),
	RoleTeacher: actionSet(
		ActionViewCourse,
		ActionManageCourses,
	),
	RoleStudent: actionSet(
		ActionViewCourse,
	),
}

func actionSet(actions ...Action) map[Action]struct{} {
	set := make(map[Action]struct{}, len(actions))
	for _, a := range actions {
		set[a] = struct{}{}
	}
	return set
}

// KnownAction reports whether the action appears in the capability table.
func KnownAction(action Action) bool {
	for _, a := range AllActions {
		if a == action {
			return true
		}
	}
	return false
}

// HasCapability reports whether the role kind may perform the action at all,
// before any scope check.
func HasCapability(kind RoleKind, action Action) bool {
	set, ok := capabilities[kind]
	if !ok {
		return false
	}
	_, ok = set[action]
	return ok
}
