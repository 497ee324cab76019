package rbac

const (
	RoleStaff = "staff"
	RoleAdmin = "admin"
)

const (
	PermCandidateView  = "candidate:view"
	PermScoreEdit      = "score:edit"
	PermRanklistView   = "ranklist:view"
	PermRanklistExport = "ranklist:export"
	PermAuditView      = "audit:view"
	PermUsersManage    = "users:manage"
)

// RolePermissions is the default policy. Evaluators are staff; admin can
// also manage staff accounts.
var RolePermissions = map[string][]string{
	RoleStaff: {
		"candidate:*",
		PermScoreEdit,
		"ranklist:*",
		PermAuditView,
	},
	RoleAdmin: {
		"*",
	},
}

// ValidRole reports whether role has an entry in the default policy.
func ValidRole(role string) bool {
	_, ok := RolePermissions[role]
	return ok
}
