package shared

// Core platform capabilities.
const (
	PermAdmin = "admin"

	PermUsersView   = "users:view"
	PermUsersEdit   = "users:edit"
	PermUsersDelete = "users:delete"

	PermRolesView   = "roles:view"
	PermRolesEdit   = "roles:edit"
	PermRolesDelete = "roles:delete"
	PermRolesAssign = "roles:assign"

	PermPermissionsView = "permissions:view"

	PermTestingMode = "admin:testing-mode"

	PermJobsView = "jobs:view"
	PermJobsRun  = "jobs:run"

	PermAuditView   = "audit:view"
	PermAuditExport = "audit:export"
)

// CoreScopes lists all capabilities related to the core platform.
func CoreScopes() []string {
	return []string{
		PermAdmin,
		PermUsersView,
		PermUsersEdit,
		PermUsersDelete,
		PermRolesView,
		PermRolesEdit,
		PermRolesDelete,
		PermRolesAssign,
		PermPermissionsView,
		PermTestingMode,
		PermJobsView,
		PermJobsRun,
		PermAuditView,
		PermAuditExport,
	}
}

// AllScopes returns every capability declared by the platform and its modules.
func AllScopes() []string {
	var scopes []string
	scopes = append(scopes, CoreScopes()...)
	scopes = append(scopes, AcademicScopes()...)
	scopes = append(scopes, OperationsScopes()...)
	scopes = append(scopes, DocumentScopes()...)
	return scopes
}
