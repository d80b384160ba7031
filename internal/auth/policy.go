package auth

// Ownership policy shared by the user and hotel services. Route-level checks
// (CanManage, CanCreate) gate by role; object-level checks refine by the
// target row's created_by. Handlers surface an object-level denial for staff
// with the same response as a missing row, so out-of-scope resources are
// indistinguishable from nonexistent ones, while a role-level denial is a
// distinguishable 403.

// CanManage reports whether the role may reach the management endpoints at
// all (list/retrieve/update/delete). Object-level checks refine further.
func CanManage(role Role) bool {
	return role == RoleStaff || role == RoleAdmin
}

// CanCreate reports whether the role may create users or hotels.
func CanCreate(role Role) bool {
	return role == RoleStaff || role == RoleAdmin
}

// CanAccessObject reports whether an actor may retrieve/update/delete a row
// with the given created_by. Admin sees everything; staff only rows it
// created; a NULL creator is reachable only by admin.
func CanAccessObject(role Role, actorID uint64, createdBy *uint64) bool {
	if role == RoleAdmin {
		return true
	}
	if role == RoleStaff {
		return createdBy != nil && *createdBy == actorID
	}
	return false
}

// Scope is the query-time restriction applied to list operations before any
// caller-supplied filter.
type Scope struct {
	// All is true for admin: no creator restriction.
	All bool
	// CreatorID restricts rows to created_by = CreatorID when All is false.
	CreatorID uint64
}

// ScopeFor returns the list scope for an actor. Regular actors never reach
// list endpoints (CanManage is false), but the zero scope they get here
// matches no rows regardless.
func ScopeFor(role Role, actorID uint64) Scope {
	if role == RoleAdmin {
		return Scope{All: true}
	}
	if role == RoleStaff {
		return Scope{CreatorID: actorID}
	}
	return Scope{}
}
