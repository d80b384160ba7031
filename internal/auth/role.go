// Package auth holds the authorization model: role derivation from account
// flags, the ownership policy over accounts and hotels, and the refresh-token
// lifecycle service.
package auth

// Role is the privilege level of an actor, derived once per request from the
// stored (is_staff, is_superuser) pair.
type Role string

const (
	// RoleRegular has no management access to users or hotels.
	RoleRegular Role = "regular"
	// RoleStaff may create users/hotels and manage only rows it created.
	RoleStaff Role = "staff"
	// RoleAdmin has unrestricted access to all users and hotels.
	RoleAdmin Role = "admin"
)

// RoleOf maps the account flag pair to a Role. Admin requires BOTH flags:
// is_superuser without is_staff stays regular. The asymmetry mirrors the
// deployed permission checks and is relied on by tests; do not "fix" it.
func RoleOf(isStaff, isSuperuser bool) Role {
	switch {
	case isStaff && isSuperuser:
		return RoleAdmin
	case isStaff:
		return RoleStaff
	default:
		return RoleRegular
	}
}
