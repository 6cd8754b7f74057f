package rbac

import (
	"github.com/veraxlabs/go-access-server/users"
)

// Resolver computes a user's effective permission set from role assignments,
// role inheritance, and per-user overrides. It is a pure function of the user
// record plus the catalog and needs no locking.
type Resolver struct {
	catalog *Catalog
}

func NewResolver(catalog *Catalog) *Resolver {
	return &Resolver{catalog: catalog}
}

// EffectivePermissions resolves in three steps: union over the user's roles,
// union with the per-user grants, minus the per-user denials. Deny wins over
// everything.
func (r *Resolver) EffectivePermissions(user *users.User) PermissionSet {
	set := PermissionSet{}
	if user == nil {
		return set
	}

	for _, role := range user.EffectiveRoles() {
		for p := range r.catalog.EffectivePermissions(role) {
			set[p] = struct{}{}
		}
	}

	if user.CustomPermissions == nil {
		return set
	}
	for _, granted := range user.CustomPermissions.Granted {
		set[Permission(granted)] = struct{}{}
	}
	for _, denied := range user.CustomPermissions.Denied {
		delete(set, Permission(denied))
	}
	return set
}

// HasPermission, HasAnyPermission, and HasAllPermissions all derive from
// EffectivePermissions rather than short-circuiting per role, so they can
// never diverge from the canonical set.
func (r *Resolver) HasPermission(user *users.User, permission Permission) bool {
	return r.EffectivePermissions(user).Contains(permission)
}

func (r *Resolver) HasAnyPermission(user *users.User, permissions ...Permission) bool {
	set := r.EffectivePermissions(user)
	for _, p := range permissions {
		if set.Contains(p) {
			return true
		}
	}
	return false
}

func (r *Resolver) HasAllPermissions(user *users.User, permissions ...Permission) bool {
	set := r.EffectivePermissions(user)
	for _, p := range permissions {
		if !set.Contains(p) {
			return false
		}
	}
	return true
}

// CanModify authorizes "owner or override": the caller supplies the ownership
// predicate, this core supplies the permission check.
func (r *Resolver) CanModify(user *users.User, override Permission, ownsResource func() bool) bool {
	if ownsResource != nil && ownsResource() {
		return true
	}
	return r.HasPermission(user, override)
}
