package rbac

import "sort"

// Permission is an opaque "action:resource" capability identifier,
// e.g. "delete:any-post". Permissions have no further structure here.
type Permission string

// NewPermission builds the canonical action:resource identifier.
func NewPermission(action, resource string) Permission {
	return Permission(action + ":" + resource)
}

func (p Permission) String() string {
	return string(p)
}

// PermissionSet is a resolved, request-scoped set of permissions.
type PermissionSet map[Permission]struct{}

func NewPermissionSet(perms ...Permission) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

func (s PermissionSet) Contains(p Permission) bool {
	_, ok := s[p]
	return ok
}

func (s PermissionSet) Add(perms ...Permission) {
	for _, p := range perms {
		s[p] = struct{}{}
	}
}

func (s PermissionSet) Remove(perms ...Permission) {
	for _, p := range perms {
		delete(s, p)
	}
}

// Union returns a new set containing the members of both sets.
func (s PermissionSet) Union(other PermissionSet) PermissionSet {
	union := make(PermissionSet, len(s)+len(other))
	for p := range s {
		union[p] = struct{}{}
	}
	for p := range other {
		union[p] = struct{}{}
	}
	return union
}

// Sorted returns the members in lexical order, for stable output and tests.
func (s PermissionSet) Sorted() []Permission {
	perms := make([]Permission, 0, len(s))
	for p := range s {
		perms = append(perms, p)
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
	return perms
}
