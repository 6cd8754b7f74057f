package rbac

import (
	"sort"

	"github.com/pkg/errors"
)

// RoleDefinition declares a role: its directly assigned permissions plus the
// roles whose permissions it includes. The include relation must be acyclic.
type RoleDefinition struct {
	Name        string       `json:"name"`
	Permissions []Permission `json:"permissions"`
	Includes    []string     `json:"includes,omitempty"`
}

// Catalog is the immutable role table. Effective permission sets are computed
// once at construction; after that the catalog is read-only and safe for
// concurrent use without locking. Hot reload means building a new Catalog and
// swapping the reference, never mutating in place.
type Catalog struct {
	definitions map[string]RoleDefinition
	effective   map[string]PermissionSet
}

// NewCatalog validates the definitions and resolves every role's effective
// permission set. Unknown includes and include cycles are configuration
// errors and fail construction.
func NewCatalog(definitions []RoleDefinition) (*Catalog, error) {
	defs := make(map[string]RoleDefinition, len(definitions))
	for _, def := range definitions {
		if def.Name == "" {
			return nil, errors.New("role definition with empty name")
		}
		if _, exists := defs[def.Name]; exists {
			return nil, errors.Errorf("duplicate role definition %q", def.Name)
		}
		defs[def.Name] = def
	}

	for _, def := range defs {
		for _, included := range def.Includes {
			if _, ok := defs[included]; !ok {
				return nil, errors.Errorf("role %q includes unknown role %q", def.Name, included)
			}
		}
	}

	c := &Catalog{
		definitions: defs,
		effective:   make(map[string]PermissionSet, len(defs)),
	}

	// Resolve every role up front. The DFS doubles as cycle detection:
	// a role revisited while still on the stack is a cycle.
	onStack := make(map[string]bool, len(defs))
	for name := range defs {
		if _, err := c.resolve(name, onStack); err != nil {
			return nil, err
		}
	}

	return c, nil
}

func (c *Catalog) resolve(role string, onStack map[string]bool) (PermissionSet, error) {
	if resolved, ok := c.effective[role]; ok {
		return resolved, nil
	}
	if onStack[role] {
		return nil, errors.Errorf("role include cycle through %q", role)
	}
	onStack[role] = true
	defer delete(onStack, role)

	def := c.definitions[role]
	set := NewPermissionSet(def.Permissions...)
	for _, included := range def.Includes {
		includedSet, err := c.resolve(included, onStack)
		if err != nil {
			return nil, err
		}
		for p := range includedSet {
			set[p] = struct{}{}
		}
	}

	c.effective[role] = set
	return set, nil
}

// HasRole reports whether the catalog defines the given role.
func (c *Catalog) HasRole(role string) bool {
	_, ok := c.definitions[role]
	return ok
}

// Roles returns the defined role names in lexical order.
func (c *Catalog) Roles() []string {
	names := make([]string, 0, len(c.definitions))
	for name := range c.definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EffectivePermissions returns the role's direct permissions unioned with the
// effective permissions of every role it includes. Unknown roles resolve to
// the empty set: role assignments on user records are runtime data and must
// not turn into per-request errors.
func (c *Catalog) EffectivePermissions(role string) PermissionSet {
	resolved, ok := c.effective[role]
	if !ok {
		return PermissionSet{}
	}
	// Copy so callers cannot mutate the memoized set.
	set := make(PermissionSet, len(resolved))
	for p := range resolved {
		set[p] = struct{}{}
	}
	return set
}
