package rbac

// Built-in role names
const (
	RoleUser      = "user"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// Default permissions
const (
	PermReadPosts     Permission = "read:posts"
	PermCreatePosts   Permission = "create:posts"
	PermUpdateOwnPost Permission = "update:own-post"
	PermDeleteOwnPost Permission = "delete:own-post"
	PermDeleteAnyPost Permission = "delete:any-post"
	PermUpdateAnyPost Permission = "update:any-post"
	PermReadUsers     Permission = "read:users"
	PermDeleteUsers   Permission = "delete:users"
	PermManageRoles   Permission = "manage:roles"
)

// DefaultRoleDefinitions returns the deploy-time role table:
// user ⊂ moderator ⊂ admin.
func DefaultRoleDefinitions() []RoleDefinition {
	return []RoleDefinition{
		{
			Name: RoleUser,
			Permissions: []Permission{
				PermReadPosts,
				PermCreatePosts,
				PermUpdateOwnPost,
				PermDeleteOwnPost,
			},
		},
		{
			Name:     RoleModerator,
			Includes: []string{RoleUser},
			Permissions: []Permission{
				PermDeleteAnyPost,
				PermUpdateAnyPost,
			},
		},
		{
			Name:     RoleAdmin,
			Includes: []string{RoleModerator},
			Permissions: []Permission{
				PermReadUsers,
				PermDeleteUsers,
				PermManageRoles,
			},
		},
	}
}

// DefaultCatalog builds the default role table. The definitions above are
// static, so a failure here is a programming error.
func DefaultCatalog() *Catalog {
	catalog, err := NewCatalog(DefaultRoleDefinitions())
	if err != nil {
		panic(err)
	}
	return catalog
}
