package rbac

type Role string
type Action string

const (
	RoleNone   Role = "none"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
)

const (
	ActionRead        Action = "read"
	ActionWrite       Action = "write"
	ActionPublish     Action = "publish"
	ActionManageUsers Action = "manage_users"
	ActionViewAudit   Action = "view_audit"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleEditor:
		return action == ActionRead || action == ActionWrite || action == ActionPublish
	default:
		return false
	}
}

// Normalize maps unknown roles to RoleNone.
func Normalize(role string) Role {
	switch Role(role) {
	case RoleEditor, RoleAdmin:
		return Role(role)
	default:
		return RoleNone
	}
}

// Valid reports whether role can be assigned to an admin account.
func Valid(role string) bool {
	return Normalize(role) != RoleNone
}
