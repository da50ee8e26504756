package model

import "github.com/google/uuid"

type UserRole string

const (
	UserRoleAdmin    UserRole = "ADMIN"
	UserRoleOperator UserRole = "OPERATOR"
	UserRoleViewer   UserRole = "VIEWER"
)

type Principal struct {
	UserID uuid.UUID
	Role   UserRole
}

func (p Principal) IsAdmin() bool {
	return p.Role == UserRoleAdmin
}

func (p Principal) IsOperator() bool {
	return p.Role == UserRoleOperator
}

// CanOperate reports whether the principal may act on sessions (finalize exits).
func (p Principal) CanOperate() bool {
	return p.IsAdmin() || p.IsOperator()
}
