package domain

import "time"

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleCashier Role = "cajero"
)

// ParseRole разбирает роль из запроса. Пустая строка даёт кассира.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case "":
		return RoleCashier, true
	case RoleAdmin, RoleCashier:
		return Role(s), true
	default:
		return "", false
	}
}

// User — учётная запись сотрудника
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// Principal — аутентифицированный пользователь текущего запроса.
type Principal struct {
	UserID int64
	Role   Role
}

func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}
