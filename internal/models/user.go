package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleCashier Role = "cashier"
)

func ParseRole(s string) Role {
	if Role(s) == RoleCashier {
		return RoleCashier
	}
	return RoleAdmin
}

type User struct {
	ID        uuid.UUID  `json:"id"`
	Email     string     `json:"email"`
	ShopID    uuid.UUID  `json:"shop_id"`
	Role      Role       `json:"role"`
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}
