package users

import "time"

// UserType mirrors the two account kinds.
type UserType string

const (
	UserTypeCompany  UserType = "COMPANY"
	UserTypeInternal UserType = "INTERNAL"
)

// User is an administrable account. CompanyID is zero for internal users.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Type      UserType  `json:"userType"`
	CompanyID int64     `json:"companyId,omitempty"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RoleRef is a role attached to a user.
type RoleRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Restriction is one allow-list row of an internal user.
type Restriction struct {
	CompanyID      int64      `json:"companyId"`
	CompanyName    string     `json:"companyName"`
	IsActive       bool       `json:"isActive"`
	LastAccessedAt *time.Time `json:"lastAccessedAt"`
	CreatedAt      time.Time  `json:"createdAt"`
}
