package auth

import "time"

// UserType splits accounts into the two actor kinds.
type UserType string

const (
	// UserTypeCompany accounts are permanently bound to one company.
	UserTypeCompany UserType = "COMPANY"
	// UserTypeInternal accounts are platform staff.
	UserTypeInternal UserType = "INTERNAL"
)

// User represents an authenticated account. CompanyID is set for COMPANY
// users only and is immutable for the account's lifetime.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	Type         UserType
	CompanyID    int64
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
