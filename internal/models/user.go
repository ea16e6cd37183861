package models

import "time"

// UserRole is the role discriminator shared by every account. Role-specific
// behaviour is dispatched on this tag rather than on subtypes.
type UserRole string

const (
	RoleAdmin    UserRole = "ADMIN"
	RoleStudent  UserRole = "STUDENT"
	RoleWarden   UserRole = "WARDEN"
	RoleSecurity UserRole = "SECURITY"
)

// Valid returns true when the role is a supported value.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleStudent, RoleWarden, RoleSecurity:
		return true
	default:
		return false
	}
}

// User represents an application account stored in the users table.
// RegistrationNo is set for students; Hostel for students and wardens.
type User struct {
	ID             string     `db:"id" json:"id"`
	Email          string     `db:"email" json:"email"`
	PasswordHash   string     `db:"password_hash" json:"-"`
	FullName       string     `db:"full_name" json:"full_name"`
	Role           UserRole   `db:"role" json:"role"`
	RegistrationNo *string    `db:"registration_no" json:"registration_no,omitempty"`
	Hostel         *string    `db:"hostel" json:"hostel,omitempty"`
	Phone          *string    `db:"phone" json:"phone,omitempty"`
	Active         bool       `db:"active" json:"active"`
	LastLogin      *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
