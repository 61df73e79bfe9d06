package dto

import (
	"time"
	"unicode"

	"github.com/prohmpiriya/tenant-auth/internal/domain"
)

// RegisterRequest represents self-registration; the role is always ROLE_USER
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50,alphanum"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// CreateUserRequest is the admin variant that may assign a role
type CreateUserRequest struct {
	RegisterRequest
	Role domain.Role `json:"role" binding:"omitempty,oneof=ROLE_USER ROLE_ADMIN"`
}

// UpdateUserRequest changes email and password. Role is applied for admins only.
type UpdateUserRequest struct {
	Email    string      `json:"email" binding:"omitempty,email"`
	Password string      `json:"password" binding:"omitempty,min=8,max=72"`
	Role     domain.Role `json:"role" binding:"omitempty,oneof=ROLE_USER ROLE_ADMIN"`
}

// ValidatePassword checks password strength:
// at least one upper case letter, one lower case letter and one digit
func ValidatePassword(password string) (bool, string) {
	if len(password) < 8 {
		return false, "Password must be at least 8 characters"
	}
	// bcrypt ignores everything past 72 bytes
	if len(password) > 72 {
		return false, "Password must not exceed 72 characters"
	}

	var hasUpper, hasLower, hasDigit bool
	for _, c := range password {
		switch {
		case unicode.IsUpper(c):
			hasUpper = true
		case unicode.IsLower(c):
			hasLower = true
		case unicode.IsDigit(c):
			hasDigit = true
		}
	}

	if !hasUpper {
		return false, "Password must contain at least one uppercase letter"
	}
	if !hasLower {
		return false, "Password must contain at least one lowercase letter"
	}
	if !hasDigit {
		return false, "Password must contain at least one digit"
	}
	return true, ""
}

// UserResponse represents user data in response
type UserResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedAt string `json:"createdAt"`
}

// NewUserResponse converts a user; the password hash is never included
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
}

// ListQuery is the limit/offset pair accepted by list endpoints
type ListQuery struct {
	Limit  int `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset int `form:"offset" binding:"omitempty,min=0"`
}

// Normalize applies the default page size
func (q *ListQuery) Normalize() {
	if q.Limit == 0 {
		q.Limit = 20
	}
}
