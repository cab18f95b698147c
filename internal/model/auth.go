package model

import "github.com/golang-jwt/jwt/v5"

// Role is the numeric user type issued by the backend
type Role int

const (
	RoleAdmin    Role = 0
	RoleEmployer Role = 1
	RoleUser     Role = 2
)

// String returns the role name
func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleEmployer:
		return "employer"
	case RoleUser:
		return "user"
	default:
		return "unknown"
	}
}

// UserClaims are JWT claims for an authenticated user
type UserClaims struct {
	UserID string `json:"userId"`
	Role   Role   `json:"userType"`
	jwt.RegisteredClaims
}

// LoginResponse is returned when a token is issued
type LoginResponse struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}
