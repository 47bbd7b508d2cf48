package model

type Role string

const (
	RoleMember Role = "MEMBER"
	RoleStaff  Role = "STAFF"
	RoleAdmin  Role = "ADMIN"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token string `json:"token"`
	Role  Role   `json:"role"`
}
