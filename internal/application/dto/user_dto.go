package dto

import "time"

// CreateUserRequest entrada para crear un usuario (password en texto, se hashea en use case).
type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required,min=1,max=200"`
}

// UserResponse salida de un usuario (sin password).
type UserResponse struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// LoginRequest entrada para login. OrganizationID acota el token a una organización (0 = todas).
type LoginRequest struct {
	Email          string `json:"email" validate:"required,email"`
	Password       string `json:"password" validate:"required"`
	OrganizationID int64  `json:"organization_id" validate:"gte=0"`
}

// LoginResponse salida con token JWT.
type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// CreateRoleRequest alta de un rol.
type CreateRoleRequest struct {
	Label string `json:"label" validate:"required,max=120"`
	Kind  string `json:"kind" validate:"required,oneof=operator supervisor courier admin"`
}

// AssignRoleRequest asignación de un rol a un usuario en una organización.
type AssignRoleRequest struct {
	UserID         int64 `json:"user_id" validate:"required,gt=0"`
	RoleID         int64 `json:"role_id" validate:"required,gt=0"`
	OrganizationID int64 `json:"organization_id" validate:"gte=0"`
	StartDate      *Date `json:"start_date,omitempty"`
	EndDate        *Date `json:"end_date,omitempty"`
}

// RevokeRoleRequest desactiva una asignación.
type RevokeRoleRequest struct {
	UserID         int64 `json:"user_id" validate:"required,gt=0"`
	RoleID         int64 `json:"role_id" validate:"required,gt=0"`
	OrganizationID int64 `json:"organization_id" validate:"gte=0"`
}
