package entity

import "time"

// User usuario del sistema.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // bcrypt hash, nunca plano en dominio después de persistir
	CreatedAt    time.Time `json:"created_at"`
}

// RoleKind tipo de rol; determina el conjunto de capacidades.
type RoleKind string

// Roles válidos.
const (
	RoleOperator   RoleKind = "operator"
	RoleSupervisor RoleKind = "supervisor"
	RoleCourier    RoleKind = "courier"
	RoleAdmin      RoleKind = "admin"
)

// Valid indica si el tipo de rol es reconocido.
func (k RoleKind) Valid() bool {
	switch k {
	case RoleOperator, RoleSupervisor, RoleCourier, RoleAdmin:
		return true
	}
	return false
}

// Role rol asignable.
type Role struct {
	ID    int64    `json:"id"`
	Label string   `json:"label"`
	Kind  RoleKind `json:"kind"`
}

// RoleAssignment asignación (usuario, rol, organización). RoleKind se rellena al listar.
type RoleAssignment struct {
	UserID         int64      `json:"user_id"`
	RoleID         int64      `json:"role_id"`
	OrganizationID int64      `json:"organization_id"`
	RoleKind       RoleKind   `json:"role_kind,omitempty"`
	Active         bool       `json:"active"`
	StartDate      time.Time  `json:"start_date"`
	EndDate        *time.Time `json:"end_date,omitempty"` // nil = sin fin
}

// EffectiveAt indica si la asignación está vigente: activa y today ∈ [StartDate, EndDate).
func (a *RoleAssignment) EffectiveAt(today time.Time) bool {
	if !a.Active {
		return false
	}
	day := DateOf(today)
	if day.Before(DateOf(a.StartDate)) {
		return false
	}
	if a.EndDate != nil && !day.Before(DateOf(*a.EndDate)) {
		return false
	}
	return true
}
