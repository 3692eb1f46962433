package repository

import (
	"context"

	"github.com/jhoicas/almacen-wms/internal/domain/entity"
)

// UserRepository define el puerto de persistencia para User (DIP).
type UserRepository interface {
	// Create persiste el usuario; domain.ErrEmailAlreadyExists si el email ya existe.
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
}

// RoleRepository roles y asignaciones (usuario, rol, organización).
type RoleRepository interface {
	CreateRole(ctx context.Context, role *entity.Role) error
	GetRole(ctx context.Context, id int64) (*entity.Role, error)
	ListRoles(ctx context.Context) ([]*entity.Role, error)
	// Assign inserta o reemplaza la asignación.
	Assign(ctx context.Context, a *entity.RoleAssignment) error
	// Revoke desactiva la asignación; domain.ErrNotFound si no existe.
	Revoke(ctx context.Context, userID, roleID, organizationID int64) error
	// ListAssignments devuelve las asignaciones del usuario con RoleKind relleno.
	ListAssignments(ctx context.Context, userID int64) ([]*entity.RoleAssignment, error)
}

// ApprovRepository solicitudes de aprovisionamiento.
type ApprovRepository interface {
	Create(ctx context.Context, r *entity.ApprovRequest) error
	// List devuelve las solicitudes de la organización (0 = todas) por fecha de solicitud.
	List(ctx context.Context, organizationID int64) ([]*entity.ApprovRequest, error)
}
