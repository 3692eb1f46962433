package authz

import (
	"context"
	"strings"
	"time"

	"github.com/jhoicas/almacen-wms/internal/domain"
	"github.com/jhoicas/almacen-wms/internal/domain/entity"
	"github.com/jhoicas/almacen-wms/internal/domain/repository"
)

// RoleService casos de uso de gestión de roles (capacidad manageRoles). Usa el reloj y la zona
// del guard, de modo que "hoy" es el mismo día con que se evalúan las vigencias.
type RoleService struct {
	tx    repository.TxRunner
	guard *Guard
}

// NewRoleService construye el servicio.
func NewRoleService(tx repository.TxRunner, guard *Guard) *RoleService {
	return &RoleService{tx: tx, guard: guard}
}

func (s *RoleService) today() time.Time {
	return entity.DateOf(s.guard.now().In(s.guard.loc))
}

// CreateRole crea un rol con su etiqueta y tipo.
func (s *RoleService) CreateRole(ctx context.Context, actor domain.Actor, label string, kind entity.RoleKind) (*entity.Role, error) {
	if err := s.guard.Authorize(ctx, actor, CapManageRoles); err != nil {
		return nil, err
	}
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, domain.Invalid("la etiqueta del rol es obligatoria")
	}
	if !kind.Valid() {
		return nil, domain.Invalid("tipo de rol desconocido: %q", kind)
	}
	role := &entity.Role{Label: label, Kind: kind}
	err := s.tx.Run(ctx, func(st repository.Stores) error {
		return st.Roles.CreateRole(ctx, role)
	})
	if err != nil {
		return nil, err
	}
	return role, nil
}

// AssignInput datos de una asignación. EndDate nil = sin fin.
type AssignInput struct {
	UserID         int64
	RoleID         int64
	OrganizationID int64
	StartDate      *time.Time // nil = hoy en la zona del almacén
	EndDate        *time.Time
}

// Assign crea o reemplaza la asignación (usuario, rol, organización) y la deja activa.
func (s *RoleService) Assign(ctx context.Context, actor domain.Actor, in AssignInput) (*entity.RoleAssignment, error) {
	if err := s.guard.Authorize(ctx, actor, CapManageRoles); err != nil {
		return nil, err
	}
	start := s.today()
	if in.StartDate != nil {
		start = entity.DateOf(*in.StartDate)
	}
	if in.EndDate != nil && !entity.DateOf(*in.EndDate).After(start) {
		return nil, domain.Invalid("la fecha de fin debe ser posterior a la de inicio")
	}
	a := &entity.RoleAssignment{
		UserID:         in.UserID,
		RoleID:         in.RoleID,
		OrganizationID: in.OrganizationID,
		Active:         true,
		StartDate:      start,
		EndDate:        in.EndDate,
	}
	err := s.tx.Run(ctx, func(st repository.Stores) error {
		user, err := st.Users.GetByID(ctx, in.UserID)
		if err != nil {
			return err
		}
		if user == nil {
			return domain.ErrUserNotFound
		}
		role, err := st.Roles.GetRole(ctx, in.RoleID)
		if err != nil {
			return err
		}
		if role == nil {
			return domain.NotFound("rol %d no encontrado", in.RoleID)
		}
		a.RoleKind = role.Kind
		return st.Roles.Assign(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	s.guard.Invalidate(ctx, in.UserID)
	return a, nil
}

// Revoke desactiva la asignación; conserva la fila para auditoría.
func (s *RoleService) Revoke(ctx context.Context, actor domain.Actor, userID, roleID, organizationID int64) error {
	if err := s.guard.Authorize(ctx, actor, CapManageRoles); err != nil {
		return err
	}
	err := s.tx.Run(ctx, func(st repository.Stores) error {
		return st.Roles.Revoke(ctx, userID, roleID, organizationID)
	})
	if err != nil {
		return err
	}
	s.guard.Invalidate(ctx, userID)
	return nil
}
