package postgres

import (
	"context"
	"time"

	"github.com/jhoicas/almacen-wms/internal/domain"
	"github.com/jhoicas/almacen-wms/internal/domain/entity"
	"github.com/jhoicas/almacen-wms/internal/domain/repository"
)

var (
	_ repository.UserRepository   = (*UserRepo)(nil)
	_ repository.RoleRepository   = (*RoleRepo)(nil)
	_ repository.ApprovRepository = (*ApprovRepo)(nil)
)

// UserRepo implementación del puerto UserRepository sobre PostgreSQL.
type UserRepo struct {
	q Querier
}

// NewUserRepository construye el adaptador de persistencia para usuarios.
func NewUserRepository(q Querier) *UserRepo {
	return &UserRepo{q: q}
}

// Create persiste un nuevo usuario.
func (r *UserRepo) Create(ctx context.Context, user *entity.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO users (name, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	err := r.q.QueryRow(ctx, query, user.Name, user.Email, user.PasswordHash, user.CreatedAt).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailAlreadyExists
		}
		return classify("insert user", err)
	}
	return nil
}

// GetByID obtiene un usuario por ID. Devuelve (nil, nil) si no existe.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	return r.one(ctx, `SELECT id, name, email, password_hash, created_at FROM users WHERE id = $1`, id)
}

// FindByEmail obtiene un usuario por email (sin distinguir mayúsculas).
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.one(ctx, `SELECT id, name, email, password_hash, created_at FROM users WHERE lower(email) = lower($1)`, email)
}

func (r *UserRepo) one(ctx context.Context, query string, arg any) (*entity.User, error) {
	var u entity.User
	err := r.q.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, classify("get user", err)
	}
	return &u, nil
}

// RoleRepo roles y asignaciones (usuario, rol, organización).
type RoleRepo struct {
	q Querier
}

// NewRoleRepository construye el adaptador. Acepta pool o tx (Querier).
func NewRoleRepository(q Querier) *RoleRepo {
	return &RoleRepo{q: q}
}

// CreateRole persiste el rol y asigna ID.
func (r *RoleRepo) CreateRole(ctx context.Context, role *entity.Role) error {
	err := r.q.QueryRow(ctx, `INSERT INTO roles (label, kind) VALUES ($1, $2) RETURNING id`,
		role.Label, string(role.Kind)).Scan(&role.ID)
	return classify("insert role", err)
}

// GetRole obtiene un rol. Devuelve (nil, nil) si no existe.
func (r *RoleRepo) GetRole(ctx context.Context, id int64) (*entity.Role, error) {
	var role entity.Role
	var kind string
	err := r.q.QueryRow(ctx, `SELECT id, label, kind FROM roles WHERE id = $1`, id).Scan(&role.ID, &role.Label, &kind)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, classify("get role", err)
	}
	role.Kind = entity.RoleKind(kind)
	return &role, nil
}

// ListRoles devuelve los roles ordenados por id.
func (r *RoleRepo) ListRoles(ctx context.Context) ([]*entity.Role, error) {
	rows, err := r.q.Query(ctx, `SELECT id, label, kind FROM roles ORDER BY id`)
	if err != nil {
		return nil, classify("list roles", err)
	}
	defer rows.Close()
	var list []*entity.Role
	for rows.Next() {
		var role entity.Role
		var kind string
		if err := rows.Scan(&role.ID, &role.Label, &kind); err != nil {
			return nil, classify("scan role", err)
		}
		role.Kind = entity.RoleKind(kind)
		list = append(list, &role)
	}
	return list, classify("list roles", rows.Err())
}

// Assign inserta o reemplaza la asignación.
func (r *RoleRepo) Assign(ctx context.Context, a *entity.RoleAssignment) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO role_assignments (user_id, role_id, organization_id, active, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, role_id, organization_id)
		DO UPDATE SET active = EXCLUDED.active, start_date = EXCLUDED.start_date, end_date = EXCLUDED.end_date`,
		a.UserID, a.RoleID, a.OrganizationID, a.Active, a.StartDate, a.EndDate)
	return classify("assign role", err)
}

// Revoke desactiva la asignación.
func (r *RoleRepo) Revoke(ctx context.Context, userID, roleID, organizationID int64) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE role_assignments SET active = FALSE
		WHERE user_id = $1 AND role_id = $2 AND organization_id = $3`, userID, roleID, organizationID)
	if err != nil {
		return classify("revoke role", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("asignación no encontrada")
	}
	return nil
}

// ListAssignments devuelve las asignaciones del usuario con el tipo de rol.
func (r *RoleRepo) ListAssignments(ctx context.Context, userID int64) ([]*entity.RoleAssignment, error) {
	rows, err := r.q.Query(ctx, `
		SELECT a.user_id, a.role_id, a.organization_id, ro.kind, a.active, a.start_date, a.end_date
		FROM role_assignments a
		JOIN roles ro ON ro.id = a.role_id
		WHERE a.user_id = $1
		ORDER BY a.role_id, a.organization_id`, userID)
	if err != nil {
		return nil, classify("list role assignments", err)
	}
	defer rows.Close()
	var list []*entity.RoleAssignment
	for rows.Next() {
		var a entity.RoleAssignment
		var kind string
		if err := rows.Scan(&a.UserID, &a.RoleID, &a.OrganizationID, &kind, &a.Active, &a.StartDate, &a.EndDate); err != nil {
			return nil, classify("scan role assignment", err)
		}
		a.RoleKind = entity.RoleKind(kind)
		list = append(list, &a)
	}
	return list, classify("list role assignments", rows.Err())
}

// ApprovRepo solicitudes de aprovisionamiento.
type ApprovRepo struct {
	q Querier
}

// NewApprovRepository construye el adaptador. Acepta pool o tx (Querier).
func NewApprovRepository(q Querier) *ApprovRepo {
	return &ApprovRepo{q: q}
}

// Create persiste la solicitud y asigna ID.
func (r *ApprovRepo) Create(ctx context.Context, a *entity.ApprovRequest) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO approv_requests (organization_id, product_id, quantity, request_date, planned_delivery_date)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		a.OrganizationID, a.ProductID, a.Quantity, a.RequestDate, a.PlannedDeliveryDate,
	).Scan(&a.ID)
	return classify("insert approv request", err)
}

// List devuelve las solicitudes de la organización (0 = todas) por fecha de solicitud.
func (r *ApprovRepo) List(ctx context.Context, organizationID int64) ([]*entity.ApprovRequest, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, organization_id, product_id, quantity, request_date, planned_delivery_date
		FROM approv_requests
		WHERE $1::BIGINT = 0 OR organization_id = $1
		ORDER BY request_date, id`, organizationID)
	if err != nil {
		return nil, classify("list approv requests", err)
	}
	defer rows.Close()
	var list []*entity.ApprovRequest
	for rows.Next() {
		var a entity.ApprovRequest
		if err := rows.Scan(&a.ID, &a.OrganizationID, &a.ProductID, &a.Quantity, &a.RequestDate, &a.PlannedDeliveryDate); err != nil {
			return nil, classify("scan approv request", err)
		}
		list = append(list, &a)
	}
	return list, classify("list approv requests", rows.Err())
}
