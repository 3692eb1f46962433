package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/jhoicas/almacen-wms/internal/domain"
	"github.com/jhoicas/almacen-wms/internal/domain/entity"
	"github.com/jhoicas/almacen-wms/internal/domain/repository"
)

var (
	_ repository.UserRepository   = (*userRepo)(nil)
	_ repository.RoleRepository   = (*roleRepo)(nil)
	_ repository.ApprovRepository = (*approvRepo)(nil)
)

type userRepo struct {
	st  *state
	now func() time.Time
}

func (r *userRepo) Create(_ context.Context, u *entity.User) error {
	for _, existing := range r.st.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return domain.ErrEmailAlreadyExists
		}
	}
	u.ID = r.st.nextID("users")
	if u.CreatedAt.IsZero() {
		u.CreatedAt = r.now()
	}
	r.st.users[u.ID] = *u
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id int64) (*entity.User, error) {
	u, ok := r.st.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *userRepo) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	for _, u := range r.st.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, nil
}

type roleRepo struct {
	st *state
}

func (r *roleRepo) CreateRole(_ context.Context, role *entity.Role) error {
	role.ID = r.st.nextID("roles")
	r.st.roles[role.ID] = *role
	return nil
}

func (r *roleRepo) GetRole(_ context.Context, id int64) (*entity.Role, error) {
	role, ok := r.st.roles[id]
	if !ok {
		return nil, nil
	}
	return &role, nil
}

func (r *roleRepo) ListRoles(_ context.Context) ([]*entity.Role, error) {
	out := make([]*entity.Role, 0, len(r.st.roles))
	for _, id := range sortedIDs(r.st.roles) {
		role := r.st.roles[id]
		out = append(out, &role)
	}
	return out, nil
}

func (r *roleRepo) Assign(_ context.Context, a *entity.RoleAssignment) error {
	role, ok := r.st.roles[a.RoleID]
	if !ok {
		return domain.NotFound("rol %d no encontrado", a.RoleID)
	}
	stored := *a
	stored.RoleKind = role.Kind
	r.st.assignments[assignmentKey{UserID: a.UserID, RoleID: a.RoleID, OrganizationID: a.OrganizationID}] = stored
	return nil
}

func (r *roleRepo) Revoke(_ context.Context, userID, roleID, organizationID int64) error {
	key := assignmentKey{UserID: userID, RoleID: roleID, OrganizationID: organizationID}
	a, ok := r.st.assignments[key]
	if !ok {
		return domain.NotFound("asignación no encontrada")
	}
	a.Active = false
	r.st.assignments[key] = a
	return nil
}

func (r *roleRepo) ListAssignments(_ context.Context, userID int64) ([]*entity.RoleAssignment, error) {
	var out []*entity.RoleAssignment
	for k, a := range r.st.assignments {
		if k.UserID != userID {
			continue
		}
		a := a
		if role, ok := r.st.roles[a.RoleID]; ok {
			a.RoleKind = role.Kind
		}
		out = append(out, &a)
	}
	slices.SortFunc(out, func(x, y *entity.RoleAssignment) int {
		if c := cmp.Compare(x.RoleID, y.RoleID); c != 0 {
			return c
		}
		return cmp.Compare(x.OrganizationID, y.OrganizationID)
	})
	return out, nil
}

type approvRepo struct {
	st *state
}

func (r *approvRepo) Create(_ context.Context, a *entity.ApprovRequest) error {
	a.ID = r.st.nextID("approv_requests")
	r.st.approvs[a.ID] = *a
	return nil
}

func (r *approvRepo) List(_ context.Context, organizationID int64) ([]*entity.ApprovRequest, error) {
	var out []*entity.ApprovRequest
	for _, id := range sortedIDs(r.st.approvs) {
		a := r.st.approvs[id]
		if organizationID != 0 && a.OrganizationID != organizationID {
			continue
		}
		out = append(out, &a)
	}
	slices.SortStableFunc(out, func(x, y *entity.ApprovRequest) int {
		return x.RequestDate.Compare(y.RequestDate)
	})
	return out, nil
}
