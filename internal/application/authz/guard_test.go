package authz_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/almacen-wms/internal/application/authz"
	"github.com/jhoicas/almacen-wms/internal/domain"
	"github.com/jhoicas/almacen-wms/internal/domain/entity"
	"github.com/jhoicas/almacen-wms/internal/domain/repository"
	"github.com/jhoicas/almacen-wms/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

var today = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

type mapCache struct {
	mu          sync.Mutex
	data        map[int64][]*entity.RoleAssignment
	gens        map[int64]int64
	gets        int
	invalidated []int64
	failGet     bool
	rejected    int
	beforeSet   func() // se ejecuta al entrar en Set, fuera del candado
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[int64][]*entity.RoleAssignment), gens: make(map[int64]int64)}
}

func (c *mapCache) Get(_ context.Context, userID int64) ([]*entity.RoleAssignment, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.failGet {
		return nil, false, errors.New("redis caído")
	}
	as, ok := c.data[userID]
	return as, ok, nil
}

func (c *mapCache) Generation(_ context.Context, userID int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[userID], nil
}

func (c *mapCache) Set(_ context.Context, userID, gen int64, as []*entity.RoleAssignment) error {
	if c.beforeSet != nil {
		c.beforeSet()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[userID] != gen {
		c.rejected++
		return nil
	}
	c.data[userID] = as
	return nil
}

func (c *mapCache) Invalidate(_ context.Context, userID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, userID)
	c.gens[userID]++
	c.invalidated = append(c.invalidated, userID)
	return nil
}

type guardFixture struct {
	ctx   context.Context
	store *memory.Store
	guard *authz.Guard
	cache *mapCache
	roles map[entity.RoleKind]int64
}

func newGuardFixture(t *testing.T) *guardFixture {
	t.Helper()
	return newGuardFixtureAt(t, today, time.UTC)
}

func newGuardFixtureAt(t *testing.T, now time.Time, loc *time.Location) *guardFixture {
	t.Helper()
	f := &guardFixture{
		ctx:   context.Background(),
		store: memory.NewStore(),
		cache: newMapCache(),
		roles: make(map[entity.RoleKind]int64),
	}
	f.guard = authz.NewGuard(f.store, authz.WithClock(func() time.Time { return now }, loc), authz.WithCache(f.cache))
	require.NoError(t, f.store.Run(f.ctx, func(s repository.Stores) error {
		for _, kind := range []entity.RoleKind{entity.RoleOperator, entity.RoleSupervisor, entity.RoleCourier, entity.RoleAdmin} {
			r := &entity.Role{Label: string(kind), Kind: kind}
			if err := s.Roles.CreateRole(f.ctx, r); err != nil {
				return err
			}
			f.roles[kind] = r.ID
		}
		return nil
	}))
	return f
}

func (f *guardFixture) user(t *testing.T, email string) int64 {
	t.Helper()
	u := &entity.User{Name: email, Email: email, PasswordHash: "x"}
	require.NoError(t, f.store.Run(f.ctx, func(s repository.Stores) error { return s.Users.Create(f.ctx, u) }))
	return u.ID
}

func (f *guardFixture) assign(t *testing.T, a entity.RoleAssignment) {
	t.Helper()
	require.NoError(t, f.store.Run(f.ctx, func(s repository.Stores) error { return s.Roles.Assign(f.ctx, &a) }))
}

func date(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

// ──────────────────────────────────────────────────────────────────────────────
// Matriz de capacidades
// ──────────────────────────────────────────────────────────────────────────────

func TestAllows_Matriz(t *testing.T) {
	assert.True(t, authz.Allows(entity.RoleOperator, authz.CapPrepareShip))
	assert.False(t, authz.Allows(entity.RoleOperator, authz.CapAdjust))
	assert.False(t, authz.Allows(entity.RoleOperator, authz.CapValidateShip))
	assert.True(t, authz.Allows(entity.RoleSupervisor, authz.CapAdjust))
	assert.False(t, authz.Allows(entity.RoleSupervisor, authz.CapManageRoles))
	assert.Empty(t, authz.Capabilities(entity.RoleCourier))
	assert.Equal(t, []authz.Capability{authz.CapManageRoles}, authz.Capabilities(entity.RoleAdmin))
}

// ──────────────────────────────────────────────────────────────────────────────
// Vigencia y organización
// ──────────────────────────────────────────────────────────────────────────────

func TestAuthorize_VigenciaYOrganizacion(t *testing.T) {
	f := newGuardFixture(t)
	end := date(2025, 6, 2)

	cases := []struct {
		name  string
		a     entity.RoleAssignment
		actor int64 // organización del actor
		ok    bool
	}{
		{"vigente", entity.RoleAssignment{Active: true, StartDate: date(2025, 1, 1), OrganizationID: 1}, 1, true},
		{"inactiva", entity.RoleAssignment{Active: false, StartDate: date(2025, 1, 1), OrganizationID: 1}, 1, false},
		{"empieza mañana", entity.RoleAssignment{Active: true, StartDate: date(2025, 6, 3), OrganizationID: 1}, 1, false},
		{"empieza hoy", entity.RoleAssignment{Active: true, StartDate: date(2025, 6, 2), OrganizationID: 1}, 1, true},
		{"termina hoy (exclusivo)", entity.RoleAssignment{Active: true, StartDate: date(2025, 1, 1), EndDate: &end, OrganizationID: 1}, 1, false},
		{"otra organización", entity.RoleAssignment{Active: true, StartDate: date(2025, 1, 1), OrganizationID: 2}, 1, false},
		{"actor sin organización", entity.RoleAssignment{Active: true, StartDate: date(2025, 1, 1), OrganizationID: 2}, 0, true},
	}
	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			userID := f.user(t, fmt.Sprintf("usuario%d@almacen.test", i))
			tc.a.UserID = userID
			tc.a.RoleID = f.roles[entity.RoleOperator]
			f.assign(t, tc.a)

			err := f.guard.Authorize(f.ctx, domain.Actor{UserID: userID, OrganizationID: tc.actor}, authz.CapMove)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, domain.ErrUnauthorized)
			}
		})
	}
}

func TestAuthorize_ActorNoIdentificado(t *testing.T) {
	f := newGuardFixture(t)
	err := f.guard.Authorize(f.ctx, domain.Actor{}, authz.CapReadSup)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

// ──────────────────────────────────────────────────────────────────────────────
// Caché compartida y memo por petición
// ──────────────────────────────────────────────────────────────────────────────

func TestAuthorize_UsaCacheYMemoPorPeticion(t *testing.T) {
	f := newGuardFixture(t)
	userID := f.user(t, "op@almacen.test")
	f.assign(t, entity.RoleAssignment{UserID: userID, RoleID: f.roles[entity.RoleOperator], OrganizationID: 1, Active: true, StartDate: date(2025, 1, 1)})
	actor := domain.Actor{UserID: userID, OrganizationID: 1}

	// Caso 1: la primera consulta llena la caché
	require.NoError(t, f.guard.Authorize(f.ctx, actor, authz.CapMove))
	assert.Len(t, f.cache.data[userID], 1)

	// Caso 2: dentro de una petición, la caché se consulta una sola vez
	ctx := authz.WithRequestScope(f.ctx)
	before := f.cache.gets
	require.NoError(t, f.guard.Authorize(ctx, actor, authz.CapMove))
	require.NoError(t, f.guard.Authorize(ctx, actor, authz.CapReceive))
	assert.Equal(t, before+1, f.cache.gets)

	// Caso 3: un fallo de la caché cae a la base de datos
	f.cache.failGet = true
	assert.NoError(t, f.guard.Authorize(f.ctx, actor, authz.CapMove))
}

func TestRoleService_AsignarYRevocarInvalidan(t *testing.T) {
	f := newGuardFixture(t)
	admin := f.user(t, "admin@almacen.test")
	f.assign(t, entity.RoleAssignment{UserID: admin, RoleID: f.roles[entity.RoleAdmin], OrganizationID: 1, Active: true, StartDate: date(2025, 1, 1)})
	op := f.user(t, "op@almacen.test")
	svc := authz.NewRoleService(f.store, f.guard)
	adminActor := domain.Actor{UserID: admin, OrganizationID: 1}
	opActor := domain.Actor{UserID: op, OrganizationID: 1}

	// Escenario 1: sin asignaciones el operador no puede mover (y queda cacheado vacío)
	assert.ErrorIs(t, f.guard.Authorize(f.ctx, opActor, authz.CapMove), domain.ErrUnauthorized)

	// Escenario 2: asignar invalida la caché y el permiso es inmediato
	start := date(2025, 1, 1)
	_, err := svc.Assign(f.ctx, adminActor, authz.AssignInput{UserID: op, RoleID: f.roles[entity.RoleOperator], OrganizationID: 1, StartDate: &start})
	require.NoError(t, err)
	assert.Contains(t, f.cache.invalidated, op)
	assert.NoError(t, f.guard.Authorize(f.ctx, opActor, authz.CapMove))

	// Escenario 3: revocar también es inmediato
	require.NoError(t, svc.Revoke(f.ctx, adminActor, op, f.roles[entity.RoleOperator], 1))
	assert.ErrorIs(t, f.guard.Authorize(f.ctx, opActor, authz.CapMove), domain.ErrUnauthorized)

	// Escenario 4: el operador no gestiona roles
	_, err = svc.CreateRole(f.ctx, opActor, "x", entity.RoleOperator)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	// Escenario 5: validaciones
	_, err = svc.CreateRole(f.ctx, adminActor, "  ", entity.RoleOperator)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = svc.CreateRole(f.ctx, adminActor, "raro", entity.RoleKind("dios"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = svc.Assign(f.ctx, adminActor, authz.AssignInput{UserID: 999, RoleID: f.roles[entity.RoleOperator]})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	end := start
	_, err = svc.Assign(f.ctx, adminActor, authz.AssignInput{UserID: op, RoleID: f.roles[entity.RoleOperator], StartDate: &start, EndDate: &end})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.ErrorIs(t, svc.Revoke(f.ctx, adminActor, op, f.roles[entity.RoleSupervisor], 1), domain.ErrNotFound)
}

func TestAuthorize_RevocacionDuranteLecturaNoDejaCacheObsoleta(t *testing.T) {
	f := newGuardFixture(t)
	op := f.user(t, "op@almacen.test")
	f.assign(t, entity.RoleAssignment{UserID: op, RoleID: f.roles[entity.RoleOperator], OrganizationID: 1, Active: true, StartDate: date(2025, 1, 1)})
	actor := domain.Actor{UserID: op, OrganizationID: 1}

	// Escenario 1: la revocación se confirma e invalida después de que el guard leyera la
	// base de datos y antes de que escriba la caché.
	f.cache.beforeSet = func() {
		f.cache.beforeSet = nil
		require.NoError(t, f.store.Run(f.ctx, func(s repository.Stores) error {
			return s.Roles.Revoke(f.ctx, op, f.roles[entity.RoleOperator], 1)
		}))
		f.guard.Invalidate(f.ctx, op)
	}
	require.NoError(t, f.guard.Authorize(f.ctx, actor, authz.CapMove), "la lectura en curso vio la asignación")
	assert.Equal(t, 1, f.cache.rejected, "la escritura con generación vieja se descarta")
	assert.NotContains(t, f.cache.data, op)

	// Escenario 2: la siguiente petición ya no ve el rol revocado
	assert.ErrorIs(t, f.guard.Authorize(f.ctx, actor, authz.CapMove), domain.ErrUnauthorized)
}

func TestRoleService_InicioPorDefectoEnZonaDelAlmacen(t *testing.T) {
	// 03:00 UTC del 2 de junio son las 22:00 del 1 de junio en UTC-5.
	bogota := time.FixedZone("UTC-5", -5*3600)
	f := newGuardFixtureAt(t, time.Date(2025, 6, 2, 3, 0, 0, 0, time.UTC), bogota)
	admin := f.user(t, "admin@almacen.test")
	f.assign(t, entity.RoleAssignment{UserID: admin, RoleID: f.roles[entity.RoleAdmin], OrganizationID: 1, Active: true, StartDate: date(2025, 1, 1)})
	op := f.user(t, "op@almacen.test")
	svc := authz.NewRoleService(f.store, f.guard)

	a, err := svc.Assign(f.ctx, domain.Actor{UserID: admin, OrganizationID: 1},
		authz.AssignInput{UserID: op, RoleID: f.roles[entity.RoleOperator], OrganizationID: 1})
	require.NoError(t, err)
	assert.Equal(t, date(2025, 6, 1), a.StartDate)

	// La asignación rige desde ya: el inicio no cae en el "mañana" local.
	assert.NoError(t, f.guard.Authorize(f.ctx, domain.Actor{UserID: op, OrganizationID: 1}, authz.CapMove))
}
