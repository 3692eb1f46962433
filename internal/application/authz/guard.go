package authz

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/almacen-wms/internal/domain"
	"github.com/jhoicas/almacen-wms/internal/domain/entity"
	"github.com/jhoicas/almacen-wms/internal/domain/repository"
)

// Authorizer puerto que consumen los casos de uso.
type Authorizer interface {
	Authorize(ctx context.Context, actor domain.Actor, c Capability) error
}

// RoleCache caché de asignaciones entre peticiones (ej. Redis). Get devuelve ok=false en un fallo de caché.
// Invalidate avanza la generación del usuario. Set recibe la generación leída antes de consultar
// la base de datos y no escribe si otra invalidación la avanzó entretanto.
type RoleCache interface {
	Get(ctx context.Context, userID int64) ([]*entity.RoleAssignment, bool, error)
	Generation(ctx context.Context, userID int64) (int64, error)
	Set(ctx context.Context, userID, generation int64, assignments []*entity.RoleAssignment) error
	Invalidate(ctx context.Context, userID int64) error
}

var _ Authorizer = (*Guard)(nil)

// Guard resuelve las asignaciones vigentes del actor y evalúa la matriz de capacidades.
type Guard struct {
	tx    repository.TxRunner
	cache RoleCache
	now   func() time.Time
	loc   *time.Location
	log   zerolog.Logger
}

// Option configura el Guard.
type Option func(*Guard)

// WithCache activa la caché compartida de asignaciones.
func WithCache(c RoleCache) Option { return func(g *Guard) { g.cache = c } }

// WithClock fija el reloj y la zona de evaluación de vigencias.
func WithClock(now func() time.Time, loc *time.Location) Option {
	return func(g *Guard) {
		g.now = now
		if loc != nil {
			g.loc = loc
		}
	}
}

// WithLogger asigna el logger.
func WithLogger(l zerolog.Logger) Option { return func(g *Guard) { g.log = l } }

// NewGuard construye el guard.
func NewGuard(tx repository.TxRunner, opts ...Option) *Guard {
	g := &Guard{tx: tx, now: time.Now, loc: time.UTC, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Authorize autoriza si el actor tiene al menos una asignación vigente, de su organización,
// cuyo tipo de rol incluye la capacidad.
func (g *Guard) Authorize(ctx context.Context, actor domain.Actor, c Capability) error {
	if actor.UserID <= 0 {
		return domain.Unauthorized("actor no identificado").With("capability", string(c))
	}
	assignments, err := g.assignments(ctx, actor.UserID)
	if err != nil {
		return err
	}
	today := g.now().In(g.loc)
	for _, a := range assignments {
		if !a.EffectiveAt(today) {
			continue
		}
		if actor.OrganizationID != 0 && a.OrganizationID != actor.OrganizationID {
			continue
		}
		if Allows(a.RoleKind, c) {
			return nil
		}
	}
	return domain.Unauthorized("el usuario %d no tiene la capacidad %s", actor.UserID, c).
		With("capability", string(c)).
		With("user_id", actor.UserID)
}

// Invalidate descarta las asignaciones memorizadas del usuario (petición actual y caché compartida).
func (g *Guard) Invalidate(ctx context.Context, userID int64) {
	if m := scopeFrom(ctx); m != nil {
		m.forget(userID)
	}
	if g.cache != nil {
		if err := g.cache.Invalidate(ctx, userID); err != nil {
			g.log.Warn().Err(err).Int64("user_id", userID).Msg("invalidar caché de roles")
		}
	}
}

func (g *Guard) assignments(ctx context.Context, userID int64) ([]*entity.RoleAssignment, error) {
	scope := scopeFrom(ctx)
	if scope != nil {
		if as, ok := scope.get(userID); ok {
			return as, nil
		}
	}
	cacheable := false
	var gen int64
	if g.cache != nil {
		as, ok, err := g.cache.Get(ctx, userID)
		if err != nil {
			// La caché es opcional: ante un fallo se consulta la base de datos.
			g.log.Warn().Err(err).Int64("user_id", userID).Msg("leer caché de roles")
		} else if ok {
			scope.put(userID, as)
			return as, nil
		}
		// La generación se lee antes de la consulta; una revocación posterior la invalida.
		if gen, err = g.cache.Generation(ctx, userID); err != nil {
			g.log.Warn().Err(err).Int64("user_id", userID).Msg("leer generación de roles")
		} else {
			cacheable = true
		}
	}

	var as []*entity.RoleAssignment
	err := g.tx.View(ctx, func(s repository.Stores) error {
		var err error
		as, err = s.Roles.ListAssignments(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if cacheable {
		if err := g.cache.Set(ctx, userID, gen, as); err != nil {
			g.log.Warn().Err(err).Int64("user_id", userID).Msg("escribir caché de roles")
		}
	}
	scope.put(userID, as)
	return as, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Memo por petición
// ──────────────────────────────────────────────────────────────────────────────

type scopeKey struct{}

type requestScope struct {
	mu    sync.Mutex
	roles map[int64][]*entity.RoleAssignment
}

// WithRequestScope devuelve un contexto que memoriza las asignaciones consultadas durante una petición.
func WithRequestScope(ctx context.Context) context.Context {
	if scopeFrom(ctx) != nil {
		return ctx
	}
	return context.WithValue(ctx, scopeKey{}, &requestScope{roles: make(map[int64][]*entity.RoleAssignment)})
}

func scopeFrom(ctx context.Context) *requestScope {
	s, _ := ctx.Value(scopeKey{}).(*requestScope)
	return s
}

func (s *requestScope) get(userID int64) ([]*entity.RoleAssignment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	as, ok := s.roles[userID]
	return as, ok
}

func (s *requestScope) put(userID int64, as []*entity.RoleAssignment) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[userID] = as
}

func (s *requestScope) forget(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.roles, userID)
}
