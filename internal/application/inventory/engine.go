package inventory

import (
	"context"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/almacen-wms/internal/application/authz"
	"github.com/jhoicas/almacen-wms/internal/domain"
	"github.com/jhoicas/almacen-wms/internal/domain/entity"
	"github.com/jhoicas/almacen-wms/internal/domain/inventory"
	"github.com/jhoicas/almacen-wms/internal/domain/repository"
)

// Engine orquesta las operaciones de stock: valida precondiciones contra el estado bloqueado,
// invoca los procedimientos de persistencia y registra el movimiento en la misma transacción.
type Engine struct {
	tx     repository.TxRunner
	guard  authz.Authorizer
	policy inventory.Policy
	now    func() time.Time
	loc    *time.Location
	log    zerolog.Logger
}

// Option configura el Engine.
type Option func(*Engine)

// WithPolicy fija la política de asignación de lotes (FEFO por defecto).
func WithPolicy(p inventory.Policy) Option { return func(e *Engine) { e.policy = p } }

// WithClock fija el reloj y la zona horaria de los días calendario.
func WithClock(now func() time.Time, loc *time.Location) Option {
	return func(e *Engine) {
		e.now = now
		if loc != nil {
			e.loc = loc
		}
	}
}

// WithLogger asigna el logger.
func WithLogger(l zerolog.Logger) Option { return func(e *Engine) { e.log = l } }

// NewEngine construye el motor de operaciones.
func NewEngine(tx repository.TxRunner, guard authz.Authorizer, opts ...Option) *Engine {
	e := &Engine{
		tx:     tx,
		guard:  guard,
		policy: inventory.PolicyFEFO,
		now:    time.Now,
		loc:    time.UTC,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) today() time.Time {
	return e.now().In(e.loc)
}

func ptr[T any](v T) *T { return &v }

// uniqueSorted devuelve los ids sin repetir en orden ascendente (orden total de bloqueo).
func uniqueSorted(ids []int64) []int64 {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}

func lockLot(ctx context.Context, s repository.Stores, lotID int64) (*entity.Lot, error) {
	lot, err := s.Lots.GetForUpdate(ctx, lotID)
	if err != nil {
		return nil, err
	}
	if lot == nil {
		return nil, domain.NotFound("lote %d no encontrado", lotID).With("lot_id", lotID)
	}
	return lot, nil
}

func productOf(ctx context.Context, s repository.Stores, productID int64) (*entity.Product, error) {
	p, err := s.Products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.NotFound("producto %d no encontrado", productID).With("product_id", productID)
	}
	return p, nil
}

func cellLoad(ctx context.Context, s repository.Stores, cellID int64) (entity.CellLoad, error) {
	loads, err := s.Placements.CellLoads(ctx, []int64{cellID})
	if err != nil {
		return entity.CellLoad{}, err
	}
	return loads[cellID], nil
}
