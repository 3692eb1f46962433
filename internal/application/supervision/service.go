// Package supervision deriva las vistas de solo lectura sobre el stock: ocupación de celdas,
// rupturas, caducidades e informes estructurados. Cada consulta usa una única instantánea.
package supervision

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/almacen-wms/internal/application/authz"
	"github.com/jhoicas/almacen-wms/internal/domain"
	"github.com/jhoicas/almacen-wms/internal/domain/repository"
)

// Service consultas supervisoras (capacidad readSup).
type Service struct {
	tx           repository.TxRunner
	guard        authz.Authorizer
	threshold    int64
	expiringDays int
	now          func() time.Time
	loc          *time.Location
	log          zerolog.Logger
}

// Option configura el Service.
type Option func(*Service)

// WithDefaults fija el umbral de ruptura y la ventana de caducidad por defecto.
func WithDefaults(threshold int64, expiringDays int) Option {
	return func(s *Service) {
		s.threshold = threshold
		s.expiringDays = expiringDays
	}
}

// WithClock fija el reloj y la zona de los días calendario.
func WithClock(now func() time.Time, loc *time.Location) Option {
	return func(s *Service) {
		s.now = now
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithLogger asigna el logger.
func WithLogger(l zerolog.Logger) Option { return func(s *Service) { s.log = l } }

// NewService construye el servicio.
func NewService(tx repository.TxRunner, guard authz.Authorizer, opts ...Option) *Service {
	s := &Service{
		tx:           tx,
		guard:        guard,
		expiringDays: 30,
		now:          time.Now,
		loc:          time.UTC,
		log:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// view autoriza y ejecuta fn en una transacción de solo lectura.
func (s *Service) view(ctx context.Context, actor domain.Actor, fn func(st repository.Stores) error) error {
	if err := s.guard.Authorize(ctx, actor, authz.CapReadSup); err != nil {
		return err
	}
	return s.tx.View(ctx, fn)
}

func (s *Service) today() time.Time {
	return s.now().In(s.loc)
}
