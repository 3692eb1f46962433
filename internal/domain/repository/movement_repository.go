package repository

import (
	"context"
	"time"

	"github.com/jhoicas/almacen-wms/internal/domain/entity"
)

// MovementFilter filtro de lectura del diario. Campos nil no filtran.
type MovementFilter struct {
	ProductID *int64
	LotID     *int64
	From      *time.Time // inclusivo
	To        *time.Time // exclusivo
}

// MovementRepository diario de movimientos (append-only).
type MovementRepository interface {
	// Append registra el movimiento y asigna ID.
	Append(ctx context.Context, m *entity.Movement) error
	// List devuelve los movimientos ordenados por timestamp y luego por id.
	List(ctx context.Context, filter MovementFilter) ([]*entity.Movement, error)
}

// ExceptionRepository incidencias y sus resoluciones (ambas append-only).
type ExceptionRepository interface {
	Append(ctx context.Context, report *entity.ExceptionReport) error
	GetByID(ctx context.Context, id int64) (*entity.ExceptionEntry, error)
	// Resolve registra la resolución; domain.ErrDuplicate si ya estaba resuelta.
	Resolve(ctx context.Context, resolution *entity.ExceptionResolution) error
	CountUnresolved(ctx context.Context, kind entity.VoucherKind, voucherID int64) (int, error)
	List(ctx context.Context) ([]*entity.ExceptionEntry, error)
}
