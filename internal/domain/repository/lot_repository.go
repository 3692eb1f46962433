package repository

import (
	"context"
	"time"

	"github.com/jhoicas/almacen-wms/internal/domain/entity"
)

// LotRepository puerto de persistencia de lotes. Los lotes nunca se borran.
type LotRepository interface {
	// Receive crea el lote y su primera ubicación en cellID (procedimiento wms_receive_lot); asigna ID.
	// domain.ErrDuplicate si el número de lote ya existe.
	Receive(ctx context.Context, lot *entity.Lot, cellID int64, at time.Time) error
	GetByID(ctx context.Context, id int64) (*entity.Lot, error)
	GetByNumber(ctx context.Context, lotNumber string) (*entity.Lot, error)
	// GetForUpdate obtiene el lote y bloquea la fila (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, id int64) (*entity.Lot, error)
	// LockByIDs bloquea los lotes en orden ascendente de id.
	LockByIDs(ctx context.Context, ids []int64) (map[int64]*entity.Lot, error)
	// LockAvailableByProduct bloquea los lotes activos con stock de un producto (orden por id).
	LockAvailableByProduct(ctx context.Context, productID int64) ([]*entity.Lot, error)
	// ExpireBefore pasa a expired los lotes activos cuya caducidad es anterior a day. Solo estado.
	ExpireBefore(ctx context.Context, day time.Time) ([]int64, error)
	List(ctx context.Context) ([]*entity.Lot, error)
}

// PlacementRepository puerto de las ubicaciones (lote, celda). Las escrituras corresponden a los
// procedimientos almacenados y mantienen lot.available_quantity y el estado del lote sincronizados.
type PlacementRepository interface {
	// GetForUpdate devuelve la ubicación bloqueada o (nil, nil) si no existe.
	GetForUpdate(ctx context.Context, lotID, cellID int64) (*entity.Placement, error)
	// ListByLots devuelve las ubicaciones de los lotes; forUpdate bloquea las filas.
	ListByLots(ctx context.Context, lotIDs []int64, forUpdate bool) ([]*entity.Placement, error)
	ListByCell(ctx context.Context, cellID int64) ([]*entity.Placement, error)
	List(ctx context.Context) ([]*entity.Placement, error)
	// CellLoads agrega cantidad, volumen material y número de lotes por celda.
	// Celdas sin ubicaciones aparecen con carga cero.
	CellLoads(ctx context.Context, cellIDs []int64) (map[int64]entity.CellLoad, error)
	// Move traslada qty del origen al destino (wms_move_lot).
	Move(ctx context.Context, lotID, srcCellID, dstCellID, qty int64, at time.Time) error
	// Adjust fija la cantidad de una ubicación existente (wms_adjust_inventory). Borra la fila en cero.
	Adjust(ctx context.Context, lotID, cellID, newQty int64) error
	// Take retira qty de una ubicación para un colis (wms_take_lot).
	Take(ctx context.Context, lotID, cellID, qty int64) error
	// Place devuelve qty a una celda, creando la ubicación si no existe (wms_place_lot).
	Place(ctx context.Context, lotID, cellID, qty int64, at time.Time) error
}
