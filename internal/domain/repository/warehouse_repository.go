package repository

import (
	"context"

	"github.com/jhoicas/almacen-wms/internal/domain/entity"
)

// WarehouseRepository define el puerto de persistencia para Warehouse (DIP).
type WarehouseRepository interface {
	Create(ctx context.Context, warehouse *entity.Warehouse) error
	GetByID(ctx context.Context, id int64) (*entity.Warehouse, error)
	List(ctx context.Context) ([]*entity.Warehouse, error)
}

// CellRepository puerto de las celdas. Add y Update pasan por los procedimientos
// wms_add_cell y wms_update_cell; son la única vía de escritura de la tabla.
type CellRepository interface {
	// Add crea la celda; domain.ErrDuplicate si la referencia ya existe en el almacén.
	Add(ctx context.Context, cell *entity.Cell) error
	// Update cambia dimensiones, límites, posición o estado. Devuelve error de precondición
	// si los nuevos límites quedan por debajo de la ocupación actual.
	Update(ctx context.Context, cell *entity.Cell) error
	GetByID(ctx context.Context, id int64) (*entity.Cell, error)
	// LockByIDs bloquea (SELECT ... FOR UPDATE) las celdas en orden ascendente de id.
	// Las que no existen no aparecen en el resultado.
	LockByIDs(ctx context.Context, ids []int64) (map[int64]*entity.Cell, error)
	ListByWarehouse(ctx context.Context, warehouseID int64) ([]*entity.Cell, error)
	List(ctx context.Context) ([]*entity.Cell, error)
}
