package repository

import (
	"context"

	"github.com/jhoicas/almacen-wms/internal/domain/entity"
)

// ProductRepository define el puerto de persistencia para Product y su variante (DIP).
// GetByID devuelve (nil, nil) cuando el producto no existe.
type ProductRepository interface {
	// Create persiste el producto y su ficha material o software; asigna ID.
	// Devuelve domain.ErrDuplicate si la referencia ya existe.
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id int64) (*entity.Product, error)
	GetByIDs(ctx context.Context, ids []int64) (map[int64]*entity.Product, error)
	List(ctx context.Context) ([]*entity.Product, error)
}
