package memory

import (
	"context"
	"strings"
	"time"

	"github.com/jhoicas/almacen-wms/internal/domain"
	"github.com/jhoicas/almacen-wms/internal/domain/entity"
	"github.com/jhoicas/almacen-wms/internal/domain/repository"
)

var (
	_ repository.ProductRepository   = (*productRepo)(nil)
	_ repository.WarehouseRepository = (*warehouseRepo)(nil)
	_ repository.CellRepository      = (*cellRepo)(nil)
)

type productRepo struct {
	st  *state
	now func() time.Time
}

func (r *productRepo) Create(_ context.Context, p *entity.Product) error {
	for _, existing := range r.st.products {
		if strings.EqualFold(existing.Reference, p.Reference) {
			return domain.ErrDuplicate
		}
	}
	p.ID = r.st.nextID("products")
	if p.CreatedAt.IsZero() {
		p.CreatedAt = r.now()
	}
	r.st.products[p.ID] = *p
	return nil
}

func (r *productRepo) GetByID(_ context.Context, id int64) (*entity.Product, error) {
	p, ok := r.st.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *productRepo) GetByIDs(_ context.Context, ids []int64) (map[int64]*entity.Product, error) {
	out := make(map[int64]*entity.Product, len(ids))
	for _, id := range ids {
		if p, ok := r.st.products[id]; ok {
			out[id] = &p
		}
	}
	return out, nil
}

func (r *productRepo) List(_ context.Context) ([]*entity.Product, error) {
	out := make([]*entity.Product, 0, len(r.st.products))
	for _, id := range sortedIDs(r.st.products) {
		p := r.st.products[id]
		out = append(out, &p)
	}
	return out, nil
}

type warehouseRepo struct {
	st  *state
	now func() time.Time
}

func (r *warehouseRepo) Create(_ context.Context, w *entity.Warehouse) error {
	w.ID = r.st.nextID("warehouses")
	if w.CreatedAt.IsZero() {
		w.CreatedAt = r.now()
	}
	r.st.warehouses[w.ID] = *w
	return nil
}

func (r *warehouseRepo) GetByID(_ context.Context, id int64) (*entity.Warehouse, error) {
	w, ok := r.st.warehouses[id]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (r *warehouseRepo) List(_ context.Context) ([]*entity.Warehouse, error) {
	out := make([]*entity.Warehouse, 0, len(r.st.warehouses))
	for _, id := range sortedIDs(r.st.warehouses) {
		w := r.st.warehouses[id]
		out = append(out, &w)
	}
	return out, nil
}

type cellRepo struct {
	st *state
}

// Add replica wms_add_cell.
func (r *cellRepo) Add(_ context.Context, c *entity.Cell) error {
	if _, ok := r.st.warehouses[c.WarehouseID]; !ok {
		return domain.NotFound("almacén %d no encontrado", c.WarehouseID)
	}
	for _, existing := range r.st.cells {
		if existing.WarehouseID == c.WarehouseID && strings.EqualFold(existing.Reference, c.Reference) {
			return domain.ErrDuplicate
		}
	}
	c.ID = r.st.nextID("cells")
	r.st.cells[c.ID] = *c
	return nil
}

// Update replica wms_update_cell: los límites nuevos no pueden quedar por debajo de la ocupación.
func (r *cellRepo) Update(_ context.Context, c *entity.Cell) error {
	current, ok := r.st.cells[c.ID]
	if !ok {
		return domain.NotFound("celda %d no encontrada", c.ID)
	}
	load := r.st.cellLoad(c.ID)
	if c.MaxCapacity < load.Quantity {
		return domain.Precondition("la capacidad nueva (%d) es menor que la ocupación (%d)", c.MaxCapacity, load.Quantity).
			With("cell_id", c.ID)
	}
	if c.MaxVolume.LessThan(load.Volume) {
		return domain.Precondition("el volumen nuevo es menor que el volumen ocupado").
			With("cell_id", c.ID).
			With("used_volume", load.Volume.String())
	}
	c.WarehouseID = current.WarehouseID
	r.st.cells[c.ID] = *c
	return nil
}

func (r *cellRepo) GetByID(_ context.Context, id int64) (*entity.Cell, error) {
	c, ok := r.st.cells[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *cellRepo) LockByIDs(_ context.Context, ids []int64) (map[int64]*entity.Cell, error) {
	out := make(map[int64]*entity.Cell, len(ids))
	for _, id := range ids {
		if c, ok := r.st.cells[id]; ok {
			out[id] = &c
		}
	}
	return out, nil
}

func (r *cellRepo) ListByWarehouse(_ context.Context, warehouseID int64) ([]*entity.Cell, error) {
	var out []*entity.Cell
	for _, id := range sortedIDs(r.st.cells) {
		if c := r.st.cells[id]; c.WarehouseID == warehouseID {
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *cellRepo) List(_ context.Context) ([]*entity.Cell, error) {
	out := make([]*entity.Cell, 0, len(r.st.cells))
	for _, id := range sortedIDs(r.st.cells) {
		c := r.st.cells[id]
		out = append(out, &c)
	}
	return out, nil
}
