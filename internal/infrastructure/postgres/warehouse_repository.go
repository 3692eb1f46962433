package postgres

import (
	"context"
	"time"

	"github.com/jhoicas/almacen-wms/internal/domain/entity"
	"github.com/jhoicas/almacen-wms/internal/domain/repository"
)

var (
	_ repository.WarehouseRepository = (*WarehouseRepo)(nil)
	_ repository.CellRepository      = (*CellRepo)(nil)
)

// WarehouseRepo implementación del puerto WarehouseRepository.
type WarehouseRepo struct {
	q Querier
}

// NewWarehouseRepository construye el adaptador. Acepta pool o tx (Querier).
func NewWarehouseRepository(q Querier) *WarehouseRepo {
	return &WarehouseRepo{q: q}
}

// Create persiste el almacén y asigna ID.
func (r *WarehouseRepo) Create(ctx context.Context, w *entity.Warehouse) error {
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	}
	err := r.q.QueryRow(ctx,
		`INSERT INTO warehouses (name, max_capacity, created_at) VALUES ($1, $2, $3) RETURNING id`,
		w.Name, w.MaxCapacity, w.CreatedAt,
	).Scan(&w.ID)
	return classify("insert warehouse", err)
}

// GetByID obtiene un almacén por ID. Devuelve (nil, nil) si no existe.
func (r *WarehouseRepo) GetByID(ctx context.Context, id int64) (*entity.Warehouse, error) {
	var w entity.Warehouse
	err := r.q.QueryRow(ctx,
		`SELECT id, name, max_capacity, created_at FROM warehouses WHERE id = $1`, id,
	).Scan(&w.ID, &w.Name, &w.MaxCapacity, &w.CreatedAt)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, classify("get warehouse", err)
	}
	return &w, nil
}

// List devuelve los almacenes ordenados por id.
func (r *WarehouseRepo) List(ctx context.Context) ([]*entity.Warehouse, error) {
	rows, err := r.q.Query(ctx, `SELECT id, name, max_capacity, created_at FROM warehouses ORDER BY id`)
	if err != nil {
		return nil, classify("list warehouses", err)
	}
	defer rows.Close()
	var list []*entity.Warehouse
	for rows.Next() {
		var w entity.Warehouse
		if err := rows.Scan(&w.ID, &w.Name, &w.MaxCapacity, &w.CreatedAt); err != nil {
			return nil, classify("scan warehouse", err)
		}
		list = append(list, &w)
	}
	return list, classify("list warehouses", rows.Err())
}

// CellRepo implementación del puerto CellRepository. Las escrituras pasan por wms_add_cell y wms_update_cell.
type CellRepo struct {
	q Querier
}

// NewCellRepository construye el adaptador. Acepta pool o tx (Querier).
func NewCellRepository(q Querier) *CellRepo {
	return &CellRepo{q: q}
}

const selectCell = `
	SELECT id, warehouse_id, reference, length, width, height, max_mass, max_volume, max_capacity, position, status
	FROM cells`

func scanCell(row interface{ Scan(dest ...any) error }) (*entity.Cell, error) {
	var c entity.Cell
	var status string
	err := row.Scan(&c.ID, &c.WarehouseID, &c.Reference, &c.Length, &c.Width, &c.Height,
		&c.MaxMass, &c.MaxVolume, &c.MaxCapacity, &c.Position, &status)
	if err != nil {
		return nil, err
	}
	c.Status = entity.CellStatus(status)
	return &c, nil
}

// Add crea la celda con wms_add_cell.
func (r *CellRepo) Add(ctx context.Context, c *entity.Cell) error {
	err := r.q.QueryRow(ctx, `SELECT wms_add_cell($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		c.WarehouseID, c.Reference, c.Length, c.Width, c.Height,
		c.MaxMass, c.MaxVolume, c.MaxCapacity, c.Position, string(c.Status),
	).Scan(&c.ID)
	return classify("add cell", err)
}

// Update modifica la celda con wms_update_cell (rechaza límites por debajo de la ocupación).
func (r *CellRepo) Update(ctx context.Context, c *entity.Cell) error {
	var ok bool
	err := r.q.QueryRow(ctx, `SELECT wms_update_cell($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		c.ID, c.Reference, c.Length, c.Width, c.Height,
		c.MaxMass, c.MaxVolume, c.MaxCapacity, c.Position, string(c.Status),
	).Scan(&ok)
	return classify("update cell", err)
}

// GetByID obtiene una celda por ID. Devuelve (nil, nil) si no existe.
func (r *CellRepo) GetByID(ctx context.Context, id int64) (*entity.Cell, error) {
	c, err := scanCell(r.q.QueryRow(ctx, selectCell+` WHERE id = $1`, id))
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, classify("get cell", err)
	}
	return c, nil
}

// LockByIDs bloquea las celdas en orden ascendente de id.
func (r *CellRepo) LockByIDs(ctx context.Context, ids []int64) (map[int64]*entity.Cell, error) {
	out := make(map[int64]*entity.Cell, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cells, err := r.list(ctx, "lock cells", selectCell+` WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return nil, err
	}
	for _, c := range cells {
		out[c.ID] = c
	}
	return out, nil
}

// ListByWarehouse devuelve las celdas del almacén ordenadas por id.
func (r *CellRepo) ListByWarehouse(ctx context.Context, warehouseID int64) ([]*entity.Cell, error) {
	return r.list(ctx, "list cells", selectCell+` WHERE warehouse_id = $1 ORDER BY id`, warehouseID)
}

// List devuelve todas las celdas ordenadas por id.
func (r *CellRepo) List(ctx context.Context) ([]*entity.Cell, error) {
	return r.list(ctx, "list cells", selectCell+` ORDER BY id`)
}

func (r *CellRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.Cell, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()
	var list []*entity.Cell
	for rows.Next() {
		c, err := scanCell(rows)
		if err != nil {
			return nil, classify(op, err)
		}
		list = append(list, c)
	}
	return list, classify(op, rows.Err())
}
