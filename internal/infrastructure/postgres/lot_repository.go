package postgres

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/almacen-wms/internal/domain/entity"
	"github.com/jhoicas/almacen-wms/internal/domain/repository"
)

var (
	_ repository.LotRepository       = (*LotRepo)(nil)
	_ repository.PlacementRepository = (*PlacementRepo)(nil)
)

// LotRepo implementación del puerto LotRepository.
type LotRepo struct {
	q Querier
}

// NewLotRepository construye el adaptador. Acepta pool o tx (Querier).
func NewLotRepository(q Querier) *LotRepo {
	return &LotRepo{q: q}
}

const selectLot = `
	SELECT id, lot_number, product_id, initial_quantity, available_quantity,
	       production_date, expiration_date, status, created_at
	FROM lots`

func scanLot(row interface{ Scan(dest ...any) error }) (*entity.Lot, error) {
	var l entity.Lot
	var status string
	err := row.Scan(&l.ID, &l.LotNumber, &l.ProductID, &l.InitialQuantity, &l.AvailableQuantity,
		&l.ProductionDate, &l.ExpirationDate, &status, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	l.Status = entity.LotStatus(status)
	return &l, nil
}

// Receive crea el lote y su primera ubicación con wms_receive_lot.
func (r *LotRepo) Receive(ctx context.Context, lot *entity.Lot, cellID int64, at time.Time) error {
	err := r.q.QueryRow(ctx, `SELECT wms_receive_lot($1, $2, $3, $4, $5, $6, $7)`,
		lot.LotNumber, lot.ProductID, lot.InitialQuantity, lot.ProductionDate, lot.ExpirationDate, cellID, at,
	).Scan(&lot.ID)
	if err != nil {
		return classify("receive lot", err)
	}
	lot.AvailableQuantity = lot.InitialQuantity
	lot.Status = entity.LotActive
	if lot.CreatedAt.IsZero() {
		lot.CreatedAt = at
	}
	return nil
}

// GetByID obtiene un lote por ID. Devuelve (nil, nil) si no existe.
func (r *LotRepo) GetByID(ctx context.Context, id int64) (*entity.Lot, error) {
	return r.one(ctx, "get lot", selectLot+` WHERE id = $1`, id)
}

// GetByNumber obtiene un lote por su número.
func (r *LotRepo) GetByNumber(ctx context.Context, lotNumber string) (*entity.Lot, error) {
	return r.one(ctx, "get lot by number", selectLot+` WHERE lot_number = $1`, lotNumber)
}

// GetForUpdate obtiene el lote bloqueando la fila.
func (r *LotRepo) GetForUpdate(ctx context.Context, id int64) (*entity.Lot, error) {
	return r.one(ctx, "lock lot", selectLot+` WHERE id = $1 FOR UPDATE`, id)
}

// LockByIDs bloquea los lotes en orden ascendente de id.
func (r *LotRepo) LockByIDs(ctx context.Context, ids []int64) (map[int64]*entity.Lot, error) {
	out := make(map[int64]*entity.Lot, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	lots, err := r.list(ctx, "lock lots", selectLot+` WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return nil, err
	}
	for _, l := range lots {
		out[l.ID] = l
	}
	return out, nil
}

// LockAvailableByProduct bloquea los lotes activos con stock del producto.
func (r *LotRepo) LockAvailableByProduct(ctx context.Context, productID int64) ([]*entity.Lot, error) {
	return r.list(ctx, "lock product lots", selectLot+`
		WHERE product_id = $1 AND status = 'active' AND available_quantity > 0
		ORDER BY id FOR UPDATE`, productID)
}

// ExpireBefore marca expired los lotes activos que caducaron antes de day.
func (r *LotRepo) ExpireBefore(ctx context.Context, day time.Time) ([]int64, error) {
	rows, err := r.q.Query(ctx, `
		WITH expired AS (
			UPDATE lots SET status = 'expired'
			WHERE status = 'active' AND expiration_date IS NOT NULL AND expiration_date < $1::date
			RETURNING id
		)
		SELECT id FROM expired ORDER BY id`, entity.DateOf(day))
	if err != nil {
		return nil, classify("expire lots", err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, classify("expire lots", err)
		}
		ids = append(ids, id)
	}
	return ids, classify("expire lots", rows.Err())
}

// List devuelve todos los lotes ordenados por id.
func (r *LotRepo) List(ctx context.Context) ([]*entity.Lot, error) {
	return r.list(ctx, "list lots", selectLot+` ORDER BY id`)
}

func (r *LotRepo) one(ctx context.Context, op, query string, args ...any) (*entity.Lot, error) {
	l, err := scanLot(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, classify(op, err)
	}
	return l, nil
}

func (r *LotRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.Lot, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()
	var list []*entity.Lot
	for rows.Next() {
		l, err := scanLot(rows)
		if err != nil {
			return nil, classify(op, err)
		}
		list = append(list, l)
	}
	return list, classify(op, rows.Err())
}

// PlacementRepo implementación del puerto PlacementRepository. Las escrituras llaman a los
// procedimientos wms_move_lot, wms_adjust_inventory, wms_take_lot y wms_place_lot.
type PlacementRepo struct {
	q Querier
}

// NewPlacementRepository construye el adaptador. Acepta pool o tx (Querier).
func NewPlacementRepository(q Querier) *PlacementRepo {
	return &PlacementRepo{q: q}
}

const selectPlacement = `SELECT lot_id, cell_id, quantity, stockage_date FROM placements`

// GetForUpdate devuelve la ubicación bloqueada o (nil, nil) si no existe.
func (r *PlacementRepo) GetForUpdate(ctx context.Context, lotID, cellID int64) (*entity.Placement, error) {
	var p entity.Placement
	err := r.q.QueryRow(ctx, selectPlacement+` WHERE lot_id = $1 AND cell_id = $2 FOR UPDATE`, lotID, cellID).
		Scan(&p.LotID, &p.CellID, &p.Quantity, &p.StockageDate)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, classify("lock placement", err)
	}
	return &p, nil
}

// ListByLots devuelve las ubicaciones de los lotes en orden (lote, celda).
func (r *PlacementRepo) ListByLots(ctx context.Context, lotIDs []int64, forUpdate bool) ([]*entity.Placement, error) {
	if len(lotIDs) == 0 {
		return nil, nil
	}
	query := selectPlacement + ` WHERE lot_id = ANY($1) ORDER BY lot_id, cell_id`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	return r.list(ctx, "list placements", query, lotIDs)
}

// ListByCell devuelve las ubicaciones de una celda.
func (r *PlacementRepo) ListByCell(ctx context.Context, cellID int64) ([]*entity.Placement, error) {
	return r.list(ctx, "list placements", selectPlacement+` WHERE cell_id = $1 ORDER BY lot_id, cell_id`, cellID)
}

// List devuelve todas las ubicaciones.
func (r *PlacementRepo) List(ctx context.Context) ([]*entity.Placement, error) {
	return r.list(ctx, "list placements", selectPlacement+` ORDER BY lot_id, cell_id`)
}

// CellLoads agrega la carga de cada celda pedida; las vacías quedan con carga cero.
func (r *PlacementRepo) CellLoads(ctx context.Context, cellIDs []int64) (map[int64]entity.CellLoad, error) {
	out := make(map[int64]entity.CellLoad, len(cellIDs))
	for _, id := range cellIDs {
		out[id] = entity.CellLoad{CellID: id, Volume: decimal.Zero}
	}
	if len(cellIDs) == 0 {
		return out, nil
	}
	rows, err := r.q.Query(ctx, `
		SELECT p.cell_id,
		       SUM(p.quantity)::BIGINT,
		       COALESCE(SUM(p.quantity * COALESCE(ms.volume, 0)), 0),
		       COUNT(*)
		FROM placements p
		JOIN lots l ON l.id = p.lot_id
		LEFT JOIN material_specs ms ON ms.product_id = l.product_id
		WHERE p.cell_id = ANY($1)
		GROUP BY p.cell_id`, cellIDs)
	if err != nil {
		return nil, classify("cell loads", err)
	}
	defer rows.Close()
	for rows.Next() {
		var load entity.CellLoad
		var lots int64
		if err := rows.Scan(&load.CellID, &load.Quantity, &load.Volume, &lots); err != nil {
			return nil, classify("cell loads", err)
		}
		load.Lots = int(lots)
		out[load.CellID] = load
	}
	return out, classify("cell loads", rows.Err())
}

// Move traslada qty del origen al destino con wms_move_lot.
func (r *PlacementRepo) Move(ctx context.Context, lotID, srcCellID, dstCellID, qty int64, at time.Time) error {
	return r.call(ctx, "move lot", `SELECT wms_move_lot($1, $2, $3, $4, $5)`, lotID, srcCellID, dstCellID, qty, at)
}

// Adjust fija la cantidad de la ubicación con wms_adjust_inventory.
func (r *PlacementRepo) Adjust(ctx context.Context, lotID, cellID, newQty int64) error {
	return r.call(ctx, "adjust inventory", `SELECT wms_adjust_inventory($1, $2, $3)`, lotID, cellID, newQty)
}

// Take retira qty de la ubicación con wms_take_lot.
func (r *PlacementRepo) Take(ctx context.Context, lotID, cellID, qty int64) error {
	return r.call(ctx, "take lot", `SELECT wms_take_lot($1, $2, $3)`, lotID, cellID, qty)
}

// Place devuelve qty a la celda con wms_place_lot.
func (r *PlacementRepo) Place(ctx context.Context, lotID, cellID, qty int64, at time.Time) error {
	return r.call(ctx, "place lot", `SELECT wms_place_lot($1, $2, $3, $4)`, lotID, cellID, qty, at)
}

func (r *PlacementRepo) call(ctx context.Context, op, query string, args ...any) error {
	var ok bool
	return classify(op, r.q.QueryRow(ctx, query, args...).Scan(&ok))
}

func (r *PlacementRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.Placement, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()
	var list []*entity.Placement
	for rows.Next() {
		var p entity.Placement
		if err := rows.Scan(&p.LotID, &p.CellID, &p.Quantity, &p.StockageDate); err != nil {
			return nil, classify(op, err)
		}
		list = append(list, &p)
	}
	return list, classify(op, rows.Err())
}
