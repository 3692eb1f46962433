package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/almacen-wms/internal/domain"
	"github.com/jhoicas/almacen-wms/internal/domain/entity"
	"github.com/jhoicas/almacen-wms/internal/domain/repository"
)

var (
	_ repository.LotRepository       = (*lotRepo)(nil)
	_ repository.PlacementRepository = (*placementRepo)(nil)
)

// cellLoad agrega las ubicaciones de una celda.
func (s *state) cellLoad(cellID int64) entity.CellLoad {
	load := entity.CellLoad{CellID: cellID, Volume: decimal.Zero}
	for _, p := range s.placements {
		if p.CellID != cellID {
			continue
		}
		load.Quantity += p.Quantity
		load.Lots++
		if lot, ok := s.lots[p.LotID]; ok {
			if prod, ok := s.products[lot.ProductID]; ok {
				load.Volume = load.Volume.Add(prod.UnitVolume().Mul(decimal.NewFromInt(p.Quantity)))
			}
		}
	}
	return load
}

// syncLot recalcula available_quantity y estado del lote a partir de sus ubicaciones.
func (s *state) syncLot(lotID int64) {
	lot, ok := s.lots[lotID]
	if !ok {
		return
	}
	var total int64
	for _, p := range s.placements {
		if p.LotID == lotID {
			total += p.Quantity
		}
	}
	lot.AvailableQuantity = total
	lot.Status = lot.StatusFor(total)
	s.lots[lotID] = lot
}

func (s *state) requireActiveCell(cellID int64) error {
	c, ok := s.cells[cellID]
	if !ok {
		return domain.NotFound("celda %d no encontrada", cellID)
	}
	if !c.IsActive() {
		return domain.Precondition("la celda %s no está activa", c.Reference).With("cell_id", cellID)
	}
	return nil
}

func (s *state) addToPlacement(lotID, cellID, qty int64, at time.Time) {
	key := entity.PlacementKey{LotID: lotID, CellID: cellID}
	p, ok := s.placements[key]
	if !ok {
		p = entity.Placement{LotID: lotID, CellID: cellID, StockageDate: at}
	}
	p.Quantity += qty
	s.placements[key] = p
}

func (s *state) takeFromPlacement(lotID, cellID, qty int64) error {
	key := entity.PlacementKey{LotID: lotID, CellID: cellID}
	p, ok := s.placements[key]
	if !ok || p.Quantity < qty {
		return domain.Precondition("la ubicación (lote %d, celda %d) no tiene %d unidades", lotID, cellID, qty).
			With("lot_id", lotID).
			With("cell_id", cellID)
	}
	p.Quantity -= qty
	if p.Quantity == 0 {
		delete(s.placements, key)
	} else {
		s.placements[key] = p
	}
	return nil
}

type lotRepo struct {
	st *state
}

// Receive replica wms_receive_lot.
func (r *lotRepo) Receive(_ context.Context, lot *entity.Lot, cellID int64, at time.Time) error {
	for _, l := range r.st.lots {
		if l.LotNumber == lot.LotNumber {
			return domain.ErrDuplicate
		}
	}
	if err := r.st.requireActiveCell(cellID); err != nil {
		return err
	}
	lot.ID = r.st.nextID("lots")
	lot.AvailableQuantity = lot.InitialQuantity
	lot.Status = entity.LotActive
	if lot.CreatedAt.IsZero() {
		lot.CreatedAt = at
	}
	r.st.lots[lot.ID] = *lot
	r.st.addToPlacement(lot.ID, cellID, lot.InitialQuantity, at)
	return nil
}

func (r *lotRepo) GetByID(_ context.Context, id int64) (*entity.Lot, error) {
	l, ok := r.st.lots[id]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (r *lotRepo) GetByNumber(_ context.Context, lotNumber string) (*entity.Lot, error) {
	for _, l := range r.st.lots {
		if l.LotNumber == lotNumber {
			return &l, nil
		}
	}
	return nil, nil
}

func (r *lotRepo) GetForUpdate(ctx context.Context, id int64) (*entity.Lot, error) {
	return r.GetByID(ctx, id)
}

func (r *lotRepo) LockByIDs(_ context.Context, ids []int64) (map[int64]*entity.Lot, error) {
	out := make(map[int64]*entity.Lot, len(ids))
	for _, id := range ids {
		if l, ok := r.st.lots[id]; ok {
			out[id] = &l
		}
	}
	return out, nil
}

func (r *lotRepo) LockAvailableByProduct(_ context.Context, productID int64) ([]*entity.Lot, error) {
	var out []*entity.Lot
	for _, id := range sortedIDs(r.st.lots) {
		l := r.st.lots[id]
		if l.ProductID == productID && l.Status == entity.LotActive && l.AvailableQuantity > 0 {
			out = append(out, &l)
		}
	}
	return out, nil
}

func (r *lotRepo) ExpireBefore(_ context.Context, day time.Time) ([]int64, error) {
	var expired []int64
	for _, id := range sortedIDs(r.st.lots) {
		l := r.st.lots[id]
		if l.Status == entity.LotActive && l.ExpiredAt(day) {
			l.Status = entity.LotExpired
			r.st.lots[id] = l
			expired = append(expired, id)
		}
	}
	return expired, nil
}

func (r *lotRepo) List(_ context.Context) ([]*entity.Lot, error) {
	out := make([]*entity.Lot, 0, len(r.st.lots))
	for _, id := range sortedIDs(r.st.lots) {
		l := r.st.lots[id]
		out = append(out, &l)
	}
	return out, nil
}

type placementRepo struct {
	st *state
}

func (r *placementRepo) GetForUpdate(_ context.Context, lotID, cellID int64) (*entity.Placement, error) {
	p, ok := r.st.placements[entity.PlacementKey{LotID: lotID, CellID: cellID}]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *placementRepo) sorted(keep func(entity.Placement) bool) []*entity.Placement {
	var out []*entity.Placement
	for _, p := range r.st.placements {
		if keep(p) {
			p := p
			out = append(out, &p)
		}
	}
	slices.SortFunc(out, func(a, b *entity.Placement) int {
		if c := cmp.Compare(a.LotID, b.LotID); c != 0 {
			return c
		}
		return cmp.Compare(a.CellID, b.CellID)
	})
	return out
}

func (r *placementRepo) ListByLots(_ context.Context, lotIDs []int64, _ bool) ([]*entity.Placement, error) {
	return r.sorted(func(p entity.Placement) bool { return slices.Contains(lotIDs, p.LotID) }), nil
}

func (r *placementRepo) ListByCell(_ context.Context, cellID int64) ([]*entity.Placement, error) {
	return r.sorted(func(p entity.Placement) bool { return p.CellID == cellID }), nil
}

func (r *placementRepo) List(_ context.Context) ([]*entity.Placement, error) {
	return r.sorted(func(entity.Placement) bool { return true }), nil
}

func (r *placementRepo) CellLoads(_ context.Context, cellIDs []int64) (map[int64]entity.CellLoad, error) {
	out := make(map[int64]entity.CellLoad, len(cellIDs))
	for _, id := range cellIDs {
		out[id] = r.st.cellLoad(id)
	}
	return out, nil
}

// Move replica wms_move_lot.
func (r *placementRepo) Move(_ context.Context, lotID, srcCellID, dstCellID, qty int64, at time.Time) error {
	if err := r.st.requireActiveCell(dstCellID); err != nil {
		return err
	}
	if err := r.st.takeFromPlacement(lotID, srcCellID, qty); err != nil {
		return err
	}
	r.st.addToPlacement(lotID, dstCellID, qty, at)
	r.st.syncLot(lotID)
	return nil
}

// Adjust replica wms_adjust_inventory.
func (r *placementRepo) Adjust(_ context.Context, lotID, cellID, newQty int64) error {
	key := entity.PlacementKey{LotID: lotID, CellID: cellID}
	p, ok := r.st.placements[key]
	if !ok {
		return domain.NotFound("no existe ubicación del lote %d en la celda %d", lotID, cellID)
	}
	if newQty > p.Quantity {
		if err := r.st.requireActiveCell(cellID); err != nil {
			return err
		}
	}
	if newQty == 0 {
		delete(r.st.placements, key)
	} else {
		p.Quantity = newQty
		r.st.placements[key] = p
	}
	r.st.syncLot(lotID)
	return nil
}

// Take replica wms_take_lot.
func (r *placementRepo) Take(_ context.Context, lotID, cellID, qty int64) error {
	if err := r.st.takeFromPlacement(lotID, cellID, qty); err != nil {
		return err
	}
	r.st.syncLot(lotID)
	return nil
}

// Place replica wms_place_lot.
func (r *placementRepo) Place(_ context.Context, lotID, cellID, qty int64, at time.Time) error {
	if _, ok := r.st.lots[lotID]; !ok {
		return domain.NotFound("lote %d no encontrado", lotID)
	}
	if err := r.st.requireActiveCell(cellID); err != nil {
		return err
	}
	r.st.addToPlacement(lotID, cellID, qty, at)
	r.st.syncLot(lotID)
	return nil
}
