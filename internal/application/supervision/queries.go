package supervision

import (
	"context"
	"slices"
	"time"

	"github.com/jhoicas/almacen-wms/internal/application/authz"
	"github.com/jhoicas/almacen-wms/internal/application/dto"
	"github.com/jhoicas/almacen-wms/internal/domain"
	"github.com/jhoicas/almacen-wms/internal/domain/entity"
	"github.com/jhoicas/almacen-wms/internal/domain/inventory"
	"github.com/jhoicas/almacen-wms/internal/domain/repository"
)

func occupancyOf(cell *entity.Cell, load entity.CellLoad) dto.OccupancyResponse {
	return dto.OccupancyResponse{
		CellID:          cell.ID,
		Reference:       cell.Reference,
		WarehouseID:     cell.WarehouseID,
		Status:          cell.Status,
		Quantity:        load.Quantity,
		MaxCapacity:     cell.MaxCapacity,
		VolumeUsed:      load.Volume,
		VolumeRemaining: inventory.RemainingVolume(cell, load),
		OccupancyRatio:  inventory.OccupancyRatio(cell, load),
		LotCount:        load.Lots,
	}
}

// Occupancy ocupación actual de una celda.
func (s *Service) Occupancy(ctx context.Context, actor domain.Actor, cellID int64) (*dto.OccupancyResponse, error) {
	var out *dto.OccupancyResponse
	err := s.view(ctx, actor, func(st repository.Stores) error {
		cell, err := st.Cells.GetByID(ctx, cellID)
		if err != nil {
			return err
		}
		if cell == nil {
			return domain.NotFound("celda %d no encontrada", cellID).With("cell_id", cellID)
		}
		loads, err := st.Placements.CellLoads(ctx, []int64{cellID})
		if err != nil {
			return err
		}
		o := occupancyOf(cell, loads[cellID])
		out = &o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// movementsByProduct agrupa el diario por producto conservando el orden de timestamp.
func movementsByProduct(ctx context.Context, st repository.Stores) (map[int64][]*entity.Movement, error) {
	movs, err := st.Movements.List(ctx, repository.MovementFilter{})
	if err != nil {
		return nil, err
	}
	out := make(map[int64][]*entity.Movement)
	for _, m := range movs {
		out[m.ProductID] = append(out[m.ProductID], m)
	}
	return out, nil
}

// availableByProduct suma el disponible de los lotes activos por producto.
// Los lotes caducados conservan sus ubicaciones pero no cuentan como stock utilizable.
func availableByProduct(ctx context.Context, st repository.Stores) (map[int64]int64, error) {
	lots, err := st.Lots.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]int64)
	for _, l := range lots {
		if l.Status == entity.LotActive {
			out[l.ProductID] += l.AvailableQuantity
		}
	}
	return out, nil
}

// Stockouts productos cuyo disponible total es ≤ threshold (nil = umbral configurado),
// con la fecha de su última ruptura.
func (s *Service) Stockouts(ctx context.Context, actor domain.Actor, threshold *int64) ([]dto.StockoutResponse, error) {
	if err := s.guard.Authorize(ctx, actor, authz.CapReadSup); err != nil {
		return nil, err
	}
	limit := s.threshold
	if threshold != nil {
		if *threshold < 0 {
			return nil, domain.Invalid("el umbral no puede ser negativo")
		}
		limit = *threshold
	}
	out := []dto.StockoutResponse{}
	err := s.view(ctx, actor, func(st repository.Stores) error {
		products, err := st.Products.List(ctx)
		if err != nil {
			return err
		}
		available, err := availableByProduct(ctx, st)
		if err != nil {
			return err
		}
		byProduct, err := movementsByProduct(ctx, st)
		if err != nil {
			return err
		}
		for _, p := range products {
			if available[p.ID] > limit {
				continue
			}
			out = append(out, dto.StockoutResponse{
				ProductID:   p.ID,
				Reference:   p.Reference,
				Name:        p.Name,
				Available:   available[p.ID],
				LastRupture: inventory.LastRupture(byProduct[p.ID]),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// LastRupture último instante en que el stock acumulado del producto quedó ≤ 0.
func (s *Service) LastRupture(ctx context.Context, actor domain.Actor, productID int64) (*dto.LastRuptureResponse, error) {
	var out *dto.LastRuptureResponse
	err := s.view(ctx, actor, func(st repository.Stores) error {
		p, err := st.Products.GetByID(ctx, productID)
		if err != nil {
			return err
		}
		if p == nil {
			return domain.NotFound("producto %d no encontrado", productID).With("product_id", productID)
		}
		movs, err := st.Movements.List(ctx, repository.MovementFilter{ProductID: &productID})
		if err != nil {
			return err
		}
		out = &dto.LastRuptureResponse{ProductID: productID, LastRupture: inventory.LastRupture(movs)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RuptureHistory días de [start, end] en que algún producto cruzó a stock ≤ 0.
func (s *Service) RuptureHistory(ctx context.Context, actor domain.Actor, start, end time.Time) ([]dto.RuptureDayResponse, error) {
	if err := s.guard.Authorize(ctx, actor, authz.CapReadSup); err != nil {
		return nil, err
	}
	if start.IsZero() || end.IsZero() {
		return nil, domain.Invalid("las fechas de inicio y fin son obligatorias")
	}
	if entity.DateOf(end).Before(entity.DateOf(start)) {
		return nil, domain.Invalid("la fecha de fin es anterior a la de inicio")
	}
	// Las fechas de entrada son días civiles: se llevan a la zona configurada sin mover el día.
	from := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, s.loc)
	to := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, s.loc)
	out := []dto.RuptureDayResponse{}
	err := s.view(ctx, actor, func(st repository.Stores) error {
		byProduct, err := movementsByProduct(ctx, st)
		if err != nil {
			return err
		}
		for _, d := range inventory.RuptureHistory(byProduct, from, to, s.loc) {
			out = append(out, dto.RuptureDayResponse{
				Date:       dto.NewDate(d.Date),
				Count:      d.Count,
				ProductIDs: d.ProductIDs,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// NeverStocked productos sin ubicaciones y sin ninguna ENTRY en el diario.
func (s *Service) NeverStocked(ctx context.Context, actor domain.Actor) ([]dto.ProductSummary, error) {
	out := []dto.ProductSummary{}
	err := s.view(ctx, actor, func(st repository.Stores) error {
		products, err := st.Products.List(ctx)
		if err != nil {
			return err
		}
		placements, err := st.Placements.List(ctx)
		if err != nil {
			return err
		}
		lots, err := st.Lots.List(ctx)
		if err != nil {
			return err
		}
		movs, err := st.Movements.List(ctx, repository.MovementFilter{})
		if err != nil {
			return err
		}
		productOfLot := make(map[int64]int64, len(lots))
		for _, l := range lots {
			productOfLot[l.ID] = l.ProductID
		}
		stocked := make(map[int64]bool)
		for _, p := range placements {
			stocked[productOfLot[p.LotID]] = true
		}
		for _, m := range movs {
			if m.Type == entity.MovementEntry {
				stocked[m.ProductID] = true
			}
		}
		for _, p := range products {
			if stocked[p.ID] {
				continue
			}
			out = append(out, dto.ProductSummary{ProductID: p.ID, Reference: p.Reference, Name: p.Name, Kind: p.Kind()})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// EmptyCells celdas sin unidades.
func (s *Service) EmptyCells(ctx context.Context, actor domain.Actor) ([]*entity.Cell, error) {
	out := []*entity.Cell{}
	err := s.view(ctx, actor, func(st repository.Stores) error {
		cells, err := st.Cells.List(ctx)
		if err != nil {
			return err
		}
		ids := make([]int64, 0, len(cells))
		for _, c := range cells {
			ids = append(ids, c.ID)
		}
		loads, err := st.Placements.CellLoads(ctx, ids)
		if err != nil {
			return err
		}
		for _, c := range cells {
			if loads[c.ID].Quantity == 0 {
				out = append(out, c)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SoonToExpire lotes con stock cuya caducidad cae en [.., hoy + days] (nil = ventana configurada).
// Incluye los ya caducados que conservan unidades, con DaysLeft negativo. Orden: caducidad, id.
func (s *Service) SoonToExpire(ctx context.Context, actor domain.Actor, days *int) ([]dto.ExpiringLotResponse, error) {
	if err := s.guard.Authorize(ctx, actor, authz.CapReadSup); err != nil {
		return nil, err
	}
	window := s.expiringDays
	if days != nil {
		if *days < 0 {
			return nil, domain.Invalid("la ventana de días no puede ser negativa")
		}
		window = *days
	}
	today := entity.DateOf(s.today())
	limit := today.AddDate(0, 0, window)
	out := []dto.ExpiringLotResponse{}
	err := s.view(ctx, actor, func(st repository.Stores) error {
		lots, err := st.Lots.List(ctx)
		if err != nil {
			return err
		}
		productIDs := make([]int64, 0, len(lots))
		for _, l := range lots {
			productIDs = append(productIDs, l.ProductID)
		}
		products, err := st.Products.GetByIDs(ctx, productIDs)
		if err != nil {
			return err
		}
		for _, l := range lots {
			if l.ExpirationDate == nil || l.AvailableQuantity <= 0 {
				continue
			}
			exp := entity.DateOf(*l.ExpirationDate)
			if exp.After(limit) {
				continue
			}
			row := dto.ExpiringLotResponse{
				LotID:             l.ID,
				LotNumber:         l.LotNumber,
				ProductID:         l.ProductID,
				ExpirationDate:    exp,
				AvailableQuantity: l.AvailableQuantity,
				DaysLeft:          int(exp.Sub(today).Hours() / 24),
				Status:            l.Status,
			}
			if p, ok := products[l.ProductID]; ok {
				row.ProductReference = p.Reference
			}
			out = append(out, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(out, func(a, b dto.ExpiringLotResponse) int {
		if c := a.ExpirationDate.Compare(b.ExpirationDate); c != 0 {
			return c
		}
		return int(a.LotID - b.LotID)
	})
	return out, nil
}
