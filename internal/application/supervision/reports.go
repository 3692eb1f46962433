package supervision

import (
	"context"
	"slices"

	"github.com/jhoicas/almacen-wms/internal/application/dto"
	"github.com/jhoicas/almacen-wms/internal/domain"
	"github.com/jhoicas/almacen-wms/internal/domain/entity"
	"github.com/jhoicas/almacen-wms/internal/domain/repository"
)

// ── Informes estructurados ────────────────────────────────────────────────────
// El renderizado (PDF, CSV) queda fuera; aquí solo se producen las filas.

// StockReport existencias por producto, lote y celda, incluidas las de lotes caducados.
// Orden: referencia de producto, lote, celda.
func (s *Service) StockReport(ctx context.Context, actor domain.Actor) ([]dto.StockReportRow, error) {
	out := []dto.StockReportRow{}
	err := s.view(ctx, actor, func(st repository.Stores) error {
		placements, err := st.Placements.List(ctx)
		if err != nil {
			return err
		}
		lots, err := st.Lots.List(ctx)
		if err != nil {
			return err
		}
		cells, err := st.Cells.List(ctx)
		if err != nil {
			return err
		}
		lotByID := make(map[int64]*entity.Lot, len(lots))
		productIDs := make([]int64, 0, len(lots))
		for _, l := range lots {
			lotByID[l.ID] = l
			productIDs = append(productIDs, l.ProductID)
		}
		cellByID := make(map[int64]*entity.Cell, len(cells))
		for _, c := range cells {
			cellByID[c.ID] = c
		}
		products, err := st.Products.GetByIDs(ctx, productIDs)
		if err != nil {
			return err
		}
		for _, p := range placements {
			row := dto.StockReportRow{
				LotID:        p.LotID,
				CellID:       p.CellID,
				Quantity:     p.Quantity,
				StockageDate: p.StockageDate,
			}
			if l, ok := lotByID[p.LotID]; ok {
				row.ProductID = l.ProductID
				row.LotNumber = l.LotNumber
				row.LotStatus = l.Status
				if prod, ok := products[l.ProductID]; ok {
					row.ProductReference = prod.Reference
				}
			}
			if c, ok := cellByID[p.CellID]; ok {
				row.CellReference = c.Reference
			}
			out = append(out, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, func(a, b dto.StockReportRow) int {
		switch {
		case a.ProductReference != b.ProductReference:
			if a.ProductReference < b.ProductReference {
				return -1
			}
			return 1
		case a.LotID != b.LotID:
			return int(a.LotID - b.LotID)
		default:
			return int(a.CellID - b.CellID)
		}
	})
	return out, nil
}

// MovementReport diario de movimientos de un producto en orden cronológico.
func (s *Service) MovementReport(ctx context.Context, actor domain.Actor, productID int64) ([]*entity.Movement, error) {
	out := []*entity.Movement{}
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
		out = append(out, movs...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ExceptionReport incidencias con su resolución, si existe.
func (s *Service) ExceptionReport(ctx context.Context, actor domain.Actor) ([]*entity.ExceptionEntry, error) {
	out := []*entity.ExceptionEntry{}
	err := s.view(ctx, actor, func(st repository.Stores) error {
		entries, err := st.Exceptions.List(ctx)
		if err != nil {
			return err
		}
		out = append(out, entries...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// StockoutReport rupturas con el umbral configurado.
func (s *Service) StockoutReport(ctx context.Context, actor domain.Actor) ([]dto.StockoutResponse, error) {
	return s.Stockouts(ctx, actor, nil)
}

// ExpiringReport lotes que caducan en los próximos days días.
func (s *Service) ExpiringReport(ctx context.Context, actor domain.Actor, days *int) ([]dto.ExpiringLotResponse, error) {
	return s.SoonToExpire(ctx, actor, days)
}

// OccupancyReport ocupación de todas las celdas, ordenadas por id.
func (s *Service) OccupancyReport(ctx context.Context, actor domain.Actor) ([]dto.OccupancyResponse, error) {
	out := []dto.OccupancyResponse{}
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
			out = append(out, occupancyOf(c, loads[c.ID]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, func(a, b dto.OccupancyResponse) int { return int(a.CellID - b.CellID) })
	return out, nil
}
