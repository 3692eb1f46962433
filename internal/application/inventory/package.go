package inventory

import (
	"context"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/almacen-wms/internal/application/authz"
	"github.com/jhoicas/almacen-wms/internal/application/dto"
	"github.com/jhoicas/almacen-wms/internal/domain"
	"github.com/jhoicas/almacen-wms/internal/domain/entity"
	"github.com/jhoicas/almacen-wms/internal/domain/inventory"
	"github.com/jhoicas/almacen-wms/internal/domain/repository"
)

// CancelPackage cancela un colis abierto o listo y devuelve cada porción a stock.
func (e *Engine) CancelPackage(ctx context.Context, actor domain.Actor, req dto.PackageRequest) (*entity.Package, error) {
	if err := e.guard.Authorize(ctx, actor, authz.CapCancelPkg); err != nil {
		return nil, err
	}
	var out *entity.Package
	err := e.tx.Run(ctx, func(s repository.Stores) error {
		pkg, err := s.Packages.GetForUpdate(ctx, req.PackageID)
		if err != nil {
			return err
		}
		if pkg == nil {
			return domain.NotFound("colis %d no encontrado", req.PackageID).With("package_id", req.PackageID)
		}
		shipmentID, err := s.Packages.ShipmentOf(ctx, pkg.ID)
		if err != nil {
			return err
		}
		if err := e.restock(ctx, s, actor, pkg, shipmentID, fmt.Sprintf("cancelación del colis %s", pkg.Reference)); err != nil {
			return err
		}
		if shipmentID > 0 {
			if err := s.Shipments.LinkResponsible(ctx, shipmentID, actor.UserID, e.now()); err != nil {
				return err
			}
		}
		pkg.Status = entity.PackageCanceled
		out = pkg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// restock devuelve el contenido del colis a su celda de origen. Si el origen ya no está activo
// o no tiene capacidad, usa la primera celda activa (por id) del mismo almacén que la admita;
// sin origen conocido, cualquier celda activa. Cada porción deja un ADJUSTMENT positivo.
func (e *Engine) restock(ctx context.Context, s repository.Stores, actor domain.Actor, pkg *entity.Package, shipmentID int64, comment string) error {
	if pkg.Status != entity.PackageOpen && pkg.Status != entity.PackageReady {
		return domain.Precondition("el colis %s no se puede cancelar (%s)", pkg.Reference, pkg.Status).
			With("package_id", pkg.ID).
			With("status", string(pkg.Status))
	}
	contents, err := s.Packages.ListContents(ctx, pkg.ID)
	if err != nil {
		return err
	}

	lotIDs := make([]int64, 0, len(contents))
	for _, c := range contents {
		lotIDs = append(lotIDs, c.LotID)
	}
	lotIDs = uniqueSorted(lotIDs)
	lots, err := s.Lots.LockByIDs(ctx, lotIDs)
	if err != nil {
		return err
	}
	if _, err := s.Placements.ListByLots(ctx, lotIDs, true); err != nil {
		return err
	}
	candidates, err := restockCandidates(ctx, s, contents)
	if err != nil {
		return err
	}
	cells, err := s.Cells.LockByIDs(ctx, candidates)
	if err != nil {
		return err
	}
	loads, err := s.Placements.CellLoads(ctx, candidates)
	if err != nil {
		return err
	}
	productIDs := make([]int64, 0, len(lots))
	for _, l := range lots {
		productIDs = append(productIDs, l.ProductID)
	}
	products, err := s.Products.GetByIDs(ctx, uniqueSorted(productIDs))
	if err != nil {
		return err
	}

	now := e.now()
	for _, c := range contents {
		lot, ok := lots[c.LotID]
		if !ok {
			return domain.NotFound("lote %d no encontrado", c.LotID).With("lot_id", c.LotID)
		}
		product, ok := products[lot.ProductID]
		if !ok {
			return domain.NotFound("producto %d no encontrado", lot.ProductID).With("product_id", lot.ProductID)
		}
		target := pickRestockCell(c, candidates, cells, loads, product)
		if target == nil {
			return domain.Precondition("no hay celda activa con capacidad para devolver el lote %s", lot.LotNumber).
				With("lot_id", lot.ID).
				With("quantity", c.Quantity)
		}
		if c.OriginCellID != nil && *c.OriginCellID != target.ID {
			e.log.Warn().
				Int64("package_id", pkg.ID).
				Int64("lot_id", lot.ID).
				Int64("origin_cell_id", *c.OriginCellID).
				Int64("target_cell_id", target.ID).
				Msg("reposición en celda alternativa")
		}
		if err := s.Placements.Place(ctx, lot.ID, target.ID, c.Quantity, now); err != nil {
			return err
		}
		load := loads[target.ID]
		load.Quantity += c.Quantity
		load.Volume = load.Volume.Add(product.UnitVolume().Mul(decimal.NewFromInt(c.Quantity)))
		loads[target.ID] = load

		mov := &entity.Movement{
			ProductID:         lot.ProductID,
			LotID:             lot.ID,
			FromCellID:        c.OriginCellID,
			ToCellID:          ptr(target.ID),
			Type:              entity.MovementAdjustment,
			Quantity:          c.Quantity,
			Timestamp:         now,
			ResponsibleUserID: actor.UserID,
			Comment:           comment,
		}
		if shipmentID > 0 {
			mov.VoucherKind = entity.VoucherShipment
			mov.VoucherID = ptr(shipmentID)
		}
		if err := s.Movements.Append(ctx, mov); err != nil {
			return err
		}
	}
	return s.Packages.SetStatus(ctx, pkg.ID, entity.PackageCanceled)
}

// restockCandidates celdas que pueden recibir la devolución, ordenadas por id: los orígenes y
// las demás celdas de sus almacenes. Si alguna porción no tiene origen se consideran todas.
func restockCandidates(ctx context.Context, s repository.Stores, contents []*entity.PackageContent) ([]int64, error) {
	all, err := s.Cells.List(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*entity.Cell, len(all))
	for _, c := range all {
		byID[c.ID] = c
	}
	warehouses := make(map[int64]bool)
	unknownOrigin := false
	for _, c := range contents {
		if c.OriginCellID == nil {
			unknownOrigin = true
			continue
		}
		if cell, ok := byID[*c.OriginCellID]; ok {
			warehouses[cell.WarehouseID] = true
		}
	}
	ids := make([]int64, 0, len(all))
	for _, c := range all {
		if unknownOrigin || warehouses[c.WarehouseID] {
			ids = append(ids, c.ID)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func pickRestockCell(c *entity.PackageContent, candidates []int64, cells map[int64]*entity.Cell,
	loads map[int64]entity.CellLoad, product *entity.Product) *entity.Cell {
	fits := func(cell *entity.Cell) bool {
		return inventory.CheckAdmission(cell, loads[cell.ID], product, c.Quantity) == nil
	}
	warehouseID := int64(0)
	if c.OriginCellID != nil {
		origin, ok := cells[*c.OriginCellID]
		if ok && fits(origin) {
			return origin
		}
		if !ok {
			// Origen borrado del catálogo: no hay almacén de referencia.
			return nil
		}
		warehouseID = origin.WarehouseID
	}
	for _, id := range candidates {
		cell, ok := cells[id]
		if !ok {
			continue
		}
		if warehouseID != 0 && cell.WarehouseID != warehouseID {
			continue
		}
		if fits(cell) {
			return cell
		}
	}
	return nil
}
