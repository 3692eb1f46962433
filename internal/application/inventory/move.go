package inventory

import (
	"context"
	"strings"

	"github.com/jhoicas/almacen-wms/internal/application/authz"
	"github.com/jhoicas/almacen-wms/internal/application/dto"
	"github.com/jhoicas/almacen-wms/internal/domain"
	"github.com/jhoicas/almacen-wms/internal/domain/entity"
	"github.com/jhoicas/almacen-wms/internal/domain/inventory"
	"github.com/jhoicas/almacen-wms/internal/domain/repository"
)

// MoveLot traslada qty unidades de un lote entre dos celdas y registra un TRANSFER.
// Orden de bloqueo: lote, ubicación de origen y celdas por id ascendente.
func (e *Engine) MoveLot(ctx context.Context, actor domain.Actor, req dto.MoveLotRequest) (*entity.Movement, error) {
	if err := e.guard.Authorize(ctx, actor, authz.CapMove); err != nil {
		return nil, err
	}

	if req.Quantity <= 0 {
		return nil, domain.Invalid("la cantidad debe ser positiva").With("quantity", req.Quantity)
	}
	if req.SrcCellID == req.DstCellID {
		return nil, domain.Invalid("la celda de destino debe ser distinta de la de origen").
			With("cell_id", req.SrcCellID)
	}
	var mov *entity.Movement
	err := e.tx.Run(ctx, func(s repository.Stores) error {
		lot, err := lockLot(ctx, s, req.LotID)
		if err != nil {
			return err
		}
		src, err := s.Placements.GetForUpdate(ctx, req.LotID, req.SrcCellID)
		if err != nil {
			return err
		}
		cells, err := s.Cells.LockByIDs(ctx, uniqueSorted([]int64{req.SrcCellID, req.DstCellID}))
		if err != nil {
			return err
		}
		if _, ok := cells[req.SrcCellID]; !ok {
			return domain.NotFound("celda %d no encontrada", req.SrcCellID).With("cell_id", req.SrcCellID)
		}
		dst, ok := cells[req.DstCellID]
		if !ok {
			return domain.NotFound("celda %d no encontrada", req.DstCellID).With("cell_id", req.DstCellID)
		}
		if src == nil {
			return domain.Precondition("el lote %s no está en la celda %d", lot.LotNumber, req.SrcCellID).
				With("lot_id", lot.ID).
				With("cell_id", req.SrcCellID).
				With("available", int64(0)).
				With("requested", req.Quantity)
		}
		if src.Quantity < req.Quantity {
			return domain.Precondition("la celda de origen solo tiene %d unidades del lote %s", src.Quantity, lot.LotNumber).
				With("lot_id", lot.ID).
				With("cell_id", req.SrcCellID).
				With("available", src.Quantity).
				With("requested", req.Quantity)
		}

		product, err := productOf(ctx, s, lot.ProductID)
		if err != nil {
			return err
		}
		load, err := cellLoad(ctx, s, dst.ID)
		if err != nil {
			return err
		}
		if err := inventory.CheckAdmission(dst, load, product, req.Quantity); err != nil {
			return err
		}

		now := e.now()
		if err := s.Placements.Move(ctx, lot.ID, req.SrcCellID, dst.ID, req.Quantity, now); err != nil {
			return err
		}
		mov = &entity.Movement{
			ProductID:         lot.ProductID,
			LotID:             lot.ID,
			FromCellID:        ptr(req.SrcCellID),
			ToCellID:          ptr(dst.ID),
			Type:              entity.MovementTransfer,
			Quantity:          req.Quantity,
			Timestamp:         now,
			ResponsibleUserID: actor.UserID,
		}
		return s.Movements.Append(ctx, mov)
	})
	if err != nil {
		return nil, err
	}
	return mov, nil
}

// AdjustInventory fija la cantidad de una ubicación existente y registra un ADJUSTMENT con
// el delta (nueva - anterior), que puede ser cero.
func (e *Engine) AdjustInventory(ctx context.Context, actor domain.Actor, req dto.AdjustInventoryRequest) (*entity.Movement, error) {
	if err := e.guard.Authorize(ctx, actor, authz.CapAdjust); err != nil {
		return nil, err
	}

	if req.NewQuantity < 0 {
		return nil, domain.Invalid("la cantidad no puede ser negativa").With("new_quantity", req.NewQuantity)
	}
	comment := strings.TrimSpace(req.Comment)
	if comment == "" {
		return nil, domain.Invalid("el comentario del ajuste es obligatorio")
	}
	var mov *entity.Movement
	err := e.tx.Run(ctx, func(s repository.Stores) error {
		lot, err := lockLot(ctx, s, req.LotID)
		if err != nil {
			return err
		}
		p, err := s.Placements.GetForUpdate(ctx, req.LotID, req.CellID)
		if err != nil {
			return err
		}
		cells, err := s.Cells.LockByIDs(ctx, []int64{req.CellID})
		if err != nil {
			return err
		}
		cell, ok := cells[req.CellID]
		if !ok {
			return domain.NotFound("celda %d no encontrada", req.CellID).With("cell_id", req.CellID)
		}
		if p == nil {
			return domain.NotFound("el lote %s no tiene ubicación en la celda %s", lot.LotNumber, cell.Reference).
				With("lot_id", lot.ID).
				With("cell_id", cell.ID)
		}

		delta := req.NewQuantity - p.Quantity
		if delta > 0 {
			product, err := productOf(ctx, s, lot.ProductID)
			if err != nil {
				return err
			}
			load, err := cellLoad(ctx, s, cell.ID)
			if err != nil {
				return err
			}
			if err := inventory.CheckAdmission(cell, load, product, delta); err != nil {
				return err
			}
		}

		if err := s.Placements.Adjust(ctx, lot.ID, cell.ID, req.NewQuantity); err != nil {
			return err
		}
		mov = &entity.Movement{
			ProductID:         lot.ProductID,
			LotID:             lot.ID,
			ToCellID:          ptr(cell.ID),
			Type:              entity.MovementAdjustment,
			Quantity:          delta,
			Timestamp:         e.now(),
			ResponsibleUserID: actor.UserID,
			Comment:           comment,
		}
		return s.Movements.Append(ctx, mov)
	})
	if err != nil {
		return nil, err
	}
	return mov, nil
}
