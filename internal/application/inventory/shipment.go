package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/almacen-wms/internal/application/authz"
	"github.com/jhoicas/almacen-wms/internal/application/dto"
	"github.com/jhoicas/almacen-wms/internal/domain"
	"github.com/jhoicas/almacen-wms/internal/domain/entity"
	"github.com/jhoicas/almacen-wms/internal/domain/inventory"
	"github.com/jhoicas/almacen-wms/internal/domain/repository"
)

// CreateShipment crea un bono de expedición en estado pending.
func (e *Engine) CreateShipment(ctx context.Context, actor domain.Actor, req dto.CreateShipmentRequest) (*entity.ShipmentVoucher, error) {
	if err := e.guard.Authorize(ctx, actor, authz.CapPrepareShip); err != nil {
		return nil, err
	}

	ref := strings.TrimSpace(req.Reference)
	if ref == "" {
		return nil, domain.Invalid("la referencia del bono es obligatoria")
	}
	priority := entity.ShipmentPriority(req.Priority)
	if priority == "" {
		priority = entity.PriorityNormal
	}
	if !priority.Valid() {
		return nil, domain.Invalid("prioridad desconocida: %q", req.Priority)
	}
	now := e.now()
	v := &entity.ShipmentVoucher{
		Reference:    ref,
		CreationDate: now,
		PlannedDate:  entity.DateOf(req.PlannedDate.Time),
		Priority:     priority,
		Status:       entity.ShipmentPending,
	}
	if req.PlannedDate.IsZero() {
		v.PlannedDate = entity.DateOf(now.In(e.loc))
	}
	err := e.tx.Run(ctx, func(s repository.Stores) error {
		if err := s.Shipments.Create(ctx, v); err != nil {
			return err
		}
		return s.Shipments.LinkResponsible(ctx, v.ID, actor.UserID, now)
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

func lockShipment(ctx context.Context, s repository.Stores, id int64) (*entity.ShipmentVoucher, error) {
	v, err := s.Shipments.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, domain.NotFound("bono de expedición %d no encontrado", id).With("voucher_id", id)
	}
	return v, nil
}

// PrepareShipment reparte qty unidades de un producto entre sus lotes según la política
// configurada y las mete en un colis nuevo del bono. Sin stock suficiente no se crea nada.
func (e *Engine) PrepareShipment(ctx context.Context, actor domain.Actor, req dto.PrepareShipmentRequest) (*dto.PrepareShipmentResponse, error) {
	if err := e.guard.Authorize(ctx, actor, authz.CapPrepareShip); err != nil {
		return nil, err
	}

	if req.Quantity <= 0 {
		return nil, domain.Invalid("la cantidad debe ser positiva").With("quantity", req.Quantity)
	}
	var out *dto.PrepareShipmentResponse
	err := e.tx.Run(ctx, func(s repository.Stores) error {
		v, err := lockShipment(ctx, s, req.VoucherID)
		if err != nil {
			return err
		}
		if !v.Status.AcceptsPackages() {
			return domain.Precondition("el bono %s no admite colis (%s)", v.Reference, v.Status).
				With("voucher_id", v.ID).
				With("status", string(v.Status))
		}
		product, err := productOf(ctx, s, req.ProductID)
		if err != nil {
			return err
		}

		lots, err := s.Lots.LockAvailableByProduct(ctx, product.ID)
		if err != nil {
			return err
		}
		lotIDs := make([]int64, 0, len(lots))
		for _, l := range lots {
			lotIDs = append(lotIDs, l.ID)
		}
		placements, err := s.Placements.ListByLots(ctx, lotIDs, true)
		if err != nil {
			return err
		}
		cellIDs := make([]int64, 0, len(placements))
		for _, p := range placements {
			cellIDs = append(cellIDs, p.CellID)
		}
		cellIDs = uniqueSorted(cellIDs)
		cells, err := s.Cells.LockByIDs(ctx, cellIDs)
		if err != nil {
			return err
		}
		loads, err := s.Placements.CellLoads(ctx, cellIDs)
		if err != nil {
			return err
		}
		occupancy := make(map[int64]decimal.Decimal, len(cells))
		for id, c := range cells {
			occupancy[id] = inventory.OccupancyRatio(c, loads[id])
		}

		plan, err := inventory.PlanAllocation(inventory.AllocationRequest{
			Policy:     e.policy,
			Lots:       lots,
			Placements: placements,
			Occupancy:  occupancy,
			Quantity:   req.Quantity,
			Today:      e.today(),
		})
		if err != nil {
			return err
		}

		existing, err := s.Packages.ListByShipment(ctx, v.ID)
		if err != nil {
			return err
		}
		now := e.now()
		pkg := &entity.Package{
			Reference:    fmt.Sprintf("EXP-%d-%d", v.ID, len(existing)+1),
			CreationDate: now,
			Status:       entity.PackageOpen,
		}
		if err := s.Packages.Create(ctx, pkg); err != nil {
			return err
		}
		if err := s.Packages.LinkShipment(ctx, v.ID, pkg.ID); err != nil {
			return err
		}

		contents := make([]*entity.PackageContent, 0, len(plan))
		for _, sl := range plan {
			if err := s.Placements.Take(ctx, sl.LotID, sl.CellID, sl.Quantity); err != nil {
				return err
			}
			c := &entity.PackageContent{
				PackageID:    pkg.ID,
				LotID:        sl.LotID,
				OriginCellID: ptr(sl.CellID),
				Quantity:     sl.Quantity,
			}
			if err := s.Packages.AddContent(ctx, c); err != nil {
				return err
			}
			contents = append(contents, c)
			if err := s.Movements.Append(ctx, &entity.Movement{
				ProductID:         product.ID,
				LotID:             sl.LotID,
				FromCellID:        ptr(sl.CellID),
				Type:              entity.MovementExit,
				Quantity:          sl.Quantity,
				Timestamp:         now,
				ResponsibleUserID: actor.UserID,
				VoucherKind:       entity.VoucherShipment,
				VoucherID:         ptr(v.ID),
			}); err != nil {
				return err
			}
		}

		if err := s.Packages.SetStatus(ctx, pkg.ID, entity.PackageReady); err != nil {
			return err
		}
		if v.Status == entity.ShipmentPending {
			if err := s.Shipments.SetStatus(ctx, v.ID, entity.ShipmentInProgress); err != nil {
				return err
			}
		}
		if err := s.Shipments.LinkResponsible(ctx, v.ID, actor.UserID, now); err != nil {
			return err
		}
		out = &dto.PrepareShipmentResponse{
			PackageID: pkg.ID,
			Reference: pkg.Reference,
			Status:    entity.PackageReady,
			Contents:  contents,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ValidateShipment sella los colis listos del bono y lo pasa a completed. Los colis
// cancelados no cuentan; debe quedar al menos uno y no puede haber incidencias abiertas.
func (e *Engine) ValidateShipment(ctx context.Context, actor domain.Actor, req dto.VoucherRequest) (*entity.ShipmentVoucher, error) {
	if err := e.guard.Authorize(ctx, actor, authz.CapValidateShip); err != nil {
		return nil, err
	}
	var out *entity.ShipmentVoucher
	err := e.tx.Run(ctx, func(s repository.Stores) error {
		v, err := lockShipment(ctx, s, req.VoucherID)
		if err != nil {
			return err
		}
		if v.Status != entity.ShipmentInProgress {
			return domain.Precondition("el bono %s no está en curso (%s)", v.Reference, v.Status).
				With("voucher_id", v.ID).
				With("status", string(v.Status))
		}
		pkgs, err := s.Packages.ListByShipment(ctx, v.ID)
		if err != nil {
			return err
		}
		var toSeal []int64
		for _, p := range pkgs {
			if p.Status == entity.PackageCanceled {
				continue
			}
			if p.Status != entity.PackageReady {
				return domain.Precondition("el colis %s no está listo (%s)", p.Reference, p.Status).
					With("package_id", p.ID).
					With("status", string(p.Status))
			}
			toSeal = append(toSeal, p.ID)
		}
		if len(toSeal) == 0 {
			return domain.Precondition("el bono %s no tiene colis listos", v.Reference).With("voucher_id", v.ID)
		}
		open, err := s.Exceptions.CountUnresolved(ctx, entity.VoucherShipment, v.ID)
		if err != nil {
			return err
		}
		if open > 0 {
			return domain.Precondition("el bono %s tiene %d incidencias sin resolver", v.Reference, open).
				With("voucher_id", v.ID).
				With("unresolved", open)
		}
		for _, id := range toSeal {
			if err := s.Packages.SetStatus(ctx, id, entity.PackageShipped); err != nil {
				return err
			}
		}
		if err := s.Shipments.SetStatus(ctx, v.ID, entity.ShipmentCompleted); err != nil {
			return err
		}
		if err := s.Shipments.LinkResponsible(ctx, v.ID, actor.UserID, e.now()); err != nil {
			return err
		}
		v.Status = entity.ShipmentCompleted
		out = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ConfirmDelivery marca el bono como entregado. Es idempotente sobre bonos ya entregados.
func (e *Engine) ConfirmDelivery(ctx context.Context, actor domain.Actor, req dto.VoucherRequest) (*entity.ShipmentVoucher, error) {
	if err := e.guard.Authorize(ctx, actor, authz.CapValidateShip); err != nil {
		return nil, err
	}
	var out *entity.ShipmentVoucher
	err := e.tx.Run(ctx, func(s repository.Stores) error {
		v, err := lockShipment(ctx, s, req.VoucherID)
		if err != nil {
			return err
		}
		out = v
		if v.Status == entity.ShipmentDelivered {
			return nil
		}
		if !v.Status.CanTransitionTo(entity.ShipmentDelivered) {
			return domain.Precondition("el bono %s no está completado (%s)", v.Reference, v.Status).
				With("voucher_id", v.ID).
				With("status", string(v.Status))
		}
		if err := s.Shipments.SetStatus(ctx, v.ID, entity.ShipmentDelivered); err != nil {
			return err
		}
		if err := s.Shipments.LinkResponsible(ctx, v.ID, actor.UserID, e.now()); err != nil {
			return err
		}
		v.Status = entity.ShipmentDelivered
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CancelShipment cancela el bono desde cualquier estado no terminal y devuelve a stock
// los colis que seguían abiertos o listos.
func (e *Engine) CancelShipment(ctx context.Context, actor domain.Actor, req dto.VoucherRequest) (*entity.ShipmentVoucher, error) {
	if err := e.guard.Authorize(ctx, actor, authz.CapValidateShip); err != nil {
		return nil, err
	}
	var out *entity.ShipmentVoucher
	err := e.tx.Run(ctx, func(s repository.Stores) error {
		v, err := lockShipment(ctx, s, req.VoucherID)
		if err != nil {
			return err
		}
		if !v.Status.CanTransitionTo(entity.ShipmentCanceled) {
			return domain.Precondition("el bono %s ya está cerrado (%s)", v.Reference, v.Status).
				With("voucher_id", v.ID).
				With("status", string(v.Status))
		}
		pkgs, err := s.Packages.ListByShipment(ctx, v.ID)
		if err != nil {
			return err
		}
		comment := fmt.Sprintf("cancelación del bono %s", v.Reference)
		for _, p := range pkgs {
			if p.Status != entity.PackageOpen && p.Status != entity.PackageReady {
				continue
			}
			locked, err := s.Packages.GetForUpdate(ctx, p.ID)
			if err != nil {
				return err
			}
			if err := e.restock(ctx, s, actor, locked, v.ID, comment); err != nil {
				return err
			}
		}
		if err := s.Shipments.SetStatus(ctx, v.ID, entity.ShipmentCanceled); err != nil {
			return err
		}
		if err := s.Shipments.LinkResponsible(ctx, v.ID, actor.UserID, e.now()); err != nil {
			return err
		}
		v.Status = entity.ShipmentCanceled
		out = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
