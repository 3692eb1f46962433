package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/almacen-wms/internal/application/authz"
	"github.com/jhoicas/almacen-wms/internal/application/dto"
	"github.com/jhoicas/almacen-wms/internal/domain"
	"github.com/jhoicas/almacen-wms/internal/domain/entity"
	"github.com/jhoicas/almacen-wms/internal/domain/inventory"
	"github.com/jhoicas/almacen-wms/internal/domain/repository"
)

// CreateReception crea un bono de recepción en estado pending con sus líneas esperadas.
func (e *Engine) CreateReception(ctx context.Context, actor domain.Actor, req dto.CreateReceptionRequest) (*entity.ReceptionVoucher, error) {
	if err := e.guard.Authorize(ctx, actor, authz.CapReceive); err != nil {
		return nil, err
	}

	ref := strings.TrimSpace(req.Reference)
	if ref == "" {
		return nil, domain.Invalid("la referencia del bono es obligatoria")
	}
	seen := make(map[int64]bool, len(req.ExpectedLines))
	lines := make([]entity.ExpectedLine, 0, len(req.ExpectedLines))
	for _, l := range req.ExpectedLines {
		if l.Quantity <= 0 {
			return nil, domain.Invalid("la cantidad esperada debe ser positiva").With("product_id", l.ProductID)
		}
		if seen[l.ProductID] {
			return nil, domain.Invalid("producto %d repetido en las líneas esperadas", l.ProductID).
				With("product_id", l.ProductID)
		}
		seen[l.ProductID] = true
		lines = append(lines, entity.ExpectedLine{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	now := e.now()
	v := &entity.ReceptionVoucher{
		Reference:     ref,
		CreationDate:  now,
		PlannedDate:   entity.DateOf(req.PlannedDate.Time),
		Status:        entity.ReceptionPending,
		ExpectedLines: lines,
	}
	if req.PlannedDate.IsZero() {
		v.PlannedDate = entity.DateOf(now.In(e.loc))
	}
	err := e.tx.Run(ctx, func(s repository.Stores) error {
		for _, l := range lines {
			if _, err := productOf(ctx, s, l.ProductID); err != nil {
				return err
			}
		}
		if err := s.Receptions.Create(ctx, v); err != nil {
			return err
		}
		return s.Receptions.LinkResponsible(ctx, v.ID, actor.UserID, now)
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// ReceiveLot crea un lote nuevo en una celda contra un bono de recepción: lote, ubicación,
// colis recibido, vínculo con el bono y movimiento ENTRY en una sola transacción.
func (e *Engine) ReceiveLot(ctx context.Context, actor domain.Actor, req dto.ReceiveLotRequest) (*dto.ReceiveLotResponse, error) {
	if err := e.guard.Authorize(ctx, actor, authz.CapReceive); err != nil {
		return nil, err
	}

	if req.Quantity <= 0 {
		return nil, domain.Invalid("la cantidad debe ser positiva").With("quantity", req.Quantity)
	}
	lotNumber := strings.TrimSpace(req.LotNumber)
	if lotNumber == "" {
		return nil, domain.Invalid("el número de lote es obligatorio")
	}
	if req.ProductionDate.IsZero() {
		return nil, domain.Invalid("la fecha de producción es obligatoria")
	}
	prod := entity.DateOf(req.ProductionDate.Time)
	exp := req.ExpirationDate.Ptr()
	if exp != nil {
		d := entity.DateOf(*exp)
		if d.Before(prod) {
			return nil, domain.Invalid("la caducidad no puede ser anterior a la producción")
		}
		exp = &d
	}
	var out dto.ReceiveLotResponse
	err := e.tx.Run(ctx, func(s repository.Stores) error {
		v, err := s.Receptions.GetForUpdate(ctx, req.VoucherID)
		if err != nil {
			return err
		}
		if v == nil {
			return domain.NotFound("bono de recepción %d no encontrado", req.VoucherID).With("voucher_id", req.VoucherID)
		}
		if !v.Status.AcceptsLots() {
			return domain.Precondition("el bono %s no admite recepciones (%s)", v.Reference, v.Status).
				With("voucher_id", v.ID).
				With("status", string(v.Status))
		}
		product, err := productOf(ctx, s, req.ProductID)
		if err != nil {
			return err
		}
		existing, err := s.Lots.GetByNumber(ctx, lotNumber)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.Conflict("el lote %s ya existe", lotNumber).With("lot_id", existing.ID)
		}

		lot := &entity.Lot{
			LotNumber:       lotNumber,
			ProductID:       product.ID,
			InitialQuantity: req.Quantity,
			ProductionDate:  prod,
			ExpirationDate:  exp,
			Status:          entity.LotActive,
		}
		if lot.ExpiredAt(e.today()) {
			return domain.Precondition("el lote %s ya está caducado", lotNumber).
				With("expiration_date", exp.Format(dto.DateLayout))
		}

		cells, err := s.Cells.LockByIDs(ctx, []int64{req.CellID})
		if err != nil {
			return err
		}
		cell, ok := cells[req.CellID]
		if !ok {
			return domain.NotFound("celda %d no encontrada", req.CellID).With("cell_id", req.CellID)
		}
		load, err := cellLoad(ctx, s, cell.ID)
		if err != nil {
			return err
		}
		if err := inventory.CheckAdmission(cell, load, product, req.Quantity); err != nil {
			return err
		}

		now := e.now()
		if err := s.Lots.Receive(ctx, lot, cell.ID, now); err != nil {
			return err
		}
		pkg := &entity.Package{
			Reference:    fmt.Sprintf("REC-%d-%s", v.ID, lotNumber),
			CreationDate: now,
			Status:       entity.PackageReceived,
		}
		if err := s.Packages.Create(ctx, pkg); err != nil {
			return err
		}
		if err := s.Packages.AddContent(ctx, &entity.PackageContent{
			PackageID: pkg.ID,
			LotID:     lot.ID,
			Quantity:  req.Quantity,
		}); err != nil {
			return err
		}
		if err := s.Packages.LinkReception(ctx, v.ID, pkg.ID); err != nil {
			return err
		}
		mov := &entity.Movement{
			ProductID:         product.ID,
			LotID:             lot.ID,
			ToCellID:          ptr(cell.ID),
			Type:              entity.MovementEntry,
			Quantity:          req.Quantity,
			Timestamp:         now,
			ResponsibleUserID: actor.UserID,
			VoucherKind:       entity.VoucherReception,
			VoucherID:         ptr(v.ID),
		}
		if err := s.Movements.Append(ctx, mov); err != nil {
			return err
		}
		if v.Status == entity.ReceptionPending {
			if err := s.Receptions.SetStatus(ctx, v.ID, entity.ReceptionInProgress); err != nil {
				return err
			}
		}
		if err := s.Receptions.LinkResponsible(ctx, v.ID, actor.UserID, now); err != nil {
			return err
		}
		out = dto.ReceiveLotResponse{LotID: lot.ID, PackageID: pkg.ID, MovementID: mov.ID}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CloseReception cierra un bono en curso cuando cada línea esperada está cubierta.
func (e *Engine) CloseReception(ctx context.Context, actor domain.Actor, req dto.VoucherRequest) (*entity.ReceptionVoucher, error) {
	if err := e.guard.Authorize(ctx, actor, authz.CapReceive); err != nil {
		return nil, err
	}
	var out *entity.ReceptionVoucher
	err := e.tx.Run(ctx, func(s repository.Stores) error {
		v, err := s.Receptions.GetForUpdate(ctx, req.VoucherID)
		if err != nil {
			return err
		}
		if v == nil {
			return domain.NotFound("bono de recepción %d no encontrado", req.VoucherID).With("voucher_id", req.VoucherID)
		}
		if !v.Status.CanTransitionTo(entity.ReceptionCompleted) {
			return domain.Precondition("el bono %s no está en curso (%s)", v.Reference, v.Status).
				With("voucher_id", v.ID).
				With("status", string(v.Status))
		}
		received, err := s.Receptions.ReceivedTotals(ctx, v.ID)
		if err != nil {
			return err
		}
		for _, l := range v.ExpectedLines {
			if got := received[l.ProductID]; got < l.Quantity {
				return domain.Precondition("faltan unidades del producto %d en el bono %s", l.ProductID, v.Reference).
					With("product_id", l.ProductID).
					With("expected", l.Quantity).
					With("received", got)
			}
		}
		if err := s.Receptions.SetStatus(ctx, v.ID, entity.ReceptionCompleted); err != nil {
			return err
		}
		if err := s.Receptions.LinkResponsible(ctx, v.ID, actor.UserID, e.now()); err != nil {
			return err
		}
		v.Status = entity.ReceptionCompleted
		out = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
