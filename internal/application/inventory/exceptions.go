package inventory

import (
	"context"
	"errors"
	"strings"

	"github.com/jhoicas/almacen-wms/internal/application/authz"
	"github.com/jhoicas/almacen-wms/internal/application/dto"
	"github.com/jhoicas/almacen-wms/internal/domain"
	"github.com/jhoicas/almacen-wms/internal/domain/entity"
	"github.com/jhoicas/almacen-wms/internal/domain/repository"
)

// ReportException registra una incidencia contra un bono existente. Las incidencias no se modifican.
func (e *Engine) ReportException(ctx context.Context, actor domain.Actor, req dto.ReportExceptionRequest) (*entity.ExceptionReport, error) {
	if err := e.guard.Authorize(ctx, actor, authz.CapReportException); err != nil {
		return nil, err
	}

	kind := entity.VoucherKind(req.VoucherKind)
	if !kind.Valid() {
		return nil, domain.Invalid("tipo de bono desconocido: %q", req.VoucherKind)
	}
	exKind := entity.ExceptionKind(req.Kind)
	if !exKind.Valid() {
		return nil, domain.Invalid("tipo de incidencia desconocido: %q", req.Kind)
	}
	desc := strings.TrimSpace(req.Description)
	if desc == "" {
		return nil, domain.Invalid("la descripción de la incidencia es obligatoria")
	}
	report := &entity.ExceptionReport{
		Kind:             exKind,
		Description:      desc,
		Timestamp:        e.now(),
		VoucherKind:      kind,
		RelatedVoucherID: req.VoucherID,
		ReportedBy:       actor.UserID,
	}
	err := e.tx.Run(ctx, func(s repository.Stores) error {
		if err := voucherExists(ctx, s, kind, req.VoucherID); err != nil {
			return err
		}
		return s.Exceptions.Append(ctx, report)
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// ResolveException añade la resolución de una incidencia (una sola vez).
func (e *Engine) ResolveException(ctx context.Context, actor domain.Actor, req dto.ResolveExceptionRequest) (*entity.ExceptionEntry, error) {
	if err := e.guard.Authorize(ctx, actor, authz.CapValidateShip); err != nil {
		return nil, err
	}

	note := strings.TrimSpace(req.Note)
	if note == "" {
		return nil, domain.Invalid("la nota de resolución es obligatoria")
	}
	var out *entity.ExceptionEntry
	err := e.tx.Run(ctx, func(s repository.Stores) error {
		entry, err := s.Exceptions.GetByID(ctx, req.ReportID)
		if err != nil {
			return err
		}
		if entry == nil {
			return domain.NotFound("incidencia %d no encontrada", req.ReportID).With("report_id", req.ReportID)
		}
		if entry.Resolved() {
			return domain.Conflict("la incidencia %d ya está resuelta", req.ReportID).With("report_id", req.ReportID)
		}
		res := &entity.ExceptionResolution{
			ReportID:   entry.Report.ID,
			ResolvedBy: actor.UserID,
			Note:       note,
			ResolvedAt: e.now(),
		}
		if err := s.Exceptions.Resolve(ctx, res); err != nil {
			if errors.Is(err, domain.ErrDuplicate) {
				return domain.Conflict("la incidencia %d ya está resuelta", req.ReportID).With("report_id", req.ReportID)
			}
			return err
		}
		entry.Resolution = res
		out = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func voucherExists(ctx context.Context, s repository.Stores, kind entity.VoucherKind, id int64) error {
	var found bool
	switch kind {
	case entity.VoucherReception:
		v, err := s.Receptions.GetByID(ctx, id)
		if err != nil {
			return err
		}
		found = v != nil
	case entity.VoucherShipment:
		v, err := s.Shipments.GetByID(ctx, id)
		if err != nil {
			return err
		}
		found = v != nil
	}
	if !found {
		return domain.NotFound("bono %s %d no encontrado", kind, id).With("voucher_id", id)
	}
	return nil
}

// ExpireLots marca como expired los lotes activos cuya caducidad ya pasó. Solo cambia el estado:
// las ubicaciones se conservan y no se registra movimiento. Lo ejecuta el proceso, sin actor.
func (e *Engine) ExpireLots(ctx context.Context) ([]int64, error) {
	today := entity.DateOf(e.today())
	var expired []int64
	err := e.tx.Run(ctx, func(s repository.Stores) error {
		var err error
		expired, err = s.Lots.ExpireBefore(ctx, today)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(expired) > 0 {
		e.log.Info().Int("count", len(expired)).Ints64("lot_ids", expired).Msg("lotes caducados")
	}
	return expired, nil
}
