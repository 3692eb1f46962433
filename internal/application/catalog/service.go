// Package catalog gestiona el catálogo: almacenes, celdas, productos y solicitudes de aprovisionamiento.
package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/almacen-wms/internal/application/authz"
	"github.com/jhoicas/almacen-wms/internal/application/dto"
	"github.com/jhoicas/almacen-wms/internal/domain"
	"github.com/jhoicas/almacen-wms/internal/domain/entity"
	"github.com/jhoicas/almacen-wms/internal/domain/repository"
)

// Service casos de uso del catálogo. Las escrituras requieren manageCatalog.
type Service struct {
	tx    repository.TxRunner
	guard authz.Authorizer
	now   func() time.Time
	log   zerolog.Logger
}

// NewService construye el servicio.
func NewService(tx repository.TxRunner, guard authz.Authorizer, log zerolog.Logger) *Service {
	return &Service{tx: tx, guard: guard, now: time.Now, log: log}
}

// WithClock reemplaza el reloj (tests).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateWarehouse crea un almacén.
func (s *Service) CreateWarehouse(ctx context.Context, actor domain.Actor, in dto.CreateWarehouseRequest) (*entity.Warehouse, error) {
	if err := s.guard.Authorize(ctx, actor, authz.CapManageCatalog); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.Invalid("el nombre del almacén es obligatorio")
	}
	if in.MaxCapacity < 0 {
		return nil, domain.Invalid("la capacidad del almacén no puede ser negativa")
	}
	wh := &entity.Warehouse{Name: name, MaxCapacity: in.MaxCapacity}
	err := s.tx.Run(ctx, func(st repository.Stores) error {
		return st.Warehouses.Create(ctx, wh)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Int64("warehouse_id", wh.ID).Str("name", wh.Name).Msg("almacén creado")
	return wh, nil
}

// AddCell da de alta una celda (wms_add_cell). Sin max_volume explícito se usa el volumen
// geométrico largo × ancho × alto.
func (s *Service) AddCell(ctx context.Context, actor domain.Actor, in dto.AddCellRequest) (*entity.Cell, error) {
	if err := s.guard.Authorize(ctx, actor, authz.CapManageCatalog); err != nil {
		return nil, err
	}

	cell := &entity.Cell{
		WarehouseID: in.WarehouseID,
		Reference:   strings.TrimSpace(in.Reference),
		Length:      in.Length,
		Width:       in.Width,
		Height:      in.Height,
		MaxMass:     in.MaxMass,
		MaxVolume:   in.MaxVolume,
		MaxCapacity: in.MaxCapacity,
		Position:    strings.TrimSpace(in.Position),
		Status:      entity.CellStatus(in.Status),
	}
	if cell.Status == "" {
		cell.Status = entity.CellActive
	}
	if cell.MaxVolume.IsZero() {
		cell.MaxVolume = cell.Length.Mul(cell.Width).Mul(cell.Height)
	}
	if err := validateCell(cell); err != nil {
		return nil, err
	}
	err := s.tx.Run(ctx, func(st repository.Stores) error {
		wh, err := st.Warehouses.GetByID(ctx, cell.WarehouseID)
		if err != nil {
			return err
		}
		if wh == nil {
			return domain.NotFound("almacén %d no encontrado", cell.WarehouseID).With("warehouse_id", cell.WarehouseID)
		}
		if err := st.Cells.Add(ctx, cell); err != nil {
			if domain.KindOf(err) == domain.KindConflict {
				return domain.Conflict("la referencia %q ya existe en el almacén", cell.Reference).
					With("warehouse_id", cell.WarehouseID)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cell, nil
}

// UpdateCell aplica los campos presentes (wms_update_cell). Rechaza límites por debajo de la ocupación.
func (s *Service) UpdateCell(ctx context.Context, actor domain.Actor, in dto.UpdateCellRequest) (*entity.Cell, error) {
	if err := s.guard.Authorize(ctx, actor, authz.CapManageCatalog); err != nil {
		return nil, err
	}

	var out *entity.Cell
	err := s.tx.Run(ctx, func(st repository.Stores) error {
		locked, err := st.Cells.LockByIDs(ctx, []int64{in.CellID})
		if err != nil {
			return err
		}
		cell, ok := locked[in.CellID]
		if !ok {
			return domain.NotFound("celda %d no encontrada", in.CellID).With("cell_id", in.CellID)
		}
		applyCellUpdate(cell, in)
		if err := validateCell(cell); err != nil {
			return err
		}
		if err := st.Cells.Update(ctx, cell); err != nil {
			return err
		}
		out = cell
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func applyCellUpdate(cell *entity.Cell, in dto.UpdateCellRequest) {
	if in.Length != nil {
		cell.Length = *in.Length
	}
	if in.Width != nil {
		cell.Width = *in.Width
	}
	if in.Height != nil {
		cell.Height = *in.Height
	}
	if in.MaxMass != nil {
		cell.MaxMass = *in.MaxMass
	}
	if in.MaxVolume != nil {
		cell.MaxVolume = *in.MaxVolume
	}
	if in.MaxCapacity != nil {
		cell.MaxCapacity = *in.MaxCapacity
	}
	if in.Position != nil {
		cell.Position = strings.TrimSpace(*in.Position)
	}
	if in.Status != nil {
		cell.Status = entity.CellStatus(*in.Status)
	}
}

func validateCell(c *entity.Cell) error {
	if c.Reference == "" {
		return domain.Invalid("la referencia de la celda es obligatoria")
	}
	if c.MaxCapacity <= 0 {
		return domain.Invalid("la capacidad de la celda debe ser positiva").With("max_capacity", c.MaxCapacity)
	}
	for field, v := range map[string]decimal.Decimal{
		"length": c.Length, "width": c.Width, "height": c.Height, "max_mass": c.MaxMass, "max_volume": c.MaxVolume,
	} {
		if v.IsNegative() {
			return domain.Invalid("%s no puede ser negativo", field).With("field", field)
		}
	}
	if !c.Status.Valid() {
		return domain.Invalid("estado de celda desconocido: %q", c.Status)
	}
	return nil
}
