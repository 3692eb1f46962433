package inventory

import (
	"github.com/shopspring/decimal"
	"github.com/jhoicas/almacen-wms/internal/domain"
	"github.com/jhoicas/almacen-wms/internal/domain/entity"
)

var hundred = decimal.NewFromInt(100)

// CheckAdmission valida que la celda pueda recibir qty unidades del producto dada su carga actual:
// celda activa, capacidad en unidades y, para productos materiales, volumen restante.
func CheckAdmission(cell *entity.Cell, load entity.CellLoad, product *entity.Product, qty int64) error {
	if !cell.IsActive() {
		return domain.Precondition("la celda %s no está activa (%s)", cell.Reference, cell.Status).
			With("cell_id", cell.ID).
			With("status", string(cell.Status))
	}
	if load.Quantity+qty > cell.MaxCapacity {
		return domain.Precondition("la celda %s excede su capacidad", cell.Reference).
			With("cell_id", cell.ID).
			With("max_capacity", cell.MaxCapacity).
			With("current_quantity", load.Quantity).
			With("requested", qty)
	}
	if product.Kind() == entity.ProductMaterial {
		needed := product.UnitVolume().Mul(decimal.NewFromInt(qty))
		remaining := RemainingVolume(cell, load)
		if needed.GreaterThan(remaining) {
			return domain.Precondition("la celda %s no tiene volumen suficiente", cell.Reference).
				With("cell_id", cell.ID).
				With("remaining_volume", remaining.String()).
				With("required_volume", needed.String())
		}
	}
	return nil
}

// RemainingVolume volumen libre de la celda (nunca negativo).
func RemainingVolume(cell *entity.Cell, load entity.CellLoad) decimal.Decimal {
	rem := cell.MaxVolume.Sub(load.Volume)
	if rem.IsNegative() {
		return decimal.Zero
	}
	return rem
}

// OccupancyRatio porcentaje (0-100) de ocupación: el mayor entre el ratio de unidades y el de volumen.
func OccupancyRatio(cell *entity.Cell, load entity.CellLoad) decimal.Decimal {
	ratio := decimal.Zero
	if cell.MaxCapacity > 0 {
		ratio = decimal.NewFromInt(load.Quantity).Mul(hundred).Div(decimal.NewFromInt(cell.MaxCapacity))
	}
	if cell.MaxVolume.IsPositive() {
		if v := load.Volume.Mul(hundred).Div(cell.MaxVolume); v.GreaterThan(ratio) {
			ratio = v
		}
	}
	if ratio.GreaterThan(hundred) {
		ratio = hundred
	}
	return ratio.Round(2)
}
