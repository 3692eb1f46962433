package entity

import "time"

// MovementType tipo de movimiento del diario.
type MovementType string

// Tipos de movimiento de inventario.
const (
	MovementEntry      MovementType = "ENTRY"      // entrada (recepción)
	MovementExit       MovementType = "EXIT"       // salida (preparación de expedición)
	MovementTransfer   MovementType = "TRANSFER"   // traslado entre celdas
	MovementAdjustment MovementType = "ADJUSTMENT" // ajuste de inventario o reposición
)

// Movement registro auditable de cualquier evento que afecta al stock. El diario es append-only.
//
// Quantity es una magnitud positiva para ENTRY, EXIT y TRANSFER; para ADJUSTMENT es el delta
// con signo (nueva - anterior) aplicado en ToCellID. FromCellID en un ADJUSTMENT solo documenta
// la celda de origen de una reposición.
type Movement struct {
	ID                int64        `json:"id"`
	ProductID         int64        `json:"product_id"`
	LotID             int64        `json:"lot_id"`
	FromCellID        *int64       `json:"from_cell_id,omitempty"`
	ToCellID          *int64       `json:"to_cell_id,omitempty"`
	Type              MovementType `json:"type"`
	Quantity          int64        `json:"quantity"`
	Timestamp         time.Time    `json:"timestamp"`
	ResponsibleUserID int64        `json:"responsible_user_id"`
	VoucherKind       VoucherKind  `json:"voucher_kind,omitempty"`
	VoucherID         *int64       `json:"voucher_id,omitempty"`
	Comment           string       `json:"comment,omitempty"`
}

// PlacementEffect variación de una ubicación concreta producida por un movimiento.
type PlacementEffect struct {
	Key   PlacementKey
	Delta int64
}

// Effects devuelve el efecto con signo del movimiento sobre cada ubicación (lote, celda).
func (m *Movement) Effects() []PlacementEffect {
	switch m.Type {
	case MovementEntry:
		if m.ToCellID == nil {
			return nil
		}
		return []PlacementEffect{{Key: PlacementKey{LotID: m.LotID, CellID: *m.ToCellID}, Delta: m.Quantity}}
	case MovementExit:
		if m.FromCellID == nil {
			return nil
		}
		return []PlacementEffect{{Key: PlacementKey{LotID: m.LotID, CellID: *m.FromCellID}, Delta: -m.Quantity}}
	case MovementTransfer:
		if m.FromCellID == nil || m.ToCellID == nil {
			return nil
		}
		return []PlacementEffect{
			{Key: PlacementKey{LotID: m.LotID, CellID: *m.FromCellID}, Delta: -m.Quantity},
			{Key: PlacementKey{LotID: m.LotID, CellID: *m.ToCellID}, Delta: m.Quantity},
		}
	case MovementAdjustment:
		if m.ToCellID == nil {
			return nil
		}
		return []PlacementEffect{{Key: PlacementKey{LotID: m.LotID, CellID: *m.ToCellID}, Delta: m.Quantity}}
	}
	return nil
}

// StockDelta efecto del movimiento sobre el stock total del producto
// (ENTRY suma, EXIT resta, TRANSFER es neutro, ADJUSTMENT aplica su delta).
func (m *Movement) StockDelta() int64 {
	switch m.Type {
	case MovementEntry:
		return m.Quantity
	case MovementExit:
		return -m.Quantity
	case MovementAdjustment:
		return m.Quantity
	}
	return 0
}
