package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Warehouse representa un almacén con capacidad global en unidades.
type Warehouse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	MaxCapacity int64     `json:"max_capacity"`
	CreatedAt   time.Time `json:"created_at"`
}

// CellStatus estado operativo de una celda.
type CellStatus string

const (
	CellActive      CellStatus = "active"
	CellInactive    CellStatus = "inactive"
	CellMaintenance CellStatus = "maintenance"
)

// Valid indica si el estado es uno de los reconocidos.
func (s CellStatus) Valid() bool {
	switch s {
	case CellActive, CellInactive, CellMaintenance:
		return true
	}
	return false
}

// Cell ubicación física acotada dentro de un almacén (dimensiones en cm, masa en kg, volumen en cm³).
type Cell struct {
	ID          int64           `json:"id"`
	WarehouseID int64           `json:"warehouse_id"`
	Reference   string          `json:"reference"` // única dentro del almacén
	Length      decimal.Decimal `json:"length"`
	Width       decimal.Decimal `json:"width"`
	Height      decimal.Decimal `json:"height"`
	MaxMass     decimal.Decimal `json:"max_mass"`
	MaxVolume   decimal.Decimal `json:"max_volume"`
	MaxCapacity int64           `json:"max_capacity"`
	Position    string          `json:"position"`
	Status      CellStatus      `json:"status"`
}

// IsActive indica si la celda admite entradas.
func (c *Cell) IsActive() bool { return c.Status == CellActive }

// CellLoad ocupación agregada de una celda: unidades, volumen de lotes materiales y número de lotes.
type CellLoad struct {
	CellID   int64           `json:"cell_id"`
	Quantity int64           `json:"quantity"`
	Volume   decimal.Decimal `json:"volume"`
	Lots     int             `json:"lots"`
}
