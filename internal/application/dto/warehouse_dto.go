package dto

import "github.com/shopspring/decimal"

// CreateWarehouseRequest entrada para crear un almacén.
type CreateWarehouseRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=200"`
	MaxCapacity int64  `json:"max_capacity" validate:"gte=0"`
}

// AddCellRequest alta de una celda (procedimiento addCell).
type AddCellRequest struct {
	WarehouseID int64           `json:"warehouse_id" validate:"required,gt=0"`
	Reference   string          `json:"reference" validate:"required,max=64"`
	Length      decimal.Decimal `json:"length"`
	Width       decimal.Decimal `json:"width"`
	Height      decimal.Decimal `json:"height"`
	MaxMass     decimal.Decimal `json:"max_mass"`
	MaxVolume   decimal.Decimal `json:"max_volume"`
	MaxCapacity int64           `json:"max_capacity" validate:"gt=0"`
	Position    string          `json:"position" validate:"max=120"`
	Status      string          `json:"status" validate:"omitempty,oneof=active inactive maintenance"`
}

// UpdateCellRequest modificación parcial de una celda (procedimiento updateCell).
type UpdateCellRequest struct {
	CellID      int64            `json:"cell_id" validate:"required,gt=0"`
	Length      *decimal.Decimal `json:"length,omitempty"`
	Width       *decimal.Decimal `json:"width,omitempty"`
	Height      *decimal.Decimal `json:"height,omitempty"`
	MaxMass     *decimal.Decimal `json:"max_mass,omitempty"`
	MaxVolume   *decimal.Decimal `json:"max_volume,omitempty"`
	MaxCapacity *int64           `json:"max_capacity,omitempty" validate:"omitempty,gt=0"`
	Position    *string          `json:"position,omitempty" validate:"omitempty,max=120"`
	Status      *string          `json:"status,omitempty" validate:"omitempty,oneof=active inactive maintenance"`
}
