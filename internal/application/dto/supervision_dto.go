package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/almacen-wms/internal/domain/entity"
)

// CellRequest consulta sobre una celda.
type CellRequest struct {
	CellID int64 `json:"cell_id" validate:"required,gt=0"`
}

// ProductRequest consulta sobre un producto.
type ProductRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
}

// StockoutsRequest umbral opcional (por defecto el configurado).
type StockoutsRequest struct {
	Threshold *int64 `json:"threshold,omitempty" validate:"omitempty,gte=0"`
}

// SoonToExpireRequest ventana opcional en días.
type SoonToExpireRequest struct {
	Days *int `json:"days,omitempty" validate:"omitempty,gte=0"`
}

// RangeRequest ventana de fechas inclusiva.
type RangeRequest struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// OccupancyResponse ocupación de una celda.
type OccupancyResponse struct {
	CellID          int64             `json:"cell_id"`
	Reference       string            `json:"reference"`
	WarehouseID     int64             `json:"warehouse_id"`
	Status          entity.CellStatus `json:"status"`
	Quantity        int64             `json:"quantity"`
	MaxCapacity     int64             `json:"max_capacity"`
	VolumeUsed      decimal.Decimal   `json:"volume_used"`
	VolumeRemaining decimal.Decimal   `json:"volume_remaining"`
	OccupancyRatio  decimal.Decimal   `json:"occupancy_ratio"`
	LotCount        int               `json:"lot_count"`
}

// StockoutResponse producto en ruptura o bajo el umbral.
type StockoutResponse struct {
	ProductID   int64      `json:"product_id"`
	Reference   string     `json:"reference"`
	Name        string     `json:"name"`
	Available   int64      `json:"available"`
	LastRupture *time.Time `json:"last_rupture,omitempty"`
}

// LastRuptureResponse última ruptura de un producto.
type LastRuptureResponse struct {
	ProductID   int64      `json:"product_id"`
	LastRupture *time.Time `json:"last_rupture"`
}

// ProductSummary fila de producto en listados.
type ProductSummary struct {
	ProductID int64              `json:"product_id"`
	Reference string             `json:"reference"`
	Name      string             `json:"name"`
	Kind      entity.ProductKind `json:"kind"`
}

// ExpiringLotResponse lote próximo a caducar.
type ExpiringLotResponse struct {
	LotID             int64            `json:"lot_id"`
	LotNumber         string           `json:"lot_number"`
	ProductID         int64            `json:"product_id"`
	ProductReference  string           `json:"product_reference"`
	ExpirationDate    time.Time        `json:"expiration_date"`
	AvailableQuantity int64            `json:"available_quantity"`
	DaysLeft          int              `json:"days_left"`
	Status            entity.LotStatus `json:"status"`
}

// StockReportRow existencias por producto y celda.
type StockReportRow struct {
	ProductID        int64            `json:"product_id"`
	ProductReference string           `json:"product_reference"`
	LotID            int64            `json:"lot_id"`
	LotNumber        string           `json:"lot_number"`
	LotStatus        entity.LotStatus `json:"lot_status"`
	CellID           int64            `json:"cell_id"`
	CellReference    string           `json:"cell_reference"`
	Quantity         int64            `json:"quantity"`
	StockageDate     time.Time        `json:"stockage_date"`
}

// RuptureDayResponse día con rupturas.
type RuptureDayResponse struct {
	Date       Date    `json:"date"`
	Count      int     `json:"count"`
	ProductIDs []int64 `json:"product_ids"`
}
