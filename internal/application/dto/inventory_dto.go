package dto

import "github.com/jhoicas/almacen-wms/internal/domain/entity"

// MoveLotRequest traslado de unidades de un lote entre dos celdas.
type MoveLotRequest struct {
	LotID     int64 `json:"lot_id" validate:"required,gt=0"`
	SrcCellID int64 `json:"src_cell_id" validate:"required,gt=0"`
	DstCellID int64 `json:"dst_cell_id" validate:"required,gt=0"`
	Quantity  int64 `json:"quantity"`
}

// AdjustInventoryRequest fija la cantidad de una ubicación existente.
type AdjustInventoryRequest struct {
	LotID       int64  `json:"lot_id" validate:"required,gt=0"`
	CellID      int64  `json:"cell_id" validate:"required,gt=0"`
	NewQuantity int64  `json:"new_quantity"`
	Comment     string `json:"comment"`
}

// CreateReceptionRequest alta de un bono de recepción.
type CreateReceptionRequest struct {
	Reference     string                `json:"reference" validate:"required,max=64"`
	PlannedDate   Date                  `json:"planned_date"`
	ExpectedLines []ExpectedLineRequest `json:"expected_lines" validate:"dive"`
}

// ExpectedLineRequest cantidad esperada de un producto.
type ExpectedLineRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int64 `json:"quantity" validate:"required,gt=0"`
}

// ReceiveLotRequest recepción de un lote nuevo contra un bono.
type ReceiveLotRequest struct {
	VoucherID      int64  `json:"voucher_id" validate:"required,gt=0"`
	LotNumber      string `json:"lot_number" validate:"required,max=64"`
	ProductID      int64  `json:"product_id" validate:"required,gt=0"`
	Quantity       int64  `json:"quantity"`
	ProductionDate Date   `json:"production_date"`
	ExpirationDate *Date  `json:"expiration_date,omitempty"`
	CellID         int64  `json:"cell_id" validate:"required,gt=0"`
}

// ReceiveLotResponse resultado de una recepción.
type ReceiveLotResponse struct {
	LotID      int64 `json:"lot_id"`
	PackageID  int64 `json:"package_id"`
	MovementID int64 `json:"movement_id"`
}

// CreateShipmentRequest alta de un bono de expedición.
type CreateShipmentRequest struct {
	Reference   string `json:"reference" validate:"required,max=64"`
	PlannedDate Date   `json:"planned_date"`
	Priority    string `json:"priority" validate:"omitempty,oneof=normal high urgent"`
}

// PrepareShipmentRequest prepara un colis con qty unidades de un producto.
type PrepareShipmentRequest struct {
	VoucherID int64 `json:"voucher_id" validate:"required,gt=0"`
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int64 `json:"quantity"`
}

// PrepareShipmentResponse colis preparado y sus porciones.
type PrepareShipmentResponse struct {
	PackageID int64                    `json:"package_id"`
	Reference string                   `json:"reference"`
	Status    entity.PackageStatus     `json:"status"`
	Contents  []*entity.PackageContent `json:"contents"`
}

// PackageRequest operaciones sobre un colis.
type PackageRequest struct {
	PackageID int64 `json:"package_id" validate:"required,gt=0"`
}

// ReportExceptionRequest registra una incidencia contra un bono.
type ReportExceptionRequest struct {
	VoucherKind string `json:"voucher_kind" validate:"required,oneof=reception shipment"`
	VoucherID   int64  `json:"voucher_id" validate:"required,gt=0"`
	Kind        string `json:"kind" validate:"required,oneof=missing damaged mismatch overflow expired"`
	Description string `json:"description" validate:"required,max=2000"`
}

// ResolveExceptionRequest cierra una incidencia.
type ResolveExceptionRequest struct {
	ReportID int64  `json:"report_id" validate:"required,gt=0"`
	Note     string `json:"note" validate:"required,max=2000"`
}
