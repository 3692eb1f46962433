package repository

import (
	"context"
	"time"

	"github.com/jhoicas/almacen-wms/internal/domain/entity"
)

// PackageRepository puerto de colis y su contenido.
type PackageRepository interface {
	Create(ctx context.Context, pkg *entity.Package) error
	GetByID(ctx context.Context, id int64) (*entity.Package, error)
	GetForUpdate(ctx context.Context, id int64) (*entity.Package, error)
	SetStatus(ctx context.Context, id int64, status entity.PackageStatus) error
	AddContent(ctx context.Context, content *entity.PackageContent) error
	ListContents(ctx context.Context, packageID int64) ([]*entity.PackageContent, error)
	LinkReception(ctx context.Context, voucherID, packageID int64) error
	LinkShipment(ctx context.Context, voucherID, packageID int64) error
	ListByReception(ctx context.Context, voucherID int64) ([]*entity.Package, error)
	ListByShipment(ctx context.Context, voucherID int64) ([]*entity.Package, error)
	// ShipmentOf devuelve el bono de expedición del colis, o 0 si no está vinculado.
	ShipmentOf(ctx context.Context, packageID int64) (int64, error)
}

// ReceptionRepository puerto de bonos de recepción.
type ReceptionRepository interface {
	// Create persiste el bono y sus líneas esperadas; asigna ID.
	Create(ctx context.Context, voucher *entity.ReceptionVoucher) error
	GetByID(ctx context.Context, id int64) (*entity.ReceptionVoucher, error)
	GetForUpdate(ctx context.Context, id int64) (*entity.ReceptionVoucher, error)
	SetStatus(ctx context.Context, id int64, status entity.ReceptionStatus) error
	// ReceivedTotals suma por producto las cantidades recibidas en los colis del bono.
	ReceivedTotals(ctx context.Context, id int64) (map[int64]int64, error)
	LinkResponsible(ctx context.Context, id, userID int64, at time.Time) error
}

// ShipmentRepository puerto de bonos de expedición.
type ShipmentRepository interface {
	Create(ctx context.Context, voucher *entity.ShipmentVoucher) error
	GetByID(ctx context.Context, id int64) (*entity.ShipmentVoucher, error)
	GetForUpdate(ctx context.Context, id int64) (*entity.ShipmentVoucher, error)
	SetStatus(ctx context.Context, id int64, status entity.ShipmentStatus) error
	LinkResponsible(ctx context.Context, id, userID int64, at time.Time) error
}
