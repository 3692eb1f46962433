package entity

import "time"

// PackageStatus estado de un colis.
type PackageStatus string

const (
	PackageOpen     PackageStatus = "open"
	PackageReady    PackageStatus = "ready"
	PackageShipped  PackageStatus = "shipped"
	PackageCanceled PackageStatus = "canceled"
	PackageReceived PackageStatus = "received"
)

// Package (Colis) unidad de mercancía compuesta por porciones de uno o varios lotes.
type Package struct {
	ID           int64         `json:"id"`
	Reference    string        `json:"reference"`
	CreationDate time.Time     `json:"creation_date"`
	Status       PackageStatus `json:"status"`
}

// Immutable indica que el colis ya salió (o se cerró) y no admite cambios.
func (p *Package) Immutable() bool {
	switch p.Status {
	case PackageShipped, PackageCanceled, PackageReceived:
		return true
	}
	return false
}

// PackageContent (Contenir) porción de un lote dentro de un colis. OriginCellID es la celda
// de donde salió la porción; nil cuando no se conoce.
type PackageContent struct {
	ID           int64  `json:"id"`
	PackageID    int64  `json:"package_id"`
	LotID        int64  `json:"lot_id"`
	OriginCellID *int64 `json:"origin_cell_id,omitempty"`
	Quantity     int64  `json:"quantity"`
}
