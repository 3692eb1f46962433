package repository

import "context"

// Stores agrupa los repositorios atados a una misma transacción.
type Stores struct {
	Products   ProductRepository
	Warehouses WarehouseRepository
	Cells      CellRepository
	Lots       LotRepository
	Placements PlacementRepository
	Packages   PackageRepository
	Receptions ReceptionRepository
	Shipments  ShipmentRepository
	Movements  MovementRepository
	Exceptions ExceptionRepository
	Users      UserRepository
	Roles      RoleRepository
	Approvs    ApprovRepository
}

// TxRunner ejecuta una función dentro de una transacción, pasando repositorios atados a esa tx.
// Run confirma si fn no devuelve error y revierte en cualquier otro caso (incluida la cancelación
// del contexto). View abre una transacción de solo lectura con una instantánea consistente.
type TxRunner interface {
	Run(ctx context.Context, fn func(s Stores) error) error
	View(ctx context.Context, fn func(s Stores) error) error
}
