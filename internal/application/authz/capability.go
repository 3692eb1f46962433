package authz

import "github.com/jhoicas/almacen-wms/internal/domain/entity"

// Capability permiso a nivel de operación.
type Capability string

const (
	CapReceive         Capability = "receive"
	CapMove            Capability = "move"
	CapAdjust          Capability = "adjust"
	CapPrepareShip     Capability = "prepareShip"
	CapValidateShip    Capability = "validateShip"
	CapCancelPkg       Capability = "cancelPkg"
	CapReadSup         Capability = "readSup"
	CapReportException Capability = "reportException"
	CapManageCatalog   Capability = "manageCatalog"
	CapManageRoles     Capability = "manageRoles"
)

// matrix capacidades por tipo de rol. courier no tiene ninguna; admin solo gestiona roles.
var matrix = map[entity.RoleKind]map[Capability]bool{
	entity.RoleOperator: {
		CapReceive: true, CapMove: true, CapPrepareShip: true, CapCancelPkg: true,
		CapReadSup: true, CapReportException: true,
	},
	entity.RoleSupervisor: {
		CapReceive: true, CapMove: true, CapAdjust: true, CapPrepareShip: true,
		CapValidateShip: true, CapCancelPkg: true, CapReadSup: true,
		CapReportException: true, CapManageCatalog: true,
	},
	entity.RoleCourier: {},
	entity.RoleAdmin: {
		CapManageRoles: true,
	},
}

// Allows indica si el tipo de rol incluye la capacidad.
func Allows(kind entity.RoleKind, c Capability) bool {
	return matrix[kind][c]
}

// Capabilities devuelve las capacidades de un tipo de rol.
func Capabilities(kind entity.RoleKind) []Capability {
	out := make([]Capability, 0, len(matrix[kind]))
	for _, c := range []Capability{
		CapReceive, CapMove, CapAdjust, CapPrepareShip, CapValidateShip, CapCancelPkg,
		CapReadSup, CapReportException, CapManageCatalog, CapManageRoles,
	} {
		if matrix[kind][c] {
			out = append(out, c)
		}
	}
	return out
}
