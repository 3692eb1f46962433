package command

import (
	"context"

	"github.com/jhoicas/almacen-wms/internal/application/authz"
	"github.com/jhoicas/almacen-wms/internal/application/dto"
	"github.com/jhoicas/almacen-wms/internal/domain"
	"github.com/jhoicas/almacen-wms/internal/domain/entity"
)

// Nombres de comando.
const (
	InventoryMoveLot        = "inventory.moveLot"
	InventoryAdjust         = "inventory.adjust"
	ReceptionCreate         = "reception.create"
	ReceptionReceiveLot     = "reception.receiveLot"
	ReceptionClose          = "reception.close"
	ShipmentCreate          = "shipment.create"
	ShipmentPrepare         = "shipment.prepare"
	ShipmentValidate        = "shipment.validate"
	ShipmentConfirmDelivery = "shipment.confirmDelivery"
	ShipmentCancel          = "shipment.cancel"
	PackageCancel           = "package.cancel"
	ExceptionReport         = "exception.report"
	ExceptionResolve        = "exception.resolve"
	CatalogCreateWarehouse  = "catalog.createWarehouse"
	CatalogAddCell          = "catalog.addCell"
	CatalogUpdateCell       = "catalog.updateCell"
	CatalogCreateProduct    = "catalog.createProduct"
	ApprovCreate            = "approv.create"
	ApprovList              = "approv.list"
	RolesCreate             = "roles.create"
	RolesAssign             = "roles.assign"
	RolesRevoke             = "roles.revoke"
	SupOccupancy            = "sup.occupancy"
	SupStockouts            = "sup.stockouts"
	SupLastRupture          = "sup.lastRupture"
	SupRuptureHistory       = "sup.ruptureHistory"
	SupNeverStocked         = "sup.neverStocked"
	SupEmptyCells           = "sup.emptyCells"
	SupSoonToExpire         = "sup.soonToExpire"
	ReportStock             = "report.stock"
	ReportMovements         = "report.movements"
	ReportExceptions        = "report.exceptions"
	ReportStockouts         = "report.stockouts"
	ReportExpiring          = "report.expiring"
	ReportOccupancy         = "report.occupancy"
	ReportRuptureHistory    = "report.ruptureHistory"
)

type empty struct{}

func (d *Dispatcher) register(svc Services) {
	b := binder{validate: d.validate, guard: svc.Guard}

	if e := svc.Engine; e != nil {
		d.Handle(InventoryMoveLot, bind(b, authz.CapMove, e.MoveLot))
		d.Handle(InventoryAdjust, bind(b, authz.CapAdjust, e.AdjustInventory))
		d.Handle(ReceptionCreate, bind(b, authz.CapReceive, e.CreateReception))
		d.Handle(ReceptionReceiveLot, bind(b, authz.CapReceive, e.ReceiveLot))
		d.Handle(ReceptionClose, bind(b, authz.CapReceive, e.CloseReception))
		d.Handle(ShipmentCreate, bind(b, authz.CapPrepareShip, e.CreateShipment))
		d.Handle(ShipmentPrepare, bind(b, authz.CapPrepareShip, e.PrepareShipment))
		d.Handle(ShipmentValidate, bind(b, authz.CapValidateShip, e.ValidateShipment))
		d.Handle(ShipmentConfirmDelivery, bind(b, authz.CapValidateShip, e.ConfirmDelivery))
		d.Handle(ShipmentCancel, bind(b, authz.CapValidateShip, e.CancelShipment))
		d.Handle(PackageCancel, bind(b, authz.CapCancelPkg, e.CancelPackage))
		d.Handle(ExceptionReport, bind(b, authz.CapReportException, e.ReportException))
		d.Handle(ExceptionResolve, bind(b, authz.CapValidateShip, e.ResolveException))
	}

	if c := svc.Catalog; c != nil {
		d.Handle(CatalogCreateWarehouse, bind(b, authz.CapManageCatalog, c.CreateWarehouse))
		d.Handle(CatalogAddCell, bind(b, authz.CapManageCatalog, c.AddCell))
		d.Handle(CatalogUpdateCell, bind(b, authz.CapManageCatalog, c.UpdateCell))
		d.Handle(CatalogCreateProduct, bind(b, authz.CapManageCatalog, c.CreateProduct))
		d.Handle(ApprovCreate, bind(b, authz.CapManageCatalog, c.CreateApprov))
		d.Handle(ApprovList, bind(b, authz.CapReadSup, c.ListApprov))
	}

	if r := svc.Roles; r != nil {
		d.Handle(RolesCreate, bind(b, authz.CapManageRoles, func(ctx context.Context, actor domain.Actor, in dto.CreateRoleRequest) (*entity.Role, error) {
			return r.CreateRole(ctx, actor, in.Label, entity.RoleKind(in.Kind))
		}))
		d.Handle(RolesAssign, bind(b, authz.CapManageRoles, func(ctx context.Context, actor domain.Actor, in dto.AssignRoleRequest) (*entity.RoleAssignment, error) {
			return r.Assign(ctx, actor, authz.AssignInput{
				UserID:         in.UserID,
				RoleID:         in.RoleID,
				OrganizationID: in.OrganizationID,
				StartDate:      in.StartDate.Ptr(),
				EndDate:        in.EndDate.Ptr(),
			})
		}))
		d.Handle(RolesRevoke, bind(b, authz.CapManageRoles, func(ctx context.Context, actor domain.Actor, in dto.RevokeRoleRequest) (ack, error) {
			if err := r.Revoke(ctx, actor, in.UserID, in.RoleID, in.OrganizationID); err != nil {
				return ack{}, err
			}
			return ack{Done: true}, nil
		}))
	}

	s := svc.Supervision
	if s == nil {
		return
	}
	d.Handle(SupOccupancy, bind(b, authz.CapReadSup, func(ctx context.Context, actor domain.Actor, in dto.CellRequest) (*dto.OccupancyResponse, error) {
		return s.Occupancy(ctx, actor, in.CellID)
	}))
	d.Handle(SupStockouts, bind(b, authz.CapReadSup, func(ctx context.Context, actor domain.Actor, in dto.StockoutsRequest) ([]dto.StockoutResponse, error) {
		return s.Stockouts(ctx, actor, in.Threshold)
	}))
	d.Handle(SupLastRupture, bind(b, authz.CapReadSup, func(ctx context.Context, actor domain.Actor, in dto.ProductRequest) (*dto.LastRuptureResponse, error) {
		return s.LastRupture(ctx, actor, in.ProductID)
	}))
	ruptureHistory := bind(b, authz.CapReadSup, func(ctx context.Context, actor domain.Actor, in dto.RangeRequest) ([]dto.RuptureDayResponse, error) {
		return s.RuptureHistory(ctx, actor, in.Start.Time, in.End.Time)
	})
	d.Handle(SupRuptureHistory, ruptureHistory)
	d.Handle(SupNeverStocked, bind(b, authz.CapReadSup, func(ctx context.Context, actor domain.Actor, _ empty) ([]dto.ProductSummary, error) {
		return s.NeverStocked(ctx, actor)
	}))
	d.Handle(SupEmptyCells, bind(b, authz.CapReadSup, func(ctx context.Context, actor domain.Actor, _ empty) ([]*entity.Cell, error) {
		return s.EmptyCells(ctx, actor)
	}))
	d.Handle(SupSoonToExpire, bind(b, authz.CapReadSup, func(ctx context.Context, actor domain.Actor, in dto.SoonToExpireRequest) ([]dto.ExpiringLotResponse, error) {
		return s.SoonToExpire(ctx, actor, in.Days)
	}))

	d.Handle(ReportStock, bind(b, authz.CapReadSup, func(ctx context.Context, actor domain.Actor, _ empty) ([]dto.StockReportRow, error) {
		return s.StockReport(ctx, actor)
	}))
	d.Handle(ReportMovements, bind(b, authz.CapReadSup, func(ctx context.Context, actor domain.Actor, in dto.ProductRequest) ([]*entity.Movement, error) {
		return s.MovementReport(ctx, actor, in.ProductID)
	}))
	d.Handle(ReportExceptions, bind(b, authz.CapReadSup, func(ctx context.Context, actor domain.Actor, _ empty) ([]*entity.ExceptionEntry, error) {
		return s.ExceptionReport(ctx, actor)
	}))
	d.Handle(ReportStockouts, bind(b, authz.CapReadSup, func(ctx context.Context, actor domain.Actor, _ empty) ([]dto.StockoutResponse, error) {
		return s.StockoutReport(ctx, actor)
	}))
	d.Handle(ReportExpiring, bind(b, authz.CapReadSup, func(ctx context.Context, actor domain.Actor, in dto.SoonToExpireRequest) ([]dto.ExpiringLotResponse, error) {
		return s.ExpiringReport(ctx, actor, in.Days)
	}))
	d.Handle(ReportOccupancy, bind(b, authz.CapReadSup, func(ctx context.Context, actor domain.Actor, _ empty) ([]dto.OccupancyResponse, error) {
		return s.OccupancyReport(ctx, actor)
	}))
	d.Handle(ReportRuptureHistory, ruptureHistory)
}
