package inventory_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/almacen-wms/internal/application/authz"
	"github.com/jhoicas/almacen-wms/internal/application/dto"
	"github.com/jhoicas/almacen-wms/internal/application/inventory"
	"github.com/jhoicas/almacen-wms/internal/domain"
	"github.com/jhoicas/almacen-wms/internal/domain/entity"
	stock "github.com/jhoicas/almacen-wms/internal/domain/inventory"
	"github.com/jhoicas/almacen-wms/internal/domain/repository"
)

func (f *fixture) shipmentStatus(id int64) entity.ShipmentStatus {
	f.t.Helper()
	var st entity.ShipmentStatus
	require.NoError(f.t, f.store.View(f.ctx, func(s repository.Stores) error {
		v, err := s.Shipments.GetByID(f.ctx, id)
		if err != nil {
			return err
		}
		st = v.Status
		return nil
	}))
	return st
}

func (f *fixture) packages(shipmentID int64) []*entity.Package {
	f.t.Helper()
	var out []*entity.Package
	require.NoError(f.t, f.store.View(f.ctx, func(s repository.Stores) error {
		var err error
		out, err = s.Packages.ListByShipment(f.ctx, shipmentID)
		return err
	}))
	return out
}

// ──────────────────────────────────────────────────────────────────────────────
// prepareShipment
// ──────────────────────────────────────────────────────────────────────────────

// Escenario 4: FEFO elige L2 (caduca 2025-05-01) antes que L1 (2025-06-01).
func TestPrepareShipment_FEFOConsumePrimeroElQueCaducaAntes(t *testing.T) {
	f := newFixture(t)
	l1 := f.receive("L1", 60, f.c1, date(2025, 6, 1))
	l2 := f.receive("L2", 60, f.c1, date(2025, 5, 1))
	ship := f.shipment("EXP-1")

	res, err := f.engine.PrepareShipment(f.ctx, f.operator, dto.PrepareShipmentRequest{VoucherID: ship, ProductID: f.p1, Quantity: 50})
	require.NoError(t, err)
	assert.Equal(t, entity.PackageReady, res.Status)
	require.Len(t, res.Contents, 1)
	assert.Equal(t, l2, res.Contents[0].LotID)
	assert.Equal(t, int64(50), res.Contents[0].Quantity)
	assert.Equal(t, f.c1, *res.Contents[0].OriginCellID)

	snap := f.snapshot()
	assert.Equal(t, int64(10), snap.lot(l2).AvailableQuantity)
	assert.Equal(t, int64(60), snap.lot(l1).AvailableQuantity)
	last := snap.movements[len(snap.movements)-1]
	assert.Equal(t, entity.MovementExit, last.Type)
	assert.Equal(t, f.c1, *last.FromCellID)
	assert.Equal(t, entity.VoucherShipment, last.VoucherKind)
	assert.Equal(t, entity.ShipmentInProgress, f.shipmentStatus(ship))
	f.checkInvariants()
}

func TestPrepareShipment_RepartePorLotesYCeldasMasOcupadas(t *testing.T) {
	f := newFixture(t)
	// Mismo vencimiento: desempata el id de lote. L1 queda repartido entre C1 (30) y C2 (40);
	// C2 está más ocupada en proporción (40/100 frente a 50/500) y se vacía primero.
	l1 := f.receive("L1", 70, f.c1, date(2025, 6, 1))
	l2 := f.receive("L2", 20, f.c1, date(2025, 6, 1))
	_, err := f.engine.MoveLot(f.ctx, f.operator, dto.MoveLotRequest{LotID: l1, SrcCellID: f.c1, DstCellID: f.c2, Quantity: 40})
	require.NoError(t, err)
	ship := f.shipment("EXP-1")

	res, err := f.engine.PrepareShipment(f.ctx, f.operator, dto.PrepareShipmentRequest{VoucherID: ship, ProductID: f.p1, Quantity: 80})
	require.NoError(t, err)
	require.Len(t, res.Contents, 3)
	assert.Equal(t, []int64{l1, f.c2, 40}, []int64{res.Contents[0].LotID, *res.Contents[0].OriginCellID, res.Contents[0].Quantity})
	assert.Equal(t, []int64{l1, f.c1, 30}, []int64{res.Contents[1].LotID, *res.Contents[1].OriginCellID, res.Contents[1].Quantity})
	assert.Equal(t, []int64{l2, f.c1, 10}, []int64{res.Contents[2].LotID, *res.Contents[2].OriginCellID, res.Contents[2].Quantity})

	snap := f.snapshot()
	assert.Equal(t, entity.LotConsumed, snap.lot(l1).Status)
	assert.Equal(t, int64(10), snap.lot(l2).AvailableQuantity)
	f.checkInvariants()
}

func TestPrepareShipment_StockInsuficienteNoCreaColis(t *testing.T) {
	f := newFixture(t)
	f.receive("L1", 30, f.c1, nil)
	ship := f.shipment("EXP-1")
	before := f.snapshot()

	_, err := f.engine.PrepareShipment(f.ctx, f.operator, dto.PrepareShipmentRequest{VoucherID: ship, ProductID: f.p1, Quantity: 31})
	de := requireKind(t, err, domain.KindInsufficientStock)
	assert.Equal(t, int64(30), de.Details["available"])

	assert.Empty(t, f.packages(ship))
	assert.Len(t, f.snapshot().movements, len(before.movements))
	assert.Equal(t, entity.ShipmentPending, f.shipmentStatus(ship))
}

func TestPrepareShipment_IgnoraLotesCaducados(t *testing.T) {
	clock := time.Date(2025, 4, 1, 9, 30, 0, 0, time.UTC)
	f := newFixture(t)
	f.receive("L-OLD", 20, f.c1, date(2025, 4, 1))
	ship := f.shipment("EXP-1")

	// El día de caducidad todavía se puede usar.
	_, err := f.engine.PrepareShipment(f.ctx, f.operator, dto.PrepareShipmentRequest{VoucherID: ship, ProductID: f.p1, Quantity: 5})
	require.NoError(t, err)

	later := inventory.NewEngine(f.store, authz.NewGuard(f.store),
		inventory.WithClock(func() time.Time { return clock.AddDate(0, 0, 1) }, time.UTC))
	_, err = later.PrepareShipment(f.ctx, f.operator, dto.PrepareShipmentRequest{VoucherID: ship, ProductID: f.p1, Quantity: 5})
	requireKind(t, err, domain.KindInsufficientStock)
}

func TestPrepareShipment_PoliticaFIFO(t *testing.T) {
	f := newFixture(t)
	l1 := f.receive("L1", 60, f.c1, date(2025, 6, 1))
	f.receive("L2", 60, f.c1, date(2025, 5, 1))
	ship := f.shipment("EXP-1")

	fifo := inventory.NewEngine(f.store, authz.NewGuard(f.store, authz.WithClock(func() time.Time { return now }, time.UTC)),
		inventory.WithClock(func() time.Time { return now }, time.UTC),
		inventory.WithPolicy(stock.PolicyFIFO))
	res, err := fifo.PrepareShipment(f.ctx, f.operator, dto.PrepareShipmentRequest{VoucherID: ship, ProductID: f.p1, Quantity: 50})
	require.NoError(t, err)
	assert.Equal(t, l1, res.Contents[0].LotID)
}

// ──────────────────────────────────────────────────────────────────────────────
// validateShipment / confirmDelivery
// ──────────────────────────────────────────────────────────────────────────────

func TestValidateShipment_CicloCompletoConsumeElLote(t *testing.T) {
	f := newFixture(t)
	l1 := f.receive("L1", 40, f.c1, nil)
	ship := f.shipment("EXP-1")
	_, err := f.engine.PrepareShipment(f.ctx, f.operator, dto.PrepareShipmentRequest{VoucherID: ship, ProductID: f.p1, Quantity: 40})
	require.NoError(t, err)

	v, err := f.engine.ValidateShipment(f.ctx, f.supervisor, dto.VoucherRequest{VoucherID: ship})
	require.NoError(t, err)
	assert.Equal(t, entity.ShipmentCompleted, v.Status)

	snap := f.snapshot()
	assert.Empty(t, snap.placements)
	assert.Equal(t, entity.LotConsumed, snap.lot(l1).Status)
	for _, p := range f.packages(ship) {
		assert.Equal(t, entity.PackageShipped, p.Status)
	}

	// Un colis expedido ya no se puede cancelar.
	_, err = f.engine.CancelPackage(f.ctx, f.operator, dto.PackageRequest{PackageID: f.packages(ship)[0].ID})
	requireKind(t, err, domain.KindPrecondition)
	f.checkInvariants()
}

func TestValidateShipment_Precondiciones(t *testing.T) {
	f := newFixture(t)
	f.receive("L1", 40, f.c1, nil)
	ship := f.shipment("EXP-1")

	// Caso 1: bono pendiente sin colis
	_, err := f.engine.ValidateShipment(f.ctx, f.supervisor, dto.VoucherRequest{VoucherID: ship})
	requireKind(t, err, domain.KindPrecondition)

	// Caso 2: incidencia sin resolver
	_, err = f.engine.PrepareShipment(f.ctx, f.operator, dto.PrepareShipmentRequest{VoucherID: ship, ProductID: f.p1, Quantity: 10})
	require.NoError(t, err)
	report, err := f.engine.ReportException(f.ctx, f.operator, dto.ReportExceptionRequest{
		VoucherKind: "shipment", VoucherID: ship, Kind: "damaged", Description: "caja abollada",
	})
	require.NoError(t, err)
	_, err = f.engine.ValidateShipment(f.ctx, f.supervisor, dto.VoucherRequest{VoucherID: ship})
	de := requireKind(t, err, domain.KindPrecondition)
	assert.Equal(t, 1, de.Details["unresolved"])

	// Caso 3: resuelta la incidencia se puede validar
	_, err = f.engine.ResolveException(f.ctx, f.supervisor, dto.ResolveExceptionRequest{ReportID: report.ID, Note: "reembalado"})
	require.NoError(t, err)
	_, err = f.engine.ResolveException(f.ctx, f.supervisor, dto.ResolveExceptionRequest{ReportID: report.ID, Note: "otra vez"})
	requireKind(t, err, domain.KindConflict)
	_, err = f.engine.ValidateShipment(f.ctx, f.supervisor, dto.VoucherRequest{VoucherID: ship})
	require.NoError(t, err)

	// Caso 4: un bono completado ya no admite colis
	_, err = f.engine.PrepareShipment(f.ctx, f.operator, dto.PrepareShipmentRequest{VoucherID: ship, ProductID: f.p1, Quantity: 1})
	requireKind(t, err, domain.KindPrecondition)
}

func TestConfirmDelivery_EsIdempotente(t *testing.T) {
	f := newFixture(t)
	f.receive("L1", 40, f.c1, nil)
	ship := f.shipment("EXP-1")
	_, err := f.engine.PrepareShipment(f.ctx, f.operator, dto.PrepareShipmentRequest{VoucherID: ship, ProductID: f.p1, Quantity: 5})
	require.NoError(t, err)

	// En curso todavía no se puede entregar.
	_, err = f.engine.ConfirmDelivery(f.ctx, f.supervisor, dto.VoucherRequest{VoucherID: ship})
	requireKind(t, err, domain.KindPrecondition)

	_, err = f.engine.ValidateShipment(f.ctx, f.supervisor, dto.VoucherRequest{VoucherID: ship})
	require.NoError(t, err)
	v, err := f.engine.ConfirmDelivery(f.ctx, f.supervisor, dto.VoucherRequest{VoucherID: ship})
	require.NoError(t, err)
	assert.Equal(t, entity.ShipmentDelivered, v.Status)

	v, err = f.engine.ConfirmDelivery(f.ctx, f.supervisor, dto.VoucherRequest{VoucherID: ship})
	require.NoError(t, err)
	assert.Equal(t, entity.ShipmentDelivered, v.Status)

	_, err = f.engine.CancelShipment(f.ctx, f.supervisor, dto.VoucherRequest{VoucherID: ship})
	requireKind(t, err, domain.KindPrecondition)
}

// ──────────────────────────────────────────────────────────────────────────────
// cancelPackage / cancelShipment
// ──────────────────────────────────────────────────────────────────────────────

func TestCancelPackage_DevuelveALaCeldaDeOrigen(t *testing.T) {
	f := newFixture(t)
	l1 := f.receive("L1", 40, f.c1, nil)
	ship := f.shipment("EXP-1")
	res, err := f.engine.PrepareShipment(f.ctx, f.operator, dto.PrepareShipmentRequest{VoucherID: ship, ProductID: f.p1, Quantity: 40})
	require.NoError(t, err)
	require.Equal(t, entity.LotConsumed, f.snapshot().lot(l1).Status)

	pkg, err := f.engine.CancelPackage(f.ctx, f.operator, dto.PackageRequest{PackageID: res.PackageID})
	require.NoError(t, err)
	assert.Equal(t, entity.PackageCanceled, pkg.Status)

	snap := f.snapshot()
	assert.Equal(t, int64(40), snap.placement(l1, f.c1))
	assert.Equal(t, entity.LotActive, snap.lot(l1).Status)
	last := snap.movements[len(snap.movements)-1]
	assert.Equal(t, entity.MovementAdjustment, last.Type)
	assert.Equal(t, int64(40), last.Quantity)
	assert.Equal(t, f.c1, *last.FromCellID)
	assert.Equal(t, f.c1, *last.ToCellID)
	assert.Equal(t, ship, *last.VoucherID)

	// Un colis cancelado no cuenta al validar: el bono no tiene colis listos.
	_, err = f.engine.ValidateShipment(f.ctx, f.supervisor, dto.VoucherRequest{VoucherID: ship})
	requireKind(t, err, domain.KindPrecondition)
	f.checkInvariants()
}

func TestCancelPackage_OrigenInactivoUsaOtraCeldaDelAlmacen(t *testing.T) {
	f := newFixture(t)
	l1 := f.receive("L1", 40, f.c1, nil)
	ship := f.shipment("EXP-1")
	res, err := f.engine.PrepareShipment(f.ctx, f.operator, dto.PrepareShipmentRequest{VoucherID: ship, ProductID: f.p1, Quantity: 40})
	require.NoError(t, err)
	f.setCellStatus(f.c1, entity.CellMaintenance)

	_, err = f.engine.CancelPackage(f.ctx, f.operator, dto.PackageRequest{PackageID: res.PackageID})
	require.NoError(t, err)

	snap := f.snapshot()
	assert.Equal(t, int64(0), snap.placement(l1, f.c1))
	assert.Equal(t, int64(40), snap.placement(l1, f.c2))
	last := snap.movements[len(snap.movements)-1]
	assert.Equal(t, f.c1, *last.FromCellID)
	assert.Equal(t, f.c2, *last.ToCellID)
	f.checkInvariants()
}

func TestCancelPackage_SinCeldaDisponibleFalla(t *testing.T) {
	f := newFixture(t)
	f.receive("L1", 40, f.c1, nil)
	ship := f.shipment("EXP-1")
	res, err := f.engine.PrepareShipment(f.ctx, f.operator, dto.PrepareShipmentRequest{VoucherID: ship, ProductID: f.p1, Quantity: 40})
	require.NoError(t, err)
	f.setCellStatus(f.c1, entity.CellInactive)
	f.setCellStatus(f.c2, entity.CellInactive)
	before := f.snapshot()

	_, err = f.engine.CancelPackage(f.ctx, f.operator, dto.PackageRequest{PackageID: res.PackageID})
	requireKind(t, err, domain.KindPrecondition)
	assert.Equal(t, before.movements, f.snapshot().movements)
	assert.Equal(t, entity.PackageReady, f.packages(ship)[0].Status)
}

func TestCancelShipment_DevuelveLosColisPendientes(t *testing.T) {
	f := newFixture(t)
	l1 := f.receive("L1", 40, f.c1, nil)
	ship := f.shipment("EXP-1")
	for range 2 {
		_, err := f.engine.PrepareShipment(f.ctx, f.operator, dto.PrepareShipmentRequest{VoucherID: ship, ProductID: f.p1, Quantity: 15})
		require.NoError(t, err)
	}
	assert.Equal(t, int64(10), f.snapshot().lot(l1).AvailableQuantity)

	// Cancelar un bono requiere validateShip.
	_, err := f.engine.CancelShipment(f.ctx, f.operator, dto.VoucherRequest{VoucherID: ship})
	requireKind(t, err, domain.KindUnauthorized)

	v, err := f.engine.CancelShipment(f.ctx, f.supervisor, dto.VoucherRequest{VoucherID: ship})
	require.NoError(t, err)
	assert.Equal(t, entity.ShipmentCanceled, v.Status)
	assert.Equal(t, int64(40), f.snapshot().lot(l1).AvailableQuantity)
	for _, p := range f.packages(ship) {
		assert.Equal(t, entity.PackageCanceled, p.Status)
	}
	f.checkInvariants()
}

// ──────────────────────────────────────────────────────────────────────────────
// Recepción: alta y cierre
// ──────────────────────────────────────────────────────────────────────────────

func TestCloseReception_ExigeLasCantidadesEsperadas(t *testing.T) {
	f := newFixture(t)
	v, err := f.engine.CreateReception(f.ctx, f.operator, dto.CreateReceptionRequest{
		Reference:     "BR-2",
		PlannedDate:   *date(2025, 4, 2),
		ExpectedLines: []dto.ExpectedLineRequest{{ProductID: f.p1, Quantity: 50}},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.ReceptionPending, v.Status)

	// Caso 1: pendiente no se puede cerrar
	_, err = f.engine.CloseReception(f.ctx, f.operator, dto.VoucherRequest{VoucherID: v.ID})
	requireKind(t, err, domain.KindPrecondition)

	recv := func(number string, qty int64) {
		_, err := f.engine.ReceiveLot(f.ctx, f.operator, dto.ReceiveLotRequest{
			VoucherID: v.ID, LotNumber: number, ProductID: f.p1, Quantity: qty,
			ProductionDate: *date(2025, 3, 1), CellID: f.c1,
		})
		require.NoError(t, err)
	}

	// Caso 2: faltan unidades
	recv("R1", 30)
	_, err = f.engine.CloseReception(f.ctx, f.operator, dto.VoucherRequest{VoucherID: v.ID})
	de := requireKind(t, err, domain.KindPrecondition)
	assert.Equal(t, int64(30), de.Details["received"])

	// Caso 3: completa
	recv("R2", 20)
	closed, err := f.engine.CloseReception(f.ctx, f.operator, dto.VoucherRequest{VoucherID: v.ID})
	require.NoError(t, err)
	assert.Equal(t, entity.ReceptionCompleted, closed.Status)
}

func TestCreateReception_ValidaLineas(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.CreateReception(f.ctx, f.operator, dto.CreateReceptionRequest{Reference: " "})
	requireKind(t, err, domain.KindInvalidArgument)

	_, err = f.engine.CreateReception(f.ctx, f.operator, dto.CreateReceptionRequest{
		Reference:     "BR-3",
		ExpectedLines: []dto.ExpectedLineRequest{{ProductID: 999, Quantity: 1}},
	})
	requireKind(t, err, domain.KindNotFound)

	_, err = f.engine.CreateReception(f.ctx, f.courier, dto.CreateReceptionRequest{Reference: "BR-4"})
	requireKind(t, err, domain.KindUnauthorized)
}

// ──────────────────────────────────────────────────────────────────────────────
// Incidencias y caducidad
// ──────────────────────────────────────────────────────────────────────────────

func TestReportException_BonoInexistente(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.ReportException(f.ctx, f.operator, dto.ReportExceptionRequest{
		VoucherKind: "reception", VoucherID: 999, Kind: "missing", Description: "no llegó",
	})
	requireKind(t, err, domain.KindNotFound)

	_, err = f.engine.ReportException(f.ctx, f.operator, dto.ReportExceptionRequest{
		VoucherKind: "reception", VoucherID: f.reception, Kind: "rare", Description: "x",
	})
	requireKind(t, err, domain.KindInvalidArgument)
}

func TestExpireLots_SoloCambiaElEstado(t *testing.T) {
	f := newFixture(t)
	l1 := f.receive("L1", 10, f.c1, date(2025, 4, 10))
	l2 := f.receive("L2", 10, f.c1, nil)
	movements := len(f.snapshot().movements)

	later := inventory.NewEngine(f.store, authz.NewGuard(f.store),
		inventory.WithClock(func() time.Time { return now.AddDate(0, 0, 9) }, time.UTC))
	expired, err := later.ExpireLots(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, expired, "el día de caducidad el lote sigue vigente")

	later = inventory.NewEngine(f.store, authz.NewGuard(f.store),
		inventory.WithClock(func() time.Time { return now.AddDate(0, 0, 10) }, time.UTC))
	expired, err = later.ExpireLots(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{l1}, expired)

	snap := f.snapshot()
	assert.Equal(t, entity.LotExpired, snap.lot(l1).Status)
	assert.Equal(t, entity.LotActive, snap.lot(l2).Status)
	assert.Equal(t, int64(10), snap.placement(l1, f.c1), "el lote caducado sigue visible")
	assert.Len(t, snap.movements, movements)
	assert.True(t, snap.loads[f.c1].Volume.Equal(decimal.NewFromInt(100)))
}
