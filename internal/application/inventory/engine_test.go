package inventory_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/almacen-wms/internal/application/dto"
	"github.com/jhoicas/almacen-wms/internal/domain"
	"github.com/jhoicas/almacen-wms/internal/domain/entity"
	"github.com/jhoicas/almacen-wms/internal/domain/repository"
)

func requireKind(t *testing.T, err error, kind domain.Kind) *domain.Error {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, domain.KindOf(err), "error inesperado: %v", err)
	return domain.AsError(err)
}

// ──────────────────────────────────────────────────────────────────────────────
// receiveLot
// ──────────────────────────────────────────────────────────────────────────────

// Escenario 1: recibir 100 unidades de P1 en C1.
func TestReceiveLot_CreaLoteUbicacionYMovimiento(t *testing.T) {
	f := newFixture(t)

	res, err := f.engine.ReceiveLot(f.ctx, f.operator, dto.ReceiveLotRequest{
		VoucherID:      f.reception,
		LotNumber:      "L1",
		ProductID:      f.p1,
		Quantity:       100,
		ProductionDate: *date(2025, 3, 1),
		ExpirationDate: date(2025, 6, 1),
		CellID:         f.c1,
	})
	require.NoError(t, err)

	snap := f.snapshot()
	lot := snap.lot(res.LotID)
	require.NotNil(t, lot)
	assert.Equal(t, int64(100), lot.InitialQuantity)
	assert.Equal(t, int64(100), lot.AvailableQuantity)
	assert.Equal(t, entity.LotActive, lot.Status)
	assert.Equal(t, int64(100), snap.placement(res.LotID, f.c1))
	require.Len(t, snap.movements, 1)
	assert.Equal(t, entity.MovementEntry, snap.movements[0].Type)
	assert.Equal(t, f.c1, *snap.movements[0].ToCellID)
	assert.Equal(t, f.reception, *snap.movements[0].VoucherID)
	assert.True(t, decimal.NewFromInt(500).Equal(snap.loads[f.c1].Volume), "volumen usado en C1")

	require.NoError(t, f.store.View(f.ctx, func(s repository.Stores) error {
		v, err := s.Receptions.GetByID(f.ctx, f.reception)
		require.NoError(t, err)
		assert.Equal(t, entity.ReceptionInProgress, v.Status)
		pkgs, err := s.Packages.ListByReception(f.ctx, f.reception)
		require.NoError(t, err)
		require.Len(t, pkgs, 1)
		assert.Equal(t, entity.PackageReceived, pkgs[0].Status)
		assert.Equal(t, res.PackageID, pkgs[0].ID)
		return nil
	}))
	f.checkInvariants()
}

func TestReceiveLot_RechazaEntradasInvalidas(t *testing.T) {
	f := newFixture(t)
	base := dto.ReceiveLotRequest{
		VoucherID: f.reception, LotNumber: "LX", ProductID: f.p1, Quantity: 10,
		ProductionDate: *date(2025, 3, 1), CellID: f.c1,
	}

	// Caso 1: cantidad cero
	req := base
	req.Quantity = 0
	_, err := f.engine.ReceiveLot(f.ctx, f.operator, req)
	requireKind(t, err, domain.KindInvalidArgument)

	// Caso 2: caducidad anterior a la producción
	req = base
	req.ExpirationDate = date(2025, 2, 1)
	_, err = f.engine.ReceiveLot(f.ctx, f.operator, req)
	requireKind(t, err, domain.KindInvalidArgument)

	// Caso 3: lote ya caducado
	req = base
	req.ExpirationDate = date(2025, 3, 15)
	_, err = f.engine.ReceiveLot(f.ctx, f.operator, req)
	requireKind(t, err, domain.KindPrecondition)

	// Caso 4: producto inexistente
	req = base
	req.ProductID = 999
	_, err = f.engine.ReceiveLot(f.ctx, f.operator, req)
	requireKind(t, err, domain.KindNotFound)

	// Caso 5: número de lote repetido
	f.receive("LX", 10, f.c1, nil)
	_, err = f.engine.ReceiveLot(f.ctx, f.operator, base)
	requireKind(t, err, domain.KindConflict)

	f.checkInvariants()
}

func TestReceiveLot_CapacidadYVolumenDeLaCelda(t *testing.T) {
	f := newFixture(t)

	// C2: 100 unidades y 1000 cm³. 150 unidades exceden la capacidad.
	_, err := f.engine.ReceiveLot(f.ctx, f.operator, dto.ReceiveLotRequest{
		VoucherID: f.reception, LotNumber: "L-CAP", ProductID: f.p1, Quantity: 150,
		ProductionDate: *date(2025, 3, 1), CellID: f.c2,
	})
	de := requireKind(t, err, domain.KindPrecondition)
	assert.Equal(t, int64(100), de.Details["max_capacity"])

	// Producto de 20 cm³: 60 unidades caben por capacidad (100) pero no por volumen (1200 > 1000).
	var big int64
	require.NoError(t, f.store.Run(f.ctx, func(s repository.Stores) error {
		p := &entity.Product{
			Reference: "P-BIG", Name: "Caja grande",
			Spec: entity.NewMaterialSpec(decimal.NewFromInt(2), decimal.NewFromInt(2), decimal.NewFromInt(5), decimal.NewFromInt(1)),
		}
		err := s.Products.Create(f.ctx, p)
		big = p.ID
		return err
	}))
	_, err = f.engine.ReceiveLot(f.ctx, f.operator, dto.ReceiveLotRequest{
		VoucherID: f.reception, LotNumber: "L-VOL", ProductID: big, Quantity: 60,
		ProductionDate: *date(2025, 3, 1), CellID: f.c2,
	})
	de = requireKind(t, err, domain.KindPrecondition)
	assert.Equal(t, "1000", de.Details["remaining_volume"])
	assert.Equal(t, "1200", de.Details["required_volume"])

	// Un software no ocupa volumen: solo cuenta la capacidad.
	_, err = f.engine.ReceiveLot(f.ctx, f.operator, dto.ReceiveLotRequest{
		VoucherID: f.reception, LotNumber: "L-SW", ProductID: f.software, Quantity: 100,
		ProductionDate: *date(2025, 3, 1), CellID: f.c2,
	})
	require.NoError(t, err)
	f.checkInvariants()
}

func TestReceiveLot_CeldaInactivaYBonoCerrado(t *testing.T) {
	f := newFixture(t)
	f.setCellStatus(f.c2, entity.CellMaintenance)

	_, err := f.engine.ReceiveLot(f.ctx, f.operator, dto.ReceiveLotRequest{
		VoucherID: f.reception, LotNumber: "L1", ProductID: f.p1, Quantity: 10,
		ProductionDate: *date(2025, 3, 1), CellID: f.c2,
	})
	requireKind(t, err, domain.KindPrecondition)

	require.NoError(t, f.store.Run(f.ctx, func(s repository.Stores) error {
		return s.Receptions.SetStatus(f.ctx, f.reception, entity.ReceptionCompleted)
	}))
	_, err = f.engine.ReceiveLot(f.ctx, f.operator, dto.ReceiveLotRequest{
		VoucherID: f.reception, LotNumber: "L1", ProductID: f.p1, Quantity: 10,
		ProductionDate: *date(2025, 3, 1), CellID: f.c1,
	})
	requireKind(t, err, domain.KindPrecondition)
	assert.Empty(t, f.snapshot().movements)
}

// ──────────────────────────────────────────────────────────────────────────────
// moveLot
// ──────────────────────────────────────────────────────────────────────────────

// Escenario 2: mover 40 de L1 de C1 a C2.
func TestMoveLot_TrasladaYRegistraTransfer(t *testing.T) {
	f := newFixture(t)
	l1 := f.receive("L1", 100, f.c1, nil)

	mov, err := f.engine.MoveLot(f.ctx, f.operator, dto.MoveLotRequest{LotID: l1, SrcCellID: f.c1, DstCellID: f.c2, Quantity: 40})
	require.NoError(t, err)
	assert.Equal(t, entity.MovementTransfer, mov.Type)

	snap := f.snapshot()
	assert.Equal(t, int64(60), snap.placement(l1, f.c1))
	assert.Equal(t, int64(40), snap.placement(l1, f.c2))
	assert.Equal(t, int64(100), snap.lot(l1).AvailableQuantity)
	require.Len(t, snap.movements, 2)
	assert.True(t, decimal.NewFromInt(300).Equal(snap.loads[f.c1].Volume))
	assert.True(t, decimal.NewFromInt(200).Equal(snap.loads[f.c2].Volume))
	f.checkInvariants()
}

// Escenario 3: mover 80 cuando solo quedan 60 en C1.
func TestMoveLot_CantidadInsuficienteNoCambiaNada(t *testing.T) {
	f := newFixture(t)
	l1 := f.receive("L1", 100, f.c1, nil)
	_, err := f.engine.MoveLot(f.ctx, f.operator, dto.MoveLotRequest{LotID: l1, SrcCellID: f.c1, DstCellID: f.c2, Quantity: 40})
	require.NoError(t, err)
	before := f.snapshot()

	_, err = f.engine.MoveLot(f.ctx, f.operator, dto.MoveLotRequest{LotID: l1, SrcCellID: f.c1, DstCellID: f.c2, Quantity: 80})
	de := requireKind(t, err, domain.KindPrecondition)
	assert.Equal(t, int64(60), de.Details["available"])
	assert.Equal(t, int64(80), de.Details["requested"])

	after := f.snapshot()
	assert.Equal(t, before.placements, after.placements)
	assert.Len(t, after.movements, len(before.movements))
}

func TestMoveLot_MovimientoCompletoBorraLaUbicacionYMezclaEnDestino(t *testing.T) {
	f := newFixture(t)
	l1 := f.receive("L1", 50, f.c1, nil)
	_, err := f.engine.MoveLot(f.ctx, f.operator, dto.MoveLotRequest{LotID: l1, SrcCellID: f.c1, DstCellID: f.c2, Quantity: 10})
	require.NoError(t, err)

	_, err = f.engine.MoveLot(f.ctx, f.operator, dto.MoveLotRequest{LotID: l1, SrcCellID: f.c1, DstCellID: f.c2, Quantity: 40})
	require.NoError(t, err)

	snap := f.snapshot()
	assert.Equal(t, int64(0), snap.placement(l1, f.c1))
	assert.Equal(t, int64(50), snap.placement(l1, f.c2))
	assert.Len(t, snap.placements, 1, "las cantidades se suman en la misma fila")
	f.checkInvariants()
}

func TestMoveLot_IdaYVueltaRestauraUbicaciones(t *testing.T) {
	f := newFixture(t)
	l1 := f.receive("L1", 100, f.c1, nil)
	before := f.snapshot()

	_, err := f.engine.MoveLot(f.ctx, f.operator, dto.MoveLotRequest{LotID: l1, SrcCellID: f.c1, DstCellID: f.c2, Quantity: 30})
	require.NoError(t, err)
	_, err = f.engine.MoveLot(f.ctx, f.operator, dto.MoveLotRequest{LotID: l1, SrcCellID: f.c2, DstCellID: f.c1, Quantity: 30})
	require.NoError(t, err)

	after := f.snapshot()
	require.Len(t, after.placements, len(before.placements))
	for i := range before.placements {
		assert.Equal(t, before.placements[i].Key(), after.placements[i].Key())
		assert.Equal(t, before.placements[i].Quantity, after.placements[i].Quantity)
	}
	assert.Len(t, after.movements, len(before.movements)+2, "el diario conserva ambos traslados")
	f.checkInvariants()
}

func TestMoveLot_Precondiciones(t *testing.T) {
	f := newFixture(t)
	l1 := f.receive("L1", 100, f.c1, nil)

	// Caso 1: cantidad no positiva
	_, err := f.engine.MoveLot(f.ctx, f.operator, dto.MoveLotRequest{LotID: l1, SrcCellID: f.c1, DstCellID: f.c2, Quantity: 0})
	requireKind(t, err, domain.KindInvalidArgument)

	// Caso 2: misma celda
	_, err = f.engine.MoveLot(f.ctx, f.operator, dto.MoveLotRequest{LotID: l1, SrcCellID: f.c1, DstCellID: f.c1, Quantity: 1})
	requireKind(t, err, domain.KindInvalidArgument)

	// Caso 3: lote inexistente
	_, err = f.engine.MoveLot(f.ctx, f.operator, dto.MoveLotRequest{LotID: 999, SrcCellID: f.c1, DstCellID: f.c2, Quantity: 1})
	requireKind(t, err, domain.KindNotFound)

	// Caso 4: destino inexistente
	_, err = f.engine.MoveLot(f.ctx, f.operator, dto.MoveLotRequest{LotID: l1, SrcCellID: f.c1, DstCellID: 999, Quantity: 1})
	requireKind(t, err, domain.KindNotFound)

	// Caso 5: destino sin capacidad (C2 admite 100 unidades)
	_, err = f.engine.MoveLot(f.ctx, f.operator, dto.MoveLotRequest{LotID: l1, SrcCellID: f.c1, DstCellID: f.c2, Quantity: 100})
	require.NoError(t, err, "100 unidades caben justo en C2")
	l2 := f.receive("L2", 1, f.c1, nil)
	_, err = f.engine.MoveLot(f.ctx, f.operator, dto.MoveLotRequest{LotID: l2, SrcCellID: f.c1, DstCellID: f.c2, Quantity: 1})
	requireKind(t, err, domain.KindPrecondition)

	// Caso 6: destino inactivo
	f.setCellStatus(f.c1, entity.CellInactive)
	_, err = f.engine.MoveLot(f.ctx, f.operator, dto.MoveLotRequest{LotID: l1, SrcCellID: f.c2, DstCellID: f.c1, Quantity: 1})
	requireKind(t, err, domain.KindPrecondition)

	f.checkInvariants()
}

// ──────────────────────────────────────────────────────────────────────────────
// adjustInventory
// ──────────────────────────────────────────────────────────────────────────────

// Escenario 5: ajustar (L1, C1) de 60 a 55 con comentario "damage".
func TestAdjustInventory_RegistraDeltaNegativo(t *testing.T) {
	f := newFixture(t)
	l1 := f.receive("L1", 100, f.c1, nil)
	_, err := f.engine.MoveLot(f.ctx, f.operator, dto.MoveLotRequest{LotID: l1, SrcCellID: f.c1, DstCellID: f.c2, Quantity: 40})
	require.NoError(t, err)

	mov, err := f.engine.AdjustInventory(f.ctx, f.supervisor, dto.AdjustInventoryRequest{LotID: l1, CellID: f.c1, NewQuantity: 55, Comment: "damage"})
	require.NoError(t, err)
	assert.Equal(t, entity.MovementAdjustment, mov.Type)
	assert.Equal(t, int64(-5), mov.Quantity)
	assert.Equal(t, "damage", mov.Comment)

	snap := f.snapshot()
	assert.Equal(t, int64(55), snap.placement(l1, f.c1))
	assert.Equal(t, int64(95), snap.lot(l1).AvailableQuantity)
	f.checkInvariants()
}

func TestAdjustInventory_DosVecesElMismoValorEsIdempotente(t *testing.T) {
	f := newFixture(t)
	l1 := f.receive("L1", 100, f.c1, nil)

	first, err := f.engine.AdjustInventory(f.ctx, f.supervisor, dto.AdjustInventoryRequest{LotID: l1, CellID: f.c1, NewQuantity: 70, Comment: "recuento"})
	require.NoError(t, err)
	second, err := f.engine.AdjustInventory(f.ctx, f.supervisor, dto.AdjustInventoryRequest{LotID: l1, CellID: f.c1, NewQuantity: 70, Comment: "recuento"})
	require.NoError(t, err)

	assert.Equal(t, int64(-30), first.Quantity)
	assert.Equal(t, int64(0), second.Quantity)
	snap := f.snapshot()
	assert.Equal(t, int64(70), snap.placement(l1, f.c1))
	assert.Len(t, snap.movements, 3)
	f.checkInvariants()
}

func TestAdjustInventory_ACeroBorraLaUbicacionYConsumeElLote(t *testing.T) {
	f := newFixture(t)
	l1 := f.receive("L1", 10, f.c1, nil)

	_, err := f.engine.AdjustInventory(f.ctx, f.supervisor, dto.AdjustInventoryRequest{LotID: l1, CellID: f.c1, NewQuantity: 0, Comment: "rotura"})
	require.NoError(t, err)

	snap := f.snapshot()
	assert.Empty(t, snap.placements)
	assert.Equal(t, entity.LotConsumed, snap.lot(l1).Status)
	f.checkInvariants()
}

func TestAdjustInventory_Precondiciones(t *testing.T) {
	f := newFixture(t)
	l1 := f.receive("L1", 100, f.c1, nil)

	// Caso 1: comentario vacío
	_, err := f.engine.AdjustInventory(f.ctx, f.supervisor, dto.AdjustInventoryRequest{LotID: l1, CellID: f.c1, NewQuantity: 5, Comment: "  "})
	requireKind(t, err, domain.KindInvalidArgument)

	// Caso 2: cantidad negativa
	_, err = f.engine.AdjustInventory(f.ctx, f.supervisor, dto.AdjustInventoryRequest{LotID: l1, CellID: f.c1, NewQuantity: -1, Comment: "x"})
	requireKind(t, err, domain.KindInvalidArgument)

	// Caso 3: ubicación inexistente
	_, err = f.engine.AdjustInventory(f.ctx, f.supervisor, dto.AdjustInventoryRequest{LotID: l1, CellID: f.c2, NewQuantity: 5, Comment: "x"})
	requireKind(t, err, domain.KindNotFound)

	// Caso 4: el aumento supera la capacidad de C1 (500)
	_, err = f.engine.AdjustInventory(f.ctx, f.supervisor, dto.AdjustInventoryRequest{LotID: l1, CellID: f.c1, NewQuantity: 501, Comment: "x"})
	requireKind(t, err, domain.KindPrecondition)

	// Caso 5: aumento en celda inactiva
	f.setCellStatus(f.c1, entity.CellInactive)
	_, err = f.engine.AdjustInventory(f.ctx, f.supervisor, dto.AdjustInventoryRequest{LotID: l1, CellID: f.c1, NewQuantity: 101, Comment: "x"})
	requireKind(t, err, domain.KindPrecondition)

	// Caso 6: una disminución en celda inactiva sí se permite
	_, err = f.engine.AdjustInventory(f.ctx, f.supervisor, dto.AdjustInventoryRequest{LotID: l1, CellID: f.c1, NewQuantity: 90, Comment: "x"})
	require.NoError(t, err)

	f.checkInvariants()
}

// ──────────────────────────────────────────────────────────────────────────────
// Autorización y cancelación
// ──────────────────────────────────────────────────────────────────────────────

func TestEngine_ActorSinCapacidadNoCambiaEstado(t *testing.T) {
	f := newFixture(t)
	l1 := f.receive("L1", 100, f.c1, nil)
	ship := f.shipment("EXP-1")
	before := f.snapshot()

	cases := []struct {
		name string
		run  func(actor domain.Actor) error
	}{
		{"moveLot", func(a domain.Actor) error {
			_, err := f.engine.MoveLot(f.ctx, a, dto.MoveLotRequest{LotID: l1, SrcCellID: f.c1, DstCellID: f.c2, Quantity: 1})
			return err
		}},
		{"adjustInventory", func(a domain.Actor) error {
			_, err := f.engine.AdjustInventory(f.ctx, a, dto.AdjustInventoryRequest{LotID: l1, CellID: f.c1, NewQuantity: 1, Comment: "x"})
			return err
		}},
		{"receiveLot", func(a domain.Actor) error {
			_, err := f.engine.ReceiveLot(f.ctx, a, dto.ReceiveLotRequest{
				VoucherID: f.reception, LotNumber: "L9", ProductID: f.p1, Quantity: 1,
				ProductionDate: *date(2025, 3, 1), CellID: f.c1,
			})
			return err
		}},
		{"prepareShipment", func(a domain.Actor) error {
			_, err := f.engine.PrepareShipment(f.ctx, a, dto.PrepareShipmentRequest{VoucherID: ship, ProductID: f.p1, Quantity: 1})
			return err
		}},
		{"validateShipment", func(a domain.Actor) error {
			_, err := f.engine.ValidateShipment(f.ctx, a, dto.VoucherRequest{VoucherID: ship})
			return err
		}},
		{"confirmDelivery", func(a domain.Actor) error {
			_, err := f.engine.ConfirmDelivery(f.ctx, a, dto.VoucherRequest{VoucherID: ship})
			return err
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			requireKind(t, tc.run(f.courier), domain.KindUnauthorized)
			requireKind(t, tc.run(domain.Actor{}), domain.KindUnauthorized)
		})
	}

	// El operador no puede ajustar ni validar.
	requireKind(t, cases[1].run(f.operator), domain.KindUnauthorized)
	requireKind(t, cases[4].run(f.operator), domain.KindUnauthorized)

	// Cargas inválidas de actores sin capacidad: la autorización va primero.
	_, err := f.engine.MoveLot(f.ctx, f.courier, dto.MoveLotRequest{LotID: l1, SrcCellID: f.c1, DstCellID: f.c1, Quantity: 0})
	requireKind(t, err, domain.KindUnauthorized)
	_, err = f.engine.AdjustInventory(f.ctx, f.operator, dto.AdjustInventoryRequest{LotID: l1, CellID: f.c1, NewQuantity: -1})
	requireKind(t, err, domain.KindUnauthorized)
	_, err = f.engine.ReceiveLot(f.ctx, f.courier, dto.ReceiveLotRequest{VoucherID: f.reception, ProductID: f.p1})
	requireKind(t, err, domain.KindUnauthorized)
	_, err = f.engine.PrepareShipment(f.ctx, domain.Actor{}, dto.PrepareShipmentRequest{VoucherID: ship, ProductID: f.p1, Quantity: -5})
	requireKind(t, err, domain.KindUnauthorized)

	after := f.snapshot()
	assert.Equal(t, before.placements, after.placements)
	assert.Len(t, after.movements, len(before.movements))
}

func TestEngine_ContextoCanceladoDevuelveCanceled(t *testing.T) {
	f := newFixture(t)
	l1 := f.receive("L1", 100, f.c1, nil)
	before := f.snapshot()

	ctx, cancel := context.WithCancel(f.ctx)
	cancel()
	_, err := f.engine.MoveLot(ctx, f.operator, dto.MoveLotRequest{LotID: l1, SrcCellID: f.c1, DstCellID: f.c2, Quantity: 10})
	requireKind(t, err, domain.KindCanceled)

	assert.Equal(t, before.placements, f.snapshot().placements)
}
