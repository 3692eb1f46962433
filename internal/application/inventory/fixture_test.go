package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/almacen-wms/internal/application/authz"
	"github.com/jhoicas/almacen-wms/internal/application/dto"
	"github.com/jhoicas/almacen-wms/internal/application/inventory"
	"github.com/jhoicas/almacen-wms/internal/domain"
	"github.com/jhoicas/almacen-wms/internal/domain/entity"
	stock "github.com/jhoicas/almacen-wms/internal/domain/inventory"
	"github.com/jhoicas/almacen-wms/internal/domain/repository"
	"github.com/jhoicas/almacen-wms/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fixture: almacén con dos celdas, un producto material de volumen 5 y un producto software
// ──────────────────────────────────────────────────────────────────────────────

var now = time.Date(2025, 4, 1, 9, 30, 0, 0, time.UTC)

type fixture struct {
	t          *testing.T
	ctx        context.Context
	store      *memory.Store
	engine     *inventory.Engine
	operator   domain.Actor
	supervisor domain.Actor
	courier    domain.Actor
	warehouse  int64
	c1, c2     int64
	p1         int64 // material, 1x1x5 cm = 5 cm³
	software   int64
	reception  int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{t: t, ctx: context.Background()}
	clock := func() time.Time { return now }
	f.store = memory.NewStore().WithClock(clock)
	guard := authz.NewGuard(f.store, authz.WithClock(clock, time.UTC))
	f.engine = inventory.NewEngine(f.store, guard, inventory.WithClock(clock, time.UTC))

	err := f.store.Run(f.ctx, func(s repository.Stores) error {
		wh := &entity.Warehouse{Name: "Central", MaxCapacity: 10000}
		if err := s.Warehouses.Create(f.ctx, wh); err != nil {
			return err
		}
		f.warehouse = wh.ID
		c1 := &entity.Cell{
			WarehouseID: wh.ID, Reference: "C1", MaxCapacity: 500,
			MaxVolume: decimal.NewFromInt(10000), MaxMass: decimal.NewFromInt(1000), Status: entity.CellActive,
		}
		c2 := &entity.Cell{
			WarehouseID: wh.ID, Reference: "C2", MaxCapacity: 100,
			MaxVolume: decimal.NewFromInt(1000), MaxMass: decimal.NewFromInt(1000), Status: entity.CellActive,
		}
		for _, c := range []*entity.Cell{c1, c2} {
			if err := s.Cells.Add(f.ctx, c); err != nil {
				return err
			}
		}
		f.c1, f.c2 = c1.ID, c2.ID

		p1 := &entity.Product{
			Reference: "P1", Name: "Caja pequeña",
			Spec: entity.NewMaterialSpec(decimal.NewFromInt(1), decimal.NewFromInt(1), decimal.NewFromInt(5), decimal.RequireFromString("0.2")),
		}
		sw := &entity.Product{
			Reference: "SW1", Name: "Licencia ERP",
			Spec: entity.SoftwareSpec{Version: "1.0", LicenseType: "perpetua"},
		}
		for _, p := range []*entity.Product{p1, sw} {
			if err := s.Products.Create(f.ctx, p); err != nil {
				return err
			}
		}
		f.p1, f.software = p1.ID, sw.ID

		f.operator = seedActor(f.ctx, s, "operador@almacen.test", entity.RoleOperator)
		f.supervisor = seedActor(f.ctx, s, "supervisor@almacen.test", entity.RoleSupervisor)
		f.courier = seedActor(f.ctx, s, "mensajero@almacen.test", entity.RoleCourier)

		rec := &entity.ReceptionVoucher{Reference: "BR-1", CreationDate: now, PlannedDate: now, Status: entity.ReceptionPending}
		if err := s.Receptions.Create(f.ctx, rec); err != nil {
			return err
		}
		f.reception = rec.ID
		return nil
	})
	require.NoError(t, err)
	return f
}

func seedActor(ctx context.Context, s repository.Stores, email string, kind entity.RoleKind) domain.Actor {
	u := &entity.User{Name: string(kind), Email: email, PasswordHash: "x"}
	if err := s.Users.Create(ctx, u); err != nil {
		panic(err)
	}
	r := &entity.Role{Label: string(kind), Kind: kind}
	if err := s.Roles.CreateRole(ctx, r); err != nil {
		panic(err)
	}
	if err := s.Roles.Assign(ctx, &entity.RoleAssignment{
		UserID: u.ID, RoleID: r.ID, OrganizationID: 1, Active: true,
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		panic(err)
	}
	return domain.Actor{UserID: u.ID, OrganizationID: 1}
}

func date(y int, m time.Month, d int) *dto.Date {
	v := dto.NewDate(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
	return &v
}

// receive recibe un lote en una celda contra el bono de la fixture.
func (f *fixture) receive(number string, qty int64, cellID int64, exp *dto.Date) int64 {
	f.t.Helper()
	res, err := f.engine.ReceiveLot(f.ctx, f.operator, dto.ReceiveLotRequest{
		VoucherID:      f.reception,
		LotNumber:      number,
		ProductID:      f.p1,
		Quantity:       qty,
		ProductionDate: *date(2025, 3, 1),
		ExpirationDate: exp,
		CellID:         cellID,
	})
	require.NoError(f.t, err)
	return res.LotID
}

func (f *fixture) shipment(ref string) int64 {
	f.t.Helper()
	v, err := f.engine.CreateShipment(f.ctx, f.operator, dto.CreateShipmentRequest{Reference: ref})
	require.NoError(f.t, err)
	return v.ID
}

func (f *fixture) setCellStatus(cellID int64, status entity.CellStatus) {
	f.t.Helper()
	require.NoError(f.t, f.store.Run(f.ctx, func(s repository.Stores) error {
		c, err := s.Cells.GetByID(f.ctx, cellID)
		if err != nil {
			return err
		}
		c.Status = status
		return s.Cells.Update(f.ctx, c)
	}))
}

// snapshot estado observable para comparar antes y después de un comando.
type snapshot struct {
	lots       []*entity.Lot
	placements []*entity.Placement
	movements  []*entity.Movement
	loads      map[int64]entity.CellLoad
}

func (f *fixture) snapshot() snapshot {
	f.t.Helper()
	var snap snapshot
	require.NoError(f.t, f.store.View(f.ctx, func(s repository.Stores) error {
		var err error
		if snap.lots, err = s.Lots.List(f.ctx); err != nil {
			return err
		}
		if snap.placements, err = s.Placements.List(f.ctx); err != nil {
			return err
		}
		if snap.movements, err = s.Movements.List(f.ctx, repository.MovementFilter{}); err != nil {
			return err
		}
		snap.loads, err = s.Placements.CellLoads(f.ctx, []int64{f.c1, f.c2})
		return err
	}))
	return snap
}

func (snap snapshot) placement(lotID, cellID int64) int64 {
	for _, p := range snap.placements {
		if p.LotID == lotID && p.CellID == cellID {
			return p.Quantity
		}
	}
	return 0
}

func (snap snapshot) lot(id int64) *entity.Lot {
	for _, l := range snap.lots {
		if l.ID == id {
			return l
		}
	}
	return nil
}

// checkInvariants disponible del lote = suma de ubicaciones, límites de celda respetados y
// el diario reproduce exactamente las ubicaciones actuales.
func (f *fixture) checkInvariants() {
	f.t.Helper()
	snap := f.snapshot()
	sums := map[int64]int64{}
	current := map[entity.PlacementKey]int64{}
	for _, p := range snap.placements {
		sums[p.LotID] += p.Quantity
		current[p.Key()] = p.Quantity
	}
	for _, l := range snap.lots {
		require.Equal(f.t, sums[l.ID], l.AvailableQuantity, "lote %d: disponible distinto de la suma de ubicaciones", l.ID)
	}
	require.LessOrEqual(f.t, snap.loads[f.c1].Quantity, int64(500))
	require.LessOrEqual(f.t, snap.loads[f.c2].Quantity, int64(100))
	require.True(f.t, snap.loads[f.c1].Volume.LessThanOrEqual(decimal.NewFromInt(10000)))
	require.True(f.t, snap.loads[f.c2].Volume.LessThanOrEqual(decimal.NewFromInt(1000)))
	require.Equal(f.t, current, stock.Replay(snap.movements), "el diario no reproduce las ubicaciones")
}
