package command_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/almacen-wms/internal/application/authz"
	"github.com/jhoicas/almacen-wms/internal/application/catalog"
	"github.com/jhoicas/almacen-wms/internal/application/command"
	"github.com/jhoicas/almacen-wms/internal/application/inventory"
	"github.com/jhoicas/almacen-wms/internal/application/supervision"
	"github.com/jhoicas/almacen-wms/internal/domain"
	"github.com/jhoicas/almacen-wms/internal/domain/entity"
	"github.com/jhoicas/almacen-wms/internal/domain/repository"
	"github.com/jhoicas/almacen-wms/internal/infrastructure/memory"
)

type fixture struct {
	ctx        context.Context
	dispatcher *command.Dispatcher
	metrics    *command.Metrics
	supervisor int64
	operator   int64
}

func newFixture(t *testing.T, opts ...command.Option) *fixture {
	t.Helper()
	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store := memory.NewStore().WithClock(clock)
	guard := authz.NewGuard(store, authz.WithClock(clock, time.UTC))
	f := &fixture{ctx: context.Background(), metrics: command.NewMetrics(prometheus.NewRegistry())}

	require.NoError(t, store.Run(f.ctx, func(s repository.Stores) error {
		f.supervisor = seedUser(f.ctx, s, "sup@almacen.test", entity.RoleSupervisor)
		f.operator = seedUser(f.ctx, s, "op@almacen.test", entity.RoleOperator)
		return nil
	}))

	svc := command.Services{
		Guard:       guard,
		Engine:      inventory.NewEngine(store, guard, inventory.WithClock(clock, time.UTC)),
		Supervision: supervision.NewService(store, guard, supervision.WithClock(clock, time.UTC)),
		Catalog:     catalog.NewService(store, guard, zerolog.Nop()).WithClock(clock),
		Roles:       authz.NewRoleService(store, guard),
	}
	opts = append([]command.Option{command.WithMetrics(f.metrics)}, opts...)
	f.dispatcher = command.NewDispatcher(svc, opts...)
	return f
}

func seedUser(ctx context.Context, s repository.Stores, email string, kind entity.RoleKind) int64 {
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
	return u.ID
}

func (f *fixture) run(t *testing.T, name string, actor int64, payload string) command.Result {
	t.Helper()
	return f.dispatcher.Dispatch(f.ctx, command.Envelope{
		Command: name, ActorID: actor, OrganizationID: 1, Payload: json.RawMessage(payload),
	})
}

// dataAs vuelve a serializar Result.Data para leerlo como T.
func dataAs[T any](t *testing.T, res command.Result) T {
	t.Helper()
	require.True(t, res.OK, "comando fallido: %+v", res.Error)
	raw, err := json.Marshal(res.Data)
	require.NoError(t, err)
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

// ──────────────────────────────────────────────────────────────────────────────
// Sobre y errores
// ──────────────────────────────────────────────────────────────────────────────

func TestDispatch_ComandoDesconocido(t *testing.T) {
	f := newFixture(t)

	res := f.run(t, "inventory.teleport", f.operator, `{}`)
	assert.False(t, res.OK)
	require.NotNil(t, res.Error)
	assert.Equal(t, domain.KindNotFound, res.Error.Kind)
	assert.NotEmpty(t, res.RequestID, "se genera un requestId cuando falta")
}

func TestDispatch_ValidacionDeCarga(t *testing.T) {
	f := newFixture(t)

	// Caso 1: campo obligatorio ausente
	res := f.run(t, command.InventoryMoveLot, f.operator, `{"src_cell_id": 1, "dst_cell_id": 2, "quantity": 3}`)
	require.NotNil(t, res.Error)
	assert.Equal(t, domain.KindInvalidArgument, res.Error.Kind)
	fields, ok := res.Error.Details["fields"].(map[string]string)
	require.True(t, ok, "details: %#v", res.Error.Details)
	assert.Equal(t, "required", fields["lot_id"])

	// Caso 2: campo desconocido
	res = f.run(t, command.CatalogCreateWarehouse, f.supervisor, `{"name": "Sur", "color": "rojo"}`)
	require.NotNil(t, res.Error)
	assert.Equal(t, domain.KindInvalidArgument, res.Error.Kind)

	// Caso 3: JSON mal formado
	res = f.run(t, command.CatalogCreateWarehouse, f.supervisor, `{"name": `)
	require.NotNil(t, res.Error)
	assert.Equal(t, domain.KindInvalidArgument, res.Error.Kind)
}

func TestDispatch_AutorizaAntesDeValidar(t *testing.T) {
	f := newFixture(t)

	// Caso 1: el operador no tiene manageCatalog; la carga vacía no se llega a validar
	res := f.run(t, command.CatalogCreateWarehouse, f.operator, `{"name": ""}`)
	require.NotNil(t, res.Error)
	assert.Equal(t, domain.KindUnauthorized, res.Error.Kind)

	// Caso 2: JSON mal formado de un actor sin capacidad
	res = f.run(t, command.InventoryAdjust, f.operator, `{"lot_id": `)
	require.NotNil(t, res.Error)
	assert.Equal(t, domain.KindUnauthorized, res.Error.Kind)

	// Caso 3: actor sin asignaciones con carga inválida
	res = f.run(t, command.InventoryMoveLot, 999, `{"quantity": 0}`)
	require.NotNil(t, res.Error)
	assert.Equal(t, domain.KindUnauthorized, res.Error.Kind)

	// Caso 4: con la capacidad, la misma carga sí es inválida
	res = f.run(t, command.CatalogCreateWarehouse, f.supervisor, `{"name": ""}`)
	require.NotNil(t, res.Error)
	assert.Equal(t, domain.KindInvalidArgument, res.Error.Kind)
}

func TestDispatch_ErrorSerializaKind(t *testing.T) {
	f := newFixture(t)

	res := f.run(t, command.CatalogCreateWarehouse, f.operator, `{"name": "Sur"}`)
	raw, err := json.Marshal(res)
	require.NoError(t, err)

	var out struct {
		OK    bool           `json:"ok"`
		Error map[string]any `json:"error"`
	}
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.False(t, out.OK)
	assert.Equal(t, "unauthorized", out.Error["kind"])
	assert.NotContains(t, out.Error, "code")
	assert.NotEmpty(t, out.Error["message"])
}

func TestDispatch_ErrorInternoNoSeExpone(t *testing.T) {
	f := newFixture(t)
	f.dispatcher.Handle("debug.boom", func(context.Context, domain.Actor, json.RawMessage) (any, error) {
		return nil, errors.New("pq: relation \"lots\" does not exist")
	})

	res := f.run(t, "debug.boom", f.operator, ``)
	require.NotNil(t, res.Error)
	assert.Equal(t, domain.KindInternal, res.Error.Kind)
	assert.Equal(t, domain.ErrInternal.Message, res.Error.Message)
}

func TestDispatch_TimeoutEsCanceled(t *testing.T) {
	f := newFixture(t, command.WithTimeout(20*time.Millisecond))
	f.dispatcher.Handle("debug.slow", func(ctx context.Context, _ domain.Actor, _ json.RawMessage) (any, error) {
		<-ctx.Done()
		return nil, errors.New("conn closed")
	})

	res := f.run(t, "debug.slow", f.operator, ``)
	require.NotNil(t, res.Error)
	assert.Equal(t, domain.KindCanceled, res.Error.Kind)
}

func TestDispatch_RequestIDSeConserva(t *testing.T) {
	f := newFixture(t)

	res := f.dispatcher.Dispatch(f.ctx, command.Envelope{
		Command: command.SupEmptyCells, ActorID: f.operator, OrganizationID: 1, RequestID: "req-123",
	})
	assert.True(t, res.OK)
	assert.Equal(t, "req-123", res.RequestID)
}

// ──────────────────────────────────────────────────────────────────────────────
// Flujo completo por comandos
// ──────────────────────────────────────────────────────────────────────────────

func TestDispatch_FlujoRecepcionYExpedicion(t *testing.T) {
	f := newFixture(t)

	wh := dataAs[entity.Warehouse](t, f.run(t, command.CatalogCreateWarehouse, f.supervisor, `{"name": "Central", "max_capacity": 1000}`))
	cell := dataAs[entity.Cell](t, f.run(t, command.CatalogAddCell, f.supervisor,
		`{"warehouse_id": `+itoa(wh.ID)+`, "reference": "A1", "max_capacity": 100, "max_volume": "10000"}`))
	prod := dataAs[map[string]any](t, f.run(t, command.CatalogCreateProduct, f.supervisor,
		`{"reference": "P1", "name": "Caja", "kind": "material", "material": {"length": "1", "width": "1", "height": "2", "mass": "0.1"}}`))
	productID := int64(prod["id"].(float64))

	rec := dataAs[entity.ReceptionVoucher](t, f.run(t, command.ReceptionCreate, f.operator,
		`{"reference": "BR-1", "expected_lines": [{"product_id": `+itoa(productID)+`, "quantity": 30}]}`))
	res := f.run(t, command.ReceptionReceiveLot, f.operator, `{"voucher_id": `+itoa(rec.ID)+`, "lot_number": "L1", "product_id": `+
		itoa(productID)+`, "quantity": 30, "production_date": "2025-05-01", "expiration_date": "2025-12-31", "cell_id": `+itoa(cell.ID)+`}`)
	require.True(t, res.OK, "%+v", res.Error)
	closed := dataAs[entity.ReceptionVoucher](t, f.run(t, command.ReceptionClose, f.operator, `{"voucher_id": `+itoa(rec.ID)+`}`))
	assert.Equal(t, entity.ReceptionCompleted, closed.Status)

	sh := dataAs[entity.ShipmentVoucher](t, f.run(t, command.ShipmentCreate, f.operator, `{"reference": "BE-1", "priority": "urgent"}`))
	res = f.run(t, command.ShipmentPrepare, f.operator, `{"voucher_id": `+itoa(sh.ID)+`, "product_id": `+itoa(productID)+`, "quantity": 12}`)
	require.True(t, res.OK, "%+v", res.Error)

	// El operador no valida expediciones
	res = f.run(t, command.ShipmentValidate, f.operator, `{"voucher_id": `+itoa(sh.ID)+`}`)
	require.NotNil(t, res.Error)
	assert.Equal(t, domain.KindUnauthorized, res.Error.Kind)

	validated := dataAs[entity.ShipmentVoucher](t, f.run(t, command.ShipmentValidate, f.supervisor, `{"voucher_id": `+itoa(sh.ID)+`}`))
	assert.Equal(t, entity.ShipmentCompleted, validated.Status)
	for range 2 {
		delivered := dataAs[entity.ShipmentVoucher](t, f.run(t, command.ShipmentConfirmDelivery, f.supervisor, `{"voucher_id": `+itoa(sh.ID)+`}`))
		assert.Equal(t, entity.ShipmentDelivered, delivered.Status)
	}

	occ := dataAs[map[string]any](t, f.run(t, command.SupOccupancy, f.operator, `{"cell_id": `+itoa(cell.ID)+`}`))
	assert.Equal(t, float64(18), occ["quantity"])

	movs := dataAs[[]entity.Movement](t, f.run(t, command.ReportMovements, f.supervisor, `{"product_id": `+itoa(productID)+`}`))
	require.Len(t, movs, 2)
	assert.Equal(t, entity.MovementEntry, movs[0].Type)
	assert.Equal(t, entity.MovementExit, movs[1].Type)

	assert.Equal(t, float64(2), testutil.ToFloat64(f.metrics.Count(command.ShipmentConfirmDelivery, "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Count(command.ShipmentValidate, string(domain.KindUnauthorized))))
}

func TestDispatcher_RegistraTodosLosComandos(t *testing.T) {
	f := newFixture(t)

	assert.Len(t, f.dispatcher.Commands(), 36)
	assert.Contains(t, f.dispatcher.Commands(), command.ReportRuptureHistory)
	assert.Contains(t, f.dispatcher.Commands(), command.RolesRevoke)
}

func itoa(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}
