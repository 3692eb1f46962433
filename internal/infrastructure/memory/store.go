// Package memory implementa los repositorios en memoria con la misma semántica transaccional
// que PostgreSQL: cada Run trabaja sobre una copia del estado y solo la publica si fn termina sin error.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/jhoicas/almacen-wms/internal/domain/entity"
	"github.com/jhoicas/almacen-wms/internal/domain/repository"
)

var _ repository.TxRunner = (*Store)(nil)

type assignmentKey struct {
	UserID, RoleID, OrganizationID int64
}

type state struct {
	ids          map[string]int64
	products     map[int64]entity.Product
	warehouses   map[int64]entity.Warehouse
	cells        map[int64]entity.Cell
	lots         map[int64]entity.Lot
	placements   map[entity.PlacementKey]entity.Placement
	packages     map[int64]entity.Package
	contents     map[int64]entity.PackageContent
	recPackages  map[int64][]int64
	shipPackages map[int64][]int64
	receptions   map[int64]entity.ReceptionVoucher
	shipments    map[int64]entity.ShipmentVoucher
	responsibles []entity.VoucherResponsible
	movements    []entity.Movement
	exceptions   map[int64]entity.ExceptionReport
	resolutions  map[int64]entity.ExceptionResolution
	users        map[int64]entity.User
	roles        map[int64]entity.Role
	assignments  map[assignmentKey]entity.RoleAssignment
	approvs      map[int64]entity.ApprovRequest
}

func newState() state {
	return state{
		ids:          map[string]int64{},
		products:     map[int64]entity.Product{},
		warehouses:   map[int64]entity.Warehouse{},
		cells:        map[int64]entity.Cell{},
		lots:         map[int64]entity.Lot{},
		placements:   map[entity.PlacementKey]entity.Placement{},
		packages:     map[int64]entity.Package{},
		contents:     map[int64]entity.PackageContent{},
		recPackages:  map[int64][]int64{},
		shipPackages: map[int64][]int64{},
		receptions:   map[int64]entity.ReceptionVoucher{},
		shipments:    map[int64]entity.ShipmentVoucher{},
		exceptions:   map[int64]entity.ExceptionReport{},
		resolutions:  map[int64]entity.ExceptionResolution{},
		users:        map[int64]entity.User{},
		roles:        map[int64]entity.Role{},
		assignments:  map[assignmentKey]entity.RoleAssignment{},
		approvs:      map[int64]entity.ApprovRequest{},
	}
}

func cloneLinks(in map[int64][]int64) map[int64][]int64 {
	out := make(map[int64][]int64, len(in))
	for k, v := range in {
		out[k] = slices.Clone(v)
	}
	return out
}

func (s state) clone() state {
	return state{
		ids:          maps.Clone(s.ids),
		products:     maps.Clone(s.products),
		warehouses:   maps.Clone(s.warehouses),
		cells:        maps.Clone(s.cells),
		lots:         maps.Clone(s.lots),
		placements:   maps.Clone(s.placements),
		packages:     maps.Clone(s.packages),
		contents:     maps.Clone(s.contents),
		recPackages:  cloneLinks(s.recPackages),
		shipPackages: cloneLinks(s.shipPackages),
		receptions:   maps.Clone(s.receptions),
		shipments:    maps.Clone(s.shipments),
		responsibles: slices.Clone(s.responsibles),
		movements:    slices.Clone(s.movements),
		exceptions:   maps.Clone(s.exceptions),
		resolutions:  maps.Clone(s.resolutions),
		users:        maps.Clone(s.users),
		roles:        maps.Clone(s.roles),
		assignments:  maps.Clone(s.assignments),
		approvs:      maps.Clone(s.approvs),
	}
}

func (s *state) nextID(table string) int64 {
	s.ids[table]++
	return s.ids[table]
}

// Store almacén en memoria. Las transacciones de escritura se serializan con un mutex,
// equivalente a un aislamiento serializable.
type Store struct {
	mu    sync.RWMutex
	state state
	now   func() time.Time
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{state: newState(), now: time.Now}
}

// WithClock fija el reloj usado para las fechas de creación.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Run ejecuta fn sobre una copia del estado y la publica solo si fn y el contexto terminan sin error.
func (s *Store) Run(ctx context.Context, fn func(repository.Stores) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.state.clone()
	if err := fn(stores(&work, s.now)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = work
	return nil
}

// View ejecuta fn sobre una instantánea; los cambios que intente se descartan.
func (s *Store) View(ctx context.Context, fn func(repository.Stores) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return fn(stores(&snapshot, s.now))
}

func stores(st *state, now func() time.Time) repository.Stores {
	return repository.Stores{
		Products:   &productRepo{st: st, now: now},
		Warehouses: &warehouseRepo{st: st, now: now},
		Cells:      &cellRepo{st: st},
		Lots:       &lotRepo{st: st},
		Placements: &placementRepo{st: st},
		Packages:   &packageRepo{st: st},
		Receptions: &receptionRepo{st: st},
		Shipments:  &shipmentRepo{st: st},
		Movements:  &movementRepo{st: st},
		Exceptions: &exceptionRepo{st: st},
		Users:      &userRepo{st: st, now: now},
		Roles:      &roleRepo{st: st},
		Approvs:    &approvRepo{st: st},
	}
}

func sortedIDs[V any](m map[int64]V) []int64 {
	ids := slices.Collect(maps.Keys(m))
	slices.Sort(ids)
	return ids
}
