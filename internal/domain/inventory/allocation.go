package inventory

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/almacen-wms/internal/domain"
	"github.com/jhoicas/almacen-wms/internal/domain/entity"
)

// Policy política de selección de lotes para una expedición.
type Policy string

const (
	PolicyFEFO Policy = "FEFO" // primero en caducar, primero en salir; empate por id de lote
	PolicyFIFO Policy = "FIFO" // por id de lote
)

// ParsePolicy interpreta la política configurada (sin distinguir mayúsculas).
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToUpper(strings.TrimSpace(s))) {
	case PolicyFEFO, "":
		return PolicyFEFO, nil
	case PolicyFIFO:
		return PolicyFIFO, nil
	}
	return "", domain.Invalid("política de asignación desconocida: %q", s)
}

// Slice porción de un lote tomada de una celda concreta.
type Slice struct {
	LotID    int64 `json:"lot_id"`
	CellID   int64 `json:"cell_id"`
	Quantity int64 `json:"quantity"`
}

// AllocationRequest datos de entrada de PlanAllocation. Occupancy es el ratio de ocupación por celda.
type AllocationRequest struct {
	Policy     Policy
	Lots       []*entity.Lot
	Placements []*entity.Placement
	Occupancy  map[int64]decimal.Decimal
	Quantity   int64
	Today      time.Time
}

// PlanAllocation reparte Quantity unidades entre los lotes elegibles (activos y no caducados).
// Dentro de cada lote consume primero las celdas más ocupadas (empate: menor id de celda).
// Si el total disponible no alcanza devuelve insufficientStock y ninguna porción.
func PlanAllocation(req AllocationRequest) ([]Slice, error) {
	if req.Quantity <= 0 {
		return nil, domain.Invalid("la cantidad debe ser positiva")
	}
	lots := make([]*entity.Lot, 0, len(req.Lots))
	for _, l := range req.Lots {
		if l.Status != entity.LotActive || l.ExpiredAt(req.Today) {
			continue
		}
		lots = append(lots, l)
	}
	sortLots(req.Policy, lots)

	byLot := make(map[int64][]*entity.Placement, len(lots))
	for _, p := range req.Placements {
		if p.Quantity > 0 {
			byLot[p.LotID] = append(byLot[p.LotID], p)
		}
	}

	var total int64
	for _, l := range lots {
		for _, p := range byLot[l.ID] {
			total += p.Quantity
		}
	}
	if total < req.Quantity {
		return nil, domain.Insufficient("stock insuficiente: solicitado %d, disponible %d", req.Quantity, total).
			With("requested", req.Quantity).
			With("available", total)
	}

	remaining := req.Quantity
	var slices []Slice
	for _, l := range lots {
		if remaining == 0 {
			break
		}
		places := byLot[l.ID]
		sort.SliceStable(places, func(i, j int) bool {
			oi, oj := req.Occupancy[places[i].CellID], req.Occupancy[places[j].CellID]
			if !oi.Equal(oj) {
				return oi.GreaterThan(oj)
			}
			return places[i].CellID < places[j].CellID
		})
		for _, p := range places {
			if remaining == 0 {
				break
			}
			take := min(p.Quantity, remaining)
			slices = append(slices, Slice{LotID: l.ID, CellID: p.CellID, Quantity: take})
			remaining -= take
		}
	}
	return slices, nil
}

func sortLots(policy Policy, lots []*entity.Lot) {
	sort.SliceStable(lots, func(i, j int) bool {
		if policy == PolicyFEFO {
			ei, ej := lots[i].ExpirationDate, lots[j].ExpirationDate
			switch {
			case ei != nil && ej != nil && !ei.Equal(*ej):
				return ei.Before(*ej)
			case ei != nil && ej == nil:
				// Los lotes sin caducidad van al final.
				return true
			case ei == nil && ej != nil:
				return false
			}
		}
		return lots[i].ID < lots[j].ID
	})
}
