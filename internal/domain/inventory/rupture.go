package inventory

import (
	"sort"
	"time"

	"github.com/jhoicas/almacen-wms/internal/domain/entity"
)

// LastRupture recorre los movimientos de un producto (ordenados por timestamp) manteniendo el stock
// acumulado y devuelve el último instante en que quedó ≤ 0 tras un movimiento que lo altera.
// nil si nunca hubo ruptura.
func LastRupture(movements []*entity.Movement) *time.Time {
	var running int64
	var last *time.Time
	for _, m := range movements {
		delta := m.StockDelta()
		if delta == 0 {
			continue
		}
		running += delta
		if running <= 0 {
			ts := m.Timestamp
			last = &ts
		}
	}
	return last
}

// RuptureDay productos que cruzaron a stock ≤ 0 en un día calendario.
type RuptureDay struct {
	Date       time.Time `json:"date"`
	Count      int       `json:"count"`
	ProductIDs []int64   `json:"product_ids"`
}

// RuptureHistory cuenta, por día calendario de loc dentro de [start, end], los productos distintos
// cuyo stock acumulado pasó de > 0 a ≤ 0. byProduct lleva los movimientos de cada producto
// ordenados por timestamp. Solo se devuelven los días con al menos una ruptura, en orden.
func RuptureHistory(byProduct map[int64][]*entity.Movement, start, end time.Time, loc *time.Location) []RuptureDay {
	if loc == nil {
		loc = time.UTC
	}
	from, to := entity.DateOf(start.In(loc)), entity.DateOf(end.In(loc))
	days := make(map[time.Time]map[int64]struct{})
	for productID, movs := range byProduct {
		var running int64
		for _, m := range movs {
			delta := m.StockDelta()
			if delta == 0 {
				continue
			}
			prev := running
			running += delta
			if prev <= 0 || running > 0 {
				continue
			}
			day := entity.DateOf(m.Timestamp.In(loc))
			if day.Before(from) || day.After(to) {
				continue
			}
			if days[day] == nil {
				days[day] = make(map[int64]struct{})
			}
			days[day][productID] = struct{}{}
		}
	}

	out := make([]RuptureDay, 0, len(days))
	for day, products := range days {
		ids := make([]int64, 0, len(products))
		for id := range products {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		out = append(out, RuptureDay{Date: day, Count: len(ids), ProductIDs: ids})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
