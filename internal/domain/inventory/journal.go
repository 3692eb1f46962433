package inventory

import "github.com/jhoicas/almacen-wms/internal/domain/entity"

// Replay reconstruye las ubicaciones sumando el efecto de cada movimiento en orden.
// Las claves con cantidad cero no aparecen en el resultado.
func Replay(movements []*entity.Movement) map[entity.PlacementKey]int64 {
	out := make(map[entity.PlacementKey]int64)
	for _, m := range movements {
		for _, e := range m.Effects() {
			out[e.Key] += e.Delta
			if out[e.Key] == 0 {
				delete(out, e.Key)
			}
		}
	}
	return out
}

// StockOf stock total de un producto según el diario.
func StockOf(movements []*entity.Movement) int64 {
	var total int64
	for _, m := range movements {
		total += m.StockDelta()
	}
	return total
}
