package entity

import "time"

// LotStatus estado de un lote.
type LotStatus string

const (
	LotActive   LotStatus = "active"
	LotConsumed LotStatus = "consumed"
	LotExpired  LotStatus = "expired"
)

// Lot lote de unidades idénticas con misma fecha de producción y caducidad.
// InitialQuantity no cambia tras la creación; AvailableQuantity es la suma de sus ubicaciones.
type Lot struct {
	ID                int64      `json:"id"`
	LotNumber         string     `json:"lot_number"`
	ProductID         int64      `json:"product_id"`
	InitialQuantity   int64      `json:"initial_quantity"`
	AvailableQuantity int64      `json:"available_quantity"`
	ProductionDate    time.Time  `json:"production_date"`
	ExpirationDate    *time.Time `json:"expiration_date,omitempty"` // nil = no caduca
	Status            LotStatus  `json:"status"`
	CreatedAt         time.Time  `json:"created_at"`
}

// ExpiredAt indica si el lote está caducado en el día de today (la caducidad es inclusiva:
// un lote que caduca hoy todavía se puede usar).
func (l *Lot) ExpiredAt(today time.Time) bool {
	if l.ExpirationDate == nil {
		return false
	}
	return DateOf(*l.ExpirationDate).Before(DateOf(today))
}

// StatusFor recalcula el estado tras una mutación de cantidad.
func (l *Lot) StatusFor(available int64) LotStatus {
	if l.Status == LotExpired {
		return LotExpired
	}
	if available == 0 {
		return LotConsumed
	}
	return LotActive
}

// Placement (Stocker) cantidad de un lote guardada en una celda. Clave compuesta (LotID, CellID).
type Placement struct {
	LotID        int64     `json:"lot_id"`
	CellID       int64     `json:"cell_id"`
	Quantity     int64     `json:"quantity"`
	StockageDate time.Time `json:"stockage_date"`
}

// PlacementKey clave compuesta de una ubicación.
type PlacementKey struct {
	LotID  int64
	CellID int64
}

// Key devuelve la clave compuesta.
func (p *Placement) Key() PlacementKey { return PlacementKey{LotID: p.LotID, CellID: p.CellID} }

// DateOf devuelve el día calendario de t (en la zona de t) como medianoche UTC,
// para poder comparar fechas de zonas distintas sin que la hora interfiera.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
