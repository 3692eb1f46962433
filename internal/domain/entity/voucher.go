package entity

import "time"

// VoucherKind distingue bonos de recepción y de expedición.
type VoucherKind string

const (
	VoucherReception VoucherKind = "reception"
	VoucherShipment  VoucherKind = "shipment"
)

// Valid indica si el tipo de bono es reconocido.
func (k VoucherKind) Valid() bool {
	return k == VoucherReception || k == VoucherShipment
}

// ReceptionStatus ciclo de vida de un bono de recepción.
type ReceptionStatus string

const (
	ReceptionPending    ReceptionStatus = "pending"
	ReceptionInProgress ReceptionStatus = "inProgress"
	ReceptionCompleted  ReceptionStatus = "completed"
)

var receptionTransitions = map[ReceptionStatus][]ReceptionStatus{
	ReceptionPending:    {ReceptionInProgress},
	ReceptionInProgress: {ReceptionCompleted},
}

// CanTransitionTo valida una transición del bono de recepción.
func (s ReceptionStatus) CanTransitionTo(next ReceptionStatus) bool {
	for _, allowed := range receptionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AcceptsLots indica si todavía se pueden recibir lotes contra el bono.
func (s ReceptionStatus) AcceptsLots() bool {
	return s == ReceptionPending || s == ReceptionInProgress
}

// ExpectedLine cantidad esperada de un producto en una recepción.
type ExpectedLine struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

// ReceptionVoucher bono de recepción.
type ReceptionVoucher struct {
	ID            int64           `json:"id"`
	Reference     string          `json:"reference"`
	CreationDate  time.Time       `json:"creation_date"`
	PlannedDate   time.Time       `json:"planned_date"`
	Status        ReceptionStatus `json:"status"`
	ExpectedLines []ExpectedLine  `json:"expected_lines,omitempty"`
}

// ShipmentPriority prioridad de una expedición.
type ShipmentPriority string

const (
	PriorityNormal ShipmentPriority = "normal"
	PriorityHigh   ShipmentPriority = "high"
	PriorityUrgent ShipmentPriority = "urgent"
)

// Valid indica si la prioridad es reconocida.
func (p ShipmentPriority) Valid() bool {
	switch p {
	case PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// ShipmentStatus ciclo de vida de un bono de expedición.
type ShipmentStatus string

const (
	ShipmentPending    ShipmentStatus = "pending"
	ShipmentInProgress ShipmentStatus = "inProgress"
	ShipmentCompleted  ShipmentStatus = "completed"
	ShipmentDelivered  ShipmentStatus = "delivered"
	ShipmentCanceled   ShipmentStatus = "canceled"
)

var shipmentTransitions = map[ShipmentStatus][]ShipmentStatus{
	ShipmentPending:    {ShipmentInProgress, ShipmentCanceled},
	ShipmentInProgress: {ShipmentCompleted, ShipmentCanceled},
	ShipmentCompleted:  {ShipmentDelivered, ShipmentCanceled},
}

// CanTransitionTo valida una transición del bono de expedición.
func (s ShipmentStatus) CanTransitionTo(next ShipmentStatus) bool {
	for _, allowed := range shipmentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal indica si el bono ya no admite transiciones.
func (s ShipmentStatus) Terminal() bool {
	return s == ShipmentDelivered || s == ShipmentCanceled
}

// AcceptsPackages indica si todavía se pueden preparar colis contra el bono.
func (s ShipmentStatus) AcceptsPackages() bool {
	return s == ShipmentPending || s == ShipmentInProgress
}

// ShipmentVoucher bono de expedición.
type ShipmentVoucher struct {
	ID           int64            `json:"id"`
	Reference    string           `json:"reference"`
	CreationDate time.Time        `json:"creation_date"`
	PlannedDate  time.Time        `json:"planned_date"`
	Priority     ShipmentPriority `json:"priority"`
	Status       ShipmentStatus   `json:"status"`
}

// VoucherResponsible vínculo bono ↔ usuario responsable.
type VoucherResponsible struct {
	VoucherKind VoucherKind `json:"voucher_kind"`
	VoucherID   int64       `json:"voucher_id"`
	UserID      int64       `json:"user_id"`
	LinkedAt    time.Time   `json:"linked_at"`
}
