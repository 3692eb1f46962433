package entity

import "time"

// ExceptionKind tipo de incidencia sobre un bono.
type ExceptionKind string

const (
	ExceptionMissing  ExceptionKind = "missing"
	ExceptionDamaged  ExceptionKind = "damaged"
	ExceptionMismatch ExceptionKind = "mismatch"
	ExceptionOverflow ExceptionKind = "overflow"
	ExceptionExpired  ExceptionKind = "expired"
)

// Valid indica si el tipo de incidencia es reconocido.
func (k ExceptionKind) Valid() bool {
	switch k {
	case ExceptionMissing, ExceptionDamaged, ExceptionMismatch, ExceptionOverflow, ExceptionExpired:
		return true
	}
	return false
}

// ExceptionReport incidencia registrada contra un bono. Nunca se modifica; la resolución
// es un registro aparte (ExceptionResolution).
type ExceptionReport struct {
	ID               int64         `json:"id"`
	Kind             ExceptionKind `json:"kind"`
	Description      string        `json:"description"`
	Timestamp        time.Time     `json:"timestamp"`
	VoucherKind      VoucherKind   `json:"voucher_kind"`
	RelatedVoucherID int64         `json:"related_voucher_id"`
	ReportedBy       int64         `json:"reported_by"`
}

// ExceptionResolution cierre de una incidencia.
type ExceptionResolution struct {
	ReportID   int64     `json:"report_id"`
	ResolvedBy int64     `json:"resolved_by"`
	Note       string    `json:"note"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// ApprovRequest solicitud de aprovisionamiento de un producto para una organización.
type ApprovRequest struct {
	ID                  int64     `json:"id"`
	OrganizationID      int64     `json:"organization_id"`
	ProductID           int64     `json:"product_id"`
	Quantity            int64     `json:"quantity"`
	RequestDate         time.Time `json:"request_date"`
	PlannedDeliveryDate time.Time `json:"planned_delivery_date"`
}

// ExceptionEntry incidencia junto con su resolución, si existe.
type ExceptionEntry struct {
	Report     ExceptionReport      `json:"report"`
	Resolution *ExceptionResolution `json:"resolution,omitempty"`
}

// Resolved indica si la incidencia tiene resolución registrada.
func (e *ExceptionEntry) Resolved() bool { return e.Resolution != nil }
