package dto

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// DateLayout formato de fecha civil en las entradas.
const DateLayout = "2006-01-02"

// Date fecha civil (YYYY-MM-DD). También acepta RFC 3339 y se queda con el día.
type Date struct {
	time.Time
}

// NewDate construye una Date a partir del día de t.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate interpreta una fecha en DateLayout o RFC 3339.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return Date{Time: t}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, fmt.Errorf("fecha inválida %q: use %s", s, DateLayout)
	}
	return NewDate(t), nil
}

// UnmarshalJSON implementa json.Unmarshaler.
func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("fecha inválida: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON implementa json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(DateLayout))
}

// Ptr devuelve el instante o nil si la fecha es nil o vacía.
func (d *Date) Ptr() *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

// IDRequest entrada genérica con un identificador.
type IDRequest struct {
	ID int64 `json:"id" validate:"required,gt=0"`
}

// VoucherRequest entrada para operaciones sobre un bono.
type VoucherRequest struct {
	VoucherID int64 `json:"voucher_id" validate:"required,gt=0"`
}
