// Package command expone todas las operaciones como comandos con nombre. Cada comando recibe un
// sobre JSON, valida su carga tipada, corre bajo un timeout y devuelve un resultado uniforme.
package command

import (
	"encoding/json"

	"github.com/jhoicas/almacen-wms/internal/domain"
)

// Envelope sobre de entrada de un comando.
type Envelope struct {
	Command        string          `json:"command"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	ActorID        int64           `json:"actorId"`
	OrganizationID int64           `json:"organizationId,omitempty"`
	RequestID      string          `json:"requestId,omitempty"`
}

// Result salida uniforme: ok con data, o error tipado.
type Result struct {
	OK        bool   `json:"ok"`
	Data      any    `json:"data,omitempty"`
	Error     *Error `json:"error,omitempty"`
	RequestID string `json:"requestId"`
}

// Error error de un comando: kind es uno de los domain.Kind.
type Error struct {
	Kind    domain.Kind    `json:"kind"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
