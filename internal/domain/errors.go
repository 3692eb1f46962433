package domain

import (
	"context"
	"errors"
	"fmt"
)

// Kind clasifica los errores que la superficie de comandos expone de forma uniforme.
type Kind string

const (
	KindNotFound          Kind = "notFound"
	KindInvalidArgument   Kind = "invalidArgument"
	KindPrecondition      Kind = "precondition"
	KindConflict          Kind = "conflict"
	KindInsufficientStock Kind = "insufficientStock"
	KindUnauthorized      Kind = "unauthorized"
	KindCanceled          Kind = "canceled"
	KindInternal          Kind = "internal"
)

// Error es un error de dominio tipado. Details lleva datos estructurados para la UI
// (cantidades disponibles, ids, capacidad restante...).
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	return e.Message
}

// Is compara por Kind, de modo que errors.Is(err, domain.ErrPrecondition) funciona
// con cualquier error de precondición, tenga el mensaje que tenga.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// With devuelve una copia del error con un detalle adicional.
func (e *Error) With(key string, value any) *Error {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &Error{Kind: e.Kind, Message: e.Message, Details: details}
}

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = &Error{Kind: KindNotFound, Message: "recurso no encontrado"}
	ErrUserNotFound       = &Error{Kind: KindNotFound, Message: "usuario no encontrado"}
	ErrInvalidInput       = &Error{Kind: KindInvalidArgument, Message: "entrada inválida"}
	ErrPrecondition       = &Error{Kind: KindPrecondition, Message: "precondición no satisfecha"}
	ErrDuplicate          = &Error{Kind: KindConflict, Message: "recurso duplicado"}
	ErrEmailAlreadyExists = &Error{Kind: KindConflict, Message: "el email ya está registrado"}
	ErrConflict           = &Error{Kind: KindConflict, Message: "conflicto con el estado actual, reintente"}
	ErrInsufficientStock  = &Error{Kind: KindInsufficientStock, Message: "stock insuficiente"}
	ErrUnauthorized       = &Error{Kind: KindUnauthorized, Message: "no autorizado"}
	ErrCanceled           = &Error{Kind: KindCanceled, Message: "operación cancelada"}
	ErrInternal           = &Error{Kind: KindInternal, Message: "error interno"}
)

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NotFound construye un error notFound con mensaje propio.
func NotFound(format string, args ...any) *Error { return newf(KindNotFound, format, args...) }

// Invalid construye un error invalidArgument.
func Invalid(format string, args ...any) *Error { return newf(KindInvalidArgument, format, args...) }

// Precondition construye un error de precondición (estado, capacidad, volumen...).
func Precondition(format string, args ...any) *Error {
	return newf(KindPrecondition, format, args...)
}

// Conflict construye un error de conflicto (modificación concurrente, duplicados).
func Conflict(format string, args ...any) *Error { return newf(KindConflict, format, args...) }

// Insufficient construye un error insufficientStock.
func Insufficient(format string, args ...any) *Error {
	return newf(KindInsufficientStock, format, args...)
}

// Unauthorized construye un error unauthorized.
func Unauthorized(format string, args ...any) *Error {
	return newf(KindUnauthorized, format, args...)
}

// KindOf devuelve la clase de un error. Los errores de contexto son canceled;
// cualquier error no tipado se considera internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCanceled
	}
	return KindInternal
}

// AsError normaliza cualquier error a *Error. Los internos pierden el mensaje original
// (se registra en el log, no se expone).
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	switch KindOf(err) {
	case KindCanceled:
		return ErrCanceled
	default:
		return ErrInternal
	}
}
