package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/almacen-wms/internal/domain"
)

// Querier es lo común entre *pgxpool.Pool y pgx.Tx; los repositorios aceptan cualquiera de los dos.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Códigos SQLSTATE que usan los procedimientos y las restricciones del esquema.
const (
	codeUniqueViolation      = "23505"
	codeCheckViolation       = "23514"
	codeForeignKeyViolation  = "23503"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeNoDataFound          = "P0002"
	codeInvalidArgument      = "22023"
)

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == codeUniqueViolation
	}
	return strings.Contains(err.Error(), codeUniqueViolation)
}

// classify traduce errores de pgx a errores de dominio. op describe la operación para el log.
// Los errores que no encajan en ninguna clase se envuelven y acaban como internal.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrCanceled
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected:
			return domain.ErrConflict.With("sqlstate", pgErr.Code)
		case codeUniqueViolation:
			return domain.ErrDuplicate.With("constraint", pgErr.ConstraintName)
		case codeCheckViolation:
			return domain.Precondition("%s", pgErr.Message).With("constraint", pgErr.ConstraintName)
		case codeNoDataFound, codeForeignKeyViolation:
			return domain.NotFound("%s", notFoundMessage(pgErr))
		case codeInvalidArgument:
			return domain.Invalid("%s", pgErr.Message)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func notFoundMessage(pgErr *pgconn.PgError) string {
	if pgErr.Code == codeForeignKeyViolation {
		return "referencia inexistente: " + pgErr.ConstraintName
	}
	return pgErr.Message
}

// noRows indica que una consulta de una fila no devolvió nada.
func noRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
