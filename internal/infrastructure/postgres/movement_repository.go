package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/almacen-wms/internal/domain"
	"github.com/jhoicas/almacen-wms/internal/domain/entity"
	"github.com/jhoicas/almacen-wms/internal/domain/repository"
)

var (
	_ repository.MovementRepository  = (*MovementRepo)(nil)
	_ repository.ExceptionRepository = (*ExceptionRepo)(nil)
)

// MovementRepo diario de movimientos (append-only) sobre PostgreSQL.
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

// Append registra el movimiento y asigna ID.
func (r *MovementRepo) Append(ctx context.Context, m *entity.Movement) error {
	var voucherKind *string
	if m.VoucherKind != "" {
		kind := string(m.VoucherKind)
		voucherKind = &kind
	}
	err := r.q.QueryRow(ctx, `
		INSERT INTO movements (product_id, lot_id, from_cell_id, to_cell_id, type, quantity, ts,
		                       responsible_user_id, voucher_kind, voucher_id, comment)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		m.ProductID, m.LotID, m.FromCellID, m.ToCellID, string(m.Type), m.Quantity, m.Timestamp,
		m.ResponsibleUserID, voucherKind, m.VoucherID, m.Comment,
	).Scan(&m.ID)
	return classify("insert movement", err)
}

// List devuelve los movimientos que cumplen el filtro ordenados por timestamp e id.
func (r *MovementRepo) List(ctx context.Context, f repository.MovementFilter) ([]*entity.Movement, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.ProductID != nil {
		add("product_id = $%d", *f.ProductID)
	}
	if f.LotID != nil {
		add("lot_id = $%d", *f.LotID)
	}
	if f.From != nil {
		add("ts >= $%d", *f.From)
	}
	if f.To != nil {
		add("ts < $%d", *f.To)
	}

	query := `
		SELECT id, product_id, lot_id, from_cell_id, to_cell_id, type, quantity, ts,
		       responsible_user_id, voucher_kind, voucher_id, comment
		FROM movements`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY ts, id"

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, classify("list movements", err)
	}
	defer rows.Close()
	var list []*entity.Movement
	for rows.Next() {
		var (
			m           entity.Movement
			typ         string
			voucherKind *string
		)
		if err := rows.Scan(&m.ID, &m.ProductID, &m.LotID, &m.FromCellID, &m.ToCellID, &typ, &m.Quantity,
			&m.Timestamp, &m.ResponsibleUserID, &voucherKind, &m.VoucherID, &m.Comment); err != nil {
			return nil, classify("scan movement", err)
		}
		m.Type = entity.MovementType(typ)
		if voucherKind != nil {
			m.VoucherKind = entity.VoucherKind(*voucherKind)
		}
		list = append(list, &m)
	}
	return list, classify("list movements", rows.Err())
}

// ExceptionRepo incidencias y resoluciones (ambas append-only).
type ExceptionRepo struct {
	q Querier
}

// NewExceptionRepository construye el adaptador. Pasar pool o tx (Querier).
func NewExceptionRepository(q Querier) *ExceptionRepo {
	return &ExceptionRepo{q: q}
}

const selectException = `
	SELECT e.id, e.kind, e.description, e.ts, e.voucher_kind, e.related_voucher_id, e.reported_by,
	       r.resolved_by, r.note, r.resolved_at
	FROM exception_reports e
	LEFT JOIN exception_resolutions r ON r.report_id = e.id`

func scanException(row interface{ Scan(dest ...any) error }) (*entity.ExceptionEntry, error) {
	var (
		e                 entity.ExceptionEntry
		kind, voucherKind string
		resolvedBy        *int64
		note              *string
		resolvedAt        *time.Time
	)
	err := row.Scan(&e.Report.ID, &kind, &e.Report.Description, &e.Report.Timestamp, &voucherKind,
		&e.Report.RelatedVoucherID, &e.Report.ReportedBy, &resolvedBy, &note, &resolvedAt)
	if err != nil {
		return nil, err
	}
	e.Report.Kind = entity.ExceptionKind(kind)
	e.Report.VoucherKind = entity.VoucherKind(voucherKind)
	if resolvedBy != nil {
		res := entity.ExceptionResolution{ReportID: e.Report.ID, ResolvedBy: *resolvedBy}
		if note != nil {
			res.Note = *note
		}
		if resolvedAt != nil {
			res.ResolvedAt = *resolvedAt
		}
		e.Resolution = &res
	}
	return &e, nil
}

// Append registra la incidencia y asigna ID.
func (r *ExceptionRepo) Append(ctx context.Context, e *entity.ExceptionReport) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO exception_reports (kind, description, ts, voucher_kind, related_voucher_id, reported_by)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		string(e.Kind), e.Description, e.Timestamp, string(e.VoucherKind), e.RelatedVoucherID, e.ReportedBy,
	).Scan(&e.ID)
	return classify("insert exception report", err)
}

// GetByID obtiene la incidencia con su resolución. Devuelve (nil, nil) si no existe.
func (r *ExceptionRepo) GetByID(ctx context.Context, id int64) (*entity.ExceptionEntry, error) {
	e, err := scanException(r.q.QueryRow(ctx, selectException+` WHERE e.id = $1`, id))
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, classify("get exception report", err)
	}
	return e, nil
}

// Resolve registra la resolución; domain.ErrDuplicate si ya existía.
func (r *ExceptionRepo) Resolve(ctx context.Context, res *entity.ExceptionResolution) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO exception_resolutions (report_id, resolved_by, note, resolved_at)
		VALUES ($1, $2, $3, $4)`,
		res.ReportID, res.ResolvedBy, res.Note, res.ResolvedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return classify("insert exception resolution", err)
	}
	return nil
}

// CountUnresolved cuenta las incidencias del bono sin resolución.
func (r *ExceptionRepo) CountUnresolved(ctx context.Context, kind entity.VoucherKind, voucherID int64) (int, error) {
	var n int64
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*) FROM exception_reports e
		WHERE e.voucher_kind = $1 AND e.related_voucher_id = $2
		  AND NOT EXISTS (SELECT 1 FROM exception_resolutions r WHERE r.report_id = e.id)`,
		string(kind), voucherID,
	).Scan(&n)
	if err != nil {
		return 0, classify("count unresolved exceptions", err)
	}
	return int(n), nil
}

// List devuelve todas las incidencias ordenadas por id.
func (r *ExceptionRepo) List(ctx context.Context) ([]*entity.ExceptionEntry, error) {
	rows, err := r.q.Query(ctx, selectException+` ORDER BY e.id`)
	if err != nil {
		return nil, classify("list exception reports", err)
	}
	defer rows.Close()
	var list []*entity.ExceptionEntry
	for rows.Next() {
		e, err := scanException(rows)
		if err != nil {
			return nil, classify("scan exception report", err)
		}
		list = append(list, e)
	}
	return list, classify("list exception reports", rows.Err())
}
