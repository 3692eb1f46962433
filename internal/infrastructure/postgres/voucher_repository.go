package postgres

import (
	"context"
	"time"

	"github.com/jhoicas/almacen-wms/internal/domain"
	"github.com/jhoicas/almacen-wms/internal/domain/entity"
	"github.com/jhoicas/almacen-wms/internal/domain/repository"
)

var (
	_ repository.ReceptionRepository = (*ReceptionRepo)(nil)
	_ repository.ShipmentRepository  = (*ShipmentRepo)(nil)
)

// ReceptionRepo implementación del puerto ReceptionRepository.
type ReceptionRepo struct {
	q Querier
}

// NewReceptionRepository construye el adaptador. Acepta pool o tx (Querier).
func NewReceptionRepository(q Querier) *ReceptionRepo {
	return &ReceptionRepo{q: q}
}

// Create persiste el bono y sus líneas esperadas.
func (r *ReceptionRepo) Create(ctx context.Context, v *entity.ReceptionVoucher) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO reception_vouchers (reference, creation_date, planned_date, status)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		v.Reference, v.CreationDate, v.PlannedDate, string(v.Status),
	).Scan(&v.ID)
	if err != nil {
		return classify("insert reception voucher", err)
	}
	for _, line := range v.ExpectedLines {
		_, err := r.q.Exec(ctx, `
			INSERT INTO reception_expected_lines (voucher_id, product_id, quantity) VALUES ($1, $2, $3)`,
			v.ID, line.ProductID, line.Quantity)
		if err != nil {
			return classify("insert expected line", err)
		}
	}
	return nil
}

// GetByID obtiene el bono con sus líneas esperadas. Devuelve (nil, nil) si no existe.
func (r *ReceptionRepo) GetByID(ctx context.Context, id int64) (*entity.ReceptionVoucher, error) {
	return r.get(ctx, id, "")
}

// GetForUpdate obtiene el bono bloqueando la fila.
func (r *ReceptionRepo) GetForUpdate(ctx context.Context, id int64) (*entity.ReceptionVoucher, error) {
	return r.get(ctx, id, " FOR UPDATE")
}

func (r *ReceptionRepo) get(ctx context.Context, id int64, lock string) (*entity.ReceptionVoucher, error) {
	var v entity.ReceptionVoucher
	var status string
	err := r.q.QueryRow(ctx, `
		SELECT id, reference, creation_date, planned_date, status
		FROM reception_vouchers WHERE id = $1`+lock, id,
	).Scan(&v.ID, &v.Reference, &v.CreationDate, &v.PlannedDate, &status)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, classify("get reception voucher", err)
	}
	v.Status = entity.ReceptionStatus(status)

	rows, err := r.q.Query(ctx, `
		SELECT product_id, quantity FROM reception_expected_lines
		WHERE voucher_id = $1 ORDER BY product_id`, id)
	if err != nil {
		return nil, classify("list expected lines", err)
	}
	defer rows.Close()
	for rows.Next() {
		var line entity.ExpectedLine
		if err := rows.Scan(&line.ProductID, &line.Quantity); err != nil {
			return nil, classify("scan expected line", err)
		}
		v.ExpectedLines = append(v.ExpectedLines, line)
	}
	return &v, classify("list expected lines", rows.Err())
}

// SetStatus cambia el estado del bono.
func (r *ReceptionRepo) SetStatus(ctx context.Context, id int64, status entity.ReceptionStatus) error {
	tag, err := r.q.Exec(ctx, `UPDATE reception_vouchers SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return classify("update reception voucher", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("bono de recepción %d no encontrado", id)
	}
	return nil
}

// ReceivedTotals suma por producto las cantidades de los colis del bono.
func (r *ReceptionRepo) ReceivedTotals(ctx context.Context, id int64) (map[int64]int64, error) {
	rows, err := r.q.Query(ctx, `
		SELECT l.product_id, SUM(pc.quantity)::BIGINT
		FROM reception_packages rp
		JOIN package_contents pc ON pc.package_id = rp.package_id
		JOIN lots l ON l.id = pc.lot_id
		WHERE rp.voucher_id = $1
		GROUP BY l.product_id`, id)
	if err != nil {
		return nil, classify("received totals", err)
	}
	defer rows.Close()
	out := make(map[int64]int64)
	for rows.Next() {
		var productID, qty int64
		if err := rows.Scan(&productID, &qty); err != nil {
			return nil, classify("received totals", err)
		}
		out[productID] = qty
	}
	return out, classify("received totals", rows.Err())
}

// LinkResponsible registra al usuario como responsable del bono (una vez por usuario).
func (r *ReceptionRepo) LinkResponsible(ctx context.Context, id, userID int64, at time.Time) error {
	return linkResponsible(ctx, r.q, entity.VoucherReception, id, userID, at)
}

// ShipmentRepo implementación del puerto ShipmentRepository.
type ShipmentRepo struct {
	q Querier
}

// NewShipmentRepository construye el adaptador. Acepta pool o tx (Querier).
func NewShipmentRepository(q Querier) *ShipmentRepo {
	return &ShipmentRepo{q: q}
}

// Create persiste el bono de expedición.
func (r *ShipmentRepo) Create(ctx context.Context, v *entity.ShipmentVoucher) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO shipment_vouchers (reference, creation_date, planned_date, priority, status)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		v.Reference, v.CreationDate, v.PlannedDate, string(v.Priority), string(v.Status),
	).Scan(&v.ID)
	return classify("insert shipment voucher", err)
}

// GetByID obtiene el bono. Devuelve (nil, nil) si no existe.
func (r *ShipmentRepo) GetByID(ctx context.Context, id int64) (*entity.ShipmentVoucher, error) {
	return r.get(ctx, id, "")
}

// GetForUpdate obtiene el bono bloqueando la fila.
func (r *ShipmentRepo) GetForUpdate(ctx context.Context, id int64) (*entity.ShipmentVoucher, error) {
	return r.get(ctx, id, " FOR UPDATE")
}

func (r *ShipmentRepo) get(ctx context.Context, id int64, lock string) (*entity.ShipmentVoucher, error) {
	var v entity.ShipmentVoucher
	var priority, status string
	err := r.q.QueryRow(ctx, `
		SELECT id, reference, creation_date, planned_date, priority, status
		FROM shipment_vouchers WHERE id = $1`+lock, id,
	).Scan(&v.ID, &v.Reference, &v.CreationDate, &v.PlannedDate, &priority, &status)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, classify("get shipment voucher", err)
	}
	v.Priority = entity.ShipmentPriority(priority)
	v.Status = entity.ShipmentStatus(status)
	return &v, nil
}

// SetStatus cambia el estado del bono.
func (r *ShipmentRepo) SetStatus(ctx context.Context, id int64, status entity.ShipmentStatus) error {
	tag, err := r.q.Exec(ctx, `UPDATE shipment_vouchers SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return classify("update shipment voucher", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("bono de expedición %d no encontrado", id)
	}
	return nil
}

// LinkResponsible registra al usuario como responsable del bono.
func (r *ShipmentRepo) LinkResponsible(ctx context.Context, id, userID int64, at time.Time) error {
	return linkResponsible(ctx, r.q, entity.VoucherShipment, id, userID, at)
}

func linkResponsible(ctx context.Context, q Querier, kind entity.VoucherKind, voucherID, userID int64, at time.Time) error {
	_, err := q.Exec(ctx, `
		INSERT INTO voucher_responsibles (voucher_kind, voucher_id, user_id, linked_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING`, string(kind), voucherID, userID, at)
	return classify("link responsible", err)
}
