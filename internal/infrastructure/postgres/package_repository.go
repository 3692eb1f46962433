package postgres

import (
	"context"

	"github.com/jhoicas/almacen-wms/internal/domain"
	"github.com/jhoicas/almacen-wms/internal/domain/entity"
	"github.com/jhoicas/almacen-wms/internal/domain/repository"
)

var _ repository.PackageRepository = (*PackageRepo)(nil)

// PackageRepo implementación del puerto PackageRepository (colis, contenido y vínculos con bonos).
type PackageRepo struct {
	q Querier
}

// NewPackageRepository construye el adaptador. Acepta pool o tx (Querier).
func NewPackageRepository(q Querier) *PackageRepo {
	return &PackageRepo{q: q}
}

const selectPackage = `SELECT pk.id, pk.reference, pk.creation_date, pk.status FROM packages pk`

func scanPackage(row interface{ Scan(dest ...any) error }) (*entity.Package, error) {
	var p entity.Package
	var status string
	if err := row.Scan(&p.ID, &p.Reference, &p.CreationDate, &status); err != nil {
		return nil, err
	}
	p.Status = entity.PackageStatus(status)
	return &p, nil
}

// Create persiste el colis y asigna ID.
func (r *PackageRepo) Create(ctx context.Context, p *entity.Package) error {
	err := r.q.QueryRow(ctx,
		`INSERT INTO packages (reference, creation_date, status) VALUES ($1, $2, $3) RETURNING id`,
		p.Reference, p.CreationDate, string(p.Status),
	).Scan(&p.ID)
	return classify("insert package", err)
}

// GetByID obtiene un colis. Devuelve (nil, nil) si no existe.
func (r *PackageRepo) GetByID(ctx context.Context, id int64) (*entity.Package, error) {
	return r.one(ctx, "get package", selectPackage+` WHERE pk.id = $1`, id)
}

// GetForUpdate obtiene el colis bloqueando la fila.
func (r *PackageRepo) GetForUpdate(ctx context.Context, id int64) (*entity.Package, error) {
	return r.one(ctx, "lock package", selectPackage+` WHERE pk.id = $1 FOR UPDATE`, id)
}

// SetStatus cambia el estado del colis.
func (r *PackageRepo) SetStatus(ctx context.Context, id int64, status entity.PackageStatus) error {
	tag, err := r.q.Exec(ctx, `UPDATE packages SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return classify("update package", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("colis %d no encontrado", id)
	}
	return nil
}

// AddContent registra una porción de lote dentro del colis.
func (r *PackageRepo) AddContent(ctx context.Context, c *entity.PackageContent) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO package_contents (package_id, lot_id, origin_cell_id, quantity)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		c.PackageID, c.LotID, c.OriginCellID, c.Quantity,
	).Scan(&c.ID)
	return classify("insert package content", err)
}

// ListContents devuelve el contenido del colis en orden de inserción.
func (r *PackageRepo) ListContents(ctx context.Context, packageID int64) ([]*entity.PackageContent, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, package_id, lot_id, origin_cell_id, quantity
		FROM package_contents WHERE package_id = $1 ORDER BY id`, packageID)
	if err != nil {
		return nil, classify("list package contents", err)
	}
	defer rows.Close()
	var list []*entity.PackageContent
	for rows.Next() {
		var c entity.PackageContent
		if err := rows.Scan(&c.ID, &c.PackageID, &c.LotID, &c.OriginCellID, &c.Quantity); err != nil {
			return nil, classify("scan package content", err)
		}
		list = append(list, &c)
	}
	return list, classify("list package contents", rows.Err())
}

// LinkReception vincula el colis al bono de recepción (idempotente).
func (r *PackageRepo) LinkReception(ctx context.Context, voucherID, packageID int64) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO reception_packages (voucher_id, package_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, voucherID, packageID)
	return classify("link reception package", err)
}

// LinkShipment vincula el colis al bono de expedición (idempotente).
func (r *PackageRepo) LinkShipment(ctx context.Context, voucherID, packageID int64) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO shipment_packages (voucher_id, package_id) VALUES ($1, $2)
		ON CONFLICT (voucher_id, package_id) DO NOTHING`, voucherID, packageID)
	return classify("link shipment package", err)
}

// ListByReception devuelve los colis de un bono de recepción ordenados por id.
func (r *PackageRepo) ListByReception(ctx context.Context, voucherID int64) ([]*entity.Package, error) {
	return r.list(ctx, "list reception packages", selectPackage+`
		JOIN reception_packages rp ON rp.package_id = pk.id
		WHERE rp.voucher_id = $1 ORDER BY pk.id`, voucherID)
}

// ListByShipment devuelve los colis de un bono de expedición ordenados por id.
func (r *PackageRepo) ListByShipment(ctx context.Context, voucherID int64) ([]*entity.Package, error) {
	return r.list(ctx, "list shipment packages", selectPackage+`
		JOIN shipment_packages sp ON sp.package_id = pk.id
		WHERE sp.voucher_id = $1 ORDER BY pk.id`, voucherID)
}

// ShipmentOf devuelve el bono de expedición del colis, o 0 si no está vinculado.
func (r *PackageRepo) ShipmentOf(ctx context.Context, packageID int64) (int64, error) {
	var voucherID int64
	err := r.q.QueryRow(ctx, `SELECT voucher_id FROM shipment_packages WHERE package_id = $1`, packageID).
		Scan(&voucherID)
	if err != nil {
		if noRows(err) {
			return 0, nil
		}
		return 0, classify("package shipment", err)
	}
	return voucherID, nil
}

func (r *PackageRepo) one(ctx context.Context, op, query string, args ...any) (*entity.Package, error) {
	p, err := scanPackage(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, classify(op, err)
	}
	return p, nil
}

func (r *PackageRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.Package, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()
	var list []*entity.Package
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, classify(op, err)
		}
		list = append(list, p)
	}
	return list, classify(op, rows.Err())
}
