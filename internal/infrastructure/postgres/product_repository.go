package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/almacen-wms/internal/domain"
	"github.com/jhoicas/almacen-wms/internal/domain/entity"
	"github.com/jhoicas/almacen-wms/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

// ProductRepo implementación del puerto ProductRepository sobre PostgreSQL.
// La parte común vive en products; la variante en material_specs o software_specs.
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador de persistencia para productos. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

const selectProduct = `
	SELECT p.id, p.reference, p.name, p.description, p.brand, p.model, p.kind, p.is_packaging_material, p.created_at,
	       ms.length, ms.width, ms.height, ms.mass, ms.volume,
	       ss.version, ss.license_type, ss.expiration_date
	FROM products p
	LEFT JOIN material_specs ms ON ms.product_id = p.id
	LEFT JOIN software_specs ss ON ss.product_id = p.id`

// Create persiste el producto y su ficha de variante.
func (r *ProductRepo) Create(ctx context.Context, p *entity.Product) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO products (reference, name, description, brand, model, kind, is_packaging_material, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	err := r.q.QueryRow(ctx, query,
		p.Reference, p.Name, p.Description, p.Brand, p.Model, string(p.Kind()), p.IsPackagingMaterial, p.CreatedAt,
	).Scan(&p.ID)
	if err != nil {
		return classify("insert product", err)
	}

	switch spec := p.Spec.(type) {
	case entity.MaterialSpec:
		_, err = r.q.Exec(ctx, `
			INSERT INTO material_specs (product_id, length, width, height, mass, volume)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			p.ID, spec.Length, spec.Width, spec.Height, spec.Mass, spec.Volume,
		)
	case entity.SoftwareSpec:
		_, err = r.q.Exec(ctx, `
			INSERT INTO software_specs (product_id, version, license_type, expiration_date)
			VALUES ($1, $2, $3, $4)`,
			p.ID, spec.Version, spec.LicenseType, spec.ExpirationDate,
		)
	default:
		return domain.Invalid("el producto %s no tiene variante", p.Reference)
	}
	return classify("insert product spec", err)
}

// GetByID obtiene un producto por ID. Devuelve (nil, nil) si no existe.
func (r *ProductRepo) GetByID(ctx context.Context, id int64) (*entity.Product, error) {
	p, err := scanProduct(r.q.QueryRow(ctx, selectProduct+` WHERE p.id = $1`, id))
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, classify("get product", err)
	}
	return p, nil
}

// GetByIDs devuelve los productos existentes indexados por id.
func (r *ProductRepo) GetByIDs(ctx context.Context, ids []int64) (map[int64]*entity.Product, error) {
	out := make(map[int64]*entity.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.q.Query(ctx, selectProduct+` WHERE p.id = ANY($1)`, ids)
	if err != nil {
		return nil, classify("get products", err)
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, classify("scan product", err)
		}
		out[p.ID] = p
	}
	return out, classify("get products", rows.Err())
}

// List devuelve todos los productos ordenados por id.
func (r *ProductRepo) List(ctx context.Context) ([]*entity.Product, error) {
	rows, err := r.q.Query(ctx, selectProduct+` ORDER BY p.id`)
	if err != nil {
		return nil, classify("list products", err)
	}
	defer rows.Close()
	var list []*entity.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, classify("scan product", err)
		}
		list = append(list, p)
	}
	return list, classify("list products", rows.Err())
}

func scanProduct(row interface{ Scan(dest ...any) error }) (*entity.Product, error) {
	var (
		p                           entity.Product
		kind                        string
		length, width, height, mass decimal.NullDecimal
		volume                      decimal.NullDecimal
		version, licenseType        *string
		licenseExpiration           *time.Time
	)
	err := row.Scan(
		&p.ID, &p.Reference, &p.Name, &p.Description, &p.Brand, &p.Model, &kind, &p.IsPackagingMaterial, &p.CreatedAt,
		&length, &width, &height, &mass, &volume,
		&version, &licenseType, &licenseExpiration,
	)
	if err != nil {
		return nil, err
	}
	switch entity.ProductKind(kind) {
	case entity.ProductMaterial:
		p.Spec = entity.MaterialSpec{
			Length: length.Decimal,
			Width:  width.Decimal,
			Height: height.Decimal,
			Mass:   mass.Decimal,
			Volume: volume.Decimal,
		}
	case entity.ProductSoftware:
		spec := entity.SoftwareSpec{ExpirationDate: licenseExpiration}
		if version != nil {
			spec.Version = *version
		}
		if licenseType != nil {
			spec.LicenseType = *licenseType
		}
		p.Spec = spec
	default:
		return nil, fmt.Errorf("producto %d con tipo desconocido %q", p.ID, kind)
	}
	return &p, nil
}
