package memory

import (
	"context"
	"slices"
	"time"

	"github.com/jhoicas/almacen-wms/internal/domain"
	"github.com/jhoicas/almacen-wms/internal/domain/entity"
	"github.com/jhoicas/almacen-wms/internal/domain/repository"
)

var (
	_ repository.PackageRepository   = (*packageRepo)(nil)
	_ repository.ReceptionRepository = (*receptionRepo)(nil)
	_ repository.ShipmentRepository  = (*shipmentRepo)(nil)
)

type packageRepo struct {
	st *state
}

func (r *packageRepo) Create(_ context.Context, p *entity.Package) error {
	p.ID = r.st.nextID("packages")
	r.st.packages[p.ID] = *p
	return nil
}

func (r *packageRepo) GetByID(_ context.Context, id int64) (*entity.Package, error) {
	p, ok := r.st.packages[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *packageRepo) GetForUpdate(ctx context.Context, id int64) (*entity.Package, error) {
	return r.GetByID(ctx, id)
}

func (r *packageRepo) SetStatus(_ context.Context, id int64, status entity.PackageStatus) error {
	p, ok := r.st.packages[id]
	if !ok {
		return domain.NotFound("colis %d no encontrado", id)
	}
	p.Status = status
	r.st.packages[id] = p
	return nil
}

func (r *packageRepo) AddContent(_ context.Context, c *entity.PackageContent) error {
	if _, ok := r.st.packages[c.PackageID]; !ok {
		return domain.NotFound("colis %d no encontrado", c.PackageID)
	}
	c.ID = r.st.nextID("package_contents")
	r.st.contents[c.ID] = *c
	return nil
}

func (r *packageRepo) ListContents(_ context.Context, packageID int64) ([]*entity.PackageContent, error) {
	var out []*entity.PackageContent
	for _, id := range sortedIDs(r.st.contents) {
		if c := r.st.contents[id]; c.PackageID == packageID {
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *packageRepo) LinkReception(_ context.Context, voucherID, packageID int64) error {
	if !slices.Contains(r.st.recPackages[voucherID], packageID) {
		r.st.recPackages[voucherID] = append(r.st.recPackages[voucherID], packageID)
	}
	return nil
}

func (r *packageRepo) LinkShipment(_ context.Context, voucherID, packageID int64) error {
	if !slices.Contains(r.st.shipPackages[voucherID], packageID) {
		r.st.shipPackages[voucherID] = append(r.st.shipPackages[voucherID], packageID)
	}
	return nil
}

func (r *packageRepo) list(ids []int64) []*entity.Package {
	ids = slices.Sorted(slices.Values(ids))
	out := make([]*entity.Package, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.st.packages[id]; ok {
			out = append(out, &p)
		}
	}
	return out
}

func (r *packageRepo) ListByReception(_ context.Context, voucherID int64) ([]*entity.Package, error) {
	return r.list(r.st.recPackages[voucherID]), nil
}

func (r *packageRepo) ListByShipment(_ context.Context, voucherID int64) ([]*entity.Package, error) {
	return r.list(r.st.shipPackages[voucherID]), nil
}

func (r *packageRepo) ShipmentOf(_ context.Context, packageID int64) (int64, error) {
	for _, voucherID := range sortedIDs(r.st.shipPackages) {
		if slices.Contains(r.st.shipPackages[voucherID], packageID) {
			return voucherID, nil
		}
	}
	return 0, nil
}

type receptionRepo struct {
	st *state
}

func (r *receptionRepo) Create(_ context.Context, v *entity.ReceptionVoucher) error {
	v.ID = r.st.nextID("receptions")
	v.ExpectedLines = slices.Clone(v.ExpectedLines)
	r.st.receptions[v.ID] = *v
	return nil
}

func (r *receptionRepo) GetByID(_ context.Context, id int64) (*entity.ReceptionVoucher, error) {
	v, ok := r.st.receptions[id]
	if !ok {
		return nil, nil
	}
	v.ExpectedLines = slices.Clone(v.ExpectedLines)
	return &v, nil
}

func (r *receptionRepo) GetForUpdate(ctx context.Context, id int64) (*entity.ReceptionVoucher, error) {
	return r.GetByID(ctx, id)
}

func (r *receptionRepo) SetStatus(_ context.Context, id int64, status entity.ReceptionStatus) error {
	v, ok := r.st.receptions[id]
	if !ok {
		return domain.NotFound("bono de recepción %d no encontrado", id)
	}
	v.Status = status
	r.st.receptions[id] = v
	return nil
}

func (r *receptionRepo) ReceivedTotals(_ context.Context, id int64) (map[int64]int64, error) {
	out := make(map[int64]int64)
	for _, pkgID := range r.st.recPackages[id] {
		for _, c := range r.st.contents {
			if c.PackageID != pkgID {
				continue
			}
			if lot, ok := r.st.lots[c.LotID]; ok {
				out[lot.ProductID] += c.Quantity
			}
		}
	}
	return out, nil
}

func (r *receptionRepo) LinkResponsible(_ context.Context, id, userID int64, at time.Time) error {
	r.st.linkResponsible(entity.VoucherReception, id, userID, at)
	return nil
}

type shipmentRepo struct {
	st *state
}

func (r *shipmentRepo) Create(_ context.Context, v *entity.ShipmentVoucher) error {
	v.ID = r.st.nextID("shipments")
	r.st.shipments[v.ID] = *v
	return nil
}

func (r *shipmentRepo) GetByID(_ context.Context, id int64) (*entity.ShipmentVoucher, error) {
	v, ok := r.st.shipments[id]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (r *shipmentRepo) GetForUpdate(ctx context.Context, id int64) (*entity.ShipmentVoucher, error) {
	return r.GetByID(ctx, id)
}

func (r *shipmentRepo) SetStatus(_ context.Context, id int64, status entity.ShipmentStatus) error {
	v, ok := r.st.shipments[id]
	if !ok {
		return domain.NotFound("bono de expedición %d no encontrado", id)
	}
	v.Status = status
	r.st.shipments[id] = v
	return nil
}

func (r *shipmentRepo) LinkResponsible(_ context.Context, id, userID int64, at time.Time) error {
	r.st.linkResponsible(entity.VoucherShipment, id, userID, at)
	return nil
}

// linkResponsible registra el vínculo una sola vez por (bono, usuario).
func (s *state) linkResponsible(kind entity.VoucherKind, voucherID, userID int64, at time.Time) {
	for _, r := range s.responsibles {
		if r.VoucherKind == kind && r.VoucherID == voucherID && r.UserID == userID {
			return
		}
	}
	s.responsibles = append(s.responsibles, entity.VoucherResponsible{
		VoucherKind: kind, VoucherID: voucherID, UserID: userID, LinkedAt: at,
	})
}
