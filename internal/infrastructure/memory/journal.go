package memory

import (
	"cmp"
	"context"
	"slices"

	"github.com/jhoicas/almacen-wms/internal/domain"
	"github.com/jhoicas/almacen-wms/internal/domain/entity"
	"github.com/jhoicas/almacen-wms/internal/domain/repository"
)

var (
	_ repository.MovementRepository  = (*movementRepo)(nil)
	_ repository.ExceptionRepository = (*exceptionRepo)(nil)
)

type movementRepo struct {
	st *state
}

func (r *movementRepo) Append(_ context.Context, m *entity.Movement) error {
	m.ID = r.st.nextID("movements")
	r.st.movements = append(r.st.movements, *m)
	return nil
}

func (r *movementRepo) List(_ context.Context, f repository.MovementFilter) ([]*entity.Movement, error) {
	var out []*entity.Movement
	for _, m := range r.st.movements {
		if f.ProductID != nil && m.ProductID != *f.ProductID {
			continue
		}
		if f.LotID != nil && m.LotID != *f.LotID {
			continue
		}
		if f.From != nil && m.Timestamp.Before(*f.From) {
			continue
		}
		if f.To != nil && !m.Timestamp.Before(*f.To) {
			continue
		}
		m := m
		out = append(out, &m)
	}
	slices.SortStableFunc(out, func(a, b *entity.Movement) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

type exceptionRepo struct {
	st *state
}

func (r *exceptionRepo) Append(_ context.Context, e *entity.ExceptionReport) error {
	e.ID = r.st.nextID("exceptions")
	r.st.exceptions[e.ID] = *e
	return nil
}

func (r *exceptionRepo) entry(id int64) *entity.ExceptionEntry {
	e, ok := r.st.exceptions[id]
	if !ok {
		return nil
	}
	out := &entity.ExceptionEntry{Report: e}
	if res, ok := r.st.resolutions[id]; ok {
		out.Resolution = &res
	}
	return out
}

func (r *exceptionRepo) GetByID(_ context.Context, id int64) (*entity.ExceptionEntry, error) {
	return r.entry(id), nil
}

func (r *exceptionRepo) Resolve(_ context.Context, res *entity.ExceptionResolution) error {
	if _, ok := r.st.exceptions[res.ReportID]; !ok {
		return domain.NotFound("incidencia %d no encontrada", res.ReportID)
	}
	if _, ok := r.st.resolutions[res.ReportID]; ok {
		return domain.ErrDuplicate
	}
	r.st.resolutions[res.ReportID] = *res
	return nil
}

func (r *exceptionRepo) CountUnresolved(_ context.Context, kind entity.VoucherKind, voucherID int64) (int, error) {
	n := 0
	for id, e := range r.st.exceptions {
		if e.VoucherKind != kind || e.RelatedVoucherID != voucherID {
			continue
		}
		if _, ok := r.st.resolutions[id]; !ok {
			n++
		}
	}
	return n, nil
}

func (r *exceptionRepo) List(_ context.Context) ([]*entity.ExceptionEntry, error) {
	ids := sortedIDs(r.st.exceptions)
	out := make([]*entity.ExceptionEntry, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.entry(id))
	}
	return out, nil
}
