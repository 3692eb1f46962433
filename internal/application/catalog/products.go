package catalog

import (
	"context"
	"strings"

	"github.com/jhoicas/almacen-wms/internal/application/authz"
	"github.com/jhoicas/almacen-wms/internal/application/dto"
	"github.com/jhoicas/almacen-wms/internal/domain"
	"github.com/jhoicas/almacen-wms/internal/domain/entity"
	"github.com/jhoicas/almacen-wms/internal/domain/repository"
)

// CreateProduct crea un producto con su ficha material o software.
func (s *Service) CreateProduct(ctx context.Context, actor domain.Actor, in dto.CreateProductRequest) (*entity.Product, error) {
	if err := s.guard.Authorize(ctx, actor, authz.CapManageCatalog); err != nil {
		return nil, err
	}

	spec, err := productSpec(in)
	if err != nil {
		return nil, err
	}
	p := &entity.Product{
		Reference:           strings.TrimSpace(in.Reference),
		Name:                strings.TrimSpace(in.Name),
		Description:         in.Description,
		Brand:               in.Brand,
		Model:               in.Model,
		IsPackagingMaterial: in.IsPackagingMaterial,
		Spec:                spec,
	}
	if p.Reference == "" || p.Name == "" {
		return nil, domain.Invalid("referencia y nombre son obligatorios")
	}
	err = s.tx.Run(ctx, func(st repository.Stores) error {
		if err := st.Products.Create(ctx, p); err != nil {
			if domain.KindOf(err) == domain.KindConflict {
				return domain.Conflict("la referencia %q ya existe", p.Reference).With("reference", p.Reference)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Int64("product_id", p.ID).Str("reference", p.Reference).Str("kind", string(p.Kind())).Msg("producto creado")
	return p, nil
}

// productSpec construye la variante; exige exactamente la ficha que corresponde a Kind.
func productSpec(in dto.CreateProductRequest) (entity.ProductSpec, error) {
	switch entity.ProductKind(in.Kind) {
	case entity.ProductMaterial:
		if in.Material == nil || in.Software != nil {
			return nil, domain.Invalid("un producto material requiere solo la ficha material")
		}
		m := in.Material
		if !m.Length.IsPositive() || !m.Width.IsPositive() || !m.Height.IsPositive() {
			return nil, domain.Invalid("las dimensiones deben ser positivas")
		}
		if m.Mass.IsNegative() {
			return nil, domain.Invalid("la masa no puede ser negativa")
		}
		return entity.NewMaterialSpec(m.Length, m.Width, m.Height, m.Mass), nil
	case entity.ProductSoftware:
		if in.Software == nil || in.Material != nil {
			return nil, domain.Invalid("un producto software requiere solo la ficha software")
		}
		sw := in.Software
		if strings.TrimSpace(sw.Version) == "" || strings.TrimSpace(sw.LicenseType) == "" {
			return nil, domain.Invalid("versión y tipo de licencia son obligatorios")
		}
		return entity.SoftwareSpec{
			Version:        strings.TrimSpace(sw.Version),
			LicenseType:    strings.TrimSpace(sw.LicenseType),
			ExpirationDate: sw.ExpirationDate.Ptr(),
		}, nil
	}
	return nil, domain.Invalid("tipo de producto desconocido: %q", in.Kind)
}

// CreateApprov registra una solicitud de aprovisionamiento.
func (s *Service) CreateApprov(ctx context.Context, actor domain.Actor, in dto.CreateApprovRequest) (*entity.ApprovRequest, error) {
	if err := s.guard.Authorize(ctx, actor, authz.CapManageCatalog); err != nil {
		return nil, err
	}

	if in.Quantity <= 0 {
		return nil, domain.Invalid("la cantidad debe ser positiva").With("quantity", in.Quantity)
	}
	if in.OrganizationID <= 0 {
		return nil, domain.Invalid("la organización es obligatoria")
	}
	today := entity.DateOf(s.now())
	if in.PlannedDeliveryDate.IsZero() {
		return nil, domain.Invalid("la fecha de entrega prevista es obligatoria")
	}
	if entity.DateOf(in.PlannedDeliveryDate.Time).Before(today) {
		return nil, domain.Invalid("la fecha de entrega prevista ya pasó")
	}
	r := &entity.ApprovRequest{
		OrganizationID:      in.OrganizationID,
		ProductID:           in.ProductID,
		Quantity:            in.Quantity,
		RequestDate:         s.now(),
		PlannedDeliveryDate: entity.DateOf(in.PlannedDeliveryDate.Time),
	}
	err := s.tx.Run(ctx, func(st repository.Stores) error {
		p, err := st.Products.GetByID(ctx, in.ProductID)
		if err != nil {
			return err
		}
		if p == nil {
			return domain.NotFound("producto %d no encontrado", in.ProductID).With("product_id", in.ProductID)
		}
		return st.Approvs.Create(ctx, r)
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ListApprov solicitudes de una organización (0 = todas).
func (s *Service) ListApprov(ctx context.Context, actor domain.Actor, in dto.ListApprovRequest) ([]*entity.ApprovRequest, error) {
	if err := s.guard.Authorize(ctx, actor, authz.CapReadSup); err != nil {
		return nil, err
	}

	out := []*entity.ApprovRequest{}
	err := s.tx.View(ctx, func(st repository.Stores) error {
		list, err := st.Approvs.List(ctx, in.OrganizationID)
		if err != nil {
			return err
		}
		out = append(out, list...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
