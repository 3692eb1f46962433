package entity

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// ProductKind distingue bienes materiales de software.
type ProductKind string

const (
	ProductMaterial ProductKind = "material"
	ProductSoftware ProductKind = "software"
)

// Product representa un artículo del catálogo. La parte común vive aquí; lo propio de cada
// variante va en Spec (MaterialSpec o SoftwareSpec), nunca como campos nulos sueltos.
type Product struct {
	ID                  int64
	Reference           string // referencia única corta
	Name                string
	Description         string
	Brand               string
	Model               string
	IsPackagingMaterial bool
	Spec                ProductSpec
	CreatedAt           time.Time
}

// ProductSpec es la variante etiquetada del producto.
type ProductSpec interface {
	Kind() ProductKind
	isProductSpec()
}

// MaterialSpec dimensiones físicas: cm, kg y cm³. Volume se guarda para no recalcularlo.
type MaterialSpec struct {
	Length decimal.Decimal `json:"length"`
	Width  decimal.Decimal `json:"width"`
	Height decimal.Decimal `json:"height"`
	Mass   decimal.Decimal `json:"mass"`
	Volume decimal.Decimal `json:"volume"`
}

// NewMaterialSpec calcula el volumen unitario a partir de las dimensiones.
func NewMaterialSpec(length, width, height, mass decimal.Decimal) MaterialSpec {
	return MaterialSpec{
		Length: length,
		Width:  width,
		Height: height,
		Mass:   mass,
		Volume: length.Mul(width).Mul(height),
	}
}

func (MaterialSpec) Kind() ProductKind { return ProductMaterial }
func (MaterialSpec) isProductSpec()    {}

// SoftwareSpec licencia de software. ExpirationDate nil = licencia perpetua.
type SoftwareSpec struct {
	Version        string     `json:"version"`
	LicenseType    string     `json:"license_type"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
}

func (SoftwareSpec) Kind() ProductKind { return ProductSoftware }
func (SoftwareSpec) isProductSpec()    {}

// Kind devuelve la variante del producto.
func (p *Product) Kind() ProductKind {
	if p.Spec == nil {
		return ""
	}
	return p.Spec.Kind()
}

// Material devuelve la especificación física si el producto es material.
func (p *Product) Material() (MaterialSpec, bool) {
	m, ok := p.Spec.(MaterialSpec)
	return m, ok
}

// Software devuelve la especificación de licencia si el producto es software.
func (p *Product) Software() (SoftwareSpec, bool) {
	s, ok := p.Spec.(SoftwareSpec)
	return s, ok
}

// UnitVolume volumen de una unidad en cm³ (cero para software).
func (p *Product) UnitVolume() decimal.Decimal {
	if m, ok := p.Material(); ok {
		return m.Volume
	}
	return decimal.Zero
}

type productJSON struct {
	ID                  int64         `json:"id"`
	Reference           string        `json:"reference"`
	Name                string        `json:"name"`
	Description         string        `json:"description,omitempty"`
	Brand               string        `json:"brand,omitempty"`
	Model               string        `json:"model,omitempty"`
	Kind                ProductKind   `json:"kind"`
	IsPackagingMaterial bool          `json:"is_packaging_material"`
	Material            *MaterialSpec `json:"material,omitempty"`
	Software            *SoftwareSpec `json:"software,omitempty"`
	CreatedAt           time.Time     `json:"created_at"`
}

// MarshalJSON serializa la variante con su etiqueta "kind".
func (p Product) MarshalJSON() ([]byte, error) {
	out := productJSON{
		ID:                  p.ID,
		Reference:           p.Reference,
		Name:                p.Name,
		Description:         p.Description,
		Brand:               p.Brand,
		Model:               p.Model,
		Kind:                p.Kind(),
		IsPackagingMaterial: p.IsPackagingMaterial,
		CreatedAt:           p.CreatedAt,
	}
	switch spec := p.Spec.(type) {
	case MaterialSpec:
		out.Material = &spec
	case SoftwareSpec:
		out.Software = &spec
	}
	return json.Marshal(out)
}
