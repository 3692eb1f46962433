package dto

import "github.com/shopspring/decimal"

// CreateProductRequest alta de un producto. Según Kind debe venir Material o Software (y solo ese).
type CreateProductRequest struct {
	Reference           string               `json:"reference" validate:"required,max=64"`
	Name                string               `json:"name" validate:"required,min=1,max=200"`
	Description         string               `json:"description" validate:"max=2000"`
	Brand               string               `json:"brand" validate:"max=120"`
	Model               string               `json:"model" validate:"max=120"`
	Kind                string               `json:"kind" validate:"required,oneof=material software"`
	IsPackagingMaterial bool                 `json:"is_packaging_material"`
	Material            *MaterialSpecRequest `json:"material,omitempty"`
	Software            *SoftwareSpecRequest `json:"software,omitempty"`
}

// MaterialSpecRequest dimensiones en cm y masa en kg.
type MaterialSpecRequest struct {
	Length decimal.Decimal `json:"length"`
	Width  decimal.Decimal `json:"width"`
	Height decimal.Decimal `json:"height"`
	Mass   decimal.Decimal `json:"mass"`
}

// SoftwareSpecRequest licencia; ExpirationDate nil = perpetua.
type SoftwareSpecRequest struct {
	Version        string `json:"version" validate:"required,max=64"`
	LicenseType    string `json:"license_type" validate:"required,max=64"`
	ExpirationDate *Date  `json:"expiration_date,omitempty"`
}

// CreateApprovRequest solicitud de aprovisionamiento.
type CreateApprovRequest struct {
	OrganizationID      int64 `json:"organization_id" validate:"required,gt=0"`
	ProductID           int64 `json:"product_id" validate:"required,gt=0"`
	Quantity            int64 `json:"quantity" validate:"required,gt=0"`
	PlannedDeliveryDate Date  `json:"planned_delivery_date"`
}

// ListApprovRequest filtro de solicitudes (0 = todas las organizaciones).
type ListApprovRequest struct {
	OrganizationID int64 `json:"organization_id" validate:"gte=0"`
}
