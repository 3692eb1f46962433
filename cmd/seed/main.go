// seed crea el primer administrador (roles admin y supervisor) y, opcionalmente, un almacén de demostración.
//
// Uso: go run ./cmd/seed --email admin@almacen.local --password secreto123 [--org 1] [--demo]
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/almacen-wms/internal/bootstrap"
	"github.com/jhoicas/almacen-wms/internal/domain/entity"
	"github.com/jhoicas/almacen-wms/internal/domain/repository"
	"github.com/jhoicas/almacen-wms/pkg/config"
	"github.com/jhoicas/almacen-wms/pkg/logger"
)

func main() {
	email := pflag.String("email", "admin@almacen.local", "email del administrador")
	password := pflag.String("password", "", "password del administrador (mínimo 8 caracteres)")
	name := pflag.String("name", "Administrador", "nombre del administrador")
	org := pflag.Int64("org", 1, "organización de las asignaciones")
	demo := pflag.Bool("demo", false, "crear almacén, celdas y productos de demostración")
	pflag.Parse()

	if len(*password) < 8 {
		fmt.Fprintln(os.Stderr, "--password es obligatorio (mínimo 8 caracteres)")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: "seed"})

	ctx := context.Background()
	container, err := bootstrap.New(ctx, cfg, log.Zerolog())
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar servicios")
	}
	defer container.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal().Err(err).Msg("hash de password")
	}

	var userID int64
	err = container.Tx.Run(ctx, func(s repository.Stores) error {
		user, err := s.Users.FindByEmail(ctx, *email)
		if err != nil {
			return err
		}
		if user == nil {
			user = &entity.User{Name: *name, Email: strings.ToLower(*email), PasswordHash: string(hash)}
			if err := s.Users.Create(ctx, user); err != nil {
				return err
			}
		}
		userID = user.ID

		roles, err := s.Roles.ListRoles(ctx)
		if err != nil {
			return err
		}
		for _, kind := range []entity.RoleKind{entity.RoleAdmin, entity.RoleSupervisor} {
			role := findRole(roles, kind)
			if role == nil {
				role = &entity.Role{Label: string(kind), Kind: kind}
				if err := s.Roles.CreateRole(ctx, role); err != nil {
					return err
				}
			}
			if err := s.Roles.Assign(ctx, &entity.RoleAssignment{
				UserID: user.ID, RoleID: role.ID, OrganizationID: *org, Active: true,
				StartDate: entity.DateOf(time.Now()),
			}); err != nil {
				return err
			}
		}
		if *demo {
			return seedDemo(ctx, s)
		}
		return nil
	})
	if err != nil {
		log.Fatal().Err(err).Msg("seed")
	}
	container.Guard.Invalidate(ctx, userID)
	log.Info().Int64("user_id", userID).Str("email", *email).Bool("demo", *demo).Msg("seed completado")
}

func findRole(roles []*entity.Role, kind entity.RoleKind) *entity.Role {
	for _, r := range roles {
		if r.Kind == kind {
			return r
		}
	}
	return nil
}

func seedDemo(ctx context.Context, s repository.Stores) error {
	wh := &entity.Warehouse{Name: "Almacén central", MaxCapacity: 10000}
	if err := s.Warehouses.Create(ctx, wh); err != nil {
		return err
	}
	for i := 1; i <= 4; i++ {
		side := decimal.NewFromInt(100)
		cell := &entity.Cell{
			WarehouseID: wh.ID,
			Reference:   fmt.Sprintf("A-%02d", i),
			Length:      side,
			Width:       side,
			Height:      side,
			MaxMass:     decimal.NewFromInt(500),
			MaxVolume:   side.Mul(side).Mul(side),
			MaxCapacity: 500,
			Position:    fmt.Sprintf("pasillo A, nivel %d", i),
			Status:      entity.CellActive,
		}
		if err := s.Cells.Add(ctx, cell); err != nil {
			return err
		}
	}
	products := []*entity.Product{
		{Reference: "CAJ-01", Name: "Caja de cartón", IsPackagingMaterial: true,
			Spec: entity.NewMaterialSpec(decimal.NewFromInt(40), decimal.NewFromInt(30), decimal.NewFromInt(20), decimal.RequireFromString("0.3"))},
		{Reference: "TOR-08", Name: "Tornillo M8", Brand: "Acme",
			Spec: entity.NewMaterialSpec(decimal.NewFromInt(2), decimal.NewFromInt(2), decimal.NewFromInt(8), decimal.RequireFromString("0.01"))},
		{Reference: "SW-ERP", Name: "Licencia ERP", Spec: entity.SoftwareSpec{Version: "5.2", LicenseType: "anual"}},
	}
	for _, p := range products {
		if err := s.Products.Create(ctx, p); err != nil {
			return err
		}
	}
	return nil
}
