// Package bootstrap arma el grafo de dependencias a partir de la configuración: almacén
// (PostgreSQL o memoria), caché de roles, casos de uso y dispatcher de comandos.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/jhoicas/almacen-wms/internal/application/auth"
	"github.com/jhoicas/almacen-wms/internal/application/authz"
	"github.com/jhoicas/almacen-wms/internal/application/catalog"
	"github.com/jhoicas/almacen-wms/internal/application/command"
	"github.com/jhoicas/almacen-wms/internal/application/inventory"
	"github.com/jhoicas/almacen-wms/internal/application/supervision"
	stockpolicy "github.com/jhoicas/almacen-wms/internal/domain/inventory"
	"github.com/jhoicas/almacen-wms/internal/domain/repository"
	"github.com/jhoicas/almacen-wms/internal/infrastructure/cache"
	"github.com/jhoicas/almacen-wms/internal/infrastructure/memory"
	"github.com/jhoicas/almacen-wms/internal/infrastructure/postgres"
	"github.com/jhoicas/almacen-wms/pkg/config"
)

// Container servicios listos para un transporte (HTTP, CLI o seed).
type Container struct {
	Config     *config.Config
	Tx         repository.TxRunner
	Guard      *authz.Guard
	Engine     *inventory.Engine
	Catalog    *catalog.Service
	Roles      *authz.RoleService
	Super      *supervision.Service
	Auth       *auth.AuthUseCase
	Dispatcher *command.Dispatcher
	Registry   *prometheus.Registry

	closers []func()
}

// New abre el almacén configurado y construye los servicios.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Container, error) {
	c := &Container{Config: cfg, Registry: prometheus.NewRegistry()}
	c.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	policy, err := stockpolicy.ParsePolicy(cfg.WMS.AllocationPolicy)
	if err != nil {
		return nil, err
	}
	loc := cfg.WMS.Location()

	switch cfg.DB.Driver {
	case "memory":
		log.Warn().Msg("almacén en memoria: los datos se pierden al reiniciar")
		c.Tx = memory.NewStore()
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
		}
		c.closers = append(c.closers, pool.Close)
		if cfg.DB.AutoMigrate {
			if err := postgres.Migrate(pool, log); err != nil {
				c.Close()
				return nil, fmt.Errorf("migraciones: %w", err)
			}
		}
		c.Tx = postgres.NewTxRunner(pool, cfg.DB.Isolation)
	}

	guardOpts := []authz.Option{authz.WithClock(time.Now, loc), authz.WithLogger(log)}
	if cfg.Redis.Addr != "" {
		client, err := cache.NewClient(ctx, cfg.Redis)
		if err != nil {
			// Sin caché compartida el guard consulta la base en cada petición.
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("caché de roles desactivada")
		} else {
			c.closers = append(c.closers, func() { _ = client.Close() })
			guardOpts = append(guardOpts, authz.WithCache(cache.NewRoleCache(client, cfg.Redis.RoleTTL, log)))
		}
	}
	c.Guard = authz.NewGuard(c.Tx, guardOpts...)

	c.Engine = inventory.NewEngine(c.Tx, c.Guard,
		inventory.WithClock(time.Now, loc),
		inventory.WithPolicy(policy),
		inventory.WithLogger(log.With().Str("component", "engine").Logger()),
	)
	c.Super = supervision.NewService(c.Tx, c.Guard,
		supervision.WithDefaults(cfg.WMS.StockoutThreshold, cfg.WMS.ExpiringDays),
		supervision.WithClock(time.Now, loc),
		supervision.WithLogger(log),
	)
	c.Catalog = catalog.NewService(c.Tx, c.Guard, log)
	c.Roles = authz.NewRoleService(c.Tx, c.Guard)
	c.Auth = auth.NewAuthUseCase(c.Tx, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	c.Dispatcher = command.NewDispatcher(command.Services{
		Guard:       c.Guard,
		Engine:      c.Engine,
		Supervision: c.Super,
		Catalog:     c.Catalog,
		Roles:       c.Roles,
	},
		command.WithTimeout(cfg.WMS.RequestTimeout),
		command.WithMetrics(command.NewMetrics(c.Registry)),
		command.WithLogger(log),
	)
	return c, nil
}

// Close libera conexiones en orden inverso de apertura.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// RunExpirySweep marca como caducados los lotes vencidos cada interval hasta que ctx termine.
// Se ejecuta una vez al arrancar.
func (c *Container) RunExpirySweep(ctx context.Context, interval time.Duration, log zerolog.Logger) {
	if interval <= 0 {
		return
	}
	sweep := func() {
		if _, err := c.Engine.ExpireLots(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("barrido de caducidad")
		}
	}
	sweep()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}
