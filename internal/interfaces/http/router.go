package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/jhoicas/almacen-wms/internal/application/auth"
	"github.com/jhoicas/almacen-wms/internal/application/command"
	"github.com/jhoicas/almacen-wms/internal/application/dto"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AuthUC     *auth.AuthUseCase
	Dispatcher *command.Dispatcher
	JWTSecret  string
	Gatherer   prometheus.Gatherer // nil = sin /metrics
	AppName    string
}

// NewApp crea la aplicación Fiber con recover, request id y el manejador de errores uniforme.
func NewApp(name string, log zerolog.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(dto.ErrorResponse{Code: "HTTP", Message: fe.Message})
			}
			log.Error().Err(err).Str("request_id", GetRequestID(c)).Str("path", c.Path()).Msg("error no controlado")
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "internal", Message: "error interno"})
		},
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	return app
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.AppName})
	})
	if deps.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api")

	// Auth (público)
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	commandHandler := NewCommandHandler(deps.Dispatcher)
	protected.Post("/commands", commandHandler.Execute)
	protected.Get("/commands", commandHandler.List)

	reports := protected.Group("/reports")
	reportHandler := NewReportHandler(commandHandler)
	reports.Get("/stock", reportHandler.Stock())
	reports.Get("/movements", reportHandler.Movements())
	reports.Get("/exceptions", reportHandler.Exceptions())
	reports.Get("/stockouts", reportHandler.Stockouts())
	reports.Get("/expiring", reportHandler.Expiring())
	reports.Get("/occupancy", reportHandler.Occupancy())
	reports.Get("/rupture-history", reportHandler.RuptureHistory())
}
