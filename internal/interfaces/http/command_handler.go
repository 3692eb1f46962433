package http

import (
	"encoding/json"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/almacen-wms/internal/application/command"
	"github.com/jhoicas/almacen-wms/internal/application/dto"
	"github.com/jhoicas/almacen-wms/internal/domain"
)

// CommandHandler expone el dispatcher de comandos con el actor del token.
type CommandHandler struct {
	dispatcher *command.Dispatcher
}

// NewCommandHandler construye el handler.
func NewCommandHandler(d *command.Dispatcher) *CommandHandler {
	return &CommandHandler{dispatcher: d}
}

// Execute godoc
// @Summary      Ejecutar un comando
// @Description  El actor se toma del token; actorId y organizationId del sobre se ignoran.
// @Tags         commands
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  command.Envelope  true  "command, payload, requestId"
// @Success      200   {object}  command.Result
// @Failure      400   {object}  command.Result
// @Failure      403   {object}  command.Result
// @Failure      404   {object}  command.Result
// @Failure      409   {object}  command.Result
// @Failure      408   {object}  command.Result
// @Router       /api/commands [post]
func (h *CommandHandler) Execute(c *fiber.Ctx) error {
	var env command.Envelope
	if err := json.Unmarshal(c.Body(), &env); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "sobre inválido"})
	}
	if env.Command == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "command es requerido"})
	}
	return h.dispatch(c, env)
}

// List godoc
// @Summary      Comandos disponibles
// @Tags         commands
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  string
// @Router       /api/commands [get]
func (h *CommandHandler) List(c *fiber.Ctx) error {
	return c.JSON(h.dispatcher.Commands())
}

func (h *CommandHandler) dispatch(c *fiber.Ctx, env command.Envelope) error {
	actor := GetActor(c)
	env.ActorID = actor.UserID
	env.OrganizationID = actor.OrganizationID
	if env.RequestID == "" {
		env.RequestID = actor.RequestID
	}
	res := h.dispatcher.Dispatch(c.UserContext(), env)
	status := fiber.StatusOK
	if !res.OK && res.Error != nil {
		status = statusFor(res.Error.Kind)
	}
	return c.Status(status).JSON(res)
}

// ReportHandler rutas GET de informes; cada una se traduce al comando report.* equivalente.
type ReportHandler struct {
	commands *CommandHandler
}

// NewReportHandler construye el handler de informes.
func NewReportHandler(commands *CommandHandler) *ReportHandler {
	return &ReportHandler{commands: commands}
}

// report arma el sobre del comando con la carga que devuelve payload.
func (h *ReportHandler) report(name string, payload func(c *fiber.Ctx) (map[string]any, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var raw json.RawMessage
		if payload != nil {
			fields, err := payload(c)
			if err != nil {
				return writeError(c, err)
			}
			if raw, err = json.Marshal(fields); err != nil {
				return writeError(c, err)
			}
		}
		return h.commands.dispatch(c, command.Envelope{Command: name, Payload: raw})
	}
}

// Stock godoc
// @Summary      Informe de stock por producto, lote y celda
// @Tags         reports
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  command.Result
// @Router       /api/reports/stock [get]
func (h *ReportHandler) Stock() fiber.Handler { return h.report(command.ReportStock, nil) }

// Movements godoc
// @Summary      Diario de movimientos de un producto
// @Tags         reports
// @Security     Bearer
// @Produce      json
// @Param        product_id  query  int  true  "producto"
// @Success      200  {object}  command.Result
// @Router       /api/reports/movements [get]
func (h *ReportHandler) Movements() fiber.Handler {
	return h.report(command.ReportMovements, func(c *fiber.Ctx) (map[string]any, error) {
		id, err := queryInt(c, "product_id", true)
		if err != nil {
			return nil, err
		}
		return map[string]any{"product_id": id}, nil
	})
}

// Exceptions godoc
// @Summary      Incidencias con su resolución
// @Tags         reports
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  command.Result
// @Router       /api/reports/exceptions [get]
func (h *ReportHandler) Exceptions() fiber.Handler { return h.report(command.ReportExceptions, nil) }

// Stockouts godoc
// @Summary      Productos en ruptura
// @Tags         reports
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  command.Result
// @Router       /api/reports/stockouts [get]
func (h *ReportHandler) Stockouts() fiber.Handler { return h.report(command.ReportStockouts, nil) }

// Expiring godoc
// @Summary      Lotes próximos a caducar
// @Tags         reports
// @Security     Bearer
// @Produce      json
// @Param        days  query  int  false  "ventana en días (por defecto la configurada)"
// @Success      200  {object}  command.Result
// @Router       /api/reports/expiring [get]
func (h *ReportHandler) Expiring() fiber.Handler {
	return h.report(command.ReportExpiring, func(c *fiber.Ctx) (map[string]any, error) {
		days, err := queryInt(c, "days", false)
		if err != nil {
			return nil, err
		}
		if c.Query("days") == "" {
			return map[string]any{}, nil
		}
		return map[string]any{"days": days}, nil
	})
}

// Occupancy godoc
// @Summary      Ocupación de todas las celdas
// @Tags         reports
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  command.Result
// @Router       /api/reports/occupancy [get]
func (h *ReportHandler) Occupancy() fiber.Handler { return h.report(command.ReportOccupancy, nil) }

// RuptureHistory godoc
// @Summary      Histórico de rupturas por día
// @Tags         reports
// @Security     Bearer
// @Produce      json
// @Param        start  query  string  true  "YYYY-MM-DD"
// @Param        end    query  string  true  "YYYY-MM-DD"
// @Success      200  {object}  command.Result
// @Router       /api/reports/rupture-history [get]
func (h *ReportHandler) RuptureHistory() fiber.Handler {
	return h.report(command.ReportRuptureHistory, func(c *fiber.Ctx) (map[string]any, error) {
		out := make(map[string]any, 2)
		for _, key := range []string{"start", "end"} {
			raw := c.Query(key)
			if raw == "" {
				return nil, domain.Invalid("el parámetro %s es requerido", key).With("param", key)
			}
			d, err := dto.ParseDate(raw)
			if err != nil {
				return nil, domain.Invalid("%v", err).With("param", key)
			}
			out[key] = d
		}
		return out, nil
	})
}

func queryInt(c *fiber.Ctx, key string, required bool) (int64, error) {
	raw := c.Query(key)
	if raw == "" {
		if required {
			return 0, domain.Invalid("el parámetro %s es requerido", key).With("param", key)
		}
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, domain.Invalid("el parámetro %s debe ser entero", key).With("param", key)
	}
	return v, nil
}
