package command

import (
	"context"
	"encoding/json"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/almacen-wms/internal/application/authz"
	"github.com/jhoicas/almacen-wms/internal/application/catalog"
	"github.com/jhoicas/almacen-wms/internal/application/inventory"
	"github.com/jhoicas/almacen-wms/internal/application/supervision"
	"github.com/jhoicas/almacen-wms/internal/domain"
)

// Handler ejecuta un comando con su carga en bruto.
type Handler func(ctx context.Context, actor domain.Actor, payload json.RawMessage) (any, error)

// Services casos de uso que atienden los comandos. Guard autoriza cada comando antes de
// decodificar su carga; nil deja la autorización solo en los casos de uso.
type Services struct {
	Guard       authz.Authorizer
	Engine      *inventory.Engine
	Supervision *supervision.Service
	Catalog     *catalog.Service
	Roles       *authz.RoleService
}

// Dispatcher resuelve el nombre del comando, aplica timeout, registra y mide.
type Dispatcher struct {
	handlers map[string]Handler
	validate *validator.Validate
	timeout  time.Duration
	metrics  *Metrics
	log      zerolog.Logger
}

// Option configura el Dispatcher.
type Option func(*Dispatcher)

// WithTimeout fija el plazo máximo de cada comando (0 = sin plazo).
func WithTimeout(d time.Duration) Option { return func(x *Dispatcher) { x.timeout = d } }

// WithMetrics asigna las métricas.
func WithMetrics(m *Metrics) Option { return func(x *Dispatcher) { x.metrics = m } }

// WithLogger asigna el logger.
func WithLogger(l zerolog.Logger) Option { return func(x *Dispatcher) { x.log = l } }

// NewDispatcher registra todos los comandos sobre los servicios dados.
func NewDispatcher(svc Services, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		handlers: make(map[string]Handler),
		validate: newValidator(),
		timeout:  10 * time.Second,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.register(svc)
	return d
}

// Handle registra (o reemplaza) un comando.
func (d *Dispatcher) Handle(name string, h Handler) {
	d.handlers[name] = h
}

// Commands nombres registrados, ordenados.
func (d *Dispatcher) Commands() []string {
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Dispatch ejecuta el sobre. Nunca devuelve error: los fallos van en Result.Error.
func (d *Dispatcher) Dispatch(ctx context.Context, env Envelope) Result {
	if env.RequestID == "" {
		env.RequestID = uuid.NewString()
	}
	start := time.Now()
	actor := domain.Actor{UserID: env.ActorID, OrganizationID: env.OrganizationID, RequestID: env.RequestID}

	data, err := d.run(ctx, actor, env)
	elapsed := time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = string(domain.KindOf(err))
	}
	d.metrics.observe(env.Command, outcome, elapsed.Seconds())

	ev := d.log.Info()
	if err != nil {
		ev = d.log.Warn()
		if domain.KindOf(err) == domain.KindInternal {
			ev = d.log.Error().Err(err)
		}
	}
	ev.Str("request_id", env.RequestID).
		Str("command", env.Command).
		Int64("actor_id", env.ActorID).
		Dur("duration", elapsed).
		Str("outcome", outcome).
		Msg("comando")

	if err != nil {
		de := domain.AsError(err)
		return Result{
			OK:        false,
			RequestID: env.RequestID,
			Error: &Error{
				Kind:    de.Kind,
				Message: de.Message,
				Details: de.Details,
			},
		}
	}
	return Result{OK: true, Data: data, RequestID: env.RequestID}
}

func (d *Dispatcher) run(ctx context.Context, actor domain.Actor, env Envelope) (any, error) {
	h, ok := d.handlers[env.Command]
	if !ok {
		return nil, domain.NotFound("comando desconocido: %q", env.Command).With("command", env.Command)
	}
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	ctx = authz.WithRequestScope(ctx)
	data, err := h(ctx, actor, env.Payload)
	if err != nil {
		// Un error de la base provocado por el plazo vencido también es canceled.
		if ctx.Err() != nil && domain.KindOf(err) == domain.KindInternal {
			return nil, domain.ErrCanceled
		}
		return nil, err
	}
	return data, nil
}

type binder struct {
	validate *validator.Validate
	guard    authz.Authorizer
}

// bind adapta un caso de uso con entrada tipada a Handler. La capacidad se comprueba antes
// que la carga: un actor sin permiso recibe unauthorized aunque la carga sea inválida.
func bind[T any, R any](b binder, c authz.Capability, fn func(context.Context, domain.Actor, T) (R, error)) Handler {
	return func(ctx context.Context, actor domain.Actor, payload json.RawMessage) (any, error) {
		if b.guard != nil {
			if err := b.guard.Authorize(ctx, actor, c); err != nil {
				return nil, err
			}
		}
		in, err := decode[T](b.validate, payload)
		if err != nil {
			return nil, err
		}
		return fn(ctx, actor, in)
	}
}

// ack respuesta de los comandos sin datos propios.
type ack struct {
	Done bool `json:"done"`
}
