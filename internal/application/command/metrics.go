package command

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Nombres de las métricas de comandos.
const (
	MetricCommandsTotal          = "wms_commands_total"
	MetricCommandDurationSeconds = "wms_command_duration_seconds"
)

// Metrics contadores e histogramas por comando y resultado.
type Metrics struct {
	commandsTotal   *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
}

// NewMetrics crea las métricas y las registra en reg (nil = sin registrar, útil en tests).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricCommandsTotal,
			Help: "Comandos ejecutados por nombre y resultado (ok o clase de error).",
		}, []string{"command", "outcome"}),
		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricCommandDurationSeconds,
			Help:    "Duración de los comandos en segundos.",
			Buckets: prometheus.DefBuckets,
		}, []string{"command"}),
	}
	if reg != nil {
		reg.MustRegister(m.commandsTotal, m.commandDuration)
	}
	return m
}

func (m *Metrics) observe(command, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.commandsTotal.WithLabelValues(command, outcome).Inc()
	m.commandDuration.WithLabelValues(command).Observe(seconds)
}

// Count devuelve el contador de un comando y resultado (tests y diagnóstico).
func (m *Metrics) Count(command, outcome string) prometheus.Counter {
	return m.commandsTotal.WithLabelValues(command, outcome)
}
