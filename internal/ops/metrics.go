// Package ops предоставляет служебный HTTP-сервер бота: healthcheck и метрики.
package ops

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/waiwai-developers/waiwaichan-sub003/internal/model"
)

// Metrics содержит счётчики обработанных команд и исходов розыгрышей.
type Metrics struct {
	commands *prometheus.CounterVec
	draws    *prometheus.CounterVec
}

// NewMetrics создаёт и регистрирует счётчики в указанном реестре.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "waiwaichan_commands_total",
			Help: "Processed interaction commands by name and outcome.",
		}, []string{"command", "outcome"}),
		draws: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "waiwaichan_draws_total",
			Help: "Lottery draws by currency kind and outcome.",
		}, []string{"kind", "outcome"}),
	}

	reg.MustRegister(m.commands, m.draws)
	return m
}

// IncCommand учитывает обработанную команду.
func (m *Metrics) IncCommand(command, outcome string) {
	m.commands.WithLabelValues(command, outcome).Inc()
}

// IncDraw учитывает исход розыгрыша.
func (m *Metrics) IncDraw(kind model.Kind, outcome string) {
	m.draws.WithLabelValues(string(kind), outcome).Inc()
}
