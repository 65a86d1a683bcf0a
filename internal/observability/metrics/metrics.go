package metrics

import (
	"database/sql"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "coldwatch_"

var (
	registerOnce sync.Once

	readingsIngested prometheus.Counter
	alertsSent       prometheus.Counter
	alertsSuppressed prometheus.Counter
	webhookCommands  *prometheus.CounterVec

	dbOpenConns prometheus.Gauge
	dbInUse     prometheus.Gauge
)

func register() {
	registerOnce.Do(func() {
		readingsIngested = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "readings_ingested_total",
			Help: "Telemetry readings persisted.",
		})
		alertsSent = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "alerts_sent_total",
			Help: "Threshold alert notifications dispatched.",
		})
		alertsSuppressed = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "alerts_suppressed_total",
			Help: "Alert conditions suppressed by the cooldown window.",
		})
		webhookCommands = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "webhook_commands_total",
			Help: "Inbound chat commands by kind.",
		}, []string{"command"})
		dbOpenConns = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "db_open_connections",
			Help: "Open database connections.",
		})
		dbInUse = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "db_in_use_connections",
			Help: "Database connections currently in use.",
		})

		prometheus.MustRegister(
			readingsIngested,
			alertsSent,
			alertsSuppressed,
			webhookCommands,
			dbOpenConns,
			dbInUse,
		)
	})
}

// Init registers collectors and starts the database stats sampler.
func Init(db *sql.DB) {
	register()
	if db == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			stats := db.Stats()
			dbOpenConns.Set(float64(stats.OpenConnections))
			dbInUse.Set(float64(stats.InUse))
		}
	}()
}

// IncReadingIngested counts one persisted reading.
func IncReadingIngested() {
	register()
	readingsIngested.Inc()
}

// IncAlertSent counts one dispatched alert notification.
func IncAlertSent() {
	register()
	alertsSent.Inc()
}

// IncAlertSuppressed counts one cooldown-suppressed alert condition.
func IncAlertSuppressed() {
	register()
	alertsSuppressed.Inc()
}

// IncWebhookCommand counts one recognized inbound chat command.
func IncWebhookCommand(command string) {
	register()
	webhookCommands.WithLabelValues(command).Inc()
}
