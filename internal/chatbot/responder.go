package chatbot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	accounts "coldwatch/internal/accounts/domain"
	"coldwatch/internal/notify"
	"coldwatch/internal/observability/metrics"
	sensors "coldwatch/internal/sensors/domain"
	telemetry "coldwatch/internal/telemetry/domain"

	"go.uber.org/zap"
)

const historyDepth = 10

// UserResolver resolves a chat contact to an account.
type UserResolver interface {
	GetByWhatsApp(ctx context.Context, contact string) (*accounts.User, error)
}

// SensorReader is the sensor access the responder needs.
type SensorReader interface {
	ListByOwner(ctx context.Context, ownerID int64, onlyEnabled bool) ([]sensors.Sensor, error)
	FindByNameLike(ctx context.Context, ownerID int64, query string) (*sensors.Sensor, error)
}

// MeasurementReader is the reading access the responder needs.
type MeasurementReader interface {
	LatestBySensor(ctx context.Context, sensorID string) (*telemetry.Measurement, error)
	RecentBySensor(ctx context.Context, sensorID string, n int) ([]telemetry.Measurement, error)
}

// Responder turns inbound chat text into replies. Unknown senders and
// unrecognized commands are silent no-ops; the chat platform always gets an
// acknowledgement from the webhook layer regardless.
type Responder struct {
	users        UserResolver
	sensors      SensorReader
	measurements MeasurementReader
	channel      notify.Channel
	charts       *notify.ChartClient
	logger       *zap.Logger
}

// NewResponder constructs a command responder.
func NewResponder(users UserResolver, sensorRepo SensorReader, measurements MeasurementReader, channel notify.Channel, charts *notify.ChartClient, logger *zap.Logger) (*Responder, error) {
	if users == nil {
		return nil, errors.New("responder: nil user resolver")
	}
	if sensorRepo == nil {
		return nil, errors.New("responder: nil sensor reader")
	}
	if measurements == nil {
		return nil, errors.New("responder: nil measurement reader")
	}
	if channel == nil {
		return nil, errors.New("responder: nil channel")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Responder{
		users:        users,
		sensors:      sensorRepo,
		measurements: measurements,
		channel:      channel,
		charts:       charts,
		logger:       logger,
	}, nil
}

// Respond handles one inbound message. Commands are matched by exact
// equality or prefix after lowercasing and trimming, never by natural
// language parsing.
func (r *Responder) Respond(ctx context.Context, fromContact, rawText string) error {
	user, err := r.users.GetByWhatsApp(ctx, fromContact)
	if errors.Is(err, accounts.ErrNotFound) {
		// Messages from unregistered contacts are ignored.
		return nil
	}
	if err != nil {
		return err
	}

	text := strings.ToLower(strings.TrimSpace(rawText))
	switch {
	case text == "estado":
		metrics.IncWebhookCommand("estado")
		return r.respondStatus(ctx, user)
	case strings.HasPrefix(text, "historial"):
		metrics.IncWebhookCommand("historial")
		query := strings.TrimSpace(strings.TrimPrefix(text, "historial"))
		return r.respondHistory(ctx, user, query)
	default:
		return nil
	}
}

func (r *Responder) respondStatus(ctx context.Context, user *accounts.User) error {
	owned, err := r.sensors.ListByOwner(ctx, user.ID, true)
	if err != nil {
		return err
	}
	if len(owned) == 0 {
		return r.channel.SendText(ctx, user.WhatsApp, "No tenés sensores configurados.")
	}

	var b strings.Builder
	b.WriteString("📊 Estado de tus sensores:\n")
	for _, sensor := range owned {
		latest, err := r.measurements.LatestBySensor(ctx, sensor.HardwareID)
		if err != nil {
			return err
		}
		b.WriteString(statusLine(sensor, latest))
		b.WriteString("\n")
	}
	return r.channel.SendText(ctx, user.WhatsApp, strings.TrimRight(b.String(), "\n"))
}

func statusLine(sensor sensors.Sensor, latest *telemetry.Measurement) string {
	name := sensor.FriendlyName
	if name == "" {
		name = sensor.HardwareID
	}
	if latest == nil {
		return fmt.Sprintf("⚪ %s: N/A", name)
	}
	glyph := "✅"
	if latest.TemperatureC > sensor.AlertThreshold {
		glyph = "🔴"
	}
	return fmt.Sprintf("%s %s: %s", glyph, name, formatTemp(latest.TemperatureC))
}

func (r *Responder) respondHistory(ctx context.Context, user *accounts.User, query string) error {
	sensor, err := r.sensors.FindByNameLike(ctx, user.ID, query)
	if errors.Is(err, sensors.ErrNotFound) {
		reply := fmt.Sprintf("No encontré ningún sensor que coincida con \"%s\".", query)
		return r.channel.SendText(ctx, user.WhatsApp, reply)
	}
	if err != nil {
		return err
	}

	recent, err := r.measurements.RecentBySensor(ctx, sensor.HardwareID, historyDepth)
	if err != nil {
		return err
	}
	if len(recent) == 0 {
		// A matching sensor without readings produces no reply at all.
		return nil
	}

	// Rows arrive newest first; the chart reads oldest to newest.
	labels := make([]string, len(recent))
	values := make([]float64, len(recent))
	for i, m := range recent {
		j := len(recent) - 1 - i
		labels[j] = m.TS.Format("02/01 15:04")
		values[j] = m.TemperatureC
	}

	name := sensor.FriendlyName
	if name == "" {
		name = sensor.HardwareID
	}
	chartURL, err := r.charts.LineChartURL(name, labels, values)
	if err != nil {
		return err
	}
	caption := fmt.Sprintf("Historial de %s", name)
	return r.channel.SendImage(ctx, user.WhatsApp, chartURL, caption)
}

func formatTemp(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64) + "°C"
}
