package mqttingest

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"coldwatch/internal/telemetry/application"
	telemetry "coldwatch/internal/telemetry/domain"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// Subscriber consumes telemetry readings from an MQTT topic and feeds them
// through the same ingest pipeline as the HTTP endpoint. It is optional:
// fleets behind NAT publish over MQTT instead of calling the API directly.
type Subscriber struct {
	client  mqtt.Client
	topic   string
	ingest  *application.IngestService
	logger  *zap.Logger
	timeout time.Duration
}

// NewSubscriber connects to the broker and prepares the subscription.
func NewSubscriber(brokerURL, clientID, topic string, ingest *application.IngestService, logger *zap.Logger) (*Subscriber, error) {
	if brokerURL == "" {
		return nil, errors.New("mqtt ingest: empty broker url")
	}
	if ingest == nil {
		return nil, errors.New("mqtt ingest: nil ingest service")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}

	return &Subscriber{
		client:  client,
		topic:   topic,
		ingest:  ingest,
		logger:  logger,
		timeout: 15 * time.Second,
	}, nil
}

type readingMessage struct {
	SensorID string   `json:"sensorId"`
	TempC    *float64 `json:"tempC"`
	VoltageV *float64 `json:"voltageV"`
}

// Start subscribes to the telemetry topic. Per-message failures are logged
// and never stop the subscription.
func (s *Subscriber) Start(ctx context.Context) error {
	token := s.client.Subscribe(s.topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		var reading readingMessage
		if err := json.Unmarshal(msg.Payload(), &reading); err != nil {
			s.logger.Warn("mqtt ingest: malformed payload", zap.Error(err))
			return
		}
		if reading.SensorID == "" || reading.TempC == nil || reading.VoltageV == nil {
			s.logger.Warn("mqtt ingest: incomplete payload", zap.String("sensor_id", reading.SensorID))
			return
		}

		msgCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		err := s.ingest.Ingest(msgCtx, reading.SensorID, *reading.TempC, *reading.VoltageV)
		if errors.Is(err, telemetry.ErrSensorNotConfigured) {
			s.logger.Warn("mqtt ingest: unconfigured sensor", zap.String("sensor_id", reading.SensorID))
			return
		}
		if err != nil {
			s.logger.Error("mqtt ingest failed", zap.String("sensor_id", reading.SensorID), zap.Error(err))
		}
	})
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}
	s.logger.Info("mqtt ingest subscribed", zap.String("topic", s.topic))
	return nil
}

// Close disconnects from the broker.
func (s *Subscriber) Close() {
	if s == nil || s.client == nil {
		return
	}
	s.client.Disconnect(250)
}
