package chatbot

import (
	"context"
	"strings"
	"testing"
	"time"

	accounts "coldwatch/internal/accounts/domain"
	"coldwatch/internal/notify"
	sensors "coldwatch/internal/sensors/domain"
	telemetry "coldwatch/internal/telemetry/domain"
)

type stubUsers struct {
	user *accounts.User
}

func (s stubUsers) GetByWhatsApp(_ context.Context, contact string) (*accounts.User, error) {
	if s.user == nil || s.user.WhatsApp != contact {
		return nil, accounts.ErrNotFound
	}
	return s.user, nil
}

type stubSensors struct {
	owned []sensors.Sensor
}

func (s stubSensors) ListByOwner(_ context.Context, _ int64, onlyEnabled bool) ([]sensors.Sensor, error) {
	if !onlyEnabled {
		return s.owned, nil
	}
	var enabled []sensors.Sensor
	for _, sensor := range s.owned {
		if sensor.Enabled {
			enabled = append(enabled, sensor)
		}
	}
	return enabled, nil
}

func (s stubSensors) FindByNameLike(_ context.Context, _ int64, query string) (*sensors.Sensor, error) {
	if query == "" {
		return nil, sensors.ErrNotFound
	}
	for _, sensor := range s.owned {
		if strings.Contains(strings.ToLower(sensor.FriendlyName), strings.ToLower(query)) {
			match := sensor
			return &match, nil
		}
	}
	return nil, sensors.ErrNotFound
}

type stubMeasurements struct {
	bySensor map[string][]telemetry.Measurement // newest first
}

func (s stubMeasurements) LatestBySensor(_ context.Context, sensorID string) (*telemetry.Measurement, error) {
	rows := s.bySensor[sensorID]
	if len(rows) == 0 {
		return nil, nil
	}
	latest := rows[0]
	return &latest, nil
}

func (s stubMeasurements) RecentBySensor(_ context.Context, sensorID string, n int) ([]telemetry.Measurement, error) {
	rows := s.bySensor[sensorID]
	if len(rows) > n {
		rows = rows[:n]
	}
	return rows, nil
}

type recordedMessage struct {
	kind    string
	to      string
	body    string
	caption string
}

type recordingChannel struct {
	messages []recordedMessage
}

func (c *recordingChannel) SendText(_ context.Context, to, body string) error {
	c.messages = append(c.messages, recordedMessage{kind: "text", to: to, body: body})
	return nil
}

func (c *recordingChannel) SendImage(_ context.Context, to, imageURL, caption string) error {
	c.messages = append(c.messages, recordedMessage{kind: "image", to: to, body: imageURL, caption: caption})
	return nil
}

func newTestResponder(t *testing.T, users stubUsers, sensorRepo stubSensors, measurements stubMeasurements, channel *recordingChannel) *Responder {
	t.Helper()
	charts, err := notify.NewChartClient("https://quickchart.io/chart")
	if err != nil {
		t.Fatalf("chart client: %v", err)
	}
	responder, err := NewResponder(users, sensorRepo, measurements, channel, charts, nil)
	if err != nil {
		t.Fatalf("new responder: %v", err)
	}
	return responder
}

func testUser() *accounts.User {
	return &accounts.User{ID: 7, Username: "ana", WhatsApp: "5491122334455"}
}

func TestRespond_UnknownSenderIsSilent(t *testing.T) {
	channel := &recordingChannel{}
	responder := newTestResponder(t, stubUsers{}, stubSensors{}, stubMeasurements{}, channel)

	if err := responder.Respond(context.Background(), "000000", "estado"); err != nil {
		t.Fatalf("respond: %v", err)
	}
	if len(channel.messages) != 0 {
		t.Fatal("expected no reply for unknown sender")
	}
}

func TestRespond_UnrecognizedCommandIsSilent(t *testing.T) {
	channel := &recordingChannel{}
	responder := newTestResponder(t, stubUsers{user: testUser()}, stubSensors{}, stubMeasurements{}, channel)

	if err := responder.Respond(context.Background(), "5491122334455", "hola, ¿cómo va?"); err != nil {
		t.Fatalf("respond: %v", err)
	}
	if len(channel.messages) != 0 {
		t.Fatal("expected no reply for unrecognized command")
	}
}

func TestRespond_StatusReport(t *testing.T) {
	owned := []sensors.Sensor{
		{ID: 1, HardwareID: "HW-1", FriendlyName: "Heladera", AlertThreshold: 10, Enabled: true},
		{ID: 2, HardwareID: "HW-2", FriendlyName: "Freezer", AlertThreshold: -10, Enabled: true},
	}
	measurements := stubMeasurements{bySensor: map[string][]telemetry.Measurement{
		"HW-1": {{SensorID: "HW-1", TemperatureC: 5, TS: time.Now()}},
	}}
	channel := &recordingChannel{}
	responder := newTestResponder(t, stubUsers{user: testUser()}, stubSensors{owned: owned}, measurements, channel)

	if err := responder.Respond(context.Background(), "5491122334455", "  Estado  "); err != nil {
		t.Fatalf("respond: %v", err)
	}
	if len(channel.messages) != 1 || channel.messages[0].kind != "text" {
		t.Fatalf("expected one text reply, got %+v", channel.messages)
	}

	reply := channel.messages[0].body
	lines := strings.Split(reply, "\n")
	var heladeraLine, freezerLine string
	for _, line := range lines {
		if strings.Contains(line, "Heladera") {
			heladeraLine = line
		}
		if strings.Contains(line, "Freezer") {
			freezerLine = line
		}
	}
	if !strings.Contains(heladeraLine, "✅") || !strings.Contains(heladeraLine, "5°C") {
		t.Fatalf("expected normal-state line with 5°C, got %q", heladeraLine)
	}
	if strings.Contains(heladeraLine, "N/A") {
		t.Fatalf("unexpected N/A on sensor with readings: %q", heladeraLine)
	}
	if !strings.Contains(freezerLine, "N/A") {
		t.Fatalf("expected N/A for sensor without readings, got %q", freezerLine)
	}
}

func TestRespond_StatusAlertGlyph(t *testing.T) {
	owned := []sensors.Sensor{
		{ID: 1, HardwareID: "HW-1", FriendlyName: "Freezer", AlertThreshold: -10, Enabled: true},
	}
	measurements := stubMeasurements{bySensor: map[string][]telemetry.Measurement{
		"HW-1": {{SensorID: "HW-1", TemperatureC: -2, TS: time.Now()}},
	}}
	channel := &recordingChannel{}
	responder := newTestResponder(t, stubUsers{user: testUser()}, stubSensors{owned: owned}, measurements, channel)

	if err := responder.Respond(context.Background(), "5491122334455", "estado"); err != nil {
		t.Fatalf("respond: %v", err)
	}
	if !strings.Contains(channel.messages[0].body, "🔴") {
		t.Fatalf("expected alert glyph, got %q", channel.messages[0].body)
	}
}

func TestRespond_StatusSkipsDisabledSensors(t *testing.T) {
	owned := []sensors.Sensor{
		{ID: 1, HardwareID: "HW-1", FriendlyName: "Heladera", AlertThreshold: 10, Enabled: true},
		{ID: 2, HardwareID: "HW-2", FriendlyName: "Vitrina", AlertThreshold: 8, Enabled: false},
	}
	channel := &recordingChannel{}
	responder := newTestResponder(t, stubUsers{user: testUser()}, stubSensors{owned: owned}, stubMeasurements{}, channel)

	if err := responder.Respond(context.Background(), "5491122334455", "estado"); err != nil {
		t.Fatalf("respond: %v", err)
	}
	if strings.Contains(channel.messages[0].body, "Vitrina") {
		t.Fatalf("disabled sensor should not appear: %q", channel.messages[0].body)
	}
}

func TestRespond_HistoryNoMatchEchoesQuery(t *testing.T) {
	channel := &recordingChannel{}
	responder := newTestResponder(t, stubUsers{user: testUser()}, stubSensors{}, stubMeasurements{}, channel)

	if err := responder.Respond(context.Background(), "5491122334455", "historial freezer"); err != nil {
		t.Fatalf("respond: %v", err)
	}
	if len(channel.messages) != 1 || channel.messages[0].kind != "text" {
		t.Fatalf("expected one text reply, got %+v", channel.messages)
	}
	if !strings.Contains(channel.messages[0].body, "freezer") {
		t.Fatalf("expected reply to echo query, got %q", channel.messages[0].body)
	}
}

func TestRespond_HistoryNoMeasurementsIsSilent(t *testing.T) {
	owned := []sensors.Sensor{
		{ID: 1, HardwareID: "HW-1", FriendlyName: "Freezer Principal", AlertThreshold: -10, Enabled: true},
	}
	channel := &recordingChannel{}
	responder := newTestResponder(t, stubUsers{user: testUser()}, stubSensors{owned: owned}, stubMeasurements{}, channel)

	if err := responder.Respond(context.Background(), "5491122334455", "historial freezer"); err != nil {
		t.Fatalf("respond: %v", err)
	}
	if len(channel.messages) != 0 {
		t.Fatalf("expected no reply for matching sensor without readings, got %+v", channel.messages)
	}
}

func TestRespond_HistoryChartIsChronological(t *testing.T) {
	owned := []sensors.Sensor{
		{ID: 1, HardwareID: "HW-1", FriendlyName: "Freezer Principal", AlertThreshold: -10, Enabled: true},
	}
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	// Newest first, as the repository returns them.
	rows := []telemetry.Measurement{
		{SensorID: "HW-1", TemperatureC: -15, TS: base.Add(2 * time.Hour)},
		{SensorID: "HW-1", TemperatureC: -16, TS: base.Add(time.Hour)},
		{SensorID: "HW-1", TemperatureC: -17, TS: base},
	}
	measurements := stubMeasurements{bySensor: map[string][]telemetry.Measurement{"HW-1": rows}}
	channel := &recordingChannel{}
	responder := newTestResponder(t, stubUsers{user: testUser()}, stubSensors{owned: owned}, measurements, channel)

	if err := responder.Respond(context.Background(), "5491122334455", "historial freezer"); err != nil {
		t.Fatalf("respond: %v", err)
	}
	if len(channel.messages) != 1 || channel.messages[0].kind != "image" {
		t.Fatalf("expected exactly one image reply, got %+v", channel.messages)
	}

	msg := channel.messages[0]
	if !strings.Contains(msg.caption, "Freezer Principal") {
		t.Fatalf("expected caption naming the sensor, got %q", msg.caption)
	}
	// Oldest label must come before the newest in the chart spec.
	oldest := strings.Index(msg.body, "10%3A00")
	newest := strings.Index(msg.body, "12%3A00")
	if oldest == -1 || newest == -1 || oldest > newest {
		t.Fatalf("expected chronological label order in chart url %q", msg.body)
	}
}
