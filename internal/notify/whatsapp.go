package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Channel delivers outbound chat messages.
type Channel interface {
	SendText(ctx context.Context, to, body string) error
	SendImage(ctx context.Context, to, imageURL, caption string) error
}

type textPayload struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

type mediaPayload struct {
	Number   string `json:"number"`
	MediaURL string `json:"mediaUrl"`
	Caption  string `json:"caption,omitempty"`
}

// WhatsAppChannel sends messages through a WhatsApp gateway instance.
type WhatsAppChannel struct {
	baseURL    string
	instanceID string
	apiKey     string
	client     *http.Client
}

// WhatsAppOption configures the channel.
type WhatsAppOption func(*WhatsAppChannel)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) WhatsAppOption {
	return func(ch *WhatsAppChannel) {
		if client != nil {
			ch.client = client
		}
	}
}

// NewWhatsAppChannel constructs a WhatsApp gateway channel.
func NewWhatsAppChannel(baseURL, instanceID, apiKey string, opts ...WhatsAppOption) (*WhatsAppChannel, error) {
	if baseURL == "" {
		return nil, errors.New("whatsapp channel: empty base url")
	}
	if instanceID == "" {
		return nil, errors.New("whatsapp channel: empty instance id")
	}
	channel := &WhatsAppChannel{
		baseURL:    strings.TrimRight(baseURL, "/"),
		instanceID: instanceID,
		apiKey:     apiKey,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(channel)
	}
	return channel, nil
}

// SendText posts a plain text message to the recipient.
func (w *WhatsAppChannel) SendText(ctx context.Context, to, body string) error {
	payload := textPayload{Number: to, Text: body}
	return w.post(ctx, "/message/sendText/"+w.instanceID, payload)
}

// SendImage posts an image message referencing a renderable URL.
func (w *WhatsAppChannel) SendImage(ctx context.Context, to, imageURL, caption string) error {
	payload := mediaPayload{Number: to, MediaURL: imageURL, Caption: caption}
	return w.post(ctx, "/message/sendMedia/"+w.instanceID, payload)
}

func (w *WhatsAppChannel) post(ctx context.Context, path string, payload any) error {
	if w == nil || w.baseURL == "" {
		return errors.New("whatsapp channel: empty base url")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if w.apiKey != "" {
		req.Header.Set("apikey", w.apiKey)
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("whatsapp channel: non-2xx response %d", resp.StatusCode)
	}
	return nil
}
