package chatbot

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

// WebhookHandler receives inbound chat-platform events. It always
// acknowledges with 200 so platform-side retry storms cannot be triggered
// by internal failures.
type WebhookHandler struct {
	responder *Responder
	logger    *zap.Logger
}

// NewWebhookHandler constructs the webhook endpoint.
func NewWebhookHandler(responder *Responder, logger *zap.Logger) (*WebhookHandler, error) {
	if responder == nil {
		return nil, errors.New("webhook: nil responder")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{responder: responder, logger: logger}, nil
}

type webhookEnvelope struct {
	From string `json:"from"`
	Body string `json:"body"`
}

// ServeHTTP handles one platform event.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var envelope webhookEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err == nil && envelope.From != "" {
		if err := h.responder.Respond(r.Context(), envelope.From, envelope.Body); err != nil {
			h.logger.Error("webhook: responder failed",
				zap.String("from", envelope.From),
				zap.Error(err),
			)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
