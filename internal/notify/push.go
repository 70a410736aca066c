// Package notify delivers push notifications to registered devices. Delivery
// is best-effort: the transport reports errors to its caller for logging,
// but nothing upstream depends on the outcome.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/bognix/dymek-api/pkg/util"
)

// Message is a single push payload.
type Message struct {
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Meta  map[string]any `json:"meta,omitempty"`
}

// Sender is the push-notification transport. Fire-and-forget: no delivery
// confirmation is consumed.
type Sender interface {
	Send(ctx context.Context, token string, message Message) error
}

// HTTPSender posts FCM-style payloads to a configured endpoint.
type HTTPSender struct {
	endpoint  string
	serverKey string
	client    *http.Client
}

// NewHTTPSender builds the transport. An empty endpoint yields a sender that
// drops messages, which keeps local runs working without a push project.
func NewHTTPSender(endpoint, serverKey string, timeout time.Duration) *HTTPSender {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPSender{
		endpoint:  endpoint,
		serverKey: serverKey,
		client:    &http.Client{Timeout: timeout},
	}
}

type pushRequest struct {
	To           string  `json:"to"`
	Notification Message `json:"notification"`
	Data         any     `json:"data,omitempty"`
}

func (s *HTTPSender) Send(ctx context.Context, token string, message Message) error {
	if s.endpoint == "" {
		return nil
	}
	if token == "" {
		return util.NewNotificationDelivery(fmt.Errorf("empty registration token"))
	}

	body, err := json.Marshal(pushRequest{
		To:           token,
		Notification: message,
		Data:         message.Meta,
	})
	if err != nil {
		return util.NewNotificationDelivery(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return util.NewNotificationDelivery(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.serverKey != "" {
		req.Header.Set("Authorization", "key="+s.serverKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return util.NewNotificationDelivery(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return util.NewNotificationDelivery(fmt.Errorf("push endpoint returned %d", resp.StatusCode))
	}
	return nil
}
