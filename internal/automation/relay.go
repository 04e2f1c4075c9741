package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ignite/contentflow/internal/domain"
	"github.com/ignite/contentflow/internal/pkg/httpretry"
	"github.com/ignite/contentflow/internal/pkg/logger"
)

// DefaultRoutes maps event types to n8n webhook ids. "{aggregate_id}" is
// replaced with the event's aggregate id.
var DefaultRoutes = map[string]string{
	domain.EventContentPublished: "social-media-posting",
	domain.EventUserCreated:      "welcome-email",
	domain.EventWorkflowExecuted: "{aggregate_id}",
}

// RelayConfig configures a Relay.
type RelayConfig struct {
	BaseURL string
	APIKey  string
	Routes  map[string]string
}

// Relay triggers n8n webhooks for domain events.
type Relay struct {
	client  httpretry.HTTPDoer
	ledger  Ledger
	baseURL string
	apiKey  string
	routes  map[string]string
	log     *logger.Logger
}

// NewRelay builds a relay. client is usually an httpretry.RetryClient.
func NewRelay(client httpretry.HTTPDoer, ledger Ledger, cfg RelayConfig) *Relay {
	routes := cfg.Routes
	if len(routes) == 0 {
		routes = DefaultRoutes
	}
	return &Relay{
		client:  client,
		ledger:  ledger,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		routes:  routes,
		log:     logger.Default().With("component", "automation.relay"),
	}
}

// Target returns the webhook id for ev, or "" when the event is not relayed.
func (r *Relay) Target(ev domain.Event) string {
	route, ok := r.routes[ev.EventType()]
	if !ok || route == "" {
		return ""
	}
	return strings.ReplaceAll(route, "{aggregate_id}", ev.AggregateID())
}

// Handle delivers ev at most once per webhook. Unrouted events are ignored.
func (r *Relay) Handle(ctx context.Context, ev domain.Event) error {
	target := r.Target(ev)
	if target == "" {
		return nil
	}

	claimed, err := r.ledger.Claim(ctx, ev.EventID(), target, ev.EventType())
	if err != nil {
		return err
	}
	if !claimed {
		r.log.Info("skipping duplicate delivery", "event_id", ev.EventID(), "target", target)
		return nil
	}

	if err := r.trigger(ctx, target, ev); err != nil {
		if markErr := r.ledger.MarkFailed(ctx, ev.EventID(), target, err.Error()); markErr != nil {
			r.log.Error("mark delivery failed", "event_id", ev.EventID(), "target", target, "error", markErr)
		}
		return err
	}
	if err := r.ledger.MarkDelivered(ctx, ev.EventID(), target); err != nil {
		return err
	}
	r.log.Info("webhook triggered", "event_id", ev.EventID(), "event_type", ev.EventType(), "target", target)
	return nil
}

func (r *Relay) trigger(ctx context.Context, target string, ev domain.Event) error {
	body, err := webhookBody(ev)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/webhook/"+target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-ID", ev.EventID())
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("trigger webhook %s: %w", target, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("trigger webhook %s: status %d: %s", target, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

// webhookBody flattens the event into a JSON object and adds its type.
func webhookBody(ev domain.Event) ([]byte, error) {
	raw, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ev.EventType(), err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("encode %s: %w", ev.EventType(), err)
	}
	fields["event_type"] = ev.EventType()
	return json.Marshal(fields)
}
