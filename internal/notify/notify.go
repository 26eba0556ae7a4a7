// Package notify delivers system events (idle alerts, SOS, risk escalations)
// to downstream consumers. Delivery is best-effort: the engine never blocks
// or fails a state transition because a notification could not be sent.
package notify

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/example/fleet-routing/internal/models"
)

// Sink receives events for downstream delivery. Persistence and display are
// out of scope here.
type Sink interface {
	Notify(ev models.Event) error
}

// Dispatcher tries the driver's live websocket session first and falls back
// to posting the event to a configured HTTP endpoint.
type Dispatcher struct {
	WS       *WSRegistry
	Endpoint string
	Client   *http.Client
}

func NewDispatcher(ws *WSRegistry, endpoint string) *Dispatcher {
	return &Dispatcher{WS: ws, Endpoint: endpoint, Client: &http.Client{Timeout: 3 * time.Second}}
}

func (d *Dispatcher) Notify(ev models.Event) error {
	if d.WS != nil && ev.DriverEmail != "" {
		if err := d.WS.Notify(ev); err == nil {
			return nil
		}
	}
	if d.Endpoint == "" {
		return nil
	}
	b, _ := json.Marshal(ev)
	_, err := d.Client.Post(d.Endpoint, "application/json", bytes.NewReader(b))
	return err
}
