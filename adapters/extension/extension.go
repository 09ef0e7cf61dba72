// Package extension relays the publish command to the user's installed
// browser extension, which fills the posting form inside the user's own
// authenticated session. Unlike the synchronous adapter families, its
// result means "posting started", not "posting finished": the final
// outcome arrives later on the relay's status channel.
package extension

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"realestatesync/models"
	"realestatesync/registry"
	"realestatesync/relay"
	"realestatesync/settings"
	"realestatesync/utils"
)

// Relay is the channel to the extension: the WebSocket hub in production,
// an in-process loopback in local mode, fakes in tests.
type Relay interface {
	Connected() bool
	Send(ctx context.Context, msg relay.Message) (relay.Message, error)
}

// Acceptance is the two-phase result of handing a posting to the relay:
// Accepted means the extension acknowledged the command and work has
// started; Rejected carries the reason the command could not start.
type Acceptance struct {
	Accepted bool
	Reason   string
}

// Rejected builds a rejection with the given reason.
func Rejected(reason string) Acceptance {
	return Acceptance{Accepted: false, Reason: reason}
}

// Adapter hands publish commands to the relay.
type Adapter struct {
	logger     *utils.Logger
	relay      Relay
	ackTimeout time.Duration
}

// New creates an extension Adapter over the given relay channel.
func New(logger *utils.Logger, r Relay, ackTimeout time.Duration) *Adapter {
	return &Adapter{logger: logger, relay: r, ackTimeout: ackTimeout}
}

// Accept sends POST_PROPERTY and waits only for the acknowledgement. A
// missing extension or a refused/timed-out ack is a synchronous rejection;
// no UPDATE_STATUS will follow a rejection.
func (a *Adapter) Accept(ctx context.Context, p *models.Property, target registry.Target, cfg settings.Config) Acceptance {
	if !a.relay.Connected() {
		return Rejected("extension not installed")
	}

	data, err := json.Marshal(relay.PostPayload{Property: *p, Target: target.Name})
	if err != nil {
		return Rejected(fmt.Sprintf("encode payload: %v", err))
	}

	ctx, cancel := context.WithTimeout(ctx, a.ackTimeout)
	defer cancel()

	ack, err := a.relay.Send(ctx, relay.Message{
		Type:    relay.TypePostProperty,
		Data:    data,
		Mapping: selectorMapping(cfg),
	})
	if err != nil {
		return Rejected(fmt.Sprintf("could not start posting: %v", err))
	}
	if !ack.OK {
		return Rejected(fmt.Sprintf("could not start posting: %s", ack.Error))
	}

	a.logger.Info("[extension] posting started for property %s on %s", p.ID, target.Name)
	return Acceptance{Accepted: true}
}

// TestConnection checks that the extension is reachable with a
// CHECK_CONNECTION round trip.
func (a *Adapter) TestConnection(ctx context.Context, _ registry.Target, _ settings.Config) error {
	if !a.relay.Connected() {
		return relay.ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, a.ackTimeout)
	defer cancel()

	ack, err := a.relay.Send(ctx, relay.Message{Type: relay.TypeCheckConnection})
	if err != nil {
		return err
	}
	if !ack.OK {
		return fmt.Errorf("extension refused connection check: %s", ack.Error)
	}
	return nil
}

// selectorMapping extracts per-field selector overrides from the target's
// settings for the content script.
func selectorMapping(cfg settings.Config) map[string]string {
	out := make(map[string]string)
	for k, v := range cfg.AdditionalConfig {
		if len(k) > len("selector.") && k[:len("selector.")] == "selector." {
			out[k[len("selector."):]] = v
		}
	}
	return out
}
