package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"realestatesync/registry"
	"realestatesync/utils"
)

// Coordinator state machine. One posting runs at a time.
type State string

const (
	StateIdle              State = "idle"
	StateAwaitingReadiness State = "awaiting_readiness"
	StateFilling           State = "filling"
	StateReported          State = "reported"
)

const (
	readinessAttempts = 3
	readinessDelay    = 2 * time.Second
	pingTimeout       = 5 * time.Second
	fillTimeout       = 2 * time.Minute
)

// Tab is one opened browser tab with a content script the coordinator can
// talk to: Ping probes CONTENT_SCRIPT_READY, Fill performs the FILL_FORM
// round trip.
type Tab interface {
	Ping(ctx context.Context) error
	Fill(ctx context.Context, payload PostPayload, mapping map[string]string) (StatusUpdate, error)
	Close() error
}

// TabOpener opens tabs on the target site.
type TabOpener interface {
	OpenTab(ctx context.Context, url string) (Tab, error)
}

// Coordinator is the extension-side message pipeline: it acknowledges
// POST_PROPERTY immediately, then opens a tab, waits for the content
// script, forwards the fill command, and republishes the outcome as an
// UPDATE_STATUS event. On fatal failure the tab it opened is closed; on
// success it stays open for user inspection.
type Coordinator struct {
	logger *utils.Logger
	tabs   TabOpener

	retryDelay time.Duration

	mu    sync.Mutex
	state State

	updates chan StatusUpdate
}

// NewCoordinator creates an idle Coordinator using the given tab opener.
func NewCoordinator(logger *utils.Logger, tabs TabOpener) *Coordinator {
	return &Coordinator{
		logger:     logger,
		tabs:       tabs,
		retryDelay: readinessDelay,
		state:      StateIdle,
		updates:    make(chan StatusUpdate, 16),
	}
}

// State returns the current pipeline state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Updates is the UPDATE_STATUS event stream.
func (c *Coordinator) Updates() <-chan StatusUpdate {
	return c.updates
}

// HandlePostProperty acknowledges the command and starts the posting
// pipeline in the background. The acknowledgement means "message
// delivered", never "task completed".
func (c *Coordinator) HandlePostProperty(msg Message) Message {
	var payload PostPayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		return Ack(msg.ID, false, fmt.Sprintf("malformed POST_PROPERTY payload: %v", err))
	}
	if payload.Property.ID == "" || payload.Target == "" {
		return Ack(msg.ID, false, "POST_PROPERTY requires a property and a target")
	}

	c.mu.Lock()
	if c.state != StateIdle && c.state != StateReported {
		c.mu.Unlock()
		return Ack(msg.ID, false, "a posting is already in progress")
	}
	c.state = StateAwaitingReadiness
	c.mu.Unlock()

	go c.run(payload, msg.Mapping)
	return Ack(msg.ID, true, "")
}

func (c *Coordinator) run(payload PostPayload, mapping map[string]string) {
	ctx := context.Background()

	target, ok := registry.Get(payload.Target)
	if !ok {
		c.report(payload, false, "unknown target "+payload.Target, "")
		return
	}

	tab, err := c.tabs.OpenTab(ctx, target.BaseURL)
	if err != nil {
		c.report(payload, false, fmt.Sprintf("open tab: %v", err), "")
		return
	}

	if err := c.awaitReadiness(ctx, tab); err != nil {
		tab.Close()
		c.report(payload, false, err.Error(), "")
		return
	}

	c.setState(StateFilling)

	fillCtx, cancel := context.WithTimeout(ctx, fillTimeout)
	defer cancel()
	result, err := tab.Fill(fillCtx, payload, mapping)
	if err != nil {
		tab.Close()
		c.report(payload, false, fmt.Sprintf("fill form: %v", err), "")
		return
	}

	if !result.Success {
		tab.Close()
	}
	c.report(payload, result.Success, result.Message, result.PostURL)
}

// awaitReadiness pings the tab's content script with bounded retries and
// fixed backoff before giving up with a NotReady error.
func (c *Coordinator) awaitReadiness(ctx context.Context, tab Tab) error {
	var lastErr error
	for attempt := 1; attempt <= readinessAttempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		lastErr = tab.Ping(pingCtx)
		cancel()
		if lastErr == nil {
			return nil
		}
		c.logger.Warn("[coordinator] content script not ready (attempt %d/%d): %v",
			attempt, readinessAttempts, lastErr)
		if attempt < readinessAttempts {
			time.Sleep(c.retryDelay)
		}
	}
	return fmt.Errorf("content script not ready after %d attempts: %w", readinessAttempts, lastErr)
}

func (c *Coordinator) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// report publishes the UPDATE_STATUS event. The channel is fire-and-forget
// telemetry; when nobody is draining it, the update is dropped.
func (c *Coordinator) report(payload PostPayload, success bool, message, postURL string) {
	c.setState(StateReported)

	update := StatusUpdate{
		PropertyID: payload.Property.ID,
		Target:     payload.Target,
		Success:    success,
		Message:    message,
		PostURL:    postURL,
	}
	select {
	case c.updates <- update:
	default:
		c.logger.Warn("[coordinator] status channel full, dropping update for %s", payload.Target)
	}
}
