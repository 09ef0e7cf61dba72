package relay

import (
	"context"
	"fmt"
	"net/http"

	"realestatesync/utils"
)

// Loopback runs the coordinator in-process instead of behind a WebSocket.
// Used in local relay mode, where no browser extension is installed and
// postings are simulated against the target site's public pages.
type Loopback struct {
	coord *Coordinator
}

// NewLoopback wraps a coordinator as an in-process relay channel.
func NewLoopback(coord *Coordinator) *Loopback {
	return &Loopback{coord: coord}
}

// Connected always reports true: the in-process coordinator is the peer.
func (l *Loopback) Connected() bool { return true }

// Send dispatches a host message straight to the coordinator.
func (l *Loopback) Send(_ context.Context, msg Message) (Message, error) {
	switch msg.Type {
	case TypePostProperty:
		return l.coord.HandlePostProperty(msg), nil
	case TypePing, TypeCheckConnection:
		return Ack(msg.ID, true, ""), nil
	default:
		return Ack(msg.ID, false, "unsupported message type "+msg.Type), nil
	}
}

// Updates exposes the coordinator's status stream.
func (l *Loopback) Updates() <-chan StatusUpdate {
	return l.coord.Updates()
}

// HTTPTabs is a TabOpener for local relay mode: a "tab" is a reachability
// probe of the target page, and the fill step is simulated rather than
// performed, which keeps the coordinator pipeline exercised end to end
// without a real extension.
type HTTPTabs struct {
	logger *utils.Logger
	client *http.Client
}

// NewHTTPTabs creates the local-mode tab opener.
func NewHTTPTabs(logger *utils.Logger, client *http.Client) *HTTPTabs {
	return &HTTPTabs{logger: logger, client: client}
}

func (h *HTTPTabs) OpenTab(ctx context.Context, url string) (Tab, error) {
	if err := h.probe(ctx, url); err != nil {
		return nil, err
	}
	h.logger.Info("[relay] local tab opened for %s", url)
	return &httpTab{opener: h, url: url}, nil
}

func (h *HTTPTabs) probe(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("target unreachable: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("target returned status %d", resp.StatusCode)
	}
	return nil
}

type httpTab struct {
	opener *HTTPTabs
	url    string
}

func (t *httpTab) Ping(ctx context.Context) error {
	return t.opener.probe(ctx, t.url)
}

func (t *httpTab) Fill(_ context.Context, payload PostPayload, _ map[string]string) (StatusUpdate, error) {
	t.opener.logger.Info("[relay] simulated fill for property %s on %s (local relay mode)",
		payload.Property.ID, payload.Target)
	return StatusUpdate{
		PropertyID: payload.Property.ID,
		Target:     payload.Target,
		Success:    true,
		Message:    "simulated posting (local relay mode)",
	}, nil
}

func (t *httpTab) Close() error { return nil }
