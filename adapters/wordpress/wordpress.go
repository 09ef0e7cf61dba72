// Package wordpress publishes listings as posts on a WordPress site via
// the wp-json REST API with basic authentication.
package wordpress

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"realestatesync/adapters"
	"realestatesync/models"
	"realestatesync/registry"
	"realestatesync/settings"
	"realestatesync/utils"
)

// Adapter publishes listings to a WordPress-style target.
type Adapter struct {
	logger *utils.Logger
	client *http.Client
}

// New creates a WordPress Adapter with a bounded-timeout HTTP client.
func New(logger *utils.Logger, timeout time.Duration) *Adapter {
	return &Adapter{logger: logger, client: adapters.NewHTTPClient(timeout)}
}

type postRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Status  string `json:"status"`
}

type postResponse struct {
	ID   int    `json:"id"`
	Link string `json:"link"`
}

// Publish creates a published post rendering the listing as HTML content.
func (a *Adapter) Publish(ctx context.Context, p *models.Property, _ registry.Target, cfg settings.Config) adapters.Outcome {
	reqBody := postRequest{
		Title:   p.Title,
		Content: renderContent(p),
		Status:  "publish",
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return adapters.Failure(fmt.Sprintf("encode post: %v", err))
	}

	url := strings.TrimRight(cfg.APIURL, "/") + "/wp-json/wp/v2/posts"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return adapters.Failure(fmt.Sprintf("build request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(cfg.Username, cfg.Password)

	resp, err := a.client.Do(req)
	if err != nil {
		return adapters.Failure(fmt.Sprintf("wordpress request failed: %v", err))
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return adapters.Failure(fmt.Sprintf("wordpress returned status %d: %s",
			resp.StatusCode, truncate(string(respBody), 200)))
	}

	var created postResponse
	if err := json.Unmarshal(respBody, &created); err != nil {
		return adapters.Failure(fmt.Sprintf("decode wordpress response: %v", err))
	}

	postURL := created.Link
	if postURL == "" {
		postURL = fmt.Sprintf("%s/?p=%d", strings.TrimRight(cfg.APIURL, "/"), created.ID)
	}
	a.logger.Info("[wordpress] published property %s as post %d", p.ID, created.ID)
	return adapters.Successful(postURL)
}

// TestConnection probes the wp-json root with the configured credentials.
func (a *Adapter) TestConnection(ctx context.Context, _ registry.Target, cfg settings.Config) error {
	url := strings.TrimRight(cfg.APIURL, "/") + "/wp-json/"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(cfg.Username, cfg.Password)

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("wordpress unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("wordpress returned status %d", resp.StatusCode)
	}
	return nil
}

// renderContent renders the listing body. Plain paragraph markup keeps the
// output readable in any theme.
func renderContent(p *models.Property) string {
	var b strings.Builder

	fmt.Fprintf(&b, "<p>%s</p>\n", p.Description)
	fmt.Fprintf(&b, "<p>Price: %s EUR</p>\n", adapters.FormatPrice(p.Price))
	fmt.Fprintf(&b, "<p>%d bed / %d bath — %.1f m²</p>\n", p.Bedrooms, p.Bathrooms, p.Area)
	if loc := p.Location(); loc != "" {
		fmt.Fprintf(&b, "<p>Location: %s</p>\n", loc)
	}
	if len(p.Features) > 0 {
		b.WriteString("<ul>\n")
		for _, f := range p.Features {
			fmt.Fprintf(&b, "<li>%s</li>\n", f)
		}
		b.WriteString("</ul>\n")
	}
	for _, img := range p.Images {
		fmt.Fprintf(&b, "<img src=%q alt=%q />\n", img, p.Title)
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
