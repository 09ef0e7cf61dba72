// Package reststub implements the publish contract for REST-style stub
// integrations: a normalized listing payload POSTed to the target's API
// with key/secret headers.
package reststub

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"realestatesync/adapters"
	"realestatesync/models"
	"realestatesync/registry"
	"realestatesync/settings"
	"realestatesync/utils"
)

// errMaintenance marks the one transport class worth retrying: the
// upstream answering 503 during a maintenance window.
var errMaintenance = errors.New("upstream maintenance (503)")

// Adapter publishes listings to REST-style stub targets.
type Adapter struct {
	logger *utils.Logger
	client *http.Client
	retry  *utils.RetryConfig
}

// New creates a reststub Adapter with a bounded-timeout HTTP client.
func New(logger *utils.Logger, timeout time.Duration, maxRetries int) *Adapter {
	return &Adapter{
		logger: logger,
		client: adapters.NewHTTPClient(timeout),
		retry: &utils.RetryConfig{
			MaxAttempts: maxRetries,
			BaseDelay:   time.Second,
			Logger:      logger,
		},
	}
}

type createResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Publish builds the normalized payload, performs the integration call,
// and maps transport failures into the outcome. On success the live
// listing URL is parsed from the response or synthesized from the base URL.
func (a *Adapter) Publish(ctx context.Context, p *models.Property, target registry.Target, cfg settings.Config) adapters.Outcome {
	payload := adapters.BuildListingPayload(p)

	body, err := json.Marshal(payload)
	if err != nil {
		return adapters.Failure(fmt.Sprintf("encode listing payload: %v", err))
	}
	a.logger.Debug("[reststub] %s payload for property %s: %s", target.Name, p.ID, body)

	var resp createResponse
	err = a.retry.DoIf(fmt.Sprintf("publish-%s", target.Name), isTransient, func() error {
		return a.post(ctx, target.BaseURL+"/api/listings", cfg, body, &resp)
	})
	if err != nil {
		return adapters.Failure(err.Error())
	}

	postURL := resp.URL
	if postURL == "" {
		postURL = fmt.Sprintf("%s/listing/%s", target.BaseURL, p.ID)
	}
	a.logger.Info("[reststub] %s accepted property %s → %s", target.Name, p.ID, postURL)
	return adapters.Successful(postURL)
}

// TestConnection probes the target's health endpoint.
func (a *Adapter) TestConnection(ctx context.Context, target registry.Target, cfg settings.Config) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.BaseURL+"/api/health", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	req.Header.Set("X-API-Key", cfg.APIKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s unreachable: %w", target.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s health check returned status %d", target.Name, resp.StatusCode)
	}
	return nil
}

func (a *Adapter) post(ctx context.Context, url string, cfg settings.Config, body []byte, out *createResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", cfg.APIKey)
	req.Header.Set("X-API-Secret", cfg.APISecret)

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode == http.StatusServiceUnavailable {
		return fmt.Errorf("%w: %s", errMaintenance, firstLine(respBody))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, firstLine(respBody))
	}

	if len(respBody) > 0 {
		// Best effort: a stub may answer with an empty or non-JSON body.
		_ = json.Unmarshal(respBody, out)
	}
	return nil
}

func isTransient(err error) bool {
	return errors.Is(err, errMaintenance)
}

func firstLine(b []byte) string {
	for i, c := range b {
		if c == '\n' {
			return string(b[:i])
		}
	}
	return string(b)
}
