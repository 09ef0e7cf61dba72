// Package adapters defines the publish contract every target family
// implements. Adapters are read-only with respect to the property and
// communicate results exclusively through the Outcome; merging outcomes
// into the distribution map is the orchestrator's job.
package adapters

import (
	"context"
	"net/http"
	"time"

	"realestatesync/models"
	"realestatesync/registry"
	"realestatesync/settings"
)

// Outcome is the normalized result of one publish attempt.
type Outcome struct {
	Success bool
	Error   string
	PostURL string
}

// Successful builds a success outcome with an optional live-listing link.
func Successful(postURL string) Outcome {
	return Outcome{Success: true, PostURL: postURL}
}

// Failure builds an error outcome.
func Failure(message string) Outcome {
	return Outcome{Success: false, Error: message}
}

// Publisher is the synchronous publish contract shared by the REST,
// WordPress, social and browser adapter families. The extension relay has
// a different completion contract and lives outside this interface.
type Publisher interface {
	Publish(ctx context.Context, p *models.Property, target registry.Target, cfg settings.Config) Outcome

	// TestConnection performs a lightweight connectivity probe without
	// creating a real listing.
	TestConnection(ctx context.Context, target registry.Target, cfg settings.Config) error
}

// NewHTTPClient builds an HTTP client with the bounded timeout every
// outbound call must carry.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
