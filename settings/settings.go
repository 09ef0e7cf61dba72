// Package settings owns per-target configuration: the persisted settings
// store and the credential resolver the orchestrator consults before any
// adapter is invoked.
package settings

import (
	"context"
	"errors"
)

// Resolution failure sentinels. These are recorded as the target's
// distribution error by the orchestrator and never abort a publish request.
var (
	ErrConfigMissing  = errors.New("target configuration missing")
	ErrConfigInvalid  = errors.New("target configuration invalid")
	ErrTargetDisabled = errors.New("target disabled in settings")
)

// PageConfig describes one social-media destination page.
type PageConfig struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AccessToken string `json:"accessToken"`
}

// Config is the resolved per-target configuration handed to an adapter.
type Config struct {
	Target           string            `json:"target"`
	Enabled          bool              `json:"enabled"`
	APIKey           string            `json:"apiKey,omitempty"`
	APISecret        string            `json:"apiSecret,omitempty"`
	Username         string            `json:"username,omitempty"`
	Password         string            `json:"password,omitempty"`
	APIURL           string            `json:"apiUrl,omitempty"`
	Pages            []PageConfig      `json:"pages,omitempty"`
	AdditionalConfig map[string]string `json:"additionalConfig,omitempty"`
}

// Store is the persistence contract for per-target settings. The resolver
// only ever reads; writes happen through the settings HTTP surface.
type Store interface {
	Get(ctx context.Context, target string) (Config, bool, error)
	GetAll(ctx context.Context) (map[string]Config, error)
	Upsert(ctx context.Context, cfg Config) error
}
