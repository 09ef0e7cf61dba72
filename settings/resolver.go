package settings

import (
	"context"
	"fmt"
	"os"
	"strings"

	"realestatesync/registry"
	"realestatesync/utils"
)

// Resolver resolves a target's credentials before a publish attempt.
// Resolution order: persisted settings row, then environment fallback,
// then failure. Disabled targets and incomplete credentials fail fast,
// before any network or browser action is attempted.
type Resolver struct {
	store  Store
	getenv func(string) string
	logger *utils.Logger
}

// NewResolver creates a Resolver reading from the given store with the
// process environment as fallback.
func NewResolver(store Store, logger *utils.Logger) *Resolver {
	return &Resolver{store: store, getenv: os.Getenv, logger: logger}
}

// WithEnv overrides the environment lookup, used by tests.
func (r *Resolver) WithEnv(getenv func(string) string) *Resolver {
	r.getenv = getenv
	return r
}

// Resolve returns the validated Config for targetName or a resolution error.
func (r *Resolver) Resolve(ctx context.Context, targetName string) (Config, error) {
	target, ok := registry.Get(targetName)
	if !ok {
		return Config{}, fmt.Errorf("%w: unknown target %q", ErrConfigMissing, targetName)
	}

	cfg, found, err := r.store.Get(ctx, targetName)
	if err != nil {
		return Config{}, fmt.Errorf("read settings for %s: %w", targetName, err)
	}

	if found {
		if !cfg.Enabled {
			return Config{}, fmt.Errorf("%w: %s", ErrTargetDisabled, targetName)
		}
	} else {
		cfg = r.fromEnv(targetName)
		if cfg.Target == "" {
			if !target.RequiresAuth {
				// Targets without credentials (extension relay) work with
				// an empty but enabled config.
				cfg = Config{Target: targetName, Enabled: true}
			} else {
				return Config{}, fmt.Errorf("%w: no settings for %s", ErrConfigMissing, targetName)
			}
		}
		r.logger.Debug("[settings] %s resolved from environment fallback", targetName)
	}

	if err := validate(target, cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// fromEnv builds a Config from RES_<TARGET>_* environment variables.
// Returns a zero Config when no variable for the target is set.
func (r *Resolver) fromEnv(targetName string) Config {
	prefix := "RES_" + strings.ToUpper(strings.ReplaceAll(targetName, "-", "_")) + "_"

	cfg := Config{
		APIKey:    r.getenv(prefix + "API_KEY"),
		APISecret: r.getenv(prefix + "API_SECRET"),
		Username:  r.getenv(prefix + "USERNAME"),
		Password:  r.getenv(prefix + "PASSWORD"),
		APIURL:    r.getenv(prefix + "API_URL"),
	}
	if cfg.APIKey == "" && cfg.APISecret == "" && cfg.Username == "" &&
		cfg.Password == "" && cfg.APIURL == "" {
		return Config{}
	}

	cfg.Target = targetName
	cfg.Enabled = true
	if pageID := r.getenv(prefix + "PAGE_ID"); pageID != "" {
		cfg.Pages = []PageConfig{{ID: pageID, AccessToken: r.getenv(prefix + "PAGE_TOKEN")}}
	}
	return cfg
}

// validate enforces the per-family required fields. Social page presence is
// deliberately left to the adapter, which owns the "No Facebook pages
// configured" outcome.
func validate(target registry.Target, cfg Config) error {
	switch target.Family {
	case registry.FamilyREST:
		if cfg.APIKey == "" || cfg.APISecret == "" {
			return fmt.Errorf("API credentials not fully configured for %s: apiKey and apiSecret are required: %w",
				target.Name, ErrConfigInvalid)
		}
	case registry.FamilyWordPress:
		if cfg.APIURL == "" || cfg.Username == "" || cfg.Password == "" {
			return fmt.Errorf("WordPress credentials not fully configured: apiUrl, username and password are required: %w",
				ErrConfigInvalid)
		}
	case registry.FamilyBrowser:
		if cfg.Username == "" || cfg.Password == "" {
			return fmt.Errorf("login credentials not fully configured for %s: username and password are required: %w",
				target.Name, ErrConfigInvalid)
		}
	case registry.FamilySocial, registry.FamilyExtension:
		// No mandatory fields at resolution time.
	}
	return nil
}
