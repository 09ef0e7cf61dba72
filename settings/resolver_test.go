package settings

import (
	"context"
	"errors"
	"strings"
	"testing"

	"realestatesync/utils"
)

func noEnv(string) string { return "" }

func TestResolveFromStore(t *testing.T) {
	store := NewMemoryStore()
	if err := store.Upsert(context.Background(), Config{
		Target:    "stub-site",
		Enabled:   true,
		APIKey:    "key",
		APISecret: "secret",
	}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	r := NewResolver(store, utils.NewTestLogger()).WithEnv(noEnv)
	cfg, err := r.Resolve(context.Background(), "stub-site")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.APIKey != "key" || cfg.APISecret != "secret" {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestResolveDisabledTarget(t *testing.T) {
	store := NewMemoryStore()
	_ = store.Upsert(context.Background(), Config{
		Target: "stub-site", Enabled: false, APIKey: "key", APISecret: "secret",
	})

	r := NewResolver(store, utils.NewTestLogger()).WithEnv(noEnv)
	_, err := r.Resolve(context.Background(), "stub-site")
	if !errors.Is(err, ErrTargetDisabled) {
		t.Errorf("want ErrTargetDisabled, got %v", err)
	}
}

func TestResolveEnvFallback(t *testing.T) {
	env := map[string]string{
		"RES_STUB_SITE_API_KEY":    "env-key",
		"RES_STUB_SITE_API_SECRET": "env-secret",
	}
	r := NewResolver(NewMemoryStore(), utils.NewTestLogger()).
		WithEnv(func(k string) string { return env[k] })

	cfg, err := r.Resolve(context.Background(), "stub-site")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.APIKey != "env-key" {
		t.Errorf("env fallback not applied: %+v", cfg)
	}
}

func TestResolveMissingConfig(t *testing.T) {
	r := NewResolver(NewMemoryStore(), utils.NewTestLogger()).WithEnv(noEnv)
	_, err := r.Resolve(context.Background(), "merrjep")
	if !errors.Is(err, ErrConfigMissing) {
		t.Errorf("want ErrConfigMissing, got %v", err)
	}
}

func TestResolveUnknownTarget(t *testing.T) {
	r := NewResolver(NewMemoryStore(), utils.NewTestLogger()).WithEnv(noEnv)
	_, err := r.Resolve(context.Background(), "zillow")
	if !errors.Is(err, ErrConfigMissing) {
		t.Errorf("want ErrConfigMissing, got %v", err)
	}
}

func TestResolveExtensionNeedsNoCredentials(t *testing.T) {
	r := NewResolver(NewMemoryStore(), utils.NewTestLogger()).WithEnv(noEnv)
	cfg, err := r.Resolve(context.Background(), "njoftime")
	if err != nil {
		t.Fatalf("extension target should resolve without settings: %v", err)
	}
	if !cfg.Enabled {
		t.Error("resolved extension config should be enabled")
	}
}

func TestResolveValidation(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		cfg     Config
		wantMsg string
	}{
		{
			name:    "wordpress missing password",
			target:  "wordpress",
			cfg:     Config{Target: "wordpress", Enabled: true, APIURL: "https://blog.example.com", Username: "admin"},
			wantMsg: "WordPress credentials not fully configured",
		},
		{
			name:    "rest missing secret",
			target:  "stub-site",
			cfg:     Config{Target: "stub-site", Enabled: true, APIKey: "key"},
			wantMsg: "API credentials not fully configured",
		},
		{
			name:    "browser missing credentials",
			target:  "merrjep",
			cfg:     Config{Target: "merrjep", Enabled: true, Username: "agent"},
			wantMsg: "login credentials not fully configured",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore()
			_ = store.Upsert(context.Background(), tt.cfg)
			r := NewResolver(store, utils.NewTestLogger()).WithEnv(noEnv)

			_, err := r.Resolve(context.Background(), tt.target)
			if !errors.Is(err, ErrConfigInvalid) {
				t.Fatalf("want ErrConfigInvalid, got %v", err)
			}
			if !strings.HasPrefix(err.Error(), tt.wantMsg) {
				t.Errorf("error %q should start with %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestResolveSocialWithoutPagesPasses(t *testing.T) {
	// Page presence is the adapter's concern; resolution must not block it.
	store := NewMemoryStore()
	_ = store.Upsert(context.Background(), Config{Target: "facebook", Enabled: true})

	r := NewResolver(store, utils.NewTestLogger()).WithEnv(noEnv)
	if _, err := r.Resolve(context.Background(), "facebook"); err != nil {
		t.Errorf("social config without pages should resolve: %v", err)
	}
}
