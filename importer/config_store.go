package importer

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"realestatesync/models"
)

// ErrConfigNotFound is returned when no scraper config exists under the
// requested name.
var ErrConfigNotFound = errors.New("scraper config not found")

// configSchema validates scraper configs before they are stored, so a
// broken config fails at save time instead of mid-import.
var configSchema = jsonschema.MustCompileString("scraper-config.json", `{
	"type": "object",
	"required": ["name", "selectors"],
	"properties": {
		"name": {"type": "string", "minLength": 1},
		"url": {"type": "string"},
		"selectors": {
			"type": "object",
			"minProperties": 1,
			"additionalProperties": {"type": "string", "minLength": 1}
		},
		"fieldMapping": {
			"type": "object",
			"additionalProperties": {"type": "string", "minLength": 1}
		}
	}
}`)

// ConfigStore keeps named scraper configurations in memory.
type ConfigStore struct {
	mu      sync.RWMutex
	configs map[string]models.ScraperConfig
}

// NewConfigStore creates an empty ConfigStore.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{configs: make(map[string]models.ScraperConfig)}
}

// Save validates cfg against the schema and stores it under its name,
// replacing any previous config with that name.
func (s *ConfigStore) Save(cfg models.ScraperConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode scraper config: %w", err)
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("decode scraper config: %w", err)
	}
	if err := configSchema.Validate(v); err != nil {
		return fmt.Errorf("invalid scraper config %q: %w", cfg.Name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[cfg.Name] = cfg
	return nil
}

// Get returns the config stored under name.
func (s *ConfigStore) Get(name string) (models.ScraperConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, ok := s.configs[name]
	if !ok {
		return models.ScraperConfig{}, fmt.Errorf("%w: %q", ErrConfigNotFound, name)
	}
	return cfg, nil
}

// List returns all stored configs sorted by name.
func (s *ConfigStore) List() []models.ScraperConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ScraperConfig, 0, len(s.configs))
	for _, cfg := range s.configs {
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
