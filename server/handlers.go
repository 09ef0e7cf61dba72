package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"realestatesync/importer"
	"realestatesync/models"
	"realestatesync/orchestrator"
	"realestatesync/registry"
	"realestatesync/settings"
	"realestatesync/storage"
	"realestatesync/utils"
)

// RelayStatus is the one bit of relay state the HTTP surface reports.
type RelayStatus interface {
	Connected() bool
}

// Handlers carries the application services behind the HTTP surface.
type Handlers struct {
	logger   *utils.Logger
	store    storage.PropertyStore
	settings settings.Store
	orch     *orchestrator.Orchestrator
	importer *importer.Importer
	configs  *importer.ConfigStore
	relay    RelayStatus
}

// NewHandlers wires the HTTP handlers.
func NewHandlers(
	logger *utils.Logger,
	store storage.PropertyStore,
	settingsStore settings.Store,
	orch *orchestrator.Orchestrator,
	imp *importer.Importer,
	configs *importer.ConfigStore,
	relay RelayStatus,
) *Handlers {
	return &Handlers{
		logger:   logger,
		store:    store,
		settings: settingsStore,
		orch:     orch,
		importer: imp,
		configs:  configs,
		relay:    relay,
	}
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":             "ok",
		"extensionConnected": h.relay.Connected(),
	})
}

// --- properties -----------------------------------------------------------

func (h *Handlers) ListProperties(w http.ResponseWriter, r *http.Request) {
	properties, err := h.store.List(r.Context())
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, properties)
}

func (h *Handlers) CreateProperty(w http.ResponseWriter, r *http.Request) {
	var p models.Property
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid property payload: "+err.Error())
		return
	}
	if p.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	p.Published = false
	p.Distributions = registry.SeedDistributions(nil)

	if err := h.store.Create(r.Context(), &p); err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, &p)
}

func (h *Handlers) GetProperty(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handlers) UpdateProperty(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	existing, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.storeError(w, r, err)
		return
	}

	var p models.Property
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid property payload: "+err.Error())
		return
	}
	if p.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	// Distribution state and publish flag belong to the orchestrator;
	// edits through this endpoint never touch them.
	p.ID = id
	p.Published = existing.Published
	p.Distributions = existing.Distributions
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now()

	if err := h.store.Update(r.Context(), &p); err != nil {
		h.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, &p)
}

func (h *Handlers) DeleteProperty(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.storeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type publishRequest struct {
	Target string `json:"target"`
}

// PublishProperty runs a publish to one target or, with target "all" (the
// default), to every target. The response always carries the full updated
// property; per-target failures live in its distribution map, not in the
// HTTP status.
func (h *Handlers) PublishProperty(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid publish payload: "+err.Error())
			return
		}
	}
	if req.Target == "" {
		req.Target = orchestrator.TargetAll
	}

	p, err := h.orch.Publish(r.Context(), chi.URLParam(r, "id"), req.Target)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, orchestrator.ErrUnknownTarget):
			writeError(w, http.StatusNotFound, err.Error())
		default:
			h.internalError(w, r, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handlers) ExportCSV(w http.ResponseWriter, r *http.Request) {
	properties, err := h.store.List(r.Context())
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="properties.csv"`)
	if err := storage.WriteCSV(w, properties); err != nil {
		h.logger.Error("[http] csv export failed: %v", err)
	}
}

func (h *Handlers) DistributionStats(w http.ResponseWriter, r *http.Request) {
	properties, err := h.store.List(r.Context())
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, buildStats(properties))
}

// --- targets and settings -------------------------------------------------

func (h *Handlers) ListTargets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, registry.List())
}

func (h *Handlers) TestTarget(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "target")
	if err := h.orch.TestTarget(r.Context(), target); err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, orchestrator.ErrUnknownTarget):
			status = http.StatusNotFound
		case errors.Is(err, settings.ErrConfigMissing),
			errors.Is(err, settings.ErrConfigInvalid),
			errors.Is(err, settings.ErrTargetDisabled):
			status = http.StatusUnprocessableEntity
		}
		writeJSON(w, status, map[string]any{"target": target, "ok": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"target": target, "ok": true})
}

func (h *Handlers) GetAllSettings(w http.ResponseWriter, r *http.Request) {
	all, err := h.settings.GetAll(r.Context())
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	redacted := make(map[string]settings.Config, len(all))
	for name, cfg := range all {
		redacted[name] = redact(cfg)
	}
	writeJSON(w, http.StatusOK, redacted)
}

func (h *Handlers) GetTargetSettings(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "target")
	if _, ok := registry.Get(target); !ok {
		writeError(w, http.StatusNotFound, "unknown target "+target)
		return
	}

	cfg, found, err := h.settings.Get(r.Context(), target)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "no settings stored for "+target)
		return
	}
	writeJSON(w, http.StatusOK, redact(cfg))
}

func (h *Handlers) PutTargetSettings(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "target")
	if _, ok := registry.Get(target); !ok {
		writeError(w, http.StatusNotFound, "unknown target "+target)
		return
	}

	var cfg settings.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid settings payload: "+err.Error())
		return
	}
	cfg.Target = target

	if err := h.settings.Upsert(r.Context(), cfg); err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, redact(cfg))
}

// redact blanks out secrets for read responses. Presence is signalled so
// the settings UI can tell "saved" from "empty".
func redact(cfg settings.Config) settings.Config {
	if cfg.APISecret != "" {
		cfg.APISecret = "********"
	}
	if cfg.Password != "" {
		cfg.Password = "********"
	}
	for i := range cfg.Pages {
		if cfg.Pages[i].AccessToken != "" {
			cfg.Pages[i].AccessToken = "********"
		}
	}
	return cfg
}

// --- import ---------------------------------------------------------------

type importRequest struct {
	Config string `json:"config"`
	URL    string `json:"url"`
}

// ImportProperty scrapes a listing page into a new draft property.
func (h *Handlers) ImportProperty(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid import payload: "+err.Error())
		return
	}
	if req.Config == "" {
		writeError(w, http.StatusBadRequest, "config is required")
		return
	}

	p, err := h.importer.Import(r.Context(), req.Config, req.URL)
	if err != nil {
		if errors.Is(err, importer.ErrConfigNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	if err := h.store.Create(r.Context(), p); err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handlers) ListScraperConfigs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.configs.List())
}

func (h *Handlers) SaveScraperConfig(w http.ResponseWriter, r *http.Request) {
	var cfg models.ScraperConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid scraper config: "+err.Error())
		return
	}
	if err := h.configs.Save(cfg); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, cfg)
}

// --- helpers --------------------------------------------------------------

func (h *Handlers) storeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	h.internalError(w, r, err)
}

func (h *Handlers) internalError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("[http] %s %s failed: %v", r.Method, r.URL.Path, err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
