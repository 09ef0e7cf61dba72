package models

import "time"

// Distribution status values for a (property, target) pair.
const (
	DistributionPending = "pending"
	DistributionSuccess = "success"
	DistributionError   = "error"
)

// DistributionStatus records the outcome of publishing one property to one
// target. Status "success" implies Error is empty; "error" implies Error is
// non-empty. PostURL is set only on success, and only when the target
// exposes a link to the live listing.
type DistributionStatus struct {
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	PostURL string `json:"postUrl,omitempty"`
}

// Property is a real-estate listing managed by the application.
// Distributions holds one entry per known target from the moment the
// property is created; entries start out pending and are mutated only by
// the publication orchestrator.
type Property struct {
	ID           string                        `json:"id"`
	Title        string                        `json:"title"`
	Description  string                        `json:"description"`
	Price        float64                       `json:"price"`
	Bedrooms     int                           `json:"bedrooms"`
	Bathrooms    int                           `json:"bathrooms"`
	Area         float64                       `json:"area"`
	Address      string                        `json:"address"`
	City         string                        `json:"city"`
	State        string                        `json:"state"`
	Zip          string                        `json:"zip"`
	PropertyType string                        `json:"propertyType"`
	Features     []string                      `json:"features"`
	Images       []string                      `json:"images"`
	ContactPhone string                        `json:"contactPhone"`
	ContactEmail string                        `json:"contactEmail"`
	Published    bool                          `json:"published"`
	Distributions map[string]DistributionStatus `json:"distributions"`
	CreatedAt    time.Time                     `json:"createdAt"`
	UpdatedAt    time.Time                     `json:"updatedAt"`
}

// Clone returns a deep copy of the property. Stores hand out clones so
// callers can never mutate persisted state behind the store's back.
func (p *Property) Clone() *Property {
	cp := *p
	cp.Features = append([]string(nil), p.Features...)
	cp.Images = append([]string(nil), p.Images...)
	cp.Distributions = make(map[string]DistributionStatus, len(p.Distributions))
	for k, v := range p.Distributions {
		cp.Distributions[k] = v
	}
	return &cp
}

// Location renders the human-readable location line used in listing
// payloads and captions.
func (p *Property) Location() string {
	parts := make([]string, 0, 4)
	for _, s := range []string{p.Address, p.City, p.State, p.Zip} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	out := parts[0]
	for _, s := range parts[1:] {
		out += ", " + s
	}
	return out
}
