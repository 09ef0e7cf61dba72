// Package registry holds the static catalog of publishable destinations.
// The registry is data only: each target declares its adapter family and
// the orchestrator selects behavior from that, so no string-switching on
// target names leaks into the rest of the codebase.
package registry

import "realestatesync/models"

// Family identifies which adapter implementation serves a target.
type Family string

const (
	FamilyREST      Family = "rest"
	FamilyWordPress Family = "wordpress"
	FamilySocial    Family = "social"
	FamilyBrowser   Family = "browser"
	FamilyExtension Family = "extension"
)

// Target is a named external destination a property can be published to.
type Target struct {
	Name         string `json:"name"`
	BaseURL      string `json:"baseUrl"`
	RequiresAuth bool   `json:"requiresAuth"`
	Family       Family `json:"family"`
}

// targets is the fixed catalog, in publish order. Order is stable so that
// sequential publishes and test expectations are deterministic.
var targets = []Target{
	{Name: "stub-site", BaseURL: "https://stub-site.example.com", RequiresAuth: true, Family: FamilyREST},
	{Name: "wordpress", BaseURL: "", RequiresAuth: true, Family: FamilyWordPress},
	{Name: "facebook", BaseURL: "https://graph.facebook.com/v19.0", RequiresAuth: true, Family: FamilySocial},
	{Name: "merrjep", BaseURL: "https://www.merrjep.al", RequiresAuth: true, Family: FamilyBrowser},
	{Name: "indomio", BaseURL: "https://indomio.al", RequiresAuth: true, Family: FamilyBrowser},
	{Name: "njoftime", BaseURL: "https://njoftime.com", RequiresAuth: false, Family: FamilyExtension},
}

// List returns the target catalog in stable publish order.
func List() []Target {
	out := make([]Target, len(targets))
	copy(out, targets)
	return out
}

// Get looks up a target by name.
func Get(name string) (Target, bool) {
	for _, t := range targets {
		if t.Name == name {
			return t, true
		}
	}
	return Target{}, false
}

// SeedDistributions returns a distribution map containing a pending entry
// for every known target, preserving any entries already present. Called
// on property creation and import so the "one entry per target" invariant
// holds from the start.
func SeedDistributions(existing map[string]models.DistributionStatus) map[string]models.DistributionStatus {
	out := make(map[string]models.DistributionStatus, len(targets))
	for _, t := range targets {
		if st, ok := existing[t.Name]; ok {
			out[t.Name] = st
			continue
		}
		out[t.Name] = models.DistributionStatus{Status: models.DistributionPending}
	}
	return out
}
