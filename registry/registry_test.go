package registry

import (
	"testing"

	"realestatesync/models"
)

func TestGetKnownTargets(t *testing.T) {
	for _, name := range []string{"stub-site", "wordpress", "facebook", "merrjep", "indomio", "njoftime"} {
		target, ok := Get(name)
		if !ok {
			t.Errorf("Get(%q) not found", name)
			continue
		}
		if target.Name != name {
			t.Errorf("Get(%q) returned %q", name, target.Name)
		}
		if target.Family == "" {
			t.Errorf("target %q has no family", name)
		}
	}

	if _, ok := Get("zillow"); ok {
		t.Error("unknown target should not resolve")
	}
}

func TestListOrderIsStable(t *testing.T) {
	first := List()
	second := List()
	if len(first) != len(second) {
		t.Fatalf("List length changed between calls: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Name != second[i].Name {
			t.Errorf("order changed at %d: %q vs %q", i, first[i].Name, second[i].Name)
		}
	}

	// Callers must not be able to mutate the catalog through List.
	first[0].Name = "mutated"
	if fresh := List(); fresh[0].Name == "mutated" {
		t.Error("List should return a copy of the catalog")
	}
}

func TestSeedDistributions(t *testing.T) {
	seeded := SeedDistributions(nil)
	if len(seeded) != len(List()) {
		t.Fatalf("seeded %d entries, want %d", len(seeded), len(List()))
	}
	for name, st := range seeded {
		if st.Status != models.DistributionPending {
			t.Errorf("target %q seeded as %q, want pending", name, st.Status)
		}
	}
}

func TestSeedDistributionsKeepsExisting(t *testing.T) {
	existing := map[string]models.DistributionStatus{
		"wordpress": {Status: models.DistributionSuccess, PostURL: "https://blog.example.com/?p=7"},
	}
	seeded := SeedDistributions(existing)

	if got := seeded["wordpress"]; got.Status != models.DistributionSuccess {
		t.Errorf("existing entry overwritten: %+v", got)
	}
	if got := seeded["facebook"]; got.Status != models.DistributionPending {
		t.Errorf("missing entry not seeded pending: %+v", got)
	}
}
