package models

import "testing"

func TestCloneIsDeep(t *testing.T) {
	p := &Property{
		ID:       "p-1",
		Features: []string{"garden"},
		Images:   []string{"a.jpg"},
		Distributions: map[string]DistributionStatus{
			"wordpress": {Status: DistributionPending},
		},
	}

	cp := p.Clone()
	cp.Features[0] = "pool"
	cp.Images = append(cp.Images, "b.jpg")
	cp.Distributions["wordpress"] = DistributionStatus{Status: DistributionSuccess}

	if p.Features[0] != "garden" {
		t.Error("features shared between clone and original")
	}
	if len(p.Images) != 1 {
		t.Error("images shared between clone and original")
	}
	if p.Distributions["wordpress"].Status != DistributionPending {
		t.Error("distributions shared between clone and original")
	}
}

func TestLocation(t *testing.T) {
	tests := []struct {
		name string
		p    Property
		want string
	}{
		{"full", Property{Address: "Rruga Myslym Shyri", City: "Tirana", State: "AL", Zip: "1001"}, "Rruga Myslym Shyri, Tirana, AL, 1001"},
		{"city only", Property{City: "Durres"}, "Durres"},
		{"empty", Property{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.Location(); got != tt.want {
				t.Errorf("Location() = %q, want %q", got, tt.want)
			}
		})
	}
}
