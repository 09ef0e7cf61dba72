package social

import (
	"strings"
	"testing"

	"realestatesync/models"
)

func TestBuildCaption(t *testing.T) {
	p := &models.Property{
		Title:       "House in Shkodra",
		Description: "Two-floor house near the lake.",
		Price:       145000,
		Bedrooms:    4,
		Bathrooms:   2,
		Area:        210,
		Address:     "Rruga e Liqenit",
		City:        "Shkodra",
	}

	caption := BuildCaption(p)

	for _, want := range []string{
		"House in Shkodra",
		"145000.00 EUR",
		"4 bed",
		"2 bath",
		"Rruga e Liqenit, Shkodra",
		"Two-floor house near the lake.",
		"#RealEstate #Property #ForSale",
	} {
		if !strings.Contains(caption, want) {
			t.Errorf("caption missing %q:\n%s", want, caption)
		}
	}
}

func TestTruncateDescription(t *testing.T) {
	long := strings.Repeat("ë", maxDescriptionLen+50)
	got := truncateDescription(long)

	runes := []rune(got)
	if len(runes) != maxDescriptionLen+1 {
		t.Errorf("truncated length = %d runes, want %d + ellipsis", len(runes), maxDescriptionLen)
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("missing ellipsis: %q", got[len(got)-8:])
	}

	short := "Small studio."
	if truncateDescription(short) != short {
		t.Error("short description must pass through unchanged")
	}
}
