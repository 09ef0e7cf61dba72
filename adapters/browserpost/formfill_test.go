package browserpost

import (
	"testing"

	"realestatesync/models"
	"realestatesync/registry"
	"realestatesync/settings"
)

func TestClassifySubmit(t *testing.T) {
	tests := []struct {
		name  string
		state submitState
		want  submitVerdict
	}{
		{
			name:  "success banner",
			state: submitState{HasSuccessBanner: true},
			want:  verdictSuccess,
		},
		{
			name:  "listing link present",
			state: submitState{PostURL: "https://www.merrjep.al/listing/123"},
			want:  verdictSuccess,
		},
		{
			name:  "albanian success phrase",
			state: submitState{PageText: "Njoftimi juaj u publikua me sukses!"},
			want:  verdictSuccess,
		},
		{
			name:  "redirect to listing url",
			state: submitState{URL: "https://indomio.al/property/456"},
			want:  verdictSuccess,
		},
		{
			name:  "error banner",
			state: submitState{HasErrorBanner: true},
			want:  verdictFailure,
		},
		{
			name: "failure phrase beats success banner",
			state: submitState{
				HasSuccessBanner: true,
				PageText:         "Your listing could not be posted due to missing fields",
			},
			want: verdictFailure,
		},
		{
			name:  "no signals",
			state: submitState{URL: "https://www.merrjep.al/post-ad", PageText: "Post your ad"},
			want:  verdictUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifySubmit(tt.state); got != tt.want {
				t.Errorf("classifySubmit() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestHasConnectivityBanner(t *testing.T) {
	if !hasConnectivityBanner("Error: No Internet Connection, please retry") {
		t.Error("english connectivity banner not detected")
	}
	if !hasConnectivityBanner("Nuk ka lidhje interneti") {
		t.Error("albanian connectivity banner not detected")
	}
	if hasConnectivityBanner("Listing posted successfully") {
		t.Error("false positive on success text")
	}
}

func TestSelectorFor(t *testing.T) {
	cfg := settings.Config{AdditionalConfig: map[string]string{
		"selector.title": "#ad-title",
	}}

	if got := selectorFor("title", cfg); got != "#ad-title" {
		t.Errorf("override not applied: %q", got)
	}
	if got := selectorFor("price", cfg); got != "#price" {
		t.Errorf("default not used: %q", got)
	}
}

func TestPostPath(t *testing.T) {
	if got := postPath(registry.Target{Name: "indomio"}, settings.Config{}); got != "/user/properties/add" {
		t.Errorf("indomio path = %q", got)
	}
	if got := postPath(registry.Target{Name: "merrjep"}, settings.Config{}); got != "/post-ad" {
		t.Errorf("merrjep path = %q", got)
	}
	cfg := settings.Config{AdditionalConfig: map[string]string{"postPath": "/publiko"}}
	if got := postPath(registry.Target{Name: "merrjep"}, cfg); got != "/publiko" {
		t.Errorf("override not applied: %q", got)
	}
}

func TestFieldValues(t *testing.T) {
	p := &models.Property{
		Title:        "Garsoniere in Tirana",
		Price:        52000,
		Bedrooms:     1,
		Area:         38.5,
		City:         "Tirana",
		PropertyType: "apartment",
	}
	values := fieldValues(p)

	if values["price"] != "52000.00" {
		t.Errorf("price = %q", values["price"])
	}
	if values["area"] != "38.5" {
		t.Errorf("area = %q", values["area"])
	}
	if values["location"] != "Tirana" {
		t.Errorf("location = %q", values["location"])
	}
}

func TestExtractPostURL(t *testing.T) {
	if got := extractPostURL(submitState{PostURL: "https://x/listing/1", URL: "https://x/done"}); got != "https://x/listing/1" {
		t.Errorf("explicit link not preferred: %q", got)
	}
	if got := extractPostURL(submitState{URL: "https://x/listing/2"}); got != "https://x/listing/2" {
		t.Errorf("url fallback: %q", got)
	}
	if got := extractPostURL(submitState{URL: "https://x/dashboard"}); got != "" {
		t.Errorf("non-listing url must not leak: %q", got)
	}
}
