package adapters

import (
	"strconv"

	"realestatesync/models"
)

// ListingPayload is the normalized listing representation sent to
// REST-style integrations. Field order and formatting are deterministic so
// the same property always produces the same payload.
type ListingPayload struct {
	ExternalID  string   `json:"externalId"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Price       string   `json:"price"`
	Currency    string   `json:"currency"`
	Bedrooms    int      `json:"bedrooms"`
	Bathrooms   int      `json:"bathrooms"`
	Area        float64  `json:"area"`
	Location    string   `json:"location"`
	City        string   `json:"city"`
	Type        string   `json:"type"`
	Features    []string `json:"features"`
	Images      []string `json:"images"`
}

// BuildListingPayload converts a property to the normalized wire form.
// Price formatting is locale-stable: fixed two decimals, no grouping, with
// an explicit currency code.
func BuildListingPayload(p *models.Property) ListingPayload {
	return ListingPayload{
		ExternalID:  p.ID,
		Title:       p.Title,
		Description: p.Description,
		Price:       FormatPrice(p.Price),
		Currency:    "EUR",
		Bedrooms:    p.Bedrooms,
		Bathrooms:   p.Bathrooms,
		Area:        p.Area,
		Location:    p.Location(),
		City:        p.City,
		Type:        p.PropertyType,
		Features:    p.Features,
		Images:      p.Images,
	}
}

// FormatPrice renders a price with fixed two decimals and no grouping.
func FormatPrice(price float64) string {
	return strconv.FormatFloat(price, 'f', 2, 64)
}
