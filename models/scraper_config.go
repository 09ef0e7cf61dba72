package models

// ScraperConfig is a named set of CSS selectors plus a mapping from scraped
// field name to Property field name, used by the import pipeline.
type ScraperConfig struct {
	Name         string            `json:"name"`
	URL          string            `json:"url"`
	Selectors    map[string]string `json:"selectors"`
	FieldMapping map[string]string `json:"fieldMapping"`
}
