package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"realestatesync/models"
)

// WriteCSV renders properties with a per-target distribution summary as
// CSV, used by the export endpoint.
func WriteCSV(w io.Writer, properties []*models.Property) error {
	cw := csv.NewWriter(w)

	header := []string{"id", "title", "price", "bedrooms", "bathrooms", "area",
		"city", "property_type", "published", "distributions"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}

	for _, p := range properties {
		record := []string{
			p.ID,
			p.Title,
			strconv.FormatFloat(p.Price, 'f', 2, 64),
			strconv.Itoa(p.Bedrooms),
			strconv.Itoa(p.Bathrooms),
			strconv.FormatFloat(p.Area, 'f', 2, 64),
			p.City,
			p.PropertyType,
			strconv.FormatBool(p.Published),
			summarizeDistributions(p.Distributions),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("csv: write record: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// summarizeDistributions renders "target=status" pairs in stable order.
func summarizeDistributions(distributions map[string]models.DistributionStatus) string {
	if len(distributions) == 0 {
		return ""
	}
	keys := make([]string, 0, len(distributions))
	for k := range distributions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+distributions[k].Status)
	}
	return strings.Join(parts, ";")
}
