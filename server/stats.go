package server

import (
	"realestatesync/models"
)

// TargetStats is the per-target distribution breakdown.
type TargetStats struct {
	Pending int `json:"pending"`
	Success int `json:"success"`
	Error   int `json:"error"`
}

// StatsReport summarizes the portfolio and its distribution state.
type StatsReport struct {
	TotalProperties  int                    `json:"totalProperties"`
	Published        int                    `json:"published"`
	AveragePrice     float64                `json:"averagePrice"`
	MinPrice         float64                `json:"minPrice"`
	MaxPrice         float64                `json:"maxPrice"`
	ByTarget         map[string]TargetStats `json:"byTarget"`
	PropertiesByCity map[string]int         `json:"propertiesByCity"`
}

// buildStats aggregates distribution and price statistics over all
// properties. Price stats only count properties with a price set.
func buildStats(properties []*models.Property) *StatsReport {
	report := &StatsReport{
		ByTarget:         make(map[string]TargetStats),
		PropertiesByCity: make(map[string]int),
	}

	report.TotalProperties = len(properties)

	var priced int
	var total float64
	for _, p := range properties {
		if p.Published {
			report.Published++
		}
		if p.City != "" {
			report.PropertiesByCity[p.City]++
		}

		if p.Price > 0 {
			priced++
			total += p.Price
			if report.MinPrice == 0 || p.Price < report.MinPrice {
				report.MinPrice = p.Price
			}
			if p.Price > report.MaxPrice {
				report.MaxPrice = p.Price
			}
		}

		for target, st := range p.Distributions {
			stats := report.ByTarget[target]
			switch st.Status {
			case models.DistributionSuccess:
				stats.Success++
			case models.DistributionError:
				stats.Error++
			default:
				stats.Pending++
			}
			report.ByTarget[target] = stats
		}
	}

	if priced > 0 {
		report.AveragePrice = round2(total / float64(priced))
		report.MinPrice = round2(report.MinPrice)
		report.MaxPrice = round2(report.MaxPrice)
	}
	return report
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}
