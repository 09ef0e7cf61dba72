// Package storage owns property persistence, including the distribution
// state each property carries per target.
package storage

import (
	"context"
	"errors"

	"realestatesync/models"
)

// ErrNotFound is returned when a property id does not exist. Unlike
// adapter failures this propagates to the API caller as a hard error.
var ErrNotFound = errors.New("property not found")

// PropertyStore is the persistence contract for properties.
// UpdateDistributions must apply its merge atomically per property row:
// concurrent publishes of the same property must not lose each other's
// writes.
type PropertyStore interface {
	Create(ctx context.Context, p *models.Property) error
	Get(ctx context.Context, id string) (*models.Property, error)
	List(ctx context.Context) ([]*models.Property, error)
	Update(ctx context.Context, p *models.Property) error
	Delete(ctx context.Context, id string) error

	// UpdateDistributions merges the given per-target results into the
	// property's existing distribution map (map union; untouched targets
	// keep their previous status), sets the published flag, and returns
	// the updated property.
	UpdateDistributions(ctx context.Context, id string, merge map[string]models.DistributionStatus, published bool) (*models.Property, error)
}
