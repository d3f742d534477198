package auth

import (
	"context"
	"database/sql"
	"errors"

	locationrepo "storeops-cloud/internal/locations/infrastructure/postgres"
)

var (
	// ErrTenantMismatch indicates resource belongs to a different tenant.
	ErrTenantMismatch = errors.New("tenant mismatch")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("resource not found")
)

// LocationTenantChecker validates location tenant ownership.
type LocationTenantChecker interface {
	EnsureLocationTenant(ctx context.Context, tenantID, locationID string) error
}

// LocationChecker checks location ownership against the locations context.
type LocationChecker struct {
	repo *locationrepo.LocationRepository
}

// NewLocationChecker constructs a LocationChecker.
func NewLocationChecker(db *sql.DB) *LocationChecker {
	if db == nil {
		return nil
	}
	return &LocationChecker{repo: locationrepo.NewLocationRepository(db)}
}

// EnsureLocationTenant verifies the location belongs to the tenant.
func (c *LocationChecker) EnsureLocationTenant(ctx context.Context, tenantID, locationID string) error {
	if c == nil || c.repo == nil {
		return nil
	}
	if tenantID == "" || locationID == "" {
		return nil
	}
	location, err := c.repo.Get(ctx, locationID)
	if err != nil {
		return err
	}
	if location == nil {
		return ErrNotFound
	}
	if location.TenantID != tenantID {
		return ErrTenantMismatch
	}
	return nil
}
