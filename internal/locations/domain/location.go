package locations

import (
	"context"
	"errors"
	"time"
)

// Location represents one store site in the operations suite.
type Location struct {
	ID        string
	TenantID  string
	Name      string
	Timezone  string
	Region    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks location invariants.
func (l Location) Validate() error {
	if l.ID == "" {
		return errors.New("location: empty id")
	}
	if l.TenantID == "" {
		return errors.New("location: empty tenant id")
	}
	if l.Name == "" {
		return errors.New("location: empty name")
	}
	if l.Timezone == "" {
		return errors.New("location: empty timezone")
	}
	return nil
}

// Repository manages location persistence.
type Repository interface {
	Get(ctx context.Context, id string) (*Location, error)
	Save(ctx context.Context, location *Location) error
}
