package domain

import (
	"context"
	"errors"
)

var (
	// ErrDesignNotFound is returned by a DesignRepository when the requested design does not exist.
	// Fetching, updating and deleting a missing design all report this same error.
	ErrDesignNotFound = errors.New("design not found")
	// ErrMissingDesignID is returned when updating a design that was never persisted.
	ErrMissingDesignID = errors.New("design has no id")
)

// DesignRepository defines the interface for persisting coupler chain designs.
// Implementations must preserve stage order, since it is the propagation order.
type DesignRepository interface {
	// ListDesigns retrieves every design visible to the caller.
	ListDesigns(ctx context.Context) ([]*Chain, error)

	// GetDesign retrieves a single design by its identifier.
	// It returns ErrDesignNotFound if the design does not exist.
	GetDesign(ctx context.Context, id string) (*Chain, error)

	// CreateDesign stores a design that has no identifier yet and returns the assigned one.
	CreateDesign(ctx context.Context, chain *Chain) (string, error)

	// UpdateDesign replaces the stored design identified by chain.ID.
	// It returns ErrDesignNotFound if the design does not exist.
	UpdateDesign(ctx context.Context, chain *Chain) error

	// DeleteDesign removes a design.
	// It returns ErrDesignNotFound if the design does not exist.
	DeleteDesign(ctx context.Context, id string) error
}
