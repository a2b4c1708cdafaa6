// Package item holds the item aggregate and its persistence contract. The
// reservation engine reads items only to validate availability and ownership.
package item

import (
	"time"

	"github.com/gearshare/service-booking/pkg/apperr"
)

// Item is the aggregate root for a shareable item.
type Item struct {
	id          int64
	ownerID     int64
	name        string
	description string
	available   bool
	requestID   *int64
}

// NewItem creates a new item with validated fields.
func NewItem(ownerID int64, name, description string, available bool, requestID *int64) (*Item, error) {
	if ownerID <= 0 {
		return nil, apperr.NewValidationError("owner id is required")
	}
	if name == "" {
		return nil, apperr.NewValidationError("item name is required")
	}
	if description == "" {
		return nil, apperr.NewValidationError("item description is required")
	}

	return &Item{
		ownerID:     ownerID,
		name:        name,
		description: description,
		available:   available,
		requestID:   requestID,
	}, nil
}

// Reconstruct rebuilds an Item from persistence data (no validation).
func Reconstruct(id, ownerID int64, name, description string, available bool, requestID *int64) *Item {
	return &Item{
		id:          id,
		ownerID:     ownerID,
		name:        name,
		description: description,
		available:   available,
		requestID:   requestID,
	}
}

// ID returns the item's identifier, zero before the store assigns one.
func (i *Item) ID() int64 { return i.id }

// OwnerID returns the owning user's identifier.
func (i *Item) OwnerID() int64 { return i.ownerID }

// Name returns the item name.
func (i *Item) Name() string { return i.name }

// Description returns the item description.
func (i *Item) Description() string { return i.description }

// Available reports whether the item can currently be booked.
func (i *Item) Available() bool { return i.available }

// RequestID returns the originating item request id, or nil.
func (i *Item) RequestID() *int64 { return i.requestID }

// IsOwnedBy reports whether the given user owns this item.
func (i *Item) IsOwnedBy(userID int64) bool { return i.ownerID == userID }

// ApplyPatch updates the fields present in the patch. Only the owner may
// patch an item; the service enforces that before calling.
func (i *Item) ApplyPatch(name, description *string, available *bool) {
	if name != nil && *name != "" {
		i.name = *name
	}
	if description != nil && *description != "" {
		i.description = *description
	}
	if available != nil {
		i.available = *available
	}
}

// Comment is a review left on an item by a user who completed a booking.
type Comment struct {
	ID         int64
	ItemID     int64
	AuthorID   int64
	AuthorName string
	Text       string
	Created    time.Time
}
