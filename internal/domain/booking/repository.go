package booking

import (
	"context"
	"time"
)

// Repository defines the persistence contract for the reservation engine.
// Listing results are ordered by start descending, ties broken by id
// descending, and paginated by plain offset/limit.
type Repository interface {
	// Create persists a new booking and returns it with the store-assigned id.
	Create(ctx context.Context, b *Booking) (*Booking, error)

	// FindByID retrieves a booking by its identifier.
	FindByID(ctx context.Context, id int64) (*Booking, error)

	// TransitionStatus performs the conditional status write: the row is
	// updated only if its current status equals from. It reports whether a
	// row was updated, so two concurrent decisions can never both succeed.
	TransitionStatus(ctx context.Context, id int64, from, to Status) (bool, error)

	// ListForBooker returns the booker's bookings matching the filter,
	// classified against now.
	ListForBooker(ctx context.Context, bookerID int64, filter StateFilter, now time.Time, offset, limit int) ([]*Booking, error)

	// ListForOwner returns bookings of items owned by ownerID matching the
	// filter, classified against now.
	ListForOwner(ctx context.Context, ownerID int64, filter StateFilter, now time.Time, offset, limit int) ([]*Booking, error)

	// FindLastForItem returns the approved booking with the greatest end
	// before now, or nil if the item has none.
	FindLastForItem(ctx context.Context, itemID int64, now time.Time) (*Booking, error)

	// FindNextForItem returns the approved booking with the smallest start
	// after now, or nil if the item has none.
	FindNextForItem(ctx context.Context, itemID int64, now time.Time) (*Booking, error)

	// FindApprovedAroundForItems returns, in one query, every approved
	// booking for the given items whose window is strictly before or strictly
	// after now. Ongoing windows are excluded by construction.
	FindApprovedAroundForItems(ctx context.Context, itemIDs []int64, now time.Time) ([]*Booking, error)

	// HasCompletedBooking reports whether the user has an approved booking of
	// the item that ended before now.
	HasCompletedBooking(ctx context.Context, itemID, userID int64, now time.Time) (bool, error)
}
