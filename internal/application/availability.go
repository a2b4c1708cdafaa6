package application

import (
	"context"
	"time"

	bookingDomain "github.com/gearshare/service-booking/internal/domain/booking"
)

// LastNext pairs an item's most recently completed and nearest upcoming
// approved bookings relative to one instant. Either side may be nil.
type LastNext struct {
	Last *bookingDomain.Booking
	Next *bookingDomain.Booking
}

// AvailabilityAggregator computes last/next approved bookings for items. The
// single-item and batch paths must classify identically for the same
// item/now pair; an approved booking whose window contains now belongs to
// neither side.
type AvailabilityAggregator struct {
	bookings bookingDomain.Repository
}

// NewAvailabilityAggregator creates a new AvailabilityAggregator.
func NewAvailabilityAggregator(bookings bookingDomain.Repository) *AvailabilityAggregator {
	return &AvailabilityAggregator{bookings: bookings}
}

// ForItem computes the last and next approved bookings of a single item.
func (a *AvailabilityAggregator) ForItem(ctx context.Context, itemID int64, now time.Time) (LastNext, error) {
	last, err := a.bookings.FindLastForItem(ctx, itemID, now)
	if err != nil {
		return LastNext{}, err
	}
	next, err := a.bookings.FindNextForItem(ctx, itemID, now)
	if err != nil {
		return LastNext{}, err
	}
	return LastNext{Last: last, Next: next}, nil
}

// ForItems computes last/next pairs for a batch of items in one store query:
// candidate approved bookings are grouped by item, then reduced by max end
// and min start. Items without candidates map to an empty pair.
func (a *AvailabilityAggregator) ForItems(ctx context.Context, itemIDs []int64, now time.Time) (map[int64]LastNext, error) {
	result := make(map[int64]LastNext, len(itemIDs))
	for _, id := range itemIDs {
		result[id] = LastNext{}
	}
	if len(itemIDs) == 0 {
		return result, nil
	}

	candidates, err := a.bookings.FindApprovedAroundForItems(ctx, itemIDs, now)
	if err != nil {
		return nil, err
	}

	for _, b := range candidates {
		pair := result[b.ItemID()]
		switch {
		case b.End().Before(now):
			if pair.Last == nil || b.End().After(pair.Last.End()) {
				pair.Last = b
			}
		case b.Start().After(now):
			if pair.Next == nil || b.Start().Before(pair.Next.Start()) {
				pair.Next = b
			}
		}
		result[b.ItemID()] = pair
	}
	return result, nil
}
