// Package booking holds the booking aggregate, its status state machine and
// the persistence contract for the reservation engine.
package booking

import (
	"time"

	"github.com/gearshare/service-booking/pkg/apperr"
)

// Booking is the aggregate root for the reservation domain: an item reserved
// by a booker for a time window, tracked through the WAITING/APPROVED/REJECTED
// lifecycle.
type Booking struct {
	id       int64
	itemID   int64
	bookerID int64
	start    time.Time
	end      time.Time
	status   Status
}

// NewBooking creates a new booking request with status WAITING. The id stays
// zero until the store assigns one.
func NewBooking(itemID, bookerID int64, start, end time.Time) (*Booking, error) {
	if itemID <= 0 {
		return nil, apperr.NewValidationError("item id is required")
	}
	if bookerID <= 0 {
		return nil, apperr.NewValidationError("booker id is required")
	}
	if start.IsZero() || end.IsZero() {
		return nil, apperr.NewValidationError("start and end are required")
	}
	if !start.Before(end) {
		return nil, apperr.NewValidationError("start must be before end")
	}

	return &Booking{
		itemID:   itemID,
		bookerID: bookerID,
		start:    start,
		end:      end,
		status:   StatusWaiting,
	}, nil
}

// Reconstruct rebuilds a Booking from persistence data (no validation).
func Reconstruct(id, itemID, bookerID int64, start, end time.Time, status Status) *Booking {
	return &Booking{
		id:       id,
		itemID:   itemID,
		bookerID: bookerID,
		start:    start,
		end:      end,
		status:   status,
	}
}

// ID returns the booking's identifier, zero before the store assigns one.
func (b *Booking) ID() int64 { return b.id }

// ItemID returns the reserved item's identifier.
func (b *Booking) ItemID() int64 { return b.itemID }

// BookerID returns the identifier of the user who requested the booking.
func (b *Booking) BookerID() int64 { return b.bookerID }

// Start returns the beginning of the reservation window.
func (b *Booking) Start() time.Time { return b.start }

// End returns the end of the reservation window.
func (b *Booking) End() time.Time { return b.end }

// Status returns the current booking status.
func (b *Booking) Status() Status { return b.status }

// Decide transitions the booking from WAITING to APPROVED or REJECTED. The
// transition is terminal; deciding a decided booking is a conflict.
func (b *Booking) Decide(approve bool) error {
	target := StatusRejected
	if approve {
		target = StatusApproved
	}
	if !b.status.CanTransitionTo(target) {
		return apperr.NewConflictError("booking already decided")
	}
	b.status = target
	return nil
}

// IsCurrent reports whether the reservation window contains now.
func (b *Booking) IsCurrent(now time.Time) bool {
	return !b.start.After(now) && b.end.After(now)
}

// IsPast reports whether the reservation window ended at or before now.
func (b *Booking) IsPast(now time.Time) bool {
	return !b.end.After(now)
}

// IsFuture reports whether the reservation window starts after now.
func (b *Booking) IsFuture(now time.Time) bool {
	return b.start.After(now)
}
