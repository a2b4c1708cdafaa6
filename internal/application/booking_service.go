// Package application contains the use-case services orchestrating the
// reservation engine: booking lifecycle, availability aggregation, item and
// user management.
package application

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/gearshare/service-booking/internal/clock"
	bookingDomain "github.com/gearshare/service-booking/internal/domain/booking"
	itemDomain "github.com/gearshare/service-booking/internal/domain/item"
	userDomain "github.com/gearshare/service-booking/internal/domain/user"
	"github.com/gearshare/service-booking/internal/events"
	"github.com/gearshare/service-booking/pkg/apperr"
	"github.com/gearshare/service-booking/pkg/kafka"
)

const eventSource = "service-booking"

// EventPublisher publishes CloudEvents to a topic. Satisfied by kafka.Producer.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, event kafka.CloudEvent) error
}

// BookingService drives the booking lifecycle: it validates requests against
// the user and item stores, runs the status state machine, and answers the
// temporal listing queries.
type BookingService struct {
	bookings  bookingDomain.Repository
	items     itemDomain.Repository
	users     userDomain.Repository
	clock     clock.Clock
	publisher EventPublisher
	logger    *zap.Logger
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	bookings bookingDomain.Repository,
	items itemDomain.Repository,
	users userDomain.Repository,
	clk clock.Clock,
	publisher EventPublisher,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		bookings:  bookings,
		items:     items,
		users:     users,
		clock:     clk,
		publisher: publisher,
		logger:    logger,
	}
}

// Create validates and persists a new booking request with status WAITING.
// The item's availability flag is read-only here; booking an item does not
// flip it.
func (s *BookingService) Create(ctx context.Context, bookerID int64, req CreateBookingRequest) (*BookingDTO, error) {
	booker, err := s.users.FindByID(ctx, bookerID)
	if err != nil {
		return nil, err
	}

	item, err := s.items.FindByID(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}

	if !item.Available() {
		return nil, apperr.NewConflictError("item is not available for booking")
	}
	if item.IsOwnedBy(bookerID) {
		return nil, apperr.NewForbiddenError("owner cannot book their own item")
	}

	b, err := bookingDomain.NewBooking(req.ItemID, bookerID, req.Start, req.End)
	if err != nil {
		return nil, err
	}

	stored, err := s.bookings.Create(ctx, b)
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking created",
		zap.Int64("booking_id", stored.ID()),
		zap.Int64("item_id", stored.ItemID()),
		zap.Int64("booker_id", bookerID),
	)

	s.publishEvent(ctx, events.BookingCreated, stored.ID(), events.BookingCreatedEvent{
		BookingID:  stored.ID(),
		ItemID:     stored.ItemID(),
		BookerID:   stored.BookerID(),
		OwnerID:    item.OwnerID(),
		Start:      stored.Start(),
		End:        stored.End(),
		OccurredAt: time.Now().UTC(),
	})

	result := toBookingDTO(stored, booker, item)
	return &result, nil
}

// Decide transitions a WAITING booking to APPROVED or REJECTED. Only the
// item's owner may decide, and only once: the transition is a conditional
// write guarded by the prior status, so of two concurrent decisions exactly
// one succeeds and the other observes a conflict.
func (s *BookingService) Decide(ctx context.Context, bookingID int64, approve bool, actorID int64) (*BookingDTO, error) {
	b, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	item, err := s.items.FindByID(ctx, b.ItemID())
	if err != nil {
		return nil, err
	}

	if !item.IsOwnedBy(actorID) {
		return nil, apperr.NewForbiddenError("only the item owner can decide a booking")
	}
	if b.Status() != bookingDomain.StatusWaiting {
		return nil, apperr.NewConflictError("booking already decided")
	}

	// Resolve the booker before the conditional write so a failed lookup
	// cannot leave a committed transition without its event.
	booker, err := s.users.FindByID(ctx, b.BookerID())
	if err != nil {
		return nil, err
	}

	target := bookingDomain.StatusRejected
	eventType := events.BookingRejected
	if approve {
		target = bookingDomain.StatusApproved
		eventType = events.BookingApproved
	}

	updated, err := s.bookings.TransitionStatus(ctx, bookingID, bookingDomain.StatusWaiting, target)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, apperr.NewConflictError("booking already decided")
	}

	if err := b.Decide(approve); err != nil {
		return nil, err
	}

	s.logger.Info("booking decided",
		zap.Int64("booking_id", bookingID),
		zap.String("status", string(target)),
		zap.Int64("owner_id", actorID),
	)

	s.publishEvent(ctx, eventType, bookingID, events.BookingDecidedEvent{
		BookingID:  bookingID,
		ItemID:     b.ItemID(),
		BookerID:   b.BookerID(),
		OwnerID:    actorID,
		Status:     string(target),
		OccurredAt: time.Now().UTC(),
	})

	result := toBookingDTO(b, booker, item)
	return &result, nil
}

// Get retrieves a booking visible to the booker or the item owner. Anyone
// else gets a not-found, so unrelated users cannot probe booking existence.
func (s *BookingService) Get(ctx context.Context, bookingID, actorID int64) (*BookingDTO, error) {
	b, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	item, err := s.items.FindByID(ctx, b.ItemID())
	if err != nil {
		return nil, err
	}

	if b.BookerID() != actorID && !item.IsOwnedBy(actorID) {
		return nil, apperr.NewNotFoundError("booking", bookingID)
	}

	booker, err := s.users.FindByID(ctx, b.BookerID())
	if err != nil {
		return nil, err
	}

	result := toBookingDTO(b, booker, item)
	return &result, nil
}

// ListForBooker returns the booker's bookings under the given state filter,
// ordered by start descending. Classification uses one clock reading.
func (s *BookingService) ListForBooker(ctx context.Context, bookerID int64, state string, from, size int) ([]BookingDTO, error) {
	filter, err := s.validateListing(ctx, bookerID, state, from, size)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	bookings, err := s.bookings.ListForBooker(ctx, bookerID, filter, now, from, size)
	if err != nil {
		return nil, err
	}
	return s.toBookingDTOs(ctx, bookings)
}

// ListForOwner returns bookings of the owner's items under the given state
// filter, ordered by start descending.
func (s *BookingService) ListForOwner(ctx context.Context, ownerID int64, state string, from, size int) ([]BookingDTO, error) {
	filter, err := s.validateListing(ctx, ownerID, state, from, size)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	bookings, err := s.bookings.ListForOwner(ctx, ownerID, filter, now, from, size)
	if err != nil {
		return nil, err
	}
	return s.toBookingDTOs(ctx, bookings)
}

func (s *BookingService) validateListing(ctx context.Context, actorID int64, state string, from, size int) (bookingDomain.StateFilter, error) {
	if from < 0 {
		return "", apperr.NewValidationError("from must not be negative")
	}
	if size <= 0 {
		return "", apperr.NewValidationError("size must be positive")
	}

	filter, err := bookingDomain.ParseStateFilter(state)
	if err != nil {
		return "", err
	}

	exists, err := s.users.ExistsByID(ctx, actorID)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", apperr.NewNotFoundError("user", actorID)
	}
	return filter, nil
}

// toBookingDTOs resolves bookers and items for a page of bookings in two
// batched lookups.
func (s *BookingService) toBookingDTOs(ctx context.Context, bookings []*bookingDomain.Booking) ([]BookingDTO, error) {
	itemIDs := make([]int64, 0, len(bookings))
	bookerIDs := make([]int64, 0, len(bookings))
	seenItems := make(map[int64]bool)
	seenBookers := make(map[int64]bool)
	for _, b := range bookings {
		if !seenItems[b.ItemID()] {
			seenItems[b.ItemID()] = true
			itemIDs = append(itemIDs, b.ItemID())
		}
		if !seenBookers[b.BookerID()] {
			seenBookers[b.BookerID()] = true
			bookerIDs = append(bookerIDs, b.BookerID())
		}
	}

	items, err := s.items.FindByIDs(ctx, itemIDs)
	if err != nil {
		return nil, err
	}
	bookers, err := s.users.FindByIDs(ctx, bookerIDs)
	if err != nil {
		return nil, err
	}

	dtos := make([]BookingDTO, 0, len(bookings))
	for _, b := range bookings {
		item, ok := items[b.ItemID()]
		if !ok {
			return nil, apperr.NewNotFoundError("item", b.ItemID())
		}
		booker, ok := bookers[b.BookerID()]
		if !ok {
			return nil, apperr.NewNotFoundError("user", b.BookerID())
		}
		dtos = append(dtos, toBookingDTO(b, booker, item))
	}
	return dtos, nil
}

// publishEvent publishes a booking lifecycle event. Publish failures are
// logged and never fail the request.
func (s *BookingService) publishEvent(ctx context.Context, eventType string, bookingID int64, data any) {
	if s.publisher == nil {
		return
	}

	cloudEvent, err := kafka.NewCloudEvent(eventSource, eventType, data)
	if err != nil {
		s.logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}

	if err := s.publisher.PublishEvent(ctx, events.TopicBookingEvents, cloudEvent); err != nil {
		s.logger.Error("failed to publish event",
			zap.String("event_type", eventType),
			zap.Int64("booking_id", bookingID),
			zap.Error(err),
		)
	}
}
