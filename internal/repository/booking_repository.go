// Package repository contains the GORM-backed implementations of the domain
// persistence contracts.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	bookingDomain "github.com/gearshare/service-booking/internal/domain/booking"
	"github.com/gearshare/service-booking/pkg/apperr"
)

// BookingModel is the GORM model for the bookings table.
type BookingModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	ItemID    int64     `gorm:"not null;index"`
	BookerID  int64     `gorm:"not null;index"`
	StartTime time.Time `gorm:"not null;index"`
	EndTime   time.Time `gorm:"not null;index"`
	Status    string    `gorm:"not null;size:10;index"`
}

// TableName returns the table name for the GORM model.
func (BookingModel) TableName() string {
	return "bookings"
}

// GormBookingRepository is the GORM-based implementation of booking.Repository.
type GormBookingRepository struct {
	db *gorm.DB
}

// NewGormBookingRepository creates a new GormBookingRepository.
func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

// Create persists a new booking and returns it with the assigned id.
func (r *GormBookingRepository) Create(ctx context.Context, b *bookingDomain.Booking) (*bookingDomain.Booking, error) {
	model := toBookingModel(b)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}
	return toDomainBooking(model)
}

// FindByID retrieves a booking by its identifier.
func (r *GormBookingRepository) FindByID(ctx context.Context, id int64) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NewNotFoundError("booking", id)
		}
		return nil, fmt.Errorf("failed to find booking by id: %w", err)
	}
	return toDomainBooking(&model)
}

// TransitionStatus updates the booking's status only if the row still holds
// the expected prior status. The conditional write serializes concurrent
// decisions on the same booking: exactly one caller observes a row update.
func (r *GormBookingRepository) TransitionStatus(ctx context.Context, id int64, from, to bookingDomain.Status) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&BookingModel{}).
		Where("id = ? AND status = ?", id, string(from)).
		Update("status", string(to))

	if result.Error != nil {
		return false, fmt.Errorf("failed to transition booking status: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ListForBooker retrieves the booker's bookings matching the filter.
func (r *GormBookingRepository) ListForBooker(ctx context.Context, bookerID int64, filter bookingDomain.StateFilter, now time.Time, offset, limit int) ([]*bookingDomain.Booking, error) {
	query := r.db.WithContext(ctx).Model(&BookingModel{}).Where("booker_id = ?", bookerID)
	return r.listFiltered(query, filter, now, offset, limit)
}

// ListForOwner retrieves bookings of the owner's items matching the filter.
func (r *GormBookingRepository) ListForOwner(ctx context.Context, ownerID int64, filter bookingDomain.StateFilter, now time.Time, offset, limit int) ([]*bookingDomain.Booking, error) {
	query := r.db.WithContext(ctx).Model(&BookingModel{}).
		Joins("JOIN items ON items.id = bookings.item_id").
		Where("items.owner_id = ?", ownerID)
	return r.listFiltered(query, filter, now, offset, limit)
}

func (r *GormBookingRepository) listFiltered(query *gorm.DB, filter bookingDomain.StateFilter, now time.Time, offset, limit int) ([]*bookingDomain.Booking, error) {
	switch filter {
	case bookingDomain.FilterAll:
		// no extra condition
	case bookingDomain.FilterCurrent:
		query = query.Where("bookings.start_time <= ? AND bookings.end_time > ?", now, now)
	case bookingDomain.FilterPast:
		query = query.Where("bookings.end_time <= ?", now)
	case bookingDomain.FilterFuture:
		query = query.Where("bookings.start_time > ?", now)
	case bookingDomain.FilterWaiting:
		query = query.Where("bookings.status = ?", string(bookingDomain.StatusWaiting))
	case bookingDomain.FilterRejected:
		query = query.Where("bookings.status = ?", string(bookingDomain.StatusRejected))
	default:
		return nil, apperr.NewValidationError("unknown state: " + string(filter))
	}

	var models []BookingModel
	if err := query.
		Order("bookings.start_time DESC, bookings.id DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	return toDomainBookings(models)
}

// FindLastForItem returns the approved booking with the greatest end before
// now, or nil.
func (r *GormBookingRepository) FindLastForItem(ctx context.Context, itemID int64, now time.Time) (*bookingDomain.Booking, error) {
	var model BookingModel
	err := r.db.WithContext(ctx).
		Where("item_id = ? AND status = ? AND end_time < ?", itemID, string(bookingDomain.StatusApproved), now).
		Order("end_time DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find last booking: %w", err)
	}
	return toDomainBooking(&model)
}

// FindNextForItem returns the approved booking with the smallest start after
// now, or nil.
func (r *GormBookingRepository) FindNextForItem(ctx context.Context, itemID int64, now time.Time) (*bookingDomain.Booking, error) {
	var model BookingModel
	err := r.db.WithContext(ctx).
		Where("item_id = ? AND status = ? AND start_time > ?", itemID, string(bookingDomain.StatusApproved), now).
		Order("start_time ASC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find next booking: %w", err)
	}
	return toDomainBooking(&model)
}

// FindApprovedAroundForItems fetches, in one query, the approved bookings for
// the given items whose window lies strictly before or strictly after now.
func (r *GormBookingRepository) FindApprovedAroundForItems(ctx context.Context, itemIDs []int64, now time.Time) ([]*bookingDomain.Booking, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}

	var models []BookingModel
	err := r.db.WithContext(ctx).
		Where("item_id IN ? AND status = ?", itemIDs, string(bookingDomain.StatusApproved)).
		Where("end_time < ? OR start_time > ?", now, now).
		Order("item_id, start_time").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find approved bookings for items: %w", err)
	}
	return toDomainBookings(models)
}

// HasCompletedBooking reports whether the user has an approved booking of the
// item that ended before now.
func (r *GormBookingRepository) HasCompletedBooking(ctx context.Context, itemID, userID int64, now time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&BookingModel{}).
		Where("item_id = ? AND booker_id = ? AND status = ? AND end_time < ?",
			itemID, userID, string(bookingDomain.StatusApproved), now).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check completed bookings: %w", err)
	}
	return count > 0, nil
}

// --- Conversion Helpers ---

func toBookingModel(b *bookingDomain.Booking) *BookingModel {
	return &BookingModel{
		ID:        b.ID(),
		ItemID:    b.ItemID(),
		BookerID:  b.BookerID(),
		StartTime: b.Start(),
		EndTime:   b.End(),
		Status:    string(b.Status()),
	}
}

func toDomainBooking(m *BookingModel) (*bookingDomain.Booking, error) {
	status, err := bookingDomain.ParseStatus(m.Status)
	if err != nil {
		return nil, err
	}
	return bookingDomain.Reconstruct(m.ID, m.ItemID, m.BookerID, m.StartTime, m.EndTime, status), nil
}

func toDomainBookings(models []BookingModel) ([]*bookingDomain.Booking, error) {
	bookings := make([]*bookingDomain.Booking, len(models))
	for i, m := range models {
		b, err := toDomainBooking(&m)
		if err != nil {
			return nil, err
		}
		bookings[i] = b
	}
	return bookings, nil
}
