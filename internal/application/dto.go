package application

import (
	"time"

	bookingDomain "github.com/gearshare/service-booking/internal/domain/booking"
	itemDomain "github.com/gearshare/service-booking/internal/domain/item"
	userDomain "github.com/gearshare/service-booking/internal/domain/user"
)

// CreateBookingRequest holds the data needed to create a new booking.
type CreateBookingRequest struct {
	ItemID int64     `json:"itemId" binding:"required"`
	Start  time.Time `json:"start" binding:"required"`
	End    time.Time `json:"end" binding:"required"`
}

// UserDTO is the response representation of a user.
type UserDTO struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ItemDTO is the response representation of an item.
type ItemDTO struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Available   bool           `json:"available"`
	OwnerID     int64          `json:"ownerId"`
	RequestID   *int64         `json:"requestId,omitempty"`
	Comments    []CommentDTO   `json:"comments,omitempty"`
	LastBooking *BookingRefDTO `json:"lastBooking,omitempty"`
	NextBooking *BookingRefDTO `json:"nextBooking,omitempty"`
}

// BookingDTO is the full response representation of a booking.
type BookingDTO struct {
	ID     int64     `json:"id"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Status string    `json:"status"`
	Booker UserDTO   `json:"booker"`
	Item   ItemDTO   `json:"item"`
}

// BookingRefDTO is the short booking view embedded in item responses.
type BookingRefDTO struct {
	ID       int64     `json:"id"`
	BookerID int64     `json:"bookerId"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

// CommentDTO is the response representation of a comment.
type CommentDTO struct {
	ID         int64     `json:"id"`
	Text       string    `json:"text"`
	AuthorName string    `json:"authorName"`
	Created    time.Time `json:"created"`
}

// CreateItemRequest holds the data needed to create an item.
type CreateItemRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description" binding:"required"`
	Available   *bool  `json:"available" binding:"required"`
	RequestID   *int64 `json:"requestId"`
}

// UpdateItemRequest is a partial item update; nil fields are left untouched.
type UpdateItemRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Available   *bool   `json:"available"`
}

// CreateCommentRequest holds the text of a new comment.
type CreateCommentRequest struct {
	Text string `json:"text" binding:"required"`
}

// CreateUserRequest holds the data needed to register a user.
type CreateUserRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required"`
}

// UpdateUserRequest is a partial user update; nil fields are left untouched.
type UpdateUserRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

// --- Mapping helpers ---

func toUserDTO(u *userDomain.User) UserDTO {
	return UserDTO{ID: u.ID(), Name: u.Name(), Email: u.Email()}
}

func toItemDTO(i *itemDomain.Item) ItemDTO {
	return ItemDTO{
		ID:          i.ID(),
		Name:        i.Name(),
		Description: i.Description(),
		Available:   i.Available(),
		OwnerID:     i.OwnerID(),
		RequestID:   i.RequestID(),
	}
}

func toBookingDTO(b *bookingDomain.Booking, booker *userDomain.User, item *itemDomain.Item) BookingDTO {
	return BookingDTO{
		ID:     b.ID(),
		Start:  b.Start(),
		End:    b.End(),
		Status: string(b.Status()),
		Booker: toUserDTO(booker),
		Item:   toItemDTO(item),
	}
}

func toBookingRefDTO(b *bookingDomain.Booking) *BookingRefDTO {
	if b == nil {
		return nil
	}
	return &BookingRefDTO{
		ID:       b.ID(),
		BookerID: b.BookerID(),
		Start:    b.Start(),
		End:      b.End(),
	}
}

func toCommentDTO(c *itemDomain.Comment) CommentDTO {
	return CommentDTO{
		ID:         c.ID,
		Text:       c.Text,
		AuthorName: c.AuthorName,
		Created:    c.Created,
	}
}
