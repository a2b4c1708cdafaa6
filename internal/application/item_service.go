package application

import (
	"context"

	"go.uber.org/zap"

	"github.com/gearshare/service-booking/internal/clock"
	bookingDomain "github.com/gearshare/service-booking/internal/domain/booking"
	itemDomain "github.com/gearshare/service-booking/internal/domain/item"
	userDomain "github.com/gearshare/service-booking/internal/domain/user"
	"github.com/gearshare/service-booking/pkg/apperr"
)

// ItemService manages the item catalog and its comment threads. Owner views
// are enriched with last/next booking data from the availability aggregator.
type ItemService struct {
	items        itemDomain.Repository
	bookings     bookingDomain.Repository
	users        userDomain.Repository
	availability *AvailabilityAggregator
	clock        clock.Clock
	logger       *zap.Logger
}

// NewItemService creates a new ItemService.
func NewItemService(
	items itemDomain.Repository,
	bookings bookingDomain.Repository,
	users userDomain.Repository,
	availability *AvailabilityAggregator,
	clk clock.Clock,
	logger *zap.Logger,
) *ItemService {
	return &ItemService{
		items:        items,
		bookings:     bookings,
		users:        users,
		availability: availability,
		clock:        clk,
		logger:       logger,
	}
}

// Create registers a new item for the owner.
func (s *ItemService) Create(ctx context.Context, ownerID int64, req CreateItemRequest) (*ItemDTO, error) {
	exists, err := s.users.ExistsByID(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperr.NewNotFoundError("user", ownerID)
	}

	available := true
	if req.Available != nil {
		available = *req.Available
	}

	item, err := itemDomain.NewItem(ownerID, req.Name, req.Description, available, req.RequestID)
	if err != nil {
		return nil, err
	}

	stored, err := s.items.Create(ctx, item)
	if err != nil {
		return nil, err
	}

	s.logger.Info("item created",
		zap.Int64("item_id", stored.ID()),
		zap.Int64("owner_id", ownerID),
	)

	result := toItemDTO(stored)
	return &result, nil
}

// Update applies a partial update to an owned item.
func (s *ItemService) Update(ctx context.Context, itemID, actorID int64, req UpdateItemRequest) (*ItemDTO, error) {
	item, err := s.items.FindByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !item.IsOwnedBy(actorID) {
		return nil, apperr.NewForbiddenError("only the owner can update an item")
	}

	item.ApplyPatch(req.Name, req.Description, req.Available)
	if err := s.items.Update(ctx, item); err != nil {
		return nil, err
	}

	result := toItemDTO(item)
	return &result, nil
}

// Get retrieves an item with its comments. The owner additionally sees the
// item's last and next approved bookings.
func (s *ItemService) Get(ctx context.Context, itemID, actorID int64) (*ItemDTO, error) {
	item, err := s.items.FindByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	dto := toItemDTO(item)

	comments, err := s.items.FindCommentsByItemID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	dto.Comments = toCommentDTOs(comments)

	if item.IsOwnedBy(actorID) {
		pair, err := s.availability.ForItem(ctx, itemID, s.clock.Now())
		if err != nil {
			return nil, err
		}
		dto.LastBooking = toBookingRefDTO(pair.Last)
		dto.NextBooking = toBookingRefDTO(pair.Next)
	}

	return &dto, nil
}

// ListByOwner retrieves the owner's items with comments and last/next
// bookings, resolving bookings for the whole set in one batch pass.
func (s *ItemService) ListByOwner(ctx context.Context, ownerID int64) ([]ItemDTO, error) {
	exists, err := s.users.ExistsByID(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperr.NewNotFoundError("user", ownerID)
	}

	items, err := s.items.FindByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	itemIDs := make([]int64, len(items))
	for i, item := range items {
		itemIDs[i] = item.ID()
	}

	pairs, err := s.availability.ForItems(ctx, itemIDs, s.clock.Now())
	if err != nil {
		return nil, err
	}
	commentsByItem, err := s.items.FindCommentsByItemIDs(ctx, itemIDs)
	if err != nil {
		return nil, err
	}

	dtos := make([]ItemDTO, len(items))
	for i, item := range items {
		dto := toItemDTO(item)
		pair := pairs[item.ID()]
		dto.LastBooking = toBookingRefDTO(pair.Last)
		dto.NextBooking = toBookingRefDTO(pair.Next)
		dto.Comments = toCommentDTOs(commentsByItem[item.ID()])
		dtos[i] = dto
	}
	return dtos, nil
}

// Search finds available items matching the text. An empty query returns an
// empty list.
func (s *ItemService) Search(ctx context.Context, text string) ([]ItemDTO, error) {
	items, err := s.items.SearchAvailable(ctx, text)
	if err != nil {
		return nil, err
	}

	dtos := make([]ItemDTO, len(items))
	for i, item := range items {
		dtos[i] = toItemDTO(item)
	}
	return dtos, nil
}

// AddComment records a comment from a user who completed an approved booking
// of the item.
func (s *ItemService) AddComment(ctx context.Context, itemID, authorID int64, req CreateCommentRequest) (*CommentDTO, error) {
	if _, err := s.items.FindByID(ctx, itemID); err != nil {
		return nil, err
	}
	author, err := s.users.FindByID(ctx, authorID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	completed, err := s.bookings.HasCompletedBooking(ctx, itemID, authorID, now)
	if err != nil {
		return nil, err
	}
	if !completed {
		return nil, apperr.NewValidationError("user can only comment on items they have booked")
	}

	comment := &itemDomain.Comment{
		ItemID:     itemID,
		AuthorID:   authorID,
		AuthorName: author.Name(),
		Text:       req.Text,
		Created:    now,
	}
	stored, err := s.items.CreateComment(ctx, comment)
	if err != nil {
		return nil, err
	}

	s.logger.Info("comment added",
		zap.Int64("item_id", itemID),
		zap.Int64("author_id", authorID),
	)

	result := toCommentDTO(stored)
	return &result, nil
}

func toCommentDTOs(comments []*itemDomain.Comment) []CommentDTO {
	if len(comments) == 0 {
		return nil
	}
	dtos := make([]CommentDTO, len(comments))
	for i, c := range comments {
		dtos[i] = toCommentDTO(c)
	}
	return dtos
}
