package item

import "context"

// Repository defines persistence operations for items and their comments.
type Repository interface {
	FindByID(ctx context.Context, id int64) (*Item, error)
	FindByIDs(ctx context.Context, ids []int64) (map[int64]*Item, error)
	FindByOwnerID(ctx context.Context, ownerID int64) ([]*Item, error)
	SearchAvailable(ctx context.Context, text string) ([]*Item, error)
	Create(ctx context.Context, item *Item) (*Item, error)
	Update(ctx context.Context, item *Item) error

	CreateComment(ctx context.Context, comment *Comment) (*Comment, error)
	FindCommentsByItemID(ctx context.Context, itemID int64) ([]*Comment, error)
	FindCommentsByItemIDs(ctx context.Context, itemIDs []int64) (map[int64][]*Comment, error)
}
