package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	itemDomain "github.com/gearshare/service-booking/internal/domain/item"
	"github.com/gearshare/service-booking/pkg/apperr"
)

// ItemModel is the GORM model for the items table.
type ItemModel struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	OwnerID     int64  `gorm:"not null;index"`
	Name        string `gorm:"not null;size:255"`
	Description string `gorm:"not null;size:1000"`
	Available   bool   `gorm:"not null"`
	RequestID   *int64 `gorm:"index"`
}

// TableName returns the table name for the GORM model.
func (ItemModel) TableName() string {
	return "items"
}

// CommentModel is the GORM model for the comments table.
type CommentModel struct {
	ID       int64     `gorm:"primaryKey;autoIncrement"`
	ItemID   int64     `gorm:"not null;index"`
	AuthorID int64     `gorm:"not null;index"`
	Text     string    `gorm:"not null;size:2000"`
	Created  time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (CommentModel) TableName() string {
	return "comments"
}

// GormItemRepository is the GORM-based implementation of item.Repository.
type GormItemRepository struct {
	db *gorm.DB
}

// NewGormItemRepository creates a new GormItemRepository.
func NewGormItemRepository(db *gorm.DB) *GormItemRepository {
	return &GormItemRepository{db: db}
}

// FindByID retrieves an item by its identifier.
func (r *GormItemRepository) FindByID(ctx context.Context, id int64) (*itemDomain.Item, error) {
	var model ItemModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NewNotFoundError("item", id)
		}
		return nil, fmt.Errorf("failed to find item by id: %w", err)
	}
	return toDomainItem(&model), nil
}

// FindByIDs retrieves a set of items keyed by id. Missing ids are absent from
// the result rather than an error.
func (r *GormItemRepository) FindByIDs(ctx context.Context, ids []int64) (map[int64]*itemDomain.Item, error) {
	if len(ids) == 0 {
		return map[int64]*itemDomain.Item{}, nil
	}

	var models []ItemModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find items by ids: %w", err)
	}

	items := make(map[int64]*itemDomain.Item, len(models))
	for i := range models {
		items[models[i].ID] = toDomainItem(&models[i])
	}
	return items, nil
}

// FindByOwnerID retrieves all items belonging to the owner.
func (r *GormItemRepository) FindByOwnerID(ctx context.Context, ownerID int64) ([]*itemDomain.Item, error) {
	var models []ItemModel
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("id").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find items by owner: %w", err)
	}

	items := make([]*itemDomain.Item, len(models))
	for i, m := range models {
		items[i] = toDomainItem(&m)
	}
	return items, nil
}

// SearchAvailable finds available items whose name or description contains the
// text, case-insensitively. An empty query matches nothing.
func (r *GormItemRepository) SearchAvailable(ctx context.Context, text string) ([]*itemDomain.Item, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	pattern := "%" + strings.ToLower(text) + "%"
	var models []ItemModel
	if err := r.db.WithContext(ctx).
		Where("available = ?", true).
		Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern).
		Order("id").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to search items: %w", err)
	}

	items := make([]*itemDomain.Item, len(models))
	for i, m := range models {
		items[i] = toDomainItem(&m)
	}
	return items, nil
}

// Create persists a new item and returns it with the assigned id.
func (r *GormItemRepository) Create(ctx context.Context, item *itemDomain.Item) (*itemDomain.Item, error) {
	model := toItemModel(item)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}
	return toDomainItem(model), nil
}

// Update persists changes to an existing item.
func (r *GormItemRepository) Update(ctx context.Context, item *itemDomain.Item) error {
	model := toItemModel(item)
	result := r.db.WithContext(ctx).
		Model(&ItemModel{}).
		Where("id = ?", model.ID).
		Updates(map[string]any{
			"name":        model.Name,
			"description": model.Description,
			"available":   model.Available,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NewNotFoundError("item", model.ID)
	}
	return nil
}

// CreateComment persists a new comment and returns it with the assigned id.
func (r *GormItemRepository) CreateComment(ctx context.Context, comment *itemDomain.Comment) (*itemDomain.Comment, error) {
	model := &CommentModel{
		ItemID:   comment.ItemID,
		AuthorID: comment.AuthorID,
		Text:     comment.Text,
		Created:  comment.Created,
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	stored := *comment
	stored.ID = model.ID
	return &stored, nil
}

// FindCommentsByItemID retrieves all comments for an item with author names.
func (r *GormItemRepository) FindCommentsByItemID(ctx context.Context, itemID int64) ([]*itemDomain.Comment, error) {
	return r.findComments(ctx, r.db.WithContext(ctx).Where("comments.item_id = ?", itemID))
}

// FindCommentsByItemIDs retrieves comments for a set of items grouped by item id.
func (r *GormItemRepository) FindCommentsByItemIDs(ctx context.Context, itemIDs []int64) (map[int64][]*itemDomain.Comment, error) {
	if len(itemIDs) == 0 {
		return map[int64][]*itemDomain.Comment{}, nil
	}

	comments, err := r.findComments(ctx, r.db.WithContext(ctx).Where("comments.item_id IN ?", itemIDs))
	if err != nil {
		return nil, err
	}

	grouped := make(map[int64][]*itemDomain.Comment)
	for _, c := range comments {
		grouped[c.ItemID] = append(grouped[c.ItemID], c)
	}
	return grouped, nil
}

type commentRow struct {
	CommentModel
	AuthorName string
}

func (r *GormItemRepository) findComments(ctx context.Context, query *gorm.DB) ([]*itemDomain.Comment, error) {
	var rows []commentRow
	if err := query.
		Model(&CommentModel{}).
		Select("comments.*, users.name AS author_name").
		Joins("JOIN users ON users.id = comments.author_id").
		Order("comments.created").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find comments: %w", err)
	}

	comments := make([]*itemDomain.Comment, len(rows))
	for i, row := range rows {
		comments[i] = &itemDomain.Comment{
			ID:         row.ID,
			ItemID:     row.ItemID,
			AuthorID:   row.AuthorID,
			AuthorName: row.AuthorName,
			Text:       row.Text,
			Created:    row.Created,
		}
	}
	return comments, nil
}

// --- Conversion Helpers ---

func toItemModel(item *itemDomain.Item) *ItemModel {
	return &ItemModel{
		ID:          item.ID(),
		OwnerID:     item.OwnerID(),
		Name:        item.Name(),
		Description: item.Description(),
		Available:   item.Available(),
		RequestID:   item.RequestID(),
	}
}

func toDomainItem(m *ItemModel) *itemDomain.Item {
	return itemDomain.Reconstruct(m.ID, m.OwnerID, m.Name, m.Description, m.Available, m.RequestID)
}
