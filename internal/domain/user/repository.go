package user

import "context"

// Repository defines persistence operations for users.
type Repository interface {
	FindByID(ctx context.Context, id int64) (*User, error)
	FindByIDs(ctx context.Context, ids []int64) (map[int64]*User, error)
	FindAll(ctx context.Context) ([]*User, error)
	ExistsByID(ctx context.Context, id int64) (bool, error)
	Create(ctx context.Context, u *User) (*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id int64) error
}
