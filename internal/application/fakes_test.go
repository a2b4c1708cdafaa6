package application

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	bookingDomain "github.com/gearshare/service-booking/internal/domain/booking"
	itemDomain "github.com/gearshare/service-booking/internal/domain/item"
	userDomain "github.com/gearshare/service-booking/internal/domain/user"
	"github.com/gearshare/service-booking/pkg/apperr"
	"github.com/gearshare/service-booking/pkg/kafka"
)

// fakeUserRepo is an in-memory user.Repository.
type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*userDomain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]*userDomain.User)}
}

func (r *fakeUserRepo) FindByID(_ context.Context, id int64) (*userDomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, apperr.NewNotFoundError("user", id)
	}
	return u, nil
}

func (r *fakeUserRepo) FindByIDs(_ context.Context, ids []int64) (map[int64]*userDomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[int64]*userDomain.User)
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (r *fakeUserRepo) FindAll(_ context.Context) ([]*userDomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int64, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]*userDomain.User, len(ids))
	for i, id := range ids {
		out[i] = r.users[id]
	}
	return out, nil
}

func (r *fakeUserRepo) ExistsByID(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.users[id]
	return ok, nil
}

func (r *fakeUserRepo) Create(_ context.Context, u *userDomain.User) (*userDomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email() == u.Email() {
			return nil, apperr.NewConflictError("email already in use")
		}
	}
	r.nextID++
	stored := userDomain.Reconstruct(r.nextID, u.Name(), u.Email())
	r.users[r.nextID] = stored
	return stored, nil
}

func (r *fakeUserRepo) Update(_ context.Context, u *userDomain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID()]; !ok {
		return apperr.NewNotFoundError("user", u.ID())
	}
	r.users[u.ID()] = u
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return apperr.NewNotFoundError("user", id)
	}
	delete(r.users, id)
	return nil
}

// fakeItemRepo is an in-memory item.Repository.
type fakeItemRepo struct {
	mu        sync.Mutex
	nextID    int64
	nextCmtID int64
	items     map[int64]*itemDomain.Item
	comments  map[int64][]*itemDomain.Comment
}

func newFakeItemRepo() *fakeItemRepo {
	return &fakeItemRepo{
		items:    make(map[int64]*itemDomain.Item),
		comments: make(map[int64][]*itemDomain.Comment),
	}
}

func (r *fakeItemRepo) FindByID(_ context.Context, id int64) (*itemDomain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return nil, apperr.NewNotFoundError("item", id)
	}
	return item, nil
}

func (r *fakeItemRepo) FindByIDs(_ context.Context, ids []int64) (map[int64]*itemDomain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[int64]*itemDomain.Item)
	for _, id := range ids {
		if item, ok := r.items[id]; ok {
			out[id] = item
		}
	}
	return out, nil
}

func (r *fakeItemRepo) FindByOwnerID(_ context.Context, ownerID int64) ([]*itemDomain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*itemDomain.Item
	for _, item := range r.items {
		if item.OwnerID() == ownerID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out, nil
}

func (r *fakeItemRepo) SearchAvailable(_ context.Context, text string) ([]*itemDomain.Item, error) {
	if text == "" {
		return nil, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*itemDomain.Item
	for _, item := range r.items {
		if item.Available() && (containsFold(item.Name(), text) || containsFold(item.Description(), text)) {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out, nil
}

func (r *fakeItemRepo) Create(_ context.Context, item *itemDomain.Item) (*itemDomain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	stored := itemDomain.Reconstruct(r.nextID, item.OwnerID(), item.Name(), item.Description(), item.Available(), item.RequestID())
	r.items[r.nextID] = stored
	return stored, nil
}

func (r *fakeItemRepo) Update(_ context.Context, item *itemDomain.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[item.ID()]; !ok {
		return apperr.NewNotFoundError("item", item.ID())
	}
	r.items[item.ID()] = item
	return nil
}

func (r *fakeItemRepo) CreateComment(_ context.Context, comment *itemDomain.Comment) (*itemDomain.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextCmtID++
	stored := *comment
	stored.ID = r.nextCmtID
	r.comments[comment.ItemID] = append(r.comments[comment.ItemID], &stored)
	return &stored, nil
}

func (r *fakeItemRepo) FindCommentsByItemID(_ context.Context, itemID int64) ([]*itemDomain.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.comments[itemID], nil
}

func (r *fakeItemRepo) FindCommentsByItemIDs(_ context.Context, itemIDs []int64) (map[int64][]*itemDomain.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[int64][]*itemDomain.Comment)
	for _, id := range itemIDs {
		if cs, ok := r.comments[id]; ok {
			out[id] = cs
		}
	}
	return out, nil
}

// fakeBookingRepo is an in-memory booking.Repository. The status transition
// holds the same guarantee as the SQL implementation: the write happens only
// when the prior status still matches, under one lock.
type fakeBookingRepo struct {
	mu       sync.Mutex
	nextID   int64
	bookings map[int64]*bookingDomain.Booking
	items    *fakeItemRepo
}

func newFakeBookingRepo(items *fakeItemRepo) *fakeBookingRepo {
	return &fakeBookingRepo{
		bookings: make(map[int64]*bookingDomain.Booking),
		items:    items,
	}
}

func (r *fakeBookingRepo) Create(_ context.Context, b *bookingDomain.Booking) (*bookingDomain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	stored := bookingDomain.Reconstruct(r.nextID, b.ItemID(), b.BookerID(), b.Start(), b.End(), b.Status())
	r.bookings[r.nextID] = stored
	return stored, nil
}

func (r *fakeBookingRepo) FindByID(_ context.Context, id int64) (*bookingDomain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, apperr.NewNotFoundError("booking", id)
	}
	// Each read rehydrates a fresh aggregate, as the SQL repository does.
	return bookingDomain.Reconstruct(b.ID(), b.ItemID(), b.BookerID(), b.Start(), b.End(), b.Status()), nil
}

func (r *fakeBookingRepo) TransitionStatus(_ context.Context, id int64, from, to bookingDomain.Status) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok || b.Status() != from {
		return false, nil
	}
	r.bookings[id] = bookingDomain.Reconstruct(b.ID(), b.ItemID(), b.BookerID(), b.Start(), b.End(), to)
	return true, nil
}

func (r *fakeBookingRepo) ListForBooker(_ context.Context, bookerID int64, filter bookingDomain.StateFilter, now time.Time, offset, limit int) ([]*bookingDomain.Booking, error) {
	return r.list(func(b *bookingDomain.Booking) bool { return b.BookerID() == bookerID }, filter, now, offset, limit)
}

func (r *fakeBookingRepo) ListForOwner(_ context.Context, ownerID int64, filter bookingDomain.StateFilter, now time.Time, offset, limit int) ([]*bookingDomain.Booking, error) {
	return r.list(func(b *bookingDomain.Booking) bool {
		item, ok := r.items.items[b.ItemID()]
		return ok && item.OwnerID() == ownerID
	}, filter, now, offset, limit)
}

func (r *fakeBookingRepo) list(belongs func(*bookingDomain.Booking) bool, filter bookingDomain.StateFilter, now time.Time, offset, limit int) ([]*bookingDomain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*bookingDomain.Booking
	for _, b := range r.bookings {
		if !belongs(b) {
			continue
		}
		switch filter {
		case bookingDomain.FilterAll:
		case bookingDomain.FilterCurrent:
			if !b.IsCurrent(now) {
				continue
			}
		case bookingDomain.FilterPast:
			if !b.IsPast(now) {
				continue
			}
		case bookingDomain.FilterFuture:
			if !b.IsFuture(now) {
				continue
			}
		case bookingDomain.FilterWaiting:
			if b.Status() != bookingDomain.StatusWaiting {
				continue
			}
		case bookingDomain.FilterRejected:
			if b.Status() != bookingDomain.StatusRejected {
				continue
			}
		}
		matched = append(matched, b)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].Start().Equal(matched[j].Start()) {
			return matched[i].Start().After(matched[j].Start())
		}
		return matched[i].ID() > matched[j].ID()
	})

	if offset >= len(matched) {
		return nil, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func (r *fakeBookingRepo) FindLastForItem(_ context.Context, itemID int64, now time.Time) (*bookingDomain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var last *bookingDomain.Booking
	for _, b := range r.bookings {
		if b.ItemID() != itemID || b.Status() != bookingDomain.StatusApproved || !b.End().Before(now) {
			continue
		}
		if last == nil || b.End().After(last.End()) {
			last = b
		}
	}
	return last, nil
}

func (r *fakeBookingRepo) FindNextForItem(_ context.Context, itemID int64, now time.Time) (*bookingDomain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var next *bookingDomain.Booking
	for _, b := range r.bookings {
		if b.ItemID() != itemID || b.Status() != bookingDomain.StatusApproved || !b.Start().After(now) {
			continue
		}
		if next == nil || b.Start().Before(next.Start()) {
			next = b
		}
	}
	return next, nil
}

func (r *fakeBookingRepo) FindApprovedAroundForItems(_ context.Context, itemIDs []int64, now time.Time) ([]*bookingDomain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wanted := make(map[int64]bool, len(itemIDs))
	for _, id := range itemIDs {
		wanted[id] = true
	}
	var out []*bookingDomain.Booking
	for _, b := range r.bookings {
		if !wanted[b.ItemID()] || b.Status() != bookingDomain.StatusApproved {
			continue
		}
		if b.End().Before(now) || b.Start().After(now) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeBookingRepo) HasCompletedBooking(_ context.Context, itemID, userID int64, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bookings {
		if b.ItemID() == itemID && b.BookerID() == userID &&
			b.Status() == bookingDomain.StatusApproved && b.End().Before(now) {
			return true, nil
		}
	}
	return false, nil
}

// capturingPublisher records every published event.
type capturingPublisher struct {
	mu     sync.Mutex
	events []kafka.CloudEvent
}

func (p *capturingPublisher) PublishEvent(_ context.Context, _ string, event kafka.CloudEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, len(p.events))
	for i, e := range p.events {
		types[i] = e.Type
	}
	return types
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
