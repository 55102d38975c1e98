package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/avatarctic/services-marketplace/internal/core/domain/booking"
	"github.com/avatarctic/services-marketplace/internal/core/domain/catalog"
	"github.com/avatarctic/services-marketplace/internal/core/domain/dispute"
	"github.com/avatarctic/services-marketplace/internal/core/domain/location"
	"github.com/avatarctic/services-marketplace/internal/core/domain/messaging"
	"github.com/avatarctic/services-marketplace/internal/core/domain/review"
	"github.com/avatarctic/services-marketplace/internal/core/domain/user"
	"github.com/avatarctic/services-marketplace/internal/core/ports"
	"github.com/google/uuid"
)

// Store is an in-memory data store implementing every repository port. Reads counts
// calls to list/get functions so tests can tell cache hits from producer calls.
type Store struct {
	mu         sync.Mutex
	users      map[uuid.UUID]user.User
	cities     map[uuid.UUID]location.City
	categories map[uuid.UUID]catalog.ServiceCategory
	services   map[uuid.UUID]catalog.Service
	bookings   map[uuid.UUID]booking.Booking
	reviews    map[uuid.UUID]review.Review
	messages   []messaging.Message
	disputes   []dispute.Dispute
	reads      map[string]int

	// WriteErr, when set, fails every write.
	WriteErr error
	// StripBookingParticipants makes booking writes return rows without client/pro IDs.
	StripBookingParticipants bool
}

func NewStore() *Store {
	return &Store{
		users:      map[uuid.UUID]user.User{},
		cities:     map[uuid.UUID]location.City{},
		categories: map[uuid.UUID]catalog.ServiceCategory{},
		services:   map[uuid.UUID]catalog.Service{},
		bookings:   map[uuid.UUID]booking.Booking{},
		reviews:    map[uuid.UUID]review.Review{},
		reads:      map[string]int{},
	}
}

// Reads returns how many times the named read ran.
func (s *Store) Reads(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads[name]
}

func (s *Store) read(name string) {
	s.reads[name]++
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// Users returns a UserRepository view of the store.
func (s *Store) Users() ports.UserRepository { return storeUsers{s} }

// Cities returns a CityRepository view of the store.
func (s *Store) Cities() ports.CityRepository { return storeCities{s} }

func (s *Store) Categories() ports.ServiceCategoryRepository { return storeCategories{s} }

func (s *Store) Services() ports.ServiceRepository { return storeServices{s} }

func (s *Store) Bookings() ports.BookingRepository { return storeBookings{s} }

func (s *Store) Reviews() ports.ReviewRepository { return storeReviews{s} }

func (s *Store) Messages() ports.MessageRepository { return storeMessages{s} }

func (s *Store) Disputes() ports.DisputeRepository { return storeDisputes{s} }

type storeUsers struct{ s *Store }

func (r storeUsers) Create(ctx context.Context, u *user.User) (*user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.WriteErr != nil {
		return nil, r.s.WriteErr
	}
	c := *u
	ensureID(&c.ID)
	r.s.users[c.ID] = c
	return &c, nil
}
func (r storeUsers) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.read("user")
	u, ok := r.s.users[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &u, nil
}
func (r storeUsers) Update(ctx context.Context, u *user.User) (*user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.WriteErr != nil {
		return nil, r.s.WriteErr
	}
	if _, ok := r.s.users[u.ID]; !ok {
		return nil, ports.ErrNotFound
	}
	c := *u
	r.s.users[c.ID] = c
	return &c, nil
}
func (r storeUsers) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.WriteErr != nil {
		return r.s.WriteErr
	}
	delete(r.s.users, id)
	return nil
}

type storeCities struct{ s *Store }

func (r storeCities) Create(ctx context.Context, c *location.City) (*location.City, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.WriteErr != nil {
		return nil, r.s.WriteErr
	}
	v := *c
	ensureID(&v.ID)
	r.s.cities[v.ID] = v
	return &v, nil
}
func (r storeCities) GetByID(ctx context.Context, id uuid.UUID) (*location.City, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.cities[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &c, nil
}
func (r storeCities) List(ctx context.Context, city string) ([]*location.City, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.read("cities")
	out := []*location.City{}
	for _, c := range r.s.cities {
		if city == "" || c.Name == city {
			v := c
			out = append(out, &v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
func (r storeCities) Update(ctx context.Context, c *location.City) (*location.City, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.WriteErr != nil {
		return nil, r.s.WriteErr
	}
	v := *c
	r.s.cities[v.ID] = v
	return &v, nil
}
func (r storeCities) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.WriteErr != nil {
		return r.s.WriteErr
	}
	delete(r.s.cities, id)
	return nil
}

type storeCategories struct{ s *Store }

func (r storeCategories) Create(ctx context.Context, c *catalog.ServiceCategory) (*catalog.ServiceCategory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.WriteErr != nil {
		return nil, r.s.WriteErr
	}
	v := *c
	ensureID(&v.ID)
	r.s.categories[v.ID] = v
	return &v, nil
}
func (r storeCategories) GetByID(ctx context.Context, id uuid.UUID) (*catalog.ServiceCategory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.categories[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &c, nil
}
func (r storeCategories) List(ctx context.Context) ([]*catalog.ServiceCategory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.read("categories")
	out := []*catalog.ServiceCategory{}
	for _, c := range r.s.categories {
		v := c
		out = append(out, &v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}
func (r storeCategories) Update(ctx context.Context, c *catalog.ServiceCategory) (*catalog.ServiceCategory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.WriteErr != nil {
		return nil, r.s.WriteErr
	}
	v := *c
	r.s.categories[v.ID] = v
	return &v, nil
}
func (r storeCategories) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.WriteErr != nil {
		return r.s.WriteErr
	}
	delete(r.s.categories, id)
	return nil
}

type storeServices struct{ s *Store }

func (r storeServices) Create(ctx context.Context, sv *catalog.Service) (*catalog.Service, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.WriteErr != nil {
		return nil, r.s.WriteErr
	}
	v := *sv
	ensureID(&v.ID)
	r.s.services[v.ID] = v
	return &v, nil
}
func (r storeServices) GetByID(ctx context.Context, id uuid.UUID) (*catalog.Service, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.services[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &v, nil
}
func (r storeServices) List(ctx context.Context, categoryID *uuid.UUID) ([]*catalog.Service, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.read("services")
	out := []*catalog.Service{}
	for _, sv := range r.s.services {
		if categoryID == nil || sv.CategoryID == *categoryID {
			v := sv
			out = append(out, &v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}
func (r storeServices) Update(ctx context.Context, sv *catalog.Service) (*catalog.Service, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.WriteErr != nil {
		return nil, r.s.WriteErr
	}
	v := *sv
	r.s.services[v.ID] = v
	return &v, nil
}
func (r storeServices) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.WriteErr != nil {
		return r.s.WriteErr
	}
	delete(r.s.services, id)
	return nil
}

type storeBookings struct{ s *Store }

func (r storeBookings) strip(b booking.Booking) *booking.Booking {
	if r.s.StripBookingParticipants {
		b.ClientID = uuid.Nil
		b.ProID = uuid.Nil
	}
	return &b
}

func (r storeBookings) Create(ctx context.Context, b *booking.Booking) (*booking.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.WriteErr != nil {
		return nil, r.s.WriteErr
	}
	v := *b
	ensureID(&v.ID)
	if v.Status == "" {
		v.Status = booking.StatusPending
	}
	r.s.bookings[v.ID] = v
	return r.strip(v), nil
}
func (r storeBookings) GetByID(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.bookings[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &v, nil
}
func (r storeBookings) ListByUser(ctx context.Context, userID uuid.UUID, status booking.Status) ([]*booking.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.read("bookings")
	out := []*booking.Booking{}
	for _, b := range r.s.bookings {
		if b.ClientID != userID && b.ProID != userID {
			continue
		}
		if status != "" && b.Status != status {
			continue
		}
		v := b
		out = append(out, &v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}
func (r storeBookings) Update(ctx context.Context, b *booking.Booking) (*booking.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.WriteErr != nil {
		return nil, r.s.WriteErr
	}
	if _, ok := r.s.bookings[b.ID]; !ok {
		return nil, ports.ErrNotFound
	}
	v := *b
	v.UpdatedAt = time.Now()
	r.s.bookings[v.ID] = v
	return r.strip(v), nil
}
func (r storeBookings) UpdateStatus(ctx context.Context, id uuid.UUID, status booking.Status) (*booking.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.WriteErr != nil {
		return nil, r.s.WriteErr
	}
	v, ok := r.s.bookings[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	v.Status = status
	v.UpdatedAt = time.Now()
	r.s.bookings[id] = v
	return r.strip(v), nil
}

type storeReviews struct{ s *Store }

func (r storeReviews) Create(ctx context.Context, rv *review.Review) (*review.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.WriteErr != nil {
		return nil, r.s.WriteErr
	}
	v := *rv
	ensureID(&v.ID)
	r.s.reviews[v.ID] = v
	return &v, nil
}
func (r storeReviews) GetByID(ctx context.Context, id uuid.UUID) (*review.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.reviews[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &v, nil
}
func (r storeReviews) List(ctx context.Context, f review.Filter) ([]*review.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.read("reviews")
	out := []*review.Review{}
	for _, rv := range r.s.reviews {
		if f.ServiceID != nil && rv.ServiceID != *f.ServiceID {
			continue
		}
		if f.ProID != nil && rv.ProID != *f.ProID {
			continue
		}
		v := rv
		out = append(out, &v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Comment < out[j].Comment })
	return out, nil
}
func (r storeReviews) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.WriteErr != nil {
		return r.s.WriteErr
	}
	delete(r.s.reviews, id)
	return nil
}

type storeMessages struct{ s *Store }

func (r storeMessages) Create(ctx context.Context, m *messaging.Message) (*messaging.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.WriteErr != nil {
		return nil, r.s.WriteErr
	}
	v := *m
	ensureID(&v.ID)
	r.s.messages = append(r.s.messages, v)
	return &v, nil
}

type storeDisputes struct{ s *Store }

func (r storeDisputes) Create(ctx context.Context, d *dispute.Dispute) (*dispute.Dispute, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.WriteErr != nil {
		return nil, r.s.WriteErr
	}
	v := *d
	ensureID(&v.ID)
	r.s.disputes = append(r.s.disputes, v)
	return &v, nil
}

// NotifierMock records enqueued notifications.
type NotifierMock struct {
	mu   sync.Mutex
	Sent []ports.Notification
	Err  error
}

func (n *NotifierMock) Enqueue(ctx context.Context, msg ports.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Err != nil {
		return n.Err
	}
	n.Sent = append(n.Sent, msg)
	return nil
}

func (n *NotifierMock) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.Sent)
}
