package services

import (
	"context"
	"errors"

	"github.com/avatarctic/services-marketplace/internal/core/domain/booking"
	"github.com/avatarctic/services-marketplace/internal/core/domain/catalog"
	"github.com/avatarctic/services-marketplace/internal/core/domain/location"
	"github.com/avatarctic/services-marketplace/internal/core/domain/review"
	"github.com/avatarctic/services-marketplace/internal/core/domain/user"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrInvalidationTargetAmbiguous is logged when a write returns an entity without the
// fields needed to compute its invalidation keys. Repositories must always return them;
// when they do not, the whole entity namespace is dropped instead.
var ErrInvalidationTargetAmbiguous = errors.New("invalidation target ambiguous")

// InvalidationHooks wraps each write so that, once it succeeds, the cached reads it
// affects are invalidated. The write is the source of truth: invalidation faults are
// logged and never fail the mutation.
type InvalidationHooks struct {
	repos   Repositories
	queries *CachedQueries
	logger  *logrus.Logger
}

func NewInvalidationHooks(repos Repositories, queries *CachedQueries, logger *logrus.Logger) *InvalidationHooks {
	return &InvalidationHooks{repos: repos, queries: queries, logger: logger}
}

// detached keeps invalidation running when the request that triggered the write
// has already gone away.
func detached(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

func (h *InvalidationHooks) ambiguous(entity string, fields logrus.Fields) {
	if h.logger != nil {
		h.logger.WithFields(fields).WithField("entity", entity).WithError(ErrInvalidationTargetAmbiguous).Error("write returned no invalidation keys; dropping namespace")
	}
}

// Users

func (h *InvalidationHooks) CreateUser(ctx context.Context, u *user.User) (*user.User, error) {
	created, err := h.repos.Users.Create(ctx, u)
	if err != nil {
		return nil, err
	}
	h.invalidateUser(detached(ctx), created)
	return created, nil
}

func (h *InvalidationHooks) UpdateUser(ctx context.Context, u *user.User) (*user.User, error) {
	updated, err := h.repos.Users.Update(ctx, u)
	if err != nil {
		return nil, err
	}
	h.invalidateUser(detached(ctx), updated)
	return updated, nil
}

// DeleteUser also drops every services listing: the store removes a pro's
// services with the account, and the categories they sat in are unknown here.
func (h *InvalidationHooks) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if err := h.repos.Users.Delete(ctx, id); err != nil {
		return err
	}
	dctx := detached(ctx)
	h.queries.InvalidateUser(dctx, id)
	h.queries.InvalidateAllServices(dctx)
	return nil
}

func (h *InvalidationHooks) invalidateUser(ctx context.Context, u *user.User) {
	if u == nil || u.ID == uuid.Nil {
		h.ambiguous("user", nil)
		h.queries.InvalidateAllUsers(ctx)
		return
	}
	h.queries.InvalidateUser(ctx, u.ID)
}

// Cities

func (h *InvalidationHooks) CreateCity(ctx context.Context, c *location.City) (*location.City, error) {
	created, err := h.repos.Cities.Create(ctx, c)
	if err != nil {
		return nil, err
	}
	h.queries.InvalidateLocations(detached(ctx))
	return created, nil
}

func (h *InvalidationHooks) UpdateCity(ctx context.Context, c *location.City) (*location.City, error) {
	updated, err := h.repos.Cities.Update(ctx, c)
	if err != nil {
		return nil, err
	}
	h.queries.InvalidateLocations(detached(ctx))
	return updated, nil
}

// DeleteCity also drops every cached user: the store clears city_id on the
// users that lived there.
func (h *InvalidationHooks) DeleteCity(ctx context.Context, id uuid.UUID) error {
	if err := h.repos.Cities.Delete(ctx, id); err != nil {
		return err
	}
	dctx := detached(ctx)
	h.queries.InvalidateLocations(dctx)
	h.queries.InvalidateAllUsers(dctx)
	return nil
}

// Service categories

func (h *InvalidationHooks) CreateServiceCategory(ctx context.Context, c *catalog.ServiceCategory) (*catalog.ServiceCategory, error) {
	created, err := h.repos.Categories.Create(ctx, c)
	if err != nil {
		return nil, err
	}
	h.queries.InvalidateServiceCatalog(detached(ctx))
	return created, nil
}

func (h *InvalidationHooks) UpdateServiceCategory(ctx context.Context, c *catalog.ServiceCategory) (*catalog.ServiceCategory, error) {
	updated, err := h.repos.Categories.Update(ctx, c)
	if err != nil {
		return nil, err
	}
	h.queries.InvalidateServiceCatalog(detached(ctx))
	return updated, nil
}

func (h *InvalidationHooks) DeleteServiceCategory(ctx context.Context, id uuid.UUID) error {
	if err := h.repos.Categories.Delete(ctx, id); err != nil {
		return err
	}
	h.queries.InvalidateServiceCatalog(detached(ctx))
	return nil
}

// Services

func (h *InvalidationHooks) CreateService(ctx context.Context, s *catalog.Service) (*catalog.Service, error) {
	created, err := h.repos.Services.Create(ctx, s)
	if err != nil {
		return nil, err
	}
	h.invalidateServices(detached(ctx), created)
	return created, nil
}

// UpdateService also invalidates the category the service is moving out of.
func (h *InvalidationHooks) UpdateService(ctx context.Context, s *catalog.Service) (*catalog.Service, error) {
	before, _ := h.repos.Services.GetByID(ctx, s.ID)
	updated, err := h.repos.Services.Update(ctx, s)
	if err != nil {
		return nil, err
	}
	ictx := detached(ctx)
	h.invalidateServices(ictx, updated)
	if before != nil && updated != nil && before.CategoryID != updated.CategoryID {
		h.queries.InvalidateServices(ictx, before.CategoryID)
	}
	return updated, nil
}

func (h *InvalidationHooks) DeleteService(ctx context.Context, id uuid.UUID) error {
	before, _ := h.repos.Services.GetByID(ctx, id)
	if err := h.repos.Services.Delete(ctx, id); err != nil {
		return err
	}
	h.invalidateServices(detached(ctx), before)
	return nil
}

func (h *InvalidationHooks) invalidateServices(ctx context.Context, s *catalog.Service) {
	if s == nil || s.CategoryID == uuid.Nil {
		h.ambiguous("service", nil)
		h.queries.InvalidateServiceCatalog(ctx)
		return
	}
	h.queries.InvalidateServices(ctx, s.CategoryID)
}

// Bookings

func (h *InvalidationHooks) CreateBooking(ctx context.Context, b *booking.Booking) (*booking.Booking, error) {
	created, err := h.repos.Bookings.Create(ctx, b)
	if err != nil {
		return nil, err
	}
	h.invalidateBooking(detached(ctx), created)
	return created, nil
}

func (h *InvalidationHooks) UpdateBooking(ctx context.Context, b *booking.Booking) (*booking.Booking, error) {
	updated, err := h.repos.Bookings.Update(ctx, b)
	if err != nil {
		return nil, err
	}
	h.invalidateBooking(detached(ctx), updated)
	return updated, nil
}

func (h *InvalidationHooks) UpdateBookingStatus(ctx context.Context, id uuid.UUID, status booking.Status) (*booking.Booking, error) {
	updated, err := h.repos.Bookings.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	h.invalidateBooking(detached(ctx), updated)
	return updated, nil
}

// invalidateBooking clears both participants' listings.
func (h *InvalidationHooks) invalidateBooking(ctx context.Context, b *booking.Booking) {
	if b == nil || b.ClientID == uuid.Nil || b.ProID == uuid.Nil {
		fields := logrus.Fields{}
		if b != nil {
			fields["booking_id"] = b.ID
		}
		h.ambiguous("booking", fields)
		h.queries.InvalidateAllBookings(ctx)
		return
	}
	h.queries.InvalidateBookingsForUsers(ctx, b.ClientID, b.ProID)
}

// Reviews

func (h *InvalidationHooks) CreateReview(ctx context.Context, r *review.Review) (*review.Review, error) {
	created, err := h.repos.Reviews.Create(ctx, r)
	if err != nil {
		return nil, err
	}
	h.invalidateReview(detached(ctx), created)
	return created, nil
}

func (h *InvalidationHooks) DeleteReview(ctx context.Context, id uuid.UUID) error {
	before, _ := h.repos.Reviews.GetByID(ctx, id)
	if err := h.repos.Reviews.Delete(ctx, id); err != nil {
		return err
	}
	h.invalidateReview(detached(ctx), before)
	return nil
}

func (h *InvalidationHooks) invalidateReview(ctx context.Context, r *review.Review) {
	if r == nil || r.ProID == uuid.Nil || r.ServiceID == uuid.Nil {
		h.ambiguous("review", nil)
		h.queries.InvalidateAllReviews(ctx)
		return
	}
	h.queries.InvalidateReviews(ctx, r.ServiceID, r.ProID)
}
