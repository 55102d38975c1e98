package services

import (
	"context"
	"time"

	"github.com/avatarctic/services-marketplace/internal/application/caching"
	"github.com/avatarctic/services-marketplace/internal/core/domain/booking"
	"github.com/avatarctic/services-marketplace/internal/core/domain/catalog"
	"github.com/avatarctic/services-marketplace/internal/core/domain/location"
	"github.com/avatarctic/services-marketplace/internal/core/domain/review"
	"github.com/avatarctic/services-marketplace/internal/core/domain/user"
	"github.com/avatarctic/services-marketplace/internal/core/ports"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// TTLPolicy assigns a lifetime per entity family. Shorter TTLs go to data that
// changes often and whose staleness end users notice.
type TTLPolicy struct {
	User      time.Duration
	Reference time.Duration
	Services  time.Duration
	Bookings  time.Duration
	Reviews   time.Duration
}

func DefaultTTLPolicy() TTLPolicy {
	return TTLPolicy{
		User:      time.Hour,
		Reference: time.Hour,
		Services:  30 * time.Minute,
		Bookings:  10 * time.Minute,
		Reviews:   30 * time.Minute,
	}
}

// Repositories groups the data-store collaborators.
type Repositories struct {
	Users      ports.UserRepository
	Cities     ports.CityRepository
	Categories ports.ServiceCategoryRepository
	Services   ports.ServiceRepository
	Bookings   ports.BookingRepository
	Reviews    ports.ReviewRepository
}

// CachedQueries serves entity reads through the cache-aside service. Every method
// returns the same shape as the underlying repository call.
type CachedQueries struct {
	repos  Repositories
	cache  *caching.Service
	ttl    TTLPolicy
	logger *logrus.Logger
}

func NewCachedQueries(repos Repositories, cache *caching.Service, ttl TTLPolicy, logger *logrus.Logger) *CachedQueries {
	def := DefaultTTLPolicy()
	if ttl.User <= 0 {
		ttl.User = def.User
	}
	if ttl.Reference <= 0 {
		ttl.Reference = def.Reference
	}
	if ttl.Services <= 0 {
		ttl.Services = def.Services
	}
	if ttl.Bookings <= 0 {
		ttl.Bookings = def.Bookings
	}
	if ttl.Reviews <= 0 {
		ttl.Reviews = def.Reviews
	}
	return &CachedQueries{repos: repos, cache: cache, ttl: ttl, logger: logger}
}

func (q *CachedQueries) GetUser(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return caching.GetOrSet(ctx, q.cache, caching.UserKey(id), q.ttl.User, func(ctx context.Context) (*user.User, error) {
		return q.repos.Users.GetByID(ctx, id)
	})
}

// ListCities returns all cities, or those named city.
func (q *CachedQueries) ListCities(ctx context.Context, city string) ([]*location.City, error) {
	return caching.GetOrSet(ctx, q.cache, caching.LocationsKey(city), q.ttl.Reference, func(ctx context.Context) ([]*location.City, error) {
		return q.repos.Cities.List(ctx, city)
	})
}

func (q *CachedQueries) ListServiceCategories(ctx context.Context) ([]*catalog.ServiceCategory, error) {
	return caching.GetOrSet(ctx, q.cache, caching.ServiceCategoriesKey(), q.ttl.Reference, func(ctx context.Context) ([]*catalog.ServiceCategory, error) {
		return q.repos.Categories.List(ctx)
	})
}

func (q *CachedQueries) ListServices(ctx context.Context, categoryID *uuid.UUID) ([]*catalog.Service, error) {
	return caching.GetOrSet(ctx, q.cache, caching.ServicesKey(categoryID), q.ttl.Services, func(ctx context.Context) ([]*catalog.Service, error) {
		return q.repos.Services.List(ctx, categoryID)
	})
}

func (q *CachedQueries) ListBookingsByUser(ctx context.Context, userID uuid.UUID, status booking.Status) ([]*booking.Booking, error) {
	return caching.GetOrSet(ctx, q.cache, caching.BookingsByUserKey(userID, status), q.ttl.Bookings, func(ctx context.Context) ([]*booking.Booking, error) {
		return q.repos.Bookings.ListByUser(ctx, userID, status)
	})
}

func (q *CachedQueries) ListReviews(ctx context.Context, filter review.Filter) ([]*review.Review, error) {
	return caching.GetOrSet(ctx, q.cache, caching.ReviewsKey(filter.ServiceID, filter.ProID), q.ttl.Reviews, func(ctx context.Context) ([]*review.Review, error) {
		return q.repos.Reviews.List(ctx, filter)
	})
}

// Warm pre-populates the reference data that nearly every page reads.
func (q *CachedQueries) Warm(ctx context.Context) error {
	if _, err := q.ListCities(ctx, ""); err != nil {
		return err
	}
	if _, err := q.ListServiceCategories(ctx); err != nil {
		return err
	}
	_, err := q.ListServices(ctx, nil)
	return err
}

// Invalidation helpers. Each also purges the whole-response entries of the same
// API resource. Failures are logged by the cache service and never returned.

func (q *CachedQueries) InvalidateUser(ctx context.Context, id uuid.UUID) {
	_ = q.cache.InvalidateExact(ctx, caching.UserKey(id))
	q.purgeHTTP(ctx, caching.ResourceUsers)
}

func (q *CachedQueries) InvalidateAllUsers(ctx context.Context) {
	_ = q.cache.InvalidateByPrefix(ctx, caching.UserPrefix)
	q.purgeHTTP(ctx, caching.ResourceUsers)
}

func (q *CachedQueries) InvalidateLocations(ctx context.Context) {
	_ = q.cache.InvalidateByPrefix(ctx, caching.LocationsPrefix)
	q.purgeHTTP(ctx, caching.ResourceCities)
}

// InvalidateServiceCatalog drops the category list and every services listing,
// since category changes can reshape any of them.
func (q *CachedQueries) InvalidateServiceCatalog(ctx context.Context) {
	_ = q.cache.InvalidateExact(ctx, caching.ServiceCategoriesKey())
	_ = q.cache.InvalidateByPrefix(ctx, caching.ServicesPrefix)
	q.purgeHTTP(ctx, caching.ResourceServiceCategories, caching.ResourceServices)
}

// InvalidateServices drops the listings of the given categories and the unfiltered listing.
func (q *CachedQueries) InvalidateServices(ctx context.Context, categoryIDs ...uuid.UUID) {
	for i := range categoryIDs {
		_ = q.cache.InvalidateExact(ctx, caching.ServicesKey(&categoryIDs[i]))
	}
	_ = q.cache.InvalidateExact(ctx, caching.ServicesKey(nil))
	q.purgeHTTP(ctx, caching.ResourceServices)
}

// InvalidateAllServices drops every services listing, filtered or not.
func (q *CachedQueries) InvalidateAllServices(ctx context.Context) {
	_ = q.cache.InvalidateByPrefix(ctx, caching.ServicesPrefix)
	q.purgeHTTP(ctx, caching.ResourceServices)
}

// InvalidateBookingsForUsers drops every bookings-by-user key (all statuses) of each participant.
func (q *CachedQueries) InvalidateBookingsForUsers(ctx context.Context, userIDs ...uuid.UUID) {
	for _, id := range userIDs {
		_ = q.cache.InvalidateOwner(ctx, caching.BookingsByUserKey(id, ""))
	}
	q.purgeHTTP(ctx, caching.ResourceBookings)
}

func (q *CachedQueries) InvalidateAllBookings(ctx context.Context) {
	_ = q.cache.InvalidateByPrefix(ctx, caching.BookingsPrefix)
	q.purgeHTTP(ctx, caching.ResourceBookings)
}

// InvalidateReviews drops the pro's reviews, the service's reviews (including
// service+pro combinations) and the unfiltered list.
func (q *CachedQueries) InvalidateReviews(ctx context.Context, serviceID, proID uuid.UUID) {
	_ = q.cache.InvalidateExact(ctx, caching.ReviewsByProKey(proID))
	_ = q.cache.InvalidateOwner(ctx, caching.ReviewsByServiceKey(serviceID))
	_ = q.cache.InvalidateExact(ctx, caching.AllReviewsKey())
	q.purgeHTTP(ctx, caching.ResourceReviews)
}

func (q *CachedQueries) InvalidateAllReviews(ctx context.Context) {
	_ = q.cache.InvalidateByPrefix(ctx, caching.ReviewsPrefix)
	q.purgeHTTP(ctx, caching.ResourceReviews)
}

func (q *CachedQueries) purgeHTTP(ctx context.Context, resources ...string) {
	for _, r := range resources {
		_ = q.cache.InvalidateByPrefix(ctx, caching.HTTPResponsePrefix(r))
	}
}
