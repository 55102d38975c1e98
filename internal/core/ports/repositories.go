package ports

import (
	"context"
	"errors"

	"github.com/avatarctic/services-marketplace/internal/core/domain/booking"
	"github.com/avatarctic/services-marketplace/internal/core/domain/catalog"
	"github.com/avatarctic/services-marketplace/internal/core/domain/dispute"
	"github.com/avatarctic/services-marketplace/internal/core/domain/location"
	"github.com/avatarctic/services-marketplace/internal/core/domain/messaging"
	"github.com/avatarctic/services-marketplace/internal/core/domain/review"
	"github.com/avatarctic/services-marketplace/internal/core/domain/user"
	"github.com/google/uuid"
)

// ErrNotFound is returned by repositories when the requested entity does not exist.
var ErrNotFound = errors.New("not found")

type UserRepository interface {
	Create(ctx context.Context, u *user.User) (*user.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	Update(ctx context.Context, u *user.User) (*user.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type CityRepository interface {
	Create(ctx context.Context, c *location.City) (*location.City, error)
	GetByID(ctx context.Context, id uuid.UUID) (*location.City, error)
	// List returns all cities, or only those named city when city is non-empty.
	List(ctx context.Context, city string) ([]*location.City, error)
	Update(ctx context.Context, c *location.City) (*location.City, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type ServiceCategoryRepository interface {
	Create(ctx context.Context, c *catalog.ServiceCategory) (*catalog.ServiceCategory, error)
	GetByID(ctx context.Context, id uuid.UUID) (*catalog.ServiceCategory, error)
	List(ctx context.Context) ([]*catalog.ServiceCategory, error)
	Update(ctx context.Context, c *catalog.ServiceCategory) (*catalog.ServiceCategory, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type ServiceRepository interface {
	Create(ctx context.Context, s *catalog.Service) (*catalog.Service, error)
	GetByID(ctx context.Context, id uuid.UUID) (*catalog.Service, error)
	// List returns all services, or only those in categoryID when it is non-nil.
	List(ctx context.Context, categoryID *uuid.UUID) ([]*catalog.Service, error)
	Update(ctx context.Context, s *catalog.Service) (*catalog.Service, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type BookingRepository interface {
	Create(ctx context.Context, b *booking.Booking) (*booking.Booking, error)
	GetByID(ctx context.Context, id uuid.UUID) (*booking.Booking, error)
	// ListByUser returns bookings where userID is either the client or the pro.
	// An empty status returns all statuses.
	ListByUser(ctx context.Context, userID uuid.UUID, status booking.Status) ([]*booking.Booking, error)
	Update(ctx context.Context, b *booking.Booking) (*booking.Booking, error)
	// UpdateStatus returns the full updated row, including both participant IDs.
	UpdateStatus(ctx context.Context, id uuid.UUID, status booking.Status) (*booking.Booking, error)
}

type ReviewRepository interface {
	Create(ctx context.Context, r *review.Review) (*review.Review, error)
	GetByID(ctx context.Context, id uuid.UUID) (*review.Review, error)
	List(ctx context.Context, filter review.Filter) ([]*review.Review, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type MessageRepository interface {
	Create(ctx context.Context, m *messaging.Message) (*messaging.Message, error)
}

type DisputeRepository interface {
	Create(ctx context.Context, d *dispute.Dispute) (*dispute.Dispute, error)
}
