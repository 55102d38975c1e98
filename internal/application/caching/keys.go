package caching

import (
	"github.com/avatarctic/services-marketplace/internal/core/domain/booking"
	"github.com/google/uuid"
)

// Namespace prefixes. Every key starts with exactly one of these, so keys for
// different entity types never collide.
const (
	UserPrefix              = "user:"
	LocationsPrefix         = "locations:"
	ServicesPrefix          = "services:"
	ServiceCategoriesPrefix = "service-categories:"
	BookingsPrefix          = "bookings:"
	ReviewsPrefix           = "reviews:"
	HTTPPrefix              = "http:"

	all = "all"
)

func UserKey(id uuid.UUID) string {
	return UserPrefix + id.String()
}

// LocationsKey returns locations:city:{city}, or locations:all when city is empty.
func LocationsKey(city string) string {
	if city == "" {
		return LocationsPrefix + all
	}
	return LocationsPrefix + "city:" + city
}

func ServicesKey(categoryID *uuid.UUID) string {
	if categoryID == nil {
		return ServicesPrefix + all
	}
	return ServicesPrefix + "category:" + categoryID.String()
}

func ServiceCategoriesKey() string {
	return ServiceCategoriesPrefix + all
}

// BookingsByUserKey returns bookings:user:{id} or bookings:user:{id}:{status}.
// The unfiltered key doubles as the owner root for InvalidateOwner.
func BookingsByUserKey(userID uuid.UUID, status booking.Status) string {
	k := BookingsPrefix + "user:" + userID.String()
	if status == "" {
		return k
	}
	return k + ":" + string(status)
}

// ReviewsKey picks the narrowest selector present. Supplying both IDs yields a
// key nested under the service family.
func ReviewsKey(serviceID, proID *uuid.UUID) string {
	switch {
	case serviceID != nil && proID != nil:
		return ReviewsByServiceKey(*serviceID) + ":pro:" + proID.String()
	case serviceID != nil:
		return ReviewsByServiceKey(*serviceID)
	case proID != nil:
		return ReviewsByProKey(*proID)
	default:
		return ReviewsPrefix + all
	}
}

func ReviewsByServiceKey(serviceID uuid.UUID) string {
	return ReviewsPrefix + "service:" + serviceID.String()
}

func ReviewsByProKey(proID uuid.UUID) string {
	return ReviewsPrefix + "pro:" + proID.String()
}

func AllReviewsKey() string {
	return ReviewsPrefix + all
}

// HTTPResponsePrefix scopes whole-response entries by API resource so writes can
// purge them without knowing individual fingerprints.
func HTTPResponsePrefix(resource string) string {
	return HTTPPrefix + resource + ":"
}

func HTTPResponseKey(resource, fingerprint string) string {
	return HTTPResponsePrefix(resource) + fingerprint
}

// API resources whose whole responses the HTTP layer caches.
const (
	ResourceUsers             = "users"
	ResourceCities            = "cities"
	ResourceServiceCategories = "service-categories"
	ResourceServices          = "services"
	ResourceBookings          = "bookings"
	ResourceReviews           = "reviews"
)
