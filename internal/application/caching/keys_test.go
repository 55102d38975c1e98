package caching_test

import (
	"testing"

	"github.com/avatarctic/services-marketplace/internal/application/caching"
	"github.com/avatarctic/services-marketplace/internal/core/domain/booking"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeys_Templates(t *testing.T) {
	id := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	other := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	assert.Equal(t, "user:"+id.String(), caching.UserKey(id))
	assert.Equal(t, "locations:all", caching.LocationsKey(""))
	assert.Equal(t, "locations:city:Lisbon", caching.LocationsKey("Lisbon"))
	assert.Equal(t, "services:all", caching.ServicesKey(nil))
	assert.Equal(t, "services:category:"+id.String(), caching.ServicesKey(&id))
	assert.Equal(t, "service-categories:all", caching.ServiceCategoriesKey())
	assert.Equal(t, "bookings:user:"+id.String(), caching.BookingsByUserKey(id, ""))
	assert.Equal(t, "bookings:user:"+id.String()+":confirmed", caching.BookingsByUserKey(id, booking.StatusConfirmed))
	assert.Equal(t, "reviews:all", caching.ReviewsKey(nil, nil))
	assert.Equal(t, "reviews:service:"+id.String(), caching.ReviewsKey(&id, nil))
	assert.Equal(t, "reviews:pro:"+other.String(), caching.ReviewsKey(nil, &other))
	assert.Equal(t, "reviews:service:"+id.String()+":pro:"+other.String(), caching.ReviewsKey(&id, &other))
	assert.Equal(t, "http:bookings:abc", caching.HTTPResponseKey("bookings", "abc"))
}

func TestKeys_DeterministicAndDistinct(t *testing.T) {
	a := uuid.New()
	b := uuid.New()

	require.Equal(t, caching.UserKey(a), caching.UserKey(uuid.MustParse(a.String())))
	require.Equal(t, caching.BookingsByUserKey(a, booking.StatusPending), caching.BookingsByUserKey(a, booking.StatusPending))

	keys := []string{
		caching.UserKey(a),
		caching.UserKey(b),
		caching.LocationsKey(""),
		caching.LocationsKey("all"),
		caching.ServicesKey(nil),
		caching.ServicesKey(&a),
		caching.ServiceCategoriesKey(),
		caching.BookingsByUserKey(a, ""),
		caching.BookingsByUserKey(a, booking.StatusPending),
		caching.BookingsByUserKey(b, ""),
		caching.ReviewsKey(nil, nil),
		caching.ReviewsKey(&a, nil),
		caching.ReviewsKey(nil, &a),
		caching.ReviewsKey(&a, &b),
		caching.HTTPResponseKey("users", a.String()),
	}
	seen := map[string]bool{}
	for _, k := range keys {
		require.False(t, seen[k], "duplicate key %s", k)
		seen[k] = true
	}
}
