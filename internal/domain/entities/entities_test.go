package entities

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReminder_GeneratesUniqueIDs(t *testing.T) {
	a := NewReminder()
	b := NewReminder()

	require.NotEmpty(t, a.ID)
	require.NotEmpty(t, b.ID)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestReminder_EnsureIDKeepsExisting(t *testing.T) {
	r := &Reminder{ID: "fixed"}
	r.EnsureID()
	assert.Equal(t, "fixed", r.ID)

	empty := &Reminder{}
	empty.EnsureID()
	assert.NotEmpty(t, empty.ID)
}

func TestReminder_CloneIsDeep(t *testing.T) {
	r := &Reminder{ID: "r1", Title: StringPtr("Title"), Latitude: FloatPtr(1.5)}
	c := r.Clone()

	*c.Title = "changed"
	*c.Latitude = 9

	assert.Equal(t, "Title", *r.Title)
	assert.Equal(t, 1.5, *r.Latitude)
	assert.Nil(t, c.Description)
}

func TestReminder_Validity(t *testing.T) {
	r := &Reminder{ID: "r1", Title: new(string)}
	assert.False(t, r.HasTitle(), "empty title is not a title")
	assert.False(t, r.HasLocation())

	assert.Nil(t, StringPtr(""))
	r.Title = StringPtr("  ")
	assert.True(t, r.HasTitle(), "whitespace counts as entered")

	r.Title = StringPtr("Groceries")
	r.LocationName = StringPtr("Market")
	assert.True(t, r.HasTitle())
	assert.True(t, r.HasLocation())
}

func TestPointOfInterest_RoundTripThroughReminder(t *testing.T) {
	poi := PointOfInterest{
		Center:       Coordinate{Latitude: 37.819927, Longitude: -122.478256},
		RadiusMeters: 150,
		Name:         "Golden Gate Bridge",
	}
	r := NewReminder()
	poi.Apply(r)

	got, ok := PointOfInterestFromReminder(r)
	require.True(t, ok)
	assert.Equal(t, poi, got)

	fence, err := r.Geofence()
	require.NoError(t, err)
	assert.Equal(t, r.ID, fence.ID)
	assert.Equal(t, 150.0, fence.RadiusMeters)
}

func TestReminder_GeofenceRequiresLocation(t *testing.T) {
	_, err := NewReminder().Geofence()
	assert.ErrorIs(t, err, ErrInvalidLocation)

	_, ok := PointOfInterestFromReminder(nil)
	assert.False(t, ok)
}

func TestResult_Success(t *testing.T) {
	res := Success([]string{"a"})

	assert.True(t, res.IsSuccess())
	assert.Nil(t, res.Err())
	data, ok := res.Data()
	assert.True(t, ok)
	assert.Equal(t, []string{"a"}, data)
}

func TestResult_NotFound(t *testing.T) {
	res := NotFound[*Reminder]()

	assert.False(t, res.IsSuccess())
	require.NotNil(t, res.Err())
	assert.Equal(t, "Reminder not found!", res.Err().Message)
	assert.Nil(t, res.Err().StatusCode)

	_, err := res.Unwrap()
	assert.True(t, errors.Is(err, ErrReminderNotFound))
}

func TestResult_FailureWithStatusCode(t *testing.T) {
	code := 503
	res := Failure[int]("backend down", &code)

	value, err := res.Unwrap()
	assert.Zero(t, value)
	assert.EqualError(t, err, "backend down")
	assert.Equal(t, 503, *res.Err().StatusCode)
	assert.False(t, errors.Is(err, ErrReminderNotFound))
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Field: "title", Key: MsgEnterTitle}
	assert.Equal(t, "validation failed on title: err_enter_title", err.Error())
}
