package entities

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrReminderNotFound = errors.New("reminder not found")
	ErrStorageFailure   = errors.New("storage failure")
	ErrInvalidLocation  = errors.New("invalid location")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidPassword  = errors.New("invalid password")
)

// ReminderNotFoundMessage is the message carried by the Result returned for a lookup miss.
const ReminderNotFoundMessage = "Reminder not found!"

// Message keys signalled to the presentation layer.
const (
	MsgEnterTitle         = "err_enter_title"
	MsgSelectLocation     = "err_select_location"
	MsgSelectPOI          = "select_poi"
	MsgReminderSaved      = "reminder_saved"
	MsgReminderDeleted    = "reminder_deleted"
	MsgLocationAdded      = "location_added"
	MsgLocationUpdated    = "location_updated"
	MsgGeofenceAdded      = "geofence_added"
	MsgGeofenceNotAdded   = "geofences_not_added"
	MsgSignInSuccessful   = "auth_sign_in_successful"
	MsgSignInCancelled    = "auth_sign_in_cancelled"
	MsgSignInUnsuccessful = "auth_sign_in_unsuccessful"
	MsgSignedOut          = "auth_signed_out"
)

// AuthState is the two-state signal exposed by the authentication provider.
type AuthState string

const (
	AuthStateAuthenticated   AuthState = "authenticated"
	AuthStateUnauthenticated AuthState = "unauthenticated"
)

// Coordinate is a WGS84 latitude/longitude pair in degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%f, %f)", c.Latitude, c.Longitude)
}

// Reminder represents one location-triggered reminder.
// Every field but ID is optional until the reminder has been validated.
type Reminder struct {
	ID           string   `json:"id" yaml:"id" db:"id"`
	Title        *string  `json:"title,omitempty" yaml:"title,omitempty" db:"title"`
	Description  *string  `json:"description,omitempty" yaml:"description,omitempty" db:"description"`
	LocationName *string  `json:"location,omitempty" yaml:"location,omitempty" db:"location"`
	Latitude     *float64 `json:"latitude,omitempty" yaml:"latitude,omitempty" db:"latitude"`
	Longitude    *float64 `json:"longitude,omitempty" yaml:"longitude,omitempty" db:"longitude"`
	RadiusMeters *float64 `json:"radius,omitempty" yaml:"radius,omitempty" db:"radius"`
}

// NewReminder returns an empty reminder with a freshly generated id.
func NewReminder() *Reminder {
	return &Reminder{ID: uuid.NewString()}
}

// EnsureID assigns a random id when none is set.
func (r *Reminder) EnsureID() {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
}

// Clone returns a deep copy of the reminder.
func (r *Reminder) Clone() *Reminder {
	if r == nil {
		return nil
	}
	return &Reminder{
		ID:           r.ID,
		Title:        cloneString(r.Title),
		Description:  cloneString(r.Description),
		LocationName: cloneString(r.LocationName),
		Latitude:     cloneFloat(r.Latitude),
		Longitude:    cloneFloat(r.Longitude),
		RadiusMeters: cloneFloat(r.RadiusMeters),
	}
}

// HasTitle reports whether the title is present and non-empty.
func (r *Reminder) HasTitle() bool {
	return r.Title != nil && *r.Title != ""
}

// HasLocation reports whether the location name is present and non-empty.
func (r *Reminder) HasLocation() bool {
	return r.LocationName != nil && *r.LocationName != ""
}

// Geofence returns the geofence definition of the reminder.
func (r *Reminder) Geofence() (Geofence, error) {
	if r.Latitude == nil || r.Longitude == nil || r.RadiusMeters == nil {
		return Geofence{}, fmt.Errorf("reminder %s: %w", r.ID, ErrInvalidLocation)
	}
	return Geofence{
		ID:           r.ID,
		Center:       Coordinate{Latitude: *r.Latitude, Longitude: *r.Longitude},
		RadiusMeters: *r.RadiusMeters,
	}, nil
}

// PointOfInterest is a named circle selected on the map. It is the staging
// value flattened into a reminder's location fields.
type PointOfInterest struct {
	Center       Coordinate `json:"center"`
	RadiusMeters float64    `json:"radius" validate:"gt=0"`
	Name         string     `json:"name"`
}

// Apply copies the point of interest into the reminder's location fields.
func (p PointOfInterest) Apply(r *Reminder) {
	lat, lng, radius, name := p.Center.Latitude, p.Center.Longitude, p.RadiusMeters, p.Name
	r.Latitude = &lat
	r.Longitude = &lng
	r.RadiusMeters = &radius
	r.LocationName = &name
}

// PointOfInterestFromReminder rebuilds the point of interest stored in a reminder.
// It returns false when any location field is missing.
func PointOfInterestFromReminder(r *Reminder) (PointOfInterest, bool) {
	if r == nil || r.Latitude == nil || r.Longitude == nil || r.RadiusMeters == nil || r.LocationName == nil {
		return PointOfInterest{}, false
	}
	return PointOfInterest{
		Center:       Coordinate{Latitude: *r.Latitude, Longitude: *r.Longitude},
		RadiusMeters: *r.RadiusMeters,
		Name:         *r.LocationName,
	}, true
}

// Geofence is a circular trigger region tied to a reminder.
type Geofence struct {
	ID           string     `json:"id"`
	Center       Coordinate `json:"center"`
	RadiusMeters float64    `json:"radius"`
}

// ValidationError reports a draft reminder rejected before reaching storage.
type ValidationError struct {
	Field string
	Key   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Key)
}

// StringPtr returns a pointer to s, or nil when s is empty. Whitespace is
// kept as entered.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// FloatPtr returns a pointer to f.
func FloatPtr(f float64) *float64 {
	return &f
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
