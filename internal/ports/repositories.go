package ports

import (
	"context"

	"github.com/geominder/core/internal/domain/entities"
)

// ReminderStore defines durable keyed storage of reminders.
//
// GetAll returns reminders in first-insertion order; re-saving an existing id
// keeps its position. GetByID returns entities.ErrReminderNotFound on a miss.
// DeleteByID is a no-op for unknown ids. Any other error is a backing
// storage failure.
type ReminderStore interface {
	Save(ctx context.Context, reminder *entities.Reminder) error
	GetAll(ctx context.Context) ([]*entities.Reminder, error)
	GetByID(ctx context.Context, id string) (*entities.Reminder, error)
	DeleteByID(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
}

// ReminderRepository is the interface the rest of the system uses to read and
// write reminders.
type ReminderRepository interface {
	GetReminders(ctx context.Context) entities.Result[[]*entities.Reminder]
	GetReminder(ctx context.Context, id string) entities.Result[*entities.Reminder]
	SaveReminder(ctx context.Context, reminder *entities.Reminder) error
	DeleteReminder(ctx context.Context, id string) error
	DeleteAllReminders(ctx context.Context) error
}

// GeofenceRegistrar registers and removes geofence triggers.
type GeofenceRegistrar interface {
	Register(ctx context.Context, fence entities.Geofence) error
	Remove(ctx context.Context, ids ...string) error
	// Clear removes every registered geofence.
	Clear(ctx context.Context) error
	// Containing returns the ids of registered geofences that contain c.
	Containing(ctx context.Context, c entities.Coordinate) ([]string, error)
}

// AuthStateProvider exposes whether the current caller is signed in.
type AuthStateProvider interface {
	AuthState(ctx context.Context) entities.AuthState
}

// Authenticator signs a caller in and out.
type Authenticator interface {
	AuthStateProvider
	Login(ctx context.Context, password string) (*AuthResponse, error)
	Logout(ctx context.Context) error
}
