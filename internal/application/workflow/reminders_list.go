package workflow

import (
	"context"

	"github.com/geominder/core/internal/domain/entities"
	"github.com/geominder/core/internal/infrastructure/logger"
	"github.com/geominder/core/internal/ports"
)

// RemindersListWorkflow loads and deletes the saved reminders.
type RemindersListWorkflow struct {
	repo      ports.ReminderRepository
	geofences ports.GeofenceRegistrar
	events    emitter
}

// NewRemindersListWorkflow creates a list workflow. geofences may be nil.
func NewRemindersListWorkflow(repo ports.ReminderRepository, geofences ports.GeofenceRegistrar, sink Sink, log *logger.Logger) *RemindersListWorkflow {
	return &RemindersListWorkflow{
		repo:      repo,
		geofences: geofences,
		events:    emitter{workflow: "reminders_list", sink: sink, logger: log},
	}
}

// LoadReminders fetches the list. A pull-to-refresh already shows its own
// indicator, so refreshing suppresses Loading(true).
func (w *RemindersListWorkflow) LoadReminders(ctx context.Context, refreshing bool) ([]*entities.Reminder, error) {
	if !refreshing {
		w.events.emit(Loading{On: true})
	}
	result := w.repo.GetReminders(ctx)
	w.events.emit(Loading{On: false})

	reminders, err := result.Unwrap()
	if err != nil {
		w.events.emit(ShowError{Message: result.Err().Message})
	} else {
		w.events.emit(RemindersLoaded{Reminders: reminders})
	}
	w.events.emit(ShowNoData{On: len(reminders) == 0})

	return reminders, err
}

// DeleteReminder removes a reminder and its geofence, then reloads the list.
func (w *RemindersListWorkflow) DeleteReminder(ctx context.Context, id string) error {
	w.events.emit(Loading{On: true})
	err := w.repo.DeleteReminder(ctx, id)
	w.events.emit(Loading{On: false})
	if err != nil {
		w.events.emit(ShowError{Message: err.Error()})
		return err
	}

	if w.geofences != nil {
		if err := w.geofences.Remove(ctx, id); err != nil {
			w.events.logger.Warnw("Geofence removal failed", "reminder_id", id, "error", err)
		}
	}

	w.events.emit(ShowSnackbar{Message: entities.MsgReminderDeleted})
	_, err = w.LoadReminders(ctx, true)
	return err
}
