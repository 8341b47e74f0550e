package workflow

import (
	"context"

	"github.com/geominder/core/internal/domain/entities"
	"github.com/geominder/core/internal/domain/geometry"
	"github.com/geominder/core/internal/infrastructure/logger"
	"github.com/geominder/core/internal/ports"
)

// State of a SaveReminderWorkflow
type State string

const (
	StateEditing    State = "editing"
	StateValidating State = "validating"
	StateSaved      State = "saved"
	StateRejected   State = "rejected"
)

// SaveReminderWorkflow owns one reminder edit session: the draft fields and
// the points selected on the map. It is not safe for concurrent use.
type SaveReminderWorkflow struct {
	repo      ports.ReminderRepository
	geofences ports.GeofenceRegistrar
	reducer   geometry.Reducer
	session   *geometry.Session
	events    emitter

	state       State
	id          string
	title       string
	description string
	poi         *entities.PointOfInterest
	poiName     string
}

// NewSaveReminderWorkflow creates a workflow in the Editing state.
// geofences may be nil, in which case saved reminders are not registered.
func NewSaveReminderWorkflow(
	repo ports.ReminderRepository,
	geofences ports.GeofenceRegistrar,
	reducer geometry.Reducer,
	session *geometry.Session,
	sink Sink,
	log *logger.Logger,
) *SaveReminderWorkflow {
	return &SaveReminderWorkflow{
		repo:      repo,
		geofences: geofences,
		reducer:   reducer,
		session:   session,
		events:    emitter{workflow: "save_reminder", sink: sink, logger: log},
		state:     StateEditing,
	}
}

// State returns the current workflow state. After a rejected save it stays
// Rejected until the draft is edited again.
func (w *SaveReminderWorkflow) State() State {
	return w.state
}

func (w *SaveReminderWorkflow) SetTitle(title string) {
	w.state = StateEditing
	w.title = title
}

func (w *SaveReminderWorkflow) SetDescription(description string) {
	w.state = StateEditing
	w.description = description
}

// SetLocation sets the draft location and signals whether it was added or
// replaced.
func (w *SaveReminderWorkflow) SetLocation(poi entities.PointOfInterest) {
	msg := entities.MsgLocationAdded
	if w.poi != nil {
		msg = entities.MsgLocationUpdated
	}
	w.state = StateEditing
	w.poi = &poi
	w.events.emit(ShowSnackbar{Message: msg})
}

// Location returns the draft location, if any
func (w *SaveReminderWorkflow) Location() (entities.PointOfInterest, bool) {
	if w.poi == nil {
		return entities.PointOfInterest{}, false
	}
	return *w.poi, true
}

// Edit loads an existing reminder into the draft. Its location becomes the
// single persisted point of the session so its radius survives a re-confirm.
func (w *SaveReminderWorkflow) Edit(r *entities.Reminder) {
	w.Reset()
	w.id = r.ID
	w.title = entities.Deref(r.Title)
	w.description = entities.Deref(r.Description)

	if poi, ok := entities.PointOfInterestFromReminder(r); ok {
		w.poi = &poi
		w.poiName = poi.Name
		w.session.AddIfNotInList(poi.Center)
		w.session.MarkAllPersisted()
	}
}

// DraftReminder builds the reminder the workflow would save. The id is
// assigned on first use and kept until Reset.
func (w *SaveReminderWorkflow) DraftReminder() *entities.Reminder {
	if w.id == "" {
		w.id = entities.NewReminder().ID
	}

	r := &entities.Reminder{
		ID:          w.id,
		Title:       entities.StringPtr(w.title),
		Description: entities.StringPtr(w.description),
	}
	if w.poi != nil {
		w.poi.Apply(r)
	}
	return r
}

// ValidateEnteredData checks the title and then the location name. The
// first failure is signalled and returned; later checks are skipped.
func (w *SaveReminderWorkflow) ValidateEnteredData(r *entities.Reminder) error {
	if !r.HasTitle() {
		return w.reject("title", entities.MsgEnterTitle)
	}
	if !r.HasLocation() {
		return w.reject("location", entities.MsgSelectLocation)
	}
	return nil
}

func (w *SaveReminderWorkflow) reject(field, key string) error {
	w.events.emit(ShowError{Message: key})
	return &entities.ValidationError{Field: field, Key: key}
}

// ValidateAndSaveReminder validates the draft and persists it. A storage
// failure is signalled and returned; nothing is retried.
func (w *SaveReminderWorkflow) ValidateAndSaveReminder(ctx context.Context) error {
	reminder := w.DraftReminder()

	w.state = StateValidating
	if err := w.ValidateEnteredData(reminder); err != nil {
		w.state = StateRejected
		return err
	}

	w.events.emit(Loading{On: true})
	err := w.repo.SaveReminder(ctx, reminder)
	w.events.emit(Loading{On: false})
	if err != nil {
		w.events.emit(ShowError{Message: err.Error()})
		w.state = StateEditing
		return err
	}

	w.state = StateSaved
	w.events.emit(ShowToast{Message: entities.MsgReminderSaved})
	w.events.emit(Navigate{Command: Back()})
	w.registerGeofence(ctx, reminder)
	w.Reset()

	return nil
}

func (w *SaveReminderWorkflow) registerGeofence(ctx context.Context, r *entities.Reminder) {
	if w.geofences == nil {
		return
	}

	fence, err := r.Geofence()
	if err == nil {
		err = w.geofences.Register(ctx, fence)
	}

	if err != nil {
		w.events.logger.Warnw("Geofence registration failed", "reminder_id", r.ID, "error", err)
		w.events.emit(GeofenceRegistered{ID: r.ID, Message: entities.MsgGeofenceNotAdded, Err: err})
		return
	}
	w.events.emit(GeofenceRegistered{ID: r.ID, Message: entities.MsgGeofenceAdded})
}

// Reset discards the draft and every selected point.
func (w *SaveReminderWorkflow) Reset() {
	w.state = StateEditing
	w.id = ""
	w.title = ""
	w.description = ""
	w.poi = nil
	w.poiName = ""
	w.session.ClearAll()
}

// Cancel abandons the edit session and navigates away.
func (w *SaveReminderWorkflow) Cancel() {
	w.Reset()
	w.events.emit(Navigate{Command: Back()})
}
