package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geominder/core/internal/adapters/geofence"
	"github.com/geominder/core/internal/domain/entities"
	"github.com/geominder/core/internal/domain/geometry"
	"github.com/geominder/core/internal/infrastructure/logger"
	"github.com/geominder/core/internal/ports"
)

var goldenGate = entities.Coordinate{Latitude: 37.8199, Longitude: -122.4783}

func newSaveWorkflow(t *testing.T, fences ports.GeofenceRegistrar) (*SaveReminderWorkflow, *spyRepository, *EventRecorder) {
	t.Helper()
	rec := &EventRecorder{}
	repo := newSpyRepository(rec)
	w := NewSaveReminderWorkflow(
		repo,
		fences,
		geometry.NewReducer(geometry.DefaultRadiusMeters),
		geometry.NewSession(geometry.ToggleRadiusMeters),
		rec.Sink(),
		logger.NewNop(),
	)
	return w, repo, rec
}

func TestValidateAndSave_MissingTitle(t *testing.T) {
	w, repo, rec := newSaveWorkflow(t, nil)
	w.SetLocation(entities.PointOfInterest{Center: goldenGate, RadiusMeters: 100, Name: "Golden Gate"})
	rec.Reset()

	err := w.ValidateAndSaveReminder(context.Background())

	var verr *entities.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "title", verr.Field)
	assert.Equal(t, []Event{ShowError{Message: entities.MsgEnterTitle}}, rec.Events())
	assert.Zero(t, repo.saves, "never reaches the store")
	assert.Equal(t, StateRejected, w.State())

	w.SetTitle("again")
	assert.Equal(t, StateEditing, w.State())
}

func TestValidateAndSave_TitleCheckedFirst(t *testing.T) {
	w, _, rec := newSaveWorkflow(t, nil)

	err := w.ValidateAndSaveReminder(context.Background())

	var verr *entities.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, entities.MsgEnterTitle, verr.Key)
	assert.Len(t, rec.Events(), 1, "location is not evaluated once the title fails")
}

func TestValidateAndSave_WhitespaceTitleIsPresent(t *testing.T) {
	w, repo, _ := newSaveWorkflow(t, nil)
	w.SetTitle("   ")
	w.SetDescription(" ")
	w.SetLocation(entities.PointOfInterest{Center: goldenGate, RadiusMeters: 100, Name: "Golden Gate"})
	draft := w.DraftReminder()

	require.NoError(t, w.ValidateAndSaveReminder(context.Background()))
	assert.Equal(t, 1, repo.saves)

	saved, err := repo.GetReminder(context.Background(), draft.ID).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, "   ", entities.Deref(saved.Title))
	require.NotNil(t, saved.Description, "a blank description is kept")
	assert.Equal(t, " ", *saved.Description)
}

func TestValidateAndSave_MissingLocation(t *testing.T) {
	w, repo, rec := newSaveWorkflow(t, nil)
	w.SetTitle("Check the view")

	err := w.ValidateAndSaveReminder(context.Background())

	var verr *entities.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "location", verr.Field)
	assert.Equal(t, []Event{ShowError{Message: entities.MsgSelectLocation}}, rec.Events())
	assert.Zero(t, repo.saves)
}

func TestValidateAndSave_Success(t *testing.T) {
	ctx := context.Background()
	fences := geofence.NewMemoryRegistrar()
	w, repo, rec := newSaveWorkflow(t, fences)

	w.SetTitle("Check the view")
	w.SetDescription("On both sides of the bridge")
	w.SetLocation(entities.PointOfInterest{Center: goldenGate, RadiusMeters: 150, Name: "Golden Gate Bridge"})
	draft := w.DraftReminder()
	rec.Reset()

	require.NoError(t, w.ValidateAndSaveReminder(ctx))

	events := rec.Events()
	assert.Equal(t, []Event{
		Loading{On: true},
		Loading{On: false},
		ShowToast{Message: entities.MsgReminderSaved},
		Navigate{Command: Back()},
		GeofenceRegistered{ID: draft.ID, Message: entities.MsgGeofenceAdded},
	}, events)

	require.Len(t, repo.seen, 1)
	assert.Equal(t, []Event{Loading{On: true}}, repo.seen[0], "loading is on before the store is reached")

	saved, err := repo.GetReminder(ctx, draft.ID).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, draft, saved)

	ids, err := fences.Containing(ctx, goldenGate)
	require.NoError(t, err)
	assert.Equal(t, []string{draft.ID}, ids)

	assert.Equal(t, StateEditing, w.State())
	assert.NotEqual(t, draft.ID, w.DraftReminder().ID, "reset starts a new draft")
	_, ok := w.Location()
	assert.False(t, ok)
}

func TestValidateAndSave_StorageFailure(t *testing.T) {
	w, repo, rec := newSaveWorkflow(t, nil)
	repo.failWrites = true
	w.SetTitle("Check the view")
	w.SetLocation(entities.PointOfInterest{Center: goldenGate, RadiusMeters: 100, Name: "Golden Gate"})
	draftID := w.DraftReminder().ID
	rec.Reset()

	err := w.ValidateAndSaveReminder(context.Background())
	require.ErrorIs(t, err, errStorage)

	assert.Equal(t, []Event{
		Loading{On: true},
		Loading{On: false},
		ShowError{Message: errStorage.Error()},
	}, rec.Events())
	assert.Equal(t, 1, repo.saves, "no retry")
	assert.Equal(t, StateEditing, w.State())
	assert.Equal(t, draftID, w.DraftReminder().ID, "draft is kept for a manual retry")
}

type failingRegistrar struct{ ports.GeofenceRegistrar }

func (failingRegistrar) Register(context.Context, entities.Geofence) error {
	return errors.New("too many geofences")
}

func TestValidateAndSave_GeofenceFailureStillSaves(t *testing.T) {
	w, repo, rec := newSaveWorkflow(t, failingRegistrar{})
	w.SetTitle("Check the view")
	w.SetLocation(entities.PointOfInterest{Center: goldenGate, RadiusMeters: 100, Name: "Golden Gate"})
	id := w.DraftReminder().ID

	require.NoError(t, w.ValidateAndSaveReminder(context.Background()))

	events := rec.Events()
	last, ok := events[len(events)-1].(GeofenceRegistered)
	require.True(t, ok)
	assert.Equal(t, entities.MsgGeofenceNotAdded, last.Message)
	assert.Error(t, last.Err)
	assert.True(t, repo.GetReminder(context.Background(), id).IsSuccess())
}

func TestSetLocation_AddedThenUpdated(t *testing.T) {
	w, _, rec := newSaveWorkflow(t, nil)
	poi := entities.PointOfInterest{Center: goldenGate, RadiusMeters: 100, Name: "Golden Gate"}

	w.SetLocation(poi)
	w.SetLocation(poi)

	assert.Equal(t, []Event{
		ShowSnackbar{Message: entities.MsgLocationAdded},
		ShowSnackbar{Message: entities.MsgLocationUpdated},
	}, rec.Events())
}

func TestEdit_LoadsExistingReminder(t *testing.T) {
	w, _, _ := newSaveWorkflow(t, nil)
	r := &entities.Reminder{ID: "existing", Title: entities.StringPtr("T")}
	entities.PointOfInterest{Center: goldenGate, RadiusMeters: 250, Name: "Bridge"}.Apply(r)

	w.Edit(r)

	assert.Equal(t, r, w.DraftReminder())
	assert.Equal(t, []entities.Coordinate{goldenGate}, w.SelectedPoints())

	poi, err := w.ConfirmLocation()
	require.NoError(t, err)
	assert.Equal(t, 250.0, poi.RadiusMeters, "re-confirming the same point keeps the custom radius")
	assert.Equal(t, "Bridge", poi.Name)
}

func TestCancel(t *testing.T) {
	w, _, rec := newSaveWorkflow(t, nil)
	w.SetTitle("T")
	w.LongClick(goldenGate)
	rec.Reset()

	w.Cancel()

	assert.Empty(t, w.SelectedPoints())
	assert.False(t, w.DraftReminder().HasTitle())
	assert.Equal(t, []Event{Navigate{Command: Back()}}, rec.Events())
}
