package workflow

import (
	"strings"

	"github.com/geominder/core/internal/domain/entities"
	"github.com/geominder/core/internal/domain/geometry"
)

// PoiClick selects a named place. The exact coordinate is added once; a
// repeated click on the same place does not toggle it off. The place name is
// only taken when nothing is selected yet and no name is set, so later clicks
// never rename the selection.
func (w *SaveReminderWorkflow) PoiClick(name string, c entities.Coordinate) bool {
	if w.session.Len() == 0 && strings.TrimSpace(w.poiName) == "" {
		w.poiName = name
	}
	return w.session.AddIfNotInList(c)
}

// LongClick adds a dropped pin, or removes a pin already close to c.
// It returns true when a pin was removed.
func (w *SaveReminderWorkflow) LongClick(c entities.Coordinate) bool {
	return w.session.AddIfNotCloseElseDelete(c)
}

// ClickCircle clears the whole selection.
func (w *SaveReminderWorkflow) ClickCircle() {
	w.poiName = ""
	w.session.ClearAll()
}

// SelectedPoints returns the current selection in order.
func (w *SaveReminderWorkflow) SelectedPoints() []entities.Coordinate {
	return w.session.Points()
}

// ConfirmLocation reduces the selection to one point of interest and hands it
// to the editor. A single point is not kept in the session; larger selections
// are committed so that returning to the map shows them again.
func (w *SaveReminderWorkflow) ConfirmLocation() (entities.PointOfInterest, error) {
	points := w.session.Points()

	poi, ok := w.reducer.Reduce(points, w.poi, w.poiName)
	if !ok {
		w.events.emit(ShowError{Message: entities.MsgSelectPOI})
		return entities.PointOfInterest{}, &entities.ValidationError{Field: "location", Key: entities.MsgSelectPOI}
	}

	if len(points) == 1 {
		w.session.ClearAll()
	} else {
		w.session.MarkAllPersisted()
	}

	w.events.emit(LocationSelected{POI: poi, Bounds: geometry.CameraBounds(poi.Center, poi.RadiusMeters)})
	w.SetLocation(poi)
	w.events.emit(Navigate{Command: To(DestinationSaveReminder)})

	return poi, nil
}

// ReturnToEditor leaves the map without confirming; points added since the
// last confirmation are dropped.
func (w *SaveReminderWorkflow) ReturnToEditor() {
	w.session.DiscardUnpersisted()
	w.events.emit(Navigate{Command: Back()})
}
