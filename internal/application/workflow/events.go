// Package workflow coordinates reminder editing, listing and sign-in. Each
// workflow reports what the presentation layer should do through an ordered
// stream of Events delivered to a Sink.
package workflow

import (
	"sync"

	"github.com/geominder/core/internal/domain/entities"
	"github.com/geominder/core/internal/domain/geometry"
	"github.com/geominder/core/internal/infrastructure/logger"
)

// EventType names an event on the wire
type EventType string

const (
	EventShowError          EventType = "show_error"
	EventShowToast          EventType = "show_toast"
	EventShowSnackbar       EventType = "show_snackbar"
	EventNavigate           EventType = "navigate"
	EventLoading            EventType = "loading"
	EventRemindersLoaded    EventType = "reminders_loaded"
	EventShowNoData         EventType = "show_no_data"
	EventLocationSelected   EventType = "location_selected"
	EventGeofenceRegistered EventType = "geofence_registered"
)

// Navigation destinations
const (
	DestinationRemindersList  = "reminders_list"
	DestinationSaveReminder   = "save_reminder"
	DestinationSelectLocation = "select_location"
	DestinationAuthentication = "authentication"
)

// Event is one signal for the presentation layer.
type Event interface {
	Type() EventType
}

// ShowError asks for an error message. Message is either a message key or,
// for storage failures, the error text.
type ShowError struct {
	Message string `json:"message"`
}

type ShowToast struct {
	Message string `json:"message"`
}

type ShowSnackbar struct {
	Message string `json:"message"`
}

type Navigate struct {
	Command NavigationCommand `json:"command"`
}

type Loading struct {
	On bool `json:"on"`
}

type RemindersLoaded struct {
	Reminders []*entities.Reminder `json:"reminders"`
}

type ShowNoData struct {
	On bool `json:"on"`
}

// LocationSelected carries the confirmed point of interest and the camera
// box framing it.
type LocationSelected struct {
	POI    entities.PointOfInterest `json:"poi"`
	Bounds geometry.Bounds          `json:"camera_bounds"`
}

// GeofenceRegistered reports the outcome of registering a saved reminder's
// geofence. Message is geofence_added or geofences_not_added.
type GeofenceRegistered struct {
	ID      string `json:"id"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (ShowError) Type() EventType          { return EventShowError }
func (ShowToast) Type() EventType          { return EventShowToast }
func (ShowSnackbar) Type() EventType       { return EventShowSnackbar }
func (Navigate) Type() EventType           { return EventNavigate }
func (Loading) Type() EventType            { return EventLoading }
func (RemindersLoaded) Type() EventType    { return EventRemindersLoaded }
func (ShowNoData) Type() EventType         { return EventShowNoData }
func (LocationSelected) Type() EventType   { return EventLocationSelected }
func (GeofenceRegistered) Type() EventType { return EventGeofenceRegistered }

// NavigationKind selects how a NavigationCommand moves.
type NavigationKind string

const (
	NavigateKindTo     NavigationKind = "to"
	NavigateKindBack   NavigationKind = "back"
	NavigateKindToID   NavigationKind = "to_id"
	NavigateKindBackTo NavigationKind = "back_to"
)

// NavigationCommand is a navigation request. Destination is empty for Back.
type NavigationCommand struct {
	Kind        NavigationKind `json:"kind"`
	Destination string         `json:"destination,omitempty"`
}

func To(destination string) NavigationCommand {
	return NavigationCommand{Kind: NavigateKindTo, Destination: destination}
}

func Back() NavigationCommand {
	return NavigationCommand{Kind: NavigateKindBack}
}

func ToID(destination string) NavigationCommand {
	return NavigationCommand{Kind: NavigateKindToID, Destination: destination}
}

func BackTo(destination string) NavigationCommand {
	return NavigationCommand{Kind: NavigateKindBackTo, Destination: destination}
}

// Sink receives events in emission order.
type Sink func(Event)

// Envelope is the JSON shape of an event.
type Envelope struct {
	Type    EventType `json:"type"`
	Payload Event     `json:"payload"`
}

// Encode wraps e for transport.
func Encode(e Event) Envelope {
	return Envelope{Type: e.Type(), Payload: e}
}

// EncodeAll wraps every event for transport.
func EncodeAll(events []Event) []Envelope {
	out := make([]Envelope, len(events))
	for i, e := range events {
		out[i] = Encode(e)
	}
	return out
}

// EventRecorder collects events; its Sink is safe for concurrent use.
type EventRecorder struct {
	mu     sync.Mutex
	events []Event
}

// Sink returns a Sink that appends to the recorder
func (r *EventRecorder) Sink() Sink {
	return func(e Event) {
		r.mu.Lock()
		r.events = append(r.events, e)
		r.mu.Unlock()
	}
}

// Events returns a copy of the recorded events
func (r *EventRecorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Reset drops all recorded events
func (r *EventRecorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

// emitter delivers events to a sink and logs them at debug level.
type emitter struct {
	workflow string
	sink     Sink
	logger   *logger.Logger
}

func (e emitter) emit(ev Event) {
	e.logger.LogWorkflowEvent(e.workflow, string(ev.Type()), nil)
	if e.sink != nil {
		e.sink(ev)
	}
}
