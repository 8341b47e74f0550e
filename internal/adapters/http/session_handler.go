package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/geominder/core/internal/application/workflow"
	"github.com/geominder/core/internal/domain/entities"
	"github.com/geominder/core/internal/domain/geometry"
	"github.com/geominder/core/internal/infrastructure/logger"
	"github.com/geominder/core/internal/ports"
)

// Session commands accepted over the WebSocket
const (
	CommandPoiClick       = "poi_click"
	CommandLongClick      = "long_click"
	CommandClickCircle    = "click_circle"
	CommandConfirm        = "confirm_location"
	CommandReturnToEditor = "return_to_editor"
	CommandSetTitle       = "set_title"
	CommandSetDescription = "set_description"
	CommandSave           = "save"
	CommandCancel         = "cancel"
	CommandEdit           = "edit"
)

// Error keys sent for malformed commands
const (
	MsgInvalidCommand = "invalid_command"
	MsgUnknownCommand = "unknown_command"
	MsgMissingPoint   = "missing_point"
)

// EventSelectionChanged reports the points currently selected on the map.
const EventSelectionChanged workflow.EventType = "selection_changed"

// SelectionChanged is sent after every command that can change the selection.
type SelectionChanged struct {
	Points []entities.Coordinate `json:"points"`
}

func (SelectionChanged) Type() workflow.EventType { return EventSelectionChanged }

// SessionCommand is one client message.
type SessionCommand struct {
	Command string               `json:"command"`
	Name    string               `json:"name,omitempty"`
	Point   *entities.Coordinate `json:"point,omitempty"`
	Text    string               `json:"text,omitempty"`
	ID      string               `json:"id,omitempty"`
}

const sessionWriteWait = 10 * time.Second

// SessionHandler runs one reminder edit session per WebSocket connection.
// Commands are applied in arrival order on the connection's goroutine, which
// is also the only writer.
type SessionHandler struct {
	repo         ports.ReminderRepository
	geofences    ports.GeofenceRegistrar
	reducer      geometry.Reducer
	toggleRadius float64
	upgrader     websocket.Upgrader
	logger       *logger.Logger
}

// NewSessionHandler creates a new session handler. allowedOrigins lists the
// accepted Origin headers; "*" accepts any.
func NewSessionHandler(
	repo ports.ReminderRepository,
	geofences ports.GeofenceRegistrar,
	reducer geometry.Reducer,
	toggleRadius float64,
	allowedOrigins []string,
	logger *logger.Logger,
) *SessionHandler {
	return &SessionHandler{
		repo:         repo,
		geofences:    geofences,
		reducer:      reducer,
		toggleRadius: toggleRadius,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
		logger: logger.WithComponent("session_handler"),
	}
}

// Connect upgrades the request and serves an edit session
// @Summary Reminder edit session
// @Description WebSocket: send SessionCommand messages, receive workflow event envelopes
// @Tags sessions
// @Param token query string false "Bearer token for clients that cannot set headers"
// @Success 101
// @Security BearerAuth
// @Router /sessions/ws [get]
func (h *SessionHandler) Connect(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warnw("WebSocket upgrade failed", "error", err, "ip", c.RealIP())
		return nil
	}
	defer conn.Close()

	log := h.logger.WithSessionID(uuid.NewString())
	log.Infow("Edit session opened", "ip", c.RealIP())

	s := &editSession{conn: conn, repo: h.repo, logger: log}
	s.flow = workflow.NewSaveReminderWorkflow(
		h.repo,
		h.geofences,
		h.reducer,
		geometry.NewSession(h.toggleRadius),
		s.send,
		log,
	)

	s.run(c.Request().Context())
	log.Infow("Edit session closed")
	return nil
}

type editSession struct {
	conn     *websocket.Conn
	repo     ports.ReminderRepository
	flow     *workflow.SaveReminderWorkflow
	logger   *logger.Logger
	writeErr error
}

func (s *editSession) run(ctx context.Context) {
	for s.writeErr == nil {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warnw("WebSocket connection closed unexpectedly", "error", err)
			}
			return
		}

		var cmd SessionCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			s.send(workflow.ShowError{Message: MsgInvalidCommand})
			continue
		}
		s.apply(ctx, cmd)
	}
	s.logger.Warnw("WebSocket write failed", "error", s.writeErr)
}

func (s *editSession) apply(ctx context.Context, cmd SessionCommand) {
	switch cmd.Command {
	case CommandPoiClick, CommandLongClick:
		if cmd.Point == nil {
			s.send(workflow.ShowError{Message: MsgMissingPoint})
			return
		}
		if cmd.Command == CommandPoiClick {
			s.flow.PoiClick(cmd.Name, *cmd.Point)
		} else {
			s.flow.LongClick(*cmd.Point)
		}
		s.sendSelection()
	case CommandClickCircle:
		s.flow.ClickCircle()
		s.sendSelection()
	case CommandConfirm:
		// Rejections are already reported through the event stream.
		_, _ = s.flow.ConfirmLocation()
	case CommandReturnToEditor:
		s.flow.ReturnToEditor()
		s.sendSelection()
	case CommandSetTitle:
		s.flow.SetTitle(cmd.Text)
	case CommandSetDescription:
		s.flow.SetDescription(cmd.Text)
	case CommandSave:
		if err := s.flow.ValidateAndSaveReminder(ctx); err != nil {
			var verr *entities.ValidationError
			if !errors.As(err, &verr) {
				s.logger.Errorw("Save reminder failed", "error", err)
			}
			return
		}
		s.sendSelection()
	case CommandCancel:
		s.flow.Cancel()
		s.sendSelection()
	case CommandEdit:
		result := s.repo.GetReminder(ctx, cmd.ID)
		reminder, err := result.Unwrap()
		if err != nil {
			s.send(workflow.ShowError{Message: result.Err().Message})
			return
		}
		s.flow.Edit(reminder)
		if poi, ok := s.flow.Location(); ok {
			s.send(workflow.LocationSelected{POI: poi, Bounds: geometry.CameraBounds(poi.Center, poi.RadiusMeters)})
		}
		s.sendSelection()
	default:
		s.send(workflow.ShowError{Message: MsgUnknownCommand})
	}
}

func (s *editSession) sendSelection() {
	points := s.flow.SelectedPoints()
	if points == nil {
		points = []entities.Coordinate{}
	}
	s.send(SelectionChanged{Points: points})
}

// send writes one event. After the first failed write the session stops
// writing and the read loop exits.
func (s *editSession) send(e workflow.Event) {
	if s.writeErr != nil {
		return
	}
	s.conn.SetWriteDeadline(time.Now().Add(sessionWriteWait))
	s.writeErr = s.conn.WriteJSON(workflow.Encode(e))
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}
