package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/geominder/core/internal/application/workflow"
	"github.com/geominder/core/internal/domain/entities"
	"github.com/geominder/core/internal/domain/geometry"
	"github.com/geominder/core/internal/infrastructure/logger"
	"github.com/geominder/core/internal/ports"
)

// ReminderHandler handles reminder-related requests. Each request drives a
// fresh workflow and returns the events it emitted.
type ReminderHandler struct {
	repo         ports.ReminderRepository
	geofences    ports.GeofenceRegistrar
	reducer      geometry.Reducer
	toggleRadius float64
	logger       *logger.Logger
}

// NewReminderHandler creates a new reminder handler
func NewReminderHandler(
	repo ports.ReminderRepository,
	geofences ports.GeofenceRegistrar,
	reducer geometry.Reducer,
	toggleRadius float64,
	logger *logger.Logger,
) *ReminderHandler {
	return &ReminderHandler{
		repo:         repo,
		geofences:    geofences,
		reducer:      reducer,
		toggleRadius: toggleRadius,
		logger:       logger.WithComponent("reminder_handler"),
	}
}

// ListReminders handles listing reminders
// @Summary List reminders
// @Description List saved reminders in insertion order
// @Tags reminders
// @Produce json
// @Param refresh query bool false "Pull-to-refresh; suppresses the loading indicator"
// @Success 200 {object} RemindersResponse
// @Failure 500 {object} EventsResponse
// @Security BearerAuth
// @Router /reminders [get]
func (h *ReminderHandler) ListReminders(c echo.Context) error {
	recorder := &workflow.EventRecorder{}
	flow := workflow.NewRemindersListWorkflow(h.repo, h.geofences, recorder.Sink(), h.logger)

	reminders, err := flow.LoadReminders(c.Request().Context(), c.QueryParam("refresh") == "true")
	if err != nil {
		return storageError(c, err, recorder.Events())
	}

	return c.JSON(http.StatusOK, RemindersResponse{
		Reminders: reminders,
		Events:    workflow.EncodeAll(recorder.Events()),
	})
}

// GetReminder handles getting a reminder by id
// @Summary Get reminder by ID
// @Tags reminders
// @Produce json
// @Param id path string true "Reminder ID"
// @Success 200 {object} entities.Reminder
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /reminders/{id} [get]
func (h *ReminderHandler) GetReminder(c echo.Context) error {
	result := h.repo.GetReminder(c.Request().Context(), c.Param("id"))

	reminder, err := result.Unwrap()
	if err != nil {
		if errors.Is(err, entities.ErrReminderNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, result.Err().Message)
		}
		return err
	}

	return c.JSON(http.StatusOK, reminder)
}

// CreateReminder handles validating and saving a new reminder
// @Summary Create a reminder
// @Description Validate and save a reminder; registers its geofence
// @Tags reminders
// @Accept json
// @Produce json
// @Param request body ports.SaveReminderRequest true "Reminder data"
// @Success 201 {object} ReminderResponse
// @Failure 422 {object} EventsResponse
// @Security BearerAuth
// @Router /reminders [post]
func (h *ReminderHandler) CreateReminder(c echo.Context) error {
	var req ports.SaveReminderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := validateLocation(c, req.Location); err != nil {
		return err
	}

	recorder := &workflow.EventRecorder{}
	flow := h.newSaveWorkflow(recorder)
	applyRequest(flow, req)

	return h.save(c, flow, recorder, http.StatusCreated)
}

// UpdateReminder handles editing an existing reminder
// @Summary Update a reminder
// @Description Replace title and description; the location is kept unless provided
// @Tags reminders
// @Accept json
// @Produce json
// @Param id path string true "Reminder ID"
// @Param request body ports.SaveReminderRequest true "Reminder data"
// @Success 200 {object} ReminderResponse
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} EventsResponse
// @Security BearerAuth
// @Router /reminders/{id} [put]
func (h *ReminderHandler) UpdateReminder(c echo.Context) error {
	var req ports.SaveReminderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := validateLocation(c, req.Location); err != nil {
		return err
	}

	result := h.repo.GetReminder(c.Request().Context(), c.Param("id"))
	existing, err := result.Unwrap()
	if err != nil {
		if errors.Is(err, entities.ErrReminderNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, result.Err().Message)
		}
		return err
	}

	recorder := &workflow.EventRecorder{}
	flow := h.newSaveWorkflow(recorder)
	flow.Edit(existing)
	applyRequest(flow, req)

	return h.save(c, flow, recorder, http.StatusOK)
}

// DeleteReminder handles deleting a reminder and its geofence
// @Summary Delete a reminder
// @Tags reminders
// @Produce json
// @Param id path string true "Reminder ID"
// @Success 200 {object} RemindersResponse
// @Failure 500 {object} EventsResponse
// @Security BearerAuth
// @Router /reminders/{id} [delete]
func (h *ReminderHandler) DeleteReminder(c echo.Context) error {
	id := c.Param("id")

	var reminders []*entities.Reminder
	recorder := &workflow.EventRecorder{}
	sink := recorder.Sink()
	flow := workflow.NewRemindersListWorkflow(h.repo, h.geofences, func(e workflow.Event) {
		if loaded, ok := e.(workflow.RemindersLoaded); ok {
			reminders = loaded.Reminders
		}
		sink(e)
	}, h.logger)

	if err := flow.DeleteReminder(c.Request().Context(), id); err != nil {
		return storageError(c, err, recorder.Events())
	}

	h.logger.Infow("Reminder deleted", "reminder_id", id)
	return c.JSON(http.StatusOK, RemindersResponse{
		Reminders: reminders,
		Events:    workflow.EncodeAll(recorder.Events()),
	})
}

// DeleteAllReminders handles clearing every reminder and geofence
// @Summary Delete all reminders
// @Tags reminders
// @Success 204
// @Security BearerAuth
// @Router /reminders [delete]
func (h *ReminderHandler) DeleteAllReminders(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.repo.DeleteAllReminders(ctx); err != nil {
		return err
	}
	// Fences are cleared after the rows so none outlives its reminder.
	if err := h.geofences.Clear(ctx); err != nil {
		h.logger.Warnw("Geofence removal failed", "error", err)
	}

	h.logger.Infow("All reminders deleted")
	return c.NoContent(http.StatusNoContent)
}

func (h *ReminderHandler) newSaveWorkflow(recorder *workflow.EventRecorder) *workflow.SaveReminderWorkflow {
	return workflow.NewSaveReminderWorkflow(
		h.repo,
		h.geofences,
		h.reducer,
		geometry.NewSession(h.toggleRadius),
		recorder.Sink(),
		h.logger,
	)
}

func (h *ReminderHandler) save(c echo.Context, flow *workflow.SaveReminderWorkflow, recorder *workflow.EventRecorder, status int) error {
	draft := flow.DraftReminder()

	err := flow.ValidateAndSaveReminder(c.Request().Context())
	if err != nil {
		var verr *entities.ValidationError
		if errors.As(err, &verr) {
			return c.JSON(http.StatusUnprocessableEntity, EventsResponse{
				Message: verr.Key,
				Events:  workflow.EncodeAll(recorder.Events()),
			})
		}
		h.logger.Errorw("Save reminder failed", "reminder_id", draft.ID, "error", err)
		return storageError(c, err, recorder.Events())
	}

	return c.JSON(status, ReminderResponse{
		Reminder: draft,
		Events:   workflow.EncodeAll(recorder.Events()),
	})
}

func applyRequest(flow *workflow.SaveReminderWorkflow, req ports.SaveReminderRequest) {
	flow.SetTitle(req.Title)
	flow.SetDescription(req.Description)
	if req.Location != nil {
		flow.SetLocation(*req.Location)
	}
}

func validateLocation(c echo.Context, poi *entities.PointOfInterest) error {
	if poi == nil {
		return nil
	}
	if err := c.Validate(poi); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}
