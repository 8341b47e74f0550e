package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/geominder/core/internal/application/services"
	"github.com/geominder/core/internal/application/workflow"
	"github.com/geominder/core/internal/domain/entities"
	"github.com/geominder/core/internal/infrastructure/logger"
	"github.com/geominder/core/internal/ports"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	auth   ports.Authenticator
	logger *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(auth ports.Authenticator, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{
		auth:   auth,
		logger: logger.WithComponent("auth_handler"),
	}
}

// Login handles sign in
// @Summary Sign in
// @Description Exchange the device password for a bearer token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ports.LoginRequest true "Password"
// @Success 200 {object} LoginResponse
// @Failure 401 {object} EventsResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req ports.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	recorder := &workflow.EventRecorder{}
	flow := workflow.NewAuthenticationWorkflow(h.auth, recorder.Sink(), h.logger)

	resp, err := flow.Login(c.Request().Context(), req.Password)
	if err != nil {
		if !services.IsAuthError(err) {
			h.logger.Errorw("Login failed", "error", err)
			return err
		}
		h.logger.LogSecurityEvent("login_failed", "", c.RealIP(), map[string]interface{}{"error": err.Error()})
		return c.JSON(http.StatusUnauthorized, EventsResponse{
			Message: "Invalid credentials",
			Events:  workflow.EncodeAll(recorder.Events()),
		})
	}

	return c.JSON(http.StatusOK, LoginResponse{
		AuthResponse: *resp,
		Events:       workflow.EncodeAll(recorder.Events()),
	})
}

// Logout handles sign out
// @Summary Sign out
// @Description Revoke the current bearer token
// @Tags auth
// @Produce json
// @Success 200 {object} EventsResponse
// @Failure 401 {object} ErrorResponse
// @Security BearerAuth
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	recorder := &workflow.EventRecorder{}
	flow := workflow.NewAuthenticationWorkflow(h.auth, recorder.Sink(), h.logger)

	if err := flow.Logout(c.Request().Context()); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, EventsResponse{
		Message: "Signed out",
		Events:  workflow.EncodeAll(recorder.Events()),
	})
}

// State reports whether the caller's token is valid
// @Summary Authentication state
// @Tags auth
// @Produce json
// @Success 200 {object} ports.AuthStateResponse
// @Router /auth/state [get]
func (h *AuthHandler) State(c echo.Context) error {
	ctx := services.WithToken(c.Request().Context(), BearerToken(c.Request()))
	flow := workflow.NewAuthenticationWorkflow(h.auth, nil, h.logger)

	return c.JSON(http.StatusOK, ports.AuthStateResponse{State: flow.CheckState(ctx)})
}

// BearerToken returns the token from the Authorization header or, for
// clients that cannot set headers, the token query parameter.
func BearerToken(r *http.Request) string {
	if header := r.Header.Get(echo.HeaderAuthorization); header != "" {
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found {
			return ""
		}
		return strings.TrimSpace(token)
	}
	return r.URL.Query().Get("token")
}

// storageError maps a repository error onto an HTTP error with the events
// recorded so far.
func storageError(c echo.Context, err error, events []workflow.Event) error {
	status := http.StatusInternalServerError
	if errors.Is(err, entities.ErrReminderNotFound) {
		status = http.StatusNotFound
	}
	return c.JSON(status, EventsResponse{Message: err.Error(), Events: workflow.EncodeAll(events)})
}

// Request/Response types
type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// EventsResponse carries the ordered workflow events of a request
type EventsResponse struct {
	Message string              `json:"message,omitempty"`
	Events  []workflow.Envelope `json:"events"`
}

type LoginResponse struct {
	ports.AuthResponse
	Events []workflow.Envelope `json:"events"`
}

type ReminderResponse struct {
	Reminder *entities.Reminder `json:"reminder"`
	Events   []workflow.Envelope `json:"events"`
}

type RemindersResponse struct {
	Reminders []*entities.Reminder `json:"reminders"`
	Events    []workflow.Envelope  `json:"events"`
}
