package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/geominder/core/internal/domain/entities"
	"github.com/geominder/core/internal/domain/geometry"
	"github.com/geominder/core/internal/infrastructure/logger"
	"github.com/geominder/core/internal/ports"
)

// GeometryHandler exposes the point reducer and geofence lookups
type GeometryHandler struct {
	reducer   geometry.Reducer
	geofences ports.GeofenceRegistrar
	logger    *logger.Logger
}

// NewGeometryHandler creates a new geometry handler
func NewGeometryHandler(reducer geometry.Reducer, geofences ports.GeofenceRegistrar, logger *logger.Logger) *GeometryHandler {
	return &GeometryHandler{
		reducer:   reducer,
		geofences: geofences,
		logger:    logger.WithComponent("geometry_handler"),
	}
}

// Circle reduces selected points to a single point of interest
// @Summary Reduce points to a circle
// @Description Compute the point of interest and camera bounds for a selection
// @Tags geometry
// @Accept json
// @Produce json
// @Param request body ports.CircleRequest true "Selected points"
// @Success 200 {object} ports.CircleResponse
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /geometry/circle [post]
func (h *GeometryHandler) Circle(c echo.Context) error {
	var req ports.CircleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	poi, ok := h.reducer.Reduce(req.Points, req.Previous, req.Name)
	if !ok {
		return &entities.ValidationError{Field: "points", Key: entities.MsgSelectPOI}
	}
	bounds := geometry.CameraBounds(poi.Center, poi.RadiusMeters)

	return c.JSON(http.StatusOK, ports.CircleResponse{
		PointOfInterest: poi,
		Bounds: ports.BoundsResponse{
			SouthWest: bounds.SouthWest,
			NorthEast: bounds.NorthEast,
		},
	})
}

// Containing lists the geofences that contain a point
// @Summary Geofences containing a point
// @Tags geofences
// @Produce json
// @Param lat query number true "Latitude"
// @Param lng query number true "Longitude"
// @Success 200 {object} ports.ContainingResponse
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /geofences/containing [get]
func (h *GeometryHandler) Containing(c echo.Context) error {
	lat, err := strconv.ParseFloat(c.QueryParam("lat"), 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid lat parameter")
	}
	lng, err := strconv.ParseFloat(c.QueryParam("lng"), 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid lng parameter")
	}

	point := entities.Coordinate{Latitude: lat, Longitude: lng}
	if err := c.Validate(&point); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ids, err := h.geofences.Containing(c.Request().Context(), point)
	if err != nil {
		h.logger.Errorw("Geofence lookup failed", "point", point.String(), "error", err)
		return err
	}

	return c.JSON(http.StatusOK, ports.ContainingResponse{Point: point, GeofenceIDs: ids})
}
