package ports

import (
	"github.com/geominder/core/internal/domain/entities"
)

// Auth related types
type LoginRequest struct {
	Password string `json:"password"`
}

type AuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type Claims struct {
	Subject string `json:"sub"`
	TokenID string `json:"jti"`
}

type AuthStateResponse struct {
	State entities.AuthState `json:"state"`
}

// Reminder related types
type SaveReminderRequest struct {
	Title       string                    `json:"title"`
	Description string                    `json:"description"`
	Location    *entities.PointOfInterest `json:"location"`
}

// Geometry related types
type CircleRequest struct {
	Points   []entities.Coordinate     `json:"points" validate:"required,min=1,dive"`
	Previous *entities.PointOfInterest `json:"previous"`
	Name     string                    `json:"name" validate:"max=200"`
}

type CircleResponse struct {
	PointOfInterest entities.PointOfInterest `json:"poi"`
	Bounds          BoundsResponse           `json:"camera_bounds"`
}

type BoundsResponse struct {
	SouthWest entities.Coordinate `json:"southwest"`
	NorthEast entities.Coordinate `json:"northeast"`
}

type ContainingResponse struct {
	Point       entities.Coordinate `json:"point"`
	GeofenceIDs []string            `json:"geofence_ids"`
}
