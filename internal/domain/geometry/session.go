package geometry

import "github.com/geominder/core/internal/domain/entities"

// SelectedPoint is a coordinate picked during an edit session. Persisted
// points survive DiscardUnpersisted.
type SelectedPoint struct {
	Coordinate entities.Coordinate
	Persisted  bool
}

// Session is the ordered list of points selected during one edit
// interaction. It is not safe for concurrent use; a session has a single
// writer.
type Session struct {
	points       []SelectedPoint
	toggleRadius float64
}

// NewSession returns an empty session. A non-positive toggleRadius falls
// back to ToggleRadiusMeters.
func NewSession(toggleRadius float64) *Session {
	if toggleRadius <= 0 {
		toggleRadius = ToggleRadiusMeters
	}
	return &Session{toggleRadius: toggleRadius}
}

// AddIfNotCloseElseDelete removes the first point within the toggle radius
// of c, or appends c when there is none. It reports whether a point was
// removed.
func (s *Session) AddIfNotCloseElseDelete(c entities.Coordinate) bool {
	for i, p := range s.points {
		if Distance(p.Coordinate, c) <= s.toggleRadius {
			s.points = append(s.points[:i], s.points[i+1:]...)
			return true
		}
	}
	s.points = append(s.points, SelectedPoint{Coordinate: c})
	return false
}

// AddIfNotInList appends c unless an identical coordinate is already
// selected. It reports whether c was added.
func (s *Session) AddIfNotInList(c entities.Coordinate) bool {
	for _, p := range s.points {
		if p.Coordinate == c {
			return false
		}
	}
	s.points = append(s.points, SelectedPoint{Coordinate: c})
	return true
}

// MarkAllPersisted flags every current point as persisted.
func (s *Session) MarkAllPersisted() {
	for i := range s.points {
		s.points[i].Persisted = true
	}
}

// DiscardUnpersisted drops the points added since the last MarkAllPersisted.
func (s *Session) DiscardUnpersisted() {
	kept := s.points[:0]
	for _, p := range s.points {
		if p.Persisted {
			kept = append(kept, p)
		}
	}
	s.points = kept
}

// ClearAll empties the session.
func (s *Session) ClearAll() {
	s.points = nil
}

// Points returns a copy of the selected coordinates in selection order.
func (s *Session) Points() []entities.Coordinate {
	out := make([]entities.Coordinate, len(s.points))
	for i, p := range s.points {
		out[i] = p.Coordinate
	}
	return out
}

// Selected returns a copy of the points with their persisted flags.
func (s *Session) Selected() []SelectedPoint {
	return append([]SelectedPoint(nil), s.points...)
}

// Len returns the number of selected points.
func (s *Session) Len() int {
	return len(s.points)
}
