package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/geominder/core/internal/domain/entities"
)

// Offsets of 0.0001 degrees of latitude are about 11 m, 0.001 about 111 m.
func at(lat float64) entities.Coordinate {
	return entities.Coordinate{Latitude: lat, Longitude: 0}
}

func TestSession_AddIfNotCloseElseDelete(t *testing.T) {
	s := NewSession(0)

	assert.False(t, s.AddIfNotCloseElseDelete(at(0)))
	assert.False(t, s.AddIfNotCloseElseDelete(at(0.001)), "111 m away is appended")
	assert.Equal(t, []entities.Coordinate{at(0), at(0.001)}, s.Points())

	assert.True(t, s.AddIfNotCloseElseDelete(at(0.0001)), "11 m away toggles the existing point off")
	assert.Equal(t, []entities.Coordinate{at(0.001)}, s.Points())
}

func TestSession_AddIfNotCloseElseDeleteRemovesOnlyFirstMatch(t *testing.T) {
	s := NewSession(0)
	s.AddIfNotInList(at(0))
	s.AddIfNotInList(at(0.0002))

	s.AddIfNotCloseElseDelete(at(0.0001))

	assert.Equal(t, []entities.Coordinate{at(0.0002)}, s.Points())
}

func TestSession_CustomToggleRadius(t *testing.T) {
	s := NewSession(5)
	s.AddIfNotCloseElseDelete(at(0))
	s.AddIfNotCloseElseDelete(at(0.0001))

	assert.Equal(t, 2, s.Len(), "11 m is outside a 5 m toggle radius")
}

func TestSession_AddIfNotInList(t *testing.T) {
	s := NewSession(0)

	assert.True(t, s.AddIfNotInList(at(1)))
	assert.False(t, s.AddIfNotInList(at(1)))
	assert.Equal(t, 1, s.Len())

	assert.True(t, s.AddIfNotInList(at(1.00001)), "close but not equal is added")
	assert.Equal(t, 2, s.Len())
}

func TestSession_CommitAndRollback(t *testing.T) {
	s := NewSession(0)
	s.AddIfNotInList(at(1))
	s.AddIfNotInList(at(2))
	s.MarkAllPersisted()

	s.AddIfNotInList(at(3))
	assert.Equal(t, 3, s.Len())

	s.DiscardUnpersisted()
	assert.Equal(t, []entities.Coordinate{at(1), at(2)}, s.Points())
	for _, p := range s.Selected() {
		assert.True(t, p.Persisted)
	}

	s.ClearAll()
	assert.Zero(t, s.Len())
	assert.Empty(t, s.Points())
}

func TestSession_DiscardWithoutCommitEmpties(t *testing.T) {
	s := NewSession(0)
	s.AddIfNotCloseElseDelete(at(1))

	s.DiscardUnpersisted()

	assert.Zero(t, s.Len())
}

func TestSession_PointsIsACopy(t *testing.T) {
	s := NewSession(0)
	s.AddIfNotInList(at(1))

	pts := s.Points()
	pts[0] = at(5)

	assert.Equal(t, at(1), s.Points()[0])
}
