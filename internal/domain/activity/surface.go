package activity

import (
	"sync"

	"github.com/MicroPythonOS/shell/internal/shared/id"
)

// Surface is the visual root handed to an activity's lifecycle hooks.
// The shell only tracks identity, dimensions, and the content root set
// by the activity; rendering belongs to the compositor process.
type Surface struct {
	id     id.SurfaceID
	width  int
	height int

	mu      sync.RWMutex
	content interface{} // Protected by mu
}

// NewSurface allocates a surface with the given dimensions.
func NewSurface(width, height int) *Surface {
	return &Surface{
		id:     id.NewSurfaceID(),
		width:  width,
		height: height,
	}
}

// ID returns the surface identifier.
func (s *Surface) ID() id.SurfaceID {
	return s.id
}

// Width returns the surface width in pixels.
func (s *Surface) Width() int {
	return s.width
}

// Height returns the surface height in pixels.
func (s *Surface) Height() int {
	return s.height
}

// SetContent installs the content root.
func (s *Surface) SetContent(root interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.content = root
}

// Content returns the current content root, nil when none is set.
func (s *Surface) Content() interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.content
}

// release drops the content root when the owning activity is destroyed.
func (s *Surface) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.content = nil
}
