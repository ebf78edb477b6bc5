package renderer

import (
	"sync"
	"sync/atomic"

	"github.com/richinsley/goshadertoyvr/handoff"
	"github.com/richinsley/goshadertoyvr/metrics"
	"go.uber.org/zap"
)

// Session is the state shared by everything that takes part in rendering:
// the cross-thread queues and cells, logging and metrics, and the teardown
// list. It is created once at startup and closed once at exit.
type Session struct {
	Log     *zap.Logger
	Metrics *metrics.Metrics

	// Tasks carries work from other threads to the render thread.
	Tasks *handoff.Tasks
	// UI is the newest UI texture published by the UI thread.
	UI *handoff.Cell
	// Release carries reclaimed UI textures back to the UI thread.
	Release *handoff.ReleaseQueue
	// Cursor is the pointer position in UI normalized device coordinates.
	Cursor *handoff.Vec2Cell
	// UIVisible is set by the render thread; the UI thread stops producing
	// frames while it is false.
	UIVisible atomic.Bool

	mu      sync.Mutex
	closers []closer
	closed  bool
}

type closer struct {
	name string
	fn   func()
}

func NewSession(log *zap.Logger, m *metrics.Metrics) *Session {
	return &Session{
		Log:     log,
		Metrics: m,
		Tasks:   &handoff.Tasks{},
		UI:      &handoff.Cell{},
		Release: &handoff.ReleaseQueue{},
		Cursor:  &handoff.Vec2Cell{},
	}
}

// OnClose registers fn to run at Close. Components register as they are
// created, so running the list backwards tears down dependents first.
func (s *Session) OnClose(name string, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closers = append(s.closers, closer{name: name, fn: fn})
}

// Close runs the registered teardown functions in reverse registration
// order. It must be called on the render thread. Later calls do nothing.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	closers := s.closers
	s.closers = nil
	s.mu.Unlock()

	for i := len(closers) - 1; i >= 0; i-- {
		c := closers[i]
		s.Log.Debug("Releasing", zap.String("component", c.name))
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.Log.Error("Panic while releasing", zap.String("component", c.name), zap.Any("panic", r))
				}
			}()
			c.fn()
		}()
	}
}
