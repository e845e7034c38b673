// Package session runs the visualisation loop. One goroutine owns the layout, the
// visibility flag, the animator and the latest amplitude map; everything else talks
// to it through channels.
package session

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"forma/internal/analysis"
	applog "forma/internal/log"
	"forma/internal/notes"
	"forma/internal/visual"
)

var logger = applog.Named("Session")

const (
	frameQueue  = 4
	resizeQueue = 1
)

var ErrStopped = errors.New("session stopped")

// Options configures a Session.
type Options struct {
	Layout        visual.Layout
	Animator      visual.AnimatorConfig
	FrameInterval time.Duration // Render tick period; defaults to 60 Hz.
	Surfaces      []visual.Surface
}

type size struct{ width, height float64 }

// Session is the single logical thread of the visualisation. Start runs it on its
// own goroutine; offline drivers may instead call HandleFrame, Resize, Toggle and
// Advance directly, but never both at once.
type Session struct {
	layout   visual.Layout
	vis      visual.Visibility
	animator *visual.Animator
	latest   notes.AmplitudeMap
	dominant visual.Selection
	hasNote  bool // Whether latest had a dominant note.
	capacity int
	seq      uint64
	surfaces []visual.Surface
	interval time.Duration

	frames  chan notes.AmplitudeMap
	resizes chan size
	toggles chan struct{} // Wakes the loop; the count lives in pendingToggles.

	pendingToggles atomic.Uint32

	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup
	stopped   atomic.Bool

	dropped    atomic.Uint64
	drawErrors uint64
	now        func() time.Time
}

var _ analysis.FrameSink = (*Session)(nil)

// New builds an idle session.
func New(opts Options) (*Session, error) {
	animator, err := visual.NewAnimator(opts.Animator)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	interval := opts.FrameInterval
	if interval <= 0 {
		interval = time.Second / 60
	}
	return &Session{
		layout:   opts.Layout,
		animator: animator,
		capacity: opts.Animator.Capacity,
		surfaces: opts.Surfaces,
		interval: interval,
		frames:   make(chan notes.AmplitudeMap, frameQueue),
		resizes:  make(chan size, resizeQueue),
		toggles:  make(chan struct{}, 1),
		done:     make(chan struct{}),
		now:      time.Now,
	}, nil
}

// PostFrame queues an amplitude map without blocking. It returns false when the
// queue is full or the session has stopped.
func (s *Session) PostFrame(m notes.AmplitudeMap) bool {
	if s.stopped.Load() {
		return false
	}
	select {
	case s.frames <- m:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// RequestResize queues a new surface size. A pending resize that has not been
// applied yet is replaced.
func (s *Session) RequestResize(width, height float64) error {
	for {
		if s.stopped.Load() {
			return ErrStopped
		}
		select {
		case s.resizes <- size{width, height}:
			return nil
		default:
		}
		select {
		case <-s.resizes:
		default:
		}
	}
}

// RequestToggle queues one visibility flip without blocking. Each call flips
// exactly once, however many are pending.
func (s *Session) RequestToggle() error {
	if s.stopped.Load() {
		return ErrStopped
	}
	s.pendingToggles.Add(1)
	select {
	case s.toggles <- struct{}{}:
	default: // The loop is already due to wake.
	}
	return nil
}

// Start launches the loop. Subsequent calls do nothing.
func (s *Session) Start() {
	s.startOnce.Do(func() {
		s.wg.Add(1)
		go s.run()
	})
}

// Stop ends the loop and waits for it. Safe to call more than once.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		s.stopped.Store(true)
		close(s.done)
	})
	s.wg.Wait()
}

func (s *Session) run() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger.Infof("Loop started (tick %s, %d surfaces)", s.interval, len(s.surfaces))
	for {
		select {
		case m := <-s.frames:
			s.HandleFrame(&m, s.now())
		case sz := <-s.resizes:
			s.Resize(sz.width, sz.height)
		case <-s.toggles:
			for range s.pendingToggles.Swap(0) {
				s.Toggle()
			}
		case <-ticker.C:
			s.Advance(s.now())
		case <-s.done:
			logger.Infof("Loop stopped (%d scenes, %d frames dropped)", s.seq, s.dropped.Load())
			return
		}
	}
}

// HandleFrame stores m as the latest map and feeds its dominant note to the
// animator. It reports whether a new trail point was accepted.
func (s *Session) HandleFrame(m *notes.AmplitudeMap, now time.Time) bool {
	s.latest = *m
	sel, ok := visual.Select(&s.latest, s.layout, s.capacity)
	s.dominant, s.hasNote = sel, ok
	if !ok {
		return false
	}
	return s.animator.Update(sel, now)
}

// Resize applies a new surface size. Stored trail points keep their coordinates.
func (s *Session) Resize(width, height float64) {
	s.layout = s.layout.Resize(width, height)
	logger.Debugf("Resized to %.0fx%.0f (radius %.1f)", s.layout.Width, s.layout.Height, s.layout.Radius)
}

// Toggle flips visibility and returns the new state.
func (s *Session) Toggle() bool {
	visible := s.vis.Toggle()
	logger.Debugf("Visibility now %t", visible)
	return visible
}

// Advance moves the animation to now, composes a scene and draws it on every
// surface. The composed scene is returned.
func (s *Session) Advance(now time.Time) *visual.Scene {
	s.animator.Tick(now)
	s.seq++
	var dominant *visual.Selection
	if s.hasNote {
		dominant = &s.dominant
	}
	scene := visual.Compose(s.seq, now, s.layout, &s.vis, &s.latest, dominant, s.animator)
	for _, surface := range s.surfaces {
		if err := surface.Draw(scene); err != nil {
			s.drawErrors++
			if s.drawErrors == 1 || s.drawErrors%1000 == 0 {
				logger.Warnf("Draw failed (%d so far): %v", s.drawErrors, err)
			}
		}
	}
	return scene
}

// Layout returns the current geometry.
func (s *Session) Layout() visual.Layout { return s.layout }

// Animator exposes the trail state for inspection.
func (s *Session) Animator() *visual.Animator { return s.animator }

// Visible reports the current visibility.
func (s *Session) Visible() bool { return s.vis.Visible() }

// Dropped counts frames refused because the queue was full.
func (s *Session) Dropped() uint64 { return s.dropped.Load() }
