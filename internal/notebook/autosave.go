package notebook

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultAutosaveDelay is the quiet period before pending changes are saved.
const DefaultAutosaveDelay = 2 * time.Second

// SaveFunc persists serialized notebook content.
type SaveFunc func(ctx context.Context, content []byte) error

// Autosaver debounces content changes. Each Touch restarts the quiet
// period; when it elapses the latest content is saved unless it matches
// what was last saved.
type Autosaver struct {
	save  SaveFunc
	delay time.Duration
	ctx   context.Context

	mu        sync.Mutex
	timer     *time.Timer
	pending   []byte
	lastSaved []byte
	enabled   bool
	closed    bool
}

// NewAutosaver creates an autosaver. Timer-driven saves run with ctx and
// stop once it is done. lastSaved is the content already persisted.
func NewAutosaver(ctx context.Context, delay time.Duration, lastSaved []byte, save SaveFunc) *Autosaver {
	if delay <= 0 {
		delay = DefaultAutosaveDelay
	}
	return &Autosaver{
		save:      save,
		delay:     delay,
		ctx:       ctx,
		lastSaved: append([]byte(nil), lastSaved...),
		enabled:   true,
	}
}

// SetEnabled turns timer-driven saving on or off. Disabling drops the
// running timer but keeps pending content for SaveNow.
func (a *Autosaver) SetEnabled(on bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = on
	if !on {
		a.stopTimer()
	} else if a.pending != nil && !a.closed {
		a.startTimer()
	}
}

// Touch records new content and restarts the quiet period.
func (a *Autosaver) Touch(content []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.pending = append([]byte(nil), content...)
	if a.enabled {
		a.startTimer()
	}
}

// Pending reports whether there is content not yet saved.
func (a *Autosaver) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending != nil && !bytes.Equal(a.pending, a.lastSaved)
}

// SaveNow saves pending content immediately, bypassing the quiet period.
// Unlike timer saves, its error is returned.
func (a *Autosaver) SaveNow(ctx context.Context) error {
	a.mu.Lock()
	a.stopTimer()
	content := a.pending
	a.mu.Unlock()

	if content == nil {
		return nil
	}
	return a.persist(ctx, content)
}

// Close stops the timer and drops pending work.
func (a *Autosaver) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	a.stopTimer()
	a.pending = nil
}

func (a *Autosaver) startTimer() {
	a.stopTimer()
	a.timer = time.AfterFunc(a.delay, a.fire)
}

func (a *Autosaver) stopTimer() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

func (a *Autosaver) fire() {
	a.mu.Lock()
	if a.closed || !a.enabled || a.pending == nil {
		a.mu.Unlock()
		return
	}
	content := a.pending
	same := bytes.Equal(content, a.lastSaved)
	a.mu.Unlock()

	if same || a.ctx.Err() != nil {
		return
	}
	if err := a.persist(a.ctx, content); err != nil {
		logrus.WithError(err).Warn("autosave failed")
	}
}

func (a *Autosaver) persist(ctx context.Context, content []byte) error {
	if err := a.save(ctx, content); err != nil {
		return err
	}
	a.mu.Lock()
	a.lastSaved = content
	if bytes.Equal(a.pending, content) {
		a.pending = nil
	}
	a.mu.Unlock()
	return nil
}
