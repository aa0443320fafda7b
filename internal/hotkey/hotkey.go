// Package hotkey turns a global key combination into session start/stop
// events using gohook. In "hold" mode the session runs while the keys are
// held; in "toggle" mode each press flips it.
package hotkey

import (
	"strings"
	"sync"

	hook "github.com/robotn/gohook"
	"github.com/rs/zerolog"
)

// EventType says whether a session should start or stop.
type EventType int

const (
	EventStart EventType = iota
	EventStop
)

func (t EventType) String() string {
	if t == EventStop {
		return "stop"
	}
	return "start"
}

// Event is delivered on Listener.Events.
type Event struct {
	Type EventType
}

// tracker holds the active flag shared by the key callbacks.
type tracker struct {
	mu     sync.Mutex
	toggle bool
	active bool
}

// press returns the event a key-down produces, if any.
func (t *tracker) press() (EventType, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active {
		if !t.toggle {
			return 0, false // key repeat while held
		}
		t.active = false
		return EventStop, true
	}
	t.active = true
	return EventStart, true
}

// release returns the event a key-up produces, if any.
func (t *tracker) release() (EventType, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.toggle || !t.active {
		return 0, false
	}
	t.active = false
	return EventStop, true
}

// Listener watches one key combination.
type Listener struct {
	keys []string
	mode string
	log  zerolog.Logger

	state *tracker
	ch    chan Event
	done  chan struct{}
	once  sync.Once
}

// NewListener creates a Listener for keys (lowercase gohook names such as
// ["ctrl", "shift", "t"]) in "hold" or "toggle" mode.
func NewListener(keys []string, mode string, log zerolog.Logger) *Listener {
	return &Listener{
		keys:  keys,
		mode:  mode,
		log:   log.With().Str("component", "hotkey").Str("keys", strings.Join(keys, "+")).Logger(),
		state: &tracker{toggle: mode == "toggle"},
		ch:    make(chan Event, 16),
		done:  make(chan struct{}),
	}
}

// Events returns the event channel. It is closed when the listener stops.
func (l *Listener) Events() <-chan Event {
	return l.ch
}

func (l *Listener) send(t EventType, ok bool) {
	if !ok {
		return
	}
	select {
	case l.ch <- Event{Type: t}:
		l.log.Debug().Stringer("event", t).Msg("hotkey")
	default:
		l.log.Warn().Stringer("event", t).Msg("hotkey event dropped, consumer busy")
	}
}

// Start registers the hotkey and blocks until Stop is called. Run it in a
// goroutine.
func (l *Listener) Start() {
	hook.Register(hook.KeyDown, l.keys, func(hook.Event) { l.send(l.state.press()) })
	if l.mode != "toggle" {
		hook.Register(hook.KeyUp, l.keys, func(hook.Event) { l.send(l.state.release()) })
	}

	evChan := hook.Start()
	go func() {
		<-l.done
		hook.End()
	}()
	l.log.Info().Str("mode", l.mode).Msg("hotkey listener started")
	<-hook.Process(evChan)
	close(l.ch)
}

// Stop terminates the listener. It is safe to call multiple times.
func (l *Listener) Stop() {
	l.once.Do(func() {
		close(l.done)
	})
}
