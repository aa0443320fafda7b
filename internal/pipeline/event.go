// Package pipeline turns a stream of audio batches into transcription
// events.
//
// One Run owns one strategy (VAD-gated offline decoding or streaming
// decoding with endpoints) and drives it from a single goroutine; events
// leave through an Emitter in production order.
package pipeline

import (
	"fmt"
	"time"
)

// EventKind discriminates Event.
type EventKind int

const (
	// EventPartial is an in-progress hypothesis; an empty Text clears the
	// preview.
	EventPartial EventKind = iota
	// EventFinal ends the utterance described by preceding partials.
	EventFinal
	// EventError reports a failure in human-readable form.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventPartial:
		return "partial"
	case EventFinal:
		return "final"
	case EventError:
		return "error"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is one transcription result. Timestamp is the stream offset at which
// the utterance began; it is zero for errors.
type Event struct {
	Kind      EventKind
	Text      string
	Timestamp time.Duration
	Err       error
}

// Partial returns a partial-hypothesis event.
func Partial(text string, ts time.Duration) Event {
	return Event{Kind: EventPartial, Text: text, Timestamp: ts}
}

// Final returns a finalized-utterance event.
func Final(text string, ts time.Duration) Event {
	return Event{Kind: EventFinal, Text: text, Timestamp: ts}
}

// Failure returns an error event carrying err's message.
func Failure(err error) Event {
	return Event{Kind: EventError, Text: err.Error(), Err: err}
}

func (e Event) String() string {
	if e.Kind == EventError {
		return fmt.Sprintf("error: %s", e.Text)
	}
	return fmt.Sprintf("%s@%s: %q", e.Kind, e.Timestamp.Round(time.Millisecond), e.Text)
}

// Sentence is the persisted unit created from a Final event. Only
// Translation changes after creation.
type Sentence struct {
	ID          string
	SessionID   string
	Timestamp   time.Duration
	Text        string
	Translation string
	CreatedAt   time.Time
}
