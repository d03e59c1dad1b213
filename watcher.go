package vcican

import (
	"context"
	"fmt"
	"time"
	"unicode"
)

type Modifier uint8

const (
	ModCtrl Modifier = 1 << iota
	ModAlt
	ModShift
)

type KeyEvent struct {
	Rune rune
	Mod  Modifier
}

func (k KeyEvent) String() string {
	var s string
	if k.Mod&ModCtrl != 0 {
		s += "Ctrl + "
	}
	if k.Mod&ModAlt != 0 {
		s += "Alt + "
	}
	if k.Mod&ModShift != 0 {
		s += "Shift + "
	}
	return s + string(unicode.ToUpper(k.Rune))
}

// IsStop reports whether the key is the stop combination, Ctrl + X.
func (k KeyEvent) IsStop() bool {
	return k.Mod&ModCtrl != 0 && unicode.ToLower(k.Rune) == 'x'
}

// KeySource is a lazy stream of key presses.
type KeySource interface {
	// Next waits at most timeout for the next key press, ok is false if the
	// timeout expired first.
	Next(timeout time.Duration) (ev KeyEvent, ok bool, err error)
}

const DefaultKeyPollInterval = 100 * time.Millisecond

// Watcher raises the cancel flag when the operator presses the stop
// combination.
type Watcher struct {
	Source       KeySource
	PollInterval time.Duration
	OnEvent      func(Event)
}

// Run returns once the flag is set, by itself or someone else. A cancelled
// ctx or a failing source also sets the flag so the other activities wind
// down.
func (w *Watcher) Run(ctx context.Context, flag *CancelFlag) error {
	interval := w.PollInterval
	if interval <= 0 {
		interval = DefaultKeyPollInterval
	}
	w.emit(Event{Type: EventTypeInfo, Details: "Press 'Ctrl + X' to exit..."})
	for !flag.IsSet() {
		if err := ctx.Err(); err != nil {
			if flag.Set() {
				w.emit(Event{Type: EventTypeWarning, Details: "interrupted, closing...", Err: err})
			}
			return nil
		}
		ev, ok, err := w.Source.Next(interval)
		if err != nil {
			flag.Set()
			err = fmt.Errorf("key source: %w", err)
			w.emit(Event{Type: EventTypeError, Details: err.Error(), Err: err})
			return err
		}
		if !ok {
			continue
		}
		if ev.IsStop() {
			if flag.Set() {
				w.emit(Event{Type: EventTypeInfo, Details: ev.String() + " detected, closing..."})
			}
			return nil
		}
		w.emit(Event{Type: EventTypeDebug, Details: "ignored key " + ev.String()})
	}
	return nil
}

func (w *Watcher) emit(e Event) {
	if w.OnEvent != nil {
		w.OnEvent(e)
	}
}
