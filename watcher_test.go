package vcican

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestKeyEvent(t *testing.T) {
	tests := []struct {
		ev       KeyEvent
		want     string
		wantStop bool
	}{
		{KeyEvent{Rune: 'x', Mod: ModCtrl}, "Ctrl + X", true},
		{KeyEvent{Rune: 'X', Mod: ModCtrl | ModShift}, "Ctrl + Shift + X", true},
		{KeyEvent{Rune: 'x'}, "X", false},
		{KeyEvent{Rune: 'c', Mod: ModCtrl}, "Ctrl + C", false},
		{KeyEvent{Rune: 'q', Mod: ModAlt}, "Alt + Q", false},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.ev.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
			if got := tt.ev.IsStop(); got != tt.wantStop {
				t.Errorf("IsStop() = %v, want %v", got, tt.wantStop)
			}
		})
	}
}

func TestWatcherStopKey(t *testing.T) {
	ev := new(eventLog)
	keys := newScriptedKeys(20*time.Millisecond, KeyEvent{Rune: 'a'}, KeyEvent{Rune: 'c', Mod: ModCtrl})
	w := &Watcher{Source: keys, PollInterval: 5 * time.Millisecond, OnEvent: ev.add}
	flag := NewCancelFlag()
	start := time.Now()
	if err := w.Run(context.Background(), flag); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !flag.IsSet() {
		t.Error("flag not set")
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("other keys stopped the watcher")
	}
	if _, ok := ev.find("Press 'Ctrl + X' to exit..."); !ok {
		t.Error("missing prompt")
	}
	if _, ok := ev.find("Ctrl + X detected, closing..."); !ok {
		t.Error("missing stop event")
	}
	if _, ok := ev.find("ignored key Ctrl + C"); !ok {
		t.Error("missing ignored key event")
	}
}

func TestWatcherSourceError(t *testing.T) {
	keys := newScriptedKeys(time.Hour)
	keys.err = errFake
	w := &Watcher{Source: keys}
	flag := NewCancelFlag()
	if err := w.Run(context.Background(), flag); !errors.Is(err, errFake) {
		t.Errorf("Run() error = %v, want source error", err)
	}
	if !flag.IsSet() {
		t.Error("flag not set after source failure")
	}
}

func TestWatcherExternalFlag(t *testing.T) {
	w := &Watcher{Source: newScriptedKeys(time.Hour), PollInterval: 10 * time.Millisecond}
	flag := NewCancelFlag()
	const setAfter = 20 * time.Millisecond
	time.AfterFunc(setAfter, func() { flag.Set() })
	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background(), flag) }()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(setAfter + w.PollInterval + latencyMargin):
		t.Fatal("watcher did not return within one poll interval after the flag was set")
	}
}

func TestWatcherContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ev := new(eventLog)
	w := &Watcher{Source: newScriptedKeys(time.Hour), OnEvent: ev.add}
	flag := NewCancelFlag()
	if err := w.Run(ctx, flag); err != nil {
		t.Errorf("Run() error = %v", err)
	}
	if !flag.IsSet() {
		t.Error("flag not set on cancelled context")
	}
	if _, ok := ev.find("interrupted, closing..."); !ok {
		t.Error("missing interrupt event")
	}
}
