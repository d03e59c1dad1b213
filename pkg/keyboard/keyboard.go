// Package keyboard turns the controlling terminal into a vcican.KeySource.
package keyboard

import (
	"errors"
	"io"
	"os"
	"time"
	"unicode/utf8"

	"github.com/roffe/vcican"
	"golang.org/x/term"
)

var _ vcican.KeySource = (*Keyboard)(nil)

type Keyboard struct {
	fd     int
	state  *term.State
	events chan vcican.KeyEvent
	errs   chan error
}

// Open puts f in raw mode if it is a terminal and starts reading key
// presses from it. Anything else is read as is, so a piped Ctrl+X (0x18)
// stops a run as well.
func Open(f *os.File) (*Keyboard, error) {
	k := &Keyboard{
		fd:     int(f.Fd()),
		events: make(chan vcican.KeyEvent, 32),
		errs:   make(chan error, 1),
	}
	if term.IsTerminal(k.fd) {
		state, err := term.MakeRaw(k.fd)
		if err != nil {
			return nil, err
		}
		k.state = state
	}
	go k.read(f)
	return k, nil
}

// Raw reports whether the terminal is in raw mode.
func (k *Keyboard) Raw() bool {
	return k.state != nil
}

// read runs until the input fails, it stays blocked in Read after Close
// until the process exits.
func (k *Keyboard) read(r io.Reader) {
	buf := make([]byte, 64)
	var pending []byte
	for {
		n, err := r.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			var events []vcican.KeyEvent
			events, pending = Decode(pending)
			for _, ev := range events {
				k.events <- ev
			}
		}
		if err != nil {
			// end of a pipe just means no more key presses
			if !errors.Is(err, io.EOF) {
				k.errs <- err
			}
			return
		}
	}
}

func (k *Keyboard) Next(timeout time.Duration) (vcican.KeyEvent, bool, error) {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case ev := <-k.events:
		return ev, true, nil
	case err := <-k.errs:
		return vcican.KeyEvent{}, false, err
	case <-t.C:
		return vcican.KeyEvent{}, false, nil
	}
}

// Close restores the terminal.
func (k *Keyboard) Close() error {
	if k.state == nil {
		return nil
	}
	err := term.Restore(k.fd, k.state)
	k.state = nil
	return err
}

// Decode turns raw terminal input into key events. Control bytes 0x01-0x1A
// become Ctrl + letter, except tab, line feed and carriage return. An
// incomplete UTF-8 sequence at the end is returned as rest.
func Decode(p []byte) (events []vcican.KeyEvent, rest []byte) {
	for len(p) > 0 {
		b := p[0]
		switch {
		case b == '\t' || b == '\n' || b == '\r':
			events = append(events, vcican.KeyEvent{Rune: rune(b)})
		case b >= 0x01 && b <= 0x1A:
			events = append(events, vcican.KeyEvent{Rune: rune('a' + b - 1), Mod: vcican.ModCtrl})
		case b < utf8.RuneSelf:
			events = append(events, vcican.KeyEvent{Rune: rune(b)})
		default:
			if !utf8.FullRune(p) {
				return events, p
			}
			r, size := utf8.DecodeRune(p)
			events = append(events, vcican.KeyEvent{Rune: r})
			p = p[size:]
			continue
		}
		p = p[1:]
	}
	return events, nil
}
