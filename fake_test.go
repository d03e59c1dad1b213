package vcican

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

var errFake = errors.New("fake failure")

// fakeDriver records every lifecycle and transmit call and loops nothing
// back by itself, frames to receive are queued in rx.
type fakeDriver struct {
	mu sync.Mutex

	calls    []string
	openErrs []error
	initErr  map[Channel]error
	startErr map[Channel]error
	txErr    error
	rxErr    error
	closeErr error

	sent     []Frame
	rx       []Frame
	receives int
}

func (d *fakeDriver) record(format string, args ...any) {
	d.calls = append(d.calls, fmt.Sprintf(format, args...))
}

func (d *fakeDriver) OpenDevice(dev Device) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("open")
	if len(d.openErrs) > 0 {
		err := d.openErrs[0]
		d.openErrs = d.openErrs[1:]
		return err
	}
	return nil
}

func (d *fakeDriver) CloseDevice(dev Device) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("close")
	return d.closeErr
}

func (d *fakeDriver) InitCAN(dev Device, ch Channel, cfg *ChannelConfig) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("init %s", ch)
	return d.initErr[ch]
}

func (d *fakeDriver) StartCAN(dev Device, ch Channel) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("start %s", ch)
	return d.startErr[ch]
}

func (d *fakeDriver) Transmit(dev Device, ch Channel, frames []Frame) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("transmit %s", ch)
	if d.txErr != nil {
		return 0, d.txErr
	}
	d.sent = append(d.sent, frames...)
	return len(frames), nil
}

func (d *fakeDriver) Receive(dev Device, ch Channel, buf []Frame, timeout time.Duration) (int, error) {
	d.mu.Lock()
	d.receives++
	if d.rxErr != nil {
		err := d.rxErr
		d.mu.Unlock()
		return 0, err
	}
	if len(d.rx) > 0 {
		n := copy(buf, d.rx)
		d.rx = d.rx[n:]
		d.mu.Unlock()
		return n, nil
	}
	d.mu.Unlock()
	time.Sleep(min(timeout, 5*time.Millisecond))
	return 0, nil
}

func (d *fakeDriver) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

func (d *fakeDriver) Sent() []Frame {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Frame(nil), d.sent...)
}

func (d *fakeDriver) count(call string) int {
	var n int
	for _, c := range d.Calls() {
		if c == call {
			n++
		}
	}
	return n
}

// scriptedKeys presses Ctrl + X once after a delay.
type scriptedKeys struct {
	start time.Time
	after time.Duration
	keys  []KeyEvent
	err   error
	done  bool
}

func newScriptedKeys(after time.Duration, keys ...KeyEvent) *scriptedKeys {
	return &scriptedKeys{start: time.Now(), after: after, keys: keys}
}

func (k *scriptedKeys) Next(timeout time.Duration) (KeyEvent, bool, error) {
	if k.err != nil {
		return KeyEvent{}, false, k.err
	}
	if len(k.keys) > 0 {
		ev := k.keys[0]
		k.keys = k.keys[1:]
		return ev, true, nil
	}
	if !k.done && time.Since(k.start) >= k.after {
		k.done = true
		return KeyEvent{Rune: 'x', Mod: ModCtrl}, true, nil
	}
	time.Sleep(min(timeout, 5*time.Millisecond))
	return KeyEvent{}, false, nil
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) add(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) find(substr string) (Event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.events {
		if strings.Contains(e.Details, substr) {
			return e, true
		}
	}
	return Event{}, false
}

func (l *eventLog) count(t EventType) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	var n int
	for _, e := range l.events {
		if e.Type == t {
			n++
		}
	}
	return n
}
