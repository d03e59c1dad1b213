package vcican

import (
	"fmt"
	"time"
)

const (
	DefaultReceiveTimeout  = 500 * time.Millisecond
	DefaultReceiveInterval = 5 * time.Millisecond
	// frames requested per receive call
	receiveBatch = 1
)

// Receiver polls one channel until the cancel flag is set.
type Receiver struct {
	Driver   Driver
	Device   Device
	Channel  Channel
	Timeout  time.Duration
	Interval time.Duration
	OnEvent  func(Event)

	stats *counters
}

// Run blocks at most Timeout+Interval after the flag is raised.
func (r *Receiver) Run(flag *CancelFlag) error {
	if r.stats == nil {
		r.stats = new(counters)
	}
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultReceiveTimeout
	}
	buf := make([]Frame, receiveBatch)
	for !flag.IsSet() {
		n, err := r.Driver.Receive(r.Device, r.Channel, buf, timeout)
		switch {
		case err != nil:
			r.stats.receiveErrors.Add(1)
			derr := channelError(ErrReceiveFailed, r.Channel, err)
			r.emit(Event{Type: EventTypeWarning, Details: derr.Error(), Channel: r.Channel, Err: derr})
		case n == 0:
			r.stats.emptyPolls.Add(1)
		default:
			r.report(buf[:min(n, len(buf))])
		}
		if r.Interval > 0 {
			time.Sleep(r.Interval)
		}
	}
	return nil
}

func (r *Receiver) report(frames []Frame) {
	for i := range frames {
		f := frames[i]
		if err := f.Validate(); err != nil {
			r.stats.invalidFrames.Add(1)
			r.emit(Event{Type: EventTypeWarning, Details: fmt.Sprintf("%s dropped frame ID=0x%X: %v", r.Channel, f.ID, err), Channel: r.Channel, Err: err})
			continue
		}
		r.stats.received.Add(1)
		r.emit(Event{
			Type:    EventTypeInfo,
			Details: fmt.Sprintf("%s received: ID=0x%X, Data=%v", r.Channel, f.ID, f.Payload()),
			Dir:     Incoming,
			Channel: r.Channel,
			Frame:   &f,
		})
	}
}

func (r *Receiver) emit(e Event) {
	if r.OnEvent != nil {
		r.OnEvent(e)
	}
}
