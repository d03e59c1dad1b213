package vcican

import (
	"fmt"
	"time"
)

const DefaultTransmitInterval = 10 * time.Millisecond

// TransmitPlan is the ordered test pattern sent by the Transmitter, one
// single byte frame per payload value.
type TransmitPlan struct {
	ID       uint32
	Extended bool
	Payloads []byte
	Interval time.Duration
}

// DefaultPlan sends 1..255 on identifier 0x1.
func DefaultPlan() TransmitPlan {
	payloads := make([]byte, 0, 255)
	for v := 1; v <= 255; v++ {
		payloads = append(payloads, byte(v))
	}
	return TransmitPlan{
		ID:       0x1,
		Payloads: payloads,
		Interval: DefaultTransmitInterval,
	}
}

func (p TransmitPlan) frame(v byte) Frame {
	if p.Extended {
		return NewExtendedFrame(p.ID, []byte{v})
	}
	return NewFrame(p.ID, []byte{v})
}

// Progress receives one Add per frame handed to the driver.
type Progress interface {
	Add(int) error
}

// Transmitter sends a TransmitPlan on one channel. The whole plan is sent
// even after the cancel flag is raised unless AbortOnCancel is set.
type Transmitter struct {
	Driver        Driver
	Device        Device
	Channel       Channel
	Plan          TransmitPlan
	AbortOnCancel bool
	Progress      Progress
	OnEvent       func(Event)

	stats *counters
}

func (t *Transmitter) Run(flag *CancelFlag) error {
	if t.stats == nil {
		t.stats = new(counters)
	}
	for _, v := range t.Plan.Payloads {
		if t.AbortOnCancel && flag.IsSet() {
			t.emit(Event{Type: EventTypeWarning, Details: fmt.Sprintf("%s transmit aborted", t.Channel), Channel: t.Channel})
			return nil
		}
		f := t.Plan.frame(v)
		n, err := t.Driver.Transmit(t.Device, t.Channel, []Frame{f})
		if err == nil && n > 0 {
			t.stats.sent.Add(1)
			t.emit(Event{
				Type:    EventTypeInfo,
				Details: fmt.Sprintf("%s sent: %d", t.Channel, v),
				Dir:     Outgoing,
				Channel: t.Channel,
				Frame:   &f,
			})
		} else {
			t.stats.sendErrors.Add(1)
			derr := channelError(ErrTransmitFailed, t.Channel, err)
			t.emit(Event{Type: EventTypeWarning, Details: fmt.Sprintf("%s (value %d)", derr, v), Dir: Outgoing, Channel: t.Channel, Frame: &f, Err: derr})
		}
		if t.Progress != nil {
			if err := t.Progress.Add(1); err != nil {
				t.emit(Event{Type: EventTypeDebug, Details: "progress: " + err.Error(), Channel: t.Channel, Err: err})
			}
		}
		if t.Plan.Interval > 0 {
			time.Sleep(t.Plan.Interval)
		}
	}
	return nil
}

func (t *Transmitter) emit(e Event) {
	if t.OnEvent != nil {
		t.OnEvent(e)
	}
}
