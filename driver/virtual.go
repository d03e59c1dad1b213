package driver

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roffe/vcican"
)

const virtualQueueSize = 1024

var (
	ErrNotOpen       = errors.New("device not open")
	ErrAlreadyOpen   = errors.New("device already open")
	ErrNotInitalized = errors.New("channel not initialized")
	ErrNotStarted    = errors.New("channel not started")
	ErrListenOnly    = errors.New("channel is in listen only mode")
)

func init() {
	if err := vcican.RegisterDriver(&vcican.DriverInfo{
		Name:        "virtual",
		Description: "In-memory bus connecting the channels of a device",
		New:         NewVirtual,
	}); err != nil {
		panic(err)
	}
}

var _ vcican.Driver = (*Virtual)(nil)

// Virtual connects the channels of each opened device to one shared bus. A
// frame sent on a channel reaches every other started channel whose
// acceptance filter lets it through, self test mode also loops it back.
type Virtual struct {
	cfg     *vcican.DriverConfig
	mu      sync.Mutex
	devices map[vcican.Device]*virtualDevice
	dropped atomic.Uint64
}

type virtualDevice struct {
	opened   time.Time
	channels [len(vcican.Channels)]*virtualChannel
}

type virtualChannel struct {
	cfg     vcican.ChannelConfig
	started bool
	queue   chan vcican.Frame
}

func NewVirtual(cfg *vcican.DriverConfig) (vcican.Driver, error) {
	return &Virtual{
		cfg:     cfg,
		devices: make(map[vcican.Device]*virtualDevice),
	}, nil
}

// Dropped is the number of frames lost to full receive queues.
func (v *Virtual) Dropped() uint64 {
	return v.dropped.Load()
}

func (v *Virtual) OpenDevice(dev vcican.Device) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, found := v.devices[dev]; found {
		return fmt.Errorf("%s: %w", dev, ErrAlreadyOpen)
	}
	v.devices[dev] = &virtualDevice{opened: time.Now()}
	return nil
}

func (v *Virtual) CloseDevice(dev vcican.Device) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, found := v.devices[dev]; !found {
		return fmt.Errorf("%s: %w", dev, ErrNotOpen)
	}
	delete(v.devices, dev)
	return nil
}

func (v *Virtual) InitCAN(dev vcican.Device, ch vcican.Channel, cfg *vcican.ChannelConfig) error {
	if !ch.Valid() {
		return vcican.ErrInvalidChannel
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	d, found := v.devices[dev]
	if !found {
		return fmt.Errorf("%s: %w", dev, ErrNotOpen)
	}
	d.channels[ch] = &virtualChannel{
		cfg:   *cfg,
		queue: make(chan vcican.Frame, virtualQueueSize),
	}
	return nil
}

func (v *Virtual) StartCAN(dev vcican.Device, ch vcican.Channel) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	c, err := v.channel(dev, ch)
	if err != nil {
		return err
	}
	c.started = true
	return nil
}

// channel must be called with v.mu held
func (v *Virtual) channel(dev vcican.Device, ch vcican.Channel) (*virtualChannel, error) {
	if !ch.Valid() {
		return nil, vcican.ErrInvalidChannel
	}
	d, found := v.devices[dev]
	if !found {
		return nil, fmt.Errorf("%s: %w", dev, ErrNotOpen)
	}
	c := d.channels[ch]
	if c == nil {
		return nil, fmt.Errorf("%s: %w", ch, ErrNotInitalized)
	}
	return c, nil
}

func (v *Virtual) Transmit(dev vcican.Device, ch vcican.Channel, frames []vcican.Frame) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	src, err := v.channel(dev, ch)
	if err != nil {
		return 0, err
	}
	if !src.started {
		return 0, fmt.Errorf("%s: %w", ch, ErrNotStarted)
	}
	if src.cfg.Mode == vcican.ModeListenOnly {
		return 0, fmt.Errorf("%s: %w", ch, ErrListenOnly)
	}
	d := v.devices[dev]
	// timestamps count 0.1 ms units since the device was opened
	stamp := uint32(time.Since(d.opened) / (100 * time.Microsecond))
	sent := 0
	for _, f := range frames {
		if err := f.Validate(); err != nil {
			return sent, err
		}
		f.TimeStamp = stamp
		f.TimeFlag = 1
		for i, dst := range d.channels {
			if dst == nil || !dst.started {
				continue
			}
			if vcican.Channel(i) == ch && dst.cfg.Mode != vcican.ModeSelfTest {
				continue
			}
			if !dst.cfg.Accepts(f.ID, f.Extended()) {
				continue
			}
			select {
			case dst.queue <- f:
			default:
				v.dropped.Add(1)
				if v.cfg != nil && v.cfg.Debug && v.cfg.OnMessage != nil {
					v.cfg.OnMessage(fmt.Sprintf("virtual %s queue full, dropped 0x%X", vcican.Channel(i), f.ID))
				}
			}
		}
		sent++
	}
	return sent, nil
}

func (v *Virtual) Receive(dev vcican.Device, ch vcican.Channel, buf []vcican.Frame, timeout time.Duration) (int, error) {
	v.mu.Lock()
	c, err := v.channel(dev, ch)
	if err == nil && !c.started {
		err = fmt.Errorf("%s: %w", ch, ErrNotStarted)
	}
	v.mu.Unlock()
	if err != nil {
		return 0, err
	}
	if len(buf) == 0 {
		return 0, nil
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case f := <-c.queue:
		buf[0] = f
	case <-t.C:
		return 0, nil
	}
	n := 1
	for n < len(buf) {
		select {
		case f := <-c.queue:
			buf[n] = f
			n++
		default:
			return n, nil
		}
	}
	return n, nil
}
