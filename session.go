package vcican

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"golang.org/x/sync/errgroup"
)

type SessionConfig struct {
	Device Device
	// OpenAttempts is how many times opening the device is tried, 0 means once.
	OpenAttempts   uint
	OpenRetryDelay time.Duration
	OnEvent        func(Event)
}

type RunConfig struct {
	Plan          TransmitPlan
	TxChannel     Channel
	RxChannel     Channel
	Keys          KeySource
	AbortOnCancel bool
	Progress      Progress

	ReceiveTimeout  time.Duration
	ReceiveInterval time.Duration
	KeyPollInterval time.Duration
}

// DefaultRunConfig transmits the default plan on CAN1 and listens on CAN1.
func DefaultRunConfig(keys KeySource) RunConfig {
	return RunConfig{
		Plan:            DefaultPlan(),
		TxChannel:       CAN1,
		RxChannel:       CAN1,
		Keys:            keys,
		ReceiveTimeout:  DefaultReceiveTimeout,
		ReceiveInterval: DefaultReceiveInterval,
		KeyPollInterval: DefaultKeyPollInterval,
	}
}

// Session owns a device for one open/run/close cycle.
type Session struct {
	drv Driver
	cfg SessionConfig

	mu         sync.Mutex
	state      State
	opening    bool
	configured channelSet
	started    channelSet

	stats counters
}

func NewSession(drv Driver, cfg SessionConfig) (*Session, error) {
	if drv == nil {
		return nil, ErrNilDriver
	}
	if cfg.OpenAttempts == 0 {
		cfg.OpenAttempts = 1
	}
	if cfg.OpenRetryDelay <= 0 {
		cfg.OpenRetryDelay = 200 * time.Millisecond
	}
	if cfg.OnEvent == nil {
		cfg.OnEvent = logEvent
	}
	return &Session{drv: drv, cfg: cfg}, nil
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Stats() Stats {
	return s.stats.snapshot()
}

func (s *Session) emit(t EventType, format string, args ...any) {
	s.cfg.OnEvent(Event{Type: t, Details: fmt.Sprintf(format, args...)})
}

func (s *Session) fail(err error) error {
	s.cfg.OnEvent(Event{Type: EventTypeError, Details: err.Error(), Err: err})
	return err
}

// Open opens the device. The session stays closed on failure. The lock is
// not held while retrying so State and OnEvent stay usable.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateClosed || s.opening {
		st := s.state
		s.mu.Unlock()
		return &stateError{op: "open", state: st}
	}
	s.opening = true
	s.mu.Unlock()

	err := retry.Do(
		func() error {
			err := s.drv.OpenDevice(s.cfg.Device)
			if err != nil && !IsRecoverable(err) {
				return retry.Unrecoverable(err)
			}
			return err
		},
		retry.Context(ctx),
		retry.Attempts(s.cfg.OpenAttempts),
		retry.Delay(s.cfg.OpenRetryDelay),
		retry.OnRetry(func(n uint, err error) {
			if n+1 < s.cfg.OpenAttempts {
				s.emit(EventTypeWarning, "open attempt #%d failed: %v", n+1, err)
			}
		}),
		retry.LastErrorOnly(true),
	)

	s.mu.Lock()
	s.opening = false
	if err != nil {
		s.mu.Unlock()
		return s.fail(deviceError(ErrOpenFailed, err))
	}
	s.state = StateOpened
	s.mu.Unlock()
	s.emit(EventTypeInfo, "Device opened successfully (%s)", s.cfg.Device)
	return nil
}

// ConfigureChannel applies cfg to one channel. Allowed after Open and until
// the first channel is started.
func (s *Session) ConfigureChannel(ch Channel, cfg ChannelConfig) error {
	if !ch.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidChannel, ch)
	}
	s.mu.Lock()
	if s.state != StateOpened && s.state != StateConfigured {
		st := s.state
		s.mu.Unlock()
		return &stateError{op: "configure " + ch.String(), state: st}
	}
	if err := s.drv.InitCAN(s.cfg.Device, ch, &cfg); err != nil {
		s.mu.Unlock()
		return s.fail(channelError(ErrInitFailed, ch, err))
	}
	s.configured.add(ch)
	s.state = StateConfigured
	s.mu.Unlock()
	s.emit(EventTypeDebug, "%s initialized", ch)
	return nil
}

// StartChannel puts one channel on the bus, both channels must be
// configured first.
func (s *Session) StartChannel(ch Channel) error {
	if !ch.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidChannel, ch)
	}
	s.mu.Lock()
	if (s.state != StateConfigured && s.state != StateStarted) || !s.configured.full() {
		st := s.state
		s.mu.Unlock()
		return &stateError{op: "start " + ch.String(), state: st}
	}
	if err := s.drv.StartCAN(s.cfg.Device, ch); err != nil {
		s.mu.Unlock()
		return s.fail(channelError(ErrStartFailed, ch, err))
	}
	s.started.add(ch)
	s.state = StateStarted
	s.mu.Unlock()
	s.emit(EventTypeDebug, "%s started", ch)
	return nil
}

// Setup opens the device, configures and starts both channels. The first
// failure aborts the sequence and the device is closed again if it was
// opened.
func (s *Session) Setup(ctx context.Context, cfg ChannelConfig) error {
	if err := s.Open(ctx); err != nil {
		return err
	}
	for _, ch := range Channels {
		if err := s.ConfigureChannel(ch, cfg); err != nil {
			s.Close()
			return err
		}
	}
	if rate := cfg.Rate(); rate > 0 {
		s.emit(EventTypeInfo, "%s & %s initialized successfully (%gkbps)", CAN1, CAN2, rate)
	} else {
		s.emit(EventTypeInfo, "%s & %s initialized successfully (BTR0=%02X BTR1=%02X)", CAN1, CAN2, cfg.Timing0, cfg.Timing1)
	}
	for _, ch := range Channels {
		if err := s.StartChannel(ch); err != nil {
			s.Close()
			return err
		}
	}
	s.emit(EventTypeInfo, "%s & %s started. Ready for transmission and reception", CAN1, CAN2)
	return nil
}

// Run starts the transmitter, receiver and key watcher and blocks until all
// three have returned, then closes the device. A close failure is reported
// but not returned, the device is considered closed either way.
func (s *Session) Run(ctx context.Context, rc RunConfig) error {
	if rc.Keys == nil {
		return ErrNilKeySource
	}
	if !rc.TxChannel.Valid() || !rc.RxChannel.Valid() {
		return fmt.Errorf("%w: tx %d rx %d", ErrInvalidChannel, rc.TxChannel, rc.RxChannel)
	}
	s.mu.Lock()
	if s.state != StateStarted || !s.started.full() {
		st := s.state
		s.mu.Unlock()
		return &stateError{op: "run", state: st}
	}
	s.state = StateRunning
	s.mu.Unlock()

	flag := NewCancelFlag()
	tx := &Transmitter{
		Driver:        s.drv,
		Device:        s.cfg.Device,
		Channel:       rc.TxChannel,
		Plan:          rc.Plan,
		AbortOnCancel: rc.AbortOnCancel,
		Progress:      rc.Progress,
		OnEvent:       s.cfg.OnEvent,
		stats:         &s.stats,
	}
	rx := &Receiver{
		Driver:   s.drv,
		Device:   s.cfg.Device,
		Channel:  rc.RxChannel,
		Timeout:  rc.ReceiveTimeout,
		Interval: rc.ReceiveInterval,
		OnEvent:  s.cfg.OnEvent,
		stats:    &s.stats,
	}
	w := &Watcher{
		Source:       rc.Keys,
		PollInterval: rc.KeyPollInterval,
		OnEvent:      s.cfg.OnEvent,
	}

	// activities never cancel each other, only the flag stops them
	var g errgroup.Group
	g.Go(func() error { return tx.Run(flag) })
	g.Go(func() error { return rx.Run(flag) })
	g.Go(func() error { return w.Run(ctx, flag) })
	err := g.Wait()

	s.mu.Lock()
	s.state = StateStopped
	s.mu.Unlock()
	s.emit(EventTypeDebug, "all activities finished, %s", s.stats.snapshot())

	s.Close()
	return err
}

// Close releases the device. It is a no-op on a closed session and refused
// while the activities of Run are still using the device.
func (s *Session) Close() error {
	s.mu.Lock()
	switch s.state {
	case StateClosed:
		s.mu.Unlock()
		return nil
	case StateRunning:
		s.mu.Unlock()
		return &stateError{op: "close", state: StateRunning}
	}
	err := s.drv.CloseDevice(s.cfg.Device)
	s.state = StateClosed
	s.configured, s.started = 0, 0
	s.mu.Unlock()
	if err != nil {
		return s.fail(deviceError(ErrCloseFailed, err))
	}
	s.emit(EventTypeInfo, "Device closed")
	return nil
}
