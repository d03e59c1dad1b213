package driver

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/roffe/vcican"
	"go.bug.st/serial"
)

const (
	slcanQueueSize       = 256
	defaultSLCANBaudrate = 115200
)

func init() {
	if err := vcican.RegisterDriver(&vcican.DriverInfo{
		Name:        "SLCAN",
		Description: "Two Lawicel/SLCAN adapters, one serial port per channel",
		Hardware:    true,
		New:         NewSLCAN,
	}); err != nil {
		panic(err)
	}
}

var _ vcican.Driver = (*SLCAN)(nil)

// SLCAN maps each logical channel onto its own serial line adapter.
type SLCAN struct {
	cfg   *vcican.DriverConfig
	mu    sync.Mutex
	open  bool
	ports [len(vcican.Channels)]*slcanPort
}

type slcanPort struct {
	name    string
	port    serial.Port
	mode    uint8
	started bool
	frames  chan vcican.Frame
	close   chan struct{}
	done    chan struct{}
	cfg     *vcican.DriverConfig
}

func NewSLCAN(cfg *vcican.DriverConfig) (vcican.Driver, error) {
	if len(cfg.Ports) != len(vcican.Channels) {
		return nil, vcican.Unrecoverable(fmt.Errorf("slcan needs %d serial ports, one per channel, got %d", len(vcican.Channels), len(cfg.Ports)))
	}
	return &SLCAN{cfg: cfg}, nil
}

func (sl *SLCAN) OpenDevice(dev vcican.Device) error {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.open {
		return ErrAlreadyOpen
	}
	baudrate := sl.cfg.PortBaudrate
	if baudrate == 0 {
		baudrate = defaultSLCANBaudrate
	}
	mode := &serial.Mode{
		BaudRate: baudrate,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	}
	for i, name := range sl.cfg.Ports {
		p, err := serial.Open(name, mode)
		if err != nil {
			sl.closePorts()
			return fmt.Errorf("failed to open com port %q : %v", name, err)
		}
		p.SetReadTimeout(10 * time.Millisecond)
		p.ResetOutputBuffer()
		p.ResetInputBuffer()
		sp := &slcanPort{
			name:   name,
			port:   p,
			frames: make(chan vcican.Frame, slcanQueueSize),
			close:  make(chan struct{}),
			done:   make(chan struct{}),
			cfg:    sl.cfg,
		}
		// make sure the adapter is not left on bus by a previous session
		sp.command("C")
		sl.ports[i] = sp
	}
	sl.open = true
	return nil
}

func (sl *SLCAN) CloseDevice(dev vcican.Device) error {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if !sl.open {
		return ErrNotOpen
	}
	sl.open = false
	return sl.closePorts()
}

func (sl *SLCAN) closePorts() error {
	var errs []error
	for i, p := range sl.ports {
		if p == nil {
			continue
		}
		if err := p.shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.name, err))
		}
		sl.ports[i] = nil
	}
	return errors.Join(errs...)
}

func (sl *SLCAN) port(ch vcican.Channel) (*slcanPort, error) {
	if !ch.Valid() {
		return nil, vcican.ErrInvalidChannel
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if !sl.open {
		return nil, ErrNotOpen
	}
	return sl.ports[ch], nil
}

func (sl *SLCAN) InitCAN(dev vcican.Device, ch vcican.Channel, cfg *vcican.ChannelConfig) error {
	p, err := sl.port(ch)
	if err != nil {
		return err
	}
	if cfg.Mode == vcican.ModeSelfTest {
		return fmt.Errorf("slcan: mode %d not supported", cfg.Mode)
	}
	p.mode = cfg.Mode
	for _, cmd := range []string{
		"C",
		fmt.Sprintf("s%02X%02X", cfg.Timing0, cfg.Timing1),
		fmt.Sprintf("M%08X", cfg.AccCode),
		fmt.Sprintf("m%08X", cfg.AccMask),
	} {
		if err := p.command(cmd); err != nil {
			return err
		}
	}
	return nil
}

func (sl *SLCAN) StartCAN(dev vcican.Device, ch vcican.Channel) error {
	p, err := sl.port(ch)
	if err != nil {
		return err
	}
	if p.started {
		return nil
	}
	open := "O"
	if p.mode == vcican.ModeListenOnly {
		open = "L"
	}
	if err := p.command(open); err != nil {
		return err
	}
	p.started = true
	go p.recvManager()
	return nil
}

func (sl *SLCAN) Transmit(dev vcican.Device, ch vcican.Channel, frames []vcican.Frame) (int, error) {
	p, err := sl.port(ch)
	if err != nil {
		return 0, err
	}
	if !p.started {
		return 0, ErrNotStarted
	}
	if p.mode == vcican.ModeListenOnly {
		return 0, ErrListenOnly
	}
	for i := range frames {
		b, err := encodeFrame(&frames[i])
		if err != nil {
			return i, err
		}
		if _, err := p.port.Write(b); err != nil {
			return i, fmt.Errorf("failed to write to com port: %w", err)
		}
		if sl.cfg.Debug {
			sl.cfg.OnMessage(">> " + string(b[:len(b)-1]))
		}
	}
	return len(frames), nil
}

func (sl *SLCAN) Receive(dev vcican.Device, ch vcican.Channel, buf []vcican.Frame, timeout time.Duration) (int, error) {
	p, err := sl.port(ch)
	if err != nil {
		return 0, err
	}
	if !p.started {
		return 0, ErrNotStarted
	}
	if len(buf) == 0 {
		return 0, nil
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case f := <-p.frames:
		buf[0] = f
	case <-p.done:
		return 0, errors.New("com port reader stopped")
	case <-t.C:
		return 0, nil
	}
	n := 1
	for n < len(buf) {
		select {
		case f := <-p.frames:
			buf[n] = f
			n++
		default:
			return n, nil
		}
	}
	return n, nil
}

func (p *slcanPort) command(cmd string) error {
	if _, err := p.port.Write([]byte(cmd + "\r")); err != nil {
		return fmt.Errorf("failed to write %q to com port: %w", cmd, err)
	}
	if p.cfg.Debug {
		p.cfg.OnMessage(">> " + cmd)
	}
	// the adapter needs a moment between configuration commands
	time.Sleep(10 * time.Millisecond)
	return nil
}

func (p *slcanPort) shutdown() error {
	if p.started {
		p.command("C")
		close(p.close)
		<-p.done
	}
	return p.port.Close()
}

func (p *slcanPort) recvManager() {
	defer close(p.done)
	buff := bytes.NewBuffer(nil)
	readBuffer := make([]byte, 64)
	for {
		select {
		case <-p.close:
			return
		default:
		}
		n, err := p.port.Read(readBuffer)
		if err != nil {
			select {
			case <-p.close:
			default:
				p.cfg.OnMessage(fmt.Sprintf("failed to read com port %s: %v", p.name, err))
			}
			return
		}
		if n == 0 {
			continue
		}
		p.parse(buff, readBuffer[:n])
	}
}

func (p *slcanPort) parse(buff *bytes.Buffer, data []byte) {
	for _, b := range data {
		switch b {
		case '\r':
			if buff.Len() > 0 {
				p.handleLine(buff.Bytes())
			}
			buff.Reset()
		case 0x07: // bell, last command was not accepted
			p.cfg.OnMessage(p.name + ": command rejected")
			buff.Reset()
		default:
			buff.WriteByte(b)
		}
	}
}

func (p *slcanPort) handleLine(line []byte) {
	switch line[0] {
	case 't', 'T', 'r', 'R':
		if p.cfg.Debug {
			p.cfg.OnMessage("<< " + string(line))
		}
		f, err := decodeFrame(line)
		if err != nil {
			p.cfg.OnMessage(fmt.Sprintf("failed to decode frame %q: %v", line, err))
			return
		}
		select {
		case p.frames <- f:
		default:
			p.cfg.OnMessage(p.name + ": receive queue full, frame dropped")
		}
	case 'F':
		if err := decodeStatus(line); err != nil {
			p.cfg.OnMessage(fmt.Sprintf("%s CAN status error: %v", p.name, err))
		}
	case 'z', 'Z':
		// transmit acknowledge
	default:
		if p.cfg.Debug {
			p.cfg.OnMessage("Unknown>> " + string(line))
		}
	}
}

// encodeFrame renders f as an SLCAN transmit command including the
// trailing carriage return.
func encodeFrame(f *vcican.Frame) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	var out bytes.Buffer
	kind := byte('t')
	if f.Remote() {
		kind = 'r'
	}
	if f.Extended() {
		kind -= 'a' - 'A'
		if f.ID > 0x1FFFFFFF {
			return nil, fmt.Errorf("extended identifier 0x%X out of range", f.ID)
		}
		fmt.Fprintf(&out, "%c%08X%d", kind, f.ID, f.DataLen)
	} else {
		if f.ID > 0x7FF {
			return nil, fmt.Errorf("standard identifier 0x%X out of range", f.ID)
		}
		fmt.Fprintf(&out, "%c%03X%d", kind, f.ID, f.DataLen)
	}
	if !f.Remote() {
		out.WriteString(strings.ToUpper(hex.EncodeToString(f.Payload())))
	}
	out.WriteByte('\r')
	return out.Bytes(), nil
}

// decodeFrame parses a t/T/r/R line without the carriage return. Four
// trailing hex digits are taken as the adapter timestamp.
func decodeFrame(line []byte) (vcican.Frame, error) {
	var f vcican.Frame
	if len(line) == 0 {
		return f, errors.New("empty line")
	}
	idLen := 3
	switch line[0] {
	case 't':
	case 'T':
		idLen = 8
		f.ExternFlag = 1
	case 'r':
		f.RemoteFlag = 1
	case 'R':
		idLen = 8
		f.ExternFlag = 1
		f.RemoteFlag = 1
	default:
		return f, fmt.Errorf("unknown frame type %q", line[0])
	}
	if len(line) < 1+idLen+1 {
		return f, errors.New("line too short")
	}
	id, err := strconv.ParseUint(string(line[1:1+idLen]), 16, 32)
	if err != nil {
		return f, fmt.Errorf("failed to decode identifier: %v", err)
	}
	f.ID = uint32(id)
	dlc := int(line[1+idLen] - '0')
	if dlc < 0 || dlc > vcican.MaxDataLen {
		return f, fmt.Errorf("%w: %q", vcican.ErrDataLength, line[1+idLen])
	}
	f.DataLen = uint8(dlc)
	rest := line[2+idLen:]
	if f.RemoteFlag == 0 {
		if len(rest) < dlc*2 {
			return f, errors.New("line too short for data length")
		}
		if _, err := hex.Decode(f.Data[:dlc], rest[:dlc*2]); err != nil {
			return f, fmt.Errorf("failed to decode frame body: %v", err)
		}
		rest = rest[dlc*2:]
	}
	if len(rest) == 4 {
		ts, err := strconv.ParseUint(string(rest), 16, 16)
		if err != nil {
			return f, fmt.Errorf("failed to decode timestamp: %v", err)
		}
		f.TimeStamp = uint32(ts)
		f.TimeFlag = 1
	}
	return f, nil
}

/*
Bit 0 CAN receive FIFO queue full
Bit 1 CAN transmit FIFO queue full
Bit 2 Error warning (EI), see SJA1000 datasheet
Bit 3 Data Overrun (DOI), see SJA1000 datasheet
Bit 4 Not used.
Bit 5 Error Passive (EPI), see SJA1000 datasheet
Bit 6 Arbitration Lost (ALI), see SJA1000 datasheet *
Bit 7 Bus Error (BEI), see SJA1000 datasheet **
*/
var statusBits = [...]string{
	"CAN receive FIFO queue full",
	"CAN transmit FIFO queue full",
	"error warning (EI)",
	"data overrun (DOI)",
	"",
	"error passive (EPI)",
	"arbitration lost (ALI)",
	"bus error (BEI)",
}

// decodeStatus parses an Fxx status flags reply.
func decodeStatus(line []byte) error {
	if len(line) != 3 {
		return fmt.Errorf("malformed status reply %q", line)
	}
	v, err := strconv.ParseUint(string(line[1:]), 16, 8)
	if err != nil {
		return fmt.Errorf("malformed status reply %q", line)
	}
	var errs []error
	for bit, desc := range statusBits {
		if desc != "" && v&(1<<bit) != 0 {
			errs = append(errs, errors.New(desc))
		}
	}
	return errors.Join(errs...)
}
