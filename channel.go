package vcican

import (
	"fmt"
)

// Channel is a logical CAN port on the device.
type Channel uint32

const (
	CAN1 Channel = 0
	CAN2 Channel = 1
)

// Channels lists the channels of the dual channel device in setup order.
var Channels = [...]Channel{CAN1, CAN2}

func (c Channel) String() string {
	return "CAN" + fmt.Sprint(uint32(c)+1)
}

func (c Channel) Valid() bool {
	return c == CAN1 || c == CAN2
}

// channelSet is a bitmask of channels.
type channelSet uint8

func (s channelSet) has(c Channel) bool {
	return s&(1<<c) != 0
}

func (s *channelSet) add(c Channel) {
	*s |= 1 << c
}

func (s channelSet) full() bool {
	return s.has(CAN1) && s.has(CAN2)
}

// Filter modes
const (
	FilterDual   uint8 = 0
	FilterSingle uint8 = 1
)

// Operating modes
const (
	ModeNormal     uint8 = 0
	ModeListenOnly uint8 = 1
	ModeSelfTest   uint8 = 2
)

// ChannelConfig mirrors the driver's VCI_INIT_CONFIG layout. The same value is
// applied to both channels before either is started.
type ChannelConfig struct {
	AccCode  uint32
	AccMask  uint32
	Reserved uint32
	Filter   uint8
	Timing0  uint8
	Timing1  uint8
	Mode     uint8
}

// DefaultChannelConfig accepts every identifier at 250 kbit/s.
func DefaultChannelConfig() ChannelConfig {
	return ChannelConfig{
		AccCode: 0,
		AccMask: 0xFFFFFFFF,
		Filter:  FilterSingle,
		Timing0: 0x01,
		Timing1: 0x1C,
		Mode:    ModeNormal,
	}
}

// Rate returns the nominal bitrate in kbit/s, 0 if the timing is not a
// standard one.
func (c *ChannelConfig) Rate() float64 {
	return RateForTiming(c.Timing0, c.Timing1)
}

// Accepts evaluates the SJA1000 single filter. The code is left aligned in
// the 32 bit register and a mask bit of 1 means don't care.
func (c *ChannelConfig) Accepts(identifier uint32, extended bool) bool {
	var id uint32
	if extended {
		id = identifier << 3
	} else {
		id = identifier << 21
	}
	return (c.AccCode^id)&^c.AccMask == 0
}

type btr struct {
	kbit             float64
	timing0, timing1 uint8
}

// SJA1000 at 16 MHz
var btrTable = []btr{
	{1000, 0x00, 0x14},
	{800, 0x00, 0x16},
	{666, 0x80, 0xB6},
	{500, 0x00, 0x1C},
	{400, 0x80, 0xFA},
	{250, 0x01, 0x1C},
	{200, 0x81, 0xFA},
	{125, 0x03, 0x1C},
	{100, 0x04, 0x1C},
	{80, 0x83, 0xFF},
	{50, 0x09, 0x1C},
	{40, 0x87, 0xFF},
	{20, 0x18, 0x1C},
	{10, 0x31, 0x1C},
	{5, 0xBF, 0xFF},
}

// TimingForRate returns the BTR0/BTR1 pair for a bitrate in kbit/s.
func TimingForRate(kbit float64) (uint8, uint8, error) {
	for _, b := range btrTable {
		if b.kbit == kbit {
			return b.timing0, b.timing1, nil
		}
	}
	return 0, 0, fmt.Errorf("unknown rate: %g", kbit)
}

func RateForTiming(timing0, timing1 uint8) float64 {
	for _, b := range btrTable {
		if b.timing0 == timing0 && b.timing1 == timing1 {
			return b.kbit
		}
	}
	return 0
}
