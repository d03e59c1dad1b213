package vcican

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
)

// SendType selects how the driver puts a frame on the wire.
type SendType uint8

const (
	SendNormal       SendType = iota // retransmit until acknowledged
	SendSingle                       // single shot, no retransmission
	SendSelfRx                       // self reception
	SendSingleSelfRx                 // single shot self reception
)

const MaxDataLen = 8

// Frame mirrors the driver's VCI_CAN_OBJ layout byte for byte, it is passed
// to the hardware access layer by pointer.
type Frame struct {
	ID         uint32
	TimeStamp  uint32
	TimeFlag   uint8
	SendType   SendType
	RemoteFlag uint8
	ExternFlag uint8
	DataLen    uint8
	Data       [MaxDataLen]byte
	Reserved   [3]byte
}

// NewFrame creates a standard frame and copies the data slice
func NewFrame(identifier uint32, data []byte) Frame {
	var f Frame
	f.ID = identifier
	f.DataLen = uint8(copy(f.Data[:], data))
	return f
}

// NewExtendedFrame creates a 29 bit identifier frame and copies the data slice
func NewExtendedFrame(identifier uint32, data []byte) Frame {
	f := NewFrame(identifier, data)
	f.ExternFlag = 1
	return f
}

// MustFrame is NewFrame that panics if data does not fit in a classic frame.
func MustFrame(identifier uint32, data []byte) Frame {
	if len(data) > MaxDataLen {
		panic(fmt.Sprintf("vcican: %d data bytes do not fit in a frame", len(data)))
	}
	return NewFrame(identifier, data)
}

func (f *Frame) Validate() error {
	if f.DataLen > MaxDataLen {
		return fmt.Errorf("%w: %d", ErrDataLength, f.DataLen)
	}
	return nil
}

// Payload returns the meaningful part of Data.
func (f *Frame) Payload() []byte {
	return f.Data[:min(int(f.DataLen), MaxDataLen)]
}

func (f *Frame) Extended() bool {
	return f.ExternFlag != 0
}

func (f *Frame) Remote() bool {
	return f.RemoteFlag != 0
}

var (
	blue  = color.New(color.FgHiBlue).SprintfFunc()
	red   = color.New(color.FgRed).SprintfFunc()
	green = color.New(color.FgGreen).SprintfFunc()
)

func (f *Frame) idString() string {
	if f.Extended() {
		return fmt.Sprintf("0x%08X", f.ID)
	}
	return fmt.Sprintf("0x%03X", f.ID)
}

func hexView(data []byte) string {
	var out strings.Builder
	for i, b := range data {
		out.WriteString(fmt.Sprintf("%02X", b))
		if i != len(data)-1 {
			out.WriteString(" ")
		}
	}
	return out.String()
}

func binView(data []byte) string {
	var out strings.Builder
	for i, b := range data {
		out.WriteString(fmt.Sprintf("%08b", b))
		if i != len(data)-1 {
			out.WriteString(" ")
		}
	}
	return out.String()
}

func (f *Frame) String() string {
	data := f.Payload()
	var out strings.Builder
	out.WriteString(f.idString() + " || ")
	out.WriteString(strconv.Itoa(len(data)) + " || ")
	if f.Remote() {
		out.WriteString("RTR")
		return out.String()
	}
	out.WriteString(fmt.Sprintf("%-23s", hexView(data)))
	out.WriteString(" || ")
	out.WriteString(binView(data))
	return out.String()
}

func (f *Frame) ColorString() string {
	data := f.Payload()
	var out strings.Builder
	out.WriteString(green(f.idString()) + " || ")
	out.WriteString(strconv.Itoa(len(data)) + " || ")
	if f.Remote() {
		out.WriteString(blue("RTR"))
		return out.String()
	}
	out.WriteString(fmt.Sprintf("%-23s", hexView(data)))
	out.WriteString(" || ")
	out.WriteString(red(binView(data)))
	return out.String()
}
