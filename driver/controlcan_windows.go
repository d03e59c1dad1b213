package driver

import (
	"fmt"
	"runtime"
	"sync"
	"syscall"
	"time"
	"unsafe"

	"github.com/roffe/vcican"
)

var (
	dllFuncs = map[string]**syscall.Proc{
		"VCI_OpenDevice":  &procOpenDevice,
		"VCI_CloseDevice": &procCloseDevice,
		"VCI_InitCAN":     &procInitCAN,
		"VCI_StartCAN":    &procStartCAN,
		"VCI_ClearBuffer": &procClearBuffer,
		"VCI_Transmit":    &procTransmit,
		"VCI_Receive":     &procReceive,
	}
	loadErr  error
	loadOnce sync.Once

	procOpenDevice  *syscall.Proc
	procCloseDevice *syscall.Proc
	procInitCAN     *syscall.Proc
	procStartCAN    *syscall.Proc
	procClearBuffer *syscall.Proc
	procTransmit    *syscall.Proc
	procReceive     *syscall.Proc
)

func load(library string) error {
	loadOnce.Do(func() {
		dll, err := syscall.LoadDLL(library)
		if err != nil {
			loadErr = err
			return
		}
		for funcName, procPtr := range dllFuncs {
			proc, err := dll.FindProc(funcName)
			if err != nil {
				loadErr = fmt.Errorf("failed to find procedure %s: %w", funcName, err)
				dll.Release()
				return
			}
			*procPtr = proc
		}
	})
	return loadErr
}

var _ vcican.Driver = (*ControlCAN)(nil)

type ControlCAN struct {
	cfg *vcican.DriverConfig
}

func NewControlCAN(cfg *vcican.DriverConfig) (vcican.Driver, error) {
	library := cfg.Library
	if library == "" {
		library = DefaultLibrary
	}
	if err := load(library); err != nil {
		return nil, vcican.Unrecoverable(fmt.Errorf("load %s: %w", library, err))
	}
	return &ControlCAN{cfg: cfg}, nil
}

func (c *ControlCAN) OpenDevice(dev vcican.Device) error {
	r1, _, _ := procOpenDevice.Call(uintptr(dev.Type), uintptr(dev.Index), 0)
	return checkStatus("VCI_OpenDevice", r1)
}

func (c *ControlCAN) CloseDevice(dev vcican.Device) error {
	r1, _, _ := procCloseDevice.Call(uintptr(dev.Type), uintptr(dev.Index))
	return checkStatus("VCI_CloseDevice", r1)
}

func (c *ControlCAN) InitCAN(dev vcican.Device, ch vcican.Channel, cfg *vcican.ChannelConfig) error {
	r1, _, _ := procInitCAN.Call(uintptr(dev.Type), uintptr(dev.Index), uintptr(ch), uintptr(unsafe.Pointer(cfg)))
	runtime.KeepAlive(cfg)
	return checkStatus("VCI_InitCAN", r1)
}

// StartCAN drops whatever the device buffered before the channel goes on
// the bus.
func (c *ControlCAN) StartCAN(dev vcican.Device, ch vcican.Channel) error {
	r1, _, _ := procClearBuffer.Call(uintptr(dev.Type), uintptr(dev.Index), uintptr(ch))
	if err := checkStatus("VCI_ClearBuffer", r1); err != nil && c.cfg.Debug {
		c.cfg.OnMessage(err.Error())
	}
	r1, _, _ = procStartCAN.Call(uintptr(dev.Type), uintptr(dev.Index), uintptr(ch))
	return checkStatus("VCI_StartCAN", r1)
}

func (c *ControlCAN) Transmit(dev vcican.Device, ch vcican.Channel, frames []vcican.Frame) (int, error) {
	if len(frames) == 0 {
		return 0, nil
	}
	r1, _, _ := procTransmit.Call(uintptr(dev.Type), uintptr(dev.Index), uintptr(ch), uintptr(unsafe.Pointer(&frames[0])), uintptr(len(frames)))
	runtime.KeepAlive(frames)
	sent := int32(r1)
	if sent <= 0 {
		return 0, &StatusError{Func: "VCI_Transmit", Status: sent}
	}
	return int(sent), nil
}

func (c *ControlCAN) Receive(dev vcican.Device, ch vcican.Channel, buf []vcican.Frame, timeout time.Duration) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	waitMs := int32(timeout / time.Millisecond)
	r1, _, _ := procReceive.Call(uintptr(dev.Type), uintptr(dev.Index), uintptr(ch), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)), uintptr(waitMs))
	runtime.KeepAlive(buf)
	n := int32(r1)
	if n < 0 {
		return 0, &StatusError{Func: "VCI_Receive", Status: n}
	}
	return min(int(n), len(buf)), nil
}
