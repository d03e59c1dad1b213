package vcican

import (
	"fmt"
	"log"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// DeviceType is the hardware access layer's device type code.
type DeviceType uint32

const (
	DeviceUSBCAN1 DeviceType = 3
	DeviceUSBCAN2 DeviceType = 4
)

// Device identifies one physical interface.
type Device struct {
	Type  DeviceType
	Index uint32
}

func DefaultDevice() Device {
	return Device{Type: DeviceUSBCAN2, Index: 0}
}

func (d Device) String() string {
	return fmt.Sprintf("device %d#%d", d.Type, d.Index)
}

// Driver is the hardware access layer. Implementations translate the
// layer's integer status codes into errors, frames and configs cross the
// boundary in their fixed layout.
type Driver interface {
	OpenDevice(dev Device) error
	CloseDevice(dev Device) error
	InitCAN(dev Device, ch Channel, cfg *ChannelConfig) error
	StartCAN(dev Device, ch Channel) error
	// Transmit returns the number of frames the driver accepted.
	Transmit(dev Device, ch Channel, frames []Frame) (int, error)
	// Receive fills buf with at most len(buf) frames, waiting up to timeout
	// for the first one. Zero frames is not an error.
	Receive(dev Device, ch Channel, buf []Frame, timeout time.Duration) (int, error)
}

type DriverConfig struct {
	Debug        bool
	Library      string   // shared library path for DLL backed drivers
	Ports        []string // one serial port per channel for serial backed drivers
	PortBaudrate int
	OnMessage    func(string)
}

type DriverInfo struct {
	Name        string
	Description string
	Hardware    bool
	New         func(*DriverConfig) (Driver, error)
}

func (d *DriverInfo) String() string {
	return fmt.Sprintf("%s | %s, hardware: %v", d.Name, d.Description, d.Hardware)
}

var (
	driverMu  sync.Mutex
	driverMap = make(map[string]*DriverInfo)
)

func NewDriver(name string, cfg *DriverConfig) (Driver, error) {
	if cfg == nil {
		cfg = &DriverConfig{}
	}
	if cfg.OnMessage == nil {
		cfg.OnMessage = func(msg string) {
			_, file, no, ok := runtime.Caller(1)
			if ok {
				log.Printf("%s#%d %v", filepath.Base(file), no, msg)
			} else {
				log.Println(msg)
			}
		}
	}
	driverMu.Lock()
	info, found := driverMap[strings.ToLower(name)]
	driverMu.Unlock()
	if !found {
		return nil, fmt.Errorf("unknown driver %q", name)
	}
	return info.New(cfg)
}

func RegisterDriver(info *DriverInfo) error {
	driverMu.Lock()
	defer driverMu.Unlock()
	key := strings.ToLower(info.Name)
	if _, found := driverMap[key]; found {
		return fmt.Errorf("driver %s already registered", info.Name)
	}
	driverMap[key] = info
	return nil
}

func ListDriverNames() []string {
	driverMu.Lock()
	defer driverMu.Unlock()
	var out []string
	for _, info := range driverMap {
		out = append(out, info.Name)
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i]) < strings.ToLower(out[j]) })
	return out
}

func ListDrivers() []DriverInfo {
	driverMu.Lock()
	defer driverMu.Unlock()
	var out []DriverInfo
	for _, info := range driverMap {
		out = append(out, *info)
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name) })
	return out
}
