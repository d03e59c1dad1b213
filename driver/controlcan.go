package driver

import (
	"errors"
	"fmt"

	"github.com/roffe/vcican"
)

const (
	DefaultLibrary = "ControlCAN.dll"
	// the VCI functions return 1 on success
	statusOK = 1
)

var ErrUnsupportedPlatform = errors.New("the ControlCAN driver is only available on windows")

func init() {
	if err := vcican.RegisterDriver(&vcican.DriverInfo{
		Name:        "ControlCAN",
		Description: "VCI ControlCAN.dll driver for USBCAN devices",
		Hardware:    true,
		New:         NewControlCAN,
	}); err != nil {
		panic(err)
	}
}

// StatusError is a VCI function returning something other than success.
type StatusError struct {
	Func   string
	Status int32
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.Func, e.Status)
}

func checkStatus(fn string, r1 uintptr) error {
	if status := int32(r1); status != statusOK {
		return &StatusError{Func: fn, Status: status}
	}
	return nil
}
