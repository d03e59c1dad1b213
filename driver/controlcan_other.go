//go:build !windows

package driver

import "github.com/roffe/vcican"

func NewControlCAN(cfg *vcican.DriverConfig) (vcican.Driver, error) {
	return nil, ErrUnsupportedPlatform
}
