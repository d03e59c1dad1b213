// Package config holds the settings of a vcican run. The defaults are the
// constants of the reference setup, a YAML file may override any of them.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/roffe/vcican"
	"sigs.k8s.io/yaml"
)

type Config struct {
	Driver       string   `json:"driver"`
	Library      string   `json:"library,omitempty"`
	Ports        []string `json:"ports,omitempty"`
	PortBaudrate int      `json:"portBaudrate,omitempty"`
	Debug        bool     `json:"debug,omitempty"`

	DeviceType   uint32 `json:"deviceType"`
	DeviceIndex  uint32 `json:"deviceIndex"`
	OpenAttempts uint   `json:"openAttempts"`

	// Bitrate in kbit/s, takes precedence over Timing0/Timing1 when set.
	Bitrate float64 `json:"bitrate,omitempty"`
	Timing0 uint8   `json:"timing0"`
	Timing1 uint8   `json:"timing1"`
	AccCode uint32  `json:"accCode"`
	AccMask uint32  `json:"accMask"`
	Filter  uint8   `json:"filter"`
	Mode    uint8   `json:"mode"`

	TxChannel     uint32 `json:"txChannel"`
	RxChannel     uint32 `json:"rxChannel"`
	TxID          uint32 `json:"txId"`
	TxExtended    bool   `json:"txExtended,omitempty"`
	AbortOnCancel bool   `json:"abortOnCancel,omitempty"`

	TxIntervalMs int `json:"txIntervalMs"`
	RxTimeoutMs  int `json:"rxTimeoutMs"`
	RxIntervalMs int `json:"rxIntervalMs"`
	KeyPollMs    int `json:"keyPollMs"`
}

func Default() *Config {
	dev := vcican.DefaultDevice()
	ch := vcican.DefaultChannelConfig()
	plan := vcican.DefaultPlan()
	return &Config{
		Driver:       "ControlCAN",
		DeviceType:   uint32(dev.Type),
		DeviceIndex:  dev.Index,
		OpenAttempts: 1,
		Timing0:      ch.Timing0,
		Timing1:      ch.Timing1,
		AccCode:      ch.AccCode,
		AccMask:      ch.AccMask,
		Filter:       ch.Filter,
		Mode:         ch.Mode,
		TxChannel:    uint32(vcican.CAN1),
		RxChannel:    uint32(vcican.CAN1),
		TxID:         plan.ID,
		TxIntervalMs: int(plan.Interval / time.Millisecond),
		RxTimeoutMs:  int(vcican.DefaultReceiveTimeout / time.Millisecond),
		RxIntervalMs: int(vcican.DefaultReceiveInterval / time.Millisecond),
		KeyPollMs:    int(vcican.DefaultKeyPollInterval / time.Millisecond),
	}
}

// Load reads a YAML file on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

func (c *Config) Validate() error {
	for _, ch := range []uint32{c.TxChannel, c.RxChannel} {
		if !vcican.Channel(ch).Valid() {
			return fmt.Errorf("%w: %d", vcican.ErrInvalidChannel, ch)
		}
	}
	if c.Bitrate != 0 {
		if _, _, err := vcican.TimingForRate(c.Bitrate); err != nil {
			return err
		}
	}
	if c.Mode > vcican.ModeSelfTest {
		return fmt.Errorf("unknown mode %d", c.Mode)
	}
	return nil
}

func (c *Config) Device() vcican.Device {
	return vcican.Device{Type: vcican.DeviceType(c.DeviceType), Index: c.DeviceIndex}
}

func (c *Config) ChannelConfig() (vcican.ChannelConfig, error) {
	cfg := vcican.ChannelConfig{
		AccCode: c.AccCode,
		AccMask: c.AccMask,
		Filter:  c.Filter,
		Timing0: c.Timing0,
		Timing1: c.Timing1,
		Mode:    c.Mode,
	}
	if c.Bitrate != 0 {
		t0, t1, err := vcican.TimingForRate(c.Bitrate)
		if err != nil {
			return cfg, err
		}
		cfg.Timing0, cfg.Timing1 = t0, t1
	}
	return cfg, nil
}

func (c *Config) DriverConfig(onMessage func(string)) *vcican.DriverConfig {
	return &vcican.DriverConfig{
		Debug:        c.Debug,
		Library:      c.Library,
		Ports:        c.Ports,
		PortBaudrate: c.PortBaudrate,
		OnMessage:    onMessage,
	}
}

func (c *Config) SessionConfig(onEvent func(vcican.Event)) vcican.SessionConfig {
	return vcican.SessionConfig{
		Device:       c.Device(),
		OpenAttempts: c.OpenAttempts,
		OnEvent:      onEvent,
	}
}

func (c *Config) RunConfig(keys vcican.KeySource) vcican.RunConfig {
	rc := vcican.DefaultRunConfig(keys)
	rc.Plan.ID = c.TxID
	rc.Plan.Extended = c.TxExtended
	rc.Plan.Interval = ms(c.TxIntervalMs)
	rc.TxChannel = vcican.Channel(c.TxChannel)
	rc.RxChannel = vcican.Channel(c.RxChannel)
	rc.AbortOnCancel = c.AbortOnCancel
	rc.ReceiveTimeout = ms(c.RxTimeoutMs)
	rc.ReceiveInterval = ms(c.RxIntervalMs)
	rc.KeyPollInterval = ms(c.KeyPollMs)
	return rc
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}
