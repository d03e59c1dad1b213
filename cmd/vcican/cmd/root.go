package cmd

import (
	"context"
	"log"

	"github.com/roffe/vcican/pkg/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "vcican",
	Short:        "Dual channel CAN transceiver for ControlCAN compatible interfaces",
	Long:         `Opens a dual channel CAN device, sends a test pattern on one channel while printing what arrives on the other until Ctrl + X is pressed.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// Failures are printed, the exit status stays 0.
func Execute(ctx context.Context) {
	rootCmd.ExecuteContext(ctx)
}

const (
	flagConfig       = "config"
	flagDriver       = "driver"
	flagLibrary      = "library"
	flagPort         = "port"
	flagBaudrate     = "baudrate"
	flagDebug        = "debug"
	flagDeviceType   = "device-type"
	flagDeviceIndex  = "device-index"
	flagBitrate      = "bitrate"
	flagOpenAttempts = "open-attempts"
)

func init() {
	log.SetFlags(log.Lshortfile | log.LstdFlags)

	pf := rootCmd.PersistentFlags()
	pf.StringP(flagConfig, "c", "", "YAML config file, flags override its values")
	pf.StringP(flagDriver, "a", "ControlCAN", "what driver to use, see drivers")
	pf.String(flagLibrary, "", "path to the driver library (default ControlCAN.dll)")
	pf.StringSliceP(flagPort, "p", nil, "com-ports for serial drivers, one per channel")
	pf.IntP(flagBaudrate, "b", 115200, "com-port baudrate")
	pf.BoolP(flagDebug, "d", false, "debug mode")
	pf.Uint32(flagDeviceType, 4, "device type")
	pf.Uint32(flagDeviceIndex, 0, "device index")
	pf.Float64(flagBitrate, 0, "CAN bitrate in kbit/s, overrides the timing registers")
	pf.Uint(flagOpenAttempts, 1, "how many times to try opening the device")
}

// loadConfig reads the config file, if any, and applies the flags the user
// set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()
	cfg := config.Default()
	if path, _ := flags.GetString(flagConfig); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if flags.Changed(flagDriver) {
		cfg.Driver, _ = flags.GetString(flagDriver)
	}
	if flags.Changed(flagLibrary) {
		cfg.Library, _ = flags.GetString(flagLibrary)
	}
	if flags.Changed(flagPort) {
		cfg.Ports, _ = flags.GetStringSlice(flagPort)
	}
	if flags.Changed(flagBaudrate) {
		cfg.PortBaudrate, _ = flags.GetInt(flagBaudrate)
	}
	if flags.Changed(flagDebug) {
		cfg.Debug, _ = flags.GetBool(flagDebug)
	}
	if flags.Changed(flagDeviceType) {
		cfg.DeviceType, _ = flags.GetUint32(flagDeviceType)
	}
	if flags.Changed(flagDeviceIndex) {
		cfg.DeviceIndex, _ = flags.GetUint32(flagDeviceIndex)
	}
	if flags.Changed(flagBitrate) {
		cfg.Bitrate, _ = flags.GetFloat64(flagBitrate)
	}
	if flags.Changed(flagOpenAttempts) {
		cfg.OpenAttempts, _ = flags.GetUint(flagOpenAttempts)
	}
	return cfg, cfg.Validate()
}
