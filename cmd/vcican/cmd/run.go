package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/k0kubun/go-ansi"
	"github.com/roffe/vcican"
	"github.com/roffe/vcican/pkg/bar"
	"github.com/roffe/vcican/pkg/keyboard"
	"github.com/spf13/cobra"
)

const (
	flagTxChannel     = "tx-channel"
	flagRxChannel     = "rx-channel"
	flagAbortOnCancel = "abort-on-cancel"
	flagProgress      = "progress"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Send the test pattern and print received frames until Ctrl + X",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		if flags.Changed(flagTxChannel) {
			cfg.TxChannel, _ = flags.GetUint32(flagTxChannel)
		}
		if flags.Changed(flagRxChannel) {
			cfg.RxChannel, _ = flags.GetUint32(flagRxChannel)
		}
		if flags.Changed(flagAbortOnCancel) {
			cfg.AbortOnCancel, _ = flags.GetBool(flagAbortOnCancel)
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		progress, _ := flags.GetBool(flagProgress)

		log.SetOutput(ansi.NewAnsiStderr())
		out := &printer{debug: cfg.Debug, quietTx: progress}

		drv, err := vcican.NewDriver(cfg.Driver, cfg.DriverConfig(out.message))
		if err != nil {
			return err
		}
		chCfg, err := cfg.ChannelConfig()
		if err != nil {
			return err
		}
		sess, err := vcican.NewSession(drv, cfg.SessionConfig(out.event))
		if err != nil {
			return err
		}
		if err := sess.Setup(ctx, chCfg); err != nil {
			// already printed by the event printer
			return nil
		}

		keys, err := keyboard.Open(os.Stdin)
		if err != nil {
			sess.Close()
			return fmt.Errorf("keyboard: %w", err)
		}
		defer keys.Close()
		if keys.Raw() {
			log.SetOutput(keyboard.NewlineWriter(ansi.NewAnsiStderr()))
		}

		rc := cfg.RunConfig(keys)
		if progress {
			b := bar.New(len(rc.Plan.Payloads), rc.TxChannel.String()+" tx")
			defer b.Finish()
			rc.Progress = b
		}
		err = sess.Run(ctx, rc)
		log.Println(sess.Stats())
		return err
	},
}

func init() {
	f := runCmd.Flags()
	f.Uint32(flagTxChannel, 0, "channel to transmit on, 0 = CAN1, 1 = CAN2")
	f.Uint32(flagRxChannel, 0, "channel to receive on, 0 = CAN1, 1 = CAN2")
	f.Bool(flagAbortOnCancel, false, "stop transmitting when Ctrl + X is pressed")
	f.Bool(flagProgress, false, "show a progress bar instead of a line per sent frame")
	rootCmd.AddCommand(runCmd)
}
