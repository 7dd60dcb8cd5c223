// -- cmd/dump.go --
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/droidpilot/internal/observability"
	"github.com/xkilldash9x/droidpilot/internal/screen"
)

func newDumpCmd() *cobra.Command {
	dumpCmd := &cobra.Command{
		Use:   "dump",
		Short: "Capture the current screen once and print what the model would see",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("serial") {
				serial, _ := cmd.Flags().GetString("serial")
				cfg.SetDeviceSerial(serial)
			}
			logger := observability.GetLogger()

			transport := newTransport(cfg.Device(), logger)
			observer, err := screen.NewObserver(transport, cfg.Device(), cfg.Agent().MaxElements, logger)
			if err != nil {
				return err
			}

			desc := observer.Capture(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), desc.String())
			if desc.Failed() {
				return fmt.Errorf("screen capture failed: %w", desc.Err)
			}
			return nil
		},
	}
	dumpCmd.Flags().StringP("serial", "s", "", "adb serial of the target device")
	return dumpCmd
}
