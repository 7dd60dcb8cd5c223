// -- cmd/devices.go --
package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/droidpilot/internal/device"
	"github.com/xkilldash9x/droidpilot/internal/observability"
)

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List the devices adb can see",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			// List everything, not only the configured serial.
			deviceCfg := cfg.Device()
			deviceCfg.Serial = ""
			transport := newTransport(deviceCfg, observability.GetLogger())

			infos := device.ListDevices(cmd.Context(), transport)
			out := cmd.OutOrStdout()
			if len(infos) == 0 {
				fmt.Fprintln(out, "No devices attached.")
				return nil
			}
			for _, info := range infos {
				fmt.Fprintf(out, "%s\t%s%s\n", info.Serial, info.State, formatAttributes(info.Attributes))
			}
			return nil
		},
	}
}

func formatAttributes(attrs map[string]string) string {
	if len(attrs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, "\t%s:%s", k, attrs[k])
	}
	return sb.String()
}
