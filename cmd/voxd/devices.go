package main

import (
	"fmt"

	"github.com/harunnryd/voxd/internal/ipc"

	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio input devices",
	Long: `List the capture devices ffmpeg reports for recording.input_format.
Put one of the names in recording.input_device to record from it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := outputFormatter(cmd)
		if err != nil {
			return err
		}

		resp, err := send(cmd.Context(), ipc.NewCommand(ipc.CmdListDevices))
		if err != nil {
			return err
		}
		var list ipc.DeviceListPayload
		if err := resp.DecodePayload(&list); err != nil {
			return fmt.Errorf("decode device list: %w", err)
		}

		out, err := f.FormatDevices(list)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	},
}

func init() {
	devicesCmd.Flags().StringP("output", "o", "table", "Output format (table, json, yaml)")
	rootCmd.AddCommand(devicesCmd)
}
