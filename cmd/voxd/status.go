package main

import (
	"fmt"
	"sort"

	"github.com/harunnryd/voxd/internal/formatter"
	"github.com/harunnryd/voxd/internal/ipc"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the recording state and stack mode",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := outputFormatter(cmd)
		if err != nil {
			return err
		}

		resp, err := send(cmd.Context(), ipc.NewCommand(ipc.CmdStatus))
		if err != nil {
			return err
		}
		var status ipc.StatusPayload
		if err := resp.DecodePayload(&status); err != nil {
			return fmt.Errorf("decode status: %w", err)
		}

		out, err := f.FormatStatus(status)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check daemon component health",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := send(cmd.Context(), ipc.NewCommand(ipc.CmdHealth))
		if err != nil {
			return err
		}
		var health ipc.HealthPayload
		if err := resp.DecodePayload(&health); err != nil {
			return fmt.Errorf("decode health: %w", err)
		}

		fmt.Printf("Status: %s (up %ds)\n", health.Status, health.UptimeMS/1000)
		names := make([]string, 0, len(health.Components))
		for name := range health.Components {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("- %s: %s\n", name, health.Components[name])
		}
		if health.ShortcutDropped > 0 {
			fmt.Printf("Shortcut presses dropped: %d\n", health.ShortcutDropped)
		}

		if health.Status != "healthy" {
			return fmt.Errorf("daemon is %s", health.Status)
		}
		return nil
	},
}

func outputFormatter(cmd *cobra.Command) (formatter.Formatter, error) {
	value, _ := cmd.Flags().GetString("output")
	format, err := formatter.ParseOutputFormat(value)
	if err != nil {
		return nil, err
	}
	return formatter.New(format)
}

func init() {
	statusCmd.Flags().StringP("output", "o", "table", "Output format (table, json, yaml)")
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(healthCmd)
}
