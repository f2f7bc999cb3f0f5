package main

import (
	"fmt"
	"strconv"

	"github.com/harunnryd/voxd/internal/ipc"

	"github.com/spf13/cobra"
)

var stackCmd = &cobra.Command{
	Use:   "stack",
	Short: "Manage stack mode",
	Long: `While stack mode is on, each transcript is saved as a numbered stack instead
of being typed. Paste a stack by number, or with the modifier+digit shortcut.`,
}

var stackOnCmd = &cobra.Command{
	Use:   "on",
	Short: "Enable stack mode",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendAndPrint(cmd.Context(), ipc.NewCommand(ipc.CmdEnableStackMode))
	},
}

var stackOffCmd = &cobra.Command{
	Use:   "off",
	Short: "Disable stack mode and drop all stacks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendAndPrint(cmd.Context(), ipc.NewCommand(ipc.CmdDisableStackMode))
	},
}

var stackListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved stacks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := outputFormatter(cmd)
		if err != nil {
			return err
		}

		resp, err := send(cmd.Context(), ipc.NewCommand(ipc.CmdListStacks))
		if err != nil {
			return err
		}
		var list ipc.StackListPayload
		if err := resp.DecodePayload(&list); err != nil {
			return fmt.Errorf("decode stack list: %w", err)
		}

		out, err := f.FormatStacks(list)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	},
}

var stackPasteCmd = &cobra.Command{
	Use:   "paste [id]",
	Short: "Paste a saved stack into the focused window",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseStackID(args[0])
		if err != nil {
			return err
		}

		c := ipc.NewCommand(ipc.CmdPasteStack)
		c.StackID = id
		c.PasteMode, _ = cmd.Flags().GetString("paste-mode")
		return sendAndPrint(cmd.Context(), c)
	},
}

var stackClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all stacks, keeping stack mode on",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendAndPrint(cmd.Context(), ipc.NewCommand(ipc.CmdClearStacks))
	},
}

func parseStackID(s string) (uint32, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid stack id %q: must be a positive number", s)
	}
	return uint32(id), nil
}

func init() {
	stackListCmd.Flags().StringP("output", "o", "table", "Output format (table, json, yaml)")
	stackPasteCmd.Flags().String("paste-mode", "", "delivery: direct, paste or copy")

	stackCmd.AddCommand(stackOnCmd)
	stackCmd.AddCommand(stackOffCmd)
	stackCmd.AddCommand(stackListCmd)
	stackCmd.AddCommand(stackPasteCmd)
	stackCmd.AddCommand(stackClearCmd)
	rootCmd.AddCommand(stackCmd)
}
