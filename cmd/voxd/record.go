package main

import (
	"fmt"

	"github.com/harunnryd/voxd/internal/ipc"

	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start recording",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendAndPrint(cmd.Context(), recordingCommand(cmd, ipc.CmdStart))
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop recording and transcribe",
	Long: `Stops the current recording. With --wait the command blocks until the
transcript has been delivered or saved, and reports what happened.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := ipc.NewCommand(ipc.CmdStop)
		c.Wait, _ = cmd.Flags().GetBool("wait")
		return stopOrToggle(cmd, c)
	},
}

var toggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Start recording, or stop if already recording",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := recordingCommand(cmd, ipc.CmdToggle)
		c.Wait, _ = cmd.Flags().GetBool("wait")
		return stopOrToggle(cmd, c)
	},
}

func recordingCommand(cmd *cobra.Command, t ipc.CommandType) ipc.Command {
	c := ipc.NewCommand(t)
	c.PasteMode, _ = cmd.Flags().GetString("paste-mode")
	c.Prompt, _ = cmd.Flags().GetString("prompt")
	return c
}

func stopOrToggle(cmd *cobra.Command, c ipc.Command) error {
	resp, err := send(cmd.Context(), c)
	if err != nil {
		return err
	}

	var outcome ipc.Outcome
	if resp.DecodePayload(&outcome) == nil && !outcome.FinishedAt.IsZero() {
		printOutcome(outcome)
		return nil
	}
	fmt.Printf("✓ %s\n", resp.Message)
	return nil
}

func printOutcome(o ipc.Outcome) {
	fmt.Printf("✓ %s\n", o.Message)
	if o.Text != "" {
		fmt.Printf("\n%s\n", o.Text)
	}
}

func init() {
	for _, c := range []*cobra.Command{startCmd, toggleCmd} {
		c.Flags().String("paste-mode", "", "delivery for this recording: direct, paste or copy")
		c.Flags().String("prompt", "", "transcription prompt for this recording")
	}
	for _, c := range []*cobra.Command{stopCmd, toggleCmd} {
		c.Flags().Bool("wait", false, "wait for the transcript to be delivered")
	}

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(toggleCmd)
}
