package main

import (
	"fmt"

	"github.com/harunnryd/voxd/internal/dictionary"
	"github.com/harunnryd/voxd/internal/pathutil"

	"github.com/spf13/cobra"
)

var dictCmd = &cobra.Command{
	Use:   "dict",
	Short: "Manage the substitution dictionary",
	Long: `Dictionary entries rewrite recurring mis-transcriptions. The daemon reads the
file on every transcript, so changes apply without a restart.`,
}

var dictListCmd = &cobra.Command{
	Use:   "list",
	Short: "List dictionary entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := outputFormatter(cmd)
		if err != nil {
			return err
		}

		entries, err := dictionaryRepo().Load()
		if err != nil {
			return fmt.Errorf("failed to load dictionary: %w", err)
		}

		out, err := f.FormatDictionary(entries)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	},
}

var dictAddCmd = &cobra.Command{
	Use:   "add [surface] [replacement]",
	Short: "Add or update an entry",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		statusValue, _ := cmd.Flags().GetString("status")
		status, err := dictionary.ParseStatus(statusValue)
		if err != nil {
			return err
		}

		repo := dictionaryRepo()
		if err := repo.Upsert(dictionary.Entry{Surface: args[0], Replacement: args[1], Status: status}); err != nil {
			return fmt.Errorf("failed to save entry: %w", err)
		}
		fmt.Printf("✓ %q -> %q (%s) saved to %s\n", args[0], args[1], status, pathutil.Collapse(repo.Path()))
		return nil
	},
}

var dictRemoveCmd = &cobra.Command{
	Use:   "remove [surface]",
	Short: "Remove an entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		removed, err := dictionaryRepo().Delete(args[0])
		if err != nil {
			return fmt.Errorf("failed to remove entry: %w", err)
		}
		if !removed {
			return fmt.Errorf("no entry for %q", args[0])
		}
		fmt.Printf("✓ Removed %q\n", args[0])
		return nil
	},
}

func dictionaryRepo() *dictionary.FileRepository {
	path := ""
	if cfg != nil {
		path = cfg.Dictionary.Path
	}
	return dictionary.NewFileRepository(path)
}

func init() {
	dictListCmd.Flags().StringP("output", "o", "table", "Output format (table, json, yaml)")
	dictAddCmd.Flags().String("status", string(dictionary.StatusActive), "entry status (active, draft)")

	dictCmd.AddCommand(dictListCmd)
	dictCmd.AddCommand(dictAddCmd)
	dictCmd.AddCommand(dictRemoveCmd)
	rootCmd.AddCommand(dictCmd)
}
