package main

import (
	"fmt"
	"os"

	"github.com/harunnryd/voxd/internal/config"
	"github.com/harunnryd/voxd/internal/logger"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	envFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "voxd",
	Short: "Voice dictation daemon",
	Long: `voxd records from the microphone, transcribes the recording and types the
text into the focused window. In stack mode transcripts are kept as numbered
stacks and pasted on demand.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cmd)
		if err != nil {
			return err
		}

		logger.Setup(cfg.Daemon.LogLevel)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.voxd/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file loaded before VOXD_ variables are read")
	rootCmd.PersistentFlags().String("daemon.log_level", config.DefaultDaemonLogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("ipc.socket_path", "", "daemon socket (default is $XDG_RUNTIME_DIR/voxd.sock)")
}
