package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/harunnryd/voxd/internal/daemon"
	"github.com/harunnryd/voxd/internal/daemon/components"

	"github.com/spf13/cobra"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the voxd daemon in the foreground",
	Long: `Starts the daemon: takes the instance lock, builds the recording pipeline and
serves commands on the unix socket until SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("config not loaded")
		}

		daemonMgr, err := daemon.NewDaemon(cfg)
		if err != nil {
			return fmt.Errorf("failed to create daemon manager: %w", err)
		}

		lockComp := components.NewInstanceLockComponent(daemonMgr.RuntimeDir(), &cfg.Daemon)
		routerComp := components.NewRouterComponent(cfg, daemonMgr.RuntimeDir(), daemonMgr.HealthSummary)
		ipcComp := components.NewIPCListenerComponent(&cfg.IPC, routerComp, routerComp.Name())

		daemonMgr.AddComponent(lockComp)
		daemonMgr.AddComponent(routerComp)
		daemonMgr.AddComponent(ipcComp)

		slog.Info("voxd daemon starting up...", "socket", cfg.IPC.SocketPath, "runtime_dir", daemonMgr.RuntimeDir())
		err = daemonMgr.Start(context.Background())
		if err != nil {
			if errors.Is(err, context.Canceled) {
				slog.Info("voxd daemon stopped gracefully")
				return nil
			}
			return fmt.Errorf("daemon failed: %w", err)
		}

		slog.Info("voxd daemon stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}
