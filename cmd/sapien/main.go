// Command sapien runs and drives a Robosapien body controller.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-sapien/internal/config"
	"github.com/teslashibe/go-sapien/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "sapien",
	Short: "Robosapien body controller",
	Long: `sapien drives the motors and lights of a Robosapien body through two
MCP23017 expanders, and exposes them over HTTP for a master process.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		level, _ := cmd.Flags().GetString("log-level")
		if level == "" {
			level = os.Getenv("SAPIEN_LOG_LEVEL")
		}
		log.Init(level)
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().String("log-level", "", "debug, info, warn or error")
	rootCmd.PersistentFlags().String("robot", config.RobotURL(config.DefaultRobotURL), "robot API URL for remote commands")
}

// loadConfig reads --config and applies the log level it names unless the
// flag overrode it.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl == "" {
		log.Init(cfg.LogLevel)
	}
	return cfg, nil
}
