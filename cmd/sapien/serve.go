package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-sapien/internal/log"
	"github.com/teslashibe/go-sapien/pkg/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the body controller and its HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Bool("simulate", false, "drive in-memory expanders instead of I2C hardware")
	serveCmd.Flags().String("listen", "", "HTTP listen address (overrides config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if sim, _ := cmd.Flags().GetBool("simulate"); sim {
		cfg.I2C.Simulate = true
	}
	if l, _ := cmd.Flags().GetString("listen"); l != "" {
		cfg.HTTP.Listen = l
	}

	fmt.Println("🤖 Sapien Body Controller")
	if cfg.I2C.Simulate {
		fmt.Println("   Expanders: simulated")
	} else {
		fmt.Printf("   Expanders: %#02x, %#02x on %q\n", cfg.I2C.Primary, cfg.I2C.Secondary, cfg.I2C.Bus)
	}
	fmt.Printf("   API:       http://%s\n", cfg.HTTP.Listen)
	fmt.Println()

	ctx := cmd.Context()

	rb, err := assemble(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := rb.close(); err != nil {
			log.Warn("shutdown", "err", err)
		}
		fmt.Println("👋 Goodbye!")
	}()

	srv := web.New(rb.disp,
		web.WithOutputs(rb.bank),
		web.WithFeed(rb.feed),
		web.WithHub(rb.events),
		web.WithMetrics(rb.metrics.Handler()),
	)

	fmt.Println("✅ Ready for commands")
	if err := srv.Run(ctx, cfg.HTTP.Listen); err != nil {
		return fmt.Errorf("http api: %w", err)
	}
	fmt.Println("\n👋 Shutting down...")
	return nil
}
