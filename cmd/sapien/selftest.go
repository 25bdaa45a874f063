package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-sapien/pkg/body"
)

var selftestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "Pulse every joint both ways and blink the hand lights",
	Args:  cobra.NoArgs,
	RunE:  runSelfTest,
}

func init() {
	rootCmd.AddCommand(selftestCmd)
	selftestCmd.Flags().Bool("simulate", false, "drive in-memory expanders instead of I2C hardware")
	selftestCmd.Flags().Int("blinks", 16, "on/off cycles per hand light")
}

func runSelfTest(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if sim, _ := cmd.Flags().GetBool("simulate"); sim {
		cfg.I2C.Simulate = true
	}
	blinks, _ := cmd.Flags().GetInt("blinks")

	ctx := cmd.Context()

	rb, err := assemble(ctx, cfg)
	if err != nil {
		return err
	}
	defer rb.close()

	fmt.Println("🔧 Running self test...")
	ids, err := body.RunSelfTest(ctx, rb.disp, blinks)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			rb.disp.Stop()
			fmt.Println("\n🛑 Self test interrupted")
			return nil
		case <-ticker.C:
			st := rb.disp.Status()
			if st.Executed >= uint64(len(ids)) && st.Running == nil && st.Queued == 0 {
				fmt.Printf("✅ Self test finished: %d commands\n", st.Executed)
				return nil
			}
		}
	}
}
