package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-sapien/pkg/body"
	"github.com/teslashibe/go-sapien/pkg/client"
)

var execCmd = &cobra.Command{
	Use:   "exec <action> [direction] [value]",
	Short: "Queue one command on a running robot",
	Long: `Queue one command on a running robot. The action is a wire code (1-17)
or a name such as walk_forward. Direction is 0/1 or true/false; value is
ticks, cycles or a heading depending on the action.`,
	Args: cobra.RangeArgs(1, 3),
	RunE: runExec,
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running robot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()
		if err := remote(cmd).Stop(ctx); err != nil {
			return err
		}
		fmt.Println("🛑 Stopped")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the status of a running robot as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()
		st, err := remote(cmd).Status(ctx)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	},
}

func init() {
	rootCmd.AddCommand(execCmd, stopCmd, statusCmd)
	execCmd.Flags().Bool("legacy", false, "use the GET /bodyaction endpoint")
}

func remote(cmd *cobra.Command) *client.Client {
	url, _ := cmd.Flags().GetString("robot")
	return client.New(url)
}

func runExec(cmd *cobra.Command, args []string) error {
	action, err := body.ParseAction(args[0])
	if err != nil {
		return err
	}
	var dir bool
	if len(args) > 1 {
		if dir, err = strconv.ParseBool(args[1]); err != nil {
			return fmt.Errorf("direction %q: want 0/1 or true/false", args[1])
		}
	}
	var value int
	if len(args) > 2 {
		if value, err = strconv.Atoi(args[2]); err != nil {
			return fmt.Errorf("value %q: %w", args[2], err)
		}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), client.DefaultTimeout)
	defer cancel()

	c := remote(cmd)
	exec := c.Exec
	if legacy, _ := cmd.Flags().GetBool("legacy"); legacy {
		exec = c.BodyAction
	}
	acc, err := exec(ctx, action, dir, value)
	if err != nil {
		return err
	}
	fmt.Printf("✅ Queued %s (%s)\n", body.Command{Action: action, Direction: dir, Value: value}, acc.ID)
	return nil
}
