package main

import (
	"github.com/spf13/cobra"

	"github.com/teslashibe/go-sapien/pkg/client"
	"github.com/teslashibe/go-sapien/pkg/teleop"
)

var teleopCmd = &cobra.Command{
	Use:   "teleop",
	Short: "Drive a running robot from the keyboard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s := teleop.DefaultSettings()
		s.Pulse, _ = cmd.Flags().GetInt("pulse")
		s.Cycles, _ = cmd.Flags().GetInt("cycles")
		s.TurnStep, _ = cmd.Flags().GetInt("turn-step")

		url, _ := cmd.Flags().GetString("robot")
		return teleop.Run(cmd.Context(), client.New(url), url, s)
	},
}

func init() {
	rootCmd.AddCommand(teleopCmd)
	d := teleop.DefaultSettings()
	teleopCmd.Flags().Int("pulse", d.Pulse, "ticks per limb key press")
	teleopCmd.Flags().Int("cycles", d.Cycles, "gait cycles per key press")
	teleopCmd.Flags().Int("turn-step", d.TurnStep, "degrees per turn key press")
}
