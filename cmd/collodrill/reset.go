package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newResetCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all learning progress",
		Long:  "Delete item and pair progress, statistics and drill history. The catalog and study lists are kept.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to reset progress without --yes")
			}
			if err := a.store.ResetProgress(cmd.Context()); err != nil {
				return err
			}
			a.log.Warn("progress reset", "db", a.cfg.DBPath)
			fmt.Fprintln(cmd.OutOrStdout(), "Progress reset.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the reset")
	return cmd
}
