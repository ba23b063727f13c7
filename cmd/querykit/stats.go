package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func (c *Cmd) getStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "stats",
		Short:             "Prints connection pool statistics",
		Long:              `Connects with the configured settings and prints the pool statistics as JSON.`,
		RunE:              c.execStats,
		DisableAutoGenTag: true,
	}
}

func (c *Cmd) execStats(cmd *cobra.Command, args []string) error {
	conn, _, err := c.connect(cmd.Context())
	if err != nil {
		return err
	}
	defer conn.Close()

	b, err := json.MarshalIndent(conn.Stats(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode stats: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return nil
}
