package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Konsultn-Engineering/querykit/connector"
)

type (
	pingFlags struct {
		timeout time.Duration
	}
)

func (c *Cmd) getPingCmd() *cobra.Command {
	pingCmd := &cobra.Command{
		Use:               "ping",
		Short:             "Checks that the database is reachable",
		Long:              `Connects with the configured settings and pings the database once.`,
		RunE:              c.execPing,
		DisableAutoGenTag: true,
	}
	pingCmd.PersistentFlags().DurationVarP(&c.pingFlags.timeout, "timeout", "t", 10*time.Second, "overall time limit")
	return pingCmd
}

func (c *Cmd) execPing(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), c.pingFlags.timeout)
	defer cancel()

	conn, cfg, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	start := time.Now()
	if err := conn.Health(ctx); err != nil {
		return fmt.Errorf("ping %s failed: %w", cfg.RedactedDSN(), err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "ok %s (%s)\n", cfg.RedactedDSN(), time.Since(start).Round(time.Microsecond))
	return nil
}

func (c *Cmd) connect(ctx context.Context) (*connector.Connection, connector.Config, error) {
	cfg, err := c.readConfig()
	if err != nil {
		return nil, cfg, err
	}
	c.logDebug("Connecting to %s\n", cfg.RedactedDSN())
	conn, err := connector.Connect(ctx, cfg)
	if err != nil {
		return nil, cfg, err
	}
	return conn, conn.Config(), nil
}
