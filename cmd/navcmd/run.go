package main

import (
	"context"
	"fmt"
	"nav-command/plan"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <plan.yaml>",
	Short: "Send every step of a YAML command plan, stopping at the first failure",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := plan.Load(args[0])
		if err != nil {
			return err
		}

		c, err := newClient()
		if err != nil {
			return err
		}
		defer c.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		results, err := p.Run(ctx, c, func(r plan.StepResult) {
			switch {
			case r.Err != nil:
				fmt.Fprintf(out, "%3d %-16s FAILED  %v\n", r.Index+1, r.Label, r.Err)
			case r.Ack.PeerClosed:
				fmt.Fprintf(out, "%3d %-16s closed  (%s)\n", r.Index+1, r.Label, r.Duration)
			default:
				fmt.Fprintf(out, "%3d %-16s %q (%s)\n", r.Index+1, r.Label, r.Ack.Data, r.Duration)
			}
		})
		fmt.Fprintf(out, "%d/%d steps sent\n", len(results), len(p.Steps))
		return err
	},
}
