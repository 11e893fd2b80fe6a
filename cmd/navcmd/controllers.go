package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"nav-command/client"
	"nav-command/registry"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var controllersCmd = &cobra.Command{
	Use:   "controllers",
	Short: "List the control servers commands can be sent to",
	Long: `Lists the control servers of the configured service: the static hosts, or
the instances registered in etcd when --etcd-endpoints is set. With --watch
the list is printed again every time the registry changes.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		follow, _ := cmd.Flags().GetBool("watch")

		reg, err := client.NewRegistry(cfg)
		if err != nil {
			return err
		}
		if closer, ok := reg.(io.Closer); ok {
			defer closer.Close()
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		instances, err := reg.Discover(cfg.Discovery.ServiceName)
		if err != nil && !errors.Is(err, registry.ErrNoInstances) {
			return err
		}
		printInstances(out, cfg.Discovery.ServiceName, instances)
		if !follow {
			return nil
		}

		updates := reg.Watch(cfg.Discovery.ServiceName)
		for {
			select {
			case <-ctx.Done():
				return nil
			case instances, ok := <-updates:
				if !ok {
					return nil
				}
				printInstances(out, cfg.Discovery.ServiceName, instances)
			}
		}
	},
}

func init() {
	controllersCmd.Flags().Bool("watch", false, "keep printing the list whenever it changes")
}

func printInstances(w io.Writer, service string, instances []registry.ServiceInstance) {
	fmt.Fprintf(w, "%s: %d instance(s)\n", service, len(instances))
	for _, inst := range instances {
		fmt.Fprintf(w, "  %-24s weight=%d %s\n", inst.Addr, inst.Weight, inst.Version)
	}
}
