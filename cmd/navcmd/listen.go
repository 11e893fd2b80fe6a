package main

import (
	"context"
	"fmt"
	"nav-command/middleware"
	"nav-command/registry"
	"nav-command/server"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Run a reference control server that acknowledges every command",
	Long: `Runs a minimal control server for local testing. It reads one record per
connection, logs it and answers with --reply, or closes the connection
without replying when --close is set.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("listen")
		reply, _ := cmd.Flags().GetString("reply")
		closeOnly, _ := cmd.Flags().GetBool("close")
		advertise, _ := cmd.Flags().GetString("advertise")
		ttl, _ := cmd.Flags().GetInt64("ttl")
		readTimeout, _ := cmd.Flags().GetDuration("read-timeout")

		handler := server.AckHandler(reply)
		if closeOnly {
			handler = server.CloseHandler()
		}

		svr := server.NewServer(handler)
		svr.SetLogger(logger)
		svr.SetReadTimeout(readTimeout)
		svr.Use(middleware.LoggingMiddleware(logger))
		svr.Use(middleware.MetricsMiddleware(metricSet))

		if err := svr.Listen("tcp", addr); err != nil {
			return err
		}

		if cfg.UseDiscovery() {
			if advertise == "" {
				advertise = svr.Addr().String()
			}
			reg, err := registry.NewEtcdRegistry(cfg.Discovery.EtcdEndpoints, cfg.Discovery.Timeout)
			if err != nil {
				return err
			}
			defer reg.Close()
			if err := svr.Advertise(reg, cfg.Discovery.ServiceName, advertise, ttl); err != nil {
				return err
			}
			logger.Infof("advertised as %s in %s", advertise, cfg.Discovery.ServiceName)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() { errCh <- svr.Serve() }()
		logger.Infof("listening on %s", svr.Addr())
		fmt.Fprintf(cmd.OutOrStdout(), "listening on %s\n", svr.Addr())

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}
		logger.Infof("shutting down")
		return svr.Shutdown(5 * time.Second)
	},
}

func init() {
	listenCmd.Flags().String("listen", "127.0.0.1:8787", "address to listen on")
	listenCmd.Flags().String("reply", "ack", "acknowledgement text sent for every command")
	listenCmd.Flags().Bool("close", false, "close every connection without replying")
	listenCmd.Flags().String("advertise", "", "address published in etcd (default: the listen address)")
	listenCmd.Flags().Int64("ttl", 10, "etcd lease TTL in seconds")
	listenCmd.Flags().Duration("read-timeout", 30*time.Second, "how long to wait for a record on a new connection")
}
