package main

import (
	"fmt"
	"io"
	"nav-command/client"
	"nav-command/config"
	"nav-command/logging"
	"os"

	"github.com/VictoriaMetrics/metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	Version = "0.3.0"
)

var (
	v         = viper.New()
	cfg       *config.ClientConfig
	logger    logging.Logger = logging.Discard
	logOutput io.Writer
	metricSet = metrics.NewSet()

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "navcmd",
		Short: "send navigation commands to a control server",
		Long: fmt.Sprintf(`navcmd (v%s)

Sends 28-byte navigation command records to a control server over TCP,
one connection per command, and prints the acknowledgement.`, Version),
		SilenceUsage:       true,
		PersistentPreRunE:  setup,
		PersistentPostRunE: teardown,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of navcmd",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("navcmd v%s\n", Version)
		},
	}
)

func init() {
	config.SetupClientFlags(RootCmd)

	RootCmd.AddCommand(versionCmd)
	RootCmd.AddCommand(sendCmd)
	RootCmd.AddCommand(runCmd)
	RootCmd.AddCommand(listenCmd)
	RootCmd.AddCommand(encodeCmd)
	RootCmd.AddCommand(historyCmd)
	RootCmd.AddCommand(configCmd)
	RootCmd.AddCommand(controllersCmd)
}

// setup loads the configuration and builds the logger before any subcommand runs.
func setup(cmd *cobra.Command, _ []string) error {
	config.InitEnv(v)
	if err := config.BindCommandFlags(v, cmd); err != nil {
		return err
	}

	var err error
	cfg, err = config.Load(v)
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logOutput = logging.Output(cfg.Log.FileOptions())
	logger = logging.New("navcmd", level, logOutput)
	logger.Debugf("configuration:%s", cfg)
	return nil
}

func teardown(cmd *cobra.Command, _ []string) error {
	if cfg != nil && cfg.Metrics {
		metricSet.WritePrometheus(cmd.OutOrStdout())
	}
	if closer, ok := logOutput.(io.Closer); ok && logOutput != os.Stderr {
		return closer.Close()
	}
	return nil
}

// newClient builds the command client from the loaded configuration.
func newClient() (*client.Client, error) {
	return client.NewFromConfig(cfg, logger, metricSet)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
