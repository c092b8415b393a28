// Command arboric runs the Arboric GraphQL-aware reverse proxy: one or more
// listeners, each authenticating, parsing, and authorizing GraphQL requests
// before forwarding them to an upstream API (spec §1, §7).
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arboric-proxy/arboric/config"
	"github.com/arboric-proxy/arboric/listener"
	"github.com/arboric-proxy/arboric/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "arboric",
	Short: "Arboric is a GraphQL-aware ABAC reverse proxy",
	Long: `Arboric sits in front of a GraphQL API and enforces attribute-based
access-control policies against each request's operations before forwarding
it upstream.`,
	RunE: runStart,
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Load the configuration file and start every configured listener",
	RunE:  runStart,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "/var/arboric/config.yml", "path to the Arboric YAML configuration file")
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	logger.Init()

	cfg, err := config.LoadYAML(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	if err := logger.InitFromConfig(cfg.Log); err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}

	if len(cfg.Listeners) == 0 {
		return errors.New("configuration defines no listeners")
	}

	listeners := make([]*listener.Listener, 0, len(cfg.Listeners))
	for i, lc := range cfg.Listeners {
		l, err := listener.New(lc, logger.Log)
		if err != nil {
			return fmt.Errorf("listener[%d]: %w", i, err)
		}
		listeners = append(listeners, l)
	}
	defer func() {
		for _, l := range listeners {
			l.Close()
		}
	}()

	errs := make(chan error, len(listeners))
	for _, l := range listeners {
		l := l
		logger.Log.Info("starting listener", "addr", l.Addr())
		go func() {
			errs <- l.ListenAndServe()
		}()
	}

	return <-errs
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
